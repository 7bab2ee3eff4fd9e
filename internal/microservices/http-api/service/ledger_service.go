package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"libraryhub/internal/access"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

// DefaultLoanPeriod is the due-date policy used when none is configured.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// LedgerService owns the borrow ledger and keeps every book's available-copy
// counter in step with it.
type LedgerService interface {
	Borrow(ctx context.Context, accountID, bookID int64) (*models.Borrow, error)
	Return(ctx context.Context, borrowID, requesterID int64, requesterIsAdmin bool) (*models.Borrow, error)
	ListForAccount(ctx context.Context, accountID int64) ([]models.Borrow, error)
	ListActiveForAccount(ctx context.Context, accountID int64) ([]models.Borrow, error)
	ListAll(ctx context.Context) ([]models.Borrow, error)
	Reconcile(ctx context.Context) ([]AvailabilityReport, error)
}

// AvailabilityReport compares a book's stored counter with the ledger-derived value.
type AvailabilityReport struct {
	BookID          int64  `json:"book_id"`
	Title           string `json:"title"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	ActiveBorrows   int64  `json:"active_borrows"`
	Expected        int64  `json:"expected_available"`
}

// Consistent reports whether the stored counter matches the ledger.
func (r AvailabilityReport) Consistent() bool {
	return int64(r.AvailableCopies) == r.Expected
}

type ledgerService struct {
	store      repository.Store
	loanPeriod time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

type LedgerOption func(*ledgerService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *ledgerService) { s.now = now }
}

func WithLogger(logger *slog.Logger) LedgerOption {
	return func(s *ledgerService) { s.logger = logger }
}

func NewLedgerService(store repository.Store, loanPeriod time.Duration, opts ...LedgerOption) LedgerService {
	if loanPeriod <= 0 {
		loanPeriod = DefaultLoanPeriod
	}
	s := &ledgerService{
		store:      store,
		loanPeriod: loanPeriod,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp truncates to microseconds so values survive a postgres round trip unchanged.
func (s *ledgerService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Borrow checks, in order, that the book exists, that a copy is left and that
// the account holds no active borrow of it. The ledger insert and the counter
// decrement share one transaction.
func (s *ledgerService) Borrow(ctx context.Context, accountID, bookID int64) (*models.Borrow, error) {
	now := s.timestamp()
	var created *models.Borrow

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		book, err := tx.Books().FindByIDForUpdate(ctx, bookID)
		if errors.Is(err, repository.ErrRecordNotFound) {
			return fmt.Errorf("%w: book %d", ErrNotFound, bookID)
		}
		if err != nil {
			return internalErr("load book", err)
		}
		if !book.IsAvailable() {
			return fmt.Errorf("%w: %q", ErrUnavailable, book.Title)
		}

		active, err := tx.Borrows().HasActive(ctx, accountID, bookID)
		if err != nil {
			return internalErr("check active borrow", err)
		}
		if active {
			return ErrAlreadyBorrowed
		}

		entry := &models.Borrow{
			BookID:     bookID,
			UserID:     accountID,
			BorrowDate: now,
			DueDate:    now.Add(s.loanPeriod),
		}
		if err := tx.Borrows().Create(ctx, entry); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyBorrowed
			}
			return internalErr("create borrow", err)
		}

		// the guard catches a concurrent borrow that took the last copy after our read
		taken, err := tx.Books().DecrementAvailable(ctx, bookID)
		if err != nil {
			return internalErr("decrement available copies", err)
		}
		if !taken {
			return fmt.Errorf("%w: %q", ErrUnavailable, book.Title)
		}

		book.AvailableCopies--
		entry.Book = book
		created = entry
		return nil
	})
	if err = surface("borrow", err); err != nil {
		s.logFailure("borrow_rejected", err, "user_id", accountID, "book_id", bookID)
		return nil, err
	}

	s.logger.Info("borrow_created",
		"borrow_id", created.ID,
		"user_id", accountID,
		"book_id", bookID,
		"due_date", created.DueDate,
		"available_copies", created.Book.AvailableCopies,
	)
	return created, nil
}

// Return moves an active entry to returned and puts the copy back. The
// increment never lifts the counter above TotalCopies; a blocked increment
// means the counter drifted and is logged, the return itself still succeeds.
func (s *ledgerService) Return(ctx context.Context, borrowID, requesterID int64, requesterIsAdmin bool) (*models.Borrow, error) {
	now := s.timestamp()
	requester := &access.Principal{UserID: requesterID, IsAdmin: requesterIsAdmin}
	var returned *models.Borrow

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		entry, err := tx.Borrows().FindByID(ctx, borrowID)
		if errors.Is(err, repository.ErrRecordNotFound) {
			return fmt.Errorf("%w: borrow %d", ErrNotFound, borrowID)
		}
		if err != nil {
			return internalErr("load borrow", err)
		}
		if err := access.CanReturn(requester, entry.UserID); err != nil {
			return err
		}
		if entry.IsReturned {
			return ErrAlreadyReturned
		}

		moved, err := tx.Borrows().MarkReturned(ctx, borrowID, now)
		if err != nil {
			return internalErr("mark returned", err)
		}
		if !moved {
			// a concurrent return won
			return ErrAlreadyReturned
		}

		restored, err := tx.Books().IncrementAvailable(ctx, entry.BookID)
		if err != nil {
			return internalErr("increment available copies", err)
		}
		if !restored {
			s.logger.Warn("availability_increment_blocked",
				"borrow_id", borrowID,
				"book_id", entry.BookID,
			)
		} else if entry.Book != nil {
			entry.Book.AvailableCopies++
		}

		entry.IsReturned = true
		entry.ReturnDate = &now
		returned = entry
		return nil
	})
	if err = surface("return", err); err != nil {
		s.logFailure("return_rejected", err, "borrow_id", borrowID, "requester_id", requesterID)
		return nil, err
	}

	s.logger.Info("borrow_returned",
		"borrow_id", returned.ID,
		"user_id", returned.UserID,
		"book_id", returned.BookID,
		"returned_by", requesterID,
	)
	return returned, nil
}

func (s *ledgerService) ListForAccount(ctx context.Context, accountID int64) ([]models.Borrow, error) {
	list, err := s.store.Borrows().ListByUser(ctx, accountID, false)
	if err != nil {
		return nil, internalErr("list borrows", err)
	}
	return list, nil
}

func (s *ledgerService) ListActiveForAccount(ctx context.Context, accountID int64) ([]models.Borrow, error) {
	list, err := s.store.Borrows().ListByUser(ctx, accountID, true)
	if err != nil {
		return nil, internalErr("list active borrows", err)
	}
	return list, nil
}

func (s *ledgerService) ListAll(ctx context.Context) ([]models.Borrow, error) {
	list, err := s.store.Borrows().ListAll(ctx)
	if err != nil {
		return nil, internalErr("list all borrows", err)
	}
	return list, nil
}

// Reconcile reads every book and the active ledger in one transaction and
// reports the expected counter for each. It never writes.
func (s *ledgerService) Reconcile(ctx context.Context) ([]AvailabilityReport, error) {
	var reports []AvailabilityReport
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		books, err := tx.Books().List(ctx)
		if err != nil {
			return internalErr("list books", err)
		}
		active, err := tx.Borrows().ActiveCountsByBook(ctx)
		if err != nil {
			return internalErr("count active borrows", err)
		}
		reports = make([]AvailabilityReport, 0, len(books))
		for _, b := range books {
			reports = append(reports, AvailabilityReport{
				BookID:          b.ID,
				Title:           b.Title,
				TotalCopies:     b.TotalCopies,
				AvailableCopies: b.AvailableCopies,
				ActiveBorrows:   active[b.ID],
				Expected:        int64(b.TotalCopies) - active[b.ID],
			})
		}
		return nil
	})
	if err = surface("reconcile", err); err != nil {
		return nil, err
	}
	return reports, nil
}

// logFailure keeps expected rejections at info and store failures at error.
func (s *ledgerService) logFailure(event string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if errors.Is(err, ErrInternal) {
		s.logger.Error(event, attrs...)
		return
	}
	s.logger.Info(event, attrs...)
}
