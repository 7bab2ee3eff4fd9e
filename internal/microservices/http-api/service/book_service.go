package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

const minISBNLength = 10

type BookService interface {
	// List returns the whole catalog, or the matches for search when it is not blank.
	List(ctx context.Context, search string) ([]models.Book, error)
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	Create(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, id int64, in BookUpdate) (*models.Book, error)
	Delete(ctx context.Context, id int64) error
}

// BookUpdate is a partial update; nil fields are left untouched.
type BookUpdate struct {
	Title           *string
	Author          *string
	ISBN            *string
	Description     *string
	Category        *string
	CoverImage      *string
	TotalCopies     *int
	AvailableCopies *int
	PublicationYear *int
	Publisher       *string
	PageCount       *int
	Language        *string
}

type bookService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewBookService(store repository.Store, logger *slog.Logger) BookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &bookService{store: store, logger: logger}
}

func (s *bookService) List(ctx context.Context, search string) ([]models.Book, error) {
	var (
		list []models.Book
		err  error
	)
	if strings.TrimSpace(search) == "" {
		list, err = s.store.Books().List(ctx)
	} else {
		list, err = s.store.Books().Search(ctx, search)
	}
	if err != nil {
		return nil, internalErr("list books", err)
	}
	return list, nil
}

func (s *bookService) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	b, err := s.store.Books().FindByID(ctx, id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: book %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, internalErr("get book", err)
	}
	return b, nil
}

func (s *bookService) Create(ctx context.Context, b *models.Book) error {
	normalizeBook(b)
	if err := validateBook(b); err != nil {
		return err
	}

	// ISBN is unique; report it before the insert so the message is precise
	if _, err := s.store.Books().FindByISBN(ctx, b.ISBN); err == nil {
		return fmt.Errorf("%w: book with ISBN %s already exists", ErrConflict, b.ISBN)
	} else if !errors.Is(err, repository.ErrRecordNotFound) {
		return internalErr("check isbn", err)
	}

	if err := s.store.Books().Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("%w: book with ISBN %s already exists", ErrConflict, b.ISBN)
		}
		return internalErr("create book", err)
	}
	s.logger.Info("book_created", "book_id", b.ID, "isbn", b.ISBN, "total_copies", b.TotalCopies)
	return nil
}

// Update merges in onto the stored book. Copy counts set here are admin
// overrides and are not reconciled against the ledger.
func (s *bookService) Update(ctx context.Context, id int64, in BookUpdate) (*models.Book, error) {
	var updated *models.Book
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Books().FindByIDForUpdate(ctx, id)
		if errors.Is(err, repository.ErrRecordNotFound) {
			return fmt.Errorf("%w: book %d", ErrNotFound, id)
		}
		if err != nil {
			return internalErr("load book", err)
		}

		in.applyTo(existing)
		normalizeBook(existing)
		if err := validateBook(existing); err != nil {
			return err
		}

		if err := tx.Books().Update(ctx, existing); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: book with ISBN %s already exists", ErrConflict, existing.ISBN)
			}
			return internalErr("update book", err)
		}
		updated = existing
		return nil
	})
	if err = surface("update book", err); err != nil {
		return nil, err
	}

	if in.TotalCopies != nil || in.AvailableCopies != nil {
		s.logger.Info("book_copies_overridden",
			"book_id", id,
			"total_copies", updated.TotalCopies,
			"available_copies", updated.AvailableCopies,
		)
	}
	return updated, nil
}

// Delete refuses to remove a book the ledger still references.
func (s *bookService) Delete(ctx context.Context, id int64) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Books().FindByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return fmt.Errorf("%w: book %d", ErrNotFound, id)
			}
			return internalErr("load book", err)
		}
		refs, err := tx.Borrows().CountByBook(ctx, id)
		if err != nil {
			return internalErr("count borrows", err)
		}
		if refs > 0 {
			return fmt.Errorf("%w: book %d has %d ledger entries", ErrConflict, id, refs)
		}
		if err := tx.Books().Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return fmt.Errorf("%w: book %d", ErrNotFound, id)
			}
			return internalErr("delete book", err)
		}
		return nil
	})
	if err = surface("delete book", err); err != nil {
		return err
	}
	s.logger.Info("book_deleted", "book_id", id)
	return nil
}

func (in BookUpdate) applyTo(b *models.Book) {
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Author != nil {
		b.Author = *in.Author
	}
	if in.ISBN != nil {
		b.ISBN = *in.ISBN
	}
	if in.Description != nil {
		b.Description = in.Description
	}
	if in.Category != nil {
		b.Category = in.Category
	}
	if in.CoverImage != nil {
		b.CoverImage = in.CoverImage
	}
	if in.TotalCopies != nil {
		b.TotalCopies = *in.TotalCopies
	}
	if in.AvailableCopies != nil {
		b.AvailableCopies = *in.AvailableCopies
	}
	if in.PublicationYear != nil {
		b.PublicationYear = in.PublicationYear
	}
	if in.Publisher != nil {
		b.Publisher = in.Publisher
	}
	if in.PageCount != nil {
		b.PageCount = in.PageCount
	}
	if in.Language != nil {
		b.Language = *in.Language
	}
}

func normalizeBook(b *models.Book) {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.ISBN = strings.TrimSpace(b.ISBN)
	if strings.TrimSpace(b.Language) == "" {
		b.Language = "English"
	}
}

func validateBook(b *models.Book) error {
	switch {
	case b.Title == "":
		return validationErr("title is required")
	case b.Author == "":
		return validationErr("author is required")
	case len(b.ISBN) < minISBNLength:
		return validationErr("isbn must be at least %d characters", minISBNLength)
	case b.TotalCopies < 1:
		return validationErr("total_copies must be at least 1")
	case b.AvailableCopies < 0:
		return validationErr("available_copies cannot be negative")
	case b.AvailableCopies > b.TotalCopies:
		return validationErr("available_copies cannot exceed total_copies")
	}
	return nil
}
