package repository

import (
	"context"
	"fmt"
	"time"

	"libraryhub/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// BorrowRepository defines the ledger store operations.
type BorrowRepository interface {
	Create(ctx context.Context, b *models.Borrow) error
	FindByID(ctx context.Context, id int64) (*models.Borrow, error)
	HasActive(ctx context.Context, userID, bookID int64) (bool, error)
	// MarkReturned moves an active entry to returned. It reports false if the
	// entry was already returned.
	MarkReturned(ctx context.Context, id int64, at time.Time) (bool, error)
	// ListByUser returns the user's entries with Book preloaded, newest first.
	ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]models.Borrow, error)
	// ListAll returns every entry with Book and User preloaded, newest first.
	ListAll(ctx context.Context) ([]models.Borrow, error)
	CountByBook(ctx context.Context, bookID int64) (int64, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	// ActiveCountsByBook maps book id to its number of active entries.
	ActiveCountsByBook(ctx context.Context) (map[int64]int64, error)
}

type borrowRepository struct {
	db *gorm.DB
}

func NewBorrowRepository(db *gorm.DB) BorrowRepository {
	return &borrowRepository{db: db}
}

func (r *borrowRepository) Create(ctx context.Context, b *models.Borrow) error {
	if err := r.db.WithContext(ctx).Omit("Book", "User").Create(b).Error; err != nil {
		return fmt.Errorf("create borrow: %w", translate(err))
	}
	return nil
}

func (r *borrowRepository) FindByID(ctx context.Context, id int64) (*models.Borrow, error) {
	var b models.Borrow
	if err := r.db.WithContext(ctx).Preload("Book").First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *borrowRepository) HasActive(ctx context.Context, userID, bookID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Borrow{}).
		Where("user_id = ? AND book_id = ? AND is_returned = ?", userID, bookID, false).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check active borrow: %w", err)
	}
	return count > 0, nil
}

func (r *borrowRepository) MarkReturned(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Borrow{}).
		Where("id = ? AND is_returned = ?", id, false).
		Updates(map[string]interface{}{
			"is_returned": true,
			"return_date": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("mark borrow returned: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *borrowRepository) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]models.Borrow, error) {
	var list []models.Borrow
	q := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("is_returned = ?", false)
	}
	if err := q.Order("borrow_date DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list borrows for user: %w", err)
	}
	return list, nil
}

func (r *borrowRepository) ListAll(ctx context.Context) ([]models.Borrow, error) {
	var list []models.Borrow
	if err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		Order("borrow_date DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list borrows: %w", err)
	}
	return list, nil
}

func (r *borrowRepository) CountByBook(ctx context.Context, bookID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Borrow{}).Where("book_id = ?", bookID).Count(&count).Error
	return count, err
}

func (r *borrowRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Borrow{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *borrowRepository) ActiveCountsByBook(ctx context.Context) (map[int64]int64, error) {
	var rows []struct {
		BookID int64
		Active int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Borrow{}).
		Select("book_id, COUNT(*) AS active").
		Where("is_returned = ?", false).
		Group("book_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count active borrows: %w", err)
	}
	counts := make(map[int64]int64, len(rows))
	for _, row := range rows {
		counts[row.BookID] = row.Active
	}
	return counts, nil
}
