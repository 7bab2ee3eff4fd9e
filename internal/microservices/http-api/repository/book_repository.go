package repository

import (
	"context"
	"fmt"
	"strings"

	"libraryhub/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookRepository defines the catalog store operations.
type BookRepository interface {
	Create(ctx context.Context, b *models.Book) error
	FindByID(ctx context.Context, id int64) (*models.Book, error)
	// FindByIDForUpdate reads the row with a write lock where the database supports it.
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*models.Book, error)
	List(ctx context.Context) ([]models.Book, error)
	Search(ctx context.Context, term string) ([]models.Book, error)
	Update(ctx context.Context, b *models.Book) error
	Delete(ctx context.Context, id int64) error

	// DecrementAvailable takes one copy if any is left. It reports false when
	// the guard blocked the write.
	DecrementAvailable(ctx context.Context, id int64) (bool, error)
	// IncrementAvailable puts one copy back unless the book is already at capacity.
	IncrementAvailable(ctx context.Context, id int64) (bool, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, b *models.Book) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("create book: %w", translate(err))
	}
	// GORM populates b.ID and timestamps
	return nil
}

func (r *bookRepository) FindByID(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *bookRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	// sqlite ignores the locking clause, postgres emits SELECT ... FOR UPDATE
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *bookRepository) List(ctx context.Context) ([]models.Book, error) {
	var list []models.Book
	if err := r.db.WithContext(ctx).Order("title ASC, id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return list, nil
}

// Search performs a case-insensitive partial match. The term is split into
// tokens and every token must appear in at least one searchable field.
// Example: "orwell 1984" -> WHERE (LOWER(title) LIKE '%orwell%' OR ...) AND (LOWER(title) LIKE '%1984%' OR ...)
func (r *bookRepository) Search(ctx context.Context, term string) ([]models.Book, error) {
	tokens := strings.Fields(strings.ToLower(term))
	if len(tokens) == 0 {
		return r.List(ctx)
	}

	clauses := make([]string, 0, len(tokens))
	args := make([]interface{}, 0, len(tokens)*len(searchColumns))
	for _, t := range tokens {
		p := "%" + t + "%"
		parts := make([]string, 0, len(searchColumns))
		for _, col := range searchColumns {
			// COALESCE keeps NULL optional columns from poisoning the OR
			parts = append(parts, fmt.Sprintf("LOWER(COALESCE(%s,'')) LIKE ?", col))
			args = append(args, p)
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}

	var list []models.Book
	if err := r.db.WithContext(ctx).
		Where(strings.Join(clauses, " AND "), args...).
		Order("title ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return list, nil
}

var searchColumns = []string{"title", "author", "isbn", "category", "description"}

func (r *bookRepository) Update(ctx context.Context, b *models.Book) error {
	if err := r.db.WithContext(ctx).Save(b).Error; err != nil {
		return fmt.Errorf("update book: %w", translate(err))
	}
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Book{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete book: %w", translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *bookRepository) DecrementAvailable(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND available_copies > 0", id).
		Update("available_copies", gorm.Expr("available_copies - 1"))
	if result.Error != nil {
		return false, fmt.Errorf("decrement available copies: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *bookRepository) IncrementAvailable(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND available_copies < total_copies", id).
		Update("available_copies", gorm.Expr("available_copies + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("increment available copies: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
