package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the three repositories so that a unit of work can bind all of
// them to the same transaction.
type Store interface {
	Users() UserRepository
	Books() BookRepository
	Borrows() BorrowRepository

	// WithTx runs fn inside a single transaction. Returning an error (or a
	// cancelled ctx) rolls back every write made through the tx store.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// gormStore is the GORM implementation of Store.
type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by GORM (postgres or sqlite).
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository     { return NewUserRepository(s.db) }
func (s *gormStore) Books() BookRepository     { return NewBookRepository(s.db) }
func (s *gormStore) Borrows() BorrowRepository { return NewBorrowRepository(s.db) }

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
