package database

import (
	"testing"
	"time"

	"libraryhub/internal/microservices/http-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", "file::memory:", false)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "lib.db?_foreign_keys=on&_busy_timeout=5000", sqliteDSN("lib.db"))
	assert.Equal(t, "file::memory:?cache=shared&_foreign_keys=on&_busy_timeout=5000", sqliteDSN("file::memory:?cache=shared"))
	assert.True(t, isMemoryDSN("file::memory:"))
	assert.False(t, isMemoryDSN("/var/lib/libraryhub.db"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever", false)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrateCreatesTables(t *testing.T) {
	db := openMemory(t)

	for _, table := range []string{"users", "books", "borrows"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Borrow{}, "idx_borrows_book_user_date"))
}

func TestForeignKeysRestrictDelete(t *testing.T) {
	db := openMemory(t)

	u := &models.User{Username: "reader", Password: "x", FullName: "Reader"}
	require.NoError(t, db.Create(u).Error)
	b := &models.Book{Title: "1984", Author: "George Orwell", ISBN: "9780451524935", TotalCopies: 1, AvailableCopies: 1, Language: "English"}
	require.NoError(t, db.Create(b).Error)

	now := time.Now().UTC()
	require.NoError(t, db.Omit("Book", "User").Create(&models.Borrow{
		BookID: b.ID, UserID: u.ID, BorrowDate: now, DueDate: now.Add(time.Hour),
	}).Error)

	assert.Error(t, db.Delete(&models.Book{}, b.ID).Error)
	assert.Error(t, db.Delete(&models.User{}, u.ID).Error)
}

func TestCheckConstraintsOnCopies(t *testing.T) {
	db := openMemory(t)

	err := db.Create(&models.Book{Title: "T", Author: "A", ISBN: "9780000000000", TotalCopies: 1, AvailableCopies: -1, Language: "English"}).Error
	assert.Error(t, err)
}

func TestSampleBooksAreValid(t *testing.T) {
	books := SampleBooks()
	require.Len(t, books, 3)
	seen := map[string]bool{}
	for _, b := range books {
		assert.False(t, seen[b.ISBN], "duplicate isbn %s", b.ISBN)
		seen[b.ISBN] = true
		assert.Equal(t, b.TotalCopies, b.AvailableCopies)
		assert.GreaterOrEqual(t, len(b.ISBN), 10)
	}
}
