package models

import "time"

const (
	BorrowStatusActive   = "active"
	BorrowStatusReturned = "returned"
)

// Borrow is a ledger entry. It starts active and moves to returned exactly once.
type Borrow struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	BookID     int64      `gorm:"not null;index;uniqueIndex:idx_borrows_book_user_date" json:"book_id"`
	UserID     int64      `gorm:"not null;index;uniqueIndex:idx_borrows_book_user_date" json:"user_id"`
	BorrowDate time.Time  `gorm:"not null;uniqueIndex:idx_borrows_book_user_date" json:"borrow_date"`
	DueDate    time.Time  `gorm:"not null" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	IsReturned bool       `gorm:"default:false;not null;index" json:"is_returned"`

	// Associations
	Book *Book `gorm:"foreignKey:BookID;constraint:OnDelete:RESTRICT;" json:"book,omitempty"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT;" json:"user,omitempty"`
}

func (Borrow) TableName() string {
	return "borrows"
}

// Status is derived from IsReturned; there is no stored overdue state.
func (b *Borrow) Status() string {
	if b.IsReturned {
		return BorrowStatusReturned
	}
	return BorrowStatusActive
}

// IsOverdue reports whether an active borrow is past its due date at now.
func (b *Borrow) IsOverdue(now time.Time) bool {
	return !b.IsReturned && now.After(b.DueDate)
}
