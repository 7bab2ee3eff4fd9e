package dto

import (
	"time"

	"libraryhub/internal/microservices/http-api/models"
)

// BorrowRequest: payload to borrow a book
type BorrowRequest struct {
	BookID int64 `json:"book_id" binding:"required,min=1"`
}

// BorrowResponse: a ledger entry. Status and IsOverdue are derived at read time.
type BorrowResponse struct {
	ID         int64         `json:"id"`
	BookID     int64         `json:"book_id"`
	UserID     int64         `json:"user_id"`
	BorrowDate time.Time     `json:"borrow_date"`
	DueDate    time.Time     `json:"due_date"`
	ReturnDate *time.Time    `json:"return_date"`
	IsReturned bool          `json:"is_returned"`
	Status     string        `json:"status"`
	IsOverdue  bool          `json:"is_overdue"`
	Book       *models.Book  `json:"book,omitempty"`
	User       *UserResponse `json:"user,omitempty"`
}

func NewBorrowResponse(b *models.Borrow, now time.Time) BorrowResponse {
	resp := BorrowResponse{
		ID:         b.ID,
		BookID:     b.BookID,
		UserID:     b.UserID,
		BorrowDate: b.BorrowDate,
		DueDate:    b.DueDate,
		ReturnDate: b.ReturnDate,
		IsReturned: b.IsReturned,
		Status:     b.Status(),
		IsOverdue:  b.IsOverdue(now),
		Book:       b.Book,
	}
	if b.User != nil {
		u := NewUserResponse(b.User)
		resp.User = &u
	}
	return resp
}

func NewBorrowListResponse(list []models.Borrow, now time.Time) []BorrowResponse {
	out := make([]BorrowResponse, 0, len(list))
	for i := range list {
		out = append(out, NewBorrowResponse(&list[i], now))
	}
	return out
}
