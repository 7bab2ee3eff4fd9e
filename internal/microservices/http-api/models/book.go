package models

import "time"

// Book is a catalog entry. AvailableCopies is a denormalized counter kept equal to
// TotalCopies minus the number of active borrows referencing the book.
type Book struct {
	ID              int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Title           string  `json:"title" gorm:"not null;index"`
	Author          string  `json:"author" gorm:"not null"`
	ISBN            string  `json:"isbn" gorm:"column:isbn;uniqueIndex;not null;size:32"`
	Description     *string `json:"description,omitempty" gorm:"type:text"`
	Category        *string `json:"category,omitempty"`
	CoverImage      *string `json:"cover_image,omitempty"`
	TotalCopies     int     `json:"total_copies" gorm:"not null;check:chk_books_total_copies,total_copies >= 1"`
	AvailableCopies int     `json:"available_copies" gorm:"not null;check:chk_books_available_copies,available_copies >= 0"`
	PublicationYear *int    `json:"publication_year,omitempty"`
	Publisher       *string `json:"publisher,omitempty"`
	PageCount       *int    `json:"page_count,omitempty"`
	Language        string  `json:"language" gorm:"default:'English'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Book) TableName() string {
	return "books"
}

// IsAvailable reports whether at least one copy can be borrowed.
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}
