package dto

import "libraryhub/internal/microservices/http-api/models"

// CreateBookRequest: payload to add a catalog entry. AvailableCopies defaults to TotalCopies.
type CreateBookRequest struct {
	Title           string  `json:"title" binding:"required"`
	Author          string  `json:"author" binding:"required"`
	ISBN            string  `json:"isbn" binding:"required,min=10"`
	Description     *string `json:"description"`
	Category        *string `json:"category"`
	CoverImage      *string `json:"cover_image"`
	TotalCopies     int     `json:"total_copies" binding:"required,min=1"`
	AvailableCopies *int    `json:"available_copies" binding:"omitempty,min=0"`
	PublicationYear *int    `json:"publication_year"`
	Publisher       *string `json:"publisher"`
	PageCount       *int    `json:"page_count" binding:"omitempty,min=1"`
	Language        string  `json:"language"`
}

func (r CreateBookRequest) ToModel() *models.Book {
	available := r.TotalCopies
	if r.AvailableCopies != nil {
		available = *r.AvailableCopies
	}
	return &models.Book{
		Title:           r.Title,
		Author:          r.Author,
		ISBN:            r.ISBN,
		Description:     r.Description,
		Category:        r.Category,
		CoverImage:      r.CoverImage,
		TotalCopies:     r.TotalCopies,
		AvailableCopies: available,
		PublicationYear: r.PublicationYear,
		Publisher:       r.Publisher,
		PageCount:       r.PageCount,
		Language:        r.Language,
	}
}

// UpdateBookRequest: partial update; omitted fields are left as they are.
type UpdateBookRequest struct {
	Title           *string `json:"title"`
	Author          *string `json:"author"`
	ISBN            *string `json:"isbn"`
	Description     *string `json:"description"`
	Category        *string `json:"category"`
	CoverImage      *string `json:"cover_image"`
	TotalCopies     *int    `json:"total_copies"`
	AvailableCopies *int    `json:"available_copies"`
	PublicationYear *int    `json:"publication_year"`
	Publisher       *string `json:"publisher"`
	PageCount       *int    `json:"page_count"`
	Language        *string `json:"language"`
}
