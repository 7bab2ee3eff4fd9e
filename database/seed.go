package database

import "libraryhub/internal/microservices/http-api/models"

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// SampleBooks is the starter catalog written by `libraryhub seed`.
func SampleBooks() []models.Book {
	return []models.Book{
		{
			Title:           "To Kill a Mockingbird",
			Author:          "Harper Lee",
			ISBN:            "9780061120084",
			Description:     strPtr("A novel about racial injustice and moral growth in the American South."),
			Category:        strPtr("Fiction"),
			TotalCopies:     5,
			AvailableCopies: 5,
			PublicationYear: intPtr(1960),
			Publisher:       strPtr("J. B. Lippincott & Co."),
			PageCount:       intPtr(281),
			Language:        "English",
		},
		{
			Title:           "The Great Gatsby",
			Author:          "F. Scott Fitzgerald",
			ISBN:            "9780743273565",
			Description:     strPtr("A portrait of the Jazz Age and the pursuit of the American dream."),
			Category:        strPtr("Fiction"),
			TotalCopies:     3,
			AvailableCopies: 3,
			PublicationYear: intPtr(1925),
			Publisher:       strPtr("Charles Scribner's Sons"),
			PageCount:       intPtr(180),
			Language:        "English",
		},
		{
			Title:           "1984",
			Author:          "George Orwell",
			ISBN:            "9780451524935",
			Description:     strPtr("A dystopian novel about surveillance and totalitarian rule."),
			Category:        strPtr("Science Fiction"),
			TotalCopies:     4,
			AvailableCopies: 4,
			PublicationYear: intPtr(1949),
			Publisher:       strPtr("Secker & Warburg"),
			PageCount:       intPtr(328),
			Language:        "English",
		},
	}
}
