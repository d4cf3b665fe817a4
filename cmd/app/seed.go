package main

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/bookstore-backend/internal/book"
)

const (
	devAdminEmail    = "admin@bookstore.local"
	devAdminPassword = "admin123"
)

func seedBooks() []book.Book {
	now := time.Now().UTC()
	books := []book.Book{
		{Title: "Dune", Author: "Frank Herbert", Category: "Sci-Fi", Price: decimal.RequireFromString("10.00"), Stock: 12,
			Description: "A desert planet, a noble family and the spice that everyone wants.",
			ImageURL:    "https://covers.openlibrary.org/b/id/11481354-L.jpg"},
		{Title: "Emma", Author: "Jane Austen", Category: "Romance", Price: decimal.RequireFromString("7.25"), Stock: 4,
			Description: "A young matchmaker misreads nearly everyone around her.",
			ImageURL:    "https://covers.openlibrary.org/b/id/9278292-L.jpg"},
		{Title: "The Hound of the Baskervilles", Author: "Arthur Conan Doyle", Category: "Mystery", Price: decimal.RequireFromString("8.99"), Stock: 7,
			Description: "Holmes and Watson on the moor.",
			ImageURL:    "https://covers.openlibrary.org/b/id/8231856-L.jpg"},
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", Category: "Fantasy", Price: decimal.RequireFromString("14.50"), Stock: 0,
			Description: "There and back again.",
			ImageURL:    "https://covers.openlibrary.org/b/id/6979861-L.jpg"},
		{Title: "Atomic Habits", Author: "James Clear", Category: "Self-help", Price: decimal.RequireFromString("16.20"), Stock: 25,
			Description: "Small changes, remarkable results."},
	}
	for i := range books {
		books[i].ID = i + 1
		books[i].CreatedAt = now.Add(-time.Duration(len(books)-i) * time.Minute)
		books[i].UpdatedAt = books[i].CreatedAt
	}
	return books
}
