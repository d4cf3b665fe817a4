package book

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Book is a catalog entry. Price is a decimal so cart and order totals stay exact.
type Book struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageURL"`
	Rating      float64         `json:"rating"`
	NumReviews  int             `json:"numReviews"`
	Reviews     []Review        `json:"reviews,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type Review struct {
	UserID    int       `json:"userId"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// InsufficientStockError reports a requested quantity the catalog cannot cover.
type InsufficientStockError struct {
	BookID    int
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s does not have enough stock. Available: %d", e.Title, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// CheckStock returns ErrInvalidQuantity for a quantity below one and an
// *InsufficientStockError when quantity exceeds the book's stock.
func (b Book) CheckStock(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity > b.Stock {
		return &InsufficientStockError{BookID: b.ID, Title: b.Title, Available: b.Stock, Requested: quantity}
	}
	return nil
}

// CheckAddition reports whether quantity more copies fit next to the held
// copies already claimed. It compares against the remaining stock, so the
// sum of held and quantity is never formed.
func (b Book) CheckAddition(held, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity > b.Stock-held {
		return &InsufficientStockError{BookID: b.ID, Title: b.Title, Available: b.Stock, Requested: quantity}
	}
	return nil
}

// Patch carries the fields of a partial update. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Author      *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	Description *string
	ImageURL    *string
}

func (p Patch) apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Price != nil {
		b.Price = *p.Price
	}
	if p.Stock != nil {
		b.Stock = *p.Stock
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.ImageURL != nil {
		b.ImageURL = *p.ImageURL
	}
}

// Filter narrows a catalog listing. Zero values mean "no constraint".
type Filter struct {
	Page        int
	PageSize    int
	SearchQuery string
	Title       string
	Category    string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	MinRating   *float64
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	return f
}

func (f Filter) offset() int {
	return (f.Page - 1) * f.PageSize
}

func (f Filter) matches(b Book) bool {
	if q := strings.ToLower(f.SearchQuery); q != "" {
		if !strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.Author), q) &&
			!strings.Contains(strings.ToLower(b.Description), q) {
			return false
		}
	}
	if f.Title != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(f.Title)) {
		return false
	}
	if f.Category != "" && b.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && b.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && b.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.MinRating != nil && b.Rating < *f.MinRating {
		return false
	}
	return true
}

func averageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}
