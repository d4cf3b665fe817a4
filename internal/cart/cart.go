package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one cart line. Price is captured when the book is first added and
// is never re-derived from the catalog.
type Item struct {
	ID       string          `json:"id"`
	BookID   int             `json:"bookId"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Cart is the single active cart of a user.
type Cart struct {
	ID          int             `json:"id"`
	UserID      int             `json:"userId"`
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Recalculate sets TotalAmount to the sum of price*quantity over the items.
// Every mutation calls it before the cart is persisted.
func (c *Cart) Recalculate() {
	if c.Items == nil {
		c.Items = []Item{}
	}
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.TotalAmount = total
}

// ItemCount is the sum of quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// BookIDs returns the distinct book ids referenced by the cart.
func (c Cart) BookIDs() []int {
	seen := make(map[int]struct{}, len(c.Items))
	ids := make([]int, 0, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.BookID]; ok {
			continue
		}
		seen[it.BookID] = struct{}{}
		ids = append(ids, it.BookID)
	}
	return ids
}

func (c Cart) indexOfItem(itemID string) int {
	for i, it := range c.Items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

func (c Cart) indexOfBook(bookID int) int {
	for i, it := range c.Items {
		if it.BookID == bookID {
			return i
		}
	}
	return -1
}

// Summary is the response of the cart total operation.
type Summary struct {
	ItemCount   int             `json:"itemCount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// BookSummary is the catalog data shown next to a cart line.
type BookSummary struct {
	ID       int             `json:"id"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	ImageURL string          `json:"imageURL"`
	Price    decimal.Decimal `json:"price"`
}

type ItemView struct {
	Item
	Book *BookSummary `json:"book,omitempty"`
}

// View is a cart with book details resolved for display.
type View struct {
	ID          int             `json:"id"`
	UserID      int             `json:"userId"`
	Items       []ItemView      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
