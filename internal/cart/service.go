package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/bookstore-backend/internal/book"
)

// Catalog is the part of the book store the cart reads from.
type Catalog interface {
	FindByID(ctx context.Context, id int) (book.Book, error)
	ListByIDs(ctx context.Context, ids []int) ([]book.Book, error)
}

// Service orchestrates cart operations.
type Service struct {
	repo    Repository
	catalog Catalog
}

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID int) (View, error) {
	c, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, c)
}

// AddItem adds quantity copies of a book. The resulting line quantity, not
// just the increment, must fit in the book's current stock.
func (s *Service) AddItem(ctx context.Context, userID, bookID, quantity int) (View, error) {
	b, err := s.catalog.FindByID(ctx, bookID)
	if err != nil {
		return View{}, err
	}
	c, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}

	if i := c.indexOfBook(bookID); i >= 0 {
		if err := b.CheckAddition(c.Items[i].Quantity, quantity); err != nil {
			return View{}, err
		}
		c.Items[i].Quantity += quantity
	} else {
		if err := b.CheckStock(quantity); err != nil {
			return View{}, err
		}
		c.Items = append(c.Items, Item{
			ID:       uuid.NewString(),
			BookID:   bookID,
			Quantity: quantity,
			Price:    b.Price,
		})
	}
	return s.persist(ctx, c)
}

// UpdateItem sets the quantity of one line, checked against the book's
// current stock.
func (s *Service) UpdateItem(ctx context.Context, userID int, itemID string, quantity int) (View, error) {
	c, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return View{}, err
	}
	i := c.indexOfItem(itemID)
	if i < 0 {
		return View{}, ErrItemNotFound
	}
	b, err := s.catalog.FindByID(ctx, c.Items[i].BookID)
	if err != nil {
		return View{}, err
	}
	if err := b.CheckStock(quantity); err != nil {
		return View{}, err
	}
	c.Items[i].Quantity = quantity
	return s.persist(ctx, c)
}

func (s *Service) RemoveItem(ctx context.Context, userID int, itemID string) (View, error) {
	c, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return View{}, err
	}
	i := c.indexOfItem(itemID)
	if i < 0 {
		return View{}, ErrItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return s.persist(ctx, c)
}

// Clear empties the cart. It fails only when the user has no cart yet.
func (s *Service) Clear(ctx context.Context, userID int) (View, error) {
	c, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return View{}, err
	}
	c.Items = []Item{}
	return s.persist(ctx, c)
}

// Total never fails for a user without a cart; it reports zeros instead.
func (s *Service) Total(ctx context.Context, userID int) (Summary, error) {
	c, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Summary{ItemCount: 0, TotalAmount: decimal.Zero}, nil
		}
		return Summary{}, err
	}
	return Summary{ItemCount: c.ItemCount(), TotalAmount: c.TotalAmount}, nil
}

// ForCheckout returns the raw cart for order placement.
func (s *Service) ForCheckout(ctx context.Context, userID int) (Cart, error) {
	return s.repo.FindByUser(ctx, userID)
}

func (s *Service) getOrCreate(ctx context.Context, userID int) (Cart, error) {
	c, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Cart{}, err
	}
	log.Debug().Int("user_id", userID).Msg("creating cart")
	return s.repo.Create(ctx, userID)
}

func (s *Service) persist(ctx context.Context, c Cart) (View, error) {
	c.Recalculate()
	c.UpdatedAt = time.Now().UTC()
	saved, err := s.repo.Save(ctx, c)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, saved)
}

func (s *Service) view(ctx context.Context, c Cart) (View, error) {
	v := View{
		ID:          c.ID,
		UserID:      c.UserID,
		Items:       make([]ItemView, 0, len(c.Items)),
		TotalAmount: c.TotalAmount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if len(c.Items) == 0 {
		return v, nil
	}

	books, err := s.catalog.ListByIDs(ctx, c.BookIDs())
	if err != nil {
		return View{}, err
	}
	byID := make(map[int]book.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	for _, it := range c.Items {
		iv := ItemView{Item: it}
		if b, ok := byID[it.BookID]; ok {
			iv.Book = &BookSummary{ID: b.ID, Title: b.Title, Author: b.Author, ImageURL: b.ImageURL, Price: b.Price}
		}
		v.Items = append(v.Items, iv)
	}
	return v, nil
}
