package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wichananm65/bookstore-backend/internal/book"
	"github.com/wichananm65/bookstore-backend/internal/cart"
	"github.com/wichananm65/bookstore-backend/internal/user"
)

// CartSource hands out the cart being checked out.
type CartSource interface {
	ForCheckout(ctx context.Context, userID int) (cart.Cart, error)
}

// Catalog resolves the books referenced by a cart.
type Catalog interface {
	ListByIDs(ctx context.Context, ids []int) ([]book.Book, error)
}

// Service provides business logic for orders.
type Service struct {
	repo    Repository
	carts   CartSource
	catalog Catalog
}

func NewService(r Repository, carts CartSource, catalog Catalog) *Service {
	return &Service{repo: r, carts: carts, catalog: catalog}
}

// Create snapshots the user's cart into a new order. Every line is checked
// against current stock before anything is written; the repository then
// places the order, decrements stock and empties the cart atomically.
func (s *Service) Create(ctx context.Context, userID int, addr ShippingAddress) (Order, error) {
	c, err := s.carts.ForCheckout(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return Order{}, ErrEmptyCart
		}
		return Order{}, err
	}
	if len(c.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	books, err := s.catalog.ListByIDs(ctx, c.BookIDs())
	if err != nil {
		return Order{}, err
	}
	byID := make(map[int]book.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	items := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		b, ok := byID[it.BookID]
		if !ok {
			return Order{}, fmt.Errorf("book %d in cart: %w", it.BookID, book.ErrNotFound)
		}
		if err := b.CheckStock(it.Quantity); err != nil {
			return Order{}, err
		}
		items = append(items, Item{
			BookID:   it.BookID,
			Title:    b.Title,
			Author:   b.Author,
			ImageURL: b.ImageURL,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
	}

	now := time.Now().UTC()
	placed, err := s.repo.Place(ctx, Order{
		UserID:          userID,
		Items:           items,
		TotalAmount:     c.TotalAmount,
		ShippingAddress: addr,
		PaymentStatus:   PaymentPending,
		Status:          StatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, c)
	if err != nil {
		return Order{}, err
	}

	log.Info().Int("order_id", placed.ID).Int("user_id", userID).Str("total", placed.TotalAmount.String()).Msg("order placed")
	return placed, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int) ([]Order, error) {
	return s.repo.FindByUser(ctx, userID)
}

// Get returns the order if the requester owns it or is an admin.
func (s *Service) Get(ctx context.Context, id int, requester user.Requester) (Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != requester.ID && !requester.IsAdmin() {
		return Order{}, ErrForbidden
	}
	return o, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int, to Status) (Order, error) {
	if !to.Valid() {
		return Order{}, ErrInvalidStatus
	}
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !o.Status.CanTransition(to) {
		return Order{}, fmt.Errorf("%s to %s: %w", o.Status, to, ErrInvalidStatus)
	}

	from := o.Status
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	saved, err := s.repo.Save(ctx, o)
	if err != nil {
		return Order{}, err
	}
	log.Info().Int("order_id", id).Str("from", string(from)).Str("to", string(to)).Msg("order status updated")
	return saved, nil
}

// MarkPaid records a confirmed payment. It reports false when the order was
// already settled, which makes replays harmless.
func (s *Service) MarkPaid(ctx context.Context, id int, paymentID string) (bool, error) {
	return s.repo.MarkPaid(ctx, id, paymentID)
}

func (s *Service) MarkFailed(ctx context.Context, id int) (bool, error) {
	return s.repo.MarkFailed(ctx, id)
}

// Find looks an order up without an ownership check.
func (s *Service) Find(ctx context.Context, id int) (Order, error) {
	return s.repo.FindByID(ctx, id)
}
