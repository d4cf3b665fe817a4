package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wichananm65/bookstore-backend/internal/cart"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrForbidden     = errors.New("not authorized to view this order")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidStatus = errors.New("invalid order status")
)

// Repository defines persistence operations for orders.
type Repository interface {
	// Place stores ord, decrements stock for its items and empties the cart
	// it was built from as one unit. The cart must be unchanged since it was
	// read, else cart.ErrChanged is returned. On any failure nothing is changed.
	Place(ctx context.Context, ord Order, from cart.Cart) (Order, error)
	FindByID(ctx context.Context, id int) (Order, error)
	// FindByUser returns the user's orders, newest first.
	FindByUser(ctx context.Context, userID int) ([]Order, error)
	Save(ctx context.Context, ord Order) (Order, error)
	// MarkPaid moves a pending order to paid. It reports false when the order
	// was not pending.
	MarkPaid(ctx context.Context, id int, paymentID string) (bool, error)
	// MarkFailed moves a pending order to failed.
	MarkFailed(ctx context.Context, id int) (bool, error)
}

// Inventory is the stock side of order placement for the in-memory store.
type Inventory interface {
	Reserve(ctx context.Context, quantities map[int]int) error
	Release(ctx context.Context, quantities map[int]int)
}

// CartEmptier is the cart side of order placement for the in-memory store.
type CartEmptier interface {
	Empty(ctx context.Context, cartID int, seen time.Time) error
}

// InMemoryRepository is used for tests and local scenarios. Place holds its
// lock across reserve and empty so concurrent placements serialize.
type InMemoryRepository struct {
	mu        sync.RWMutex
	orders    []Order
	nextID    int
	inventory Inventory
	carts     CartEmptier
}

func NewInMemoryRepository(inventory Inventory, carts CartEmptier) *InMemoryRepository {
	return &InMemoryRepository{nextID: 1, inventory: inventory, carts: carts}
}

func (r *InMemoryRepository) Place(ctx context.Context, ord Order, from cart.Cart) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	quantities := ord.Quantities()
	if err := r.inventory.Reserve(ctx, quantities); err != nil {
		return Order{}, err
	}
	if err := r.carts.Empty(ctx, from.ID, from.UpdatedAt); err != nil {
		r.inventory.Release(ctx, quantities)
		return Order{}, err
	}

	ord.ID = r.nextID
	r.nextID++
	r.orders = append(r.orders, cloneOrder(ord))
	return ord, nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id int) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.ID == id {
			return cloneOrder(o), nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) FindByUser(ctx context.Context, userID int) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemoryRepository) Save(ctx context.Context, ord Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == ord.ID {
			r.orders[i] = cloneOrder(ord)
			return ord, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) MarkPaid(ctx context.Context, id int, paymentID string) (bool, error) {
	return r.settle(id, PaymentPaid, paymentID)
}

func (r *InMemoryRepository) MarkFailed(ctx context.Context, id int) (bool, error) {
	return r.settle(id, PaymentFailed, "")
}

func (r *InMemoryRepository) settle(id int, to PaymentStatus, paymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		o := &r.orders[i]
		if o.ID != id {
			continue
		}
		if !o.PaymentStatus.CanTransition(to) {
			return false, nil
		}
		o.PaymentStatus = to
		if paymentID != "" {
			o.PaymentID = paymentID
		}
		o.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, ErrNotFound
}

func cloneOrder(o Order) Order {
	items := make([]Item, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
