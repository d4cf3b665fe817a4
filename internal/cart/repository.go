package cart

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
	ErrChanged      = errors.New("cart changed during checkout")
)

// Repository stores at most one cart per user.
type Repository interface {
	FindByUser(ctx context.Context, userID int) (Cart, error)
	// Create returns the user's cart, inserting an empty one if none exists.
	Create(ctx context.Context, userID int) (Cart, error)
	Save(ctx context.Context, c Cart) (Cart, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu     sync.RWMutex
	carts  map[int]Cart // keyed by user id
	nextID int
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{carts: make(map[int]Cart), nextID: 1}
}

func (r *InMemoryRepository) FindByUser(ctx context.Context, userID int) (Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[userID]
	if !ok {
		return Cart{}, ErrNotFound
	}
	return cloneCart(c), nil
}

func (r *InMemoryRepository) Create(ctx context.Context, userID int) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[userID]; ok {
		return cloneCart(c), nil
	}
	now := time.Now().UTC()
	c := Cart{ID: r.nextID, UserID: userID, Items: []Item{}, CreatedAt: now, UpdatedAt: now}
	r.nextID++
	r.carts[userID] = c
	return cloneCart(c), nil
}

func (r *InMemoryRepository) Save(ctx context.Context, c Cart) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.carts[c.UserID]
	if !ok || existing.ID != c.ID {
		return Cart{}, ErrNotFound
	}
	r.carts[c.UserID] = cloneCart(c)
	return c, nil
}

// Empty removes every item from the cart with the given id. It returns
// ErrChanged when the cart was written after seen.
func (r *InMemoryRepository) Empty(ctx context.Context, cartID int, seen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, c := range r.carts {
		if c.ID == cartID {
			if !c.UpdatedAt.Equal(seen) {
				return ErrChanged
			}
			c.Items = []Item{}
			c.Recalculate()
			c.UpdatedAt = time.Now().UTC()
			r.carts[userID] = c
			return nil
		}
	}
	return ErrNotFound
}

func cloneCart(c Cart) Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}
