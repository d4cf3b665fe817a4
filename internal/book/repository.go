package book

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound          = errors.New("book not found")
	ErrAlreadyReviewed   = errors.New("you have already reviewed this book")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
)

type Repository interface {
	List(ctx context.Context, f Filter) ([]Book, int, error)
	FindByID(ctx context.Context, id int) (Book, error)
	ListByIDs(ctx context.Context, ids []int) ([]Book, error)
	Create(ctx context.Context, b Book) (Book, error)
	// Update applies the non-nil fields of p and leaves every other column alone.
	Update(ctx context.Context, id int, p Patch) (Book, error)
	Delete(ctx context.Context, id int) error
	AddReview(ctx context.Context, bookID int, r Review) (Book, error)
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// running without Postgres.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Book
	nextID  int
}

func NewInMemoryRepository(seed []Book) *InMemoryRepository {
	r := &InMemoryRepository{
		storage: make([]Book, 0, len(seed)),
		nextID:  1,
	}

	maxID := 0
	for _, b := range seed {
		r.storage = append(r.storage, b)
		if b.ID > maxID {
			maxID = b.ID
		}
	}

	r.nextID = maxID + 1
	return r
}

func (r *InMemoryRepository) List(ctx context.Context, f Filter) ([]Book, int, error) {
	f = f.normalized()

	r.mu.RLock()
	matched := make([]Book, 0)
	for _, b := range r.storage {
		if f.matches(b) {
			b.Reviews = nil
			matched = append(matched, b)
		}
	}
	r.mu.RUnlock()

	// newest first; ties broken by id so paging is stable
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := f.offset()
	if start >= total {
		return []Book{}, total, nil
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id int) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.storage {
		if b.ID == id {
			return cloneBook(b), nil
		}
	}
	return Book{}, ErrNotFound
}

func (r *InMemoryRepository) ListByIDs(ctx context.Context, ids []int) ([]Book, error) {
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Book, 0, len(ids))
	for _, b := range r.storage {
		if _, ok := want[b.ID]; ok {
			b.Reviews = nil
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, b Book) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == 0 {
		b.ID = r.nextID
		r.nextID++
	}
	r.storage = append(r.storage, cloneBook(b))
	return b, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id int, p Patch) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return Book{}, ErrNotFound
	}
	p.apply(&r.storage[i])
	r.storage[i].UpdatedAt = time.Now().UTC()
	return cloneBook(r.storage[i]), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			r.storage = append(r.storage[:i], r.storage[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) AddReview(ctx context.Context, bookID int, review Review) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		b := &r.storage[i]
		if b.ID != bookID {
			continue
		}
		for _, existing := range b.Reviews {
			if existing.UserID == review.UserID {
				return Book{}, ErrAlreadyReviewed
			}
		}
		if review.CreatedAt.IsZero() {
			review.CreatedAt = time.Now().UTC()
		}
		b.Reviews = append(b.Reviews, review)
		b.NumReviews = len(b.Reviews)
		b.Rating = averageRating(b.Reviews)
		return cloneBook(*b), nil
	}
	return Book{}, ErrNotFound
}

// Reserve decrements stock for every book in quantities, or for none of them
// when any book is missing or short.
func (r *InMemoryRepository) Reserve(ctx context.Context, quantities map[int]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := sortedIDs(quantities)
	idx := make(map[int]int, len(ids))
	for _, id := range ids {
		i := r.indexOf(id)
		if i < 0 {
			return ErrNotFound
		}
		if err := r.storage[i].CheckStock(quantities[id]); err != nil {
			return err
		}
		idx[id] = i
	}
	for _, id := range ids {
		r.storage[idx[id]].Stock -= quantities[id]
	}
	return nil
}

// Release returns previously reserved stock.
func (r *InMemoryRepository) Release(ctx context.Context, quantities map[int]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, q := range quantities {
		if i := r.indexOf(id); i >= 0 {
			r.storage[i].Stock += q
		}
	}
}

// CategoryCounts reports how many books use each category.
func (r *InMemoryRepository) CategoryCounts(ctx context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, b := range r.storage {
		counts[b.Category]++
	}
	return counts, nil
}

func (r *InMemoryRepository) indexOf(id int) int {
	for i := range r.storage {
		if r.storage[i].ID == id {
			return i
		}
	}
	return -1
}

func sortedIDs(quantities map[int]int) []int {
	ids := make([]int, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func cloneBook(b Book) Book {
	if b.Reviews != nil {
		reviews := make([]Review, len(b.Reviews))
		copy(reviews, b.Reviews)
		b.Reviews = reviews
	}
	return b
}
