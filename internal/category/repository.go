package category

import (
	"context"
	"sort"
)

// Repository provides access to the categories in use by the catalog.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
}

// Counter reports how many books use each category.
type Counter interface {
	CategoryCounts(ctx context.Context) (map[string]int, error)
}

// InMemoryRepository derives categories from an in-memory catalog.
type InMemoryRepository struct {
	books Counter
}

func NewInMemoryRepository(books Counter) *InMemoryRepository {
	return &InMemoryRepository{books: books}
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Category, error) {
	counts, err := r.books.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(counts))
	for name, n := range counts {
		if name == "" {
			continue
		}
		out = append(out, Category{Name: name, BookCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
