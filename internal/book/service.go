package book

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrInvalidBook = errors.New("invalid book")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Page is one page of a filtered catalog listing.
type Page struct {
	Books []Book `json:"books"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
	Total int    `json:"total"`
}

func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	f = f.normalized()
	books, total, err := s.repo.List(ctx, f)
	if err != nil {
		return Page{}, err
	}
	pages := (total + f.PageSize - 1) / f.PageSize
	return Page{Books: books, Page: f.Page, Pages: pages, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, id int) (Book, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, b Book) (Book, error) {
	if err := checkInvariants(b); err != nil {
		return Book{}, err
	}
	now := time.Now().UTC()
	b.ID = 0
	b.Rating = 0
	b.NumReviews = 0
	b.Reviews = nil
	b.CreatedAt = now
	b.UpdatedAt = now
	return s.repo.Create(ctx, b)
}

// Update validates only the fields present in p and hands the patch to the
// repository, which writes nothing else.
func (s *Service) Update(ctx context.Context, id int, p Patch) (Book, error) {
	if p.Price != nil && !p.Price.IsPositive() {
		return Book{}, ErrInvalidBook
	}
	if p.Stock != nil && *p.Stock < 0 {
		return Book{}, ErrInvalidBook
	}
	return s.repo.Update(ctx, id, p)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int("book_id", id).Msg("book deleted")
	return nil
}

func (s *Service) AddReview(ctx context.Context, bookID int, r Review) (Book, error) {
	if r.Rating < 1 || r.Rating > 5 {
		return Book{}, ErrInvalidBook
	}
	r.CreatedAt = time.Now().UTC()
	return s.repo.AddReview(ctx, bookID, r)
}

func checkInvariants(b Book) error {
	if !b.Price.IsPositive() || b.Stock < 0 {
		return ErrInvalidBook
	}
	return nil
}
