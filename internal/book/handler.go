package book

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/bookstore-backend/internal/user"
	"github.com/wichananm65/bookstore-backend/internal/validation"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createBookRequest struct {
	Title       string           `json:"title" validate:"required"`
	Author      string           `json:"author" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       *int             `json:"stock" validate:"required,gte=0"`
	Category    string           `json:"category" validate:"required"`
	Description string           `json:"description" validate:"required"`
	ImageURL    string           `json:"imageURL" validate:"required"`
}

type updateBookRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=1"`
	Author      *string          `json:"author" validate:"omitempty,min=1"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Category    *string          `json:"category" validate:"omitempty,min=1"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"imageURL" validate:"omitempty,min=1"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/books", h.getBooks)
	r.Get("/books/:id", h.getBook)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/books", user.AdminOnly, h.createBook)
	r.Put("/books/:id", user.AdminOnly, h.updateBook)
	r.Delete("/books/:id", user.AdminOnly, h.deleteBook)
	r.Post("/books/:id/reviews", h.createReview)
}

func (h *Handler) getBooks(c *fiber.Ctx) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return validation.Respond(c, err)
	}
	page, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) getBook(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	b, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(b)
}

func (h *Handler) createBook(c *fiber.Ctx) error {
	req := new(createBookRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := validation.Struct(req); err != nil {
		return validation.Respond(c, err)
	}
	if !req.Price.IsPositive() {
		return validation.Respond(c, validation.Field("price", "price must be greater than 0"))
	}

	created, err := h.service.Create(c.UserContext(), Book{
		Title:       req.Title,
		Author:      req.Author,
		Price:       *req.Price,
		Stock:       *req.Stock,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateBook(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	req := new(updateBookRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := validation.Struct(req); err != nil {
		return validation.Respond(c, err)
	}
	if req.Price != nil && !req.Price.IsPositive() {
		return validation.Respond(c, validation.Field("price", "price must be greater than 0"))
	}

	updated, err := h.service.Update(c.UserContext(), id, Patch{
		Title:       req.Title,
		Author:      req.Author,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) deleteBook(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Book removed"})
}

func (h *Handler) createReview(c *fiber.Ctx) error {
	requester, err := user.RequesterFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	req := new(reviewRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := validation.Struct(req); err != nil {
		return validation.Respond(c, err)
	}

	if _, err := h.service.AddReview(c.UserContext(), id, Review{
		UserID:  requester.ID,
		Name:    requester.Email,
		Rating:  req.Rating,
		Comment: req.Comment,
	}); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Review added"})
}

func filterFromQuery(c *fiber.Ctx) (Filter, error) {
	f := Filter{
		Page:        c.QueryInt("page", 1),
		PageSize:    c.QueryInt("pageSize", defaultPageSize),
		SearchQuery: c.Query("searchQuery"),
		Title:       c.Query("title"),
		Category:    c.Query("category"),
	}
	if v := c.Query("minPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Filter{}, validation.Field("minPrice", "minPrice must be a number")
		}
		f.MinPrice = &d
	}
	if v := c.Query("maxPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Filter{}, validation.Field("maxPrice", "maxPrice must be a number")
		}
		f.MaxPrice = &d
	}
	if v := c.Query("minRating"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Filter{}, validation.Field("minRating", "minRating must be a number")
		}
		f.MinRating = &r
	}
	return f, nil
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Book not found"})
	case errors.Is(err, ErrAlreadyReviewed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "You have already reviewed this book"})
	case errors.Is(err, ErrInvalidBook):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "price must be greater than 0 and stock must not be negative"})
	default:
		return err
	}
}
