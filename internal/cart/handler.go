package cart

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/wichananm65/bookstore-backend/internal/book"
	"github.com/wichananm65/bookstore-backend/internal/user"
	"github.com/wichananm65/bookstore-backend/internal/validation"
)

// Handler delegates cart operations to the cart service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/add", h.addItem)
	r.Put("/cart/update", h.updateItem)
	r.Delete("/cart/item/:itemId", h.removeItem)
	r.Delete("/cart/clear", h.clearCart)
	r.Get("/cart/total", h.getTotal)
}

type addItemRequest struct {
	BookID   int `json:"bookId" validate:"required,gt=0"`
	Quantity int `json:"quantity" validate:"required,min=1,max=10000"`
}

type updateItemRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=10000"`
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	cart, err := h.service.Get(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(cart)
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(addItemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := validation.Struct(payload); err != nil {
		return validation.Respond(c, err)
	}

	cart, err := h.service.AddItem(c.UserContext(), userID, payload.BookID, payload.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cart)
}

func (h *Handler) updateItem(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(updateItemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := validation.Struct(payload); err != nil {
		return validation.Respond(c, err)
	}

	cart, err := h.service.UpdateItem(c.UserContext(), userID, payload.ItemID, payload.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(cart)
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	cart, err := h.service.RemoveItem(c.UserContext(), userID, c.Params("itemId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(cart)
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	cart, err := h.service.Clear(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cart cleared successfully", "cart": cart})
}

func (h *Handler) getTotal(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	total, err := h.service.Total(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(total)
}

func writeError(c *fiber.Ctx, err error) error {
	var stockErr *book.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		log.Debug().Int("book_id", stockErr.BookID).Int("requested", stockErr.Requested).Msg("cart quantity exceeds stock")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message":   stockErr.Error(),
			"available": stockErr.Available,
		})
	case errors.Is(err, book.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, book.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Book not found"})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Cart not found"})
	case errors.Is(err, ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Item not found in cart"})
	default:
		return err
	}
}
