package order

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/bookstore-backend/internal/book"
	"github.com/wichananm65/bookstore-backend/internal/cart"
	"github.com/wichananm65/bookstore-backend/internal/user"
	"github.com/wichananm65/bookstore-backend/internal/validation"
)

// Handler delegates order operations to the order service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.getOrders)
	r.Get("/orders/:id", h.getOrder)
	r.Put("/orders/:id/status", user.AdminOnly, h.updateStatus)
}

type createOrderRequest struct {
	ShippingAddress ShippingAddress `json:"shippingAddress" validate:"required"`
}

type updateStatusRequest struct {
	OrderStatus Status `json:"orderStatus" validate:"required,oneof=processing shipped delivered cancelled"`
}

func (h *Handler) createOrder(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(createOrderRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := validation.Struct(payload); err != nil {
		return validation.Respond(c, err)
	}

	created, err := h.service.Create(c.UserContext(), userID, payload.ShippingAddress)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// getOrders returns all orders belonging to the currently authenticated user.
func (h *Handler) getOrders(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	orders, err := h.service.ListForUser(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	requester, err := user.RequesterFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	o, err := h.service.Get(c.UserContext(), id, requester)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}
	payload := new(updateStatusRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := validation.Struct(payload); err != nil {
		return validation.Respond(c, err)
	}

	updated, err := h.service.UpdateStatus(c.UserContext(), id, payload.OrderStatus)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(updated)
}

func writeError(c *fiber.Ctx, err error) error {
	var stockErr *book.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message":   stockErr.Error(),
			"bookId":    stockErr.BookID,
			"available": stockErr.Available,
		})
	case errors.Is(err, book.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, cart.ErrChanged):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Cart changed during checkout, please review it and try again"})
	case errors.Is(err, ErrEmptyCart):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cart is empty"})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Order not found"})
	case errors.Is(err, ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Not authorized to view this order"})
	case errors.Is(err, ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, book.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Book not found"})
	default:
		return err
	}
}
