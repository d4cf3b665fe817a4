package payment

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/bookstore-backend/internal/order"
	"github.com/wichananm65/bookstore-backend/internal/user"
	"github.com/wichananm65/bookstore-backend/internal/validation"
)

const signatureHeader = "Stripe-Signature"

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// RegisterPublicRoutes mounts the webhook, which is authenticated by its
// signature rather than a token.
func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/payments/webhook", h.webhook)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/payments/create-checkout-session", h.createCheckoutSession)
}

type checkoutRequest struct {
	OrderID        int             `json:"orderId" validate:"required,gt=0"`
	BillingDetails *BillingDetails `json:"billingDetails"`
}

func (h *Handler) createCheckoutSession(c *fiber.Ctx) error {
	requester, err := user.RequesterFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := validation.Struct(payload); err != nil {
		return validation.Respond(c, err)
	}
	var billing BillingDetails
	if payload.BillingDetails != nil {
		billing = *payload.BillingDetails
	}

	sess, err := h.service.StartCheckout(c.UserContext(), payload.OrderID, requester, billing)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Order not found"})
		case errors.Is(err, order.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Not authorized"})
		case errors.Is(err, ErrAlreadyPaid):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Order is already paid"})
		case errors.Is(err, ErrPaymentClosed):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Order payment has failed, please place a new order"})
		default:
			return err
		}
	}
	return c.JSON(sess)
}

// webhook hands the body to verification exactly as received.
func (h *Handler) webhook(c *fiber.Ctx) error {
	if err := h.service.HandleWebhook(c.UserContext(), c.Body(), c.Get(signatureHeader)); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: " + err.Error())
	}
	return c.JSON(fiber.Map{"received": true})
}
