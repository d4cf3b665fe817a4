package payment

import (
	"context"
	"errors"
)

var (
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrPaymentClosed    = errors.New("order payment is no longer pending")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Provider event types the service reacts to.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventCheckoutAsyncFailed   = "checkout.session.async_payment_failed"
	EventCheckoutSessionExpire = "checkout.session.expired"
)

type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	// UnitAmount is in minor currency units.
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	OrderID       int
	Items         []LineItem
	CustomerEmail string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is a verified provider notification reduced to what the service needs.
type Event struct {
	ID        string
	Type      string
	OrderID   int
	PaymentID string
}

// Provider is the external hosted-checkout service.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
	// VerifyWebhook checks signature against the raw payload bytes and returns
	// an error wrapping ErrInvalidSignature when they do not match.
	VerifyWebhook(payload []byte, signature string) (Event, error)
}
