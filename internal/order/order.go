package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// statusTransitions lists the allowed targets per state. Admins may currently
// move an order between any two states, delivered and cancelled included.
var statusTransitions = map[Status][]Status{
	StatusProcessing: allStatuses,
	StatusShipped:    allStatuses,
	StatusDelivered:  allStatuses,
	StatusCancelled:  allStatuses,
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range statusTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentStatus tracks the external payment. It only ever leaves pending.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (p PaymentStatus) CanTransition(to PaymentStatus) bool {
	return p == PaymentPending && (to == PaymentPaid || to == PaymentFailed)
}

type ShippingAddress struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// Item is a line copied from the cart at checkout. Price is the cart's
// snapshot price, independent of later catalog changes.
type Item struct {
	BookID   int             `json:"bookId"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	ImageURL string          `json:"imageURL,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Order represents a purchase made by a user.
type Order struct {
	ID              int             `json:"id"`
	UserID          int             `json:"userId"`
	Items           []Item          `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentID       string          `json:"paymentId,omitempty"`
	Status          Status          `json:"orderStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Quantities sums the ordered quantity per book.
func (o Order) Quantities() map[int]int {
	out := make(map[int]int, len(o.Items))
	for _, it := range o.Items {
		out[it.BookID] += it.Quantity
	}
	return out
}
