package notify

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/wichananm65/bookstore-backend/internal/order"
	"github.com/wichananm65/bookstore-backend/internal/user"
)

// Notifier tells a customer their order went through.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, orderID int) error
}

type OrderFinder interface {
	Find(ctx context.Context, id int) (order.Order, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id int) (user.User, error)
}

// LogNotifier only logs. It is used when no SMTP server is configured.
type LogNotifier struct{}

func (LogNotifier) SendOrderConfirmation(ctx context.Context, orderID int) error {
	log.Info().Int("order_id", orderID).Msg("order confirmation (smtp not configured)")
	return nil
}
