package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/bookstore-backend/internal/notify"
	"github.com/wichananm65/bookstore-backend/internal/order"
	"github.com/wichananm65/bookstore-backend/internal/user"
)

const defaultNotifyTimeout = 30 * time.Second

// Orders is the order side the payment flow reads and settles.
type Orders interface {
	Find(ctx context.Context, id int) (order.Order, error)
	MarkPaid(ctx context.Context, id int, paymentID string) (bool, error)
	MarkFailed(ctx context.Context, id int) (bool, error)
}

type BillingDetails struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

// Service bridges orders and the payment provider.
type Service struct {
	orders        Orders
	provider      Provider
	events        EventLog
	notifier      notify.Notifier
	notifyTimeout time.Duration

	wg sync.WaitGroup
}

func NewService(orders Orders, provider Provider, events EventLog, notifier notify.Notifier) *Service {
	if events == nil {
		events = NoopEventLog{}
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Service{
		orders:        orders,
		provider:      provider,
		events:        events,
		notifier:      notifier,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// StartCheckout opens a hosted payment session for a pending order owned by
// the requester. Nothing is written locally.
func (s *Service) StartCheckout(ctx context.Context, orderID int, requester user.Requester, billing BillingDetails) (Session, error) {
	o, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return Session{}, err
	}
	if o.UserID != requester.ID {
		return Session{}, order.ErrForbidden
	}
	switch o.PaymentStatus {
	case order.PaymentPending:
	case order.PaymentPaid:
		return Session{}, ErrAlreadyPaid
	default:
		return Session{}, ErrPaymentClosed
	}

	req := SessionRequest{OrderID: o.ID, CustomerEmail: billing.Email}
	if req.CustomerEmail == "" {
		req.CustomerEmail = requester.Email
	}
	for _, it := range o.Items {
		req.Items = append(req.Items, LineItem{
			Name:        it.Title,
			Description: "Author: " + it.Author,
			ImageURL:    it.ImageURL,
			UnitAmount:  minorUnits(it.Price),
			Quantity:    int64(it.Quantity),
		})
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return Session{}, err
	}
	log.Info().Int("order_id", o.ID).Str("session_id", sess.ID).Msg("checkout session created")
	return sess, nil
}

// HandleWebhook verifies and applies a provider notification. Only a bad
// signature is reported to the caller; every later failure is logged so the
// provider sees the delivery acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.VerifyWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			log.Warn().Err(err).Msg("webhook signature verification failed")
			return err
		}
		log.Error().Err(err).Str("event_id", ev.ID).Str("type", ev.Type).Msg("webhook event could not be decoded")
		return nil
	}

	seen, err := s.events.Seen(ctx, ev.ID)
	if err != nil {
		log.Warn().Err(err).Str("event_id", ev.ID).Msg("event log unavailable")
	} else if seen {
		log.Debug().Str("event_id", ev.ID).Msg("duplicate webhook event skipped")
		return nil
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		s.markPaid(ctx, ev)
	case EventCheckoutAsyncFailed:
		s.markFailed(ctx, ev)
	case EventCheckoutSessionExpire:
		// an abandoned session leaves the order pending so a new one can be opened
		log.Info().Str("event_id", ev.ID).Int("order_id", ev.OrderID).Msg("checkout session expired")
	default:
		log.Debug().Str("event_id", ev.ID).Str("type", ev.Type).Msg("webhook event ignored")
	}
	return nil
}

func (s *Service) markPaid(ctx context.Context, ev Event) {
	logger := log.With().Str("event_id", ev.ID).Int("order_id", ev.OrderID).Logger()

	changed, err := s.orders.MarkPaid(ctx, ev.OrderID, ev.PaymentID)
	switch {
	case errors.Is(err, order.ErrNotFound):
		logger.Warn().Msg("paid event for unknown order")
		return
	case err != nil:
		logger.Error().Err(err).Msg("order update error")
		return
	case !changed:
		logger.Info().Msg("order already settled")
		return
	}
	logger.Info().Str("payment_id", ev.PaymentID).Msg("order paid")
	s.notifyAsync(ev.OrderID)
}

func (s *Service) markFailed(ctx context.Context, ev Event) {
	logger := log.With().Str("event_id", ev.ID).Int("order_id", ev.OrderID).Logger()

	changed, err := s.orders.MarkFailed(ctx, ev.OrderID)
	if err != nil {
		logger.Error().Err(err).Msg("order update error")
		return
	}
	if changed {
		logger.Info().Str("type", ev.Type).Msg("order payment failed")
	}
}

func (s *Service) notifyAsync(orderID int) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.SendOrderConfirmation(ctx, orderID); err != nil {
			log.Error().Err(err).Int("order_id", orderID).Msg("order confirmation failed")
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func minorUnits(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}
