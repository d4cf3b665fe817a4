package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProvider opens Stripe Checkout sessions and verifies Stripe webhooks.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	currency      string
	clientURL     string
}

func NewStripeProvider(secretKey, webhookSecret, currency, clientURL string) *StripeProvider {
	return &StripeProvider{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		currency:      currency,
		clientURL:     clientURL,
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:               stripe.String(fmt.Sprintf("%s/order-success?order_id=%d", p.clientURL, req.OrderID)),
		CancelURL:                stripe.String(fmt.Sprintf("%s/order/%d", p.clientURL, req.OrderID)),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"US", "CA"}),
		},
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, it := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(it.Name),
		}
		if it.Description != "" {
			product.Description = stripe.String(it.Description)
		}
		if it.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{it.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(it.UnitAmount),
			},
			Quantity: stripe.Int64(it.Quantity),
		})
	}
	params.AddMetadata("orderId", strconv.Itoa(req.OrderID))

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Session{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncFailed, EventCheckoutSessionExpire:
	default:
		return out, nil
	}
	if ev.Data == nil {
		return out, fmt.Errorf("event %s has no data", ev.ID)
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return out, fmt.Errorf("decode checkout session: %w", err)
	}
	id, err := strconv.Atoi(s.Metadata["orderId"])
	if err != nil {
		return out, fmt.Errorf("session %s: bad orderId metadata %q", s.ID, s.Metadata["orderId"])
	}
	out.OrderID = id
	if s.PaymentIntent != nil {
		out.PaymentID = s.PaymentIntent.ID
	}
	return out, nil
}
