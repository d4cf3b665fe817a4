package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/bookstore-backend/internal/order"
)

func makeAppWithPaymentHandler(pHandler *Handler) *fiber.App {
	app := fiber.New()
	pHandler.RegisterPublicRoutes(app)
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id, "email": "ann@example.com"}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	pHandler.RegisterProtectedRoutes(app)
	return app
}

func TestCheckoutSessionRoute(t *testing.T) {
	orders, o := placeOrder(t)
	provider := newFakeProvider()
	app := makeAppWithPaymentHandler(NewHandler(NewService(orders, provider, nil, nil)))

	body := `{"orderId":` + strconv.Itoa(o.ID) + `}`
	req := httptest.NewRequest("POST", "/payments/create-checkout-session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	req = httptest.NewRequest("POST", "/payments/create-checkout-session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	res, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var sess Session
	b, _ := io.ReadAll(res.Body)
	require.NoError(t, json.Unmarshal(b, &sess))
	assert.NotEmpty(t, sess.URL)
	assert.Equal(t, "ann@example.com", provider.requests[0].CustomerEmail)

	cases := []struct {
		name   string
		userID string
		body   string
		status int
	}{
		{"missing order id", "42", `{}`, fiber.StatusBadRequest},
		{"bad billing email", "42", `{"orderId":1,"billingDetails":{"email":"nope"}}`, fiber.StatusBadRequest},
		{"unknown order", "42", `{"orderId":999}`, fiber.StatusNotFound},
		{"someone else's order", "43", body, fiber.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/payments/create-checkout-session", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", tc.userID)
			res, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.StatusCode)
		})
	}

	_, err = orders.MarkFailed(context.Background(), o.ID)
	require.NoError(t, err)
	req = httptest.NewRequest("POST", "/payments/create-checkout-session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	b, _ = io.ReadAll(res.Body)
	assert.Contains(t, string(b), "Order payment has failed")
}

func TestWebhookRoute(t *testing.T) {
	orders, o := placeOrder(t)
	notifier := &mockNotifier{}
	notifier.On("SendOrderConfirmation", mock.Anything, o.ID).Return(nil).Once()
	svc := NewService(orders, newFakeProvider(), nil, notifier)
	app := makeAppWithPaymentHandler(NewHandler(svc))

	payload, sig := signedEvent(t, "evt_1", EventCheckoutCompleted, o.ID, "pi_123")

	req := httptest.NewRequest("POST", "/payments/webhook", bytes.NewReader(append(payload, ' ')))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", sig)
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	req = httptest.NewRequest("POST", "/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", sig)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	svc.Wait()

	got, err := orders.Find(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, got.PaymentStatus)
	notifier.AssertExpectations(t)
}
