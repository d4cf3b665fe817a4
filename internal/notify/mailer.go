package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/bookstore-backend/internal/order"
	"github.com/wichananm65/bookstore-backend/internal/user"
	"github.com/wneessen/go-mail"
)

// Sender delivers built messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends HTML order confirmations to the order owner.
type Mailer struct {
	orders OrderFinder
	users  UserFinder
	sender Sender
	from   string
}

func NewMailer(orders OrderFinder, users UserFinder, sender Sender, from string) *Mailer {
	return &Mailer{orders: orders, users: users, sender: sender, from: from}
}

// NewSMTPClient builds a go-mail client with plain auth and opportunistic TLS.
func NewSMTPClient(host string, port int, username, password string) (*mail.Client, error) {
	return mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, orderID int) error {
	o, err := m.orders.Find(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}
	u, err := m.users.GetByID(ctx, o.UserID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", o.UserID, err)
	}

	body, err := render(o, u)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(u.Email); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(fmt.Sprintf("Order Confirmation - #%d", o.ID))
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation for order %d: %w", o.ID, err)
	}
	log.Info().Int("order_id", o.ID).Str("to", u.Email).Msg("order confirmation sent")
	return nil
}

type confirmationItem struct {
	Title    string
	Author   string
	Price    string
	Quantity int
	Subtotal string
}

type confirmationData struct {
	Name          string
	OrderID       int
	Date          string
	Status        string
	PaymentStatus string
	Items         []confirmationItem
	Total         string
	Address       order.ShippingAddress
}

func render(o order.Order, u user.User) (string, error) {
	data := confirmationData{
		Name:          u.Name,
		OrderID:       o.ID,
		Date:          o.CreatedAt.Format("January 2, 2006"),
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Total:         o.TotalAmount.StringFixed(2),
		Address:       o.ShippingAddress,
	}
	for _, it := range o.Items {
		data.Items = append(data.Items, confirmationItem{
			Title:    it.Title,
			Author:   it.Author,
			Price:    it.Price.StringFixed(2),
			Quantity: it.Quantity,
			Subtotal: it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2),
		})
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render confirmation: %w", err)
	}
	return buf.String(), nil
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; }
  .container { width: 100%; max-width: 600px; margin: 0 auto; }
  .header { background-color: #4b70e2; color: white; padding: 20px; text-align: center; }
  .content { padding: 20px; }
  .footer { background-color: #f4f4f4; padding: 10px; text-align: center; font-size: 12px; }
  table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
  th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
  th { background-color: #f2f2f2; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h1>Order Confirmation</h1></div>
  <div class="content">
    <h2>Thank you for your order!</h2>
    <p>Hello {{.Name}},</p>
    <p>Your order has been received and is being processed. Here's a summary of your order:</p>
    <h3>Order Details</h3>
    <p><strong>Order ID:</strong> {{.OrderID}}</p>
    <p><strong>Order Date:</strong> {{.Date}}</p>
    <p><strong>Order Status:</strong> {{.Status}}</p>
    <p><strong>Payment Status:</strong> {{.PaymentStatus}}</p>
    <h3>Items Ordered</h3>
    <table>
      <thead>
        <tr><th>Book</th><th>Author</th><th>Price</th><th>Quantity</th><th>Subtotal</th></tr>
      </thead>
      <tbody>
      {{- range .Items}}
        <tr><td>{{.Title}}</td><td>{{.Author}}</td><td>${{.Price}}</td><td>{{.Quantity}}</td><td>${{.Subtotal}}</td></tr>
      {{- end}}
      </tbody>
      <tfoot>
        <tr><td colspan="4"><strong>Total</strong></td><td><strong>${{.Total}}</strong></td></tr>
      </tfoot>
    </table>
    <h3>Shipping Address</h3>
    <p>
      {{.Address.Street}}<br>
      {{.Address.City}}, {{.Address.State}} {{.Address.ZipCode}}<br>
      {{.Address.Country}}
    </p>
  </div>
  <div class="footer"><p>Thank you for shopping with us!</p></div>
</div>
</body>
</html>
`))
