// Package notify sends order confirmation e-mails.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/shop/commerce"
)

// Notifier is told about every order that was placed successfully.
type Notifier interface {
	OrderPlaced(ctx context.Context, r commerce.Receipt) error
}

// Nop discards notifications.
type Nop struct{}

// OrderPlaced does nothing.
func (Nop) OrderPlaced(context.Context, commerce.Receipt) error { return nil }

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid mails the receipt to the address given at checkout.
type SendGrid struct {
	client mailClient
	from   *mail.Email
}

// NewSendGrid builds a notifier from the API key and sender identity.
func NewSendGrid(apiKey, fromEmail, fromName string) *SendGrid {
	return &SendGrid{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

// OrderPlaced sends the confirmation. A 4xx/5xx answer is an error.
func (s *SendGrid) OrderPlaced(ctx context.Context, r commerce.Receipt) error {
	if strings.TrimSpace(r.Order.Email) == "" {
		return fmt.Errorf("notify: empty recipient")
	}
	subject := "Order " + r.Order.ID
	body := ReceiptText(r)
	msg := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", r.Order.Email), body, "<pre>"+html.EscapeString(body)+"</pre>")

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: sendgrid status %d", resp.StatusCode)
	}
	logger.Info(ctx, "mail", "order.mailed",
		slog.String("order_id", r.Order.ID),
		slog.Int("status_code", resp.StatusCode),
	)
	return nil
}

// ReceiptText renders the receipt as plain text.
func ReceiptText(r commerce.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order!\n\nOrder number: %s\n", r.Order.ID)
	for _, li := range r.Items {
		fmt.Fprintf(&b, "  - %s: %s x %s = %s\n",
			li.Title,
			commerce.FormatAmount(li.Quantity),
			commerce.FormatAmount(li.UnitPrice),
			commerce.FormatAmount(li.Total()),
		)
	}
	fmt.Fprintf(&b, "Total: %s\n", commerce.FormatAmount(r.Total))
	return b.String()
}

// New picks SendGrid when an API key is configured and Nop otherwise.
func New(cfg coreconfig.MailConfig) Notifier {
	if cfg.SendGridAPIKey == "" {
		return Nop{}
	}
	return NewSendGrid(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName)
}
