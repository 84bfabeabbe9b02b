package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/shop/commerce"
)

type fakeMail struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeMail) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, m)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func receipt() commerce.Receipt {
	return commerce.Receipt{
		Order: commerce.Order{ID: "o-1", Email: "a@b.co", CartID: "c1"},
		Items: []commerce.LineItem{
			{Title: "Smoked eel", Quantity: 2, UnitPrice: 10},
			{Title: "Sprats", Quantity: 1, UnitPrice: 5},
		},
		Total: 25,
	}
}

func TestSendGridOrderPlaced(t *testing.T) {
	fm := &fakeMail{status: 202}
	n := &SendGrid{client: fm, from: mail.NewEmail("Shop", "shop@example.com")}

	require.NoError(t, n.OrderPlaced(context.Background(), receipt()))
	require.Len(t, fm.sent, 1)
	msg := fm.sent[0]
	assert.Equal(t, "Order o-1", msg.Subject)
	assert.Equal(t, "a@b.co", msg.Personalizations[0].To[0].Address)
	assert.Contains(t, msg.Content[0].Value, "Total: 25")
}

func TestSendGridEscapesHTMLPart(t *testing.T) {
	fm := &fakeMail{status: 202}
	n := &SendGrid{client: fm, from: mail.NewEmail("Shop", "shop@example.com")}
	r := receipt()
	r.Items[0].Title = `<b>Eel</b> & "chips"`

	require.NoError(t, n.OrderPlaced(context.Background(), r))
	require.Len(t, fm.sent, 1)
	require.Len(t, fm.sent[0].Content, 2)
	plain, rich := fm.sent[0].Content[0], fm.sent[0].Content[1]
	assert.Equal(t, "text/html", rich.Type)
	assert.Contains(t, plain.Value, `<b>Eel</b> & "chips"`)
	assert.Contains(t, rich.Value, "&lt;b&gt;Eel&lt;/b&gt; &amp; &#34;chips&#34;")
	assert.NotContains(t, rich.Value, "<b>")
}

func TestSendGridFailures(t *testing.T) {
	fm := &fakeMail{status: 401}
	n := &SendGrid{client: fm, from: mail.NewEmail("Shop", "shop@example.com")}
	assert.Error(t, n.OrderPlaced(context.Background(), receipt()))

	fm.err = errors.New("dial tcp: refused")
	assert.Error(t, n.OrderPlaced(context.Background(), receipt()))

	r := receipt()
	r.Order.Email = " "
	assert.Error(t, n.OrderPlaced(context.Background(), r))
}

func TestReceiptText(t *testing.T) {
	want := "Thank you for your order!\n\nOrder number: o-1\n" +
		"  - Smoked eel: 2 x 10 = 20\n" +
		"  - Sprats: 1 x 5 = 5\n" +
		"Total: 25\n"
	assert.Equal(t, want, ReceiptText(receipt()))
}

func TestNewPicksImplementation(t *testing.T) {
	assert.IsType(t, Nop{}, New(coreconfig.MailConfig{}))
	assert.IsType(t, &SendGrid{}, New(coreconfig.MailConfig{SendGridAPIKey: "k", FromEmail: "s@x.io"}))
}
