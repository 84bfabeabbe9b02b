// Package commerce talks to the shop backend: catalogue, carts and orders.
package commerce

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// ErrNotFound reports that the requested product, cart or line item does not exist.
var ErrNotFound = errors.New("commerce: not found")

// APIError is a non-2xx answer from the backend other than 404.
type APIError struct {
	Method string
	Path   string
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce: %s %s: status %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Code labels the error for handler summaries.
func (e *APIError) Code() string {
	return fmt.Sprintf("backend_http_%d", e.Status)
}

// Product is a catalogue entry.
type Product struct {
	ID          string
	Title       string
	Price       float64
	Description string
	PictureURL  string
}

// LineItem is one cart entry. Adding the same product twice yields two items.
type LineItem struct {
	ID        string
	ProductID string
	Title     string
	Quantity  float64
	UnitPrice float64
}

// Total is quantity × unit price.
func (li LineItem) Total() float64 {
	return li.Quantity * li.UnitPrice
}

// CartDetails is a snapshot of a cart's line items.
type CartDetails struct {
	CartID string
	Items  []LineItem
}

// Total sums the line totals.
func (c CartDetails) Total() float64 {
	var sum float64
	for _, li := range c.Items {
		sum += li.Total()
	}
	return sum
}

// Empty reports whether the cart has no line items.
func (c CartDetails) Empty() bool {
	return len(c.Items) == 0
}

// Order links an e-mail address to a cart at checkout time.
type Order struct {
	ID     string
	Email  string
	CartID string
}

// Client is the backend contract used by the dialog. Calls are not retried.
type Client interface {
	ListProducts(ctx context.Context) ([]Product, error)
	// GetProduct returns ErrNotFound for unknown ids.
	GetProduct(ctx context.Context, productID string) (Product, error)
	// GetProductImage returns ok=false when the product has no picture.
	GetProductImage(ctx context.Context, productID string) (img []byte, ok bool, err error)
	FindCart(ctx context.Context, userID int64) (cartID string, ok bool, err error)
	// GetOrCreateCart is idempotent per user.
	GetOrCreateCart(ctx context.Context, userID int64) (cartID string, err error)
	AddLineItem(ctx context.Context, cartID, productID string, qty float64) error
	GetCartDetails(ctx context.Context, cartID string) (CartDetails, error)
	// DeleteLineItem returns ErrNotFound when the item is already gone.
	DeleteLineItem(ctx context.Context, lineItemID string) error
	// ClearCart removes every line item of the user's cart; no cart is not an error.
	ClearCart(ctx context.Context, userID int64) error
	CreateOrder(ctx context.Context, cartID, email string) (Order, error)
}

// ProductCaption is the text shown next to a product picture.
func ProductCaption(p Product) string {
	var b strings.Builder
	b.WriteString(p.Title)
	b.WriteString("    Price: ")
	b.WriteString(FormatAmount(p.Price))
	if d := strings.TrimSpace(p.Description); d != "" {
		b.WriteString("\n\n")
		b.WriteString(d)
	}
	return b.String()
}

// FormatAmount renders a price or quantity without trailing zeros.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// Receipt is the pre-cleanup snapshot of a placed order.
type Receipt struct {
	Order Order
	Items []LineItem
	Total float64
}

// NewReceipt snapshots details for order.
func NewReceipt(order Order, details CartDetails) Receipt {
	return Receipt{
		Order: order,
		Items: append([]LineItem(nil), details.Items...),
		Total: details.Total(),
	}
}
