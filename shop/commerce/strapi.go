package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/shopbot/core/logger"
)

const maxImageBytes = 10 << 20

// StrapiClient implements Client against the Strapi v5 REST API.
type StrapiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewStrapiClient builds a client for baseURL (without trailing slash).
func NewStrapiClient(baseURL, token string, hc *http.Client) *StrapiClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &StrapiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    hc,
	}
}

type strapiPicture struct {
	URL string `json:"url"`
}

type strapiProduct struct {
	DocumentID  string          `json:"documentId"`
	Title       string          `json:"title"`
	Price       float64         `json:"price"`
	Description string          `json:"description"`
	Picture     []strapiPicture `json:"picture"`
}

func (p strapiProduct) toProduct() Product {
	out := Product{
		ID:          p.DocumentID,
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
	}
	if len(p.Picture) > 0 {
		out.PictureURL = p.Picture[0].URL
	}
	return out
}

type strapiCartProduct struct {
	DocumentID string         `json:"documentId"`
	Quantity   float64        `json:"quantity"`
	Product    *strapiProduct `json:"product"`
}

type strapiCart struct {
	DocumentID   string              `json:"documentId"`
	CartProducts []strapiCartProduct `json:"cart_products"`
}

type strapiOrder struct {
	DocumentID string `json:"documentId"`
	Email      string `json:"email"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

type connect struct {
	Connect []string `json:"connect"`
}

// ListProducts returns the whole catalogue.
func (c *StrapiClient) ListProducts(ctx context.Context) ([]Product, error) {
	var resp dataEnvelope[[]strapiProduct]
	if err := c.do(ctx, http.MethodGet, "/api/products", url.Values{"populate": {"*"}}, nil, &resp); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(resp.Data))
	for _, p := range resp.Data {
		products = append(products, p.toProduct())
	}
	return products, nil
}

// GetProduct loads one product with its picture metadata.
func (c *StrapiClient) GetProduct(ctx context.Context, productID string) (Product, error) {
	var resp dataEnvelope[*strapiProduct]
	path := "/api/products/" + url.PathEscape(productID)
	if err := c.do(ctx, http.MethodGet, path, url.Values{"populate": {"*"}}, nil, &resp); err != nil {
		return Product{}, err
	}
	if resp.Data == nil {
		return Product{}, ErrNotFound
	}
	return resp.Data.toProduct(), nil
}

// GetProductImage downloads the product's first picture.
func (c *StrapiClient) GetProductImage(ctx context.Context, productID string) ([]byte, bool, error) {
	p, err := c.GetProduct(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if p.PictureURL == "" {
		return nil, false, nil
	}
	img, err := c.download(ctx, c.absoluteURL(p.PictureURL))
	if err != nil {
		return nil, false, err
	}
	return img, true, nil
}

// FindCart looks up the user's cart without creating one.
func (c *StrapiClient) FindCart(ctx context.Context, userID int64) (string, bool, error) {
	carts, err := c.findCarts(ctx, userID, false)
	if err != nil {
		return "", false, err
	}
	if len(carts) == 0 {
		return "", false, nil
	}
	return carts[0].DocumentID, true, nil
}

// GetOrCreateCart returns the user's cart, creating it on first use.
func (c *StrapiClient) GetOrCreateCart(ctx context.Context, userID int64) (string, error) {
	if id, ok, err := c.FindCart(ctx, userID); err != nil || ok {
		return id, err
	}
	body := dataEnvelope[map[string]string]{Data: map[string]string{"tg_id": tgID(userID)}}
	var resp dataEnvelope[strapiCart]
	if err := c.do(ctx, http.MethodPost, "/api/carts", nil, body, &resp); err != nil {
		return "", err
	}
	logger.Info(ctx, "commerce", "cart.created", slog.String("cart_id", resp.Data.DocumentID))
	return resp.Data.DocumentID, nil
}

// AddLineItem appends a new line item to the cart.
func (c *StrapiClient) AddLineItem(ctx context.Context, cartID, productID string, qty float64) error {
	body := dataEnvelope[any]{Data: struct {
		Quantity float64 `json:"quantity"`
		Cart     connect `json:"cart"`
		Product  connect `json:"product"`
	}{
		Quantity: qty,
		Cart:     connect{Connect: []string{cartID}},
		Product:  connect{Connect: []string{productID}},
	}}
	return c.do(ctx, http.MethodPost, "/api/cart-products", nil, body, nil)
}

// GetCartDetails loads the cart with its line items and their products in one request.
func (c *StrapiClient) GetCartDetails(ctx context.Context, cartID string) (CartDetails, error) {
	var resp dataEnvelope[*strapiCart]
	path := "/api/carts/" + url.PathEscape(cartID)
	q := url.Values{"populate[cart_products][populate][0]": {"product"}}
	if err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return CartDetails{}, err
	}
	if resp.Data == nil {
		return CartDetails{}, ErrNotFound
	}
	details := CartDetails{CartID: resp.Data.DocumentID}
	for _, cp := range resp.Data.CartProducts {
		if cp.DocumentID == "" || cp.Quantity <= 0 {
			continue
		}
		li := LineItem{ID: cp.DocumentID, Quantity: cp.Quantity, Title: "Unknown product"}
		if cp.Product != nil {
			li.ProductID = cp.Product.DocumentID
			li.UnitPrice = cp.Product.Price
			if cp.Product.Title != "" {
				li.Title = cp.Product.Title
			}
		}
		details.Items = append(details.Items, li)
	}
	return details, nil
}

// DeleteLineItem removes a single line item.
func (c *StrapiClient) DeleteLineItem(ctx context.Context, lineItemID string) error {
	return c.do(ctx, http.MethodDelete, "/api/cart-products/"+url.PathEscape(lineItemID), nil, nil, nil)
}

// ClearCart deletes every line item of the user's cart, attempting all of them.
func (c *StrapiClient) ClearCart(ctx context.Context, userID int64) error {
	carts, err := c.findCarts(ctx, userID, true)
	if err != nil {
		return err
	}
	if len(carts) == 0 {
		return nil
	}
	var result *multierror.Error
	for _, cp := range carts[0].CartProducts {
		if cp.DocumentID == "" {
			continue
		}
		if err := c.DeleteLineItem(ctx, cp.DocumentID); err != nil && !errors.Is(err, ErrNotFound) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// CreateOrder records an order for the cart.
func (c *StrapiClient) CreateOrder(ctx context.Context, cartID, email string) (Order, error) {
	body := dataEnvelope[any]{Data: struct {
		Email string  `json:"email"`
		Cart  connect `json:"cart"`
	}{
		Email: email,
		Cart:  connect{Connect: []string{cartID}},
	}}
	var resp dataEnvelope[strapiOrder]
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, body, &resp); err != nil {
		return Order{}, err
	}
	return Order{ID: resp.Data.DocumentID, Email: email, CartID: cartID}, nil
}

func (c *StrapiClient) findCarts(ctx context.Context, userID int64, withItems bool) ([]strapiCart, error) {
	q := url.Values{"filters[tg_id][$eq]": {tgID(userID)}}
	if withItems {
		q.Set("populate", "cart_products")
	}
	var resp dataEnvelope[[]strapiCart]
	if err := c.do(ctx, http.MethodGet, "/api/carts", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *StrapiClient) absoluteURL(u string) string {
	if strings.HasPrefix(u, "/") {
		return c.baseURL + u
	}
	return u
}

func (c *StrapiClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("commerce: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("commerce: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn(ctx, "commerce", "request.fail",
			slog.String("method", method),
			slog.String("path", path),
			slog.Duration("duration", logger.Took(start)),
			logger.Err(err),
		)
		return fmt.Errorf("commerce: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "commerce", "request",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status_code", resp.StatusCode),
			slog.Duration("duration", logger.Took(start)),
		)
	}

	if err := checkStatus(method, path, resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("commerce: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *StrapiClient) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("commerce: build image request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("commerce: download image: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(http.MethodGet, req.URL.Path, resp); err != nil {
		return nil, err
	}
	img, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("commerce: read image: %w", err)
	}
	return img, nil
}

func checkStatus(method, path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("commerce: %s %s: %w", method, path, ErrNotFound)
	}
	return &APIError{Method: method, Path: path, Status: resp.StatusCode}
}

func tgID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
