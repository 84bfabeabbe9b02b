package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStrapi serves the subset of the Strapi REST API the client uses.
type fakeStrapi struct {
	t        *testing.T
	mu       sync.Mutex
	carts    map[string]string // tg_id -> cart documentId
	created  int
	deleted  []string
	posted   []map[string]any
	failPath string
}

func newFakeStrapi(t *testing.T) (*fakeStrapi, *StrapiClient) {
	f := &fakeStrapi{t: t, carts: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, NewStrapiClient(srv.URL+"/", "secret", srv.Client())
}

func (f *fakeStrapi) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.failPath != "" && r.URL.Path == f.failPath {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/products":
		writeJSON(w, `{"data":[{"id":1,"documentId":"p1","title":"Smoked eel","price":10},{"id":2,"documentId":"p2","title":"Sprats","price":5}]}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/products/p1":
		writeJSON(w, `{"data":{"documentId":"p1","title":"Smoked eel","price":10,"description":"Tasty","picture":[{"url":"/uploads/eel.jpg"}]}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/products/p2":
		writeJSON(w, `{"data":{"documentId":"p2","title":"Sprats","price":5,"picture":null}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/uploads/eel.jpg":
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	case r.Method == http.MethodGet && r.URL.Path == "/api/carts":
		tg := r.URL.Query().Get("filters[tg_id][$eq]")
		id, ok := f.carts[tg]
		if !ok {
			writeJSON(w, `{"data":[]}`)
			return
		}
		if r.URL.Query().Get("populate") == "cart_products" {
			writeJSON(w, `{"data":[{"documentId":"`+id+`","cart_products":[{"documentId":"li1"},{"documentId":"li2"}]}]}`)
			return
		}
		writeJSON(w, `{"data":[{"documentId":"`+id+`"}]}`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/carts":
		var body struct {
			Data struct {
				TgID string `json:"tg_id"`
			} `json:"data"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.created++
		f.carts[body.Data.TgID] = "cart-" + body.Data.TgID
		writeJSON(w, `{"data":{"documentId":"cart-`+body.Data.TgID+`"}}`)
	case r.Method == http.MethodPost && (r.URL.Path == "/api/cart-products" || r.URL.Path == "/api/orders"):
		var body map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.posted = append(f.posted, body)
		writeJSON(w, `{"data":{"documentId":"order-1"}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/carts/c1":
		assert.Equal(f.t, "product", r.URL.Query().Get("populate[cart_products][populate][0]"))
		writeJSON(w, `{"data":{"documentId":"c1","cart_products":[
			{"documentId":"li1","quantity":2,"product":{"documentId":"p1","title":"Smoked eel","price":10}},
			{"documentId":"li2","quantity":1,"product":{"documentId":"p2","title":"Sprats","price":5}},
			{"documentId":"li3","quantity":0,"product":{"documentId":"p2","title":"Sprats","price":5}}]}}`)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/cart-products/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/cart-products/")
		if id == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestStrapiListAndGetProduct(t *testing.T) {
	_, c := newFakeStrapi(t)
	ctx := context.Background()

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, Product{ID: "p1", Title: "Smoked eel", Price: 10}, products[0])

	p, err := c.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/eel.jpg", p.PictureURL)
	assert.Equal(t, "Tasty", p.Description)

	_, err = c.GetProduct(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStrapiProductImage(t *testing.T) {
	_, c := newFakeStrapi(t)
	ctx := context.Background()

	img, ok, err := c.GetProductImage(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, img)

	img, ok, err = c.GetProductImage(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, img)
}

func TestStrapiGetOrCreateCartIsIdempotent(t *testing.T) {
	f, c := newFakeStrapi(t)
	ctx := context.Background()

	_, ok, err := c.FindCart(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := c.GetOrCreateCart(ctx, 42)
	require.NoError(t, err)
	second, err := c.GetOrCreateCart(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "cart-42", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.created)
}

func TestStrapiAddLineItemPayload(t *testing.T) {
	f, c := newFakeStrapi(t)
	require.NoError(t, c.AddLineItem(context.Background(), "c1", "p1", 1))
	require.Len(t, f.posted, 1)
	data := f.posted[0]["data"].(map[string]any)
	assert.Equal(t, 1.0, data["quantity"])
	assert.Equal(t, []any{"c1"}, data["cart"].(map[string]any)["connect"])
	assert.Equal(t, []any{"p1"}, data["product"].(map[string]any)["connect"])
}

func TestStrapiCartDetails(t *testing.T) {
	_, c := newFakeStrapi(t)
	details, err := c.GetCartDetails(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, details.Items, 2)
	assert.Equal(t, LineItem{ID: "li1", ProductID: "p1", Title: "Smoked eel", Quantity: 2, UnitPrice: 10}, details.Items[0])
	assert.Equal(t, 25.0, details.Total())
}

func TestStrapiDeleteAndClear(t *testing.T) {
	f, c := newFakeStrapi(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.DeleteLineItem(ctx, "missing"), ErrNotFound)
	require.NoError(t, c.ClearCart(ctx, 7))
	assert.Empty(t, f.deleted)

	f.carts["7"] = "c7"
	require.NoError(t, c.ClearCart(ctx, 7))
	assert.Equal(t, []string{"li1", "li2"}, f.deleted)
}

func TestStrapiCreateOrder(t *testing.T) {
	f, c := newFakeStrapi(t)
	order, err := c.CreateOrder(context.Background(), "c1", "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, Order{ID: "order-1", Email: "a@b.co", CartID: "c1"}, order)
	data := f.posted[0]["data"].(map[string]any)
	assert.Equal(t, "a@b.co", data["email"])
}

func TestStrapiServerErrorIsAPIError(t *testing.T) {
	f, c := newFakeStrapi(t)
	f.failPath = "/api/orders"
	_, err := c.CreateOrder(context.Background(), "c1", "a@b.co")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "backend_http_500", apiErr.Code())
	assert.False(t, errors.Is(err, ErrNotFound))
}
