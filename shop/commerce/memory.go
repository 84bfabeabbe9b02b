package commerce

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryClient is an in-process Client used for local runs and tests.
// Failures can be injected per operation with FailOn.
type MemoryClient struct {
	mu       sync.Mutex
	products []Product
	images   map[string][]byte
	carts    map[string]*memoryCart
	byUser   map[int64]string
	items    map[string]string // line item id -> cart id
	orders   []Order
	fail     map[string]error
	failItem map[string]error
}

type memoryCart struct {
	id    string
	items []LineItem
}

// NewMemoryClient seeds the catalogue with products.
func NewMemoryClient(products ...Product) *MemoryClient {
	return &MemoryClient{
		products: products,
		images:   make(map[string][]byte),
		carts:    make(map[string]*memoryCart),
		byUser:   make(map[int64]string),
		items:    make(map[string]string),
		fail:     make(map[string]error),
		failItem: make(map[string]error),
	}
}

// NewDemoClient returns a MemoryClient stocked with a small fixed catalogue,
// for running the bot without a Strapi instance.
func NewDemoClient() *MemoryClient {
	return NewMemoryClient(
		Product{ID: "demo-coffee", Title: "Coffee beans 250g", Price: 12.5, Description: "Medium roast, whole beans."},
		Product{ID: "demo-tea", Title: "Green tea", Price: 7, Description: "Loose leaf sencha, 100g."},
		Product{ID: "demo-mug", Title: "Ceramic mug", Price: 9.9, Description: "350 ml, dishwasher safe."},
	)
}

// SetImage attaches picture bytes to a product.
func (m *MemoryClient) SetImage(productID string, img []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[productID] = img
}

// FailOn makes the named method (e.g. "CreateOrder") return err until cleared with nil.
func (m *MemoryClient) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

// FailOnItem makes DeleteLineItem fail for one line item only, so a cleanup
// can partly succeed. A nil err clears it.
func (m *MemoryClient) FailOnItem(lineItemID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failItem, lineItemID)
		return
	}
	m.failItem[lineItemID] = err
}

// Orders returns the orders created so far.
func (m *MemoryClient) Orders() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Order(nil), m.orders...)
}

func (m *MemoryClient) injected(method string) error {
	if err, ok := m.fail[method]; ok {
		return fmt.Errorf("commerce: %s: %w", method, err)
	}
	return nil
}

func (m *MemoryClient) product(id string) (Product, bool) {
	for _, p := range m.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// ListProducts implements Client.
func (m *MemoryClient) ListProducts(context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("ListProducts"); err != nil {
		return nil, err
	}
	return append([]Product(nil), m.products...), nil
}

// GetProduct implements Client.
func (m *MemoryClient) GetProduct(_ context.Context, productID string) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetProduct"); err != nil {
		return Product{}, err
	}
	p, ok := m.product(productID)
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// GetProductImage implements Client.
func (m *MemoryClient) GetProductImage(_ context.Context, productID string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetProductImage"); err != nil {
		return nil, false, err
	}
	if _, ok := m.product(productID); !ok {
		return nil, false, ErrNotFound
	}
	img, ok := m.images[productID]
	return img, ok, nil
}

// FindCart implements Client.
func (m *MemoryClient) FindCart(_ context.Context, userID int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("FindCart"); err != nil {
		return "", false, err
	}
	id, ok := m.byUser[userID]
	return id, ok, nil
}

// GetOrCreateCart implements Client.
func (m *MemoryClient) GetOrCreateCart(_ context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetOrCreateCart"); err != nil {
		return "", err
	}
	if id, ok := m.byUser[userID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	m.carts[id] = &memoryCart{id: id}
	m.byUser[userID] = id
	return id, nil
}

// AddLineItem implements Client.
func (m *MemoryClient) AddLineItem(_ context.Context, cartID, productID string, qty float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("AddLineItem"); err != nil {
		return err
	}
	cart, ok := m.carts[cartID]
	if !ok {
		return ErrNotFound
	}
	p, ok := m.product(productID)
	if !ok {
		return ErrNotFound
	}
	li := LineItem{
		ID:        uuid.NewString(),
		ProductID: p.ID,
		Title:     p.Title,
		Quantity:  qty,
		UnitPrice: p.Price,
	}
	cart.items = append(cart.items, li)
	m.items[li.ID] = cartID
	return nil
}

// GetCartDetails implements Client.
func (m *MemoryClient) GetCartDetails(_ context.Context, cartID string) (CartDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetCartDetails"); err != nil {
		return CartDetails{}, err
	}
	cart, ok := m.carts[cartID]
	if !ok {
		return CartDetails{}, ErrNotFound
	}
	return CartDetails{CartID: cart.id, Items: append([]LineItem(nil), cart.items...)}, nil
}

// DeleteLineItem implements Client.
func (m *MemoryClient) DeleteLineItem(_ context.Context, lineItemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("DeleteLineItem"); err != nil {
		return err
	}
	if err, ok := m.failItem[lineItemID]; ok {
		return fmt.Errorf("commerce: DeleteLineItem %s: %w", lineItemID, err)
	}
	return m.deleteLocked(lineItemID)
}

func (m *MemoryClient) deleteLocked(lineItemID string) error {
	cartID, ok := m.items[lineItemID]
	if !ok {
		return ErrNotFound
	}
	cart := m.carts[cartID]
	for i, li := range cart.items {
		if li.ID == lineItemID {
			cart.items = append(cart.items[:i], cart.items[i+1:]...)
			break
		}
	}
	delete(m.items, lineItemID)
	return nil
}

// ClearCart implements Client.
func (m *MemoryClient) ClearCart(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("ClearCart"); err != nil {
		return err
	}
	cartID, ok := m.byUser[userID]
	if !ok {
		return nil
	}
	for _, li := range append([]LineItem(nil), m.carts[cartID].items...) {
		_ = m.deleteLocked(li.ID)
	}
	return nil
}

// CreateOrder implements Client.
func (m *MemoryClient) CreateOrder(_ context.Context, cartID, email string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CreateOrder"); err != nil {
		return Order{}, err
	}
	if _, ok := m.carts[cartID]; !ok {
		return Order{}, ErrNotFound
	}
	o := Order{ID: uuid.NewString(), Email: email, CartID: cartID}
	m.orders = append(m.orders, o)
	return o, nil
}
