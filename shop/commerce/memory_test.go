package commerce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemory() *MemoryClient {
	return NewMemoryClient(
		Product{ID: "p1", Title: "Smoked eel", Price: 10},
		Product{ID: "p2", Title: "Sprats", Price: 5},
	)
}

func TestMemoryCartLifecycle(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()

	cartID, err := m.GetOrCreateCart(ctx, 1)
	require.NoError(t, err)
	again, err := m.GetOrCreateCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, cartID, again)

	require.NoError(t, m.AddLineItem(ctx, cartID, "p1", 1))
	require.NoError(t, m.AddLineItem(ctx, cartID, "p1", 1))
	details, err := m.GetCartDetails(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, details.Items, 2, "same product twice yields two line items")
	assert.Equal(t, 20.0, details.Total())

	require.NoError(t, m.DeleteLineItem(ctx, details.Items[0].ID))
	assert.ErrorIs(t, m.DeleteLineItem(ctx, details.Items[0].ID), ErrNotFound)

	require.NoError(t, m.ClearCart(ctx, 1))
	details, err = m.GetCartDetails(ctx, cartID)
	require.NoError(t, err)
	assert.True(t, details.Empty())
}

func TestMemoryClearCartWithoutCartIsNoop(t *testing.T) {
	m := seededMemory()
	require.NoError(t, m.ClearCart(context.Background(), 99))
	_, ok, err := m.FindCart(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryFailureInjection(t *testing.T) {
	m := seededMemory()
	boom := errors.New("boom")
	m.FailOn("ListProducts", boom)
	_, err := m.ListProducts(context.Background())
	assert.ErrorIs(t, err, boom)

	m.FailOn("ListProducts", nil)
	products, err := m.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestMemoryFailOnItemFailsOnlyThatItem(t *testing.T) {
	m := seededMemory()
	ctx := context.Background()
	cartID, err := m.GetOrCreateCart(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, m.AddLineItem(ctx, cartID, "p1", 1))
	require.NoError(t, m.AddLineItem(ctx, cartID, "p2", 1))
	details, err := m.GetCartDetails(ctx, cartID)
	require.NoError(t, err)
	stuck, other := details.Items[0], details.Items[1]

	timeout := errors.New("timeout")
	m.FailOnItem(stuck.ID, timeout)
	assert.ErrorIs(t, m.DeleteLineItem(ctx, stuck.ID), timeout)
	require.NoError(t, m.DeleteLineItem(ctx, other.ID))

	m.FailOnItem(stuck.ID, nil)
	require.NoError(t, m.DeleteLineItem(ctx, stuck.ID))
	details, err = m.GetCartDetails(ctx, cartID)
	require.NoError(t, err)
	assert.True(t, details.Empty())
}

func TestProductCaptionAndAmounts(t *testing.T) {
	assert.Equal(t, "Smoked eel    Price: 10\n\nTasty", ProductCaption(Product{Title: "Smoked eel", Price: 10, Description: "Tasty"}))
	assert.Equal(t, "Sprats    Price: 4.5", ProductCaption(Product{Title: "Sprats", Price: 4.5}))
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "12.25", FormatAmount(12.25))
}

func TestDemoClientServesCatalogue(t *testing.T) {
	demo := NewDemoClient()
	products, err := demo.ListProducts(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, products)

	_, ok, err := demo.GetProductImage(context.Background(), products[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
