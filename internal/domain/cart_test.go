package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tshirt      = CartItem{ID: "1", Name: "Grey Adidas T-Shirt", Price: 2999, StoreID: "1"}
	baseballCap = CartItem{ID: "2", Name: "Adidas Cap", Price: 4999, StoreID: "1"}
)

func newTestCart() *Cart {
	return NewCart("sess-1", "USD", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

// ============================================================================
// AddItem
// ============================================================================

func TestAddItem_SameIDAggregatesUpToCap(t *testing.T) {
	for calls := 1; calls <= 15; calls++ {
		c := newTestCart()
		for range calls {
			c.AddItem(tshirt)
		}

		require.Len(t, c.Items, 1)
		assert.Equal(t, min(calls, MaxQuantity), c.Items[0].Quantity, "calls=%d", calls)
	}
}

func TestAddItem_IgnoresIncomingQuantityAndKeepsOrder(t *testing.T) {
	c := newTestCart()
	item := baseballCap
	item.Quantity = 7

	c.AddItem(tshirt)
	c.AddItem(item)

	require.Len(t, c.Items, 2)
	assert.Equal(t, "1", c.Items[0].ID)
	assert.Equal(t, "2", c.Items[1].ID)
	assert.Equal(t, 1, c.Items[1].Quantity)
}

func TestAddItem_KeepsPriceCapturedAtFirstAdd(t *testing.T) {
	c := newTestCart()
	c.AddItem(tshirt)

	repriced := tshirt
	repriced.Price = 1
	c.AddItem(repriced)

	assert.Equal(t, int64(2999), c.Items[0].Price)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

// ============================================================================
// UpdateQuantity / RemoveItem / Clear
// ============================================================================

func TestUpdateQuantity_OutOfRangeIsNoop(t *testing.T) {
	c := newTestCart()
	c.AddItem(tshirt)
	c.AddItem(tshirt)

	for _, q := range []int{-1, 0, 11, 100} {
		assert.False(t, c.UpdateQuantity("1", q))
		assert.Equal(t, 2, c.Items[0].Quantity, "q=%d", q)
	}
}

func TestUpdateQuantity_SetsValue(t *testing.T) {
	c := newTestCart()
	c.AddItem(tshirt)

	assert.True(t, c.UpdateQuantity("1", 10))
	assert.Equal(t, 10, c.Items[0].Quantity)
	assert.True(t, c.UpdateQuantity("1", 1))
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestUpdateQuantity_UnknownID(t *testing.T) {
	c := newTestCart()
	c.AddItem(tshirt)

	assert.False(t, c.UpdateQuantity("missing", 3))
	assert.Len(t, c.Items, 1)
}

func TestRemoveItem_Idempotent(t *testing.T) {
	c := newTestCart()
	c.AddItem(tshirt)
	c.AddItem(baseballCap)

	assert.True(t, c.RemoveItem("1"))
	assert.False(t, c.RemoveItem("1"))
	require.Len(t, c.Items, 1)
	assert.Equal(t, "2", c.Items[0].ID)
}

func TestClear(t *testing.T) {
	c := newTestCart()
	c.AddItem(tshirt)
	c.Clear()

	assert.True(t, c.IsEmpty())
	assert.NotNil(t, c.Items)
	assert.Equal(t, 0, c.TotalItems())
	assert.Equal(t, int64(0), c.TotalPrice())
}

// ============================================================================
// Derived totals
// ============================================================================

func TestTotals_RecomputedAfterEveryMutation(t *testing.T) {
	c := newTestCart()
	check := func() {
		t.Helper()
		var want int64
		var items int
		for _, it := range c.Items {
			want += it.Price * int64(it.Quantity)
			items += it.Quantity
		}
		assert.Equal(t, want, c.TotalPrice())
		assert.Equal(t, items, c.TotalItems())
	}

	c.AddItem(tshirt)
	check()
	c.AddItem(baseballCap)
	check()
	c.AddItem(baseballCap)
	check()
	c.UpdateQuantity("1", 4)
	check()
	c.RemoveItem("2")
	check()

	assert.Equal(t, int64(4*2999), c.TotalPrice())
	assert.Equal(t, 4, c.TotalItems())
}
