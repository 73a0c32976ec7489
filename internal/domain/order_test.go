package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for range 50 {
		id := NewOrderID()
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestNewQuote(t *testing.T) {
	c := NewCart("s", "USD", time.Now())
	c.AddItem(CartItem{ID: "1", Price: 2999})
	c.AddItem(CartItem{ID: "1", Price: 2999})
	c.AddItem(CartItem{ID: "4", Price: 29999})

	q := NewQuote(c, 700)

	assert.Equal(t, int64(35997), q.Subtotal)
	// 35997 * 0.07 = 2519.79, rounded half up.
	assert.Equal(t, int64(2520), q.Tax)
	assert.Equal(t, int64(38517), q.Total)
	assert.Equal(t, 3, q.ItemCount)
	assert.Equal(t, "USD", q.Currency)
}

func TestNewQuote_RoundsHalfUp(t *testing.T) {
	c := NewCart("s", "USD", time.Now())
	c.AddItem(CartItem{ID: "x", Price: 50})

	// 50 * 0.01 = 0.5 cents.
	assert.Equal(t, int64(1), NewQuote(c, 100).Tax)
	assert.Equal(t, int64(0), NewQuote(NewCart("s", "USD", time.Now()), 700).Total)
}
