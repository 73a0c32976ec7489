package domain

import "time"

// Quantity bounds for a single cart line.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Cart is a session's ordered list of line items, unique by product id.
type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	Currency  string     `json:"currency"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one product line. Price is captured when the product is first
// added and is never repriced.
type CartItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Image    string `json:"image,omitempty"`
	StoreID  string `json:"store_id"`
	Quantity int    `json:"quantity"`
}

// NewCart returns an empty cart for the session.
func NewCart(sessionID, currency string, now time.Time) *Cart {
	return &Cart{
		SessionID: sessionID,
		Items:     []CartItem{},
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem adds one unit of item. An existing line is incremented and capped
// at MaxQuantity, with the excess dropped; otherwise a new line is appended
// with quantity 1. The incoming Quantity field is ignored.
func (c *Cart) AddItem(item CartItem) {
	if i := c.FindItemIndex(item.ID); i >= 0 {
		if c.Items[i].Quantity < MaxQuantity {
			c.Items[i].Quantity++
		}
		return
	}
	item.Quantity = 1
	c.Items = append(c.Items, item)
}

// UpdateQuantity sets the quantity of the line for id. It reports false and
// leaves the cart untouched when qty is out of range or id is absent.
func (c *Cart) UpdateQuantity(id string, qty int) bool {
	if qty < MinQuantity || qty > MaxQuantity {
		return false
	}
	i := c.FindItemIndex(id)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity = qty
	return true
}

// RemoveItem drops the line for id. Removing an absent id is a no-op.
func (c *Cart) RemoveItem(id string) bool {
	i := c.FindItemIndex(id)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// TotalItems is the sum of line quantities.
func (c *Cart) TotalItems() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// TotalPrice is the sum of price*quantity over all lines, in cents.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// FindItemIndex returns the index of the line for id, or -1.
func (c *Cart) FindItemIndex(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}
