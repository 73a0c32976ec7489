package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderSummary is the receipt recorded for a successful checkout.
type OrderSummary struct {
	OrderID       string        `json:"order_id"`
	Date          time.Time     `json:"date"`
	Total         int64         `json:"total"`
	ItemCount     int           `json:"item_count"`
	Email         string        `json:"email"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Currency      string        `json:"currency"`
}

// NewOrderID returns an identifier of the form ORD-XXXXXXXX.
func NewOrderID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(id[:8])
}

// Quote prices a cart including tax.
type Quote struct {
	Subtotal  int64  `json:"subtotal"`
	Tax       int64  `json:"tax"`
	Total     int64  `json:"total"`
	ItemCount int    `json:"item_count"`
	Currency  string `json:"currency"`
}

// NewQuote prices cart with a tax rate in basis points, rounding the tax
// half up to the cent.
func NewQuote(cart *Cart, taxRateBPS int64) Quote {
	subtotal := cart.TotalPrice()
	tax := (subtotal*taxRateBPS + 5000) / 10000
	return Quote{
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal + tax,
		ItemCount: cart.TotalItems(),
		Currency:  cart.Currency,
	}
}
