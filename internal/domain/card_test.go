package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var validCard = CardDetails{
	CardNumber:     "1234567890123456",
	ExpiryDate:     "12/30",
	CVV:            "123",
	CardholderName: "Jane Doe",
}

func TestCardValidate_Valid(t *testing.T) {
	assert.Empty(t, validCard.Validate(time.Now()))
}

func TestCardValidate_CardNumber(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"1234567890123456", true},
		{"1234 5678 9012 3456", true},
		{"1234-5678-9012-3456", true},
		{"1234 5678", false},
		{"12345678901234567", false},
		{"abcd567890123456", false},
		{"", false},
	}

	for _, tt := range tests {
		c := validCard
		c.CardNumber = tt.number
		errs := c.Validate(time.Now())
		if tt.valid {
			assert.NotContains(t, errs, "card_number", tt.number)
		} else {
			assert.Equal(t, MsgCardNumber, errs["card_number"], tt.number)
		}
	}
}

func TestCardValidate_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(2, 0, 0)

	tests := []struct {
		expiry string
		want   string
	}{
		{"01/20", MsgExpired},
		{"02/26", MsgExpired},
		{"03/26", ""},
		{fmt.Sprintf("%02d/%02d", future.Month(), future.Year()%100), ""},
		{"13/30", MsgExpiryFormat},
		{"00/30", MsgExpiryFormat},
		{"1/30", MsgExpiryFormat},
		{"01/2030", MsgExpiryFormat},
		{"", MsgExpiryFormat},
	}

	for _, tt := range tests {
		c := validCard
		c.ExpiryDate = tt.expiry
		errs := c.Validate(now)
		assert.Equal(t, tt.want, errs["expiry_date"], tt.expiry)
	}
}

func TestCardValidate_CVVAndName(t *testing.T) {
	for _, cvv := range []string{"123", "1234"} {
		c := validCard
		c.CVV = cvv
		assert.Empty(t, c.Validate(time.Now()))
	}
	for _, cvv := range []string{"12", "12345", "12a"} {
		c := validCard
		c.CVV = cvv
		assert.Equal(t, MsgCVV, c.Validate(time.Now())["cvv"], cvv)
	}
	for _, name := range []string{"", "   ", " Al "} {
		c := validCard
		c.CardholderName = name
		assert.Equal(t, MsgCardholderName, c.Validate(time.Now())["cardholder_name"], name)
	}
}

func TestCardValidate_ReportsAllFieldsTogether(t *testing.T) {
	errs := CardDetails{}.Validate(time.Now())
	assert.Equal(t, map[string]string{
		"card_number":     MsgCardNumber,
		"expiry_date":     MsgExpiryFormat,
		"cvv":             MsgCVV,
		"cardholder_name": MsgCardholderName,
	}, errs)
}
