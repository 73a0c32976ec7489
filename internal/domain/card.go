package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Card form field messages.
const (
	MsgCardNumber     = "Please enter a valid 16-digit card number"
	MsgExpiryFormat   = "Please enter a valid expiry date (MM/YY)"
	MsgExpired        = "Card has expired"
	MsgCVV            = "Please enter a valid CVV (3-4 digits)"
	MsgCardholderName = "Please enter the cardholder's name"
)

var (
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
	cardSeparators    = strings.NewReplacer(" ", "", "-", "")
)

// CardDetails is the credit-card form. It is only validated, never stored.
type CardDetails struct {
	CardNumber     string `json:"card_number"`
	ExpiryDate     string `json:"expiry_date"`
	CVV            string `json:"cvv"`
	CardholderName string `json:"cardholder_name"`
}

// Validate checks all four fields together and returns a message per
// invalid field, keyed by its JSON name. An empty map means the form is
// valid. Expiry is compared at month granularity against now.
func (c CardDetails) Validate(now time.Time) map[string]string {
	errs := make(map[string]string)

	if !cardNumberPattern.MatchString(cardSeparators.Replace(c.CardNumber)) {
		errs["card_number"] = MsgCardNumber
	}

	if m := expiryPattern.FindStringSubmatch(c.ExpiryDate); m == nil {
		errs["expiry_date"] = MsgExpiryFormat
	} else {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		expiry := time.Date(2000+year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		if expiry.Before(current) {
			errs["expiry_date"] = MsgExpired
		}
	}

	if !cvvPattern.MatchString(c.CVV) {
		errs["cvv"] = MsgCVV
	}

	if len([]rune(strings.TrimSpace(c.CardholderName))) < 3 {
		errs["cardholder_name"] = MsgCardholderName
	}

	return errs
}
