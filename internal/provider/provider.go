package provider

import (
	"context"
	"fmt"

	apperrors "github.com/utafrali/MallGo/pkg/errors"
)

// CaptureResult is the outcome of a successful capture.
type CaptureResult struct {
	OrderToken string
	Status     string
	PayerEmail string
}

// Provider is a payment processor exposing a two-step create/capture flow.
type Provider interface {
	// Name identifies the provider in logs, spans and metrics.
	Name() string

	// CreateOrder registers a payment of amount minor units and returns the
	// provider's order token.
	CreateOrder(ctx context.Context, amount int64, currency string) (string, error)

	// CaptureOrder settles a previously created order. A refused payment is
	// reported as a *DeclineError; any other error means the provider could
	// not be reached or answered unexpectedly.
	CaptureOrder(ctx context.Context, token string) (*CaptureResult, error)
}

// DeclineError is a payment refused by the provider. Reason is shown to the
// shopper as is.
type DeclineError struct {
	Reason string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

func (e *DeclineError) Unwrap() error {
	return apperrors.ErrPaymentFailed
}

// FormatAmount renders minor units as a decimal string, e.g. 2999 -> "29.99".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
