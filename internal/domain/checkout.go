package domain

import (
	"fmt"
	"time"

	apperrors "github.com/utafrali/MallGo/pkg/errors"
)

// PaymentMethod selects the provider a checkout pays through.
type PaymentMethod string

const (
	PaymentMethodPayPal     PaymentMethod = "paypal"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodPayPal || m == PaymentMethodCreditCard
}

// Opposite returns the other payment method.
func (m PaymentMethod) Opposite() PaymentMethod {
	if m == PaymentMethodCreditCard {
		return PaymentMethodPayPal
	}
	return PaymentMethodCreditCard
}

// CheckoutStatus is the state of a checkout session.
type CheckoutStatus string

const (
	CheckoutIdle       CheckoutStatus = "idle"
	CheckoutProcessing CheckoutStatus = "processing"
	CheckoutSucceeded  CheckoutStatus = "succeeded"
	CheckoutFailed     CheckoutStatus = "failed"
)

// User-facing failure reasons.
const (
	ReasonCardDeclined       = "Transaction declined by your bank. Please try another card."
	ReasonInsufficientFunds  = "Insufficient funds. Please use a different payment method."
	ReasonCardVerification   = "Card verification failed. Please check your card details."
	ReasonPayPalFailed       = "PayPal payment failed. Please try again or use a different payment method."
	ReasonServiceUnavailable = "Payment service is temporarily unavailable. Please try again later."
	ReasonProcessingFailed   = "Failed to process payment. Please try again."
	ReasonGeneric            = "Payment failed. Please try again."
)

// CardDeclineReasons are the canned reasons the card gateway picks from.
var CardDeclineReasons = []string{
	ReasonCardDeclined,
	ReasonInsufficientFunds,
	ReasonCardVerification,
}

// CheckoutSession tracks the single in-flight payment attempt of a session.
//
//	idle -> processing -> succeeded | failed
//	failed -> idle (retry, then processing again) | idle with the other method
//	succeeded -> idle only through Reset
type CheckoutSession struct {
	SessionID     string         `json:"session_id"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	Status        CheckoutStatus `json:"status"`
	FailureReason string         `json:"failure_reason,omitempty"`
	OrderToken    string         `json:"order_token,omitempty"`
	Attempts      int            `json:"attempts"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewCheckoutSession returns an idle session defaulting to PayPal.
func NewCheckoutSession(sessionID string, now time.Time) *CheckoutSession {
	return &CheckoutSession{
		SessionID:     sessionID,
		PaymentMethod: PaymentMethodPayPal,
		Status:        CheckoutIdle,
		UpdatedAt:     now,
	}
}

// TransitionError reports an action that is not allowed from the current
// status. It matches apperrors.ErrConflict.
type TransitionError struct {
	Action string
	From   CheckoutStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s checkout while %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return apperrors.ErrConflict
}

// SelectMethod switches the payment method. Allowed while idle or failed;
// the session ends up idle with no failure reason.
func (s *CheckoutSession) SelectMethod(m PaymentMethod, now time.Time) error {
	if s.Status != CheckoutIdle && s.Status != CheckoutFailed {
		return &TransitionError{Action: "select payment method", From: s.Status}
	}
	s.PaymentMethod = m
	s.toIdle(now)
	return nil
}

// Begin moves an idle session to processing.
func (s *CheckoutSession) Begin(now time.Time) error {
	if s.Status != CheckoutIdle {
		return &TransitionError{Action: "submit payment", From: s.Status}
	}
	s.Status = CheckoutProcessing
	s.FailureReason = ""
	s.OrderToken = ""
	s.Attempts++
	s.UpdatedAt = now
	return nil
}

// Succeed resolves a processing attempt successfully.
func (s *CheckoutSession) Succeed(now time.Time) error {
	if s.Status != CheckoutProcessing {
		return &TransitionError{Action: "complete payment", From: s.Status}
	}
	s.Status = CheckoutSucceeded
	s.FailureReason = ""
	s.UpdatedAt = now
	return nil
}

// Fail resolves a processing attempt as failed with a user-facing reason.
func (s *CheckoutSession) Fail(reason string, now time.Time) error {
	if s.Status != CheckoutProcessing {
		return &TransitionError{Action: "fail payment", From: s.Status}
	}
	if reason == "" {
		reason = ReasonGeneric
	}
	s.Status = CheckoutFailed
	s.FailureReason = reason
	s.UpdatedAt = now
	return nil
}

// Retry returns a failed session to idle and immediately begins a new
// attempt with the same method.
func (s *CheckoutSession) Retry(now time.Time) error {
	if s.Status != CheckoutFailed {
		return &TransitionError{Action: "retry payment", From: s.Status}
	}
	s.toIdle(now)
	return s.Begin(now)
}

// ChangeMethod returns a failed session to idle with the other method.
func (s *CheckoutSession) ChangeMethod(now time.Time) error {
	if s.Status != CheckoutFailed {
		return &TransitionError{Action: "change payment method", From: s.Status}
	}
	s.PaymentMethod = s.PaymentMethod.Opposite()
	s.toIdle(now)
	return nil
}

// Reset starts a fresh checkout after a successful one.
func (s *CheckoutSession) Reset(now time.Time) error {
	if s.Status != CheckoutSucceeded {
		return &TransitionError{Action: "reset", From: s.Status}
	}
	s.toIdle(now)
	s.Attempts = 0
	return nil
}

func (s *CheckoutSession) toIdle(now time.Time) {
	s.Status = CheckoutIdle
	s.FailureReason = ""
	s.OrderToken = ""
	s.UpdatedAt = now
}
