package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by every layer of the storefront.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrValidation     = errors.New("validation failed")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrPaymentFailed  = errors.New("payment failed")
)

// Machine-readable error codes returned in API error bodies.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeValidation       = "VALIDATION_ERROR"
	CodeConflict         = "CONFLICT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodePaymentFailed    = "PAYMENT_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	CodeRateLimited      = "RATE_LIMITED"
)

type class struct {
	sentinel error
	code     string
	status   int
}

// classes is ordered; the first sentinel matched by errors.Is wins.
var classes = []class{
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
	{ErrConflict, CodeConflict, http.StatusConflict},
	{ErrValidation, CodeValidation, http.StatusBadRequest},
	{ErrInvalidInput, CodeInvalidInput, http.StatusBadRequest},
	{ErrServiceUnavail, CodeUnavailable, http.StatusServiceUnavailable},
	{ErrPaymentFailed, CodePaymentFailed, http.StatusUnprocessableEntity},
}

// AppError is an application error carrying an HTTP status and an optional
// set of field-level messages for form validation failures.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(sentinel error, message string) *AppError {
	code, status := Classify(sentinel)
	return &AppError{Code: code, Message: message, Status: status, Err: sentinel}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newAppError(ErrInvalidInput, message)
}

// Validation creates a 400 error listing the offending fields.
func Validation(message string, fields map[string]string) *AppError {
	e := newAppError(ErrValidation, message)
	e.Fields = fields
	return e
}

// Conflict creates a 409 error, used for state machine transitions that are
// not allowed from the current state.
func Conflict(message string) *AppError {
	return newAppError(ErrConflict, message)
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return newAppError(ErrServiceUnavail, message)
}

// PaymentFailed creates a 422 error for a declined or failed payment.
func PaymentFailed(message string) *AppError {
	return newAppError(ErrPaymentFailed, message)
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Classify returns the API code and HTTP status for err. An *AppError in
// the chain decides; otherwise the first matching sentinel does, and
// anything else is internal.
func Classify(err error) (code string, status int) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Status
	}
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			return c.code, c.status
		}
	}
	return CodeInternal, http.StatusInternalServerError
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	_, status := Classify(err)
	return status
}
