package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/MallGo/internal/service"
	"github.com/utafrali/MallGo/pkg/httputil"
	"github.com/utafrali/MallGo/pkg/validator"
)

// CheckoutHandler serves the checkout state machine endpoints. Submissions
// return 202; clients poll GET /checkout until the status leaves processing.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// GetCheckout handles GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetCheckout(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// SelectMethod handles PUT /api/v1/checkout/method
func (h *CheckoutHandler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	var req service.SelectMethodInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	view, err := h.service.SelectPaymentMethod(r.Context(), sessionID(r), req.Method)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// Submit handles POST /api/v1/checkout/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitPaymentInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	view, err := h.service.SubmitPayment(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusAccepted, view)
}

// Retry handles POST /api/v1/checkout/retry
func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RetryPayment(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusAccepted, view)
}

// ChangeMethod handles POST /api/v1/checkout/change-method
func (h *CheckoutHandler) ChangeMethod(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ChangePaymentMethod(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// Reset handles POST /api/v1/checkout/reset
func (h *CheckoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ResetCheckout(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// GetReceipt handles GET /api/v1/checkout/receipt
func (h *CheckoutHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetReceipt(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, summary)
}
