package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utafrali/MallGo/internal/domain"
	"github.com/utafrali/MallGo/internal/event"
	"github.com/utafrali/MallGo/internal/provider"
	"github.com/utafrali/MallGo/internal/repository"
	"github.com/utafrali/MallGo/internal/scheduler"
	apperrors "github.com/utafrali/MallGo/pkg/errors"
	"github.com/utafrali/MallGo/pkg/httpclient"
	"github.com/utafrali/MallGo/pkg/tracing"
)

const tracerName = "mall/checkout"

// CircuitOpenFallback replaces ErrCircuitOpen from the PayPal breaker with a
// service unavailable error.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("payment provider is temporarily unavailable")
}

// CheckoutConfig holds pricing and payment timing.
type CheckoutConfig struct {
	TaxRateBPS int64
	// PaymentDelay elapses between submission and the provider call.
	PaymentDelay time.Duration
	// PaymentTimeout bounds the provider calls of one attempt. Zero means
	// no bound.
	PaymentTimeout time.Duration
}

// SelectMethodInput chooses the payment method.
type SelectMethodInput struct {
	Method domain.PaymentMethod `json:"method" validate:"required,oneof=paypal credit_card"`
}

// SubmitPaymentInput starts a payment attempt. Method overrides the
// session's method when set. Card is required for credit_card.
// PayPalOrderID carries an order the shopper already approved in the PayPal
// buttons; without it the service creates the order itself.
type SubmitPaymentInput struct {
	Method        domain.PaymentMethod `json:"method,omitempty" validate:"omitempty,oneof=paypal credit_card"`
	Card          *domain.CardDetails  `json:"card,omitempty"`
	PayPalOrderID string               `json:"paypal_order_id,omitempty" validate:"omitempty,max=64"`
}

// CheckoutView is a checkout session with a quote of the current cart.
type CheckoutView struct {
	Session *domain.CheckoutSession `json:"session"`
	Quote   domain.Quote            `json:"quote"`
}

// attempt is one scheduled payment resolution.
type attempt struct {
	sessionID string
	number    int
	method    domain.PaymentMethod
	quote     domain.Quote
	token     string
}

// CheckoutService runs the checkout state machine of each session. Payment
// attempts resolve asynchronously on the scheduler; callers poll
// GetCheckout for the outcome.
type CheckoutService struct {
	sessions  repository.CheckoutRepository
	receipts  repository.ReceiptRepository
	carts     *CartService
	providers map[domain.PaymentMethod]provider.Provider
	scheduler scheduler.Scheduler
	producer  *event.Producer
	locks     *Locker
	logger    *slog.Logger
	cfg       CheckoutConfig
	now       func() time.Time

	inflight sync.WaitGroup
	closing  atomic.Bool
}

// NewCheckoutService creates a checkout service. It shares the cart
// service's locks; checkout locks are always taken before cart locks.
func NewCheckoutService(
	sessions repository.CheckoutRepository,
	receipts repository.ReceiptRepository,
	carts *CartService,
	providers map[domain.PaymentMethod]provider.Provider,
	sched scheduler.Scheduler,
	producer *event.Producer,
	logger *slog.Logger,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		sessions:  sessions,
		receipts:  receipts,
		carts:     carts,
		providers: providers,
		scheduler: sched,
		producer:  producer,
		locks:     carts.locks,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetCheckout returns the session's checkout, idle with PayPal selected when
// none has started yet.
func (s *CheckoutService) GetCheckout(ctx context.Context, sessionID string) (*CheckoutView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, session)
}

// SelectPaymentMethod switches the method while idle or failed.
func (s *CheckoutService) SelectPaymentMethod(ctx context.Context, sessionID string, method domain.PaymentMethod) (*CheckoutView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if !method.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown payment method %q", method))
	}

	return s.transition(ctx, sessionID, "payment method selected", func(session *domain.CheckoutSession) error {
		return session.SelectMethod(method, s.now())
	})
}

// SubmitPayment validates the request and moves an idle session to
// processing. The attempt resolves after the configured payment delay.
func (s *CheckoutService) SubmitPayment(ctx context.Context, sessionID string, input SubmitPaymentInput) (*CheckoutView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if input.Method != "" && !input.Method.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown payment method %q", input.Method))
	}
	if s.closing.Load() {
		return nil, apperrors.ServiceUnavailable("checkout is shutting down")
	}

	unlock := s.locks.Lock(checkoutKey(sessionID))
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.CheckoutIdle {
		return nil, &domain.TransitionError{Action: "submit payment", From: session.Status}
	}

	method := session.PaymentMethod
	if input.Method != "" {
		method = input.Method
	}

	cart, err := s.lockedCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	now := s.now()
	if method == domain.PaymentMethodCreditCard {
		card := input.Card
		if card == nil {
			card = &domain.CardDetails{}
		}
		if fields := card.Validate(now); len(fields) > 0 {
			return nil, apperrors.Validation("card details are invalid", fields)
		}
	}
	if _, ok := s.providers[method]; !ok {
		return nil, apperrors.ServiceUnavailable(fmt.Sprintf("payment method %s is not available", method))
	}

	if method != session.PaymentMethod {
		if err := session.SelectMethod(method, now); err != nil {
			return nil, err
		}
	}
	if err := session.Begin(now); err != nil {
		return nil, err
	}
	if method == domain.PaymentMethodPayPal {
		session.OrderToken = input.PayPalOrderID
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	quote := domain.NewQuote(cart, s.cfg.TaxRateBPS)
	s.schedule(ctx, attempt{
		sessionID: sessionID,
		number:    session.Attempts,
		method:    method,
		quote:     quote,
		token:     session.OrderToken,
	})

	s.logger.InfoContext(ctx, "payment submitted",
		slog.String("session_id", sessionID),
		slog.String("method", string(method)),
		slog.Int("attempt", session.Attempts),
		slog.Int64("total", quote.Total),
	)
	return &CheckoutView{Session: session, Quote: quote}, nil
}

// RetryPayment starts a new attempt with the same method after a failure.
func (s *CheckoutService) RetryPayment(ctx context.Context, sessionID string) (*CheckoutView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if s.closing.Load() {
		return nil, apperrors.ServiceUnavailable("checkout is shutting down")
	}

	unlock := s.locks.Lock(checkoutKey(sessionID))
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.CheckoutFailed {
		return nil, &domain.TransitionError{Action: "retry payment", From: session.Status}
	}

	cart, err := s.lockedCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	if err := session.Retry(s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	quote := domain.NewQuote(cart, s.cfg.TaxRateBPS)
	s.schedule(ctx, attempt{
		sessionID: sessionID,
		number:    session.Attempts,
		method:    session.PaymentMethod,
		quote:     quote,
	})

	s.logger.InfoContext(ctx, "payment retried",
		slog.String("session_id", sessionID),
		slog.String("method", string(session.PaymentMethod)),
		slog.Int("attempt", session.Attempts),
	)
	return &CheckoutView{Session: session, Quote: quote}, nil
}

// ChangePaymentMethod returns a failed session to idle with the other
// method.
func (s *CheckoutService) ChangePaymentMethod(ctx context.Context, sessionID string) (*CheckoutView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	return s.transition(ctx, sessionID, "payment method changed", func(session *domain.CheckoutSession) error {
		return session.ChangeMethod(s.now())
	})
}

// ResetCheckout starts a new checkout after a successful one.
func (s *CheckoutService) ResetCheckout(ctx context.Context, sessionID string) (*CheckoutView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	return s.transition(ctx, sessionID, "checkout reset", func(session *domain.CheckoutSession) error {
		return session.Reset(s.now())
	})
}

// GetReceipt returns the order summary of the session's last successful
// checkout.
func (s *CheckoutService) GetReceipt(ctx context.Context, sessionID string) (*domain.OrderSummary, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	summary, err := s.receipts.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return summary, nil
}

// Drain stops accepting new attempts and waits for scheduled ones to
// resolve or for ctx to end.
func (s *CheckoutService) Drain(ctx context.Context) error {
	s.closing.Store(true)

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain checkout: %w", ctx.Err())
	}
}

func (s *CheckoutService) transition(
	ctx context.Context,
	sessionID, msg string,
	apply func(*domain.CheckoutSession) error,
) (*CheckoutView, error) {
	unlock := s.locks.Lock(checkoutKey(sessionID))
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := apply(session); err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, msg,
		slog.String("session_id", sessionID),
		slog.String("method", string(session.PaymentMethod)),
		slog.String("status", string(session.Status)),
	)
	return s.view(ctx, session)
}

func (s *CheckoutService) schedule(ctx context.Context, a attempt) {
	s.inflight.Add(1)
	checkoutsInFlight.Inc()

	// The attempt outlives the request but keeps its logger and trace.
	bg := context.WithoutCancel(ctx)
	s.scheduler.After(s.cfg.PaymentDelay, func() {
		defer s.inflight.Done()
		defer checkoutsInFlight.Dec()
		s.resolve(bg, a)
	})
}

func (s *CheckoutService) resolve(ctx context.Context, a attempt) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "checkout.resolve",
		tracing.SessionIDKey.String(a.sessionID),
		tracing.PaymentMethodKey.String(string(a.method)),
		tracing.AttemptKey.Int(a.number),
		tracing.AmountKey.Int64(a.quote.Total),
	)

	result, token, payErr := s.pay(ctx, a)
	defer func() { tracing.EndSpan(span, payErr) }()

	unlock := s.locks.Lock(checkoutKey(a.sessionID))
	defer unlock()

	session, err := s.sessions.Get(ctx, a.sessionID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load checkout session for resolution",
			slog.String("session_id", a.sessionID),
			slog.String("error", err.Error()),
		)
		return
	}
	if session.Status != domain.CheckoutProcessing || session.Attempts != a.number {
		checkoutOutcomes.WithLabelValues(string(a.method), outcomeStale).Inc()
		s.logger.WarnContext(ctx, "discarding stale payment resolution",
			slog.String("session_id", a.sessionID),
			slog.Int("attempt", a.number),
		)
		return
	}

	now := s.now()
	session.OrderToken = token

	var (
		outcome string
		summary *domain.OrderSummary
	)
	switch {
	case payErr != nil:
		reason, declined := failureReason(a.method, payErr)
		outcome = outcomeError
		if declined {
			outcome = outcomeDeclined
		}
		_ = session.Fail(reason, now)
		s.logger.WarnContext(ctx, "payment failed",
			slog.String("session_id", a.sessionID),
			slog.String("method", string(a.method)),
			slog.String("reason", reason),
			slog.String("error", payErr.Error()),
		)
	default:
		summary, err = s.complete(ctx, a, result, now)
		if err != nil {
			outcome = outcomeError
			_ = session.Fail(domain.ReasonProcessingFailed, now)
			s.logger.ErrorContext(ctx, "failed to complete successful payment",
				slog.String("session_id", a.sessionID),
				slog.String("error", err.Error()),
			)
			break
		}
		outcome = outcomeSucceeded
		_ = session.Succeed(now)
		s.logger.InfoContext(ctx, "payment succeeded",
			slog.String("session_id", a.sessionID),
			slog.String("order_id", summary.OrderID),
			slog.Int64("total", summary.Total),
		)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to save resolved checkout session",
			slog.String("session_id", a.sessionID),
			slog.String("error", err.Error()),
		)
	}
	checkoutOutcomes.WithLabelValues(string(a.method), outcome).Inc()

	if summary != nil {
		err = s.producer.PublishCheckoutSucceeded(ctx, a.sessionID, summary)
	} else {
		err = s.producer.PublishCheckoutFailed(ctx, session)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout event",
			slog.String("session_id", a.sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// pay creates (unless a token was supplied) and captures the provider order.
func (s *CheckoutService) pay(ctx context.Context, a attempt) (*provider.CaptureResult, string, error) {
	p, ok := s.providers[a.method]
	if !ok {
		return nil, a.token, fmt.Errorf("no provider for %s", a.method)
	}

	if s.cfg.PaymentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PaymentTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		checkoutDuration.WithLabelValues(string(a.method)).Observe(time.Since(start).Seconds())
	}()

	token := a.token
	if token == "" {
		var err error
		token, err = p.CreateOrder(ctx, a.quote.Total, a.quote.Currency)
		if err != nil {
			return nil, "", fmt.Errorf("%s create order: %w", p.Name(), err)
		}
	}

	result, err := p.CaptureOrder(ctx, token)
	if err != nil {
		return nil, token, fmt.Errorf("%s capture order: %w", p.Name(), err)
	}
	return result, token, nil
}

// complete records the receipt and empties the cart. The receipt is removed
// again when the cart cannot be cleared.
func (s *CheckoutService) complete(ctx context.Context, a attempt, result *provider.CaptureResult, now time.Time) (*domain.OrderSummary, error) {
	summary := &domain.OrderSummary{
		OrderID:       domain.NewOrderID(),
		Date:          now,
		Total:         a.quote.Total,
		ItemCount:     a.quote.ItemCount,
		Email:         result.PayerEmail,
		PaymentMethod: a.method,
		Currency:      a.quote.Currency,
	}
	if err := s.receipts.Save(ctx, a.sessionID, summary); err != nil {
		return nil, fmt.Errorf("save receipt: %w", err)
	}

	unlock := s.locks.Lock(cartKey(a.sessionID))
	defer unlock()
	if err := s.carts.clearLocked(ctx, a.sessionID); err != nil {
		// The attempt is reported as failed, so it must not leave a receipt.
		if delErr := s.receipts.Delete(ctx, a.sessionID); delErr != nil {
			err = errors.Join(err, fmt.Errorf("delete receipt: %w", delErr))
		}
		return nil, err
	}
	return summary, nil
}

// failureReason maps a provider error to the shopper-facing reason and
// reports whether the provider declined the payment.
func failureReason(method domain.PaymentMethod, err error) (string, bool) {
	var decline *provider.DeclineError
	switch {
	case errors.As(err, &decline):
		return decline.Reason, true
	case errors.Is(err, httpclient.ErrCircuitOpen), errors.Is(err, apperrors.ErrServiceUnavail):
		return domain.ReasonServiceUnavailable, false
	case method == domain.PaymentMethodPayPal:
		return domain.ReasonPayPalFailed, false
	default:
		return domain.ReasonGeneric, false
	}
}

func (s *CheckoutService) load(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCheckoutSession(sessionID, s.now()), nil
		}
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return session, nil
}

func (s *CheckoutService) save(ctx context.Context, session *domain.CheckoutSession) error {
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save checkout session: %w", err)
	}
	return nil
}

func (s *CheckoutService) lockedCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	unlock := s.locks.Lock(cartKey(sessionID))
	defer unlock()
	return s.carts.load(ctx, sessionID)
}

func (s *CheckoutService) view(ctx context.Context, session *domain.CheckoutSession) (*CheckoutView, error) {
	cart, err := s.lockedCart(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	return &CheckoutView{Session: session, Quote: domain.NewQuote(cart, s.cfg.TaxRateBPS)}, nil
}
