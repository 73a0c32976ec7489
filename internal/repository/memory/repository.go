package memory

import (
	"context"
	"time"

	"github.com/utafrali/MallGo/internal/domain"
	apperrors "github.com/utafrali/MallGo/pkg/errors"
)

// CartRepository keeps carts in process memory.
type CartRepository struct{ s *store }

// NewCartRepository creates an in-memory cart repository whose entries
// expire after ttl.
func NewCartRepository(ttl time.Duration) *CartRepository {
	return &CartRepository{s: newStore(ttl)}
}

func (r *CartRepository) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	var cart domain.Cart
	ok, err := r.s.get(sessionID, &cart)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("cart", sessionID)
	}
	return &cart, nil
}

func (r *CartRepository) Save(_ context.Context, cart *domain.Cart) error {
	return r.s.set(cart.SessionID, cart)
}

func (r *CartRepository) Delete(_ context.Context, sessionID string) error {
	r.s.del(sessionID)
	return nil
}

// CheckoutRepository keeps checkout sessions in process memory.
type CheckoutRepository struct{ s *store }

// NewCheckoutRepository creates an in-memory checkout repository.
func NewCheckoutRepository(ttl time.Duration) *CheckoutRepository {
	return &CheckoutRepository{s: newStore(ttl)}
}

func (r *CheckoutRepository) Get(_ context.Context, sessionID string) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	ok, err := r.s.get(sessionID, &session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("checkout session", sessionID)
	}
	return &session, nil
}

func (r *CheckoutRepository) Save(_ context.Context, session *domain.CheckoutSession) error {
	return r.s.set(session.SessionID, session)
}

// ReceiptRepository keeps order summaries in process memory.
type ReceiptRepository struct{ s *store }

// NewReceiptRepository creates an in-memory receipt repository.
func NewReceiptRepository(ttl time.Duration) *ReceiptRepository {
	return &ReceiptRepository{s: newStore(ttl)}
}

func (r *ReceiptRepository) Save(_ context.Context, sessionID string, summary *domain.OrderSummary) error {
	return r.s.set(sessionID, summary)
}

func (r *ReceiptRepository) Get(_ context.Context, sessionID string) (*domain.OrderSummary, error) {
	var summary domain.OrderSummary
	ok, err := r.s.get(sessionID, &summary)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("receipt", sessionID)
	}
	return &summary, nil
}

func (r *ReceiptRepository) Delete(_ context.Context, sessionID string) error {
	r.s.del(sessionID)
	return nil
}
