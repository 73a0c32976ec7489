package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/MallGo/internal/domain"
	apperrors "github.com/utafrali/MallGo/pkg/errors"
)

// CartRepository stores carts in Redis as JSON under cart:{session}.
type CartRepository struct{ s jsonStore }

// NewCartRepository creates a Redis-backed cart repository.
func NewCartRepository(client redis.UniversalClient, ttl time.Duration) *CartRepository {
	return &CartRepository{s: jsonStore{client: client, prefix: cartPrefix, kind: "cart", ttl: ttl}}
}

// Get loads a session's cart.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var cart domain.Cart
	ok, err := r.s.get(ctx, sessionID, &cart)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("cart", sessionID)
	}
	return &cart, nil
}

// Save writes the cart and resets its TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	return r.s.set(ctx, cart.SessionID, cart)
}

// Delete removes a session's cart.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	return r.s.del(ctx, sessionID)
}

// CheckoutRepository stores checkout sessions under checkout:{session}.
type CheckoutRepository struct{ s jsonStore }

// NewCheckoutRepository creates a Redis-backed checkout repository.
func NewCheckoutRepository(client redis.UniversalClient, ttl time.Duration) *CheckoutRepository {
	return &CheckoutRepository{s: jsonStore{client: client, prefix: checkoutPrefix, kind: "checkout session", ttl: ttl}}
}

func (r *CheckoutRepository) Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	ok, err := r.s.get(ctx, sessionID, &session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("checkout session", sessionID)
	}
	return &session, nil
}

func (r *CheckoutRepository) Save(ctx context.Context, session *domain.CheckoutSession) error {
	return r.s.set(ctx, session.SessionID, session)
}

// ReceiptRepository stores the last order summary under receipt:{session}.
type ReceiptRepository struct{ s jsonStore }

// NewReceiptRepository creates a Redis-backed receipt repository.
func NewReceiptRepository(client redis.UniversalClient, ttl time.Duration) *ReceiptRepository {
	return &ReceiptRepository{s: jsonStore{client: client, prefix: receiptPrefix, kind: "receipt", ttl: ttl}}
}

func (r *ReceiptRepository) Save(ctx context.Context, sessionID string, summary *domain.OrderSummary) error {
	return r.s.set(ctx, sessionID, summary)
}

func (r *ReceiptRepository) Get(ctx context.Context, sessionID string) (*domain.OrderSummary, error) {
	var summary domain.OrderSummary
	ok, err := r.s.get(ctx, sessionID, &summary)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("receipt", sessionID)
	}
	return &summary, nil
}

// Delete removes a session's receipt.
func (r *ReceiptRepository) Delete(ctx context.Context, sessionID string) error {
	return r.s.del(ctx, sessionID)
}
