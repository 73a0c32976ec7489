package repository

import (
	"context"

	"github.com/utafrali/MallGo/internal/domain"
)

// CartRepository stores carts by session id.
type CartRepository interface {
	// Get returns the session's cart or an error matching apperrors.ErrNotFound.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	// Save overwrites the session's cart and refreshes its expiry.
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// CheckoutRepository stores checkout sessions by session id.
type CheckoutRepository interface {
	Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	Save(ctx context.Context, session *domain.CheckoutSession) error
}

// ReceiptRepository stores the last order summary of a session.
type ReceiptRepository interface {
	Save(ctx context.Context, sessionID string, summary *domain.OrderSummary) error
	Get(ctx context.Context, sessionID string) (*domain.OrderSummary, error)
	Delete(ctx context.Context, sessionID string) error
}

// CatalogSource supplies the catalog. Implementations return data that
// callers must not mutate.
type CatalogSource interface {
	Stores(ctx context.Context) ([]domain.Store, error)
	Products(ctx context.Context) ([]domain.Product, error)
	Deals(ctx context.Context) ([]domain.Deal, error)
}
