package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/MallGo/internal/domain"
	"github.com/utafrali/MallGo/internal/event"
	"github.com/utafrali/MallGo/internal/repository"
	apperrors "github.com/utafrali/MallGo/pkg/errors"
)

// AddItemInput is the request to add a catalog product to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	// Quantity is how many units to add; zero means one.
	Quantity int `json:"quantity" validate:"omitempty,min=1,max=10"`
}

// UpdateQuantityInput sets a line's quantity. Values outside 1..10 are
// accepted and ignored.
type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartService implements the cart operations of a session.
type CartService struct {
	repo      repository.CartRepository
	checkouts repository.CheckoutRepository
	catalog   *CatalogService
	producer  *event.Producer
	locks     *Locker
	logger    *slog.Logger
	currency  string
	now       func() time.Time
}

// NewCartService creates a cart service. locks must be shared with the
// checkout service so that checkout resolution and cart edits serialise.
// checkouts is read to refuse edits while a payment is processing.
func NewCartService(
	repo repository.CartRepository,
	checkouts repository.CheckoutRepository,
	catalog *CatalogService,
	producer *event.Producer,
	locks *Locker,
	logger *slog.Logger,
	currency string,
) *CartService {
	return &CartService{
		repo:      repo,
		checkouts: checkouts,
		catalog:   catalog,
		producer:  producer,
		locks:     locks,
		logger:    logger,
		currency:  currency,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetCart returns the session's cart, or an empty one.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	return s.load(ctx, sessionID)
}

// AddItem adds input.Quantity units of a catalog product. The line is
// priced from the catalog the first time the product is added; units past
// the per-line maximum are dropped.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < domain.MinQuantity || qty > domain.MaxQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between %d and %d", domain.MinQuantity, domain.MaxQuantity))
	}

	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockForEdit(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for range qty {
		cart.AddItem(product.CartItem())
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", product.ID),
		slog.Int("quantity", qty),
	)
	return cart, nil
}

// UpdateQuantity sets the quantity of a line. Out-of-range quantities and
// unknown products leave the cart unchanged.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, qty int) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	unlock, err := s.lockForEdit(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !cart.UpdateQuantity(productID, qty) {
		return cart, nil
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
		slog.Int("quantity", qty),
	)
	return cart, nil
}

// RemoveItem drops a line. Removing an absent product is not an error.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	unlock, err := s.lockForEdit(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !cart.RemoveItem(productID) {
		return cart, nil
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
	)
	return cart, nil
}

// ClearCart empties the session's cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}

	unlock, err := s.lockForEdit(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.clearLocked(ctx, sessionID)
}

// lockForEdit takes the session's checkout lock, then its cart lock, and
// refuses the edit with a conflict while a payment is processing. The
// returned function releases both locks.
func (s *CartService) lockForEdit(ctx context.Context, sessionID string) (func(), error) {
	unlockCheckout := s.locks.Lock(checkoutKey(sessionID))
	unlockCart := s.locks.Lock(cartKey(sessionID))
	unlock := func() {
		unlockCart()
		unlockCheckout()
	}

	session, err := s.checkouts.Get(ctx, sessionID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return unlock, nil
	case err != nil:
		unlock()
		return nil, fmt.Errorf("get checkout session: %w", err)
	case session.Status == domain.CheckoutProcessing:
		unlock()
		return nil, apperrors.Conflict("cart cannot change while a payment is processing")
	}
	return unlock, nil
}

// clearLocked deletes the cart; the caller holds the cart lock.
func (s *CartService) clearLocked(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared", slog.String("session_id", sessionID))
	return nil
}

func (s *CartService) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(sessionID, s.currency, s.now()), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", cart.SessionID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
