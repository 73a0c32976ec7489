package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/utafrali/MallGo/internal/domain"
	"github.com/utafrali/MallGo/internal/event"
	"github.com/utafrali/MallGo/internal/provider"
	"github.com/utafrali/MallGo/internal/provider/mock"
	"github.com/utafrali/MallGo/internal/repository"
	"github.com/utafrali/MallGo/internal/repository/memory"
	"github.com/utafrali/MallGo/internal/repository/static"
	"github.com/utafrali/MallGo/internal/scheduler"
)

var fixedNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCatalog(t *testing.T) *CatalogService {
	t.Helper()
	src, err := static.NewSource()
	require.NoError(t, err)
	return NewCatalogService(src)
}

func newTestCartService(
	t *testing.T,
	repo repository.CartRepository,
	checkouts repository.CheckoutRepository,
	catalog *CatalogService,
	producer *event.Producer,
) *CartService {
	t.Helper()
	if checkouts == nil {
		checkouts = memory.NewCheckoutRepository(time.Hour)
	}
	if producer == nil {
		producer = event.NewProducer(nil, newTestLogger())
	}
	s := NewCartService(repo, checkouts, catalog, producer, NewLocker(), newTestLogger(), "USD")
	s.now = func() time.Time { return fixedNow }
	return s
}

type fixture struct {
	carts    *CartService
	checkout *CheckoutService
	sessions repository.CheckoutRepository
	sched    *scheduler.Manual
	paypal   *mock.Provider
	card     *mock.Provider
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	carts     repository.CartRepository
	receipts  repository.ReceiptRepository
	card      provider.Provider
	publisher event.Publisher
}

func withCarts(r repository.CartRepository) fixtureOption {
	return func(c *fixtureConfig) { c.carts = r }
}

func withReceipts(r repository.ReceiptRepository) fixtureOption {
	return func(c *fixtureConfig) { c.receipts = r }
}

func withCardProvider(p provider.Provider) fixtureOption {
	return func(c *fixtureConfig) { c.card = p }
}

func withPublisher(p event.Publisher) fixtureOption {
	return func(c *fixtureConfig) { c.publisher = p }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		sessions: memory.NewCheckoutRepository(time.Hour),
		sched:    scheduler.NewManual(),
		paypal:   mock.NewProvider("paypal", mock.Outcome{PayerEmail: "buyer@example.com"}),
		card:     mock.NewProvider("card", mock.Outcome{PayerEmail: "customer@example.com"}),
	}
	cfg := fixtureConfig{
		carts:    memory.NewCartRepository(time.Hour),
		receipts: memory.NewReceiptRepository(time.Hour),
		card:     f.card,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	producer := event.NewProducer(cfg.publisher, newTestLogger())
	f.carts = newTestCartService(t, cfg.carts, f.sessions, newTestCatalog(t), producer)
	f.checkout = NewCheckoutService(
		f.sessions,
		cfg.receipts,
		f.carts,
		map[domain.PaymentMethod]provider.Provider{
			domain.PaymentMethodPayPal:     f.paypal,
			domain.PaymentMethodCreditCard: cfg.card,
		},
		f.sched,
		producer,
		newTestLogger(),
		CheckoutConfig{
			TaxRateBPS:     700,
			PaymentDelay:   1500 * time.Millisecond,
			PaymentTimeout: 5 * time.Second,
		},
	)
	f.checkout.now = func() time.Time { return fixedNow }
	return f
}

// fillCart adds two t-shirts (29.99) and one cap (49.99).
func (f *fixture) fillCart(t *testing.T, sessionID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, sessionID, AddItemInput{ProductID: "1", Quantity: 2})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, sessionID, AddItemInput{ProductID: "2"})
	require.NoError(t, err)
}

func validCard() *domain.CardDetails {
	return &domain.CardDetails{
		CardNumber:     "4111 1111 1111 1111",
		ExpiryDate:     "12/28",
		CVV:            "123",
		CardholderName: "Jane Doe",
	}
}

type failingReceipts struct{}

func (failingReceipts) Save(context.Context, string, *domain.OrderSummary) error {
	return errors.New("receipt store unavailable")
}

func (failingReceipts) Get(context.Context, string) (*domain.OrderSummary, error) {
	return nil, errors.New("receipt store unavailable")
}

func (failingReceipts) Delete(context.Context, string) error {
	return errors.New("receipt store unavailable")
}

// undeletableCarts stores carts but cannot delete them.
type undeletableCarts struct {
	*memory.CartRepository
}

func (undeletableCarts) Delete(context.Context, string) error {
	return errors.New("cart store unavailable")
}
