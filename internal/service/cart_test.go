package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MallGo/internal/domain"
	"github.com/utafrali/MallGo/internal/repository/memory"
	apperrors "github.com/utafrali/MallGo/pkg/errors"
)

// --- Mock Repository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

// --- Mutable catalog ---

type fakeCatalog struct {
	products []domain.Product
}

func (f *fakeCatalog) Stores(context.Context) ([]domain.Store, error) { return nil, nil }
func (f *fakeCatalog) Deals(context.Context) ([]domain.Deal, error)   { return nil, nil }
func (f *fakeCatalog) Products(context.Context) ([]domain.Product, error) {
	return f.products, nil
}

func newMemoryCartService(t *testing.T) *CartService {
	return newTestCartService(t, memory.NewCartRepository(time.Hour), nil, newTestCatalog(t), nil)
}

func TestCartService_GetCart_EmptyForNewSession(t *testing.T) {
	s := newMemoryCartService(t)

	cart, err := s.GetCart(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", cart.SessionID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "USD", cart.Currency)
}

func TestCartService_GetCart_RequiresSession(t *testing.T) {
	s := newMemoryCartService(t)

	_, err := s.GetCart(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCartService_AddItem_SnapshotsCatalogProduct(t *testing.T) {
	s := newMemoryCartService(t)

	cart, err := s.AddItem(context.Background(), "sess-1", AddItemInput{ProductID: "4"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	item := cart.Items[0]
	assert.Equal(t, "4", item.ID)
	assert.Equal(t, "Razer Keyboard", item.Name)
	assert.Equal(t, int64(29999), item.Price)
	assert.Equal(t, "2", item.StoreID)
	assert.Equal(t, "/razer-keyboard.jpg", item.Image)
	assert.Equal(t, 1, item.Quantity)
}

func TestCartService_AddItem_RepeatedAddsCapAtTen(t *testing.T) {
	s := newMemoryCartService(t)
	ctx := context.Background()

	for calls := 1; calls <= 13; calls++ {
		cart, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1"})
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, min(calls, domain.MaxQuantity), cart.Items[0].Quantity)
	}
}

func TestCartService_AddItem_Quantity(t *testing.T) {
	s := newMemoryCartService(t)
	ctx := context.Background()

	cart, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	cart, err = s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1", Quantity: 9})
	require.NoError(t, err)
	assert.Equal(t, 10, cart.Items[0].Quantity, "excess units are dropped")
}

func TestCartService_AddItem_Errors(t *testing.T) {
	s := newMemoryCartService(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "404"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1", Quantity: 11})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1", Quantity: -1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCartService_AddItem_KeepsPriceAtAddTime(t *testing.T) {
	catalog := &fakeCatalog{products: []domain.Product{{ID: "p", Name: "Mug", Price: 1000, StoreID: "s"}}}
	s := newTestCartService(t, memory.NewCartRepository(time.Hour), nil, NewCatalogService(catalog), nil)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "p"})
	require.NoError(t, err)

	catalog.products[0].Price = 1500
	cart, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "p"})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), cart.Items[0].Price)
	assert.Equal(t, int64(2000), cart.TotalPrice())
}

func TestCartService_UpdateQuantity(t *testing.T) {
	s := newMemoryCartService(t)
	ctx := context.Background()
	_, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1", Quantity: 2})
	require.NoError(t, err)

	for _, q := range []int{0, -3, 11, 100} {
		cart, err := s.UpdateQuantity(ctx, "sess-1", "1", q)
		require.NoError(t, err)
		assert.Equal(t, 2, cart.Items[0].Quantity, "quantity %d is ignored", q)
	}

	cart, err := s.UpdateQuantity(ctx, "sess-1", "missing", 5)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	cart, err = s.UpdateQuantity(ctx, "sess-1", "1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)

	stored, err := s.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 7, stored.Items[0].Quantity)
}

func TestCartService_RemoveItem_Idempotent(t *testing.T) {
	s := newMemoryCartService(t)
	ctx := context.Background()
	_, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1"})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "5"})
	require.NoError(t, err)

	cart, err := s.RemoveItem(ctx, "sess-1", "1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "5", cart.Items[0].ID)

	cart, err = s.RemoveItem(ctx, "sess-1", "1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCartService_TotalsTrackMutations(t *testing.T) {
	s := newMemoryCartService(t)
	ctx := context.Background()

	sum := func(c *domain.Cart) int64 {
		var total int64
		for _, it := range c.Items {
			total += it.Price * int64(it.Quantity)
		}
		return total
	}

	steps := []func() (*domain.Cart, error){
		func() (*domain.Cart, error) { return s.AddItem(ctx, "s", AddItemInput{ProductID: "1", Quantity: 2}) },
		func() (*domain.Cart, error) { return s.AddItem(ctx, "s", AddItemInput{ProductID: "3"}) },
		func() (*domain.Cart, error) { return s.UpdateQuantity(ctx, "s", "3", 4) },
		func() (*domain.Cart, error) { return s.RemoveItem(ctx, "s", "1") },
		func() (*domain.Cart, error) { return s.AddItem(ctx, "s", AddItemInput{ProductID: "5", Quantity: 10}) },
	}
	for i, step := range steps {
		cart, err := step()
		require.NoError(t, err)
		assert.Equal(t, sum(cart), cart.TotalPrice(), "step %d", i)
	}

	cart, err := s.GetCart(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(4*12999+10*19999), cart.TotalPrice())
	assert.Equal(t, 14, cart.TotalItems())
}

func TestCartService_ClearCart(t *testing.T) {
	s := newMemoryCartService(t)
	ctx := context.Background()
	_, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1"})
	require.NoError(t, err)

	require.NoError(t, s.ClearCart(ctx, "sess-1"))

	cart, err := s.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_RepositoryErrors(t *testing.T) {
	repo := new(mockCartRepository)
	s := newTestCartService(t, repo, nil, newTestCatalog(t), nil)
	ctx := context.Background()
	boom := errors.New("connection refused")

	repo.On("Get", mock.Anything, "sess-1").Return(nil, boom).Once()
	_, err := s.GetCart(ctx, "sess-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)

	repo.On("Get", mock.Anything, "sess-1").Return(nil, apperrors.NotFound("cart", "sess-1")).Once()
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(boom).Once()
	_, err = s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1"})
	assert.ErrorIs(t, err, boom)

	repo.On("Delete", mock.Anything, "sess-1").Return(boom).Once()
	assert.ErrorIs(t, s.ClearCart(ctx, "sess-1"), boom)

	repo.AssertExpectations(t)
}

func TestCartService_EditsFollowCheckoutStatus(t *testing.T) {
	checkouts := memory.NewCheckoutRepository(time.Hour)
	s := newTestCartService(t, memory.NewCartRepository(time.Hour), checkouts, newTestCatalog(t), nil)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1"})
	require.NoError(t, err)

	session := domain.NewCheckoutSession("sess-1", fixedNow)
	require.NoError(t, session.Begin(fixedNow))
	require.NoError(t, checkouts.Save(ctx, session))

	_, err = s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = s.AddItem(ctx, "sess-2", AddItemInput{ProductID: "1"})
	require.NoError(t, err, "other sessions are unaffected")

	require.NoError(t, session.Fail(domain.ReasonGeneric, fixedNow))
	require.NoError(t, checkouts.Save(ctx, session))

	cart, err := s.AddItem(ctx, "sess-1", AddItemInput{ProductID: "1"})
	require.NoError(t, err)
	assert.Equal(t, 2, cart.TotalItems())
}
