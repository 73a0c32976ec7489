package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MallGo/internal/domain"
	pkgkafka "github.com/utafrali/MallGo/pkg/kafka"
	"github.com/utafrali/MallGo/pkg/logger"
)

var _ Publisher = (*pkgkafka.Producer)(nil)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProducer_CartUpdated(t *testing.T) {
	pub := new(mockPublisher)
	p := NewProducer(pub, discard())

	cart := domain.NewCart("sess-1", "USD", time.Now())
	cart.AddItem(domain.CartItem{ID: "1", Name: "Ultraboost 22", Price: 18000, StoreID: "adidas"})
	cart.AddItem(domain.CartItem{ID: "1", Name: "Ultraboost 22", Price: 18000, StoreID: "adidas"})

	var got *pkgkafka.Event
	pub.On("Publish", mock.Anything, TopicCartUpdated, mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { got = args.Get(2).(*pkgkafka.Event) }).
		Return(nil).Once()

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.PublishCartUpdated(ctx, cart))
	pub.AssertExpectations(t)

	require.NotNil(t, got)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, SubjectCart, got.Subject)
	assert.Equal(t, Source, got.Source)
	assert.Equal(t, "corr-1", got.CorrelationID)

	var data CartUpdatedData
	require.NoError(t, got.Decode(&data))
	assert.Equal(t, 2, data.TotalItems)
	assert.Equal(t, int64(36000), data.TotalPrice)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "1", data.Items[0].ProductID)
}

func TestProducer_CheckoutEvents(t *testing.T) {
	pub := new(mockPublisher)
	p := NewProducer(pub, discard())
	pub.On("Publish", mock.Anything, TopicCheckoutSucceeded, mock.Anything).Return(nil).Once()
	pub.On("Publish", mock.Anything, TopicCheckoutFailed, mock.Anything).Return(nil).Once()
	pub.On("Publish", mock.Anything, TopicCartCleared, mock.Anything).Return(nil).Once()

	ctx := context.Background()
	require.NoError(t, p.PublishCheckoutSucceeded(ctx, "s", &domain.OrderSummary{OrderID: "ORD-1A2B3C4D", Total: 1070}))
	require.NoError(t, p.PublishCheckoutFailed(ctx, &domain.CheckoutSession{SessionID: "s", FailureReason: domain.ReasonGeneric}))
	require.NoError(t, p.PublishCartCleared(ctx, "s"))
	pub.AssertExpectations(t)
}

func TestProducer_PublishError(t *testing.T) {
	pub := new(mockPublisher)
	p := NewProducer(pub, discard())
	pub.On("Publish", mock.Anything, TopicCartCleared, mock.Anything).Return(errors.New("broker down"))

	err := p.PublishCartCleared(context.Background(), "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish mall.cart.cleared event")
}

func TestProducer_DisabledIsNoop(t *testing.T) {
	p := NewProducer(nil, discard())
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishCartCleared(context.Background(), "s"))

	var nilProducer *Producer
	assert.False(t, nilProducer.Enabled())
}
