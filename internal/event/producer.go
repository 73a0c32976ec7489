package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/MallGo/internal/domain"
	pkgkafka "github.com/utafrali/MallGo/pkg/kafka"
	"github.com/utafrali/MallGo/pkg/logger"
)

// Kafka topics for storefront domain events.
const (
	TopicCartUpdated       = "mall.cart.updated"
	TopicCartCleared       = "mall.cart.cleared"
	TopicCheckoutSucceeded = "mall.checkout.succeeded"
	TopicCheckoutFailed    = "mall.checkout.failed"
)

// Event subjects.
const (
	SubjectCart     = "cart"
	SubjectCheckout = "checkout"
)

// Source identifies events published by this service.
const Source = "mall-service"

// Publisher writes an event envelope to a topic. *pkgkafka.Producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	SessionID  string         `json:"session_id"`
	Items      []CartItemData `json:"items"`
	TotalItems int            `json:"total_items"`
	TotalPrice int64          `json:"total_price"`
	Currency   string         `json:"currency"`
}

// CartItemData is a cart line within cart events.
type CartItemData struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// CartClearedData is the payload of a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// CheckoutSucceededData is the payload of a checkout.succeeded event.
type CheckoutSucceededData struct {
	SessionID     string `json:"session_id"`
	OrderID       string `json:"order_id"`
	Total         int64  `json:"total"`
	ItemCount     int    `json:"item_count"`
	PaymentMethod string `json:"payment_method"`
	Currency      string `json:"currency"`
}

// CheckoutFailedData is the payload of a checkout.failed event.
type CheckoutFailedData struct {
	SessionID     string `json:"session_id"`
	PaymentMethod string `json:"payment_method"`
	Reason        string `json:"reason"`
	Attempt       int    `json:"attempt"`
}

// Producer publishes storefront domain events. A Producer with a nil
// Publisher drops every event, which is how a deployment without Kafka runs.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates an event producer. pub may be nil.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

// Enabled reports whether events are actually published.
func (p *Producer) Enabled() bool {
	return p != nil && p.pub != nil
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ProductID: item.ID,
			StoreID:   item.StoreID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	return p.publish(ctx, TopicCartUpdated, cart.SessionID, SubjectCart, CartUpdatedData{
		SessionID:  cart.SessionID,
		Items:      items,
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice(),
		Currency:   cart.Currency,
	})
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TopicCartCleared, sessionID, SubjectCart, CartClearedData{SessionID: sessionID})
}

// PublishCheckoutSucceeded publishes a checkout.succeeded event.
func (p *Producer) PublishCheckoutSucceeded(ctx context.Context, sessionID string, summary *domain.OrderSummary) error {
	return p.publish(ctx, TopicCheckoutSucceeded, sessionID, SubjectCheckout, CheckoutSucceededData{
		SessionID:     sessionID,
		OrderID:       summary.OrderID,
		Total:         summary.Total,
		ItemCount:     summary.ItemCount,
		PaymentMethod: string(summary.PaymentMethod),
		Currency:      summary.Currency,
	})
}

// PublishCheckoutFailed publishes a checkout.failed event.
func (p *Producer) PublishCheckoutFailed(ctx context.Context, session *domain.CheckoutSession) error {
	return p.publish(ctx, TopicCheckoutFailed, session.SessionID, SubjectCheckout, CheckoutFailedData{
		SessionID:     session.SessionID,
		PaymentMethod: string(session.PaymentMethod),
		Reason:        session.FailureReason,
		Attempt:       session.Attempts,
	})
}

func (p *Producer) publish(ctx context.Context, topic, sessionID, subject string, data any) error {
	if !p.Enabled() {
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, sessionID, subject, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.pub.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("topic", topic),
		slog.String("session_id", sessionID),
	)
	return nil
}
