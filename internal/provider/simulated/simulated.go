package simulated

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/utafrali/MallGo/internal/domain"
	"github.com/utafrali/MallGo/internal/provider"
)

// DefaultFailureThreshold declines draws at or below it, giving an 80%
// success rate.
const DefaultFailureThreshold = 0.2

// Rand is the randomness the gateway draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Gateway is a simulated card processor. It is a demo stand-in and moves no
// money: each capture succeeds when a uniform draw exceeds the failure
// threshold and otherwise declines with a canned reason.
type Gateway struct {
	rnd        Rand
	threshold  float64
	payerEmail string
	reasons    []string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRand sets the random source.
func WithRand(r Rand) Option {
	return func(g *Gateway) { g.rnd = r }
}

// WithFailureThreshold sets the decline threshold in [0,1].
func WithFailureThreshold(t float64) Option {
	return func(g *Gateway) { g.threshold = t }
}

// WithPayerEmail sets the email reported for successful captures.
func WithPayerEmail(email string) Option {
	return func(g *Gateway) { g.payerEmail = email }
}

// NewGateway creates a card gateway.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		rnd:        globalRand{},
		threshold:  DefaultFailureThreshold,
		payerEmail: "customer@example.com",
		reasons:    domain.CardDeclineReasons,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns "card".
func (g *Gateway) Name() string {
	return "card"
}

// CreateOrder issues a card authorization token.
func (g *Gateway) CreateOrder(_ context.Context, _ int64, _ string) (string, error) {
	return "card_" + uuid.NewString(), nil
}

// CaptureOrder draws the outcome.
func (g *Gateway) CaptureOrder(ctx context.Context, token string) (*provider.CaptureResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.rnd.Float64() <= g.threshold {
		return nil, &provider.DeclineError{Reason: g.reasons[g.rnd.IntN(len(g.reasons))]}
	}
	return &provider.CaptureResult{
		OrderToken: token,
		Status:     "COMPLETED",
		PayerEmail: g.payerEmail,
	}, nil
}
