package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/utafrali/MallGo/internal/provider"
)

// Outcome fixes what CaptureOrder returns. A non-empty DeclineReason
// produces a *provider.DeclineError; a non-nil Err is returned as is.
type Outcome struct {
	PayerEmail    string
	DeclineReason string
	Err           error
	// CreateErr, when set, makes CreateOrder fail.
	CreateErr error
}

// Provider is a payment provider with a scripted outcome. It stands in for
// PayPal when no credentials are configured and lets tests force results.
type Provider struct {
	name string

	mu       sync.Mutex
	outcome  Outcome
	created  []int64
	captured []string
}

// NewProvider creates a mock provider that resolves with outcome.
func NewProvider(name string, outcome Outcome) *Provider {
	return &Provider{name: name, outcome: outcome}
}

// Name returns the configured provider name.
func (p *Provider) Name() string {
	return p.name
}

// SetOutcome replaces the scripted outcome for subsequent calls.
func (p *Provider) SetOutcome(o Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcome = o
}

// CreateOrder records the amount and returns a fresh token.
func (p *Provider) CreateOrder(_ context.Context, amount int64, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outcome.CreateErr != nil {
		return "", p.outcome.CreateErr
	}
	p.created = append(p.created, amount)
	return "mock_" + uuid.NewString(), nil
}

// CaptureOrder resolves token according to the scripted outcome.
func (p *Provider) CaptureOrder(_ context.Context, token string) (*provider.CaptureResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captured = append(p.captured, token)

	switch {
	case p.outcome.Err != nil:
		return nil, p.outcome.Err
	case p.outcome.DeclineReason != "":
		return nil, &provider.DeclineError{Reason: p.outcome.DeclineReason}
	}
	return &provider.CaptureResult{
		OrderToken: token,
		Status:     "COMPLETED",
		PayerEmail: p.outcome.PayerEmail,
	}, nil
}

// CreatedAmounts returns the amounts passed to CreateOrder so far.
func (p *Provider) CreatedAmounts() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.created...)
}

// CapturedTokens returns the tokens passed to CaptureOrder so far.
func (p *Provider) CapturedTokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.captured...)
}
