package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/MallGo/internal/domain"
	"github.com/utafrali/MallGo/internal/provider"
	"github.com/utafrali/MallGo/pkg/httpclient"
)

const (
	serviceName = "paypal"

	// tokenSkew refreshes the access token slightly before PayPal expires it.
	tokenSkew = 60 * time.Second
)

// Doer sends HTTP requests. Both *httpclient.Client and
// *httpclient.CircuitBreakerClient satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds the REST credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// Client talks to the PayPal Orders v2 API.
type Client struct {
	http   Doer
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewClient creates a PayPal client sending requests through doer.
func NewClient(doer Doer, cfg Config, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:   doer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Name returns "paypal".
func (c *Client) Name() string {
	return serviceName
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount amount `json:"amount"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  *struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer,omitempty"`
}

// CreateOrder creates a CAPTURE-intent order for amount minor units.
func (c *Client) CreateOrder(ctx context.Context, amt int64, currency string) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: amount{CurrencyCode: currency, Value: provider.FormatAmount(amt)},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal paypal order: %w", err)
	}

	var out orderResponse
	if err := c.call(ctx, "/v2/checkout/orders", body, &out); err != nil {
		return "", fmt.Errorf("create paypal order: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create paypal order: empty order id")
	}

	c.logger.DebugContext(ctx, "paypal order created",
		slog.String("order_id", out.ID),
		slog.String("status", out.Status),
	)
	return out.ID, nil
}

// CaptureOrder captures an approved order. Unprocessable responses such as
// INSTRUMENT_DECLINED or ORDER_NOT_APPROVED become a *provider.DeclineError.
func (c *Client) CaptureOrder(ctx context.Context, token string) (*provider.CaptureResult, error) {
	var out orderResponse
	err := c.call(ctx, "/v2/checkout/orders/"+url.PathEscape(token)+"/capture", []byte("{}"), &out)
	if err != nil {
		var re *httpclient.ResponseError
		if errors.As(err, &re) && re.StatusCode == http.StatusUnprocessableEntity {
			c.logger.InfoContext(ctx, "paypal capture declined",
				slog.String("order_id", token),
				slog.Any("issues", re.Issues),
			)
			return nil, &provider.DeclineError{Reason: domain.ReasonPayPalFailed}
		}
		return nil, fmt.Errorf("capture paypal order %s: %w", token, err)
	}
	if out.Status != "COMPLETED" {
		return nil, &provider.DeclineError{Reason: domain.ReasonPayPalFailed}
	}

	res := &provider.CaptureResult{OrderToken: out.ID, Status: out.Status}
	if out.Payer != nil {
		res.PayerEmail = out.Payer.EmailAddress
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, path string, body []byte, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PayPal-Request-Id", uuid.NewString())

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode >= 400 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("fetch paypal token: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch paypal token: %w", httpclient.ParseResponseError(resp, serviceName))
	}
	defer func() { _ = resp.Body.Close() }()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode paypal token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("fetch paypal token: empty access token")
	}

	c.accessToken = tr.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSkew)
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
}
