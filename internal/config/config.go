package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/MallGo/pkg/config"
)

// Store backends for session-scoped state.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Session storage
	StoreBackend    string `env:"STORE_BACKEND" envDefault:"memory"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass       string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	SessionTTLHours int    `env:"SESSION_TTL_HOURS" envDefault:"24"`

	// Pricing
	Currency   string `env:"CURRENCY" envDefault:"USD"`
	TaxRateBPS int64  `env:"TAX_RATE_BPS" envDefault:"700"`

	// Payment simulation
	PaymentDelayMs        int     `env:"PAYMENT_DELAY_MS" envDefault:"1500"`
	PaymentTimeoutSeconds int     `env:"PAYMENT_TIMEOUT_SECONDS" envDefault:"10"`
	CardFailureThreshold  float64 `env:"CARD_FAILURE_THRESHOLD" envDefault:"0.2"`
	CardPayerEmail        string  `env:"CARD_PAYER_EMAIL" envDefault:"customer@example.com"`

	// PayPal REST; the mock provider is used when credentials are empty.
	PayPalClientID     string `env:"PAYPAL_CLIENT_ID" envDefault:""`
	PayPalClientSecret string `env:"PAYPAL_CLIENT_SECRET" envDefault:""`
	PayPalBaseURL      string `env:"PAYPAL_BASE_URL" envDefault:"https://api-m.sandbox.paypal.com"`

	// Circuit breaker for PayPal calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Per-session API rate limit; 0 disables limiting. The per-IP bucket
	// defaults to ten times the session bucket when left at 0.
	RateLimitRPS     float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst   int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	RateLimitIPRPS   float64 `env:"RATE_LIMIT_IP_RPS" envDefault:"0"`
	RateLimitIPBurst int     `env:"RATE_LIMIT_IP_BURST" envDefault:"0"`

	// CORS and profiling
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load mall config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SessionTTL is how long carts, checkout sessions and receipts are kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// PaymentDelay is the simulated latency before a submitted payment resolves.
func (c *Config) PaymentDelay() time.Duration {
	return time.Duration(c.PaymentDelayMs) * time.Millisecond
}

// PaymentTimeout bounds a single provider round trip.
func (c *Config) PaymentTimeout() time.Duration {
	return time.Duration(c.PaymentTimeoutSeconds) * time.Second
}

// PayPalConfigured reports whether live PayPal credentials are present.
func (c *Config) PayPalConfigured() bool {
	return c.PayPalClientID != "" && c.PayPalClientSecret != ""
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("invalid store backend %q: want %s or %s", c.StoreBackend, BackendMemory, BackendRedis)
	}
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("invalid session TTL: %d hours", c.SessionTTLHours)
	}
	if len(c.Currency) != 3 || strings.ToUpper(c.Currency) != c.Currency {
		return fmt.Errorf("invalid currency %q: want an ISO 4217 code", c.Currency)
	}
	if c.TaxRateBPS < 0 || c.TaxRateBPS > 10000 {
		return fmt.Errorf("invalid tax rate: %d bps", c.TaxRateBPS)
	}
	if c.PaymentDelayMs < 0 {
		return fmt.Errorf("invalid payment delay: %dms", c.PaymentDelayMs)
	}
	if c.PaymentTimeoutSeconds < 1 {
		return fmt.Errorf("invalid payment timeout: %ds", c.PaymentTimeoutSeconds)
	}
	if c.CardFailureThreshold < 0 || c.CardFailureThreshold > 1 {
		return fmt.Errorf("invalid card failure threshold: %v", c.CardFailureThreshold)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		return fmt.Errorf("invalid circuit breaker failure ratio: %v", c.CBFailureRatio)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("invalid OTEL sample rate: %v", c.OTELSampleRate)
	}
	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst < 1) {
		return fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.RateLimitIPRPS < 0 || c.RateLimitIPBurst < 0 {
		return fmt.Errorf("invalid IP rate limit: %v rps, burst %d", c.RateLimitIPRPS, c.RateLimitIPBurst)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("kafka enabled but no brokers configured")
	}
	for _, cidr := range c.PprofAllowedCIDRs {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			return fmt.Errorf("invalid pprof CIDR %q: %w", cidr, err)
		}
	}
	return nil
}
