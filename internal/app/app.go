package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/MallGo/internal/config"
	"github.com/utafrali/MallGo/internal/domain"
	"github.com/utafrali/MallGo/internal/event"
	handler "github.com/utafrali/MallGo/internal/handler/http"
	"github.com/utafrali/MallGo/internal/provider"
	"github.com/utafrali/MallGo/internal/provider/mock"
	"github.com/utafrali/MallGo/internal/provider/paypal"
	"github.com/utafrali/MallGo/internal/provider/simulated"
	"github.com/utafrali/MallGo/internal/repository"
	"github.com/utafrali/MallGo/internal/repository/memory"
	redisrepo "github.com/utafrali/MallGo/internal/repository/redis"
	"github.com/utafrali/MallGo/internal/repository/static"
	"github.com/utafrali/MallGo/internal/scheduler"
	"github.com/utafrali/MallGo/internal/service"
	"github.com/utafrali/MallGo/pkg/database"
	"github.com/utafrali/MallGo/pkg/health"
	"github.com/utafrali/MallGo/pkg/httpclient"
	pkgkafka "github.com/utafrali/MallGo/pkg/kafka"
	"github.com/utafrali/MallGo/pkg/middleware"
	"github.com/utafrali/MallGo/pkg/tracing"
)

const serviceName = "mall"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	checkout       *service.CheckoutService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

type repositories struct {
	carts    repository.CartRepository
	sessions repository.CheckoutRepository
	receipts repository.ReceiptRepository
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	healthHandler := health.NewHandler()

	// Session storage.
	repos, err := a.initRepositories(ctx, healthHandler)
	if err != nil {
		_ = a.Shutdown()
		return nil, err
	}

	// Catalog.
	src, err := static.NewSource()
	if err != nil {
		_ = a.Shutdown()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	// Kafka producer, optional.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Build the dependency graph.
	catalogService := service.NewCatalogService(src)
	cartService := service.NewCartService(repos.carts, repos.sessions, catalogService, eventProducer, service.NewLocker(), logger, cfg.Currency)
	a.checkout = service.NewCheckoutService(
		repos.sessions,
		repos.receipts,
		cartService,
		a.newProviders(),
		scheduler.Real{},
		eventProducer,
		logger,
		service.CheckoutConfig{
			TaxRateBPS:     cfg.TaxRateBPS,
			PaymentDelay:   cfg.PaymentDelay(),
			PaymentTimeout: cfg.PaymentTimeout(),
		},
	)

	// HTTP router. Service metrics registered on the default registry are
	// served alongside the per-app HTTP metrics.
	reg := prometheus.NewRegistry()
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	limits := middleware.RateLimitConfig{
		RPS:     cfg.RateLimitRPS,
		Burst:   cfg.RateLimitBurst,
		IPRPS:   cfg.RateLimitIPRPS,
		IPBurst: cfg.RateLimitIPBurst,
	}
	router := handler.NewRouter(
		handler.Services{Catalog: catalogService, Cart: cartService, Checkout: a.checkout},
		healthHandler,
		logger,
		handler.RouterConfig{
			ServiceName: serviceName,
			CORS:        cors,
			PprofCIDRs:  cfg.PprofAllowedCIDRs,
			RateLimit:   limits,
			Registerer:  reg,
			Gatherer:    prometheus.Gatherers{reg, prometheus.DefaultGatherer},
		},
	)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) initRepositories(ctx context.Context, healthHandler *health.Handler) (*repositories, error) {
	ttl := a.cfg.SessionTTL()

	if a.cfg.StoreBackend == config.BackendMemory {
		a.logger.Info("using in-memory session storage", slog.Duration("ttl", ttl))
		return &repositories{
			carts:    memory.NewCartRepository(ttl),
			sessions: memory.NewCheckoutRepository(ttl),
			receipts: memory.NewReceiptRepository(ttl),
		}, nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = a.cfg.RedisAddr
	redisCfg.Password = a.cfg.RedisPass
	redisCfg.DB = a.cfg.RedisDB

	rdb, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis",
		slog.String("addr", a.cfg.RedisAddr),
		slog.Int("db", a.cfg.RedisDB),
	)
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	return &repositories{
		carts:    redisrepo.NewCartRepository(rdb, ttl),
		sessions: redisrepo.NewCheckoutRepository(rdb, ttl),
		receipts: redisrepo.NewReceiptRepository(rdb, ttl),
	}, nil
}

// newProviders builds the payment providers. PayPal runs against the REST
// API behind a circuit breaker when credentials are configured and falls
// back to an always-approving mock otherwise.
func (a *App) newProviders() map[domain.PaymentMethod]provider.Provider {
	cfg := a.cfg

	var pp provider.Provider
	if cfg.PayPalConfigured() {
		baseClient := httpclient.New(httpclient.Config{
			Timeout:         cfg.PaymentTimeout(),
			MaxRetries:      2,
			RetryWaitMin:    200 * time.Millisecond,
			RetryWaitMax:    2 * time.Second,
			MaxConnsPerHost: 50,
		})
		cbCfg := httpclient.CircuitBreakerConfig{
			Name:         "paypal",
			MaxRequests:  cfg.CBMaxRequests,
			Interval:     time.Duration(cfg.CBInterval) * time.Second,
			Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
			FailureRatio: cfg.CBFailureRatio,
			MinRequests:  cfg.CBMinRequests,
		}
		cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, a.logger).
			WithFallback(service.CircuitOpenFallback)
		pp = paypal.NewClient(cbClient, paypal.Config{
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalClientSecret,
			BaseURL:      cfg.PayPalBaseURL,
		}, a.logger)
		a.logger.Info("paypal client initialized",
			slog.String("base_url", cfg.PayPalBaseURL),
			slog.Uint64("cb_max_requests", uint64(cbCfg.MaxRequests)),
			slog.Int("cb_timeout_seconds", cfg.CBTimeout),
		)
	} else {
		pp = mock.NewProvider(string(domain.PaymentMethodPayPal), mock.Outcome{PayerEmail: cfg.CardPayerEmail})
		a.logger.Warn("paypal credentials not configured, using mock provider")
	}

	card := simulated.NewGateway(
		simulated.WithFailureThreshold(cfg.CardFailureThreshold),
		simulated.WithPayerEmail(cfg.CardPayerEmail),
	)

	return map[domain.PaymentMethod]provider.Provider{
		domain.PaymentMethodPayPal:     pp,
		domain.PaymentMethodCreditCard: card,
	}
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Checkout (wait for scheduled payment attempts)
// 3. Tracer (flush spans of drained work)
// 4. Kafka producer
// 5. Redis client
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer httpCancel()
		if err := a.httpServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.checkout != nil {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), a.cfg.PaymentDelay()+a.cfg.PaymentTimeout())
		defer drainCancel()
		if err := a.checkout.Drain(drainCtx); err != nil {
			a.logger.Error("checkout drain error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
