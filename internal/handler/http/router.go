package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/MallGo/internal/service"
	"github.com/utafrali/MallGo/pkg/health"
	"github.com/utafrali/MallGo/pkg/middleware"
)

// catalogMaxAge is how long clients may cache catalog reads, in seconds.
const catalogMaxAge = 300

// Services are the application services exposed over HTTP.
type Services struct {
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
}

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	PprofCIDRs  []string
	RateLimit   middleware.RateLimitConfig
	// Registerer and Gatherer back the HTTP metrics and /metrics.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter creates a chi router with every storefront route registered.
func NewRouter(svcs Services, healthHandler *health.Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	httpMetrics := middleware.NewHTTPMetrics(cfg.ServiceName, cfg.Registerer)

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(httpMetrics.Middleware)
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	catalogHandler := NewCatalogHandler(svcs.Catalog, logger)
	cartHandler := NewCartHandler(svcs.Cart, logger)
	checkoutHandler := NewCheckoutHandler(svcs.Checkout, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimit, logger))
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(catalogMaxAge))

			r.Get("/stores", catalogHandler.ListStores)
			r.Get("/stores/{id}", catalogHandler.GetStore)
			r.Get("/stores/{id}/products", catalogHandler.ListStoreProducts)
			r.Get("/stores/{id}/theme", catalogHandler.GetStoreTheme)
			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{id}", catalogHandler.GetProduct)
			r.Get("/categories", catalogHandler.ListCategories)
			r.Get("/deals", catalogHandler.ListDeals)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(SessionFromHeader)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{productId}", cartHandler.UpdateItemQuantity)
			r.Delete("/cart/items/{productId}", cartHandler.RemoveItem)

			r.Get("/checkout", checkoutHandler.GetCheckout)
			r.Put("/checkout/method", checkoutHandler.SelectMethod)
			r.Post("/checkout/submit", checkoutHandler.Submit)
			r.Post("/checkout/retry", checkoutHandler.Retry)
			r.Post("/checkout/change-method", checkoutHandler.ChangeMethod)
			r.Post("/checkout/reset", checkoutHandler.Reset)
			r.Get("/checkout/receipt", checkoutHandler.GetReceipt)
		})
	})

	return r
}
