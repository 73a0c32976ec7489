package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/MallGo/internal/service"
	"github.com/utafrali/MallGo/pkg/httputil"
	"github.com/utafrali/MallGo/pkg/pagination"
)

// CatalogHandler serves the read-only catalog endpoints.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

// ListStores handles GET /api/v1/stores
func (h *CatalogHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.service.ListStores(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Paginate(stores, pagination.FromRequest(r)))
}

// GetStore handles GET /api/v1/stores/{id}
func (h *CatalogHandler) GetStore(w http.ResponseWriter, r *http.Request) {
	store, err := h.service.GetStore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, store)
}

// ListStoreProducts handles GET /api/v1/stores/{id}/products
func (h *CatalogHandler) ListStoreProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListStoreProducts(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Paginate(products, pagination.FromRequest(r)))
}

// GetStoreTheme handles GET /api/v1/stores/{id}/theme
func (h *CatalogHandler) GetStoreTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.service.GetStoreTheme(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, theme)
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.service.ListProducts(r.Context(), q.Get("store_id"), q.Get("category"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Paginate(products, pagination.FromRequest(r)))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cats)
}

// ListDeals handles GET /api/v1/deals
func (h *CatalogHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.service.ListDeals(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, deals)
}
