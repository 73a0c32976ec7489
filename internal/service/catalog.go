package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/utafrali/MallGo/internal/domain"
	"github.com/utafrali/MallGo/internal/repository"
	apperrors "github.com/utafrali/MallGo/pkg/errors"
)

// CatalogService answers lookups over the catalog source.
type CatalogService struct {
	source repository.CatalogSource
}

// NewCatalogService creates a catalog service.
func NewCatalogService(source repository.CatalogSource) *CatalogService {
	return &CatalogService{source: source}
}

// GetProduct finds a product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	products, err := s.source.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for i := range products {
		if products[i].ID == id {
			p := products[i]
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("product", id)
}

// GetStore finds a store by id.
func (s *CatalogService) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	stores, err := s.source.Stores(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	for i := range stores {
		if stores[i].ID == id {
			st := stores[i]
			return &st, nil
		}
	}
	return nil, apperrors.NotFound("store", id)
}

// ListStores returns all stores, or those selling in category when it is
// non-empty.
func (s *CatalogService) ListStores(ctx context.Context, category string) ([]domain.Store, error) {
	stores, err := s.source.Stores(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	out := make([]domain.Store, 0, len(stores))
	for _, st := range stores {
		if category == "" || st.HasCategory(category) {
			out = append(out, st)
		}
	}
	return out, nil
}

// ListProducts filters products by store and category. Empty filters match
// everything.
func (s *CatalogService) ListProducts(ctx context.Context, storeID, category string) ([]domain.Product, error) {
	products, err := s.source.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if storeID != "" && p.StoreID != storeID {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ListStoreProducts lists a store's products, failing with not found for an
// unknown store.
func (s *CatalogService) ListStoreProducts(ctx context.Context, storeID, category string) ([]domain.Product, error) {
	if _, err := s.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	return s.ListProducts(ctx, storeID, category)
}

// ListCategories returns the sorted union of all store categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]string, error) {
	stores, err := s.source.Stores(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	out := []string{}
	for _, st := range stores {
		out = append(out, st.Categories...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// ListDeals returns the promotional banners.
func (s *CatalogService) ListDeals(ctx context.Context) ([]domain.Deal, error) {
	deals, err := s.source.Deals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load deals: %w", err)
	}
	if deals == nil {
		return []domain.Deal{}, nil
	}
	return deals, nil
}

// GetStoreTheme returns the store's palette, or the default palette when the
// store has none.
func (s *CatalogService) GetStoreTheme(ctx context.Context, storeID string) (domain.Palette, error) {
	st, err := s.GetStore(ctx, storeID)
	if err != nil {
		return domain.Palette{}, err
	}
	if st.Theme == nil {
		return domain.DefaultPalette, nil
	}
	return *st.Theme, nil
}
