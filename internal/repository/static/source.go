package static

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/utafrali/MallGo/internal/domain"
)

//go:embed catalog.json
var catalogJSON []byte

type catalog struct {
	Stores   []domain.Store   `json:"stores"`
	Products []domain.Product `json:"products"`
	Deals    []domain.Deal    `json:"deals"`
}

// Source serves the catalog compiled into the binary.
type Source struct {
	data catalog
}

// NewSource parses the embedded catalog.
func NewSource() (*Source, error) {
	return NewSourceFromJSON(catalogJSON)
}

// NewSourceFromJSON parses a catalog document with the same shape as the
// embedded one.
func NewSourceFromJSON(raw []byte) (*Source, error) {
	var c catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	stores := make(map[string]bool, len(c.Stores))
	for _, s := range c.Stores {
		if s.ID == "" || stores[s.ID] {
			return nil, fmt.Errorf("parse catalog: missing or duplicate store id %q", s.ID)
		}
		stores[s.ID] = true
	}
	seen := make(map[string]bool, len(c.Products))
	for _, p := range c.Products {
		if p.ID == "" || seen[p.ID] {
			return nil, fmt.Errorf("parse catalog: missing or duplicate product id %q", p.ID)
		}
		if !stores[p.StoreID] {
			return nil, fmt.Errorf("parse catalog: product %s references unknown store %q", p.ID, p.StoreID)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("parse catalog: product %s has negative price", p.ID)
		}
		seen[p.ID] = true
	}

	return &Source{data: c}, nil
}

func (s *Source) Stores(context.Context) ([]domain.Store, error) {
	return s.data.Stores, nil
}

func (s *Source) Products(context.Context) ([]domain.Product, error) {
	return s.data.Products, nil
}

func (s *Source) Deals(context.Context) ([]domain.Deal, error) {
	return s.data.Deals, nil
}
