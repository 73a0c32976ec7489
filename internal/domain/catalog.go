package domain

import "slices"

// Product is a static catalog entry.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       int64           `json:"price"`
	ImageURL    string          `json:"image_url"`
	StoreID     string          `json:"store_id"`
	Category    string          `json:"category"`
	Details     *ProductDetails `json:"details,omitempty"`
}

// ProductDetails holds optional descriptive attributes.
type ProductDetails struct {
	Brand    string   `json:"brand,omitempty"`
	Material string   `json:"material,omitempty"`
	Features []string `json:"features,omitempty"`
}

// CartItem snapshots the product as a cart line.
func (p Product) CartItem() CartItem {
	return CartItem{
		ID:      p.ID,
		Name:    p.Name,
		Price:   p.Price,
		Image:   p.ImageURL,
		StoreID: p.StoreID,
	}
}

// Store is a static catalog store.
type Store struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	Categories  []string `json:"categories"`
	Theme       *Palette `json:"theme,omitempty"`
}

// HasCategory reports whether the store sells in category.
func (s Store) HasCategory(category string) bool {
	return slices.Contains(s.Categories, category)
}

// Palette is a set of hex colours used to theme a store's pages.
type Palette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// DefaultPalette applies to stores without a theme of their own.
var DefaultPalette = Palette{
	Primary:    "#3B82F6",
	Secondary:  "#6B7280",
	Accent:     "#2563EB",
	Background: "#F9FAFB",
	Text:       "#111827",
}

// Deal is a promotional banner.
type Deal struct {
	Image string `json:"image"`
	Title string `json:"title"`
	Sale  string `json:"sale"`
}
