package catalog

import "encoding/json"

// Product mirrors the upstream commerce API's product detail payload. The
// storefront never mutates products; they are read-only inputs to pricing and
// image resolution.
type Product struct {
	ID             string          `json:"id"`
	Slug           string          `json:"slug,omitempty"`
	Name           string          `json:"name"`
	BasePriceCents int64           `json:"base_price_cents"`
	PriceRange     *PriceRange     `json:"price_range_cents,omitempty"`
	Customizations *Customizations `json:"customizations,omitempty"`

	PrimaryImageURL string   `json:"primary_image_url,omitempty"`
	HoverImageURLs  []string `json:"hover_image_urls,omitempty"`

	Variations []Variation `json:"variations,omitempty"`
}

// PriceRange marks products whose price depends on the chosen configuration.
type PriceRange struct {
	MinCents int64 `json:"min"`
	MaxCents int64 `json:"max"`
}

// IsSpread reports whether the range is a true spread rather than a collapsed
// single price.
func (r *PriceRange) IsSpread() bool {
	return r != nil && r.MinCents != r.MaxCents
}

// Customizations lists the selectable dimensions for a product. Each entry
// may arrive as a plain name or an option object; OptionList normalizes both.
type Customizations struct {
	Finishes OptionList `json:"finishes,omitempty"`
	Fabrics  OptionList `json:"fabrics,omitempty"`
	Colors   OptionList `json:"colors,omitempty"`
}

// Variation is a purchasable SKU-level configuration of a product.
type Variation struct {
	ID                   string     `json:"id"`
	SKU                  string     `json:"sku"`
	PriceAdjustmentCents *int64     `json:"price_adjustment_cents,omitempty"`
	Finish               *OptionRef `json:"finish,omitempty"`
	Upholstery           *OptionRef `json:"upholstery,omitempty"`
	Color                *OptionRef `json:"color,omitempty"`
	StockStatus          string     `json:"stock_status,omitempty"`
	LeadTimeDays         int        `json:"lead_time_days,omitempty"`

	// Images is either a native JSON array (of strings or {url} objects) or a
	// JSON-encoded string containing one. It is decoded lazily by
	// Resolver.EffectiveImages so malformed payloads degrade to the product
	// fallback instead of failing the whole variation.
	Images json.RawMessage `json:"images,omitempty"`

	PrimaryImageURL string `json:"primary_image_url,omitempty"`
}
