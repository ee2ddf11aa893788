package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ardenoak/storefront/pkg/money"
)

const defaultPlaceholderImage = "/images/product-placeholder.jpg"

// Resolver computes the effective price and image set for a (product,
// variation) pair.
type Resolver struct {
	placeholderImage string
	assetBaseURL     string
}

// NewResolver builds a resolver. An empty placeholder falls back to the
// built-in product placeholder path; assetBaseURL, when set, is prefixed onto
// relative image paths.
func NewResolver(placeholderImage, assetBaseURL string) *Resolver {
	if strings.TrimSpace(placeholderImage) == "" {
		placeholderImage = defaultPlaceholderImage
	}
	return &Resolver{
		placeholderImage: placeholderImage,
		assetBaseURL:     strings.TrimRight(assetBaseURL, "/"),
	}
}

// PriceQuote is the resolved per-unit price. Range-priced products quote the
// conservative minimum and are flagged for quote confirmation instead of
// final checkout pricing; so are products with no price at all.
type PriceQuote struct {
	Cents         int64 `json:"cents"`
	IsRange       bool  `json:"is_range"`
	MinCents      int64 `json:"min_cents,omitempty"`
	MaxCents      int64 `json:"max_cents,omitempty"`
	QuoteRequired bool  `json:"quote_required"`
}

// Display renders the quote for the storefront.
func (q PriceQuote) Display() string {
	if q.IsRange {
		return fmt.Sprintf("%s - %s", money.ToDisplay(q.MinCents), money.ToDisplay(q.MaxCents))
	}
	return money.ToDisplay(q.Cents)
}

// EffectivePrice resolves the per-unit price for the product under the given
// variation. A variation price adjustment always wins; otherwise a spread
// price range quotes its minimum; otherwise the base price, where zero means
// contact-for-quote.
func (r *Resolver) EffectivePrice(product *Product, variation *Variation) PriceQuote {
	if product == nil {
		return PriceQuote{QuoteRequired: true}
	}

	if variation != nil && variation.PriceAdjustmentCents != nil {
		return PriceQuote{Cents: money.Add(product.BasePriceCents, *variation.PriceAdjustmentCents)}
	}

	if product.PriceRange.IsSpread() {
		return PriceQuote{
			Cents:         product.PriceRange.MinCents,
			IsRange:       true,
			MinCents:      product.PriceRange.MinCents,
			MaxCents:      product.PriceRange.MaxCents,
			QuoteRequired: true,
		}
	}

	return PriceQuote{
		Cents:         product.BasePriceCents,
		QuoteRequired: product.BasePriceCents == 0,
	}
}

// EffectiveImages resolves the ordered image list for the product under the
// given variation. Variation images win when present; the product fallback
// preserves the primary, hover-1, hover-2, primary ordering the hover
// carousel depends on. The result is never empty: a product with no images
// resolves to the placeholder.
func (r *Resolver) EffectiveImages(product *Product, variation *Variation) []string {
	if variation != nil {
		if imgs := parseVariationImages(variation.Images); len(imgs) > 0 {
			return r.absolutize(imgs)
		}
		if variation.PrimaryImageURL != "" {
			return []string{r.absURL(variation.PrimaryImageURL)}
		}
	}

	if product == nil || product.PrimaryImageURL == "" {
		return []string{r.absURL(r.placeholderImage)}
	}

	images := make([]string, 0, len(product.HoverImageURLs)+2)
	images = append(images, product.PrimaryImageURL)
	images = append(images, product.HoverImageURLs...)
	if len(product.HoverImageURLs) > 0 {
		images = append(images, product.PrimaryImageURL)
	}
	return r.absolutize(images)
}

// CarouselImage returns the image shown at the given tick of the hover
// carousel: index sequence 0,1,...,N-1,0,1,... over the resolved list.
func CarouselImage(images []string, tick int) string {
	if len(images) == 0 {
		return ""
	}
	if tick < 0 {
		tick = 0
	}
	return images[tick%len(images)]
}

type imageEntry struct {
	URL string `json:"url"`
}

// parseVariationImages tolerates the three shapes the upstream sends for
// variation images: a JSON array of strings, a JSON array of {url} objects,
// or a JSON string wrapping either. Malformed input yields nil so callers
// fall through to the product's own images.
func parseVariationImages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	data := []byte(raw)
	var wrapped string
	if err := json.Unmarshal(data, &wrapped); err == nil {
		data = []byte(wrapped)
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err == nil {
		return dropEmpty(urls)
	}

	var entries []imageEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		urls = make([]string, 0, len(entries))
		for _, entry := range entries {
			urls = append(urls, entry.URL)
		}
		return dropEmpty(urls)
	}

	return nil
}

func dropEmpty(urls []string) []string {
	kept := urls[:0]
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func (r *Resolver) absolutize(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = r.absURL(u)
	}
	return out
}

func (r *Resolver) absURL(u string) string {
	if r.assetBaseURL == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return r.assetBaseURL + u
}
