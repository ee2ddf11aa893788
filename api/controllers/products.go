package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ardenoak/storefront/api/responses"
	"github.com/ardenoak/storefront/api/validators"
	"github.com/ardenoak/storefront/internal/catalog"
	pkgerrors "github.com/ardenoak/storefront/pkg/errors"
	"github.com/ardenoak/storefront/pkg/logger"
)

// CatalogAPI is the slice of the commerce client the product surface needs.
type CatalogAPI interface {
	GetProduct(ctx context.Context, idOrSlug string) (*catalog.Product, error)
	GetVariations(ctx context.Context, productID string) ([]catalog.Variation, error)
}

type priceView struct {
	catalog.PriceQuote
	Display string `json:"display"`
}

type productView struct {
	ID             string                  `json:"id"`
	Slug           string                  `json:"slug"`
	Name           string                  `json:"name"`
	Price          priceView               `json:"price"`
	Images         []string                `json:"images"`
	CarouselImage  string                  `json:"carousel_image,omitempty"`
	Customizations *catalog.Customizations `json:"customizations,omitempty"`
}

type variationView struct {
	ID           string    `json:"id"`
	SKU          string    `json:"sku"`
	Price        priceView `json:"price"`
	Images       []string  `json:"images"`
	StockStatus  string    `json:"stock_status,omitempty"`
	LeadTimeDays int       `json:"lead_time_days,omitempty"`
}

// ProductDetail resolves one product with its effective price and hover image
// rotation. The optional tick query selects the carousel frame.
func ProductDetail(api CatalogAPI, resolver *catalog.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil || resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		idOrSlug := validators.SanitizeString(chi.URLParam(r, "productId"), 128)
		if idOrSlug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		tick, err := validators.ParseQueryInt(r, "tick", 0, 0, 1<<20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := api.GetProduct(r.Context(), idOrSlug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote := resolver.EffectivePrice(product, nil)
		images := resolver.EffectiveImages(product, nil)

		responses.WriteSuccess(w, productView{
			ID:             product.ID,
			Slug:           product.Slug,
			Name:           product.Name,
			Price:          priceView{PriceQuote: quote, Display: quote.Display()},
			Images:         images,
			CarouselImage:  catalog.CarouselImage(images, tick),
			Customizations: product.Customizations,
		})
	}
}

// ProductVariations lists a product's variations, each with its own resolved
// price and image set.
func ProductVariations(api CatalogAPI, resolver *catalog.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil || resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		productID := validators.SanitizeString(chi.URLParam(r, "productId"), 128)
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		product, err := api.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variations, err := api.GetVariations(r.Context(), product.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]variationView, 0, len(variations))
		for i := range variations {
			v := &variations[i]
			quote := resolver.EffectivePrice(product, v)
			views = append(views, variationView{
				ID:           v.ID,
				SKU:          v.SKU,
				Price:        priceView{PriceQuote: quote, Display: quote.Display()},
				Images:       resolver.EffectiveImages(product, v),
				StockStatus:  v.StockStatus,
				LeadTimeDays: v.LeadTimeDays,
			})
		}

		responses.WriteSuccess(w, map[string]any{"variations": views})
	}
}
