package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ardenoak/storefront/api/middleware"
	"github.com/ardenoak/storefront/api/responses"
	"github.com/ardenoak/storefront/api/validators"
	cartsvc "github.com/ardenoak/storefront/internal/cart"
	"github.com/ardenoak/storefront/internal/catalog"
	pkgerrors "github.com/ardenoak/storefront/pkg/errors"
	"github.com/ardenoak/storefront/pkg/logger"
	"github.com/ardenoak/storefront/pkg/money"
)

type addItemRequest struct {
	ProductID   string            `json:"product_id" validate:"required"`
	Quantity    int               `json:"quantity"`
	Finish      catalog.OptionRef `json:"finish"`
	Upholstery  catalog.OptionRef `json:"upholstery"`
	Color       catalog.OptionRef `json:"color"`
	VariationID string            `json:"variation_id"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type cartLineView struct {
	Key           string            `json:"key"`
	ProductID     string            `json:"product_id"`
	Name          string            `json:"name,omitempty"`
	Quantity      int               `json:"quantity"`
	UnitPrice     priceView         `json:"unit_price"`
	SubtotalCents int64             `json:"subtotal_cents"`
	QuoteRequired bool              `json:"quote_required"`
	Image         string            `json:"image,omitempty"`
	Selection     cartsvc.Selection `json:"selection"`
}

type cartViewResponse struct {
	State        string         `json:"state"`
	Lines        []cartLineView `json:"lines"`
	ItemCount    int            `json:"item_count"`
	TotalCents   int64          `json:"total_cents"`
	TotalDisplay string         `json:"total_display"`
}

func newCartView(store *cartsvc.Store) cartViewResponse {
	view := store.Snapshot()
	resolver := store.Resolver()

	lines := make([]cartLineView, 0, len(view.Lines))
	for _, line := range view.Lines {
		quote := resolver.EffectivePrice(line.Product, line.Selection.Variation)
		images := resolver.EffectiveImages(line.Product, line.Selection.Variation)

		name := ""
		if line.Product != nil {
			name = line.Product.Name
		}

		lines = append(lines, cartLineView{
			Key:           line.Key(),
			ProductID:     line.ProductID,
			Name:          name,
			Quantity:      line.Quantity,
			UnitPrice:     priceView{PriceQuote: quote, Display: quote.Display()},
			SubtotalCents: line.Subtotal(resolver),
			QuoteRequired: quote.QuoteRequired,
			Image:         catalog.CarouselImage(images, 0),
			Selection:     line.Selection,
		})
	}

	return cartViewResponse{
		State:        string(view.State),
		Lines:        lines,
		ItemCount:    view.ItemCount,
		TotalCents:   view.TotalCents,
		TotalDisplay: money.ToDisplay(view.TotalCents),
	}
}

func storeForRequest(mgr *cartsvc.Manager, r *http.Request) (*cartsvc.Store, error) {
	if mgr == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable")
	}
	return mgr.Get(r.Context(), middleware.CartTokenFromContext(r.Context()))
}

// CartFetch exposes the current cart view for the session.
func CartFetch(mgr *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeForRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(store))
	}
}

// CartAddItem adds a product with its customization to the cart, accumulating
// quantity onto an equivalent existing line.
func CartAddItem(mgr *cartsvc.Manager, api CatalogAPI, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		store, err := storeForRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := api.GetProduct(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sel := cartsvc.Selection{
			Finish:     payload.Finish,
			Upholstery: payload.Upholstery,
			Color:      payload.Color,
		}

		if payload.VariationID != "" {
			variation, err := findVariation(r, api, product, payload.VariationID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			sel.Variation = variation
		}

		if err := store.AddItem(r.Context(), product, payload.Quantity, sel); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(store))
	}
}

// CartUpdateItem sets the quantity of an existing line. Unknown keys are a
// silent no-op so stale clients converge instead of erroring.
func CartUpdateItem(mgr *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeForRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.UpdateQuantity(r.Context(), lineKeyParam(r), payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(store))
	}
}

// CartRemoveItem deletes a line from the cart.
func CartRemoveItem(mgr *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeForRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.RemoveLine(r.Context(), lineKeyParam(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(store))
	}
}

// CartLogin merges the guest cart into the authenticated customer's backend
// cart. The merged view returns immediately; persistence completes in the
// background.
func CartLogin(mgr *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		store, err := storeForRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.SetAuthenticated(r.Context(), customerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(store))
	}
}

// CartLogout drops the backend cart reference and resets the session to an
// empty guest cart.
func CartLogout(mgr *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeForRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.SetGuest(r.Context())
		responses.WriteSuccess(w, newCartView(store))
	}
}

func lineKeyParam(r *http.Request) string {
	raw := chi.URLParam(r, "lineKey")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func findVariation(r *http.Request, api CatalogAPI, product *catalog.Product, variationID string) (*catalog.Variation, error) {
	for i := range product.Variations {
		if product.Variations[i].ID == variationID {
			return &product.Variations[i], nil
		}
	}

	variations, err := api.GetVariations(r.Context(), product.ID)
	if err != nil {
		return nil, err
	}
	for i := range variations {
		if variations[i].ID == variationID {
			return &variations[i], nil
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown variation for product").
		WithDetails(map[string]any{"variation_id": variationID})
}
