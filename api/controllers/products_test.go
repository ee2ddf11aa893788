package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardenoak/storefront/internal/catalog"
	pkgerrors "github.com/ardenoak/storefront/pkg/errors"
)

type stubCatalog struct {
	product    *catalog.Product
	productErr error
	variations []catalog.Variation
}

func (s *stubCatalog) GetProduct(ctx context.Context, idOrSlug string) (*catalog.Product, error) {
	if s.productErr != nil {
		return nil, s.productErr
	}
	return s.product, nil
}

func (s *stubCatalog) GetVariations(ctx context.Context, productID string) ([]catalog.Variation, error) {
	return s.variations, nil
}

func productRouter(api CatalogAPI) http.Handler {
	resolver := catalog.NewResolver("", "")
	r := chi.NewRouter()
	r.Get("/api/v1/products/{productId}", ProductDetail(api, resolver, nil))
	r.Get("/api/v1/products/{productId}/variations", ProductVariations(api, resolver, nil))
	return r
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestProductDetailResolvesPriceAndImages(t *testing.T) {
	t.Parallel()

	api := &stubCatalog{product: &catalog.Product{
		ID:              "p1",
		Slug:            "oak-dining-table",
		Name:            "Oak Dining Table",
		BasePriceCents:  129900,
		PrimaryImageURL: "/img/primary.jpg",
		HoverImageURLs:  []string{"/img/hover-1.jpg"},
	}}

	rec := httptest.NewRecorder()
	productRouter(api).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/oak-dining-table", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "p1", data["id"])

	price, ok := data["price"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1,299.00", price["display"])
	assert.Equal(t, false, price["quote_required"])

	images, ok := data["images"].([]any)
	require.True(t, ok)
	// Primary, hover, primary again for the wraparound.
	assert.Equal(t, []any{"/img/primary.jpg", "/img/hover-1.jpg", "/img/primary.jpg"}, images)
	assert.Equal(t, "/img/primary.jpg", data["carousel_image"])
}

func TestProductDetailCarouselTick(t *testing.T) {
	t.Parallel()

	api := &stubCatalog{product: &catalog.Product{
		ID:              "p1",
		Name:            "Oak Dining Table",
		BasePriceCents:  129900,
		PrimaryImageURL: "/img/primary.jpg",
		HoverImageURLs:  []string{"/img/hover-1.jpg"},
	}}

	rec := httptest.NewRecorder()
	productRouter(api).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/p1?tick=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "/img/hover-1.jpg", data["carousel_image"])
}

func TestProductDetailRangePrice(t *testing.T) {
	t.Parallel()

	api := &stubCatalog{product: &catalog.Product{
		ID:             "p1",
		Name:           "Modular Sofa",
		BasePriceCents: 129900,
		PriceRange:     &catalog.PriceRange{MinCents: 129900, MaxCents: 189900},
	}}

	rec := httptest.NewRecorder()
	productRouter(api).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/p1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	price, ok := decodeData(t, rec)["price"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1,299.00 - 1,899.00", price["display"])
	assert.Equal(t, true, price["quote_required"])
}

func TestProductDetailNotFound(t *testing.T) {
	t.Parallel()

	api := &stubCatalog{productErr: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}

	rec := httptest.NewRecorder()
	productRouter(api).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductVariationsResolvePerVariation(t *testing.T) {
	t.Parallel()

	adj := int64(-5000)
	api := &stubCatalog{
		product: &catalog.Product{ID: "p1", Name: "Armchair", BasePriceCents: 89900},
		variations: []catalog.Variation{
			{ID: "v1", SKU: "CHR-V1", PriceAdjustmentCents: &adj, PrimaryImageURL: "/img/v1.jpg"},
			{ID: "v2", SKU: "CHR-V2"},
		},
	}

	rec := httptest.NewRecorder()
	productRouter(api).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/p1/variations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	variations, ok := decodeData(t, rec)["variations"].([]any)
	require.True(t, ok)
	require.Len(t, variations, 2)

	first, ok := variations[0].(map[string]any)
	require.True(t, ok)
	price, ok := first["price"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "849.00", price["display"])

	images, ok := first["images"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"/img/v1.jpg"}, images)
}
