package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ardenoak/storefront/internal/cart"
	"github.com/ardenoak/storefront/internal/catalog"
	"github.com/ardenoak/storefront/pkg/config"
	pkgerrors "github.com/ardenoak/storefront/pkg/errors"
	"github.com/ardenoak/storefront/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("commerce base url is required")
	errLoggerRequired  = errors.New("commerce logger is required")
)

// Client wraps the upstream commerce REST API that owns the catalog and
// authenticated carts, with centralized auth, logging, and error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logger.Logger
}

var _ cart.BackendAPI = (*Client)(nil)

// NewClient initializes the commerce API wrapper and validates the config.
func NewClient(cfg config.CommerceConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		logger:     logg,
	}, nil
}

// GetProduct fetches one product by ID or slug, including its customization
// option pools and any pre-resolved variations the upstream chose to embed.
func (c *Client) GetProduct(ctx context.Context, idOrSlug string) (*catalog.Product, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	c.log(ctx, "request", "get_product", map[string]any{"product": idOrSlug})

	var product catalog.Product
	if err := c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(idOrSlug), nil, &product); err != nil {
		c.log(ctx, "error", "get_product", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_product", map[string]any{"product_id": product.ID})
	return &product, nil
}

// GetVariations fetches the concrete variations of a product.
func (c *Client) GetVariations(ctx context.Context, productID string) ([]catalog.Variation, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	c.log(ctx, "request", "get_variations", map[string]any{"product_id": productID})

	var payload struct {
		Variations []catalog.Variation `json:"variations"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(productID)+"/variations", nil, &payload); err != nil {
		c.log(ctx, "error", "get_variations", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_variations", map[string]any{"count": len(payload.Variations)})
	return payload.Variations, nil
}

// FetchCart retrieves the authenticated customer's server-side cart. An
// upstream 404 means the customer has no cart yet, which is an empty cart.
func (c *Client) FetchCart(ctx context.Context, customerID string) (cart.Lines, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	c.log(ctx, "request", "fetch_cart", map[string]any{"customer_id": customerID})

	var payload struct {
		Items cart.Lines `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/customers/"+url.PathEscape(customerID)+"/cart", nil, &payload)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return cart.Lines{}, nil
		}
		c.log(ctx, "error", "fetch_cart", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "fetch_cart", map[string]any{"count": len(payload.Items)})
	return payload.Items, nil
}

// PersistCart replaces the customer's server-side cart with the given lines
// and returns the confirmed state as the upstream recorded it.
func (c *Client) PersistCart(ctx context.Context, customerID string, lines cart.Lines) (cart.Lines, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if lines == nil {
		lines = cart.Lines{}
	}

	c.log(ctx, "request", "persist_cart", map[string]any{
		"customer_id": customerID,
		"count":       len(lines),
	})

	body := struct {
		Items cart.Lines `json:"items"`
	}{Items: lines}

	var payload struct {
		Items cart.Lines `json:"items"`
	}
	if err := c.do(ctx, http.MethodPut, "/v1/customers/"+url.PathEscape(customerID)+"/cart", body, &payload); err != nil {
		c.log(ctx, "error", "persist_cart", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "persist_cart", map[string]any{"count": len(payload.Items)})
	return payload.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode commerce request")
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build commerce request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commerce request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapStatusError(resp.StatusCode, method, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode commerce response")
	}
	return nil
}

func (c *Client) mapStatusError(status int, method, path string) error {
	msg := fmt.Sprintf("commerce %s %s returned %d", method, path, status)
	return pkgerrors.New(domainCodeForStatus(status), msg)
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("commerce %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("commerce %s", phase))
	}
}
