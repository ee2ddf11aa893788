package middleware

import (
	"net/http"
	"strings"

	"github.com/ardenoak/storefront/api/responses"
	pkgauth "github.com/ardenoak/storefront/pkg/auth"
	"github.com/ardenoak/storefront/pkg/config"
	pkgerrors "github.com/ardenoak/storefront/pkg/errors"
	"github.com/ardenoak/storefront/pkg/logger"
)

// OptionalAuth parses a bearer token when one is present and seeds the request
// context with the customer identity. Requests without credentials pass
// through as guest traffic; a malformed token is still rejected.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgauth.ParseCustomerToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithCustomerID(r.Context(), claims.CustomerID)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, claims.CustomerID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCustomer rejects requests that did not carry a valid customer token.
func RequireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if CustomerIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
