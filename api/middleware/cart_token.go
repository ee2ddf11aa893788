package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ardenoak/storefront/pkg/logger"
)

const cartTokenHeader = "X-Cart-Token"

// CartToken reads the opaque cart token from the request header, minting a
// fresh one for first-time visitors. The token is echoed on the response so
// the client can persist it for subsequent requests.
func CartToken(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(cartTokenHeader))
			if token == "" {
				token = uuid.NewString()
			}

			w.Header().Set(cartTokenHeader, token)

			ctx := WithCartToken(r.Context(), token)
			if logg != nil {
				ctx = logg.WithCartToken(ctx, token)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
