package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ardenoak/storefront/api/controllers"
	"github.com/ardenoak/storefront/api/middleware"
	cartsvc "github.com/ardenoak/storefront/internal/cart"
	"github.com/ardenoak/storefront/internal/catalog"
	"github.com/ardenoak/storefront/pkg/config"
	"github.com/ardenoak/storefront/pkg/logger"
	"github.com/ardenoak/storefront/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	catalogAPI controllers.CatalogAPI,
	resolver *catalog.Resolver,
	cartManager *cartsvc.Manager,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	mutationPolicy := middleware.NewRateLimitPolicy(
		"cart",
		cfg.RateLimit.Window,
		cfg.RateLimit.IPLimit,
		cfg.RateLimit.TokenLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/{productId}", controllers.ProductDetail(catalogAPI, resolver, logg))
			r.Get("/{productId}/variations", controllers.ProductVariations(catalogAPI, resolver, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.CartToken(logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Get("/", controllers.CartFetch(cartManager, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(mutationPolicy, redisClient, logg))
				r.Post("/items", controllers.CartAddItem(cartManager, catalogAPI, logg))
				r.Put("/items/{lineKey}", controllers.CartUpdateItem(cartManager, logg))
				r.Delete("/items/{lineKey}", controllers.CartRemoveItem(cartManager, logg))
				r.With(middleware.RequireCustomer(logg)).Post("/login", controllers.CartLogin(cartManager, logg))
				r.Post("/logout", controllers.CartLogout(cartManager, logg))
			})
		})
	})

	return r
}
