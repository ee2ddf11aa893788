package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardenoak/storefront/api/routes"
	cartsvc "github.com/ardenoak/storefront/internal/cart"
	"github.com/ardenoak/storefront/internal/catalog"
	"github.com/ardenoak/storefront/internal/commerce"
	"github.com/ardenoak/storefront/pkg/config"
	"github.com/ardenoak/storefront/pkg/instance"
	"github.com/ardenoak/storefront/pkg/logger"
	"github.com/ardenoak/storefront/pkg/metrics"
	"github.com/ardenoak/storefront/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	commerceClient, err := commerce.NewClient(cfg.Commerce, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create commerce client", err)
		os.Exit(1)
	}

	resolver := catalog.NewResolver(cfg.Cart.PlaceholderImageURL, cfg.Commerce.AssetBaseURL)

	guestStore, err := cartsvc.NewRedisGuestStore(redisClient, cfg.Cart.GuestTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create guest cart store", err)
		os.Exit(1)
	}

	cartManager, err := cartsvc.NewManager(cartsvc.ManagerParams{
		Resolver: resolver,
		Guest:    guestStore,
		Backend:  commerceClient,
		Logger:   logg,
		Metrics:  metrics.NewCartSyncMetrics(prometheus.DefaultRegisterer),
		Sync: cartsvc.SyncConfig{
			MaxAttempts: cfg.Cart.SyncMaxAttempts,
			BaseBackoff: cfg.Cart.SyncBaseBackoff,
			MaxBackoff:  cfg.Cart.SyncMaxBackoff,
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart manager", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting storefront server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, commerceClient, resolver, cartManager),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "storefront server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}

		// Let in-flight backend cart syncs drain before exiting.
		cartManager.Flush()
	}
}
