package controllers

import (
	"net/http"

	"github.com/ardenoak/storefront/api/responses"
	"github.com/ardenoak/storefront/pkg/config"
	pkgerrors "github.com/ardenoak/storefront/pkg/errors"
	"github.com/ardenoak/storefront/pkg/logger"
	"github.com/ardenoak/storefront/pkg/redis"
)

const envHeader = "X-ArdenOak-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
