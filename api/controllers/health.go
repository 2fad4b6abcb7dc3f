package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/pkg/config"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/redis"
)

const readyTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FreshKit-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once Redis answers. Airtable is not probed; its
// rate limit is too tight to spend on health checks.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisClient redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FreshKit-Env", cfg.App.Env)
		if redisClient == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "redis unavailable"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := redisClient.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Dependency("redis", err))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
