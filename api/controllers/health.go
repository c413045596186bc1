package controllers

import (
	"context"
	"net/http"

	"github.com/luciamoreno/gemashop-backend/api/responses"
	"github.com/luciamoreno/gemashop-backend/pkg/config"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/logger"
)

// Pinger is the readiness probe surface a dependency must expose.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gemashop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the hard dependencies answer.
func HealthReady(cfg *config.Config, db, cache Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gemashop-Env", cfg.App.Env)

		checks := map[string]string{}
		failed := false
		if db != nil {
			checks["database"] = "ok"
			if err := db.Ping(r.Context()); err != nil {
				checks["database"] = "unavailable"
				failed = true
			}
		}
		if cache != nil {
			checks["redis"] = "ok"
			if err := cache.Ping(r.Context()); err != nil {
				checks["redis"] = "unavailable"
				failed = true
			}
		}

		if failed {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
