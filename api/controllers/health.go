package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/plexo-core/api/responses"
	"github.com/angelmondragon/plexo-core/pkg/config"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"github.com/angelmondragon/plexo-core/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is any dependency with a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Plexo-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency. Nil pingers are reported as
// disabled. The mode is included so callers can tell an ephemeral session
// from a healthy persistent one.
func HealthReady(cfg *config.Config, logg *logger.Logger, sess Session, pingers map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		w.Header().Set("X-Plexo-Env", cfg.App.Env)

		checks := make(map[string]string, len(pingers))
		failed := false
		for name, p := range pingers {
			if p == nil {
				checks[name] = "disabled"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				failed = true
				checks[name] = "down"
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "health.dependency_down")
				}
				continue
			}
			checks[name] = "up"
		}

		if failed {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeStorageUnavailable, "dependency unavailable").WithDetails(checks))
			return
		}

		body := map[string]any{"status": "ready", "checks": checks}
		if sess != nil {
			body["mode"] = sess.Mode().String()
		}
		responses.WriteSuccess(w, body)
	}
}
