package controllers

import (
	"context"
	"net/http"

	"go.uber.org/multierr"

	"github.com/streamhive/upload-service/api/responses"
	"github.com/streamhive/upload-service/pkg/config"
	pkgerrors "github.com/streamhive/upload-service/pkg/errors"
	"github.com/streamhive/upload-service/pkg/logger"
)

const envHeader = "X-StreamHive-Env"

// Pinger is the dependency health-check surface shared by the backing
// clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency and reports 503 with the
// aggregated failures when any is unreachable. Nil pingers are skipped so
// optional backends (redis) don't fail readiness when not configured.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx := r.Context()

		var errs error
		failing := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				errs = multierr.Append(errs, err)
				failing[name] = err.Error()
			}
		}

		if errs != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependencies unavailable").
					WithDetails(map[string]any{"failing": failing}))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
