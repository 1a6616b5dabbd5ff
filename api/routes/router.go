package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamhive/upload-service/api/controllers"
	"github.com/streamhive/upload-service/api/middleware"
	"github.com/streamhive/upload-service/pkg/auth"
	"github.com/streamhive/upload-service/pkg/config"
	"github.com/streamhive/upload-service/pkg/logger"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config  *config.Config
	Logger  *logger.Logger
	Uploads controllers.UploadService
	// Pingers feed the readiness endpoint, keyed by dependency name. Nil
	// entries are allowed for optional backends.
	Pingers map[string]controllers.Pinger
	Metrics http.Handler
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/uploads", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermissionUpload, logg)).
				Post("/", controllers.UploadVideo(deps.Uploads, cfg.Upload, logg))
			r.Get("/", controllers.MyUploads(deps.Uploads, logg))
			r.Get("/{uploadId}/status", controllers.UploadStatus(deps.Uploads, logg))
		})
	})

	return r
}
