package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-admin/internal/admin"
	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/purge"
	"github.com/odyssey-erp/odyssey-admin/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	AdminHandler *admin.Handler
	PurgeHandler *purge.Handler
	JobHandler   *jobs.Handler
	Metrics      *observability.Metrics
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/admin", func(r chi.Router) {
		if params.AdminHandler != nil {
			r.With(chimw.Timeout(requestTimeout(params.Config))).Route("/admins", params.AdminHandler.MountRoutes)
		}
		if params.PurgeHandler != nil {
			r.With(chimw.Timeout(purgeTimeout(params.Config))).Route("/logs", params.PurgeHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.With(chimw.Timeout(requestTimeout(params.Config))).Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusNotFound, httpx.Envelope{
			OK:    false,
			Error: &httpx.ErrorBody{Code: "not-found", Message: "no route for " + r.Method + " " + r.URL.Path},
		})
	})

	return r
}
