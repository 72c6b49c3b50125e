package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forwardline/forwardline/internal/advances"
	"github.com/forwardline/forwardline/internal/backfill"
	"github.com/forwardline/forwardline/internal/consol"
	"github.com/forwardline/forwardline/internal/imports"
	"github.com/forwardline/forwardline/internal/observability"
	"github.com/forwardline/forwardline/internal/projects"
	"github.com/forwardline/forwardline/internal/rates"
	"github.com/forwardline/forwardline/internal/reports"
	"github.com/forwardline/forwardline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Pool   *pgxpool.Pool

	AdvancesHandler *advances.Handler
	ConsolHandler   *consol.Handler
	RatesHandler    *rates.Handler
	ProjectsHandler *projects.Handler
	ReportsHandler  *reports.Handler
	BackfillHandler *backfill.Handler
	ImportsHandler  *imports.Handler
	JobHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				params.Logger.Warn("healthz db ping", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.AdvancesHandler != nil {
			params.AdvancesHandler.MountRoutes(api)
		}
		if params.ConsolHandler != nil {
			params.ConsolHandler.MountRoutes(api)
		}
		if params.RatesHandler != nil {
			params.RatesHandler.MountRoutes(api)
		}
		if params.ProjectsHandler != nil {
			params.ProjectsHandler.MountRoutes(api)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(api)
		}
		if params.BackfillHandler != nil {
			params.BackfillHandler.MountRoutes(api)
		}
		if params.ImportsHandler != nil {
			params.ImportsHandler.MountRoutes(api)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			params.JobHandler.MountRoutes(jr)
		})
	}

	return r
}
