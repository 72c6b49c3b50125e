package backfill

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forwardline/forwardline/internal/platform/httpx"
)

// Handler exposes the repair utilities and release gates on admin routes.
// Mutating runs require an explicit dry_run=false; the default never writes.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/admin/backfill/division", h.runBackfill((*Service).BackfillDivision))
	r.Post("/admin/backfill/expense-projects", h.runBackfill((*Service).BackfillExpenseProjects))
	r.Get("/admin/gates", h.gates)
}

func (h *Handler) runBackfill(run func(*Service, context.Context, bool) (Summary, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dryRun := r.URL.Query().Get("dry_run") != "false"
		summary, err := run(h.service, r.Context(), dryRun)
		if err != nil {
			h.logger.Error("backfill run", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, summary)
	}
}

func (h *Handler) gates(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.RunGates(r.Context())
	if err != nil {
		h.logger.Error("release gates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"gates": results})
}
