package projects

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/forwardline/forwardline/internal/platform/httpx"
	"github.com/forwardline/forwardline/internal/shared"
)

// Handler exposes project endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/projects", h.create)
	r.Get("/projects/{name}", h.get)
	r.Get("/projects/{name}/documents", h.listDocuments)
	r.Get("/projects/{name}/dashboard", h.dashboard)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var project Project
	if err := httpx.DecodeJSON(r, &project); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid project payload")
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	created, err := h.service.Create(r.Context(), scope, project)
	if err != nil {
		if errors.Is(err, shared.ErrMissingRequiredField) {
			httpx.BusinessRule(w, err)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	project, err := h.service.Get(r.Context(), scope, chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	doctype := r.URL.Query().Get("doctype")
	if doctype == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "doctype query parameter is required")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "limit must be an integer")
			return
		}
		limit = parsed
	}

	scope := shared.ScopeFromContext(r.Context())
	docs, err := h.service.ListByProject(r.Context(), scope, doctype, chi.URLParam(r, "name"), limit)
	if err != nil {
		if errors.Is(err, ErrUnknownDoctype) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		h.logger.Error("list project documents", slog.String("doctype", doctype), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	dashboard, err := h.service.Dashboard(r.Context(), scope, chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard)
}
