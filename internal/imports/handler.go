package imports

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forwardline/forwardline/internal/platform/httpx"
)

// Handler exposes the bootstrap import endpoints. Request bodies are raw
// CSV.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers import routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/admin/imports/ports", h.importPorts)
	r.Post("/admin/imports/airports", h.importAirports)
}

func (h *Handler) importPorts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ImportPorts(r.Context(), r.Body)
	if err != nil {
		if errors.Is(err, ErrMissingHeader) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		h.logger.Error("port import", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) importAirports(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ImportAirports(r.Context(), r.Body)
	if err != nil {
		if errors.Is(err, ErrMissingHeader) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		h.logger.Error("airport import", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
