package advances

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/forwardline/forwardline/internal/platform/httpx"
)

// Handler exposes the advance ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers advance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/advances/{id}", h.getAdvance)
	r.Post("/advances/validate", h.validateAdvance)
	r.Post("/expense-claims/{id}/consume", h.consumeClaim)
}

func (h *Handler) getAdvance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid advance id")
		return
	}
	advance, err := h.service.GetAdvance(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, advance)
}

func (h *Handler) validateAdvance(w http.ResponseWriter, r *http.Request) {
	var advance EmployeeAdvance
	if err := httpx.DecodeJSON(r, &advance); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid advance payload")
		return
	}
	if err := h.service.ValidateAdvance(r.Context(), advance); err != nil {
		httpx.BusinessRule(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (h *Handler) consumeClaim(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid claim id")
		return
	}
	claim, err := h.service.ConsumeClaim(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrProjectMismatch),
			errors.Is(err, ErrInsufficientBalance),
			errors.Is(err, ErrNoMatchingAdvanceLine):
			httpx.BusinessRule(w, err)
		default:
			h.logger.Error("consume claim", slog.Int64("claim", id), slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, claim)
}
