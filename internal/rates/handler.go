package rates

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/forwardline/forwardline/internal/platform/httpx"
)

// Handler exposes the rate quoting endpoint.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers rate routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/rates/quote", h.quote)
	r.Get("/rates/quote", h.quoteFromQuery)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote payload")
		return
	}
	h.respondQuote(w, r, req)
}

// quoteFromQuery accepts the same request as querystring parameters so the
// endpoint stays curl-friendly for operations staff.
func (h *Handler) quoteFromQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := QuoteRequest{
		LaneType:      q.Get("lane_type"),
		Origin:        q.Get("origin"),
		Destination:   q.Get("destination"),
		Mode:          q.Get("mode"),
		ContainerType: q.Get("container_type"),
	}
	if raw := q.Get("as_of_date"); raw != "" {
		asOf, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "as_of_date must be YYYY-MM-DD")
			return
		}
		req.AsOfDate = &asOf
	}
	if raw := q.Get("weight"); raw != "" {
		weight, err := parseFloat(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "weight must be numeric")
			return
		}
		req.Weight = &weight
	}
	if raw := q.Get("cbm"); raw != "" {
		cbm, err := parseFloat(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cbm must be numeric")
			return
		}
		req.CBM = &cbm
	}
	h.respondQuote(w, r, req)
}

func (h *Handler) respondQuote(w http.ResponseWriter, r *http.Request, req QuoteRequest) {
	if err := h.validator.Struct(req); err != nil {
		var fields []string
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields = append(fields, fieldErr.Field())
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request",
			"invalid quote request: "+strings.Join(fields, ", "))
		return
	}

	options, err := h.service.FindRates(r.Context(), req)
	if err != nil {
		h.logger.Error("find rates", slog.String("mode", req.Mode), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"options": options})
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}
