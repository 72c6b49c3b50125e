package consol

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/forwardline/forwardline/internal/platform/httpx"
)

// Handler exposes consolidated shipment endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers consol shipment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/consols/{id}", h.getShipment)
	r.Post("/consols/{id}/split/purchase-invoices/{invoiceID}", h.splitPurchaseInvoice)
	r.Post("/consols/{id}/split/expense-claims/{claimID}", h.splitExpenseClaim)
	r.Post("/consols/{id}/sales-invoices", h.createSalesInvoices)
}

func (h *Handler) getShipment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid consol id")
		return
	}
	shipment, err := h.service.GetShipment(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shipment)
}

func (h *Handler) splitPurchaseInvoice(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid consol id")
		return
	}
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "invoiceID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	result, err := h.service.SplitPurchaseInvoice(r.Context(), shipmentID, invoiceID)
	if err != nil {
		h.respondSplitError(w, err, shipmentID)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) splitExpenseClaim(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid consol id")
		return
	}
	claimID, err := strconv.ParseInt(chi.URLParam(r, "claimID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid claim id")
		return
	}
	result, err := h.service.SplitExpenseClaim(r.Context(), shipmentID, claimID)
	if err != nil {
		h.respondSplitError(w, err, shipmentID)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) createSalesInvoices(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid consol id")
		return
	}
	var plan SellPlan
	if err := httpx.DecodeJSON(r, &plan); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sell plan payload")
		return
	}
	result, err := h.service.CreateSalesInvoicesPerMember(r.Context(), shipmentID, plan)
	if err != nil {
		h.respondSplitError(w, err, shipmentID)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondSplitError(w http.ResponseWriter, err error, shipmentID int64) {
	switch {
	case errors.Is(err, ErrSourceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNoMembers),
		errors.Is(err, ErrAllocationBasisZero),
		errors.Is(err, ErrInvalidAllocationMethod):
		httpx.BusinessRule(w, err)
	default:
		h.logger.Error("consol split", slog.Int64("shipment", shipmentID), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
