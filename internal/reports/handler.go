package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/forwardline/forwardline/internal/platform/httpx"
	"github.com/forwardline/forwardline/internal/shared"
)

// Handler exposes report endpoints. CSV exports are rate limited since they
// scan whole tables.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/advance-utilization", h.advanceUtilization)
	r.Get("/reports/service-breakdown", h.serviceBreakdown)
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Get("/reports/advance-utilization.csv", h.advanceUtilizationCSV)
		r.Get("/reports/service-breakdown.csv", h.serviceBreakdownCSV)
	})
}

func (h *Handler) advanceUtilization(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.AdvanceUtilization(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		h.logger.Error("advance utilization report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) advanceUtilizationCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.AdvanceUtilization(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		h.logger.Error("advance utilization export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"Project", "Advance", "Line", "Item", "Service Type", "Allocated", "Consumed", "Balance", "Status"}); err != nil {
		h.logger.Error("write utilization csv header", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.Project,
			row.AdvanceNumber,
			fmt.Sprintf("%d", row.LineID),
			row.Item,
			row.ServiceType,
			fmt.Sprintf("%.2f", row.AllocatedAmount),
			fmt.Sprintf("%.2f", row.ConsumedAmount),
			fmt.Sprintf("%.2f", row.BalanceAmount),
			string(row.LineStatus),
		}); err != nil {
			h.logger.Error("write utilization csv row", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("flush utilization csv", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="advance_utilization.csv"`)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) serviceBreakdown(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	rows, err := h.service.ServiceBreakdown(r.Context(), scope, r.URL.Query().Get("project"))
	if err != nil {
		h.logger.Error("service breakdown report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) serviceBreakdownCSV(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	rows, err := h.service.ServiceBreakdown(r.Context(), scope, r.URL.Query().Get("project"))
	if err != nil {
		h.logger.Error("service breakdown export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"Project", "Division", "Service Type", "Expenses", "Invoices", "Total"}); err != nil {
		h.logger.Error("write breakdown csv header", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.Project,
			row.Division,
			row.ServiceType,
			fmt.Sprintf("%.2f", row.ExpenseAmount),
			fmt.Sprintf("%.2f", row.InvoiceAmount),
			fmt.Sprintf("%.2f", row.Total),
		}); err != nil {
			h.logger.Error("write breakdown csv row", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("flush breakdown csv", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="service_breakdown.csv"`)
	_, _ = w.Write(buf.Bytes())
}
