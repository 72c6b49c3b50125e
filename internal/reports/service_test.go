package reports

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/forwardline/forwardline/internal/advances"
	"github.com/forwardline/forwardline/internal/shared"
)

type stubSources struct {
	utilization []advances.UtilizationRow
	breakdown   []BreakdownRow
}

func (s *stubSources) Utilization(_ context.Context, project string) ([]advances.UtilizationRow, error) {
	if project == "" {
		return s.utilization, nil
	}
	var out []advances.UtilizationRow
	for _, row := range s.utilization {
		if row.Project == project {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubSources) ServiceBreakdown(_ context.Context, scope shared.Scope, project string) ([]BreakdownRow, error) {
	if !scope.Admin && len(scope.Divisions) == 0 {
		return nil, nil
	}
	var out []BreakdownRow
	for _, row := range s.breakdown {
		if project != "" && row.Project != project {
			continue
		}
		if !scope.AllowsDivision(row.Division) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func newTestService(stub *stubSources) *Service {
	return NewService(stub, stub, slog.New(slog.DiscardHandler))
}

func TestServiceBreakdownComputesTotals(t *testing.T) {
	stub := &stubSources{breakdown: []BreakdownRow{
		{Project: "P1", Division: "Import", ServiceType: "Freight", ExpenseAmount: 100, InvoiceAmount: 400},
		{Project: "P1", Division: "Import", ServiceType: "Trucking", ExpenseAmount: 60},
	}}

	rows, err := newTestService(stub).ServiceBreakdown(context.Background(), shared.Scope{Admin: true}, "P1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 500.0, rows[0].Total)
	require.Equal(t, 60.0, rows[1].Total)
}

func TestServiceBreakdownHonorsScope(t *testing.T) {
	stub := &stubSources{breakdown: []BreakdownRow{
		{Project: "P1", Division: "Import", ServiceType: "Freight", InvoiceAmount: 400},
		{Project: "P2", Division: "Export", ServiceType: "Freight", InvoiceAmount: 300},
	}}
	service := newTestService(stub)

	rows, err := service.ServiceBreakdown(context.Background(), shared.Scope{Divisions: []string{"Export"}}, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "P2", rows[0].Project)

	rows, err = service.ServiceBreakdown(context.Background(), shared.Scope{}, "")
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestAdvanceUtilizationCSVExport(t *testing.T) {
	stub := &stubSources{utilization: []advances.UtilizationRow{
		{
			Project: "P1", AdvanceNumber: "IMP-EADV-2026-00001", LineID: 7,
			Item: "Ocean Freight", ServiceType: "Freight",
			AllocatedAmount: 1000, ConsumedAmount: 400, BalanceAmount: 600,
			LineStatus: advances.LineOpen,
		},
	}}
	handler := NewHandler(slog.New(slog.DiscardHandler), newTestService(stub))
	router := chi.NewRouter()
	handler.MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/reports/advance-utilization.csv?project=P1", nil))

	require.Equal(t, 200, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Project", records[0][0])
	require.Equal(t, []string{"P1", "IMP-EADV-2026-00001", "7", "Ocean Freight", "Freight", "1000.00", "400.00", "600.00", "Open"}, records[1])
}
