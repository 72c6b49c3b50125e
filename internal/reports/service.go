package reports

import (
	"context"
	"log/slog"

	"github.com/forwardline/forwardline/internal/advances"
	"github.com/forwardline/forwardline/internal/shared"
)

// BreakdownRow aggregates project spend per service type across expense
// claims and purchase invoices.
type BreakdownRow struct {
	Project       string  `json:"project"`
	Division      string  `json:"division"`
	ServiceType   string  `json:"service_type"`
	ExpenseAmount float64 `json:"expense_amount"`
	InvoiceAmount float64 `json:"invoice_amount"`
	Total         float64 `json:"total"`
}

// Repository is the report-specific read model.
type Repository interface {
	ServiceBreakdown(ctx context.Context, scope shared.Scope, project string) ([]BreakdownRow, error)
}

// AdvanceSource supplies utilization rows; satisfied by the advances service.
type AdvanceSource interface {
	Utilization(ctx context.Context, project string) ([]advances.UtilizationRow, error)
}

// Service builds the tabular reports.
type Service struct {
	repo     Repository
	advances AdvanceSource
	logger   *slog.Logger
}

func NewService(repo Repository, advanceSource AdvanceSource, logger *slog.Logger) *Service {
	return &Service{repo: repo, advances: advanceSource, logger: logger}
}

// AdvanceUtilization lists every advance line with its allocated, consumed
// and balance amounts, optionally narrowed to one project.
func (s *Service) AdvanceUtilization(ctx context.Context, project string) ([]advances.UtilizationRow, error) {
	return s.advances.Utilization(ctx, project)
}

// ServiceBreakdown totals spend per (project, service type) pair within the
// caller's division scope.
func (s *Service) ServiceBreakdown(ctx context.Context, scope shared.Scope, project string) ([]BreakdownRow, error) {
	rows, err := s.repo.ServiceBreakdown(ctx, scope, project)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].ExpenseAmount + rows[i].InvoiceAmount
	}
	return rows, nil
}
