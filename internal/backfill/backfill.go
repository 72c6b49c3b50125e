package backfill

import (
	"context"
	"fmt"
	"log/slog"
)

// Summary reports what a backfill run examined and changed. Dry runs report
// the same counts with zero writes.
type Summary struct {
	Task     string   `json:"task"`
	DryRun   bool     `json:"dry_run"`
	Examined int      `json:"examined"`
	Updated  int      `json:"updated"`
	Details  []string `json:"details,omitempty"`
}

// DivisionFix is a document whose division can be derived from its project.
type DivisionFix struct {
	Table    string
	DocID    int64
	Project  string
	Division string
}

// ExpenseProjectFix is an expense row that references an advance line but
// lost its project.
type ExpenseProjectFix struct {
	DetailID int64
	LineID   int64
	Project  string
}

// Repository is the data-repair store. Apply methods are never called on
// dry runs.
type Repository interface {
	ListMissingDivisions(ctx context.Context) ([]DivisionFix, error)
	ApplyDivision(ctx context.Context, fix DivisionFix) error
	ListMissingExpenseProjects(ctx context.Context) ([]ExpenseProjectFix, error)
	ApplyExpenseProject(ctx context.Context, fix ExpenseProjectFix) error
}

// Service runs the repair utilities and release gates.
type Service struct {
	repo   Repository
	gates  GateRepository
	logger *slog.Logger
}

func NewService(repo Repository, gates GateRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, gates: gates, logger: logger}
}

// BackfillDivision stamps the owning project's division onto documents that
// predate division tracking.
func (s *Service) BackfillDivision(ctx context.Context, dryRun bool) (Summary, error) {
	summary := Summary{Task: "backfill_division", DryRun: dryRun}
	fixes, err := s.repo.ListMissingDivisions(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary.Examined = len(fixes)
	for _, fix := range fixes {
		summary.Details = append(summary.Details,
			fmt.Sprintf("%s %d -> %s", fix.Table, fix.DocID, fix.Division))
		if dryRun {
			continue
		}
		if err := s.repo.ApplyDivision(ctx, fix); err != nil {
			return Summary{}, err
		}
		summary.Updated++
	}
	s.logger.Info("division backfill finished",
		slog.Bool("dry_run", dryRun),
		slog.Int("examined", summary.Examined),
		slog.Int("updated", summary.Updated))
	return summary, nil
}

// BackfillExpenseProjects restores the project on expense rows from their
// referenced advance line.
func (s *Service) BackfillExpenseProjects(ctx context.Context, dryRun bool) (Summary, error) {
	summary := Summary{Task: "backfill_expense_projects", DryRun: dryRun}
	fixes, err := s.repo.ListMissingExpenseProjects(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary.Examined = len(fixes)
	for _, fix := range fixes {
		summary.Details = append(summary.Details,
			fmt.Sprintf("expense_detail %d -> %s", fix.DetailID, fix.Project))
		if dryRun {
			continue
		}
		if err := s.repo.ApplyExpenseProject(ctx, fix); err != nil {
			return Summary{}, err
		}
		summary.Updated++
	}
	s.logger.Info("expense project backfill finished",
		slog.Bool("dry_run", dryRun),
		slog.Int("examined", summary.Examined),
		slog.Int("updated", summary.Updated))
	return summary, nil
}
