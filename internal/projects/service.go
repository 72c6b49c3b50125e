package projects

import (
	"context"
	"log/slog"
	"time"

	"github.com/forwardline/forwardline/internal/shared"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// dashboardDoctypes drive the recent-documents panel, in display order.
var dashboardDoctypes = []string{
	"Sales Invoice", "Sales Order", "Purchase Invoice", "Purchase Order",
	"Expense Claim", "Employee Advance",
}

// Service owns project registration and the listing entry points.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Get loads a project visible to the scope.
func (s *Service) Get(ctx context.Context, scope shared.Scope, name string) (Project, error) {
	project, err := s.repo.Get(ctx, name)
	if err != nil {
		return Project{}, err
	}
	if !scope.AllowsDivision(project.Division) {
		return Project{}, shared.ErrNotFound
	}
	return project, nil
}

// Create validates and registers a project, assigning its number from the
// division/mode/date series.
func (s *Service) Create(ctx context.Context, scope shared.Scope, project Project) (Project, error) {
	if err := project.Validate(); err != nil {
		return Project{}, err
	}
	if !scope.AllowsDivision(project.Division) {
		return Project{}, shared.ErrNotFound
	}
	if project.OpenedAt.IsZero() {
		project.OpenedAt = s.now()
	}
	created, err := s.repo.Create(ctx, project)
	if err != nil {
		return Project{}, err
	}
	s.logger.Info("project created",
		slog.String("name", created.Name),
		slog.String("division", created.Division))
	return created, nil
}

// ListByProject returns documents of one doctype attached to the project.
// Limit defaults to 20 and is capped.
func (s *Service) ListByProject(ctx context.Context, scope shared.Scope, doctype, project string, limit int) ([]DocumentSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByProject(ctx, scope, doctype, project, limit)
}

// Dashboard assembles the recent documents and buy/sell totals for one
// project.
func (s *Service) Dashboard(ctx context.Context, scope shared.Scope, name string) (Dashboard, error) {
	project, err := s.Get(ctx, scope, name)
	if err != nil {
		return Dashboard{}, err
	}

	dashboard := Dashboard{
		Project: project,
		Recent:  make(map[string][]DocumentSummary, len(dashboardDoctypes)),
	}
	for _, doctype := range dashboardDoctypes {
		docs, err := s.repo.ListByProject(ctx, scope, doctype, name, defaultListLimit)
		if err != nil {
			return Dashboard{}, err
		}
		if len(docs) > 0 {
			dashboard.Recent[doctype] = docs
		}
	}

	buy, sell, err := s.repo.ProjectTotals(ctx, name)
	if err != nil {
		return Dashboard{}, err
	}
	dashboard.BuyTotal = buy
	dashboard.SellTotal = sell
	dashboard.Margin = sell - buy
	return dashboard, nil
}
