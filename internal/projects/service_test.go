package projects

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forwardline/forwardline/internal/shared"
)

type memoryRepo struct {
	projects  map[string]Project
	documents map[string]map[string][]DocumentSummary // doctype -> project -> docs
	buy, sell map[string]float64
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		projects:  make(map[string]Project),
		documents: make(map[string]map[string][]DocumentSummary),
		buy:       make(map[string]float64),
		sell:      make(map[string]float64),
	}
}

func (m *memoryRepo) Get(_ context.Context, name string) (Project, error) {
	project, ok := m.projects[name]
	if !ok {
		return Project{}, shared.ErrNotFound
	}
	return project, nil
}

func (m *memoryRepo) Create(_ context.Context, project Project) (Project, error) {
	m.nextID++
	project.ID = m.nextID
	if project.Name == "" {
		project.Name = fmt.Sprintf("IMP-SEA-20260301-%03d", m.nextID)
	}
	m.projects[project.Name] = project
	return project, nil
}

func (m *memoryRepo) ListByProject(_ context.Context, scope shared.Scope, doctype, project string, limit int) ([]DocumentSummary, error) {
	if _, ok := doctypeQueries[doctype]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDoctype, doctype)
	}
	if !scope.Admin && len(scope.Divisions) == 0 {
		return nil, nil
	}
	docs := m.documents[doctype][project]
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (m *memoryRepo) ProjectTotals(_ context.Context, project string) (float64, float64, error) {
	return m.buy[project], m.sell[project], nil
}

func (m *memoryRepo) addDocs(doctype, project string, count int) {
	if m.documents[doctype] == nil {
		m.documents[doctype] = make(map[string][]DocumentSummary)
	}
	for i := 0; i < count; i++ {
		m.documents[doctype][project] = append(m.documents[doctype][project], DocumentSummary{
			ID: int64(i + 1), Doctype: doctype, Number: fmt.Sprintf("%s-%d", doctype, i+1),
		})
	}
}

func newService(repo Repository) *Service {
	return NewService(repo, slog.New(slog.DiscardHandler))
}

func adminScope() shared.Scope { return shared.Scope{User: "ops", Admin: true} }

func validProject() Project {
	etd := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	eta := etd.AddDate(0, 0, 10)
	return Project{
		Division: "Import",
		Mode:     "Sea",
		POL:      "IDJKT",
		POD:      "SGSIN",
		ETD:      &etd,
		ETA:      &eta,
	}
}

func TestProjectValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p := validProject()
		require.NoError(t, p.Validate())
	})

	t.Run("missing division", func(t *testing.T) {
		p := validProject()
		p.Division = ""
		require.ErrorIs(t, p.Validate(), shared.ErrMissingRequiredField)
	})

	t.Run("sea without ports", func(t *testing.T) {
		p := validProject()
		p.POL = ""
		require.ErrorIs(t, p.Validate(), shared.ErrMissingRequiredField)
	})

	t.Run("air without airports", func(t *testing.T) {
		p := validProject()
		p.Mode = "Air"
		require.ErrorIs(t, p.Validate(), shared.ErrMissingRequiredField)
	})

	t.Run("etd after eta", func(t *testing.T) {
		p := validProject()
		late := p.ETA.AddDate(0, 0, 5)
		p.ETD = &late
		require.Error(t, p.Validate())
	})

	t.Run("unknown service type", func(t *testing.T) {
		p := validProject()
		p.ServiceType = "Teleport"
		require.Error(t, p.Validate())
	})
}

func TestCreateAssignsNumber(t *testing.T) {
	repo := newMemoryRepo()
	created, err := newService(repo).Create(context.Background(), adminScope(), validProject())
	require.NoError(t, err)
	require.NotEmpty(t, created.Name)
	require.False(t, created.OpenedAt.IsZero())
}

func TestCreateRejectsForeignDivision(t *testing.T) {
	repo := newMemoryRepo()
	scope := shared.Scope{User: "clerk", Divisions: []string{"Export"}}

	_, err := newService(repo).Create(context.Background(), scope, validProject())
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetHidesProjectOutsideScope(t *testing.T) {
	repo := newMemoryRepo()
	service := newService(repo)
	created, err := service.Create(context.Background(), adminScope(), validProject())
	require.NoError(t, err)

	_, err = service.Get(context.Background(), shared.Scope{User: "clerk", Divisions: []string{"Export"}}, created.Name)
	require.ErrorIs(t, err, shared.ErrNotFound)

	got, err := service.Get(context.Background(), shared.Scope{User: "clerk", Divisions: []string{"Import"}}, created.Name)
	require.NoError(t, err)
	require.Equal(t, created.Name, got.Name)
}

func TestListByProjectDefaultsAndCapsLimit(t *testing.T) {
	repo := newMemoryRepo()
	repo.addDocs("Sales Invoice", "P1", 150)
	service := newService(repo)

	docs, err := service.ListByProject(context.Background(), adminScope(), "Sales Invoice", "P1", 0)
	require.NoError(t, err)
	require.Len(t, docs, defaultListLimit)

	docs, err = service.ListByProject(context.Background(), adminScope(), "Sales Invoice", "P1", 500)
	require.NoError(t, err)
	require.Len(t, docs, maxListLimit)
}

func TestListByProjectUnknownDoctype(t *testing.T) {
	service := newService(newMemoryRepo())
	_, err := service.ListByProject(context.Background(), adminScope(), "Journal Entry", "P1", 0)
	require.ErrorIs(t, err, ErrUnknownDoctype)
}

func TestDashboardAggregates(t *testing.T) {
	repo := newMemoryRepo()
	service := newService(repo)
	created, err := service.Create(context.Background(), adminScope(), validProject())
	require.NoError(t, err)

	repo.addDocs("Sales Invoice", created.Name, 2)
	repo.addDocs("Expense Claim", created.Name, 1)
	repo.buy[created.Name] = 800
	repo.sell[created.Name] = 1000

	dashboard, err := service.Dashboard(context.Background(), adminScope(), created.Name)
	require.NoError(t, err)
	require.Len(t, dashboard.Recent["Sales Invoice"], 2)
	require.Len(t, dashboard.Recent["Expense Claim"], 1)
	require.NotContains(t, dashboard.Recent, "Purchase Order")
	require.Equal(t, 200.0, dashboard.Margin)
}
