package backfill

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	divisions       []DivisionFix
	expenseProjects []ExpenseProjectFix

	appliedDivisions int
	appliedExpenses  int

	dupes   []string
	unknown []string
	broken  []string
}

func (m *memoryRepo) ListMissingDivisions(context.Context) ([]DivisionFix, error) {
	return m.divisions, nil
}

func (m *memoryRepo) ApplyDivision(_ context.Context, fix DivisionFix) error {
	m.appliedDivisions++
	for i := range m.divisions {
		if m.divisions[i].DocID == fix.DocID && m.divisions[i].Table == fix.Table {
			m.divisions = append(m.divisions[:i], m.divisions[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memoryRepo) ListMissingExpenseProjects(context.Context) ([]ExpenseProjectFix, error) {
	return m.expenseProjects, nil
}

func (m *memoryRepo) ApplyExpenseProject(_ context.Context, fix ExpenseProjectFix) error {
	m.appliedExpenses++
	for i := range m.expenseProjects {
		if m.expenseProjects[i].DetailID == fix.DetailID {
			m.expenseProjects = append(m.expenseProjects[:i], m.expenseProjects[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memoryRepo) DuplicateDocumentNumbers(context.Context) ([]string, error) { return m.dupes, nil }
func (m *memoryRepo) UnknownDivisions(context.Context) ([]string, error)         { return m.unknown, nil }
func (m *memoryRepo) BrokenAdvanceLines(context.Context) ([]string, error)       { return m.broken, nil }

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, repo, slog.New(slog.DiscardHandler))
}

func TestBackfillDivisionDryRunIsIdempotent(t *testing.T) {
	repo := &memoryRepo{divisions: []DivisionFix{
		{Table: "sales_invoices", DocID: 1, Project: "P1", Division: "Import"},
		{Table: "expense_claims", DocID: 2, Project: "P2", Division: "Export"},
	}}
	service := newTestService(repo)

	first, err := service.BackfillDivision(context.Background(), true)
	require.NoError(t, err)
	second, err := service.BackfillDivision(context.Background(), true)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 2, first.Examined)
	require.Zero(t, first.Updated)
	require.Zero(t, repo.appliedDivisions)
}

func TestBackfillDivisionAppliesFixes(t *testing.T) {
	repo := &memoryRepo{divisions: []DivisionFix{
		{Table: "sales_invoices", DocID: 1, Project: "P1", Division: "Import"},
	}}
	service := newTestService(repo)

	summary, err := service.BackfillDivision(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Updated)
	require.Equal(t, 1, repo.appliedDivisions)

	// a second real run finds nothing left to do
	summary, err = service.BackfillDivision(context.Background(), false)
	require.NoError(t, err)
	require.Zero(t, summary.Examined)
}

func TestBackfillExpenseProjects(t *testing.T) {
	repo := &memoryRepo{expenseProjects: []ExpenseProjectFix{
		{DetailID: 5, LineID: 9, Project: "P1"},
	}}
	service := newTestService(repo)

	summary, err := service.BackfillExpenseProjects(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Examined)
	require.Zero(t, repo.appliedExpenses)

	summary, err = service.BackfillExpenseProjects(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Updated)
}

func TestDivisionQueriesCoverRepairableTables(t *testing.T) {
	for _, table := range divisionTables {
		require.Contains(t, divisionQueries, table)
	}
	// Expense claims keep the project on their detail rows only.
	require.Contains(t, divisionQueries["expense_claims"], "expense_details")
	require.NotContains(t, divisionQueries["expense_claims"], "c.project IS NOT NULL")
}

func TestRunGates(t *testing.T) {
	t.Run("all pass", func(t *testing.T) {
		results, err := newTestService(&memoryRepo{}).RunGates(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 3)
		for _, result := range results {
			require.True(t, result.Passed, result.Name)
		}
	})

	t.Run("failures carry issues", func(t *testing.T) {
		repo := &memoryRepo{
			dupes:   []string{"sales_invoices/IMP-SINV-2026-00001"},
			unknown: []string{"Interplanetary"},
			broken:  []string{"line 4: allocated=100.00 consumed=20.00 balance=90.00 status=Open"},
		}
		results, err := newTestService(repo).RunGates(context.Background())
		require.NoError(t, err)
		for _, result := range results {
			require.False(t, result.Passed, result.Name)
			require.NotEmpty(t, result.Issues)
		}
	})
}
