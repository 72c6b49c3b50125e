package backfill

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forwardline/forwardline/internal/shared"
)

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// divisionTables are the documents that carry a denormalised division
// derived from their project.
var divisionTables = []string{"sales_invoices", "expense_claims"}

// divisionQueries locate documents with a blank division and the division
// their project would give them. Sales invoices carry the project directly;
// expense claims carry it on their detail rows, so the first filled row wins.
var divisionQueries = map[string]string{
	"sales_invoices": `SELECT d.id, d.project, p.division
FROM sales_invoices d
JOIN projects p ON p.name = d.project
WHERE (d.division IS NULL OR d.division = '') AND d.project IS NOT NULL
ORDER BY d.id ASC`,
	"expense_claims": `SELECT c.id, fr.project, p.division
FROM expense_claims c
JOIN LATERAL (
	SELECT project FROM expense_details
	WHERE claim_id = c.id AND project IS NOT NULL AND project <> ''
	ORDER BY id ASC LIMIT 1
) fr ON TRUE
JOIN projects p ON p.name = fr.project
WHERE c.division IS NULL OR c.division = ''
ORDER BY c.id ASC`,
}

func (r *repository) ListMissingDivisions(ctx context.Context) ([]DivisionFix, error) {
	var fixes []DivisionFix
	for _, table := range divisionTables {
		rows, err := r.db.Query(ctx, divisionQueries[table])
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			fix := DivisionFix{Table: table}
			if err := rows.Scan(&fix.DocID, &fix.Project, &fix.Division); err != nil {
				rows.Close()
				return nil, err
			}
			fixes = append(fixes, fix)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return fixes, nil
}

func (r *repository) ApplyDivision(ctx context.Context, fix DivisionFix) error {
	allowed := false
	for _, table := range divisionTables {
		if table == fix.Table {
			allowed = true
		}
	}
	if !allowed {
		return fmt.Errorf("backfill: table %q not repairable", fix.Table)
	}
	_, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET division=$1, updated_at=NOW() WHERE id=$2`, fix.Table),
		fix.Division, fix.DocID)
	return err
}

func (r *repository) ListMissingExpenseProjects(ctx context.Context) ([]ExpenseProjectFix, error) {
	rows, err := r.db.Query(ctx, `SELECT d.id, l.id, l.project
FROM expense_details d
JOIN advance_lines l ON l.id = d.advance_line_ref
WHERE (d.project IS NULL OR d.project = '') AND d.advance_line_ref IS NOT NULL
ORDER BY d.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixes []ExpenseProjectFix
	for rows.Next() {
		var fix ExpenseProjectFix
		if err := rows.Scan(&fix.DetailID, &fix.LineID, &fix.Project); err != nil {
			return nil, err
		}
		fixes = append(fixes, fix)
	}
	return fixes, rows.Err()
}

func (r *repository) ApplyExpenseProject(ctx context.Context, fix ExpenseProjectFix) error {
	_, err := r.db.Exec(ctx, `UPDATE expense_details SET project=$1 WHERE id=$2`, fix.Project, fix.DetailID)
	return err
}

type gateRepository struct {
	db *pgxpool.Pool
}

func NewGateRepository(db *pgxpool.Pool) GateRepository {
	return &gateRepository{db: db}
}

// numberedTables are every table drawing from the naming series.
var numberedTables = []string{
	"projects", "sales_invoices", "purchase_invoices", "expense_claims", "employee_advances",
}

func (r *gateRepository) DuplicateDocumentNumbers(ctx context.Context) ([]string, error) {
	var dupes []string
	for _, table := range numberedTables {
		column := "number"
		if table == "projects" {
			column = "name"
		}
		query := fmt.Sprintf(`SELECT %s FROM %s GROUP BY %s HAVING COUNT(*) > 1`, column, table, column)
		rows, err := r.db.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var number string
			if err := rows.Scan(&number); err != nil {
				rows.Close()
				return nil, err
			}
			dupes = append(dupes, fmt.Sprintf("%s/%s", table, number))
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return dupes, nil
}

func (r *gateRepository) UnknownDivisions(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT division FROM projects
WHERE division IS NOT NULL AND division <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var unknown []string
	for rows.Next() {
		var division string
		if err := rows.Scan(&division); err != nil {
			return nil, err
		}
		if _, ok := shared.DivisionCode(division); !ok {
			unknown = append(unknown, division)
		}
	}
	return unknown, rows.Err()
}

func (r *gateRepository) BrokenAdvanceLines(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id, allocated_amount, consumed_amount, balance_amount, line_status
FROM advance_lines
WHERE ABS(balance_amount - (allocated_amount - consumed_amount)) > 0.005
   OR (balance_amount <= 0 AND line_status <> 'Closed')
   OR (balance_amount > 0 AND line_status <> 'Open')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var broken []string
	for rows.Next() {
		var id int64
		var allocated, consumed, balance float64
		var status string
		if err := rows.Scan(&id, &allocated, &consumed, &balance, &status); err != nil {
			return nil, err
		}
		broken = append(broken, fmt.Sprintf(
			"line %d: allocated=%.2f consumed=%.2f balance=%.2f status=%s",
			id, allocated, consumed, balance, status))
	}
	return broken, rows.Err()
}
