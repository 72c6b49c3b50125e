package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forwardline/forwardline/internal/shared"
)

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ServiceBreakdown(ctx context.Context, scope shared.Scope, project string) ([]BreakdownRow, error) {
	query := `SELECT p.name, p.division, t.service_type,
  SUM(t.expense_amount), SUM(t.invoice_amount)
FROM (
  SELECT d.project, COALESCE(d.service_type,'') AS service_type, d.amount AS expense_amount, 0 AS invoice_amount
  FROM expense_details d
  JOIN expense_claims c ON c.id = d.claim_id
  WHERE NOT c.cancelled
  UNION ALL
  SELECT i.project, COALESCE(it.item_group,'') AS service_type, 0, it.amount
  FROM purchase_invoice_items it
  JOIN purchase_invoices i ON i.id = it.invoice_id
  WHERE NOT i.cancelled AND i.project IS NOT NULL
) t
JOIN projects p ON p.name = t.project`

	args := []any{}
	where := ""
	if project != "" {
		args = append(args, project)
		where = " WHERE p.name = $1"
	}
	if cond, condArgs := scope.DivisionCondition("p.division", len(args)+1); cond != "" {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
		args = append(args, condArgs...)
	}
	query += where + `
GROUP BY p.name, p.division, t.service_type
ORDER BY p.name, t.service_type`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BreakdownRow
	for rows.Next() {
		var row BreakdownRow
		if err := rows.Scan(&row.Project, &row.Division, &row.ServiceType,
			&row.ExpenseAmount, &row.InvoiceAmount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
