package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forwardline/forwardline/internal/naming"
	"github.com/forwardline/forwardline/internal/platform/db"
	"github.com/forwardline/forwardline/internal/shared"
)

// doctypeQuery describes how a listable doctype maps onto storage. Expense
// claims carry project on the child table only, hence the join flag.
type doctypeQuery struct {
	table       string
	partyColumn string
	childJoin   bool
}

var doctypeQueries = map[string]doctypeQuery{
	"Sales Invoice":    {table: "sales_invoices", partyColumn: "customer"},
	"Sales Order":      {table: "sales_orders", partyColumn: "customer"},
	"Purchase Invoice": {table: "purchase_invoices", partyColumn: "supplier"},
	"Purchase Order":   {table: "purchase_orders", partyColumn: "supplier"},
	"Employee Advance": {table: "employee_advances", partyColumn: "employee"},
	"Expense Claim":    {table: "expense_claims", partyColumn: "employee", childJoin: true},
}

// ErrUnknownDoctype rejects listing requests outside the whitelist.
var ErrUnknownDoctype = errors.New("unknown doctype")

// Repository is the project master and document listing store.
type Repository interface {
	Get(ctx context.Context, name string) (Project, error)
	Create(ctx context.Context, project Project) (Project, error)
	ListByProject(ctx context.Context, scope shared.Scope, doctype, project string, limit int) ([]DocumentSummary, error)
	ProjectTotals(ctx context.Context, project string) (buy, sell float64, err error)
}

type repository struct {
	db     *pgxpool.Pool
	series *naming.Series
}

func NewRepository(db *pgxpool.Pool, series *naming.Series) Repository {
	return &repository{db: db, series: series}
}

const projectColumns = `id, name, division, mode, COALESCE(service_type,''), COALESCE(customer,''),
  COALESCE(pol,''), COALESCE(pod,''), COALESCE(aoo,''), COALESCE(aod,''), etd, eta, opened_at`

func (r *repository) Get(ctx context.Context, name string) (Project, error) {
	var p Project
	err := r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE name=$1`, name).
		Scan(&p.ID, &p.Name, &p.Division, &p.Mode, &p.ServiceType, &p.Customer,
			&p.POL, &p.POD, &p.AOO, &p.AOD, &p.ETD, &p.ETA, &p.OpenedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, project Project) (Project, error) {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if project.Name == "" {
			prefix, err := naming.ProjectPrefix(project.Division, project.Mode, project.OpenedAt)
			if err != nil {
				return err
			}
			project.Name, err = r.series.NextInTx(ctx, tx, prefix)
			if err != nil {
				return err
			}
		}

		return tx.QueryRow(ctx, `INSERT INTO projects (name, division, mode, service_type, customer, pol, pod, aoo, aod, etd, eta, opened_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
			project.Name, project.Division, project.Mode, project.ServiceType, project.Customer,
			project.POL, project.POD, project.AOO, project.AOD, project.ETD, project.ETA, project.OpenedAt).
			Scan(&project.ID)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Project{}, fmt.Errorf("projects: %q: %w", project.Name, shared.ErrConflict)
		}
		return Project{}, err
	}
	return project, nil
}

func (r *repository) ListByProject(ctx context.Context, scope shared.Scope, doctype, project string, limit int) ([]DocumentSummary, error) {
	q, ok := doctypeQueries[doctype]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDoctype, doctype)
	}

	var sql string
	args := []any{project}
	if q.childJoin {
		// Expense claims keep project on the detail rows only.
		sql = fmt.Sprintf(`SELECT DISTINCT d.id, d.number, COALESCE(d.%s,''), d.posting_date,
  COALESCE((SELECT SUM(c.amount) FROM expense_details c WHERE c.claim_id = d.id AND c.project = $1), 0),
  COALESCE(d.status,'')
FROM %s d
JOIN expense_details det ON det.claim_id = d.id
WHERE det.project = $1`, q.partyColumn, q.table)
	} else {
		sql = fmt.Sprintf(`SELECT d.id, d.number, COALESCE(d.%s,''), d.posting_date, COALESCE(d.total,0), COALESCE(d.status,'')
FROM %s d
WHERE d.project = $1`, q.partyColumn, q.table)
	}

	if cond, condArgs := scope.DivisionCondition("d.division", len(args)+1); cond != "" {
		sql += " AND " + cond
		args = append(args, condArgs...)
	}
	sql += fmt.Sprintf(" ORDER BY d.posting_date DESC, d.id DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		doc := DocumentSummary{Doctype: doctype}
		if err := rows.Scan(&doc.ID, &doc.Number, &doc.Party, &doc.PostingDate, &doc.Total, &doc.Status); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *repository) ProjectTotals(ctx context.Context, project string) (float64, float64, error) {
	var buy, sell float64
	err := r.db.QueryRow(ctx, `SELECT
  COALESCE((SELECT SUM(total) FROM purchase_invoices WHERE project=$1 AND NOT cancelled), 0)
  + COALESCE((SELECT SUM(d.amount) FROM expense_details d JOIN expense_claims c ON c.id = d.claim_id
       WHERE d.project=$1 AND NOT c.cancelled), 0),
  COALESCE((SELECT SUM(total) FROM sales_invoices WHERE project=$1), 0)`, project).
		Scan(&buy, &sell)
	return buy, sell, err
}
