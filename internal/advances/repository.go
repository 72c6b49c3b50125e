package advances

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forwardline/forwardline/internal/shared"
)

// Repository defines advance data access.
type Repository interface {
	GetAdvance(ctx context.Context, id int64) (EmployeeAdvance, error)
	GetItemGroup(ctx context.Context, item string) (string, error)
	GetProjectDivision(ctx context.Context, project string) (string, error)
	ListUtilization(ctx context.Context, project string) ([]UtilizationRow, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// LineFilter narrows the candidate lines for auto-pick consumption. Project
// is required; item and service type apply only when set on the expense row.
type LineFilter struct {
	AdvanceID   int64
	Project     string
	Item        string
	ServiceType string
}

// TxRepository exposes the operations available within a consumption
// transaction. Line reads take row locks.
type TxRepository interface {
	GetExpenseClaim(ctx context.Context, id int64) (ExpenseClaim, error)
	GetLineForUpdate(ctx context.Context, id int64) (AdvanceLine, error)
	ListLinesForUpdate(ctx context.Context, filter LineFilter) ([]AdvanceLine, error)
	SaveLineConsumption(ctx context.Context, line AdvanceLine) error
	SetExpenseAdvanceLine(ctx context.Context, expenseID, lineID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const lineColumns = `id, advance_id, project, item, item_group, service_type,
allocated_amount, consumed_amount, balance_amount, line_status, created_at, updated_at`

func (r *repository) GetAdvance(ctx context.Context, id int64) (EmployeeAdvance, error) {
	var adv EmployeeAdvance
	err := r.db.QueryRow(ctx, `SELECT id, number, employee, project, division, advance_amount, posting_date, created_at, updated_at
FROM employee_advances WHERE id=$1`, id).
		Scan(&adv.ID, &adv.Number, &adv.Employee, &adv.Project, &adv.Division, &adv.AdvanceAmount, &adv.PostingDate, &adv.CreatedAt, &adv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EmployeeAdvance{}, shared.ErrNotFound
		}
		return EmployeeAdvance{}, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+lineColumns+` FROM advance_lines WHERE advance_id=$1 ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return EmployeeAdvance{}, err
	}
	defer rows.Close()
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return EmployeeAdvance{}, err
		}
		adv.Lines = append(adv.Lines, line)
	}
	return adv, rows.Err()
}

func (r *repository) GetItemGroup(ctx context.Context, item string) (string, error) {
	var group string
	err := r.db.QueryRow(ctx, `SELECT item_group FROM items WHERE code=$1`, item).Scan(&group)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	return group, err
}

func (r *repository) GetProjectDivision(ctx context.Context, project string) (string, error) {
	var division string
	err := r.db.QueryRow(ctx, `SELECT division FROM projects WHERE name=$1`, project).Scan(&division)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	return division, err
}

func (r *repository) ListUtilization(ctx context.Context, project string) ([]UtilizationRow, error) {
	query := `SELECT l.project, a.number, l.id, l.item, l.service_type,
l.allocated_amount, l.consumed_amount, l.balance_amount, l.line_status
FROM advance_lines l
JOIN employee_advances a ON a.id = l.advance_id`
	var args []any
	if project != "" {
		query += ` WHERE l.project = $1`
		args = append(args, project)
	}
	query += ` ORDER BY l.project, a.number, l.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UtilizationRow
	for rows.Next() {
		var row UtilizationRow
		if err := rows.Scan(&row.Project, &row.AdvanceNumber, &row.LineID, &row.Item, &row.ServiceType,
			&row.AllocatedAmount, &row.ConsumedAmount, &row.BalanceAmount, &row.LineStatus); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("advances: begin tx: %w", err)
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetExpenseClaim(ctx context.Context, id int64) (ExpenseClaim, error) {
	var claim ExpenseClaim
	err := r.tx.QueryRow(ctx, `SELECT id, number, employee, division, company, currency, posting_date, finalized
FROM expense_claims WHERE id=$1`, id).
		Scan(&claim.ID, &claim.Number, &claim.Employee, &claim.Division, &claim.Company, &claim.Currency, &claim.PostingDate, &claim.Finalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ExpenseClaim{}, shared.ErrNotFound
		}
		return ExpenseClaim{}, err
	}

	rows, err := r.tx.Query(ctx, `SELECT id, claim_id, expense_date, expense_type, project, item, service_type, description, amount, advance_line_ref, advance_ref
FROM expense_details WHERE claim_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return ExpenseClaim{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var row ExpenseDetail
		if err := rows.Scan(&row.ID, &row.ClaimID, &row.ExpenseDate, &row.ExpenseType, &row.Project, &row.Item,
			&row.ServiceType, &row.Description, &row.Amount, &row.AdvanceLineRef, &row.AdvanceRef); err != nil {
			return ExpenseClaim{}, err
		}
		claim.Expenses = append(claim.Expenses, row)
	}
	return claim, rows.Err()
}

func (r *txRepository) GetLineForUpdate(ctx context.Context, id int64) (AdvanceLine, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+lineColumns+` FROM advance_lines WHERE id=$1 FOR UPDATE`, id)
	line, err := scanLine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AdvanceLine{}, shared.ErrNotFound
	}
	return line, err
}

func (r *txRepository) ListLinesForUpdate(ctx context.Context, filter LineFilter) ([]AdvanceLine, error) {
	query := `SELECT ` + lineColumns + ` FROM advance_lines WHERE advance_id=$1 AND project=$2`
	args := []any{filter.AdvanceID, filter.Project}
	if filter.Item != "" {
		args = append(args, filter.Item)
		query += fmt.Sprintf(" AND item=$%d", len(args))
	}
	if filter.ServiceType != "" {
		args = append(args, filter.ServiceType)
		query += fmt.Sprintf(" AND service_type=$%d", len(args))
	}
	query += ` ORDER BY created_at ASC, id ASC FOR UPDATE`

	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []AdvanceLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) SaveLineConsumption(ctx context.Context, line AdvanceLine) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE advance_lines
SET consumed_amount=$2, balance_amount=$3, line_status=$4, updated_at=NOW()
WHERE id=$1`, line.ID, line.ConsumedAmount, line.BalanceAmount, line.LineStatus)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) SetExpenseAdvanceLine(ctx context.Context, expenseID, lineID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE expense_details SET advance_line_ref=$2 WHERE id=$1`, expenseID, lineID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLine(row rowScanner) (AdvanceLine, error) {
	var line AdvanceLine
	err := row.Scan(&line.ID, &line.AdvanceID, &line.Project, &line.Item, &line.ItemGroup, &line.ServiceType,
		&line.AllocatedAmount, &line.ConsumedAmount, &line.BalanceAmount, &line.LineStatus, &line.CreatedAt, &line.UpdatedAt)
	return line, err
}
