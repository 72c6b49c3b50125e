package consol

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forwardline/forwardline/internal/advances"
	"github.com/forwardline/forwardline/internal/naming"
	"github.com/forwardline/forwardline/internal/shared"
)

// Repository defines consol shipment data access.
type Repository interface {
	GetShipment(ctx context.Context, id int64) (Shipment, error)
	GetMemberDivisions(ctx context.Context, projects []string) (map[string]string, error)
	GetProjectCustomer(ctx context.Context, project string) (string, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the document-store operations a split runs inside one
// transaction.
type TxRepository interface {
	GetPurchaseInvoice(ctx context.Context, id int64) (PurchaseInvoice, error)
	FindOpenChildInvoice(ctx context.Context, project string, consolID int64) (int64, bool, error)
	CreatePurchaseInvoice(ctx context.Context, invoice PurchaseInvoice) (int64, error)
	AppendInvoiceItem(ctx context.Context, invoiceID int64, item PurchaseInvoiceItem) error
	CancelPurchaseInvoice(ctx context.Context, id int64) error

	GetExpenseClaim(ctx context.Context, id int64) (advances.ExpenseClaim, error)
	FindOpenChildClaim(ctx context.Context, project string, consolID int64) (int64, bool, error)
	CreateExpenseClaim(ctx context.Context, claim advances.ExpenseClaim, consolID int64) (int64, error)
	AppendClaimExpense(ctx context.Context, claimID int64, row advances.ExpenseDetail) error
	CancelExpenseClaim(ctx context.Context, id int64) error

	CreateSalesInvoice(ctx context.Context, invoice SalesInvoice) (int64, error)
}

type repository struct {
	db     *pgxpool.Pool
	series *naming.Series
}

func NewRepository(db *pgxpool.Pool, series *naming.Series) Repository {
	return &repository{db: db, series: series}
}

func (r *repository) GetShipment(ctx context.Context, id int64) (Shipment, error) {
	var s Shipment
	err := r.db.QueryRow(ctx, `SELECT id, number, division, mode, pol, pod, aoo, aod, etd, eta
FROM consol_shipments WHERE id=$1`, id).
		Scan(&s.ID, &s.Number, &s.Division, &s.Mode, &s.POL, &s.POD, &s.AOO, &s.AOD, &s.ETD, &s.ETA)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, shared.ErrNotFound
		}
		return Shipment{}, err
	}

	rows, err := r.db.Query(ctx, `SELECT project, cbm, weight, manual_percent
FROM consol_members WHERE shipment_id=$1 ORDER BY idx ASC`, id)
	if err != nil {
		return Shipment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Project, &m.CBM, &m.Weight, &m.ManualPercent); err != nil {
			return Shipment{}, err
		}
		s.Members = append(s.Members, m)
	}
	if err := rows.Err(); err != nil {
		return Shipment{}, err
	}

	ruleRows, err := r.db.Query(ctx, `SELECT charge_code, method, manual_percentage
FROM consol_allocation_rules WHERE shipment_id=$1 ORDER BY idx ASC`, id)
	if err != nil {
		return Shipment{}, err
	}
	defer ruleRows.Close()
	for ruleRows.Next() {
		var rule AllocationRule
		if err := ruleRows.Scan(&rule.ChargeCode, &rule.Method, &rule.ManualPercentage); err != nil {
			return Shipment{}, err
		}
		s.AllocationRules = append(s.AllocationRules, rule)
	}
	return s, ruleRows.Err()
}

func (r *repository) GetMemberDivisions(ctx context.Context, projects []string) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name, division FROM projects WHERE name = ANY($1)`, projects)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	divisions := make(map[string]string, len(projects))
	for rows.Next() {
		var name, division string
		if err := rows.Scan(&name, &division); err != nil {
			return nil, err
		}
		divisions[name] = division
	}
	return divisions, rows.Err()
}

func (r *repository) GetProjectCustomer(ctx context.Context, project string) (string, error) {
	var customer string
	err := r.db.QueryRow(ctx, `SELECT COALESCE(customer, '') FROM projects WHERE name=$1`, project).Scan(&customer)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	return customer, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("consol: begin tx: %w", err)
	}
	wrapper := &txRepository{tx: tx, series: r.series}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx     pgx.Tx
	series *naming.Series
}

func (r *txRepository) GetPurchaseInvoice(ctx context.Context, id int64) (PurchaseInvoice, error) {
	var inv PurchaseInvoice
	err := r.tx.QueryRow(ctx, `SELECT id, number, supplier, COALESCE(project, ''), consol_shipment, company, currency, posting_date, due_date, COALESCE(total,0), finalized, cancelled
FROM purchase_invoices WHERE id=$1`, id).
		Scan(&inv.ID, &inv.Number, &inv.Supplier, &inv.Project, &inv.ConsolShipment, &inv.Company, &inv.Currency,
			&inv.PostingDate, &inv.DueDate, &inv.Total, &inv.Finalized, &inv.Cancelled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseInvoice{}, shared.ErrNotFound
		}
		return PurchaseInvoice{}, err
	}

	rows, err := r.tx.Query(ctx, `SELECT id, invoice_id, item_code, item_name, item_group, uom, qty, rate, amount
FROM purchase_invoice_items WHERE invoice_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return PurchaseInvoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item PurchaseInvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ItemCode, &item.ItemName, &item.ItemGroup,
			&item.UOM, &item.Qty, &item.Rate, &item.Amount); err != nil {
			return PurchaseInvoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

func (r *txRepository) FindOpenChildInvoice(ctx context.Context, project string, consolID int64) (int64, bool, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM purchase_invoices
WHERE project=$1 AND consol_shipment=$2 AND NOT cancelled
ORDER BY id ASC LIMIT 1`, project, consolID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *txRepository) CreatePurchaseInvoice(ctx context.Context, invoice PurchaseInvoice) (int64, error) {
	if invoice.Number == "" {
		division, err := r.projectDivision(ctx, invoice.Project)
		if err != nil {
			return 0, err
		}
		prefix, err := naming.PurchaseInvoicePrefix(division)
		if err != nil {
			return 0, err
		}
		invoice.Number, err = r.series.NextInTx(ctx, r.tx, prefix)
		if err != nil {
			return 0, err
		}
	}
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_invoices (number, supplier, project, consol_shipment, company, currency, posting_date, due_date, total, finalized, cancelled)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,false,false) RETURNING id`,
		invoice.Number, invoice.Supplier, invoice.Project, invoice.ConsolShipment, invoice.Company,
		invoice.Currency, invoice.PostingDate, invoice.DueDate).Scan(&id)
	return id, err
}

// AppendInvoiceItem inserts the line and keeps the denormalised invoice total
// in step with it.
func (r *txRepository) AppendInvoiceItem(ctx context.Context, invoiceID int64, item PurchaseInvoiceItem) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO purchase_invoice_items (invoice_id, item_code, item_name, item_group, uom, qty, rate, amount)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		invoiceID, item.ItemCode, item.ItemName, item.ItemGroup, item.UOM, item.Qty, item.Rate, item.Amount)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `UPDATE purchase_invoices SET total = total + $1, updated_at=NOW() WHERE id=$2`,
		item.Amount, invoiceID)
	return err
}

func (r *txRepository) CancelPurchaseInvoice(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_invoices SET cancelled=true, updated_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *txRepository) GetExpenseClaim(ctx context.Context, id int64) (advances.ExpenseClaim, error) {
	var claim advances.ExpenseClaim
	err := r.tx.QueryRow(ctx, `SELECT id, number, employee, division, company, currency, posting_date, finalized
FROM expense_claims WHERE id=$1`, id).
		Scan(&claim.ID, &claim.Number, &claim.Employee, &claim.Division, &claim.Company, &claim.Currency, &claim.PostingDate, &claim.Finalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return advances.ExpenseClaim{}, shared.ErrNotFound
		}
		return advances.ExpenseClaim{}, err
	}

	rows, err := r.tx.Query(ctx, `SELECT id, claim_id, expense_date, expense_type, project, item, service_type, description, amount, advance_line_ref, advance_ref
FROM expense_details WHERE claim_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return advances.ExpenseClaim{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var row advances.ExpenseDetail
		if err := rows.Scan(&row.ID, &row.ClaimID, &row.ExpenseDate, &row.ExpenseType, &row.Project, &row.Item,
			&row.ServiceType, &row.Description, &row.Amount, &row.AdvanceLineRef, &row.AdvanceRef); err != nil {
			return advances.ExpenseClaim{}, err
		}
		claim.Expenses = append(claim.Expenses, row)
	}
	return claim, rows.Err()
}

func (r *txRepository) FindOpenChildClaim(ctx context.Context, project string, consolID int64) (int64, bool, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT DISTINCT c.id FROM expense_claims c
JOIN expense_details d ON d.claim_id = c.id
WHERE d.project=$1 AND c.consol_shipment=$2 AND NOT c.cancelled
ORDER BY c.id ASC LIMIT 1`, project, consolID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *txRepository) CreateExpenseClaim(ctx context.Context, claim advances.ExpenseClaim, consolID int64) (int64, error) {
	if claim.Number == "" {
		prefix, err := naming.ExpenseClaimPrefix(claim.Division)
		if err != nil {
			return 0, err
		}
		claim.Number, err = r.series.NextInTx(ctx, r.tx, prefix)
		if err != nil {
			return 0, err
		}
	}
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO expense_claims (number, employee, division, company, currency, posting_date, consol_shipment, finalized, cancelled)
VALUES ($1,$2,$3,$4,$5,$6,$7,false,false) RETURNING id`,
		claim.Number, claim.Employee, claim.Division, claim.Company, claim.Currency, claim.PostingDate, consolID).Scan(&id)
	return id, err
}

func (r *txRepository) AppendClaimExpense(ctx context.Context, claimID int64, row advances.ExpenseDetail) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO expense_details (claim_id, expense_date, expense_type, project, item, service_type, description, amount)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		claimID, row.ExpenseDate, row.ExpenseType, row.Project, row.Item, row.ServiceType, row.Description, row.Amount)
	return err
}

func (r *txRepository) CancelExpenseClaim(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE expense_claims SET cancelled=true, updated_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *txRepository) CreateSalesInvoice(ctx context.Context, invoice SalesInvoice) (int64, error) {
	if invoice.Number == "" {
		prefix, err := naming.SalesInvoicePrefix(invoice.Division)
		if err != nil {
			return 0, err
		}
		invoice.Number, err = r.series.NextInTx(ctx, r.tx, prefix)
		if err != nil {
			return 0, err
		}
	}
	total := 0.0
	for _, item := range invoice.Items {
		total += item.Amount
	}
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales_invoices (number, customer, project, division, consol_shipment, company, currency, posting_date, due_date, total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		invoice.Number, invoice.Customer, invoice.Project, invoice.Division, invoice.ConsolShipment,
		invoice.Company, invoice.Currency, invoice.PostingDate, invoice.DueDate, total).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, item := range invoice.Items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sales_invoice_items (invoice_id, item_code, item_name, item_group, uom, qty, rate, amount)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			id, item.ItemCode, item.ItemName, item.ItemGroup, item.UOM, item.Qty, item.Rate, item.Amount); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (r *txRepository) projectDivision(ctx context.Context, project string) (string, error) {
	var division string
	err := r.tx.QueryRow(ctx, `SELECT division FROM projects WHERE name=$1`, project).Scan(&division)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	return division, err
}
