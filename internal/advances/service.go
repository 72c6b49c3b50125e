package advances

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

var (
	ErrProjectMismatch       = errors.New("advance line project does not match expense project")
	ErrInsufficientBalance   = errors.New("amount exceeds advance line balance")
	ErrNoMatchingAdvanceLine = errors.New("no advance line with sufficient balance matches the expense")
	ErrAdvanceSumMismatch    = errors.New("total allocated amount must equal the advance amount")
	ErrProjectRequired       = errors.New("project is required")
	ErrServiceTypeRequired   = errors.New("service type is required on every expense row")
)

// sumTolerance absorbs rounding drift between the advance amount and the sum
// of its allocation lines.
const sumTolerance = 0.01

// Service implements advance validation and the expense consumption engine.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ValidateAdvance enforces the parent-document invariants: header project set,
// every line on the header's project, and line allocations summing to the
// advance amount.
func (s *Service) ValidateAdvance(ctx context.Context, advance EmployeeAdvance) error {
	if len(advance.Lines) == 0 {
		return nil
	}
	if advance.Project == "" {
		return fmt.Errorf("employee advance %s: %w", advance.Number, ErrProjectRequired)
	}

	var totalAllocated float64
	for _, line := range advance.Lines {
		if line.Project != advance.Project {
			return fmt.Errorf("advance line for project %q: all lines must match advance project %q", line.Project, advance.Project)
		}
		totalAllocated += line.AllocatedAmount
	}

	if math.Abs(totalAllocated-advance.AdvanceAmount) > sumTolerance {
		return fmt.Errorf("%w: allocated %.2f, advance %.2f", ErrAdvanceSumMismatch, totalAllocated, advance.AdvanceAmount)
	}
	return nil
}

// PrepareLine derives item_group from the item master when unset and refreshes
// the balance fields. Called on every save of an advance line.
func (s *Service) PrepareLine(ctx context.Context, line *AdvanceLine) error {
	if line.Item != "" && line.ItemGroup == "" {
		group, err := s.repo.GetItemGroup(ctx, line.Item)
		if err != nil {
			return fmt.Errorf("derive item group for %s: %w", line.Item, err)
		}
		line.ItemGroup = group
	}
	line.Recompute()
	return nil
}

// ValidateClaim checks the claim-level rules ahead of consumption: at least
// one row, and project plus service type on every row. It also resolves the
// claim's division from the first row's project.
func (s *Service) ValidateClaim(ctx context.Context, claim *ExpenseClaim) error {
	if len(claim.Expenses) == 0 {
		return errors.New("expense claim requires at least one expense row")
	}
	for _, row := range claim.Expenses {
		if row.Project == "" {
			return fmt.Errorf("expense row %d: %w", row.ID, ErrProjectRequired)
		}
		if row.ServiceType == "" {
			return fmt.Errorf("expense row %d: %w", row.ID, ErrServiceTypeRequired)
		}
	}
	if claim.Division == "" {
		division, err := s.repo.GetProjectDivision(ctx, claim.Expenses[0].Project)
		if err != nil {
			return fmt.Errorf("resolve division from project %s: %w", claim.Expenses[0].Project, err)
		}
		claim.Division = division
	}
	return nil
}

// ConsumeClaim debits advance balances for every claim row that references an
// advance. The whole claim consumes inside one transaction: any failing row
// aborts with no partial debit. Rows the engine auto-matched get their
// AdvanceLineRef persisted alongside the debit.
func (s *Service) ConsumeClaim(ctx context.Context, claimID int64) (ExpenseClaim, error) {
	var claim ExpenseClaim
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		claim, err = tx.GetExpenseClaim(ctx, claimID)
		if err != nil {
			return err
		}
		for i := range claim.Expenses {
			if err := s.consumeRow(ctx, tx, &claim.Expenses[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ExpenseClaim{}, err
	}
	return claim, nil
}

// consumeRow applies the three consumption cases to a single expense row.
func (s *Service) consumeRow(ctx context.Context, tx TxRepository, row *ExpenseDetail) error {
	if row.Project == "" || row.Amount <= 0 {
		return nil
	}

	switch {
	case row.AdvanceLineRef != nil:
		return s.consumeFromLine(ctx, tx, row, *row.AdvanceLineRef)
	case row.AdvanceRef != nil:
		return s.autoPickAndConsume(ctx, tx, row)
	default:
		// Plain expense, nothing to debit.
		return nil
	}
}

// consumeFromLine debits a specific advance line. The line is loaded with a
// row lock so concurrent claims serialize between balance check and debit.
func (s *Service) consumeFromLine(ctx context.Context, tx TxRepository, row *ExpenseDetail, lineID int64) error {
	line, err := tx.GetLineForUpdate(ctx, lineID)
	if err != nil {
		return err
	}

	if line.Project != row.Project {
		return fmt.Errorf("%w: line %s, expense %s", ErrProjectMismatch, line.Project, row.Project)
	}

	balance := line.Balance()
	if row.Amount > balance {
		return fmt.Errorf("%w: amount %.2f, balance %.2f", ErrInsufficientBalance, row.Amount, balance)
	}

	line.ConsumedAmount += row.Amount
	line.Recompute()
	if err := tx.SaveLineConsumption(ctx, line); err != nil {
		return err
	}

	s.logger.Info("advance line consumed",
		slog.Int64("line", line.ID),
		slog.Float64("amount", row.Amount),
		slog.Float64("balance", line.BalanceAmount))
	return nil
}

// autoPickAndConsume selects the oldest sibling line under the referenced
// advance that matches the row and still covers the amount (first fit, not
// best fit), records the back-pointer, then debits it.
func (s *Service) autoPickAndConsume(ctx context.Context, tx TxRepository, row *ExpenseDetail) error {
	filter := LineFilter{
		AdvanceID:   *row.AdvanceRef,
		Project:     row.Project,
		Item:        row.Item,
		ServiceType: row.ServiceType,
	}
	lines, err := tx.ListLinesForUpdate(ctx, filter)
	if err != nil {
		return err
	}

	var picked *AdvanceLine
	for i := range lines {
		if lines[i].Balance() >= row.Amount {
			picked = &lines[i]
			break
		}
	}
	if picked == nil {
		return fmt.Errorf("%w: amount %.2f", ErrNoMatchingAdvanceLine, row.Amount)
	}

	row.AdvanceLineRef = &picked.ID
	if err := tx.SetExpenseAdvanceLine(ctx, row.ID, picked.ID); err != nil {
		return err
	}
	return s.consumeFromLine(ctx, tx, row, picked.ID)
}

// GetAdvance loads an advance with its lines.
func (s *Service) GetAdvance(ctx context.Context, id int64) (EmployeeAdvance, error) {
	return s.repo.GetAdvance(ctx, id)
}

// Utilization returns the per-line utilization rows, optionally filtered by
// project.
func (s *Service) Utilization(ctx context.Context, project string) ([]UtilizationRow, error) {
	return s.repo.ListUtilization(ctx, project)
}
