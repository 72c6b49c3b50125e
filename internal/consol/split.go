package consol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forwardline/forwardline/internal/advances"
	"github.com/forwardline/forwardline/internal/shared"
)

// ErrSourceNotFound indicates the consolidated source document to split does
// not exist.
var ErrSourceNotFound = errors.New("source document not found")

// Service orchestrates shipment validation, split and sell-side generation.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// GetShipment loads a shipment with members and allocation rules.
func (s *Service) GetShipment(ctx context.Context, id int64) (Shipment, error) {
	return s.repo.GetShipment(ctx, id)
}

// ValidateShipment runs the shipment invariants, resolving member divisions
// from the project master.
func (s *Service) ValidateShipment(ctx context.Context, shipment Shipment) error {
	projects := make([]string, 0, len(shipment.Members))
	for _, member := range shipment.Members {
		if member.Project != "" {
			projects = append(projects, member.Project)
		}
	}
	divisions, err := s.repo.GetMemberDivisions(ctx, projects)
	if err != nil {
		return err
	}
	return shipment.Validate(divisions)
}

// SplitResult reports what a split produced.
type SplitResult struct {
	Created  []string `json:"created"`
	Warnings []string `json:"warnings,omitempty"`
}

// SplitPurchaseInvoice breaks one consolidated purchase invoice into one
// child invoice per member project, merging into an open child for the same
// (project, shipment) pair when one exists. The whole split runs in one
// transaction; any failing line aborts everything.
func (s *Service) SplitPurchaseInvoice(ctx context.Context, shipmentID, invoiceID int64) (SplitResult, error) {
	shipment, err := s.repo.GetShipment(ctx, shipmentID)
	if err != nil {
		return SplitResult{}, err
	}
	if len(shipment.Members) == 0 {
		return SplitResult{}, ErrNoMembers
	}

	var result SplitResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		source, err := tx.GetPurchaseInvoice(ctx, invoiceID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("%w: purchase invoice %d", ErrSourceNotFound, invoiceID)
			}
			return err
		}

		// Children created in this run, so later lines merge into them
		// instead of duplicating per line.
		children := make(map[string]int64)

		for _, item := range source.Items {
			rule := shipment.RuleFor(item.ItemCode)
			allocation, warnings, err := Allocate(item.Amount, shipment.Members, rule)
			if err != nil {
				return err
			}
			result.Warnings = append(result.Warnings, warnings...)

			for _, member := range shipment.Members {
				share := allocation[member.Project]
				childID, ok := children[member.Project]
				if !ok {
					childID, ok, err = tx.FindOpenChildInvoice(ctx, member.Project, shipment.ID)
					if err != nil {
						return err
					}
					if !ok {
						child := PurchaseInvoice{
							Supplier:       source.Supplier,
							Project:        member.Project,
							ConsolShipment: &shipment.ID,
							Company:        source.Company,
							Currency:       source.Currency,
							PostingDate:    source.PostingDate,
							DueDate:        source.DueDate,
						}
						childID, err = tx.CreatePurchaseInvoice(ctx, child)
						if err != nil {
							return err
						}
						result.Created = append(result.Created, fmt.Sprintf("%d", childID))
					}
					children[member.Project] = childID
				}

				qty := 0.0
				if item.Amount > 0 {
					qty = item.Qty * (share / item.Amount)
				}
				if err := tx.AppendInvoiceItem(ctx, childID, PurchaseInvoiceItem{
					ItemCode:  item.ItemCode,
					ItemName:  item.ItemName,
					ItemGroup: item.ItemGroup,
					UOM:       item.UOM,
					Qty:       qty,
					Rate:      item.Rate,
					Amount:    share,
				}); err != nil {
					return err
				}
			}
		}

		if source.Finalized {
			if err := tx.CancelPurchaseInvoice(ctx, source.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SplitResult{}, err
	}

	s.logger.Info("purchase invoice split",
		slog.Int64("shipment", shipmentID),
		slog.Int64("source", invoiceID),
		slog.Int("created", len(result.Created)))
	return result, nil
}

// SplitExpenseClaim breaks one consolidated expense claim into one child
// claim per member project, keyed on (project, shipment) via the child-table
// project column.
func (s *Service) SplitExpenseClaim(ctx context.Context, shipmentID, claimID int64) (SplitResult, error) {
	shipment, err := s.repo.GetShipment(ctx, shipmentID)
	if err != nil {
		return SplitResult{}, err
	}
	if len(shipment.Members) == 0 {
		return SplitResult{}, ErrNoMembers
	}

	var result SplitResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		source, err := tx.GetExpenseClaim(ctx, claimID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("%w: expense claim %d", ErrSourceNotFound, claimID)
			}
			return err
		}

		children := make(map[string]int64)

		for _, detail := range source.Expenses {
			rule := shipment.RuleFor(detail.ExpenseType)
			allocation, warnings, err := Allocate(detail.Amount, shipment.Members, rule)
			if err != nil {
				return err
			}
			result.Warnings = append(result.Warnings, warnings...)

			for _, member := range shipment.Members {
				share := allocation[member.Project]
				childID, ok := children[member.Project]
				if !ok {
					childID, ok, err = tx.FindOpenChildClaim(ctx, member.Project, shipment.ID)
					if err != nil {
						return err
					}
					if !ok {
						child := advances.ExpenseClaim{
							Employee:    source.Employee,
							Division:    shipment.Division,
							Company:     source.Company,
							Currency:    source.Currency,
							PostingDate: source.PostingDate,
						}
						childID, err = tx.CreateExpenseClaim(ctx, child, shipment.ID)
						if err != nil {
							return err
						}
						result.Created = append(result.Created, fmt.Sprintf("%d", childID))
					}
					children[member.Project] = childID
				}

				if err := tx.AppendClaimExpense(ctx, childID, advances.ExpenseDetail{
					ExpenseDate: detail.ExpenseDate,
					ExpenseType: detail.ExpenseType,
					Project:     member.Project,
					Item:        detail.Item,
					ServiceType: detail.ServiceType,
					Description: detail.Description,
					Amount:      share,
				}); err != nil {
					return err
				}
			}
		}

		if source.Finalized {
			return tx.CancelExpenseClaim(ctx, source.ID)
		}
		return nil
	})
	if err != nil {
		return SplitResult{}, err
	}

	s.logger.Info("expense claim split",
		slog.Int64("shipment", shipmentID),
		slog.Int64("source", claimID),
		slog.Int("created", len(result.Created)))
	return result, nil
}
