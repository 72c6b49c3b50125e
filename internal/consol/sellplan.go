package consol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/forwardline/forwardline/internal/shared"
)

// SellPlan is the planned revenue per member project for one shipment.
// Company and currency apply to every invoice the plan raises.
type SellPlan struct {
	Company  string
	Currency string
	Items    map[string][]SellPlanItem
}

// SellResult reports sales invoice generation, including members skipped
// because the project has no customer or no planned items.
type SellResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped,omitempty"`
}

// CreateSalesInvoicesPerMember raises one sales invoice per shipment member
// that has both a customer on its project and at least one sell plan line.
// Members missing either are skipped, not failed.
func (s *Service) CreateSalesInvoicesPerMember(ctx context.Context, shipmentID int64, plan SellPlan) (SellResult, error) {
	shipment, err := s.repo.GetShipment(ctx, shipmentID)
	if err != nil {
		return SellResult{}, err
	}
	if len(shipment.Members) == 0 {
		return SellResult{}, ErrNoMembers
	}

	type pending struct {
		project  string
		customer string
		items    []SellPlanItem
	}
	var queue []pending
	var result SellResult

	for _, member := range shipment.Members {
		items := plan.Items[member.Project]
		if len(items) == 0 {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: no sell plan items", member.Project))
			continue
		}
		customer, err := s.repo.GetProjectCustomer(ctx, member.Project)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return SellResult{}, err
		}
		if customer == "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: no customer on project", member.Project))
			continue
		}
		queue = append(queue, pending{project: member.Project, customer: customer, items: items})
	}

	if len(queue) == 0 {
		return result, nil
	}

	postingDate := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, p := range queue {
			invoice := SalesInvoice{
				Customer:       p.customer,
				Project:        p.project,
				Division:       shipment.Division,
				ConsolShipment: &shipment.ID,
				Company:        plan.Company,
				Currency:       plan.Currency,
				PostingDate:    postingDate,
				DueDate:        postingDate.AddDate(0, 0, 30),
			}
			for _, item := range p.items {
				invoice.Items = append(invoice.Items, SalesInvoiceItem(item))
			}
			id, err := tx.CreateSalesInvoice(ctx, invoice)
			if err != nil {
				return err
			}
			result.Created = append(result.Created, fmt.Sprintf("%d", id))
		}
		return nil
	})
	if err != nil {
		return SellResult{}, err
	}

	s.logger.Info("sales invoices generated",
		slog.Int64("shipment", shipmentID),
		slog.Int("created", len(result.Created)),
		slog.Int("skipped", len(result.Skipped)))
	return result, nil
}
