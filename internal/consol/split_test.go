package consol

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forwardline/forwardline/internal/advances"
	"github.com/forwardline/forwardline/internal/shared"
)

type memoryStore struct {
	shipments map[int64]Shipment
	customers map[string]string

	nextID          int64
	invoices        map[int64]*PurchaseInvoice
	claims          map[int64]*advances.ExpenseClaim
	claimConsols    map[int64]int64
	cancelledClaims map[int64]bool
	salesInvoices   map[int64]*SalesInvoice
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		shipments:       make(map[int64]Shipment),
		customers:       make(map[string]string),
		nextID:          100,
		invoices:        make(map[int64]*PurchaseInvoice),
		claims:          make(map[int64]*advances.ExpenseClaim),
		claimConsols:    make(map[int64]int64),
		cancelledClaims: make(map[int64]bool),
		salesInvoices:   make(map[int64]*SalesInvoice),
	}
}

func (s *memoryStore) GetShipment(_ context.Context, id int64) (Shipment, error) {
	shipment, ok := s.shipments[id]
	if !ok {
		return Shipment{}, shared.ErrNotFound
	}
	return shipment, nil
}

func (s *memoryStore) GetMemberDivisions(_ context.Context, projects []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *memoryStore) GetProjectCustomer(_ context.Context, project string) (string, error) {
	customer, ok := s.customers[project]
	if !ok {
		return "", shared.ErrNotFound
	}
	return customer, nil
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, s)
}

func (s *memoryStore) GetPurchaseInvoice(_ context.Context, id int64) (PurchaseInvoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return PurchaseInvoice{}, shared.ErrNotFound
	}
	return *inv, nil
}

func (s *memoryStore) FindOpenChildInvoice(_ context.Context, project string, consolID int64) (int64, bool, error) {
	for id, inv := range s.invoices {
		if inv.Project == project && inv.ConsolShipment != nil && *inv.ConsolShipment == consolID && !inv.Cancelled {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (s *memoryStore) CreatePurchaseInvoice(_ context.Context, invoice PurchaseInvoice) (int64, error) {
	s.nextID++
	invoice.ID = s.nextID
	invoice.Number = fmt.Sprintf("PINV-%d", s.nextID)
	s.invoices[invoice.ID] = &invoice
	return invoice.ID, nil
}

func (s *memoryStore) AppendInvoiceItem(_ context.Context, invoiceID int64, item PurchaseInvoiceItem) error {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return shared.ErrNotFound
	}
	item.InvoiceID = invoiceID
	inv.Items = append(inv.Items, item)
	inv.Total += item.Amount
	return nil
}

func (s *memoryStore) CancelPurchaseInvoice(_ context.Context, id int64) error {
	inv, ok := s.invoices[id]
	if !ok {
		return shared.ErrNotFound
	}
	inv.Cancelled = true
	return nil
}

func (s *memoryStore) GetExpenseClaim(_ context.Context, id int64) (advances.ExpenseClaim, error) {
	claim, ok := s.claims[id]
	if !ok {
		return advances.ExpenseClaim{}, shared.ErrNotFound
	}
	return *claim, nil
}

func (s *memoryStore) FindOpenChildClaim(_ context.Context, project string, consolID int64) (int64, bool, error) {
	for id, claim := range s.claims {
		if s.claimConsols[id] != consolID {
			continue
		}
		for _, row := range claim.Expenses {
			if row.Project == project {
				return id, true, nil
			}
		}
	}
	return 0, false, nil
}

func (s *memoryStore) CreateExpenseClaim(_ context.Context, claim advances.ExpenseClaim, consolID int64) (int64, error) {
	s.nextID++
	claim.ID = s.nextID
	claim.Number = fmt.Sprintf("EC-%d", s.nextID)
	s.claims[claim.ID] = &claim
	s.claimConsols[claim.ID] = consolID
	return claim.ID, nil
}

func (s *memoryStore) AppendClaimExpense(_ context.Context, claimID int64, row advances.ExpenseDetail) error {
	claim, ok := s.claims[claimID]
	if !ok {
		return shared.ErrNotFound
	}
	row.ClaimID = claimID
	claim.Expenses = append(claim.Expenses, row)
	return nil
}

func (s *memoryStore) CancelExpenseClaim(_ context.Context, id int64) error {
	if _, ok := s.claims[id]; !ok {
		return shared.ErrNotFound
	}
	s.cancelledClaims[id] = true
	delete(s.claimConsols, id)
	return nil
}

func (s *memoryStore) CreateSalesInvoice(_ context.Context, invoice SalesInvoice) (int64, error) {
	s.nextID++
	invoice.ID = s.nextID
	invoice.Number = fmt.Sprintf("SINV-%d", s.nextID)
	invoice.Total = 0
	for _, item := range invoice.Items {
		invoice.Total += item.Amount
	}
	s.salesInvoices[invoice.ID] = &invoice
	return invoice.ID, nil
}

func testShipment(id int64) Shipment {
	etd := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	eta := etd.AddDate(0, 0, 14)
	return Shipment{
		ID:       id,
		Number:   "IMP-SEA-20260301-001",
		Division: "Import",
		Mode:     shared.ModeSea,
		POL:      "IDJKT",
		POD:      "SGSIN",
		ETD:      &etd,
		ETA:      &eta,
		Members: []Member{
			{Project: "P1", CBM: 1, Weight: 400},
			{Project: "P2", CBM: 3, Weight: 600},
		},
		AllocationRules: []AllocationRule{
			{ChargeCode: "OFR", Method: ByCBM},
		},
	}
}

func newSplitService(store *memoryStore) *Service {
	return NewService(store, slog.New(slog.DiscardHandler))
}

func TestSplitPurchaseInvoicePerMember(t *testing.T) {
	store := newMemoryStore()
	store.shipments[1] = testShipment(1)
	store.invoices[10] = &PurchaseInvoice{
		ID:        10,
		Supplier:  "Ocean Carrier Pte",
		Finalized: true,
		Items: []PurchaseInvoiceItem{
			{ItemCode: "OFR", Qty: 4, Rate: 250, Amount: 1000},
			{ItemCode: "DOC", Qty: 1, Rate: 50, Amount: 50},
		},
	}

	result, err := newSplitService(store).SplitPurchaseInvoice(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	require.Empty(t, result.Warnings)

	byProject := make(map[string]*PurchaseInvoice)
	for id, inv := range store.invoices {
		if id == 10 {
			continue
		}
		byProject[inv.Project] = inv
	}
	require.Len(t, byProject, 2)

	// OFR splits by_cbm 1:3; DOC has no rule and splits equally.
	p1 := byProject["P1"]
	require.Len(t, p1.Items, 2)
	require.Equal(t, 250.0, p1.Items[0].Amount)
	require.Equal(t, 1.0, p1.Items[0].Qty)
	require.Equal(t, 25.0, p1.Items[1].Amount)
	require.Equal(t, 275.0, p1.Total)

	p2 := byProject["P2"]
	require.Equal(t, 750.0, p2.Items[0].Amount)
	require.Equal(t, 3.0, p2.Items[0].Qty)
	require.Equal(t, 25.0, p2.Items[1].Amount)
	require.Equal(t, 775.0, p2.Total)

	require.Equal(t, "Ocean Carrier Pte", p1.Supplier)
	require.True(t, store.invoices[10].Cancelled)
}

func TestSplitPurchaseInvoiceMergesIntoOpenChild(t *testing.T) {
	store := newMemoryStore()
	store.shipments[1] = testShipment(1)
	consolID := int64(1)
	store.invoices[20] = &PurchaseInvoice{
		ID:             20,
		Project:        "P1",
		ConsolShipment: &consolID,
		Total:          80,
		Items:          []PurchaseInvoiceItem{{ItemCode: "THC", Qty: 1, Rate: 80, Amount: 80}},
	}
	store.invoices[10] = &PurchaseInvoice{
		ID:    10,
		Items: []PurchaseInvoiceItem{{ItemCode: "DOC", Qty: 2, Rate: 25, Amount: 50}},
	}

	result, err := newSplitService(store).SplitPurchaseInvoice(context.Background(), 1, 10)
	require.NoError(t, err)
	// Only P2 needed a new child; P1 merged into invoice 20.
	require.Len(t, result.Created, 1)
	require.Len(t, store.invoices[20].Items, 2)
	require.Equal(t, 25.0, store.invoices[20].Items[1].Amount)
	require.Equal(t, 105.0, store.invoices[20].Total)
}

func TestSplitPurchaseInvoiceKeepsUnfinalizedSource(t *testing.T) {
	store := newMemoryStore()
	store.shipments[1] = testShipment(1)
	store.invoices[10] = &PurchaseInvoice{
		ID:    10,
		Items: []PurchaseInvoiceItem{{ItemCode: "DOC", Qty: 1, Rate: 50, Amount: 50}},
	}

	_, err := newSplitService(store).SplitPurchaseInvoice(context.Background(), 1, 10)
	require.NoError(t, err)
	require.False(t, store.invoices[10].Cancelled)
}

func TestSplitPurchaseInvoiceSourceNotFound(t *testing.T) {
	store := newMemoryStore()
	store.shipments[1] = testShipment(1)

	_, err := newSplitService(store).SplitPurchaseInvoice(context.Background(), 1, 999)
	require.ErrorIs(t, err, ErrSourceNotFound)
}

func TestSplitPurchaseInvoiceNoMembers(t *testing.T) {
	store := newMemoryStore()
	shipment := testShipment(1)
	shipment.Members = nil
	store.shipments[1] = shipment

	_, err := newSplitService(store).SplitPurchaseInvoice(context.Background(), 1, 10)
	require.ErrorIs(t, err, ErrNoMembers)
}

func TestSplitExpenseClaimPerMember(t *testing.T) {
	store := newMemoryStore()
	store.shipments[1] = testShipment(1)
	store.claims[30] = &advances.ExpenseClaim{
		ID:        30,
		Employee:  "EMP-001",
		Finalized: true,
		Expenses: []advances.ExpenseDetail{
			{ExpenseType: "OFR", Amount: 100},
			{ExpenseType: "Trucking", Amount: 60},
		},
	}
	store.claimConsols[30] = 99 // source tracked under another key, not a child

	result, err := newSplitService(store).SplitExpenseClaim(context.Background(), 1, 30)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	require.True(t, store.cancelledClaims[30])

	children := make(map[string]*advances.ExpenseClaim)
	for id, claim := range store.claims {
		if id == 30 {
			continue
		}
		require.Len(t, claim.Expenses, 2)
		children[claim.Expenses[0].Project] = claim
		require.Equal(t, "EMP-001", claim.Employee)
		require.Equal(t, "Import", claim.Division)
	}

	// OFR by_cbm 1:3, Trucking equal.
	require.Equal(t, 25.0, children["P1"].Expenses[0].Amount)
	require.Equal(t, 30.0, children["P1"].Expenses[1].Amount)
	require.Equal(t, 75.0, children["P2"].Expenses[0].Amount)
	require.Equal(t, 30.0, children["P2"].Expenses[1].Amount)
}

func TestSplitExpenseClaimKeepsUnfinalizedSource(t *testing.T) {
	store := newMemoryStore()
	store.shipments[1] = testShipment(1)
	store.claims[30] = &advances.ExpenseClaim{
		ID:       30,
		Employee: "EMP-001",
		Expenses: []advances.ExpenseDetail{{ExpenseType: "OFR", Amount: 100}},
	}
	store.claimConsols[30] = 99

	_, err := newSplitService(store).SplitExpenseClaim(context.Background(), 1, 30)
	require.NoError(t, err)
	require.False(t, store.cancelledClaims[30])
}

func TestCreateSalesInvoicesSkipsMembersWithoutCustomerOrItems(t *testing.T) {
	store := newMemoryStore()
	store.shipments[1] = testShipment(1)
	store.customers["P1"] = "CUST-ALPHA"
	// P2 has no customer.

	plan := SellPlan{Items: map[string][]SellPlanItem{
		"P1": {{ItemCode: "OFR-SELL", Qty: 1, Rate: 1200, Amount: 1200}},
		"P2": {{ItemCode: "OFR-SELL", Qty: 1, Rate: 800, Amount: 800}},
	}}

	result, err := newSplitService(store).CreateSalesInvoicesPerMember(context.Background(), 1, plan)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	require.Len(t, result.Skipped, 1)
	require.Contains(t, result.Skipped[0], "P2")

	require.Len(t, store.salesInvoices, 1)
	for _, inv := range store.salesInvoices {
		require.Equal(t, "CUST-ALPHA", inv.Customer)
		require.Equal(t, "P1", inv.Project)
		require.Equal(t, "Import", inv.Division)
		require.Equal(t, 1200.0, inv.Items[0].Amount)
		require.Equal(t, 1200.0, inv.Total)
	}
}

func TestCreateSalesInvoicesStampsDatesAndCompany(t *testing.T) {
	store := newMemoryStore()
	store.shipments[1] = testShipment(1)
	store.customers["P1"] = "CUST-ALPHA"
	store.customers["P2"] = "CUST-BETA"

	service := newSplitService(store)
	today := time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)
	service.now = func() time.Time { return today }

	plan := SellPlan{
		Company:  "Forwardline Logistics",
		Currency: "IDR",
		Items: map[string][]SellPlanItem{
			"P1": {{ItemCode: "OFR-SELL", Qty: 1, Rate: 1200, Amount: 1200}},
			"P2": {{ItemCode: "OFR-SELL", Qty: 1, Rate: 800, Amount: 800}},
		},
	}

	result, err := service.CreateSalesInvoicesPerMember(context.Background(), 1, plan)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)

	for _, inv := range store.salesInvoices {
		require.Equal(t, "Forwardline Logistics", inv.Company)
		require.Equal(t, "IDR", inv.Currency)
		require.Equal(t, today, inv.PostingDate)
		require.Equal(t, today.AddDate(0, 0, 30), inv.DueDate)
	}
}

func TestValidateShipment(t *testing.T) {
	store := newMemoryStore()
	service := newSplitService(store)

	t.Run("valid sea shipment", func(t *testing.T) {
		require.NoError(t, service.ValidateShipment(context.Background(), testShipment(1)))
	})

	t.Run("sea without ports", func(t *testing.T) {
		shipment := testShipment(1)
		shipment.POD = ""
		require.ErrorIs(t, service.ValidateShipment(context.Background(), shipment), shared.ErrMissingRequiredField)
	})

	t.Run("duplicate member project", func(t *testing.T) {
		shipment := testShipment(1)
		shipment.Members = append(shipment.Members, Member{Project: "P1"})
		require.Error(t, service.ValidateShipment(context.Background(), shipment))
	})

	t.Run("eta before etd", func(t *testing.T) {
		shipment := testShipment(1)
		early := shipment.ETD.AddDate(0, 0, -1)
		shipment.ETA = &early
		require.Error(t, service.ValidateShipment(context.Background(), shipment))
	})
}
