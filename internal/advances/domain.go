package advances

import (
	"time"
)

// LineStatus enumerates advance line statuses.
type LineStatus string

const (
	LineOpen   LineStatus = "Open"
	LineClosed LineStatus = "Closed"
)

// EmployeeAdvance is the parent document owning allocation lines. Its
// lifecycle (submit/cancel) belongs to the host platform; this package only
// validates it and mutates its lines.
type EmployeeAdvance struct {
	ID            int64
	Number        string
	Employee      string
	Project       string
	Division      string
	AdvanceAmount float64
	PostingDate   time.Time
	Lines         []AdvanceLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AdvanceLine is a ledger row tracking money allocated to a project and how
// much expense claims have consumed from it.
type AdvanceLine struct {
	ID              int64
	AdvanceID       int64
	Project         string
	Item            string
	ItemGroup       string
	ServiceType     string
	AllocatedAmount float64
	ConsumedAmount  float64
	BalanceAmount   float64
	LineStatus      LineStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Balance returns allocated minus consumed without mutating the line.
func (l AdvanceLine) Balance() float64 {
	return l.AllocatedAmount - l.ConsumedAmount
}

// Recompute refreshes the derived balance and status. Every mutation path
// goes through this so balance_amount == allocated - consumed at all times.
func (l *AdvanceLine) Recompute() {
	l.BalanceAmount = l.AllocatedAmount - l.ConsumedAmount
	if l.BalanceAmount <= 0 {
		l.LineStatus = LineClosed
	} else {
		l.LineStatus = LineOpen
	}
}

// ExpenseClaim is the source document for consumption. Rows live in Expenses.
type ExpenseClaim struct {
	ID          int64
	Number      string
	Employee    string
	Division    string
	Company     string
	Currency    string
	PostingDate time.Time
	Finalized   bool
	Expenses    []ExpenseDetail
}

// ExpenseDetail is a claim row. AdvanceLineRef points at the exact line to
// debit; AdvanceRef points at the parent advance when the line is not yet
// known and the engine should pick one.
type ExpenseDetail struct {
	ID             int64
	ClaimID        int64
	ExpenseDate    time.Time
	ExpenseType    string
	Project        string
	Item           string
	ServiceType    string
	Description    string
	Amount         float64
	AdvanceLineRef *int64
	AdvanceRef     *int64
}

// UtilizationRow is the per-line view consumed by the advance utilization
// report.
type UtilizationRow struct {
	Project         string
	AdvanceNumber   string
	LineID          int64
	Item            string
	ServiceType     string
	AllocatedAmount float64
	ConsumedAmount  float64
	BalanceAmount   float64
	LineStatus      LineStatus
}
