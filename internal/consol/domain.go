package consol

import (
	"errors"
	"fmt"
	"time"

	"github.com/forwardline/forwardline/internal/shared"
)

// Method enumerates the closed set of allocation methods. Unknown method
// strings are rejected at the boundary by ParseMethod.
type Method string

const (
	ByCBM        Method = "by_cbm"
	ByWeight     Method = "by_weight"
	ByChargeable Method = "by_chargeable"
	Equal        Method = "equal"
	BySlot       Method = "by_slot"
	ManualPct    Method = "manual_pct"
)

// ErrInvalidAllocationMethod rejects method strings outside the closed set.
var ErrInvalidAllocationMethod = errors.New("invalid allocation method")

// ParseMethod validates a raw method string into the closed enum.
func ParseMethod(raw string) (Method, error) {
	switch Method(raw) {
	case ByCBM, ByWeight, ByChargeable, Equal, BySlot, ManualPct:
		return Method(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAllocationMethod, raw)
	}
}

// Member is one project participating in a consolidated shipment. CBM and
// Weight drive the proportional allocation methods; ManualPercent, when set on
// every member, drives manual_pct.
type Member struct {
	Project       string
	CBM           float64
	Weight        float64
	ManualPercent *float64
}

// AllocationRule maps a charge code to the method used to split it.
type AllocationRule struct {
	ChargeCode       string
	Method           Method
	ManualPercentage float64
}

// Shipment is a consolidated shipment grouping several project members.
type Shipment struct {
	ID              int64
	Number          string
	Division        string
	Mode            string
	POL, POD        string
	AOO, AOD        string
	ETD, ETA        *time.Time
	Members         []Member
	AllocationRules []AllocationRule
}

// RuleFor returns the first allocation rule matching the charge code, or nil
// when the default applies.
func (s *Shipment) RuleFor(chargeCode string) *AllocationRule {
	for i := range s.AllocationRules {
		if s.AllocationRules[i].ChargeCode == chargeCode {
			return &s.AllocationRules[i]
		}
	}
	return nil
}

// Validate enforces the shipment invariants before it can drive a split:
// members present and unique, member divisions matching the shipment,
// mode-dependent endpoints filled, ETD before ETA, and allocation rules from
// the closed method set.
func (s *Shipment) Validate(memberDivisions map[string]string) error {
	if len(s.Members) == 0 {
		return ErrNoMembers
	}

	seen := make(map[string]struct{}, len(s.Members))
	for _, member := range s.Members {
		if member.Project == "" {
			return fmt.Errorf("consol member: %w: project", shared.ErrMissingRequiredField)
		}
		if _, dup := seen[member.Project]; dup {
			return fmt.Errorf("duplicate project %s in consol members", member.Project)
		}
		seen[member.Project] = struct{}{}
		if division, ok := memberDivisions[member.Project]; ok && division != s.Division {
			return fmt.Errorf("project %s division %q does not match consol division %q", member.Project, division, s.Division)
		}
	}

	if shared.HasMode(s.Mode, shared.ModeSea) && (s.POL == "" || s.POD == "") {
		return fmt.Errorf("%w: POL and POD are required for Sea mode", shared.ErrMissingRequiredField)
	}
	if shared.HasMode(s.Mode, shared.ModeAir) && (s.AOO == "" || s.AOD == "") {
		return fmt.Errorf("%w: AOO and AOD are required for Air mode", shared.ErrMissingRequiredField)
	}
	if s.ETD != nil && s.ETA != nil && !s.ETD.Before(*s.ETA) {
		return errors.New("ETD must be before ETA")
	}

	for _, rule := range s.AllocationRules {
		if _, err := ParseMethod(string(rule.Method)); err != nil {
			return err
		}
		if rule.Method == ManualPct && rule.ManualPercentage == 0 {
			return errors.New("manual percentage is required for manual_pct allocation")
		}
	}
	return nil
}

// PurchaseInvoice is the buy-side source or child document of a split.
type PurchaseInvoice struct {
	ID             int64
	Number         string
	Supplier       string
	Project        string
	ConsolShipment *int64
	Company        string
	Currency       string
	PostingDate    time.Time
	DueDate        time.Time
	Total          float64
	Finalized      bool
	Cancelled      bool
	Items          []PurchaseInvoiceItem
}

// PurchaseInvoiceItem carries qty and rate; amount stays qty-consistent when
// the orchestrator scales allocated shares.
type PurchaseInvoiceItem struct {
	ID        int64
	InvoiceID int64
	ItemCode  string
	ItemName  string
	ItemGroup string
	UOM       string
	Qty       float64
	Rate      float64
	Amount    float64
}

// SalesInvoice is the sell-side child document generated per member.
type SalesInvoice struct {
	ID             int64
	Number         string
	Customer       string
	Project        string
	Division       string
	ConsolShipment *int64
	Company        string
	Currency       string
	PostingDate    time.Time
	DueDate        time.Time
	Total          float64
	Items          []SalesInvoiceItem
}

type SalesInvoiceItem struct {
	ItemCode  string
	ItemName  string
	ItemGroup string
	UOM       string
	Qty       float64
	Rate      float64
	Amount    float64
}

// SellPlanItem is one planned revenue line for a member project.
type SellPlanItem struct {
	ItemCode  string
	ItemName  string
	ItemGroup string
	UOM       string
	Qty       float64
	Rate      float64
	Amount    float64
}
