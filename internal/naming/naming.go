// Package naming implements the dynamic document numbering series:
// projects get {DIV}-{MODE}-{YYYYMMDD}-{###}, financial documents get
// {DIV}-{KIND}-{YYYY}-{#####}.
package naming

import (
	"fmt"
	"time"

	"github.com/forwardline/forwardline/internal/shared"
)

// Kind is the document-type token embedded in a number.
type Kind string

const (
	KindSalesInvoice    Kind = "SINV"
	KindPurchaseInvoice Kind = "PINV"
	KindPurchaseOrder   Kind = "PO"
	KindEmployeeAdvance Kind = "EADV"
	KindExpenseClaim    Kind = "EC"
)

// Prefix is a series key plus the zero-padded width of its counter.
type Prefix struct {
	Text  string
	Width int
}

// Format renders the number for a sequence value under the prefix.
func (p Prefix) Format(seq int64) string {
	return fmt.Sprintf("%s%0*d", p.Text, p.Width, seq)
}

// ProjectPrefix builds the project series prefix. Division and mode are both
// required; the mode component uses the first mode of a multi-select value.
func ProjectPrefix(division, mode string, at time.Time) (Prefix, error) {
	if division == "" || mode == "" {
		return Prefix{}, fmt.Errorf("project naming: %w: division and mode", shared.ErrMissingRequiredField)
	}
	divCode, ok := shared.DivisionCode(division)
	if !ok {
		return Prefix{}, fmt.Errorf("project naming: unknown division %q", division)
	}
	modeCode, ok := shared.ModeCode(shared.FirstMode(mode))
	if !ok {
		return Prefix{}, fmt.Errorf("project naming: unknown mode %q", mode)
	}
	return Prefix{
		Text:  fmt.Sprintf("%s-%s-%s-", divCode, modeCode, at.Format("20060102")),
		Width: 3,
	}, nil
}

// DocumentPrefix builds the yearly series prefix for a financial document.
func DocumentPrefix(kind Kind, division string, at time.Time) (Prefix, error) {
	if division == "" {
		return Prefix{}, fmt.Errorf("%s naming: %w: division", kind, shared.ErrMissingRequiredField)
	}
	divCode, ok := shared.DivisionCode(division)
	if !ok {
		return Prefix{}, fmt.Errorf("%s naming: unknown division %q", kind, division)
	}
	return Prefix{
		Text:  fmt.Sprintf("%s-%s-%d-", divCode, kind, at.Year()),
		Width: 5,
	}, nil
}

// PurchaseInvoicePrefix is the series for split child purchase invoices.
func PurchaseInvoicePrefix(division string) (Prefix, error) {
	return DocumentPrefix(KindPurchaseInvoice, division, time.Now())
}

// ExpenseClaimPrefix is the series for split child expense claims.
func ExpenseClaimPrefix(division string) (Prefix, error) {
	return DocumentPrefix(KindExpenseClaim, division, time.Now())
}

// SalesInvoicePrefix is the series for generated member sales invoices.
func SalesInvoicePrefix(division string) (Prefix, error) {
	return DocumentPrefix(KindSalesInvoice, division, time.Now())
}
