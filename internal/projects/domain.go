package projects

import (
	"errors"
	"fmt"
	"time"

	"github.com/forwardline/forwardline/internal/shared"
)

// Project is a forwarding job. Its number carries division, first mode and
// opening date, so both must be present before the first save.
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Division    string     `json:"division"`
	Mode        string     `json:"mode"`
	ServiceType string     `json:"service_type,omitempty"`
	Customer    string     `json:"customer,omitempty"`
	POL         string     `json:"pol,omitempty"`
	POD         string     `json:"pod,omitempty"`
	AOO         string     `json:"aoo,omitempty"`
	AOD         string     `json:"aod,omitempty"`
	ETD         *time.Time `json:"etd,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`
	OpenedAt    time.Time  `json:"opened_at"`
}

// Validate enforces the project invariants shared with consol shipments:
// mode-dependent endpoints and a sane schedule.
func (p *Project) Validate() error {
	if p.Division == "" {
		return fmt.Errorf("project: %w: division", shared.ErrMissingRequiredField)
	}
	if p.Mode == "" {
		return fmt.Errorf("project: %w: mode", shared.ErrMissingRequiredField)
	}
	if p.ServiceType != "" && !shared.ValidServiceType(p.ServiceType) {
		return fmt.Errorf("unknown service type %q", p.ServiceType)
	}
	if shared.HasMode(p.Mode, shared.ModeSea) && (p.POL == "" || p.POD == "") {
		return fmt.Errorf("%w: POL and POD are required for Sea mode", shared.ErrMissingRequiredField)
	}
	if shared.HasMode(p.Mode, shared.ModeAir) && (p.AOO == "" || p.AOD == "") {
		return fmt.Errorf("%w: AOO and AOD are required for Air mode", shared.ErrMissingRequiredField)
	}
	if p.ETD != nil && p.ETA != nil && !p.ETD.Before(*p.ETA) {
		return errors.New("ETD must be before ETA")
	}
	return nil
}

// DocumentSummary is one row of a project document listing.
type DocumentSummary struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	Doctype     string    `json:"doctype"`
	Party       string    `json:"party,omitempty"`
	PostingDate time.Time `json:"posting_date"`
	Total       float64   `json:"total"`
	Status      string    `json:"status,omitempty"`
}

// Dashboard aggregates a project's recent documents and totals.
type Dashboard struct {
	Project   Project                      `json:"project"`
	Recent    map[string][]DocumentSummary `json:"recent"`
	BuyTotal  float64                      `json:"buy_total"`
	SellTotal float64                      `json:"sell_total"`
	Margin    float64                      `json:"margin"`
}
