package rates

import (
	"time"

	"github.com/forwardline/forwardline/internal/shared"
)

// CalcType enumerates how a surcharge contributes to the buy rate.
type CalcType string

const (
	CalcFlat    CalcType = "flat"
	CalcPerKg   CalcType = "per_kg"
	CalcPerCntr CalcType = "per_cntr"
	// CalcPercent is carried over from the legacy contract data where the
	// percentage value is booked as a flat amount, not computed against the
	// base rate. Kept verbatim for quote parity with existing contracts.
	CalcPercent CalcType = "percent"
)

// RateContract is an agreed carrier tariff valid for a date window.
type RateContract struct {
	ID           int64
	Name         string
	Carrier      string
	Status       string
	Mode         string
	Currency     string
	ValidityFrom time.Time
	ValidityTo   time.Time
	Lanes        []RateLane
	Surcharges   []RateSurcharge
}

// Covers reports whether the contract is valid on the given date. Both
// bounds are inclusive.
func (c *RateContract) Covers(asOf time.Time) bool {
	day := asOf.Truncate(24 * time.Hour)
	return !day.Before(c.ValidityFrom.Truncate(24*time.Hour)) &&
		!day.After(c.ValidityTo.Truncate(24*time.Hour))
}

// RateLane is one origin/destination pair within a contract. Endpoint
// columns are mode specific: POL/POD for Sea, AOO/AOD for Air, city pair
// for Land.
type RateLane struct {
	ID          int64
	LaneType    string
	POL, POD    string
	AOO, AOD    string
	Origin      string
	Destination string
	TransitDays *int
	Bases       []RateBase
}

// Matches checks the lane against the requested endpoints for the given
// mode. Exact string comparison, no fuzzy matching.
func (l *RateLane) Matches(laneType, mode, origin, destination string) bool {
	if l.LaneType != laneType {
		return false
	}
	switch mode {
	case shared.ModeSea:
		return l.POL == origin && l.POD == destination
	case shared.ModeAir:
		return l.AOO == origin && l.AOD == destination
	case shared.ModeLand:
		return l.Origin == origin && l.Destination == destination
	default:
		return false
	}
}

// RateBase is a priced slab on a lane, keyed either by container type or a
// weight-break range.
type RateBase struct {
	ContainerType string
	WeightFrom    *float64
	WeightTo      *float64
	BaseRate      float64
}

// RateSurcharge is an additional contract-level charge applied on top of
// the lane base rate.
type RateSurcharge struct {
	Name     string
	CalcType CalcType
	Amount   float64
}

// PricingRule turns a buy rate into a sell rate. Rules are ranked by
// ascending priority; only the first applicable rule is applied.
type PricingRule struct {
	ID            int64
	Name          string
	Status        string
	Mode          string
	Priority      int
	MarkupType    string
	MarkupValue   float64
	DiscountType  string
	DiscountValue float64
}

const (
	adjustPercentage = "Percentage"
	adjustAbsolute   = "Absolute"
)

// Apply computes the sell rate from a buy rate under this rule.
func (p *PricingRule) Apply(buy float64) float64 {
	sell := buy
	switch p.MarkupType {
	case adjustPercentage:
		sell *= 1 + p.MarkupValue/100
	case adjustAbsolute:
		sell += p.MarkupValue
	}
	switch p.DiscountType {
	case adjustPercentage:
		sell *= 1 - p.DiscountValue/100
	case adjustAbsolute:
		sell -= p.DiscountValue
	}
	return sell
}

// QuoteRequest is the find-rates input.
type QuoteRequest struct {
	LaneType      string     `json:"lane_type" validate:"required"`
	Origin        string     `json:"origin" validate:"required"`
	Destination   string     `json:"destination" validate:"required"`
	Mode          string     `json:"mode" validate:"required,oneof=Sea Air Land"`
	AsOfDate      *time.Time `json:"as_of_date,omitempty"`
	Weight        *float64   `json:"weight,omitempty" validate:"omitempty,gt=0"`
	CBM           *float64   `json:"cbm,omitempty" validate:"omitempty,gt=0"`
	ContainerType string     `json:"container_type,omitempty"`
}

// QuoteOption is one priced (contract, lane) pair.
type QuoteOption struct {
	Contract      string  `json:"contract"`
	Carrier       string  `json:"carrier"`
	Currency      string  `json:"currency"`
	LaneType      string  `json:"lane_type"`
	BuyRate       float64 `json:"buy_rate"`
	SellRate      float64 `json:"sell_rate"`
	Margin        float64 `json:"margin"`
	MarginPercent float64 `json:"margin_percent"`
	TransitDays   *int    `json:"transit_days,omitempty"`
	PricingRule   string  `json:"pricing_rule,omitempty"`
}
