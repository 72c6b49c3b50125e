package rates

import (
	"errors"
	"fmt"

	"github.com/forwardline/forwardline/internal/shared"
)

// ValidateContract enforces contract master invariants before save.
func ValidateContract(contract RateContract) error {
	if contract.Mode == "" {
		return fmt.Errorf("rate contract: %w: mode", shared.ErrMissingRequiredField)
	}
	if !contract.ValidityFrom.Before(contract.ValidityTo) {
		return errors.New("validity_from must be before validity_to")
	}
	if len(contract.Lanes) == 0 {
		return errors.New("rate contract needs at least one lane")
	}
	for _, lane := range contract.Lanes {
		if err := validateLane(contract.Mode, lane); err != nil {
			return err
		}
	}
	return nil
}

func validateLane(mode string, lane RateLane) error {
	if shared.HasMode(mode, shared.ModeSea) && (lane.POL == "" || lane.POD == "") {
		return fmt.Errorf("lane %q: %w: POL and POD for Sea mode", lane.LaneType, shared.ErrMissingRequiredField)
	}
	if shared.HasMode(mode, shared.ModeAir) && (lane.AOO == "" || lane.AOD == "") {
		return fmt.Errorf("lane %q: %w: AOO and AOD for Air mode", lane.LaneType, shared.ErrMissingRequiredField)
	}
	if shared.HasMode(mode, shared.ModeLand) && (lane.Origin == "" || lane.Destination == "") {
		return fmt.Errorf("lane %q: %w: origin and destination for Land mode", lane.LaneType, shared.ErrMissingRequiredField)
	}
	for _, base := range lane.Bases {
		if base.WeightFrom != nil && base.WeightTo != nil && *base.WeightFrom > *base.WeightTo {
			return fmt.Errorf("lane %q: weight break from %g exceeds to %g", lane.LaneType, *base.WeightFrom, *base.WeightTo)
		}
	}
	return nil
}

// ValidatePricingRule enforces that a rule carries a markup or a discount
// but never both.
func ValidatePricingRule(rule PricingRule) error {
	hasMarkup := rule.MarkupType != ""
	hasDiscount := rule.DiscountType != ""
	if hasMarkup && hasDiscount {
		return errors.New("pricing rule cannot carry both markup and discount")
	}
	if !hasMarkup && !hasDiscount {
		return errors.New("pricing rule needs a markup or a discount")
	}
	for _, kind := range []string{rule.MarkupType, rule.DiscountType} {
		if kind != "" && kind != adjustPercentage && kind != adjustAbsolute {
			return fmt.Errorf("unknown adjustment type %q", kind)
		}
	}
	return nil
}
