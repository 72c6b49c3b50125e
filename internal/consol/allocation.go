package consol

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoMembers rejects allocation over an empty member list.
	ErrNoMembers = errors.New("consol shipment has no members")
	// ErrAllocationBasisZero rejects proportional methods whose basis sums
	// to zero.
	ErrAllocationBasisZero = errors.New("allocation basis is zero")
)

// WarnManualPctFallback is returned when manual_pct lacks usable per-member
// percentages and the engine falls back to an equal split.
const WarnManualPctFallback = "manual percentage data incomplete; fell back to equal allocation"

const cbmToKg = 1000 // volumetric conversion for chargeable weight

// Allocate splits totalAmount across the members under the rule's method and
// returns per-project shares plus any warnings. A nil rule means equal split.
// Shares are cent-reconciled and always sum to totalAmount at two decimals.
func Allocate(totalAmount float64, members []Member, rule *AllocationRule) (map[string]float64, []string, error) {
	if len(members) == 0 {
		return nil, nil, ErrNoMembers
	}

	method := Equal
	if rule != nil {
		method = rule.Method
	}

	var (
		weights  []float64
		warnings []string
		err      error
	)
	switch method {
	case ByCBM:
		weights, err = basisWeights(members, func(m Member) float64 { return m.CBM })
	case ByWeight:
		weights, err = basisWeights(members, func(m Member) float64 { return m.Weight })
	case ByChargeable:
		weights, err = basisWeights(members, func(m Member) float64 {
			return math.Max(m.Weight, m.CBM*cbmToKg)
		})
	case Equal, BySlot:
		weights = equalWeights(len(members))
	case ManualPct:
		weights, warnings = manualWeights(members, rule)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidAllocationMethod, method)
	}
	if err != nil {
		return nil, nil, err
	}

	shares := make([]float64, len(members))
	for i, w := range weights {
		shares[i] = totalAmount * w
	}
	reconcileCents(totalAmount, shares)

	allocation := make(map[string]float64, len(members))
	for i, member := range members {
		allocation[member.Project] = shares[i]
	}
	return allocation, warnings, nil
}

func basisWeights(members []Member, basis func(Member) float64) ([]float64, error) {
	var total float64
	values := make([]float64, len(members))
	for i, member := range members {
		values[i] = basis(member)
		total += values[i]
	}
	if total == 0 {
		return nil, ErrAllocationBasisZero
	}
	for i := range values {
		values[i] /= total
	}
	return values, nil
}

func equalWeights(count int) []float64 {
	weights := make([]float64, count)
	for i := range weights {
		weights[i] = 1 / float64(count)
	}
	return weights
}

// manualWeights uses per-member percentages when every member carries one and
// they sum to 100; anything else falls back to equal with a warning.
func manualWeights(members []Member, rule *AllocationRule) ([]float64, []string) {
	if rule == nil || rule.ManualPercentage == 0 {
		return equalWeights(len(members)), []string{WarnManualPctFallback}
	}

	var sum float64
	weights := make([]float64, len(members))
	for i, member := range members {
		if member.ManualPercent == nil {
			return equalWeights(len(members)), []string{WarnManualPctFallback}
		}
		weights[i] = *member.ManualPercent / 100
		sum += *member.ManualPercent
	}
	if math.Abs(sum-100) > 1e-6 {
		return equalWeights(len(members)), []string{WarnManualPctFallback}
	}
	return weights, nil
}

// reconcileCents rounds shares to two decimals and distributes the leftover
// cents by largest remainder, earlier members first on ties, so the rounded
// shares sum exactly to the rounded total.
func reconcileCents(total float64, shares []float64) {
	totalCents := decimal.NewFromFloat(total).Round(2).Mul(decimal.NewFromInt(100)).IntPart()

	type remainder struct {
		index int
		frac  decimal.Decimal
	}
	floors := make([]int64, len(shares))
	remainders := make([]remainder, len(shares))
	var floorSum int64
	for i, share := range shares {
		cents := decimal.NewFromFloat(share).Mul(decimal.NewFromInt(100))
		floor := cents.Floor()
		floors[i] = floor.IntPart()
		floorSum += floors[i]
		remainders[i] = remainder{index: i, frac: cents.Sub(floor)}
	}

	leftover := totalCents - floorSum
	for assigned := int64(0); assigned < leftover; assigned++ {
		best := -1
		for _, r := range remainders {
			if best == -1 || r.frac.GreaterThan(remainders[best].frac) {
				best = r.index
			}
		}
		floors[best]++
		remainders[best].frac = decimal.NewFromInt(-1)
	}
	for assigned := leftover; assigned < 0; assigned++ {
		worst := -1
		for _, r := range remainders {
			if worst == -1 || r.frac.LessThan(remainders[worst].frac) {
				worst = r.index
			}
		}
		floors[worst]--
		remainders[worst].frac = decimal.NewFromInt(2)
	}

	for i := range shares {
		shares[i] = float64(floors[i]) / 100
	}
}
