package rates

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"
)

// Engine computes freight quotes from contract and pricing master data. It
// is read-only and safe for concurrent use.
type Engine struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(repo Repository, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger, now: time.Now}
}

// FindRates returns quote options for the requested lane, sorted ascending
// by buy rate then transit days. No matching contract or lane yields an
// empty list, not an error.
func (e *Engine) FindRates(ctx context.Context, req QuoteRequest) ([]QuoteOption, error) {
	asOf := e.now()
	if req.AsOfDate != nil {
		asOf = *req.AsOfDate
	}

	contracts, err := e.repo.ListActiveContracts(ctx, req.Mode, asOf)
	if err != nil {
		return nil, err
	}
	rules, err := e.repo.ListPricingRules(ctx, req.Mode)
	if err != nil {
		return nil, err
	}
	rule := firstRule(rules)

	options := make([]QuoteOption, 0)
	for i := range contracts {
		contract := &contracts[i]
		if !contract.Covers(asOf) {
			continue
		}
		for j := range contract.Lanes {
			lane := &contract.Lanes[j]
			if !lane.Matches(req.LaneType, req.Mode, req.Origin, req.Destination) {
				continue
			}
			buy := baseRate(lane, req) + surchargeTotal(contract.Surcharges, req)
			option := QuoteOption{
				Contract:    contract.Name,
				Carrier:     contract.Carrier,
				Currency:    contract.Currency,
				LaneType:    lane.LaneType,
				BuyRate:     buy,
				SellRate:    buy,
				TransitDays: lane.TransitDays,
			}
			if rule != nil {
				option.SellRate = rule.Apply(buy)
				option.PricingRule = rule.Name
			}
			option.Margin = option.SellRate - option.BuyRate
			if option.BuyRate != 0 {
				option.MarginPercent = option.Margin / option.BuyRate * 100
			}
			options = append(options, option)
		}
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].BuyRate != options[j].BuyRate {
			return options[i].BuyRate < options[j].BuyRate
		}
		return transitOrInf(options[i].TransitDays) < transitOrInf(options[j].TransitDays)
	})

	e.logger.Debug("rates computed",
		slog.String("mode", req.Mode),
		slog.String("origin", req.Origin),
		slog.String("destination", req.Destination),
		slog.Int("options", len(options)))
	return options, nil
}

// baseRate resolves a lane's base: exact container-type match first, then a
// weight break containing the requested weight, then the first declared
// base, then zero.
func baseRate(lane *RateLane, req QuoteRequest) float64 {
	if req.ContainerType != "" {
		for _, base := range lane.Bases {
			if base.ContainerType == req.ContainerType {
				return base.BaseRate
			}
		}
	}
	if req.Weight != nil {
		for _, base := range lane.Bases {
			if base.WeightFrom == nil || base.WeightTo == nil {
				continue
			}
			if *req.Weight >= *base.WeightFrom && *req.Weight <= *base.WeightTo {
				return base.BaseRate
			}
		}
	}
	if len(lane.Bases) > 0 {
		return lane.Bases[0].BaseRate
	}
	return 0
}

func surchargeTotal(surcharges []RateSurcharge, req QuoteRequest) float64 {
	var total float64
	for _, s := range surcharges {
		switch s.CalcType {
		case CalcFlat, CalcPercent:
			total += s.Amount
		case CalcPerKg:
			if req.Weight != nil {
				total += s.Amount * *req.Weight
			}
		case CalcPerCntr:
			if req.ContainerType != "" {
				total += s.Amount
			}
		}
	}
	return total
}

// firstRule picks the active rule with the lowest priority number. The repo
// returns rules ordered by priority already; this guards against ties and
// inactive rows slipping through.
func firstRule(rules []PricingRule) *PricingRule {
	var best *PricingRule
	for i := range rules {
		if rules[i].Status != "Active" {
			continue
		}
		if best == nil || rules[i].Priority < best.Priority {
			best = &rules[i]
		}
	}
	return best
}

func transitOrInf(days *int) float64 {
	if days == nil {
		return math.Inf(1)
	}
	return float64(*days)
}
