package rates

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads rate and pricing master data.
type Repository interface {
	ListActiveContracts(ctx context.Context, mode string, asOf time.Time) ([]RateContract, error)
	ListPricingRules(ctx context.Context, mode string) ([]PricingRule, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListActiveContracts(ctx context.Context, mode string, asOf time.Time) ([]RateContract, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, carrier, status, mode, currency, validity_from, validity_to
FROM rate_contracts
WHERE status = 'Active' AND mode LIKE '%' || $1 || '%'
  AND validity_from <= $2 AND validity_to >= $2
ORDER BY id ASC`, mode, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []RateContract
	index := make(map[int64]int)
	var ids []int64
	for rows.Next() {
		var c RateContract
		if err := rows.Scan(&c.ID, &c.Name, &c.Carrier, &c.Status, &c.Mode, &c.Currency,
			&c.ValidityFrom, &c.ValidityTo); err != nil {
			return nil, err
		}
		index[c.ID] = len(contracts)
		ids = append(ids, c.ID)
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return contracts, nil
	}

	laneOrder, lanes, laneOwner, err := r.loadLanes(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := r.loadBases(ctx, ids, lanes); err != nil {
		return nil, err
	}
	for _, laneID := range laneOrder {
		pos := index[laneOwner[laneID]]
		contracts[pos].Lanes = append(contracts[pos].Lanes, *lanes[laneID])
	}
	if err := r.loadSurcharges(ctx, ids, contracts, index); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repository) loadLanes(ctx context.Context, contractIDs []int64) ([]int64, map[int64]*RateLane, map[int64]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id, contract_id, lane_type,
  COALESCE(pol,''), COALESCE(pod,''), COALESCE(aoo,''), COALESCE(aod,''),
  COALESCE(origin,''), COALESCE(destination,''), transit_days
FROM rate_lanes WHERE contract_id = ANY($1) ORDER BY id ASC`, contractIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()

	var order []int64
	lanes := make(map[int64]*RateLane)
	owner := make(map[int64]int64)
	for rows.Next() {
		var lane RateLane
		var contractID int64
		if err := rows.Scan(&lane.ID, &contractID, &lane.LaneType, &lane.POL, &lane.POD,
			&lane.AOO, &lane.AOD, &lane.Origin, &lane.Destination, &lane.TransitDays); err != nil {
			return nil, nil, nil, err
		}
		order = append(order, lane.ID)
		lanes[lane.ID] = &lane
		owner[lane.ID] = contractID
	}
	return order, lanes, owner, rows.Err()
}

func (r *repository) loadBases(ctx context.Context, contractIDs []int64, lanes map[int64]*RateLane) error {
	rows, err := r.db.Query(ctx, `SELECT b.lane_id, COALESCE(b.container_type,''), b.weight_from, b.weight_to, b.base_rate
FROM rate_bases b
JOIN rate_lanes l ON l.id = b.lane_id
WHERE l.contract_id = ANY($1)
ORDER BY b.id ASC`, contractIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var laneID int64
		var base RateBase
		if err := rows.Scan(&laneID, &base.ContainerType, &base.WeightFrom, &base.WeightTo, &base.BaseRate); err != nil {
			return err
		}
		if lane, ok := lanes[laneID]; ok {
			lane.Bases = append(lane.Bases, base)
		}
	}
	return rows.Err()
}

func (r *repository) loadSurcharges(ctx context.Context, contractIDs []int64, contracts []RateContract, index map[int64]int) error {
	rows, err := r.db.Query(ctx, `SELECT contract_id, name, calc_type, amount
FROM rate_surcharges WHERE contract_id = ANY($1) ORDER BY id ASC`, contractIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var contractID int64
		var s RateSurcharge
		if err := rows.Scan(&contractID, &s.Name, &s.CalcType, &s.Amount); err != nil {
			return err
		}
		if pos, ok := index[contractID]; ok {
			contracts[pos].Surcharges = append(contracts[pos].Surcharges, s)
		}
	}
	return rows.Err()
}

func (r *repository) ListPricingRules(ctx context.Context, mode string) ([]PricingRule, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, status, mode, priority,
  COALESCE(markup_type,''), COALESCE(markup_value,0), COALESCE(discount_type,''), COALESCE(discount_value,0)
FROM pricing_rules
WHERE status = 'Active' AND mode LIKE '%' || $1 || '%'
ORDER BY priority ASC, id ASC`, mode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []PricingRule
	for rows.Next() {
		var rule PricingRule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Status, &rule.Mode, &rule.Priority,
			&rule.MarkupType, &rule.MarkupValue, &rule.DiscountType, &rule.DiscountValue); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
