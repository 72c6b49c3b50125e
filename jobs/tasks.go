package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/forwardline/forwardline/internal/backfill"
	jobmetrics "github.com/forwardline/forwardline/internal/jobs"
	"github.com/forwardline/forwardline/internal/rates"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBackfillSweep runs the data-repair utilities and release gates.
	TaskBackfillSweep = "backfill:sweep"
	// TaskRateWarmup primes the quote cache for frequently quoted lanes.
	TaskRateWarmup = "rates:warmup"
)

// BackfillSweepPayload controls a sweep run. Scheduled sweeps default to
// dry-run; mutation has to be opted into explicitly.
type BackfillSweepPayload struct {
	DryRun bool `json:"dry_run"`
}

// NewBackfillSweepTask constructs the sweep task.
func NewBackfillSweepTask(payload BackfillSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBackfillSweep, data), nil
}

// NewBackfillSweepHandler processes TaskBackfillSweep tasks.
func NewBackfillSweepHandler(service *backfill.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("backfill_sweep")
		var payload BackfillSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		division, err := service.BackfillDivision(ctx, payload.DryRun)
		if err != nil {
			return tracker.End(err)
		}
		expense, err := service.BackfillExpenseProjects(ctx, payload.DryRun)
		if err != nil {
			return tracker.End(err)
		}
		gates, err := service.RunGates(ctx)
		if err != nil {
			return tracker.End(err)
		}

		failed := 0
		for _, gate := range gates {
			if !gate.Passed {
				failed++
			}
		}
		logger.Info("backfill sweep finished",
			slog.Bool("dry_run", payload.DryRun),
			slog.Int("division_examined", division.Examined),
			slog.Int("expense_examined", expense.Examined),
			slog.Int("gates_failed", failed))
		return tracker.End(nil)
	}
}

// RateWarmupPayload lists the quote requests to prime.
type RateWarmupPayload struct {
	Requests []rates.QuoteRequest `json:"requests"`
}

// NewRateWarmupTask constructs the warmup task.
func NewRateWarmupTask(payload RateWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRateWarmup, data), nil
}

// NewRateWarmupHandler processes TaskRateWarmup tasks. Each request is
// quoted through the caching service so subsequent API calls hit Redis.
func NewRateWarmupHandler(service *rates.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("rate_warmup")
		var payload RateWarmupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		for _, req := range payload.Requests {
			if _, err := service.FindRates(ctx, req); err != nil {
				logger.Warn("rate warmup request failed",
					slog.String("origin", req.Origin),
					slog.String("destination", req.Destination),
					slog.Any("error", err))
			}
		}
		logger.Info("rate warmup finished", slog.Int("requests", len(payload.Requests)))
		return tracker.End(nil)
	}
}
