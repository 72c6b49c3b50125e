package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/forwardline/forwardline/internal/app"
	"github.com/forwardline/forwardline/internal/backfill"
	jobmetrics "github.com/forwardline/forwardline/internal/jobs"
	"github.com/forwardline/forwardline/internal/platform/cache"
	"github.com/forwardline/forwardline/internal/platform/db"
	"github.com/forwardline/forwardline/internal/rates"
	"github.com/forwardline/forwardline/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	backfillRepo := backfill.NewRepository(pool)
	gateRepo := backfill.NewGateRepository(pool)
	backfillService := backfill.NewService(backfillRepo, gateRepo, logger)

	ratesRepo := rates.NewRepository(pool)
	ratesEngine := rates.NewEngine(ratesRepo, logger)
	ratesCache := rates.NewCache(redisClient, cfg.RateCacheTTL)
	ratesService := rates.NewService(ratesEngine, ratesCache)

	sweepTask, err := jobs.NewBackfillSweepTask(jobs.BackfillSweepPayload{DryRun: true})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBackfillSweep, Handler: jobs.NewBackfillSweepHandler(backfillService, logger, metrics)},
			{Type: jobs.TaskRateWarmup, Handler: jobs.NewRateWarmupHandler(ratesService, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 1 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
