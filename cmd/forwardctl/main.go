package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/forwardline/forwardline/internal/advances"
	"github.com/forwardline/forwardline/internal/app"
	"github.com/forwardline/forwardline/internal/backfill"
	"github.com/forwardline/forwardline/internal/consol"
	"github.com/forwardline/forwardline/internal/imports"
	"github.com/forwardline/forwardline/internal/naming"
	"github.com/forwardline/forwardline/internal/observability"
	"github.com/forwardline/forwardline/internal/platform/cache"
	"github.com/forwardline/forwardline/internal/platform/db"
	"github.com/forwardline/forwardline/internal/projects"
	"github.com/forwardline/forwardline/internal/rates"
	"github.com/forwardline/forwardline/internal/reports"
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	series := naming.NewSeries()

	advancesRepo := advances.NewRepository(pool)
	advancesService := advances.NewService(advancesRepo, logger)
	advancesHandler := advances.NewHandler(logger, advancesService)

	consolRepo := consol.NewRepository(pool, series)
	consolService := consol.NewService(consolRepo, logger)
	consolHandler := consol.NewHandler(logger, consolService)

	ratesRepo := rates.NewRepository(pool)
	ratesEngine := rates.NewEngine(ratesRepo, logger)
	ratesCache := rates.NewCache(redisClient, cfg.RateCacheTTL)
	ratesService := rates.NewService(ratesEngine, ratesCache)
	ratesHandler := rates.NewHandler(logger, ratesService)

	projectsRepo := projects.NewRepository(pool, series)
	projectsService := projects.NewService(projectsRepo, logger)
	projectsHandler := projects.NewHandler(logger, projectsService)

	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo, advancesService, logger)
	reportsHandler := reports.NewHandler(logger, reportsService)

	backfillRepo := backfill.NewRepository(pool)
	gateRepo := backfill.NewGateRepository(pool)
	backfillService := backfill.NewService(backfillRepo, gateRepo, logger)
	backfillHandler := backfill.NewHandler(logger, backfillService)

	importsRepo := imports.NewRepository(pool)
	importsService := imports.NewService(importsRepo, logger)
	importsHandler := imports.NewHandler(logger, importsService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Pool:            pool,
		AdvancesHandler: advancesHandler,
		ConsolHandler:   consolHandler,
		RatesHandler:    ratesHandler,
		ProjectsHandler: projectsHandler,
		ReportsHandler:  reportsHandler,
		BackfillHandler: backfillHandler,
		ImportsHandler:  importsHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
