package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/forwardline/forwardline/internal/app"
	"github.com/forwardline/forwardline/internal/backfill"
	"github.com/forwardline/forwardline/internal/platform/db"
)

func main() {
	var (
		task    = flag.String("task", "all", "which backfill to run: division, expense-projects or all")
		dryRun  = flag.Bool("dry-run", true, "report planned changes without writing them")
		gates   = flag.Bool("gates", true, "run release gates after the backfill")
		jsonOut = flag.Bool("json", false, "emit machine-readable summaries")
	)
	flag.Parse()

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

	service := backfill.NewService(backfill.NewRepository(pool), backfill.NewGateRepository(pool), logger)

	var summaries []backfill.Summary
	runners := map[string]func(context.Context, bool) (backfill.Summary, error){
		"division":         service.BackfillDivision,
		"expense-projects": service.BackfillExpenseProjects,
	}
	var order []string
	switch *task {
	case "all":
		order = []string{"division", "expense-projects"}
	case "division", "expense-projects":
		order = []string{*task}
	default:
		fmt.Fprintf(os.Stderr, "backfill: unknown task %q (expected division, expense-projects or all)\n", *task)
		os.Exit(1)
	}

	for _, name := range order {
		summary, err := runners[name](ctx, *dryRun)
		if err != nil {
			logger.Error("backfill run", slog.String("task", name), slog.Any("error", err))
			os.Exit(1)
		}
		summaries = append(summaries, summary)
	}

	var gateResults []backfill.GateResult
	if *gates {
		gateResults, err = service.RunGates(ctx)
		if err != nil {
			logger.Error("run gates", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if *jsonOut {
		out := struct {
			Summaries []backfill.Summary    `json:"summaries"`
			Gates     []backfill.GateResult `json:"gates,omitempty"`
		}{Summaries: summaries, Gates: gateResults}
		if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "backfill: encode output: %v\n", err)
			os.Exit(1)
		}
	} else {
		for _, summary := range summaries {
			mode := "apply"
			if summary.DryRun {
				mode = "dry-run"
			}
			fmt.Printf("%s (%s): examined %d, updated %d\n", summary.Task, mode, summary.Examined, summary.Updated)
			for _, detail := range summary.Details {
				fmt.Printf(" - %s\n", detail)
			}
		}
		for _, gate := range gateResults {
			status := "PASS"
			if !gate.Passed {
				status = "FAIL"
			}
			fmt.Printf("gate %s: %s\n", gate.Name, status)
			for _, issue := range gate.Issues {
				fmt.Printf(" - %s\n", issue)
			}
		}
	}

	for _, gate := range gateResults {
		if !gate.Passed {
			os.Exit(10)
		}
	}
}
