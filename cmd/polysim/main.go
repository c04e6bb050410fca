package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/adapters/notify"
	"github.com/alejandrodnm/polysim/internal/adapters/storage"
	"github.com/alejandrodnm/polysim/internal/application/backtest"
	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	strategyName := flag.String("strategy", "longshot", "strategy to backtest")
	seed := flag.Int64("seed", 0, "override the synthetic feed seed")
	compare := flag.Bool("compare", false, "run every strategy on the same feed and compare")
	sweep := flag.Int("sweep", 0, "run the strategy over N consecutive seeds")
	jsonData := flag.String("json-data", "", "backtest a local JSON history file instead of the synthetic feed")
	fetch := flag.String("fetch", "", "comma-separated Polymarket condition IDs to fetch history for, or 'recent' to auto-discover")
	save := flag.Bool("save", false, "persist results to the runs database")
	listRuns := flag.Bool("runs", false, "list stored runs and exit")
	table := flag.Bool("table", false, "include the trade log in the report")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("failed to load config", "err", err, "path", *configPath)
			os.Exit(1)
		}
		// Sin fichero de config el modo sintético funciona con defaults.
		cfg = config.Default()
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	// flag.Visit distingue "-seed 0" explícito del default.
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Synthetic.Seed = *seed
		}
	})
	setupLogger(cfg.Log)
	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *listRuns {
		printStoredRuns(ctx, cfg.Storage.DSN)
		return
	}

	registry := strategy.BuildRegistry(cfg.Strategy)

	slog.Info("polysim starting",
		"config", *configPath,
		"strategy", *strategyName,
		"seed", cfg.Synthetic.Seed,
		"compare", *compare,
		"sweep", *sweep,
	)

	newFeed, err := buildFeedFactory(ctx, cfg, *jsonData, *fetch)
	if err != nil {
		slog.Error("failed to build feed", "err", err)
		os.Exit(1)
	}

	var specs []backtest.RunSpec
	switch {
	case *compare:
		for _, name := range registry.Names() {
			specs = append(specs, backtest.RunSpec{Strategy: name, Seed: cfg.Synthetic.Seed})
		}
	case *sweep > 1:
		if _, ok := registry.Get(*strategyName); !ok {
			exitUnknownStrategy(*strategyName, registry)
		}
		for i := 0; i < *sweep; i++ {
			specs = append(specs, backtest.RunSpec{Strategy: *strategyName, Seed: cfg.Synthetic.Seed + int64(i)})
		}
	default:
		if _, ok := registry.Get(*strategyName); !ok {
			exitUnknownStrategy(*strategyName, registry)
		}
		specs = append(specs, backtest.RunSpec{Strategy: *strategyName, Seed: cfg.Synthetic.Seed})
	}

	results, err := backtest.RunMany(ctx, cfg, specs, newFeed, 0, logger)
	if err != nil && len(results) == 0 {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}
	if err != nil {
		slog.Warn("some runs failed", "err", err, "completed", len(results))
	}

	notifier := notify.NewConsole(*table)
	if err := notifier.Notify(ctx, results); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if *save {
		saveResults(ctx, cfg.Storage.DSN, results)
	}

	slog.Info("polysim finished", "runs", len(results))
}

func exitUnknownStrategy(name string, registry strategy.Registry) {
	fmt.Fprintf(os.Stderr, "unknown strategy %q — available: %s\n",
		name, strings.Join(registry.Names(), ", "))
	os.Exit(1)
}

func saveResults(ctx context.Context, dsn string, results []domain.BacktestResult) {
	store, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", dsn)
		return
	}
	defer store.Close()

	for _, res := range results {
		if err := store.SaveRun(ctx, res); err != nil {
			slog.Error("failed to save run", "err", err, "run_id", res.RunID)
			continue
		}
		slog.Info("run saved", "run_id", res.RunID, "strategy", res.Strategy)
	}
}

func printStoredRuns(ctx context.Context, dsn string) {
	store, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", dsn)
		os.Exit(1)
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, 50)
	if err != nil {
		slog.Error("failed to list runs", "err", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return
	}
	for _, r := range runs {
		fmt.Printf("%s  %-14s  %s  return %+.2f%%  drawdown %.2f%%  trades %d\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.Strategy, r.RunID,
			r.TotalReturn*100, r.MaxDrawdown*100, r.TotalTrades)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
