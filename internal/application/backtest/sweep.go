package backtest

// sweep.go — worker pool para correr varios backtests en paralelo.
//
// Lo usan el modo compare (todas las estrategias, misma seed) y el modo sweep
// (misma estrategia, rango de seeds). Cada run tiene su propio engine, ledger
// y feed, así que no comparten estado mutable; el orden del resultado es
// estable independientemente de qué worker termine antes.

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/ports"
	"github.com/alejandrodnm/polysim/internal/strategy"
)

// RunSpec identifica un backtest dentro de un sweep: estrategia + seed.
// Lleva el nombre, no la instancia: cada run construye la suya, porque las
// estrategias con ventana de precios acumulan estado interno y compartirlas
// entre workers rompería el aislamiento.
type RunSpec struct {
	Strategy string
	Seed     int64
}

// FeedFactory construye un feed nuevo para la configuración dada. Cada run
// del sweep necesita el suyo: los feeds son iteradores con estado.
type FeedFactory func(cfg *config.Config) (ports.SnapshotFeed, error)

// RunMany ejecuta los specs en paralelo con un worker pool y devuelve los
// resultados ordenados por estrategia y seed. Un run abortado no tumba al
// resto; el primer error se devuelve junto a los resultados completados.
//
// Si workers <= 0 usa runtime.NumCPU().
func RunMany(
	ctx context.Context,
	cfg *config.Config,
	specs []RunSpec,
	newFeed FeedFactory,
	workers int,
	logger *slog.Logger,
) ([]domain.BacktestResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(specs) {
		workers = len(specs)
	}

	workCh := make(chan RunSpec, len(specs))
	resultCh := make(chan domain.BacktestResult, len(specs))
	errCh := make(chan error, len(specs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for spec := range workCh {
				res, err := runOne(ctx, cfg, spec, newFeed, logger)
				if err != nil {
					logger.Error("sweep run failed",
						"strategy", spec.Strategy,
						"seed", spec.Seed,
						"error", err,
					)
					errCh <- err
					continue
				}
				resultCh <- res
			}
		}()
	}

	for _, spec := range specs {
		workCh <- spec
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
		close(errCh)
	}()

	results := make([]domain.BacktestResult, 0, len(specs))
	for res := range resultCh {
		results = append(results, res)
	}

	// Orden estable: los workers terminan en cualquier orden.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Strategy != results[j].Strategy {
			return results[i].Strategy < results[j].Strategy
		}
		return results[i].Seed < results[j].Seed
	})

	var firstErr error
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
		}
	}

	logger.Debug("sweep complete",
		"runs", len(specs),
		"completed", len(results),
		"workers", workers,
	)
	return results, firstErr
}

// runOne ejecuta un spec con una copia de la configuración que lleva su seed
// y una instancia fresca de la estrategia.
func runOne(ctx context.Context, cfg *config.Config, spec RunSpec, newFeed FeedFactory, logger *slog.Logger) (domain.BacktestResult, error) {
	runCfg := *cfg
	runCfg.Synthetic.Seed = spec.Seed

	strat, ok := strategy.BuildRegistry(runCfg.Strategy).Get(spec.Strategy)
	if !ok {
		return domain.BacktestResult{}, fmt.Errorf("backtest.runOne: unknown strategy %q", spec.Strategy)
	}

	feed, err := newFeed(&runCfg)
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest.runOne: feed: %w", err)
	}

	engine := NewEngine(&runCfg, strat, feed, logger)
	res, err := engine.Run(ctx)
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest.runOne: %w", err)
	}
	return res, nil
}
