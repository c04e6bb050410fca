package backtest

// engine.go — orquestación del backtest: consume snapshots del feed, pide
// señales a la estrategia y las aplica con el executor sobre el ledger.
//
// Ciclo de vida: INITIALIZED → RUNNING → COMPLETED | ABORTED. Un error de
// configuración es fatal antes de arrancar; los errores recuperables
// (fondos, límites, estado de mercado) quedan como rechazos en el trade log
// y el run sigue. Un DataGapError invalida solo al mercado afectado.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/ports"
	"github.com/alejandrodnm/polysim/internal/strategy"
)

// State es el estado del ciclo de vida del engine.
type State int

const (
	StateInitialized State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "INITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Engine ejecuta un backtest completo de una estrategia sobre un feed.
// No es reutilizable: un engine, un run.
type Engine struct {
	cfg    *config.Config
	strat  strategy.Strategy
	feed   ports.SnapshotFeed
	logger *slog.Logger

	state    State
	ledger   *Ledger
	executor *Executor
	trades   []domain.Trade

	runID    uuid.UUID
	tradeSeq int
}

// NewEngine construye un engine en estado INITIALIZED.
func NewEngine(cfg *config.Config, strat strategy.Strategy, feed ports.SnapshotFeed, logger *slog.Logger) *Engine {
	e := &Engine{
		cfg:    cfg,
		strat:  strat,
		feed:   feed,
		logger: logger.With("strategy", strat.Name()),
		state:  StateInitialized,
		ledger: NewLedger(cfg.Backtest.InitialCapital),
	}
	e.runID = runID(strat.Name(), cfg)
	e.executor = NewExecutor(cfg.Backtest, e.nextTradeID)
	return e
}

// State devuelve el estado actual del ciclo de vida.
func (e *Engine) State() State { return e.state }

// runID deriva un ID estable del run a partir de sus parámetros. Dos runs con
// la misma configuración comparten ID, que es exactamente lo que queremos para
// poder comparar resultados byte a byte.
func runID(strategyName string, cfg *config.Config) uuid.UUID {
	name := fmt.Sprintf("polysim/run/%s/%d/%s/%s",
		strategyName,
		cfg.Synthetic.Seed,
		cfg.Backtest.Start.UTC().Format("2006-01-02T15:04:05Z"),
		cfg.Backtest.End.UTC().Format("2006-01-02T15:04:05Z"),
	)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
}

// nextTradeID genera IDs de trade deterministas dentro del namespace del run.
func (e *Engine) nextTradeID() string {
	e.tradeSeq++
	return uuid.NewSHA1(e.runID, []byte(strconv.Itoa(e.tradeSeq))).String()
}

// Run ejecuta el backtest hasta agotar el feed. Devuelve el resultado con todo
// el trade log; con error no-nil el run quedó en ABORTED y el resultado
// contiene lo acumulado hasta el aborto.
func (e *Engine) Run(ctx context.Context) (domain.BacktestResult, error) {
	if e.state != StateInitialized {
		return e.result(), fmt.Errorf("backtest.Run: engine already ran (state %s)", e.state)
	}
	if err := e.cfg.Validate(); err != nil {
		e.state = StateAborted
		return e.result(), fmt.Errorf("backtest.Run: %w", err)
	}

	e.state = StateRunning
	e.logger.Info("backtest started",
		"run_id", e.runID.String(),
		"initial_capital", e.cfg.Backtest.InitialCapital,
		"start", e.cfg.Backtest.Start,
		"end", e.cfg.Backtest.End,
	)

	e.ledger.MarkEquity(e.cfg.Backtest.Start)

	for {
		if err := ctx.Err(); err != nil {
			return e.abort(fmt.Errorf("backtest.Run: %w", err))
		}

		snap, ok, err := e.feed.Next(ctx)
		if err != nil {
			var gap *domain.DataGapError
			if errors.As(err, &gap) {
				e.logger.Warn("data gap, market skipped",
					"market_id", gap.MarketID, "from", gap.From, "to", gap.To)
				continue
			}
			return e.abort(fmt.Errorf("backtest.Run: feed: %w", err))
		}
		if !ok {
			break
		}

		e.step(snap)
	}

	e.ledger.Freeze()
	e.state = StateCompleted
	res := e.result()
	e.logger.Info("backtest completed",
		"run_id", res.RunID,
		"final_equity", res.Final.Equity,
		"total_trades", res.Metrics.TotalTrades,
		"rejected_trades", res.Metrics.RejectedTrades,
	)
	return res, nil
}

// step procesa un snapshot: resolución, stop-loss, señal de estrategia y marca
// de equity, en ese orden.
func (e *Engine) step(snap domain.MarketSnapshot) {
	e.ledger.ObservePrices(snap)

	if snap.Resolved {
		e.settle(snap)
		e.ledger.MarkEquity(snap.Timestamp)
		return
	}

	e.checkExits(snap)

	sig := e.strat.Decide(snap, e.ledger.State())
	for _, t := range e.executor.Execute(sig, snap, e.ledger) {
		e.record(t)
	}

	e.ledger.MarkEquity(snap.Timestamp)
}

// settle liquida las posiciones del mercado resuelto y registra cada
// liquidación en el trade log.
func (e *Engine) settle(snap domain.MarketSnapshot) {
	fills := e.ledger.Resolve(snap.MarketID, snap.WinningOutcome, e.cfg.Backtest.WinnerFeeRate)
	for _, fill := range fills {
		e.record(domain.Trade{
			ID:            e.nextTradeID(),
			Timestamp:     snap.Timestamp,
			MarketID:      snap.MarketID,
			Outcome:       fill.Position.Outcome,
			Side:          fill.Position.Side,
			Type:          domain.SignalSell,
			RequestedSize: fill.Position.Size,
			FillPrice:     fill.SettlePrice,
			Fee:           fill.Fee,
			RealizedPnL:   fill.RealizedPnL,
			CapitalAtRisk: fill.Position.CostBasis(),
			Closing:       true,
			Resolution:    true,
			Status:        domain.TradeExecuted,
			Reason:        "market resolved: " + snap.WinningOutcome,
		})
	}
	if len(fills) > 0 {
		e.logger.Debug("market resolved",
			"market_id", snap.MarketID,
			"winner", snap.WinningOutcome,
			"positions_settled", len(fills),
		)
	}
}

// checkExits consulta el stop-loss de la estrategia (si lo aconseja) para las
// posiciones abiertas del mercado del snapshot.
func (e *Engine) checkExits(snap domain.MarketSnapshot) {
	advisor, ok := e.strat.(strategy.ExitAdvisor)
	if !ok {
		return
	}

	state := e.ledger.State()
	keys := make([]string, 0, len(state.Positions))
	for key, pos := range state.Positions {
		if pos.MarketID == snap.MarketID {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		pos := state.Positions[key]
		if !advisor.ShouldExit(pos, snap) {
			continue
		}
		e.record(e.executor.ExitPosition(pos, snap, e.ledger, "stop loss"))
	}
}

// record añade el trade al log; los rechazos se loguean en debug para poder
// auditar por qué la estrategia no llegó a ejecutar.
func (e *Engine) record(t domain.Trade) {
	e.trades = append(e.trades, t)
	if t.Status == domain.TradeRejected {
		e.logger.Debug("trade rejected",
			"market_id", t.MarketID,
			"outcome", t.Outcome,
			"reject_reason", t.RejectReason,
		)
	}
}

func (e *Engine) abort(err error) (domain.BacktestResult, error) {
	e.state = StateAborted
	e.ledger.Freeze()
	e.logger.Error("backtest aborted", "error", err)
	return e.result(), err
}

// result ensambla el BacktestResult a partir del estado actual del ledger.
func (e *Engine) result() domain.BacktestResult {
	curve := e.ledger.Curve()
	return domain.BacktestResult{
		RunID:          e.runID.String(),
		Strategy:       e.strat.Name(),
		Seed:           e.cfg.Synthetic.Seed,
		Start:          e.cfg.Backtest.Start,
		End:            e.cfg.Backtest.End,
		InitialCapital: e.cfg.Backtest.InitialCapital,
		Final:          e.ledger.State(),
		Trades:         e.trades,
		EquityCurve:    curve,
		Metrics: ComputeMetrics(e.trades, curve, e.cfg.Backtest.InitialCapital,
			e.cfg.Backtest.PeriodsPerYear),
	}
}
