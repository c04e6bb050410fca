package storage

// sqlite.go — persistencia de resultados de backtest.
//
// Estrategia:
//   - `runs`: una fila por backtest completado, con las métricas agregadas.
//     Un run repetido (mismo run_id) se sobreescribe: misma config, mismo
//     resultado, no tiene sentido duplicar.
//   - `trades`: el trade log completo del run, rechazos incluidos.
//   - `equity_points`: la curva de equity, un punto por snapshot procesado.
//   - Prune automático al arrancar: runs con más de 90 días se eliminan en
//     cascada con sus trades y puntos de equity.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por backtest completado
CREATE TABLE IF NOT EXISTS runs (
    run_id          TEXT PRIMARY KEY,
    strategy        TEXT     NOT NULL,
    seed            INTEGER  NOT NULL,
    range_start     DATETIME NOT NULL,
    range_end       DATETIME NOT NULL,
    initial_capital REAL     NOT NULL,
    final_equity    REAL     NOT NULL,
    total_return    REAL     NOT NULL DEFAULT 0,
    max_drawdown    REAL     NOT NULL DEFAULT 0,
    win_rate        REAL     NOT NULL DEFAULT 0,
    sharpe          REAL,
    total_trades    INTEGER  NOT NULL DEFAULT 0,
    rejected_trades INTEGER  NOT NULL DEFAULT 0,
    saved_at        DATETIME NOT NULL
);

-- Trade log completo del run, rechazos incluidos
CREATE TABLE IF NOT EXISTS trades (
    trade_id       TEXT PRIMARY KEY,
    run_id         TEXT     NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    ts             DATETIME NOT NULL,
    market_id      TEXT     NOT NULL,
    outcome        TEXT,
    side           TEXT,
    signal_type    TEXT     NOT NULL,
    requested_size REAL     NOT NULL DEFAULT 0,
    fill_price     REAL     NOT NULL DEFAULT 0,
    fee            REAL     NOT NULL DEFAULT 0,
    realized_pnl   REAL     NOT NULL DEFAULT 0,
    closing        INTEGER  NOT NULL DEFAULT 0,
    resolution     INTEGER  NOT NULL DEFAULT 0,
    status         TEXT     NOT NULL,
    reject_reason  TEXT,
    reason         TEXT
);

-- Curva de equity del run
CREATE TABLE IF NOT EXISTS equity_points (
    run_id TEXT     NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    ts     DATETIME NOT NULL,
    equity REAL     NOT NULL,
    PRIMARY KEY (run_id, ts)
);

CREATE INDEX IF NOT EXISTS idx_runs_saved    ON runs(saved_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_run    ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_trades_market ON trades(market_id);
`

// retentionRuns limita el histórico: los backtests son reproducibles por seed,
// así que los viejos no valen gran cosa.
const retentionRuns = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el resultado completo en una única transacción: fila de
// run, trade log y curva de equity. Un run_id existente se reemplaza entero.
func (s *SQLiteStorage) SaveRun(ctx context.Context, result domain.BacktestResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	// El DELETE arrastra trades y equity_points por el ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, result.RunID); err != nil {
		return fmt.Errorf("storage.SaveRun: clear previous run: %w", err)
	}

	var sharpe *float64
	if result.Metrics.SharpeRatio != nil {
		v := *result.Metrics.SharpeRatio
		sharpe = &v
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(run_id, strategy, seed, range_start, range_end, initial_capital,
			 final_equity, total_return, max_drawdown, win_rate, sharpe,
			 total_trades, rejected_trades, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.RunID,
		result.Strategy,
		result.Seed,
		result.Start.UTC(),
		result.End.UTC(),
		result.InitialCapital,
		result.Final.Equity,
		result.Metrics.TotalReturn,
		result.Metrics.MaxDrawdown,
		result.Metrics.WinRate,
		sharpe,
		result.Metrics.TotalTrades,
		result.Metrics.RejectedTrades,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
			(trade_id, run_id, ts, market_id, outcome, side, signal_type,
			 requested_size, fill_price, fee, realized_pnl, closing, resolution,
			 status, reject_reason, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare trades: %w", err)
	}
	defer stmt.Close()

	for _, t := range result.Trades {
		if _, err := stmt.ExecContext(ctx,
			t.ID,
			result.RunID,
			t.Timestamp.UTC(),
			t.MarketID,
			t.Outcome,
			string(t.Side),
			t.Type.String(),
			t.RequestedSize,
			t.FillPrice,
			t.Fee,
			t.RealizedPnL,
			boolInt(t.Closing),
			boolInt(t.Resolution),
			string(t.Status),
			t.RejectReason,
			t.Reason,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert trade %s: %w", t.ID, err)
		}
	}

	eqStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO equity_points (run_id, ts, equity) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare equity: %w", err)
	}
	defer eqStmt.Close()

	for _, p := range result.EquityCurve {
		if _, err := eqStmt.ExecContext(ctx, result.RunID, p.Timestamp.UTC(), p.Equity); err != nil {
			return fmt.Errorf("storage.SaveRun: insert equity point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// ListRuns devuelve los runs persistidos, más recientes primero.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, strategy, saved_at, total_return, max_drawdown, total_trades
		FROM runs
		ORDER BY saved_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []ports.RunSummary
	for rows.Next() {
		var r ports.RunSummary
		var savedAt string
		if err := rows.Scan(&r.RunID, &r.Strategy, &savedAt,
			&r.TotalReturn, &r.MaxDrawdown, &r.TotalTrades); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, savedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina runs antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE saved_at < ?`, cutoff)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
