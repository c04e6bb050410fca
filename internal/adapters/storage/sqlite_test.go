package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polysim/internal/domain"
)

func testResult(runID string) domain.BacktestResult {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.BacktestResult{
		RunID:          runID,
		Strategy:       "longshot",
		Seed:           42,
		Start:          start,
		End:            start.AddDate(0, 1, 0),
		InitialCapital: 1000,
		Final:          domain.PortfolioState{Cash: 1058, Equity: 1058},
		Trades: []domain.Trade{
			{
				ID: runID + "-t1", Timestamp: start.Add(time.Hour),
				MarketID: "m1", Outcome: "YES", Side: domain.SideLong,
				Type: domain.SignalBuy, RequestedSize: 100, FillPrice: 0.40,
				Status: domain.TradeExecuted,
			},
			{
				ID: runID + "-t2", Timestamp: start.Add(2 * time.Hour),
				MarketID: "m1", Type: domain.SignalBuy,
				Status: domain.TradeRejected, RejectReason: "InsufficientFunds: cash 1.00 < required 20.00",
			},
		},
		EquityCurve: []domain.EquityPoint{
			{Timestamp: start, Equity: 1000},
			{Timestamp: start.Add(time.Hour), Equity: 1058},
		},
		Metrics: domain.Metrics{
			TotalReturn: 0.058, MaxDrawdown: 0.01, WinRate: 1,
			TotalTrades: 1, RejectedTrades: 1,
		},
	}
}

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "polysim_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSaveAndList(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, testResult("run-1")))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "longshot", runs[0].Strategy)
	assert.InDelta(t, 0.058, runs[0].TotalReturn, 1e-9)
	assert.Equal(t, 1, runs[0].TotalTrades)
}

func TestSQLiteSaveRunIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, testResult("run-1")))
	require.NoError(t, s.SaveRun(ctx, testResult("run-1")))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "el mismo run_id se sobreescribe, no se duplica")
}

func TestSQLiteListRunsOrderAndLimit(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, testResult("run-1")))
	require.NoError(t, s.SaveRun(ctx, testResult("run-2")))
	require.NoError(t, s.SaveRun(ctx, testResult("run-3")))

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteNilSharpe(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	res := testResult("run-1")
	res.Metrics.SharpeRatio = nil
	require.NoError(t, s.SaveRun(ctx, res))

	var sharpe *float64
	err := s.db.QueryRow(`SELECT sharpe FROM runs WHERE run_id = ?`, "run-1").Scan(&sharpe)
	require.NoError(t, err)
	assert.Nil(t, sharpe, "Sharpe indefinido se guarda como NULL")
}

func TestSQLiteTradeLogRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SaveRun(ctx, testResult("run-1")))

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trades WHERE run_id = ?`, "run-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "los rechazos también se persisten")

	var status, reason string
	err = s.db.QueryRow(`SELECT status, reject_reason FROM trades WHERE trade_id = ?`, "run-1-t2").
		Scan(&status, &reason)
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", status)
	assert.Contains(t, reason, "InsufficientFunds")
}
