package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polysim/internal/domain"
)

func sampleResult(name string, totalReturn float64) domain.BacktestResult {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.BacktestResult{
		RunID:          "run-" + name,
		Strategy:       name,
		Seed:           42,
		Start:          start,
		End:            start.AddDate(0, 1, 0),
		InitialCapital: 1000,
		Final:          domain.PortfolioState{Cash: 1000 * (1 + totalReturn), Equity: 1000 * (1 + totalReturn)},
		Trades: []domain.Trade{
			{
				ID: "t1", Timestamp: start.Add(time.Hour), MarketID: "synthetic-001",
				Outcome: "YES", Side: domain.SideLong, Type: domain.SignalBuy,
				RequestedSize: 50, FillPrice: 0.40, Status: domain.TradeExecuted,
			},
			{
				ID: "t2", Timestamp: start.Add(2 * time.Hour), MarketID: "synthetic-001",
				Type: domain.SignalBuy, Status: domain.TradeRejected,
				RejectReason: "InsufficientFunds: cash 1.00 < required 20.00",
			},
		},
		Metrics: domain.Metrics{TotalReturn: totalReturn, WinRate: 0.5, TotalTrades: 1, RejectedTrades: 1},
	}
}

func TestConsoleSingleRun(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	require.NoError(t, c.Notify(context.Background(), []domain.BacktestResult{sampleResult("longshot", 0.058)}))

	out := buf.String()
	assert.Contains(t, out, "longshot")
	assert.Contains(t, out, "+5.80%")
	assert.Contains(t, out, "n/a", "Sharpe indefinido se muestra como n/a, no como 0")
	assert.NotContains(t, out, "Trade log", "sin -table no se imprime el log")
}

func TestConsoleTradeTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	require.NoError(t, c.Notify(context.Background(), []domain.BacktestResult{sampleResult("longshot", 0.058)}))

	out := buf.String()
	assert.Contains(t, out, "Trade log")
	assert.Contains(t, out, "synthetic-001")
	assert.Contains(t, out, "REJECTED: InsufficientFunds")
}

func TestConsoleComparison(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	results := []domain.BacktestResult{
		sampleResult("longshot", 0.02),
		sampleResult("intra_arb", 0.09),
		sampleResult("sentiment", -0.01),
	}
	require.NoError(t, c.Notify(context.Background(), results))

	out := buf.String()
	assert.Contains(t, out, "STRATEGY COMPARISON")
	assert.Contains(t, out, "* intra_arb", "el mejor run va marcado")
	assert.Contains(t, out, "-1.00%")
}

func TestConsoleEmpty(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	require.NoError(t, c.Notify(context.Background(), nil))
	assert.Contains(t, buf.String(), "no backtest results")
}
