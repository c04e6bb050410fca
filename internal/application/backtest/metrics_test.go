package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polysim/internal/domain"
)

func curve(equities ...float64) []domain.EquityPoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.EquityPoint, len(equities))
	for i, eq := range equities {
		points[i] = domain.EquityPoint{Timestamp: base.Add(time.Duration(i) * time.Hour), Equity: eq}
	}
	return points
}

func closingTrade(pnl, atRisk float64) domain.Trade {
	return domain.Trade{
		Status: domain.TradeExecuted, Closing: true,
		RealizedPnL: pnl, CapitalAtRisk: atRisk,
	}
}

func TestMetricsMaxDrawdown(t *testing.T) {
	// Pico 1100, valle 900: caída de 200/1100 = 18.18%.
	m := ComputeMetrics(nil, curve(1000, 1100, 900, 1200), 1000, 0)
	assert.InDelta(t, 0.18181818, m.MaxDrawdown, 1e-6)
}

func TestMetricsMaxDrawdownMonotonic(t *testing.T) {
	m := ComputeMetrics(nil, curve(1000, 1050, 1100, 1200), 1000, 0)
	assert.Zero(t, m.MaxDrawdown)
}

func TestMetricsWinRateAndAvgReturn(t *testing.T) {
	trades := []domain.Trade{
		closingTrade(10, 100),  // +10%
		closingTrade(-5, 100),  // -5%
		closingTrade(20, 100),  // +20%
		{Status: domain.TradeExecuted}, // apertura: no cuenta para win rate
		{Status: domain.TradeRejected, RejectReason: "InsufficientFunds"},
	}

	m := ComputeMetrics(trades, curve(1000, 1025), 1000, 0)

	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-9)
	assert.InDelta(t, (0.10-0.05+0.20)/3, m.AvgReturnPerTrade, 1e-9)
	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 1, m.RejectedTrades)
	assert.InDelta(t, 0.025, m.TotalReturn, 1e-9)
}

func TestMetricsSharpeUndefined(t *testing.T) {
	// Menos de dos retornos: indefinido, no cero.
	m := ComputeMetrics(nil, curve(1000, 1100), 1000, 0)
	assert.Nil(t, m.SharpeRatio)

	// Desviación cero (equity constante): también indefinido.
	m = ComputeMetrics(nil, curve(1000, 1000, 1000, 1000), 1000, 0)
	assert.Nil(t, m.SharpeRatio)
}

func TestMetricsSharpeAnnualizedFromCurveStep(t *testing.T) {
	// Retornos 10% y 20% a paso horario: media 0.15, σ muestral 0.070711.
	// Sin periods_per_year explícito se deriva del paso mediano de la curva:
	// 8760 pasos de una hora por año → 2.121320 × √8760 ≈ 198.5447.
	c := curve(1000, 1100, 1320)

	derived := ComputeMetrics(nil, c, 1000, 0)
	require.NotNil(t, derived.SharpeRatio)
	assert.InDelta(t, 198.5447, *derived.SharpeRatio, 1e-3)

	explicit := ComputeMetrics(nil, c, 1000, 8760)
	require.NotNil(t, explicit.SharpeRatio)
	assert.InDelta(t, *explicit.SharpeRatio, *derived.SharpeRatio, 1e-9)
}

func TestMetricsSharpeDefined(t *testing.T) {
	m := ComputeMetrics(nil, curve(1000, 1020, 1010, 1040, 1035), 1000, 365)
	require.NotNil(t, m.SharpeRatio)
	assert.False(t, *m.SharpeRatio == 0)
}

func TestMetricsEmptyRun(t *testing.T) {
	m := ComputeMetrics(nil, nil, 1000, 0)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.TotalReturn)
	assert.Nil(t, m.SharpeRatio)
}
