package backtest

// metrics.go — métricas de performance sobre el trade log y la curva de equity.

import (
	"math"
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// ComputeMetrics deriva las métricas del run. periodsPerYear anualiza el
// Sharpe (snapshots por año); si es <= 0 se deriva del paso mediano de la
// curva de equity. Con menos de dos retornos o desviación cero el Sharpe
// queda en nil en vez de inventarse un número.
func ComputeMetrics(trades []domain.Trade, curve []domain.EquityPoint, initialCapital float64, periodsPerYear float64) domain.Metrics {
	m := domain.Metrics{}

	var closed, wins int
	var returnSum float64
	for _, t := range trades {
		switch t.Status {
		case domain.TradeRejected:
			m.RejectedTrades++
			continue
		case domain.TradeExecuted:
			m.TotalTrades++
		}
		if !t.Closing {
			continue
		}
		closed++
		if t.Won() {
			wins++
		}
		if t.CapitalAtRisk > 0 {
			returnSum += t.RealizedPnL / t.CapitalAtRisk
		}
	}
	if closed > 0 {
		m.WinRate = float64(wins) / float64(closed)
		m.AvgReturnPerTrade = returnSum / float64(closed)
	}

	m.MaxDrawdown = maxDrawdown(curve)

	if len(curve) > 0 && initialCapital > 0 {
		m.TotalReturn = (curve[len(curve)-1].Equity - initialCapital) / initialCapital
	}

	if periodsPerYear <= 0 {
		periodsPerYear = derivePeriodsPerYear(curve)
	}
	m.SharpeRatio = sharpe(curve, periodsPerYear)
	return m
}

// derivePeriodsPerYear estima los periodos por año a partir del paso mediano
// entre puntos de la curva. La mediana aguanta huecos de datos sueltos mejor
// que la media. Devuelve 0 si la curva no tiene pasos medibles.
func derivePeriodsPerYear(curve []domain.EquityPoint) float64 {
	var steps []time.Duration
	for i := 1; i < len(curve); i++ {
		if d := curve[i].Timestamp.Sub(curve[i-1].Timestamp); d > 0 {
			steps = append(steps, d)
		}
	}
	if len(steps) == 0 {
		return 0
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	median := steps[len(steps)/2]

	const year = 365 * 24 * time.Hour
	return float64(year) / float64(median)
}

// maxDrawdown devuelve la mayor caída pico-a-valle como fracción del pico.
func maxDrawdown(curve []domain.EquityPoint) float64 {
	var peak, worst float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpe anualiza media/desviación muestral de los retornos por paso.
// Devuelve nil cuando no está definido: menos de dos retornos o σ = 0.
func sharpe(curve []domain.EquityPoint, periodsPerYear float64) *float64 {
	var returns []float64
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return nil
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return nil
	}

	s := mean / std
	if periodsPerYear > 0 {
		s *= math.Sqrt(periodsPerYear)
	}
	return &s
}
