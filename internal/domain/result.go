package domain

import "time"

// PortfolioState es la foto del portfolio que ve la estrategia en cada paso
// y la que se congela al terminar el run. Las posiciones son copias: mutar
// el estado real es privilegio exclusivo del ledger.
type PortfolioState struct {
	Cash        float64
	Positions   map[string]Position // key → posición OPEN
	RealizedPnL float64
	Equity      float64 // cash + mark-to-market de las posiciones abiertas
}

// OpenPositions devuelve cuántas posiciones abiertas hay.
func (p PortfolioState) OpenPositions() int { return len(p.Positions) }

// Inventory devuelve las shares netas long del outcome en el mercado dado.
func (p PortfolioState) Inventory(marketID, outcome string) float64 {
	var inv float64
	for _, pos := range p.Positions {
		if pos.MarketID != marketID || pos.Outcome != outcome {
			continue
		}
		inv += pos.Size * pos.Side.Sign()
	}
	return inv
}

// MarketExposure devuelve el coste comprometido en un mercado concreto.
func (p PortfolioState) MarketExposure(marketID string) float64 {
	var exp float64
	for _, pos := range p.Positions {
		if pos.MarketID == marketID {
			exp += pos.CostBasis()
		}
	}
	return exp
}

// Metrics son las estadísticas derivadas de un run completado.
// SharpeRatio es nil (no cero) cuando la desviación de retornos es 0:
// un Sharpe indefinido no es un Sharpe malo.
type Metrics struct {
	WinRate           float64
	AvgReturnPerTrade float64
	MaxDrawdown       float64 // fracción del pico, no USDC
	SharpeRatio       *float64
	TotalReturn       float64 // fracción sobre el capital inicial
	TotalTrades       int
	RejectedTrades    int
}

// BacktestResult es el resultado completo y congelado de un run.
// No lleva timestamps de reloj de pared: mismo (seed, config, estrategia)
// tiene que producir un resultado byte-idéntico.
type BacktestResult struct {
	RunID    string
	Strategy string
	Seed     int64
	Start    time.Time // inicio del rango simulado
	End      time.Time

	InitialCapital float64
	Final          PortfolioState
	Trades         []Trade
	EquityCurve    []EquityPoint
	Metrics        Metrics
}

// ExecutedTrades devuelve solo los trades que movieron el ledger.
func (r BacktestResult) ExecutedTrades() []Trade {
	out := make([]Trade, 0, len(r.Trades))
	for _, t := range r.Trades {
		if t.Executed() {
			out = append(out, t)
		}
	}
	return out
}
