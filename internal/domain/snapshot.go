package domain

import (
	"sort"
	"time"
)

// MarketSnapshot es el estado puntual de un mercado de predicción en un instante.
// Es la unidad que consume el engine: precios por outcome, liquidez opcional y
// el evento terminal de resolución.
type MarketSnapshot struct {
	Timestamp time.Time
	MarketID  string
	Question  string

	// Prices mapea token de outcome → precio en [0,1].
	// En mercados binarios YES+NO no tiene por qué sumar 1:
	// esa desviación es justamente la señal de arbitraje.
	Prices map[string]float64

	// Liquidity mapea token → USDC disponibles cerca del precio (opcional).
	// 0 o ausente = liquidez desconocida, el executor no aplica slippage por tamaño.
	Liquidity map[string]float64

	// VenuePrices mapea venue → token → precio, para estrategias cross-venue.
	// Vacío en feeds de un solo venue.
	VenuePrices map[string]map[string]float64

	// Sentiment es el score externo σ ∈ [0,1] asociado al snapshot (opcional).
	Sentiment *float64

	EndDate time.Time

	// Resolución: exactamente un snapshot terminal por mercado.
	Resolved       bool
	WinningOutcome string // token ganador, solo válido si Resolved
}

// Price devuelve el precio del outcome dado, o 0 si no está en el snapshot.
func (s MarketSnapshot) Price(outcome string) float64 {
	return s.Prices[outcome]
}

// LiquidityFor devuelve los USDC de liquidez del outcome, o 0 si es desconocida.
func (s MarketSnapshot) LiquidityFor(outcome string) float64 {
	return s.Liquidity[outcome]
}

// Outcomes devuelve los tokens del snapshot en orden estable (alfabético).
// El orden estable importa: las estrategias deben ser deterministas y los maps
// de Go no garantizan orden de iteración.
func (s MarketSnapshot) Outcomes() []string {
	out := make([]string, 0, len(s.Prices))
	for o := range s.Prices {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// PrimaryOutcome devuelve el token que representa "el evento ocurre":
// el token YES si existe, o el primero en orden alfabético.
func (s MarketSnapshot) PrimaryOutcome() string {
	for _, candidate := range []string{"YES", "Yes", "yes"} {
		if _, ok := s.Prices[candidate]; ok {
			return candidate
		}
	}
	outcomes := s.Outcomes()
	if len(outcomes) == 0 {
		return ""
	}
	return outcomes[0]
}

// SumPrices devuelve la suma de precios de todos los outcomes.
// < 1 en mercados binarios/multi-outcome implica Dutch book comprando todos.
func (s MarketSnapshot) SumPrices() float64 {
	var sum float64
	for _, p := range s.Prices {
		sum += p
	}
	return sum
}

// LowestOutcome devuelve el outcome con menor precio y su precio.
// Empates se resuelven por orden alfabético de token para mantener determinismo.
func (s MarketSnapshot) LowestOutcome() (string, float64) {
	return s.extremeOutcome(func(p, best float64) bool { return p < best })
}

// HighestOutcome devuelve el outcome con mayor precio y su precio.
func (s MarketSnapshot) HighestOutcome() (string, float64) {
	return s.extremeOutcome(func(p, best float64) bool { return p > best })
}

func (s MarketSnapshot) extremeOutcome(better func(p, best float64) bool) (string, float64) {
	outcomes := s.Outcomes()
	if len(outcomes) == 0 {
		return "", 0
	}
	best := outcomes[0]
	bestPrice := s.Prices[best]
	for _, o := range outcomes[1:] {
		if better(s.Prices[o], bestPrice) {
			best = o
			bestPrice = s.Prices[o]
		}
	}
	return best, bestPrice
}

// HistoryRecord es el formato externo de intercambio de datos históricos.
// Lo producen los colaboradores de datos (API client, ficheros JSON) y lo
// consume el feed histórico; el core nunca lo produce.
type HistoryRecord struct {
	Timestamp      time.Time          `json:"timestamp"`
	MarketID       string             `json:"market_id"`
	Question       string             `json:"question,omitempty"`
	OutcomePrices  map[string]float64 `json:"outcome_prices"`
	Liquidity      map[string]float64 `json:"liquidity,omitempty"`
	Resolved       bool               `json:"resolved"`
	WinningOutcome string             `json:"winning_outcome,omitempty"`
}

// Snapshot convierte el record externo al modelo del engine.
func (r HistoryRecord) Snapshot() MarketSnapshot {
	return MarketSnapshot{
		Timestamp:      r.Timestamp,
		MarketID:       r.MarketID,
		Question:       r.Question,
		Prices:         r.OutcomePrices,
		Liquidity:      r.Liquidity,
		Resolved:       r.Resolved,
		WinningOutcome: r.WinningOutcome,
	}
}
