package domain

// arbitrage.go — matemática del arbitraje intra-mercado (Dutch book).
//
// Si la suma de precios de todos los outcomes es < 1, comprar el set completo
// garantiza $1 al resolverse por un coste de Σ. Si es > 1, vender el set
// (mint + sell) embolsa Σ por un coste de $1. El spread tiene que superar
// minSpread para cubrir el fee de liquidación del 2% del ganador.

import "math"

// ArbitrageSide clasifica la dirección del Dutch book.
type ArbitrageSide int

const (
	ArbNone ArbitrageSide = iota
	ArbBuyAll
	ArbSellAll
)

// ArbitrageResult es el análisis de arbitraje intra-mercado de un snapshot.
type ArbitrageResult struct {
	Sum       float64       // Σ precios de los outcomes
	Spread    float64       // |1 - Sum|
	Side      ArbitrageSide // BUY_ALL si Sum < 1, SELL_ALL si Sum > 1
	ProfitPct float64       // spread / coste del set (Sum al comprar, 1 al vender)
}

// HasArbitrage devuelve true si hay Dutch book explotable sobre minSpread.
func (a ArbitrageResult) HasArbitrage() bool { return a.Side != ArbNone }

// CalculateArbitrage evalúa el Dutch book de un snapshot dado el spread mínimo.
// Mercados sin al menos 2 outcomes no se analizan.
func CalculateArbitrage(snap MarketSnapshot, minSpread float64) ArbitrageResult {
	if len(snap.Prices) < 2 {
		return ArbitrageResult{}
	}

	sum := snap.SumPrices()
	result := ArbitrageResult{
		Sum:    sum,
		Spread: math.Abs(1 - sum),
	}

	switch {
	case sum < 1-minSpread:
		// Comprar el set por Sum, cobrar $1 a resolución.
		result.Side = ArbBuyAll
		result.ProfitPct = (1 - sum) / sum
	case sum > 1+minSpread:
		// Mintear el set por $1, venderlo por Sum.
		result.Side = ArbSellAll
		result.ProfitPct = sum - 1
	}

	return result
}
