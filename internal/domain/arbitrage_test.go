package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func snapWithPrices(prices map[string]float64) MarketSnapshot {
	return MarketSnapshot{MarketID: "0xtest", Prices: prices}
}

func TestCalculateArbitrage_BuyAll(t *testing.T) {
	// 3 outcomes sumando 0.95 → Dutch book comprando el set
	snap := snapWithPrices(map[string]float64{"a": 0.45, "b": 0.30, "c": 0.20})

	arb := CalculateArbitrage(snap, 0.025)

	assert.True(t, arb.HasArbitrage())
	assert.Equal(t, ArbBuyAll, arb.Side)
	assert.InDelta(t, 0.95, arb.Sum, 1e-9)
	assert.InDelta(t, 0.05, arb.Spread, 1e-9)
	// profit = (1 - 0.95) / 0.95 ≈ 5.26%
	assert.InDelta(t, 0.0526, arb.ProfitPct, 0.0001)
}

func TestCalculateArbitrage_SellAll(t *testing.T) {
	snap := snapWithPrices(map[string]float64{"yes": 0.58, "no": 0.47})

	arb := CalculateArbitrage(snap, 0.025)

	assert.Equal(t, ArbSellAll, arb.Side)
	assert.InDelta(t, 0.05, arb.ProfitPct, 1e-9)
}

func TestCalculateArbitrage_InsideMinSpread(t *testing.T) {
	// Σ = 1.00 ± 0.02 cae dentro de minSpread → nada que hacer
	for _, prices := range []map[string]float64{
		{"yes": 0.50, "no": 0.48},
		{"yes": 0.52, "no": 0.50},
		{"yes": 0.50, "no": 0.50},
	} {
		arb := CalculateArbitrage(snapWithPrices(prices), 0.025)
		assert.Equal(t, ArbNone, arb.Side, "prices %v", prices)
		assert.False(t, arb.HasArbitrage())
	}
}

func TestCalculateArbitrage_SingleOutcome(t *testing.T) {
	arb := CalculateArbitrage(snapWithPrices(map[string]float64{"yes": 0.40}), 0.025)
	assert.False(t, arb.HasArbitrage())
}

func TestSnapshot_Extremes(t *testing.T) {
	snap := snapWithPrices(map[string]float64{"a": 0.10, "b": 0.55, "c": 0.30})

	lo, loPrice := snap.LowestOutcome()
	hi, hiPrice := snap.HighestOutcome()

	assert.Equal(t, "a", lo)
	assert.Equal(t, 0.10, loPrice)
	assert.Equal(t, "b", hi)
	assert.Equal(t, 0.55, hiPrice)
}

func TestPosition_PnLAndMark(t *testing.T) {
	long := Position{Side: SideLong, EntryPrice: 0.40, Size: 100}
	assert.InDelta(t, 60.0, long.RealizedPnL(1.0), 1e-9)
	assert.InDelta(t, 55.0, long.MarkToMarket(0.55), 1e-9)

	short := Position{Side: SideShort, EntryPrice: 0.40, Size: 100}
	assert.InDelta(t, 10.0, short.RealizedPnL(0.30), 1e-9)
	// colateral + no-realizado: (2×0.40 − 0.30) × 100
	assert.InDelta(t, 50.0, short.MarkToMarket(0.30), 1e-9)
}
