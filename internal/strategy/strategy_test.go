package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

func defaultStrategyConfig() config.StrategyConfig {
	return config.Default().Strategy
}

func binarySnap(yes float64) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Timestamp: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		MarketID:  "0xmkt",
		Prices:    map[string]float64{"YES": yes, "NO": 1 - yes},
	}
}

func emptyPortfolio() domain.PortfolioState {
	return domain.PortfolioState{Cash: 10000, Equity: 10000, Positions: map[string]domain.Position{}}
}

func TestLongshot_Thresholds(t *testing.T) {
	s := NewLongshotBias(defaultStrategyConfig())

	tests := []struct {
		name string
		yes  float64
		want domain.SignalType
	}{
		{"longshot at 0.10 → SELL", 0.10, domain.SignalSell},
		{"favorite at 0.90 → BUY", 0.90, domain.SignalBuy},
		{"midpoint → HOLD", 0.50, domain.SignalHold},
		// umbrales exclusivos: exactamente 0.15/0.85 no dispara
		{"exactly 0.15 → HOLD", 0.15, domain.SignalHold},
		{"exactly 0.85 → HOLD", 0.85, domain.SignalHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := s.Decide(binarySnap(tt.yes), emptyPortfolio())
			assert.Equal(t, tt.want, sig.Type)
			if !sig.IsHold() {
				assert.Equal(t, 0.02, sig.Fraction) // 2% del bankroll
			}
		})
	}
}

func TestLongshot_SellTargetsLowOutcome(t *testing.T) {
	s := NewLongshotBias(defaultStrategyConfig())
	sig := s.Decide(binarySnap(0.90), emptyPortfolio())
	require.Equal(t, domain.SignalBuy, sig.Type)
	assert.Equal(t, "YES", sig.Outcome)

	sig = s.Decide(binarySnap(0.10), emptyPortfolio())
	require.Equal(t, domain.SignalSell, sig.Type)
	assert.Equal(t, "YES", sig.Outcome) // YES es el extremo-bajo a 0.10
}

func TestLongshot_StopLossExit(t *testing.T) {
	cfg := defaultStrategyConfig()
	cfg.StopLossPct = 0.15
	s := NewLongshotBias(cfg)

	pos := domain.Position{MarketID: "0xmkt", Outcome: "YES", Side: domain.SideLong, EntryPrice: 0.80, Size: 100}

	assert.False(t, s.ShouldExit(pos, binarySnap(0.75))) // −6.25%, aguanta
	assert.True(t, s.ShouldExit(pos, binarySnap(0.60)))  // −25%, fuera
}

func TestIntraArb_BuyAllBoundary(t *testing.T) {
	s := NewIntraMarketArbitrage(defaultStrategyConfig())

	snap := domain.MarketSnapshot{
		MarketID: "0x3way",
		Prices:   map[string]float64{"a": 0.45, "b": 0.30, "c": 0.20},
	}
	sig := s.Decide(snap, emptyPortfolio())
	require.Equal(t, domain.SignalBuyAll, sig.Type)
	assert.InDelta(t, 0.0526, sig.Confidence, 0.0001)

	// Σ = 1.00 ± 0.02 queda dentro de minSpread → HOLD
	for _, prices := range []map[string]float64{
		{"yes": 0.50, "no": 0.48},
		{"yes": 0.52, "no": 0.50},
	} {
		sig := s.Decide(domain.MarketSnapshot{MarketID: "0xflat", Prices: prices}, emptyPortfolio())
		assert.True(t, sig.IsHold(), "prices %v", prices)
	}
}

func TestIntraArb_SellAll(t *testing.T) {
	s := NewIntraMarketArbitrage(defaultStrategyConfig())
	snap := domain.MarketSnapshot{
		MarketID: "0xrich",
		Prices:   map[string]float64{"YES": 0.56, "NO": 0.49},
	}
	sig := s.Decide(snap, emptyPortfolio())
	assert.Equal(t, domain.SignalSellAll, sig.Type)
}

func TestCrossVenue_PairsAndRanking(t *testing.T) {
	s := NewCrossVenueArbitrage(defaultStrategyConfig())

	snap := domain.MarketSnapshot{
		MarketID: "0xmkt",
		Prices:   map[string]float64{"YES": 0.50, "NO": 0.50},
		VenuePrices: map[string]map[string]float64{
			"polymarket": {"YES": 0.50, "NO": 0.46},
			"kalshi":     {"YES": 0.55, "NO": 0.52},
		},
	}

	sig := s.Decide(snap, emptyPortfolio())
	require.Equal(t, domain.SignalBuy, sig.Type)
	require.Len(t, sig.Legs, 2)

	// NO tiene spread 0.06 > YES 0.05 → gana el ranking
	assert.Equal(t, "NO", sig.Outcome)
	assert.Equal(t, "polymarket", sig.Legs[0].Venue)
	assert.Equal(t, domain.SignalBuy, sig.Legs[0].Type)
	assert.Equal(t, "kalshi", sig.Legs[1].Venue)
	assert.Equal(t, domain.SignalSell, sig.Legs[1].Type)
	assert.InDelta(t, 0.06, sig.Confidence, 1e-9)
}

func TestCrossVenue_TieBreaksOnLowestBuy(t *testing.T) {
	s := NewCrossVenueArbitrage(defaultStrategyConfig())

	// ambos outcomes con spread 0.05; gana el de menor precio de compra (NO a 0.20)
	snap := domain.MarketSnapshot{
		MarketID: "0xmkt",
		Prices:   map[string]float64{"YES": 0.60, "NO": 0.20},
		VenuePrices: map[string]map[string]float64{
			"a": {"YES": 0.60, "NO": 0.20},
			"b": {"YES": 0.65, "NO": 0.25},
		},
	}
	sig := s.Decide(snap, emptyPortfolio())
	require.False(t, sig.IsHold())
	assert.Equal(t, "NO", sig.Outcome)
}

func TestCrossVenue_BelowMinSpread(t *testing.T) {
	s := NewCrossVenueArbitrage(defaultStrategyConfig())
	snap := domain.MarketSnapshot{
		MarketID: "0xmkt",
		Prices:   map[string]float64{"YES": 0.50},
		VenuePrices: map[string]map[string]float64{
			"a": {"YES": 0.50},
			"b": {"YES": 0.52}, // 0.02 < 0.03
		},
	}
	assert.True(t, s.Decide(snap, emptyPortfolio()).IsHold())
}

func sentimentSnap(yes, sigma float64) domain.MarketSnapshot {
	snap := binarySnap(yes)
	snap.Sentiment = &sigma
	return snap
}

func TestNewsVelocity_Targets(t *testing.T) {
	s := NewNewsVelocity(defaultStrategyConfig())

	sig := s.Decide(sentimentSnap(0.50, 0.9), emptyPortfolio())
	require.Equal(t, domain.SignalBuy, sig.Type)
	assert.InDelta(t, 0.65, sig.Limit, 1e-9) // 0.50 + 0.15
	assert.Equal(t, 0.9, sig.Confidence)

	// clamp superior a 0.95
	sig = s.Decide(sentimentSnap(0.88, 0.9), emptyPortfolio())
	require.Equal(t, domain.SignalBuy, sig.Type)
	assert.InDelta(t, 0.95, sig.Limit, 1e-9)

	sig = s.Decide(sentimentSnap(0.12, 0.1), emptyPortfolio())
	require.Equal(t, domain.SignalSell, sig.Type)
	assert.InDelta(t, 0.05, sig.Limit, 1e-9) // clamp inferior
	assert.InDelta(t, 0.9, sig.Confidence, 1e-9)

	assert.True(t, s.Decide(sentimentSnap(0.50, 0.5), emptyPortfolio()).IsHold())
	assert.True(t, s.Decide(binarySnap(0.50), emptyPortfolio()).IsHold(), "sin sentimiento no hay señal")
}

func TestSentiment_DivergenceThreshold(t *testing.T) {
	s := NewSentiment(defaultStrategyConfig())

	sig := s.Decide(sentimentSnap(0.40, 0.70), emptyPortfolio())
	require.Equal(t, domain.SignalBuy, sig.Type)
	assert.InDelta(t, 0.30, sig.Confidence, 1e-9) // fuerza = divergencia

	sig = s.Decide(sentimentSnap(0.60, 0.30), emptyPortfolio())
	require.Equal(t, domain.SignalSell, sig.Type)

	// divergencia 0.19 < 0.2
	assert.True(t, s.Decide(sentimentSnap(0.40, 0.59), emptyPortfolio()).IsHold())
	// exactamente en el umbral sí dispara (≥)
	assert.False(t, s.Decide(sentimentSnap(0.40, 0.60), emptyPortfolio()).IsHold())
}

func TestMarketMaking_SymmetricQuote(t *testing.T) {
	s := NewMarketMaking(defaultStrategyConfig())

	sig := s.Decide(binarySnap(0.50), emptyPortfolio())
	require.Equal(t, domain.SignalQuote, sig.Type)
	assert.InDelta(t, 0.48, sig.Bid, 1e-9)
	assert.InDelta(t, 0.52, sig.Ask, 1e-9)
}

func TestMarketMaking_InventorySkew(t *testing.T) {
	cfg := defaultStrategyConfig()
	cfg.MMInventoryLimit = 100
	cfg.MMSkewFactor = 0.3
	s := NewMarketMaking(cfg)

	// largo 50 shares de 100 → offset = 0.5 × 0.3 = 0.15, quotes bajan
	portfolio := emptyPortfolio()
	portfolio.Positions["0xmkt/YES/LONG"] = domain.Position{
		MarketID: "0xmkt", Outcome: "YES", Side: domain.SideLong, EntryPrice: 0.50, Size: 50,
	}

	sig := s.Decide(binarySnap(0.50), portfolio)
	require.Equal(t, domain.SignalQuote, sig.Type)
	assert.InDelta(t, 0.33, sig.Bid, 1e-9)
	assert.InDelta(t, 0.37, sig.Ask, 1e-9)
}

func TestMarketMaking_QuoteClamp(t *testing.T) {
	s := NewMarketMaking(defaultStrategyConfig())

	sig := s.Decide(binarySnap(0.015), emptyPortfolio())
	if !sig.IsHold() {
		assert.GreaterOrEqual(t, sig.Bid, 0.01)
		assert.LessOrEqual(t, sig.Ask, 0.99)
	}
}

func TestStrategies_DeterministicAndResolvedHold(t *testing.T) {
	registry := BuildRegistry(defaultStrategyConfig())
	require.Len(t, registry.Names(), 8)

	snap := sentimentSnap(0.10, 0.9)
	snap.VenuePrices = map[string]map[string]float64{
		"a": {"YES": 0.10}, "b": {"YES": 0.20},
	}
	resolved := snap
	resolved.Resolved = true
	resolved.WinningOutcome = "NO"

	for _, name := range registry.Names() {
		s, ok := registry.Get(name)
		require.True(t, ok)

		first := s.Decide(snap, emptyPortfolio())
		second := s.Decide(snap, emptyPortfolio())
		assert.Equal(t, first, second, "%s debe ser determinista", name)

		assert.True(t, s.Decide(resolved, emptyPortfolio()).IsHold(),
			"%s no debe operar mercados resueltos", name)
	}
}

func trendSnap(ts time.Time, yes float64) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Timestamp: ts,
		MarketID:  "0xmkt",
		Prices:    map[string]float64{"YES": yes, "NO": 1 - yes},
		EndDate:   ts.Add(30 * 24 * time.Hour),
	}
}

func TestMomentum_TrendEntry(t *testing.T) {
	cfg := defaultStrategyConfig()
	cfg.MomentumLookback = 3
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	up := NewMomentum(cfg)
	assert.True(t, up.Decide(trendSnap(base, 0.50), emptyPortfolio()).IsHold())
	assert.True(t, up.Decide(trendSnap(base.Add(time.Hour), 0.53), emptyPortfolio()).IsHold())

	sig := up.Decide(trendSnap(base.Add(2*time.Hour), 0.57), emptyPortfolio())
	require.Equal(t, domain.SignalBuy, sig.Type)
	assert.Equal(t, "YES", sig.Outcome)
	assert.InDelta(t, 0.7, sig.Confidence, 1e-9) // |0.07| / (2 × 0.05)

	down := NewMomentum(cfg)
	down.Decide(trendSnap(base, 0.60), emptyPortfolio())
	down.Decide(trendSnap(base.Add(time.Hour), 0.56), emptyPortfolio())

	sig = down.Decide(trendSnap(base.Add(2*time.Hour), 0.52), emptyPortfolio())
	require.Equal(t, domain.SignalSell, sig.Type)
}

func TestMomentum_SkipsNearExpiry(t *testing.T) {
	cfg := defaultStrategyConfig()
	cfg.MomentumLookback = 3
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	s := NewMomentum(cfg)
	for i, yes := range []float64{0.50, 0.53, 0.57} {
		snap := trendSnap(base.Add(time.Duration(i)*time.Hour), yes)
		snap.EndDate = snap.Timestamp.Add(6 * time.Hour)
		assert.True(t, s.Decide(snap, emptyPortfolio()).IsHold())
	}
}

func TestMomentum_ShouldExit(t *testing.T) {
	s := NewMomentum(defaultStrategyConfig()) // maxHold 4h, reversal 0.03, takeProfit 0.10
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	pos := domain.Position{
		MarketID:   "0xmkt",
		Outcome:    "YES",
		Side:       domain.SideLong,
		EntryPrice: 0.55,
		Size:       100,
		OpenedAt:   base,
	}

	assert.True(t, s.ShouldExit(pos, trendSnap(base.Add(5*time.Hour), 0.55)), "momentum agotado por tiempo")
	assert.True(t, s.ShouldExit(pos, trendSnap(base.Add(time.Hour), 0.51)), "reversión de −0.04")
	assert.True(t, s.ShouldExit(pos, trendSnap(base.Add(time.Hour), 0.66)), "take profit de +0.11")
	assert.False(t, s.ShouldExit(pos, trendSnap(base.Add(time.Hour), 0.56)))

	resolved := trendSnap(base.Add(time.Hour), 0.51)
	resolved.Resolved = true
	assert.False(t, s.ShouldExit(pos, resolved), "la resolución liquida por su cuenta")
}

func TestMeanReversion_ZScoreEntry(t *testing.T) {
	cfg := defaultStrategyConfig()
	cfg.MeanRevLookback = 4
	cfg.MeanRevEntryZ = 1.5
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	s := NewMeanReversion(cfg)
	for i := 0; i < 3; i++ {
		snap := trendSnap(base.Add(time.Duration(i)*time.Hour), 0.50)
		assert.True(t, s.Decide(snap, emptyPortfolio()).IsHold())
	}

	// Ventana [0.50 0.50 0.50 0.62]: media 0.53, σ ≈ 0.052, z ≈ +1.73 → SELL.
	sig := s.Decide(trendSnap(base.Add(3*time.Hour), 0.62), emptyPortfolio())
	require.Equal(t, domain.SignalSell, sig.Type)
	assert.Equal(t, "YES", sig.Outcome)

	s = NewMeanReversion(cfg)
	for i := 0; i < 3; i++ {
		s.Decide(trendSnap(base.Add(time.Duration(i)*time.Hour), 0.50), emptyPortfolio())
	}
	sig = s.Decide(trendSnap(base.Add(3*time.Hour), 0.38), emptyPortfolio())
	require.Equal(t, domain.SignalBuy, sig.Type, "precio por debajo de la media → compra la reversión")
}

func TestMeanReversion_FlatWindowHolds(t *testing.T) {
	cfg := defaultStrategyConfig()
	cfg.MeanRevLookback = 4
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	s := NewMeanReversion(cfg)
	for i := 0; i < 4; i++ {
		snap := trendSnap(base.Add(time.Duration(i)*time.Hour), 0.50)
		assert.True(t, s.Decide(snap, emptyPortfolio()).IsHold(), "sin volatilidad no hay z-score fiable")
	}
}

func TestMeanReversion_ShouldExit(t *testing.T) {
	cfg := defaultStrategyConfig()
	cfg.MeanRevLookback = 4
	cfg.MeanRevEntryZ = 1.5
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	s := NewMeanReversion(cfg)
	for i, yes := range []float64{0.50, 0.50, 0.50, 0.62} {
		s.Decide(trendSnap(base.Add(time.Duration(i)*time.Hour), yes), emptyPortfolio())
	}

	short := domain.Position{
		MarketID:   "0xmkt",
		Outcome:    "YES",
		Side:       domain.SideShort,
		EntryPrice: 0.62,
		Size:       100,
		OpenedAt:   base.Add(3 * time.Hour),
	}
	// Precio de vuelta en la media de la ventana → |z| ≤ exitZ.
	assert.True(t, s.ShouldExit(short, trendSnap(base.Add(4*time.Hour), 0.53)))
	// z ≈ +1.35: ni revirtió ni saltó el stop.
	assert.False(t, s.ShouldExit(short, trendSnap(base.Add(4*time.Hour), 0.60)))

	long := short
	long.Side = domain.SideLong
	// z ≈ −3.27 con la posición long → stop.
	assert.True(t, s.ShouldExit(long, trendSnap(base.Add(4*time.Hour), 0.36)))
	// Expiró el tiempo máximo de la posición (72h por defecto).
	assert.True(t, s.ShouldExit(long, trendSnap(base.Add(80*time.Hour), 0.60)))
}
