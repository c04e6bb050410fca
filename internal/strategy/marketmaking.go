package strategy

// marketmaking.go — cotiza bid/ask simétricos alrededor del precio medio y
// sesga ambos lados contra el inventario acumulado: cuanto más largo estás,
// más bajas las cotizaciones para vender antes y comprar menos.

import (
	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// MarketMaking cotiza alrededor del midpoint con skew por inventario.
// El inventario no vive en la estrategia: se lee del PortfolioState en cada
// llamada, así un mismo (snapshot, portfolio) siempre produce la misma quote.
type MarketMaking struct {
	spread    float64 // ancho total bid-ask
	skew      float64 // factor de skew por inventario
	inventory float64 // límite de inventario en shares
	quoteSize float64 // fracción del bankroll por lado
}

// NewMarketMaking crea la estrategia con los parámetros configurados.
func NewMarketMaking(cfg config.StrategyConfig) *MarketMaking {
	return &MarketMaking{
		spread:    cfg.MMSpread,
		skew:      cfg.MMSkewFactor,
		inventory: cfg.MMInventoryLimit,
		quoteSize: cfg.MMQuoteSize,
	}
}

func (s *MarketMaking) Name() string { return "market_making" }

// Decide cotiza bid = mid − spread/2 − skewOffset y ask = mid + spread/2 − skewOffset,
// con skewOffset = (inventario / límite) × skewFactor. Ambos clampeados a [0.01, 0.99].
func (s *MarketMaking) Decide(snap domain.MarketSnapshot, portfolio domain.PortfolioState) domain.Signal {
	if snap.Resolved {
		return domain.Hold()
	}

	outcome := snap.PrimaryOutcome()
	if outcome == "" {
		return domain.Hold()
	}
	mid := snap.Price(outcome)
	if mid <= 0 || mid >= 1 {
		return domain.Hold()
	}

	var offset float64
	if s.inventory > 0 {
		offset = portfolio.Inventory(snap.MarketID, outcome) / s.inventory * s.skew
	}

	bid := clampQuote(mid - s.spread/2 - offset)
	ask := clampQuote(mid + s.spread/2 - offset)
	if bid >= ask {
		return domain.Hold()
	}

	return domain.Signal{
		Type:     domain.SignalQuote,
		Outcome:  outcome,
		Fraction: s.quoteSize,
		Bid:      bid,
		Ask:      ask,
		Reason:   "mm quote",
	}
}

func clampQuote(p float64) float64 {
	if p < 0.01 {
		return 0.01
	}
	if p > 0.99 {
		return 0.99
	}
	return p
}
