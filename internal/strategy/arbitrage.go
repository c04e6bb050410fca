package strategy

import (
	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// IntraMarketArbitrage detecta Dutch books dentro de un mercado:
// Σ precios < 1 − minSpread → comprar el set completo,
// Σ precios > 1 + minSpread → vender el set completo.
// minSpread (default 0.025) tiene que superar el fee de liquidación del 2%
// para que el arbitraje sea neto positivo.
type IntraMarketArbitrage struct {
	minSpread float64
	fraction  float64
}

// NewIntraMarketArbitrage crea la estrategia con el spread mínimo configurado.
func NewIntraMarketArbitrage(cfg config.StrategyConfig) *IntraMarketArbitrage {
	return &IntraMarketArbitrage{
		minSpread: cfg.IntraMinSpread,
		fraction:  cfg.ArbFraction,
	}
}

func (s *IntraMarketArbitrage) Name() string { return "intra_arb" }

// Decide evalúa el Dutch book del snapshot. El tamaño bloquea el spread:
// shares iguales en todos los outcomes, coste total = fraction × bankroll.
func (s *IntraMarketArbitrage) Decide(snap domain.MarketSnapshot, portfolio domain.PortfolioState) domain.Signal {
	if snap.Resolved {
		return domain.Hold()
	}

	arb := domain.CalculateArbitrage(snap, s.minSpread)
	if !arb.HasArbitrage() {
		return domain.Hold()
	}

	sig := domain.Signal{
		Fraction:   s.fraction,
		Confidence: arb.ProfitPct,
		Reason:     "dutch book",
	}
	if arb.Side == domain.ArbBuyAll {
		sig.Type = domain.SignalBuyAll
	} else {
		sig.Type = domain.SignalSellAll
	}
	return sig
}
