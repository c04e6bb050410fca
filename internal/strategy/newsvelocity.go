package strategy

import (
	"math"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// NewsVelocity traduce un score de sentimiento externo σ ∈ [0,1] en acción:
// σ alto implica que el precio va a subir, σ bajo que va a caer. El precio
// objetivo se desplaza ±0.15 desde el actual, acotado a [0.05, 0.95].
type NewsVelocity struct {
	buySigma  float64 // σ > umbral → BUY
	sellSigma float64 // σ < umbral → SELL
	fraction  float64
}

// NewNewsVelocity crea la estrategia con los umbrales configurados.
func NewNewsVelocity(cfg config.StrategyConfig) *NewsVelocity {
	return &NewsVelocity{
		buySigma:  cfg.NewsBuySigma,
		sellSigma: cfg.NewsSellSigma,
		fraction:  cfg.TradeFraction,
	}
}

func (s *NewsVelocity) Name() string { return "news_velocity" }

// Decide emite BUY con objetivo min(precio+0.15, 0.95) si σ > 0.7 y SELL con
// objetivo max(precio−0.15, 0.05) si σ < 0.3. La confianza es σ para BUY y
// 1−σ para SELL. Snapshots sin sentimiento no generan señal.
func (s *NewsVelocity) Decide(snap domain.MarketSnapshot, portfolio domain.PortfolioState) domain.Signal {
	if snap.Resolved || snap.Sentiment == nil {
		return domain.Hold()
	}

	outcome := snap.PrimaryOutcome()
	if outcome == "" {
		return domain.Hold()
	}
	price := snap.Price(outcome)
	sigma := *snap.Sentiment

	switch {
	case sigma > s.buySigma:
		return domain.Signal{
			Type:       domain.SignalBuy,
			Outcome:    outcome,
			Fraction:   s.fraction,
			Limit:      math.Min(price+0.15, 0.95),
			Confidence: sigma,
			Reason:     "news spike up",
		}
	case sigma < s.sellSigma:
		return domain.Signal{
			Type:       domain.SignalSell,
			Outcome:    outcome,
			Fraction:   s.fraction,
			Limit:      math.Max(price-0.15, 0.05),
			Confidence: 1 - sigma,
			Reason:     "news spike down",
		}
	}
	return domain.Hold()
}
