package strategy

import (
	"math"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// Sentiment compara la probabilidad implícita del sentimiento con el precio
// de mercado y opera la divergencia cuando supera el umbral (default 0.2).
// La fuerza de la señal es la magnitud de la divergencia.
type Sentiment struct {
	threshold float64
	fraction  float64
}

// NewSentiment crea la estrategia con el umbral configurado.
func NewSentiment(cfg config.StrategyConfig) *Sentiment {
	return &Sentiment{
		threshold: cfg.SentimentThreshold,
		fraction:  cfg.TradeFraction,
	}
}

func (s *Sentiment) Name() string { return "sentiment" }

// Decide emite BUY si sentiment − precio ≥ umbral, SELL si precio − sentiment
// ≥ umbral, HOLD en el resto. Confidence = |divergencia|.
func (s *Sentiment) Decide(snap domain.MarketSnapshot, portfolio domain.PortfolioState) domain.Signal {
	if snap.Resolved || snap.Sentiment == nil {
		return domain.Hold()
	}

	outcome := snap.PrimaryOutcome()
	if outcome == "" {
		return domain.Hold()
	}

	divergence := *snap.Sentiment - snap.Price(outcome)
	if math.Abs(divergence) < s.threshold {
		return domain.Hold()
	}

	sig := domain.Signal{
		Outcome:    outcome,
		Fraction:   s.fraction,
		Confidence: math.Abs(divergence),
		Reason:     "sentiment divergence",
	}
	if divergence > 0 {
		sig.Type = domain.SignalBuy
	} else {
		sig.Type = domain.SignalSell
	}
	return sig
}
