package strategy

// longshot.go — explota el sesgo favorito-longshot documentado en mercados
// de predicción: los longshots (< 15%) cotizan por encima de su probabilidad
// real y los favoritos (> 85%) por debajo. Vender el longshot y comprar el
// favorito captura ese edge sistemático.

import (
	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// LongshotBias vende el outcome extremo-bajo y compra el extremo-alto.
type LongshotBias struct {
	low      float64 // SELL si el precio mínimo es < low (exclusivo)
	high     float64 // BUY si el precio máximo es > high (exclusivo)
	sizing   float64 // fracción fija del bankroll por trade
	stopLoss float64 // 0 = sin stop loss
}

// NewLongshotBias crea la estrategia con los umbrales configurados.
func NewLongshotBias(cfg config.StrategyConfig) *LongshotBias {
	return &LongshotBias{
		low:      cfg.LongshotLow,
		high:     cfg.LongshotHigh,
		sizing:   cfg.LongshotSizing,
		stopLoss: cfg.StopLossPct,
	}
}

func (s *LongshotBias) Name() string { return "longshot" }

// Decide aplica los umbrales exclusivos: precio < low → SELL el longshot,
// precio > high → BUY el favorito, resto HOLD. Exactamente en el umbral no
// hay señal. Se evalúa primero el outcome de referencia: en un mercado
// binario el longshot y el favorito son caras de la misma moneda y la señal
// se expresa siempre sobre el token de referencia.
func (s *LongshotBias) Decide(snap domain.MarketSnapshot, portfolio domain.PortfolioState) domain.Signal {
	if snap.Resolved {
		return domain.Hold()
	}

	primary := snap.PrimaryOutcome()
	if primary == "" {
		return domain.Hold()
	}

	if p := snap.Price(primary); p > 0 && p < s.low {
		return s.sell(primary, p)
	} else if p > s.high && p < 1 {
		return s.buy(primary, p)
	}

	// Resto de outcomes (mercados multi-outcome): extremos puros.
	if outcome, price := snap.LowestOutcome(); outcome != primary && price > 0 && price < s.low {
		return s.sell(outcome, price)
	}
	if outcome, price := snap.HighestOutcome(); outcome != primary && price > s.high && price < 1 {
		return s.buy(outcome, price)
	}

	return domain.Hold()
}

func (s *LongshotBias) sell(outcome string, price float64) domain.Signal {
	return domain.Signal{
		Type:       domain.SignalSell,
		Outcome:    outcome,
		Fraction:   s.sizing,
		Confidence: (s.low - price) / s.low,
		Reason:     "longshot sell",
	}
}

func (s *LongshotBias) buy(outcome string, price float64) domain.Signal {
	return domain.Signal{
		Type:       domain.SignalBuy,
		Outcome:    outcome,
		Fraction:   s.sizing,
		Confidence: (price - s.high) / (1 - s.high),
		Reason:     "favorite buy",
	}
}

// ShouldExit corta la posición si el precio se movió stopLoss en contra.
func (s *LongshotBias) ShouldExit(pos domain.Position, snap domain.MarketSnapshot) bool {
	if s.stopLoss <= 0 || pos.EntryPrice == 0 {
		return false
	}
	price, ok := snap.Prices[pos.Outcome]
	if !ok {
		return false
	}
	loss := (pos.EntryPrice - price) / pos.EntryPrice * pos.Side.Sign()
	return loss > s.stopLoss
}
