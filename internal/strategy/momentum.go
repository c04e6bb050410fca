package strategy

// momentum.go — sigue la tendencia de corto plazo: si el precio del outcome
// de referencia se movió más de minChange dentro de la ventana, entra en la
// dirección del movimiento y sale al primer signo de reversión o al agotar
// el tiempo de decaimiento del momentum.

import (
	"math"
	"time"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// Momentum mantiene una ventana de precios por mercado y opera a favor de
// la tendencia. El estado de la ventana vive en la instancia: cada run del
// backtest construye la suya.
type Momentum struct {
	lookback     int
	minChange    float64
	minLiquidity float64
	reversal     float64
	takeProfit   float64
	maxHold      time.Duration
	fraction     float64

	windows map[string][]float64 // marketID → precios recientes del outcome de referencia
}

// NewMomentum crea la estrategia con los umbrales configurados.
func NewMomentum(cfg config.StrategyConfig) *Momentum {
	return &Momentum{
		lookback:     cfg.MomentumLookback,
		minChange:    cfg.MomentumMinChange,
		minLiquidity: cfg.MomentumMinLiquidity,
		reversal:     cfg.MomentumReversal,
		takeProfit:   cfg.MomentumTakeProfit,
		maxHold:      time.Duration(cfg.MomentumMaxHold * float64(time.Hour)),
		fraction:     cfg.TradeFraction,
		windows:      make(map[string][]float64),
	}
}

func (s *Momentum) Name() string { return "momentum" }

// Decide registra el precio en la ventana del mercado y, con la ventana
// completa, emite BUY si subió al menos minChange y SELL si bajó lo mismo.
// Mercados ilíquidos o a menos de 12 horas de expirar no generan señal:
// cerca de la expiración el precio converge al resultado y la tendencia
// intermedia deja de ser informativa.
func (s *Momentum) Decide(snap domain.MarketSnapshot, portfolio domain.PortfolioState) domain.Signal {
	if snap.Resolved {
		return domain.Hold()
	}

	outcome := snap.PrimaryOutcome()
	if outcome == "" {
		return domain.Hold()
	}
	price := snap.Price(outcome)
	if price <= 0 || price >= 1 {
		return domain.Hold()
	}

	window := appendCapped(s.windows[snap.MarketID], price, s.lookback)
	s.windows[snap.MarketID] = window
	if len(window) < s.lookback {
		return domain.Hold()
	}

	// Liquidez 0 = desconocida, misma convención que el executor.
	if liq := snap.LiquidityFor(outcome); liq > 0 && liq < s.minLiquidity {
		return domain.Hold()
	}
	if !snap.EndDate.IsZero() && snap.EndDate.Sub(snap.Timestamp) < 12*time.Hour {
		return domain.Hold()
	}

	change := window[len(window)-1] - window[0]
	if math.Abs(change) < s.minChange {
		return domain.Hold()
	}

	sig := domain.Signal{
		Outcome:    outcome,
		Fraction:   s.fraction,
		Confidence: math.Min(math.Abs(change)/(2*s.minChange), 1),
	}
	if change > 0 {
		sig.Type = domain.SignalBuy
		sig.Reason = "momentum up"
	} else {
		sig.Type = domain.SignalSell
		sig.Reason = "momentum down"
	}
	return sig
}

// ShouldExit cierra cuando el momentum se agota: la posición lleva abierta
// más de maxHold, el precio revirtió más de reversal por share en contra,
// o el beneficio por share superó takeProfit.
func (s *Momentum) ShouldExit(pos domain.Position, snap domain.MarketSnapshot) bool {
	if snap.Resolved {
		return false // la resolución liquida la posición por su cuenta
	}
	if snap.Timestamp.Sub(pos.OpenedAt) > s.maxHold {
		return true
	}
	price, ok := snap.Prices[pos.Outcome]
	if !ok {
		return false
	}
	pnl := (price - pos.EntryPrice) * pos.Side.Sign()
	return pnl < -s.reversal || pnl > s.takeProfit
}

// appendCapped añade el precio al final y recorta la ventana a max entradas.
func appendCapped(window []float64, price float64, max int) []float64 {
	window = append(window, price)
	if len(window) > max {
		window = window[len(window)-max:]
	}
	return window
}
