package strategy

// meanreversion.go — apuesta contra los extremos: cuando el precio se aleja
// más de entryZ desviaciones de su media reciente, entra esperando que
// vuelva, y sale cuando el z-score se normaliza (o el movimiento sigue en
// contra más allá de stopZ).

import (
	"math"
	"time"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// MeanReversion mantiene una ventana de precios por mercado y opera contra
// las desviaciones. Igual que Momentum, el estado es por instancia.
type MeanReversion struct {
	lookback     int
	entryZ       float64
	exitZ        float64
	stopZ        float64
	minVol       float64
	minLiquidity float64
	maxHold      time.Duration
	fraction     float64

	windows map[string][]float64
}

// NewMeanReversion crea la estrategia con los umbrales configurados.
func NewMeanReversion(cfg config.StrategyConfig) *MeanReversion {
	return &MeanReversion{
		lookback:     cfg.MeanRevLookback,
		entryZ:       cfg.MeanRevEntryZ,
		exitZ:        cfg.MeanRevExitZ,
		stopZ:        cfg.MeanRevStopZ,
		minVol:       cfg.MeanRevMinVol,
		minLiquidity: cfg.MeanRevMinLiquidity,
		maxHold:      time.Duration(cfg.MeanRevMaxHold * float64(time.Hour)),
		fraction:     cfg.TradeFraction,
		windows:      make(map[string][]float64),
	}
}

func (s *MeanReversion) Name() string { return "mean_reversion" }

// Decide registra el precio y, con la ventana completa, calcula el z-score
// contra la media y desviación de la ventana. z ≤ −entryZ → BUY (el precio
// está barato frente a su media), z ≥ +entryZ → SELL. Ventanas casi planas
// (σ < minVol) no operan: el z-score sobre ruido diminuto es espurio. Se
// exige liquidez y al menos siete días hasta la expiración para que la
// reversión tenga tiempo de materializarse.
func (s *MeanReversion) Decide(snap domain.MarketSnapshot, portfolio domain.PortfolioState) domain.Signal {
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

	if liq := snap.LiquidityFor(outcome); liq > 0 && liq < s.minLiquidity {
		return domain.Hold()
	}
	if !snap.EndDate.IsZero() && snap.EndDate.Sub(snap.Timestamp) < 7*24*time.Hour {
		return domain.Hold()
	}

	mean, sigma := windowStats(window)
	if sigma < s.minVol {
		return domain.Hold()
	}
	z := (price - mean) / sigma
	if math.Abs(z) < s.entryZ {
		return domain.Hold()
	}

	sig := domain.Signal{
		Outcome:    outcome,
		Fraction:   s.fraction,
		Confidence: math.Min(math.Abs(z)/s.stopZ, 1),
	}
	if z < 0 {
		sig.Type = domain.SignalBuy
		sig.Reason = "reversion buy"
	} else {
		sig.Type = domain.SignalSell
		sig.Reason = "reversion sell"
	}
	return sig
}

// ShouldExit cierra cuando el precio volvió a su media (|z| ≤ exitZ), cuando
// siguió alejándose en contra de la posición más allá de stopZ, o cuando la
// posición lleva abierta más de maxHold.
func (s *MeanReversion) ShouldExit(pos domain.Position, snap domain.MarketSnapshot) bool {
	if snap.Resolved {
		return false
	}
	if snap.Timestamp.Sub(pos.OpenedAt) > s.maxHold {
		return true
	}
	price, ok := snap.Prices[pos.Outcome]
	if !ok {
		return false
	}
	window := s.windows[snap.MarketID]
	if len(window) < s.lookback {
		return false
	}
	mean, sigma := windowStats(window)
	if sigma == 0 {
		return false
	}
	z := (price - mean) / sigma
	if math.Abs(z) <= s.exitZ {
		return true // revirtió a la media
	}
	// Stop: el z-score siguió en contra. Un long entró con z negativo y se
	// corta si cae por debajo de −stopZ; el short, el espejo.
	return z*pos.Side.Sign() <= -s.stopZ
}

// windowStats devuelve media y desviación estándar poblacional de la ventana.
func windowStats(window []float64) (mean, sigma float64) {
	for _, p := range window {
		mean += p
	}
	mean /= float64(len(window))
	var variance float64
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(window))
	return mean, math.Sqrt(variance)
}
