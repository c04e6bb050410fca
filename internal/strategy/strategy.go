package strategy

import (
	"sort"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// Strategy define el contrato para generar señales de trading.
// Decide es determinista: la misma secuencia de snapshots produce siempre
// las mismas señales. El inventario viaja en el PortfolioState; las
// estrategias con ventana de precios (momentum, mean_reversion) llevan ese
// estado en la instancia, así que cada run debe construir la suya.
type Strategy interface {
	// Name devuelve el identificador único de la estrategia.
	Name() string

	// Decide evalúa un snapshot con el estado actual del portfolio
	// y devuelve la señal correspondiente (HOLD si no hay nada que hacer).
	Decide(snap domain.MarketSnapshot, portfolio domain.PortfolioState) domain.Signal
}

// ExitAdvisor es la capacidad opcional de pedir el cierre de una posición
// abierta antes de la resolución del mercado.
type ExitAdvisor interface {
	// ShouldExit devuelve true si la posición debe cerrarse al precio actual.
	ShouldExit(pos domain.Position, snap domain.MarketSnapshot) bool
}

// Registry mantiene las estrategias disponibles indexadas por nombre.
type Registry map[string]Strategy

// NewRegistry crea un registry vacío.
func NewRegistry() Registry {
	return make(Registry)
}

// Register añade una estrategia al registry.
func (r Registry) Register(s Strategy) {
	r[s.Name()] = s
}

// Get devuelve la estrategia por nombre.
func (r Registry) Get(name string) (Strategy, bool) {
	s, ok := r[name]
	return s, ok
}

// Names devuelve los nombres registrados en orden estable.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildRegistry registra las ocho estrategias con los umbrales de la config.
// Devuelve instancias frescas: las estrategias con estado interno no deben
// compartirse entre runs.
func BuildRegistry(cfg config.StrategyConfig) Registry {
	r := NewRegistry()
	r.Register(NewLongshotBias(cfg))
	r.Register(NewIntraMarketArbitrage(cfg))
	r.Register(NewCrossVenueArbitrage(cfg))
	r.Register(NewNewsVelocity(cfg))
	r.Register(NewMarketMaking(cfg))
	r.Register(NewSentiment(cfg))
	r.Register(NewMomentum(cfg))
	r.Register(NewMeanReversion(cfg))
	return r
}
