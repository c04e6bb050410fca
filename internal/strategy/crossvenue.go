package strategy

// crossvenue.go — arbitraje del mismo outcome cotizado en venues distintos.
// Comprar en el venue barato y vender en el caro captura el spread completo
// sin exposición direccional.

import (
	"sort"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// venueSpread es una oportunidad candidata entre dos venues.
type venueSpread struct {
	outcome  string
	buyVenue string
	buyPx    float64
	sellVen  string
	sellPx   float64
	spread   float64
}

// CrossVenueArbitrage empareja BUY(venue barato) / SELL(venue caro) cuando el
// spread entre venues alcanza minSpread (default 0.03).
type CrossVenueArbitrage struct {
	minSpread float64
	fraction  float64
}

// NewCrossVenueArbitrage crea la estrategia con el spread mínimo configurado.
func NewCrossVenueArbitrage(cfg config.StrategyConfig) *CrossVenueArbitrage {
	return &CrossVenueArbitrage{
		minSpread: cfg.CrossMinSpread,
		fraction:  cfg.ArbFraction,
	}
}

func (s *CrossVenueArbitrage) Name() string { return "cross_venue" }

// Decide rankea los candidatos por spread descendente (empates: menor precio
// de compra) y emite la mejor pareja como señal de dos patas.
func (s *CrossVenueArbitrage) Decide(snap domain.MarketSnapshot, portfolio domain.PortfolioState) domain.Signal {
	if snap.Resolved || len(snap.VenuePrices) < 2 {
		return domain.Hold()
	}

	candidates := s.findSpreads(snap)
	if len(candidates) == 0 {
		return domain.Hold()
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].spread != candidates[j].spread {
			return candidates[i].spread > candidates[j].spread
		}
		return candidates[i].buyPx < candidates[j].buyPx
	})

	best := candidates[0]
	return domain.Signal{
		Type:       domain.SignalBuy,
		Outcome:    best.outcome,
		Fraction:   s.fraction,
		Confidence: best.spread,
		Reason:     "cross venue",
		Legs: []domain.SignalLeg{
			{Venue: best.buyVenue, Outcome: best.outcome, Type: domain.SignalBuy, Price: best.buyPx},
			{Venue: best.sellVen, Outcome: best.outcome, Type: domain.SignalSell, Price: best.sellPx},
		},
	}
}

// findSpreads calcula max−min por outcome sobre todos los venues que lo cotizan.
func (s *CrossVenueArbitrage) findSpreads(snap domain.MarketSnapshot) []venueSpread {
	venues := make([]string, 0, len(snap.VenuePrices))
	for v := range snap.VenuePrices {
		venues = append(venues, v)
	}
	sort.Strings(venues) // orden estable → señal determinista

	var out []venueSpread
	for _, outcome := range snap.Outcomes() {
		var (
			quoted bool
			vs     venueSpread
		)
		for _, venue := range venues {
			price, ok := snap.VenuePrices[venue][outcome]
			if !ok {
				continue
			}
			if !quoted {
				vs = venueSpread{outcome: outcome, buyVenue: venue, buyPx: price, sellVen: venue, sellPx: price}
				quoted = true
				continue
			}
			if price < vs.buyPx {
				vs.buyVenue, vs.buyPx = venue, price
			}
			if price > vs.sellPx {
				vs.sellVen, vs.sellPx = venue, price
			}
		}
		if !quoted {
			continue
		}
		vs.spread = vs.sellPx - vs.buyPx
		if vs.spread >= s.minSpread {
			out = append(out, vs)
		}
	}
	return out
}
