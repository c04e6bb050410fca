package feed

// synthetic.go — generador sintético de snapshots de mercado.
//
// Con la misma seed el feed produce exactamente la misma secuencia de
// snapshots, en el mismo orden. Los precios siguen un paseo aleatorio con
// reversión a la media, reflejado en [0.02, 0.98], que converge hacia el
// resultado final cuando el mercado se acerca a su resolución.

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

const (
	priceFloor = 0.02
	priceCeil  = 0.98
)

// SyntheticFeed reproduce una secuencia sintética pregenerada de snapshots.
// Es reiniciable: Reset vuelve al principio con la secuencia intacta.
type SyntheticFeed struct {
	snaps []domain.MarketSnapshot
	idx   int
}

// NewSyntheticFeed genera el universo sintético completo para la ventana del
// backtest. Toda la aleatoriedad sale de la seed; no se toca el reloj ni
// math/rand global.
func NewSyntheticFeed(syn config.SyntheticConfig, bt config.BacktestConfig) *SyntheticFeed {
	g := &generator{
		syn: syn,
		bt:  bt,
	}
	return &SyntheticFeed{snaps: g.generate()}
}

// Next devuelve el siguiente snapshot en orden global de timestamp.
// ok=false sin error significa fin del feed.
func (f *SyntheticFeed) Next(ctx context.Context) (domain.MarketSnapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketSnapshot{}, false, err
	}
	if f.idx >= len(f.snaps) {
		return domain.MarketSnapshot{}, false, nil
	}
	snap := f.snaps[f.idx]
	f.idx++
	return snap, true, nil
}

// Reset rebobina el feed al primer snapshot.
func (f *SyntheticFeed) Reset() { f.idx = 0 }

// Len devuelve el total de snapshots de la secuencia.
func (f *SyntheticFeed) Len() int { return len(f.snaps) }

type generator struct {
	syn config.SyntheticConfig
	bt  config.BacktestConfig
}

func (g *generator) generate() []domain.MarketSnapshot {
	step := time.Duration(24*time.Hour.Nanoseconds() / int64(g.syn.SnapshotsPerDay))
	totalSteps := int(g.bt.End.Sub(g.bt.Start) / step)
	if totalSteps < 2 {
		totalSteps = 2
	}

	var snaps []domain.MarketSnapshot
	for i := 0; i < g.syn.Markets; i++ {
		snaps = append(snaps, g.marketSeries(i, step, totalSteps)...)
	}

	// Orden global: timestamp y, a igual timestamp, market ID. Es el orden
	// que ve el engine y tiene que ser estable entre runs.
	sort.SliceStable(snaps, func(a, b int) bool {
		if !snaps[a].Timestamp.Equal(snaps[b].Timestamp) {
			return snaps[a].Timestamp.Before(snaps[b].Timestamp)
		}
		return snaps[a].MarketID < snaps[b].MarketID
	})
	return snaps
}

// marketSeries genera la serie completa de un mercado, resolución incluida.
// Cada mercado deriva su propio RNG de la seed global para que su paso no
// dependa de cuántos mercados haya delante.
func (g *generator) marketSeries(index int, step time.Duration, totalSteps int) []domain.MarketSnapshot {
	rng := rand.New(rand.NewSource(g.syn.Seed + int64(index)*7919))

	marketID := fmt.Sprintf("synthetic-%03d", index)
	outcomes := []string{"YES", "NO"}
	if index%4 == 3 {
		outcomes = []string{"A", "B", "C"}
	}

	// El mercado vive entre el 60% y el 100% de la ventana del backtest.
	lifeSteps := totalSteps*6/10 + rng.Intn(totalSteps*4/10+1)
	if lifeSteps < 2 {
		lifeSteps = 2
	}
	endDate := g.bt.Start.Add(time.Duration(lifeSteps) * step)

	prices := g.initialPrices(rng, outcomes)
	prevPrimary := prices[outcomes[0]]

	series := make([]domain.MarketSnapshot, 0, lifeSteps+1)
	for t := 0; t < lifeSteps; t++ {
		frac := float64(t) / float64(lifeSteps)
		leader := leaderOutcome(prices, outcomes)
		g.walk(rng, prices, outcomes, leader, frac)

		primary := prices[outcomes[0]]
		sentiment := clamp01(0.5 + 6*(primary-prevPrimary) + 0.15*rng.NormFloat64())
		prevPrimary = primary

		series = append(series, domain.MarketSnapshot{
			Timestamp:   g.bt.Start.Add(time.Duration(t) * step),
			MarketID:    marketID,
			Question:    fmt.Sprintf("Synthetic market %03d", index),
			Prices:      copyPrices(prices),
			Liquidity:   g.liquidity(rng, outcomes),
			VenuePrices: g.venuePrices(rng, prices, outcomes),
			Sentiment:   &sentiment,
			EndDate:     endDate,
		})
	}

	// Exactamente un snapshot de resolución por mercado: gana el outcome con
	// mayor precio en el último paso.
	winner := leaderOutcome(prices, outcomes)
	final := make(map[string]float64, len(outcomes))
	for _, o := range outcomes {
		if o == winner {
			final[o] = 1
		} else {
			final[o] = 0
		}
	}
	series = append(series, domain.MarketSnapshot{
		Timestamp:      endDate,
		MarketID:       marketID,
		Question:       fmt.Sprintf("Synthetic market %03d", index),
		Prices:         final,
		EndDate:        endDate,
		Resolved:       true,
		WinningOutcome: winner,
	})
	return series
}

// initialPrices reparte precios iniciales normalizados entre los outcomes,
// con un poco de ruido para que la suma no sea exactamente 1.
func (g *generator) initialPrices(rng *rand.Rand, outcomes []string) map[string]float64 {
	weights := make([]float64, len(outcomes))
	var sum float64
	for i := range outcomes {
		weights[i] = 0.2 + rng.Float64()
		sum += weights[i]
	}

	prices := make(map[string]float64, len(outcomes))
	for i, o := range outcomes {
		p := weights[i] / sum
		p += 0.01 * rng.NormFloat64()
		prices[o] = reflect(p)
	}
	return prices
}

// walk avanza un paso el precio de cada outcome: reversión suave hacia el
// reparto uniforme, ruido gaussiano con la volatilidad configurada y, en el
// último tramo de vida del mercado, convergencia hacia el resultado final.
func (g *generator) walk(rng *rand.Rand, prices map[string]float64, outcomes []string, leader string, frac float64) {
	mean := 1.0 / float64(len(outcomes))
	for _, o := range outcomes {
		p := prices[o]
		p += 0.02 * (mean - p)
		p += g.syn.Volatility * rng.NormFloat64()

		if frac > 0.8 {
			w := (frac - 0.8) / 0.2
			target := 0.0
			if o == leader {
				target = 1.0
			}
			p += 0.15 * w * (target - p)
		}

		prices[o] = reflect(p)
	}
}

func (g *generator) liquidity(rng *rand.Rand, outcomes []string) map[string]float64 {
	liq := make(map[string]float64, len(outcomes))
	for _, o := range outcomes {
		liq[o] = 5000 + rng.Float64()*20000
	}
	return liq
}

// venuePrices simula un segundo venue con un pequeño desvío independiente por
// outcome, fuente de los spreads cross-venue.
func (g *generator) venuePrices(rng *rand.Rand, prices map[string]float64, outcomes []string) map[string]map[string]float64 {
	base := make(map[string]float64, len(outcomes))
	other := make(map[string]float64, len(outcomes))
	for _, o := range outcomes {
		base[o] = prices[o]
		other[o] = reflect(prices[o] + 0.02*rng.NormFloat64())
	}
	return map[string]map[string]float64{
		"polymarket": base,
		"predictit":  other,
	}
}

// leaderOutcome devuelve el outcome con mayor precio; empates se resuelven
// por orden alfabético para que el resultado no dependa del orden del map.
func leaderOutcome(prices map[string]float64, outcomes []string) string {
	leader := outcomes[0]
	for _, o := range outcomes[1:] {
		if prices[o] > prices[leader] || (prices[o] == prices[leader] && o < leader) {
			leader = o
		}
	}
	return leader
}

// reflect rebota el precio en los límites [0.02, 0.98].
func reflect(p float64) float64 {
	for p < priceFloor || p > priceCeil {
		if p < priceFloor {
			p = 2*priceFloor - p
		}
		if p > priceCeil {
			p = 2*priceCeil - p
		}
	}
	return p
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func copyPrices(prices map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(prices))
	for k, v := range prices {
		out[k] = v
	}
	return out
}
