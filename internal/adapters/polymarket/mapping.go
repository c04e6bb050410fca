package polymarket

import (
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// mapHistoryRecords fusiona las series por outcome de un mercado en records
// alineados por timestamp. Los puntos se agrupan al bucket de la fidelity
// pedida; cada bucket queda con el último precio visto de cada outcome, así
// un outcome sin punto en el bucket arrastra su precio anterior.
func mapHistoryRecords(mkt clobMarketResponse, series map[string][]pricePoint) []domain.HistoryRecord {
	bucket := int64(fidelityMinutes * 60)

	outcomes := make([]string, 0, len(series))
	for outcome := range series {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	// Todos los buckets con al menos un punto de algún outcome.
	type key = int64
	merged := make(map[key]map[string]float64)
	for _, outcome := range outcomes {
		for _, p := range series[outcome] {
			ts := (p.T / bucket) * bucket
			if merged[ts] == nil {
				merged[ts] = make(map[string]float64, len(outcomes))
			}
			merged[ts][outcome] = p.P
		}
	}

	timestamps := make([]int64, 0, len(merged))
	for ts := range merged {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	last := make(map[string]float64, len(outcomes))
	records := make([]domain.HistoryRecord, 0, len(timestamps))
	for _, ts := range timestamps {
		for outcome, price := range merged[ts] {
			last[outcome] = price
		}
		// Hasta no haber visto todos los outcomes no se puede emitir un
		// record completo.
		if len(last) < len(outcomes) {
			continue
		}

		prices := make(map[string]float64, len(last))
		for outcome, price := range last {
			prices[outcome] = price
		}
		records = append(records, domain.HistoryRecord{
			Timestamp:     time.Unix(ts, 0).UTC(),
			MarketID:      mkt.ConditionID,
			Question:      mkt.Question,
			OutcomePrices: prices,
		})
	}

	// Mercado cerrado con ganador conocido: un record final de resolución.
	if mkt.Closed && len(records) > 0 {
		if winner := winningOutcome(mkt); winner != "" {
			final := make(map[string]float64, len(outcomes))
			for _, outcome := range outcomes {
				if outcome == winner {
					final[outcome] = 1
				} else {
					final[outcome] = 0
				}
			}
			records = append(records, domain.HistoryRecord{
				Timestamp:      records[len(records)-1].Timestamp.Add(time.Duration(bucket) * time.Second),
				MarketID:       mkt.ConditionID,
				Question:       mkt.Question,
				OutcomePrices:  final,
				Resolved:       true,
				WinningOutcome: winner,
			})
		}
	}

	return records
}

// winningOutcome devuelve el outcome marcado como winner por el CLOB.
func winningOutcome(mkt clobMarketResponse) string {
	for _, token := range mkt.Tokens {
		if token.Winner {
			return token.Outcome
		}
	}
	return ""
}
