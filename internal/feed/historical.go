package feed

// historical.go — replay de snapshots históricos con detección de huecos.

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// DefaultMaxGap es el hueco máximo tolerado entre snapshots consecutivos del
// mismo mercado antes de declarar el dato inválido.
const DefaultMaxGap = 24 * time.Hour

// HistoricalFeed reproduce registros históricos en orden global de timestamp.
// Un mercado con un hueco mayor que maxGap emite un DataGapError una sola vez
// y sus snapshots restantes se descartan: el resto de mercados sigue intacto.
type HistoricalFeed struct {
	snaps  []domain.MarketSnapshot
	maxGap time.Duration

	// pending son los DataGapError de mercados configurados sin ningún
	// registro en el rango, emitidos uno a uno antes del replay.
	pending []domain.DataGapError

	idx        int
	pendingIdx int
	lastSeen   map[string]time.Time
	gapped     map[string]bool
}

// NewHistoricalFeed ordena los registros por timestamp (y market ID a igual
// timestamp) y los deja listos para el replay en [from, to] (cero = sin
// límite). maxGap <= 0 usa DefaultMaxGap.
//
// Falla con DataGapError si no hay ningún registro que reproducir. Un mercado
// de markets sin registros en el rango no tumba la construcción: su
// DataGapError se emite por Next y el resto de mercados se reproduce normal.
func NewHistoricalFeed(records []domain.HistoryRecord, markets []string, from, to time.Time, maxGap time.Duration) (*HistoricalFeed, error) {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}

	inRange := func(ts time.Time) bool {
		if !from.IsZero() && ts.Before(from) {
			return false
		}
		if !to.IsZero() && ts.After(to) {
			return false
		}
		return true
	}

	snaps := make([]domain.MarketSnapshot, 0, len(records))
	seen := make(map[string]bool)
	for _, rec := range records {
		if !inRange(rec.Timestamp) {
			continue
		}
		snaps = append(snaps, rec.Snapshot())
		seen[rec.MarketID] = true
	}
	sort.SliceStable(snaps, func(a, b int) bool {
		if !snaps[a].Timestamp.Equal(snaps[b].Timestamp) {
			return snaps[a].Timestamp.Before(snaps[b].Timestamp)
		}
		return snaps[a].MarketID < snaps[b].MarketID
	})

	var pending []domain.DataGapError
	gapped := make(map[string]bool)
	for _, m := range markets {
		if !seen[m] {
			pending = append(pending, domain.DataGapError{MarketID: m, From: from, To: to})
			gapped[m] = true
		}
	}

	if len(snaps) == 0 {
		gap := domain.DataGapError{From: from, To: to}
		if len(pending) > 0 {
			gap = pending[0]
		}
		return nil, fmt.Errorf("feed.NewHistoricalFeed: nothing to replay: %w", &gap)
	}

	return &HistoricalFeed{
		snaps:    snaps,
		maxGap:   maxGap,
		pending:  pending,
		lastSeen: make(map[string]time.Time),
		gapped:   gapped,
	}, nil
}

// Next devuelve el siguiente snapshot válido. Al detectar un hueco devuelve el
// DataGapError del mercado afectado; la siguiente llamada continúa con el
// resto de mercados.
func (f *HistoricalFeed) Next(ctx context.Context) (domain.MarketSnapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketSnapshot{}, false, err
	}

	if f.pendingIdx < len(f.pending) {
		gap := f.pending[f.pendingIdx]
		f.pendingIdx++
		return domain.MarketSnapshot{}, false, &gap
	}

	for f.idx < len(f.snaps) {
		snap := f.snaps[f.idx]
		f.idx++

		if f.gapped[snap.MarketID] {
			continue
		}

		if last, ok := f.lastSeen[snap.MarketID]; ok {
			if gap := snap.Timestamp.Sub(last); gap > f.maxGap {
				f.gapped[snap.MarketID] = true
				return domain.MarketSnapshot{}, false, &domain.DataGapError{
					MarketID: snap.MarketID,
					From:     last,
					To:       snap.Timestamp,
				}
			}
		}
		f.lastSeen[snap.MarketID] = snap.Timestamp

		return snap, true, nil
	}

	return domain.MarketSnapshot{}, false, nil
}

// Reset rebobina el replay y olvida los mercados descartados por huecos.
// Los mercados configurados sin registros vuelven a reportarse.
func (f *HistoricalFeed) Reset() {
	f.idx = 0
	f.pendingIdx = 0
	f.lastSeen = make(map[string]time.Time)
	f.gapped = make(map[string]bool)
	for _, gap := range f.pending {
		f.gapped[gap.MarketID] = true
	}
}
