package ports

import (
	"context"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// SnapshotFeed produce una secuencia finita y perezosa de snapshots,
// estrictamente creciente en timestamp.
//
// Contrato de Next:
//   - (snap, true, nil): snapshot válido, hay más (o no) por venir
//   - (_, false, nil):   fin del stream, el run puede completar
//   - (_, false, err):   fallo irrecuperable a mitad de stream → el run aborta
type SnapshotFeed interface {
	Next(ctx context.Context) (domain.MarketSnapshot, bool, error)
}
