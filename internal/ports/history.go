package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// HistoryProvider entrega historiales de precios ya descargados u obtenibles
// de un colaborador externo (API read-only, ficheros). El core solo consume
// los records; nunca habla con la red directamente.
type HistoryProvider interface {
	// FetchHistory devuelve los records del rango, ordenados por timestamp.
	FetchHistory(ctx context.Context, marketIDs []string, from, to time.Time) ([]domain.HistoryRecord, error)
}
