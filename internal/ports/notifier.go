package ports

import (
	"context"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// Notifier presenta resultados de backtests al usuario.
type Notifier interface {
	// Notify presenta uno o varios resultados (comparativa si hay más de uno).
	Notify(ctx context.Context, results []domain.BacktestResult) error
}
