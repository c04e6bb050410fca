package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// RunSummary es la fila ligera de un run persistido, para listados.
type RunSummary struct {
	RunID       string
	Strategy    string
	StartedAt   time.Time
	TotalReturn float64
	MaxDrawdown float64
	TotalTrades int
}

// Storage persiste los resultados de backtests completados.
type Storage interface {
	// SaveRun persiste el resultado completo: run, trade log y curva de equity.
	SaveRun(ctx context.Context, result domain.BacktestResult) error

	// ListRuns devuelve los runs registrados, más recientes primero.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
