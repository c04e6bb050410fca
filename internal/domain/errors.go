package domain

import (
	"errors"
	"fmt"
	"time"
)

// Taxonomía de errores del engine.
//
// Fatales (abortan el run antes o durante RUNNING):
//   - ErrConfigInvalid
//   - un fallo irrecuperable del feed a mitad de stream
//
// Recuperables (la señal se rechaza, queda en el trade log y el run continúa):
//   - InsufficientFundsError
//   - PositionLimitError
//   - InvalidMarketStateError
//
// DataGapError es fatal solo para el sub-run del mercado afectado.

// ErrConfigInvalid marca configuración inválida detectada antes de RUNNING.
var ErrConfigInvalid = errors.New("invalid config")

// DataGapError indica que no hay datos históricos para un mercado en el rango pedido.
type DataGapError struct {
	MarketID string
	From, To time.Time
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no data for market %s in range [%s, %s]",
		e.MarketID, e.From.Format(time.RFC3339), e.To.Format(time.RFC3339))
}

// InsufficientFundsError indica que un fill dejaría el cash en negativo.
// La orden se rechaza entera: no hay clipping silencioso.
type InsufficientFundsError struct {
	Cash     float64
	Required float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need $%.2f, have $%.2f", e.Required, e.Cash)
}

// PositionLimitError indica que el fill excedería el límite de exposición configurado.
type PositionLimitError struct {
	MarketID string
	Exposure float64
	Limit    float64
}

func (e *PositionLimitError) Error() string {
	return fmt.Sprintf("position limit exceeded on %s: exposure $%.2f > limit $%.2f",
		e.MarketID, e.Exposure, e.Limit)
}

// InvalidMarketStateError indica una señal sobre un mercado en estado inválido
// (p.ej. ya resuelto, o un SELL sin inventario que vender).
type InvalidMarketStateError struct {
	MarketID string
	Detail   string
}

func (e *InvalidMarketStateError) Error() string {
	return fmt.Sprintf("invalid market state on %s: %s", e.MarketID, e.Detail)
}
