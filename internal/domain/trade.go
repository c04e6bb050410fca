package domain

import "time"

// TradeStatus distingue ejecuciones reales de rechazos auditados.
type TradeStatus string

const (
	TradeExecuted TradeStatus = "EXECUTED"
	TradeRejected TradeStatus = "REJECTED"
)

// Trade es un registro inmutable de ejecución (o rechazo) en la simulación.
// Se añade al trade log en orden y nunca se muta después de crearse.
type Trade struct {
	ID        string
	Timestamp time.Time
	MarketID  string
	Outcome   string
	Side      Side
	Type      SignalType // señal que lo originó

	RequestedSize float64 // shares pedidas por la señal
	FillPrice     float64 // precio post-slippage (0 en rechazos)
	Fee           float64 // fee pagado en este fill

	// RealizedPnL solo es distinto de 0 en cierres y resoluciones.
	RealizedPnL float64
	// CapitalAtRisk es el coste comprometido al abrir (para retorno por trade).
	CapitalAtRisk float64

	Closing    bool // true si el trade cierra o liquida una posición
	Resolution bool // true si proviene de una resolución de mercado

	Status       TradeStatus
	RejectReason string // vacío en ejecuciones
	Reason       string // etiqueta de la señal origen
}

// Executed devuelve true si el trade movió el ledger.
func (t Trade) Executed() bool { return t.Status == TradeExecuted }

// Won devuelve true si el trade cerró con ganancia.
func (t Trade) Won() bool { return t.Closing && t.RealizedPnL > 0 }

// EquityPoint es un punto (timestamp, equity) de la curva de capital.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}
