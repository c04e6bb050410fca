package domain

import (
	"fmt"
	"time"
)

// PositionStatus es el ciclo de vida de una posición.
type PositionStatus string

const (
	PositionOpen     PositionStatus = "OPEN"
	PositionClosed   PositionStatus = "CLOSED"   // salida explícita de la estrategia
	PositionResolved PositionStatus = "RESOLVED" // liquidada por resolución del mercado
)

// Side es la dirección de una posición.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Sign devuelve +1 para LONG y -1 para SHORT.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Position es una posición abierta sobre un outcome concreto.
// Propiedad exclusiva del Ledger: nadie más la muta.
type Position struct {
	MarketID   string
	Outcome    string
	Side       Side
	EntryPrice float64 // precio medio de entrada
	Size       float64 // shares
	OpenedAt   time.Time
	Status     PositionStatus
}

// Key identifica la posición dentro del ledger (mercado + outcome + lado).
func (p Position) Key() string {
	return PositionKey(p.MarketID, p.Outcome, p.Side)
}

// PositionKey construye la clave canónica de una posición.
func PositionKey(marketID, outcome string, side Side) string {
	return fmt.Sprintf("%s/%s/%s", marketID, outcome, side)
}

// CostBasis devuelve el capital comprometido por la posición en USDC.
// Para shorts es el colateral (1 − entry) × size: shortear un outcome
// equivale a comprar el complemento, y su pérdida máxima es que el precio
// llegue a $1.
func (p Position) CostBasis() float64 {
	if p.Side == SideShort {
		return (1 - p.EntryPrice) * p.Size
	}
	return p.EntryPrice * p.Size
}

// MarkToMarket valora la posición al precio observado dado.
// Para shorts el valor crece cuando el precio cae.
func (p Position) MarkToMarket(price float64) float64 {
	if p.Side == SideShort {
		return (1 - price) * p.Size
	}
	return price * p.Size
}

// RealizedPnL calcula el P&L al cerrar a exitPrice.
func (p Position) RealizedPnL(exitPrice float64) float64 {
	return (exitPrice - p.EntryPrice) * p.Size * p.Side.Sign()
}
