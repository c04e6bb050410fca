package backtest

// execution.go — simulador de ejecución: convierte señales en fills.
//
// Orden de aplicación por señal: slippage → fee → check de capital → check de
// límite de posición. Un fill que no pasa los checks se rechaza entero y queda
// en el trade log como rechazo auditado; no hay fills parciales en este modelo.

import (
	"errors"
	"math"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/domain"
)

// Executor aplica señales contra el ledger bajo las fricciones configuradas.
type Executor struct {
	cfg   config.BacktestConfig
	newID func() string
}

// NewExecutor crea un executor. newID genera los IDs del trade log; tiene que
// ser determinista para que el resultado del run lo sea.
func NewExecutor(cfg config.BacktestConfig, newID func() string) *Executor {
	return &Executor{cfg: cfg, newID: newID}
}

// Execute aplica la señal y devuelve los trades resultantes (ejecutados o
// rechazados). Cada trade ejecutado corresponde a exactamente una mutación
// atómica del ledger. Señales HOLD o sin tamaño no producen nada.
func (e *Executor) Execute(sig domain.Signal, snap domain.MarketSnapshot, ledger *Ledger) []domain.Trade {
	if sig.IsHold() || (sig.Fraction <= 0 && sig.Type != domain.SignalQuote) {
		return nil
	}
	if snap.Resolved {
		return []domain.Trade{e.reject(sig, snap, sig.Outcome,
			&domain.InvalidMarketStateError{MarketID: snap.MarketID, Detail: "market already resolved"})}
	}

	switch sig.Type {
	case domain.SignalBuy:
		if len(sig.Legs) > 0 {
			return e.executeLegs(sig, snap, ledger)
		}
		return []domain.Trade{e.buy(sig, snap, ledger, sig.Outcome, snap.Price(sig.Outcome), true)}
	case domain.SignalSell:
		return []domain.Trade{e.sell(sig, snap, ledger, sig.Outcome, snap.Price(sig.Outcome), true)}
	case domain.SignalBuyAll:
		return []domain.Trade{e.buyAll(sig, snap, ledger)}
	case domain.SignalSellAll:
		return []domain.Trade{e.sellAll(sig, snap, ledger)}
	case domain.SignalQuote:
		return e.quote(sig, snap, ledger)
	default:
		return nil
	}
}

// executeLegs ejecuta una señal pareada cross-venue: BUY en el venue barato,
// SELL en el caro. Si la primera pata se rechaza, la segunda no se intenta
// (mejor perder la oportunidad que quedarse con exposición desnuda).
func (e *Executor) executeLegs(sig domain.Signal, snap domain.MarketSnapshot, ledger *Ledger) []domain.Trade {
	var trades []domain.Trade
	for _, leg := range sig.Legs {
		var t domain.Trade
		if leg.Type == domain.SignalBuy {
			t = e.buy(sig, snap, ledger, leg.Outcome, leg.Price, true)
		} else {
			t = e.sell(sig, snap, ledger, leg.Outcome, leg.Price, true)
		}
		trades = append(trades, t)
		if !t.Executed() {
			break
		}
	}
	return trades
}

// buy abre o incrementa una posición long.
func (e *Executor) buy(sig domain.Signal, snap domain.MarketSnapshot, ledger *Ledger, outcome string, raw float64, slippage bool) domain.Trade {
	if raw <= 0 || raw >= 1 {
		return e.reject(sig, snap, outcome,
			&domain.InvalidMarketStateError{MarketID: snap.MarketID, Detail: "no price for outcome " + outcome})
	}

	value := sig.Fraction * ledger.Equity()
	fill := raw
	if slippage {
		fill = e.slip(raw, value, snap.LiquidityFor(outcome), +1)
	}
	if sig.Limit > 0 && fill > sig.Limit {
		return e.reject(sig, snap, outcome,
			&domain.InvalidMarketStateError{MarketID: snap.MarketID, Detail: "fill above limit price"})
	}

	shares := value / raw
	fee := e.buyFee(fill, shares)
	cost := fill*shares + fee

	if trade, ok := e.checkCapital(sig, snap, ledger, outcome, cost); !ok {
		return trade
	}
	key := domain.PositionKey(snap.MarketID, outcome, domain.SideLong)
	if trade, ok := e.checkLimits(sig, snap, ledger, outcome, key, cost); !ok {
		return trade
	}

	pos := domain.Position{
		MarketID:   snap.MarketID,
		Outcome:    outcome,
		Side:       domain.SideLong,
		EntryPrice: fill,
		Size:       shares,
		OpenedAt:   snap.Timestamp,
		Status:     domain.PositionOpen,
	}
	if err := ledger.OpenOrIncrease(pos, cost); err != nil {
		return e.reject(sig, snap, outcome, err)
	}

	return domain.Trade{
		ID:            e.newID(),
		Timestamp:     snap.Timestamp,
		MarketID:      snap.MarketID,
		Outcome:       outcome,
		Side:          domain.SideLong,
		Type:          sig.Type,
		RequestedSize: shares,
		FillPrice:     fill,
		Fee:           fee,
		CapitalAtRisk: cost,
		Status:        domain.TradeExecuted,
		Reason:        sig.Reason,
	}
}

// sell cierra inventario long si lo hay; sin inventario abre un short
// colateralizado a (1 − entry) por share, su pérdida máxima.
func (e *Executor) sell(sig domain.Signal, snap domain.MarketSnapshot, ledger *Ledger, outcome string, raw float64, slippage bool) domain.Trade {
	if raw <= 0 || raw >= 1 {
		return e.reject(sig, snap, outcome,
			&domain.InvalidMarketStateError{MarketID: snap.MarketID, Detail: "no price for outcome " + outcome})
	}

	value := sig.Fraction * ledger.Equity()
	fill := raw
	if slippage {
		fill = e.slip(raw, value, snap.LiquidityFor(outcome), -1)
	}
	if sig.Limit > 0 && fill < sig.Limit {
		return e.reject(sig, snap, outcome,
			&domain.InvalidMarketStateError{MarketID: snap.MarketID, Detail: "fill below limit price"})
	}

	longKey := domain.PositionKey(snap.MarketID, outcome, domain.SideLong)
	if pos, ok := ledger.Position(longKey); ok {
		shares := math.Min(value/raw, pos.Size)
		fee := e.sellFee(fill, shares)
		entry := pos.EntryPrice

		pnl, err := ledger.Close(longKey, fill, shares, fee)
		if err != nil {
			return e.reject(sig, snap, outcome, err)
		}
		return domain.Trade{
			ID:            e.newID(),
			Timestamp:     snap.Timestamp,
			MarketID:      snap.MarketID,
			Outcome:       outcome,
			Side:          domain.SideLong,
			Type:          sig.Type,
			RequestedSize: shares,
			FillPrice:     fill,
			Fee:           fee,
			RealizedPnL:   pnl,
			CapitalAtRisk: entry * shares,
			Closing:       true,
			Status:        domain.TradeExecuted,
			Reason:        sig.Reason,
		}
	}

	// Short: el colateral cubre la pérdida máxima, (1 − entry) × shares.
	shares := value / raw
	fee := e.sellFee(fill, shares)
	cost := (1-fill)*shares + fee

	if trade, ok := e.checkCapital(sig, snap, ledger, outcome, cost); !ok {
		return trade
	}
	shortKey := domain.PositionKey(snap.MarketID, outcome, domain.SideShort)
	if trade, ok := e.checkLimits(sig, snap, ledger, outcome, shortKey, cost); !ok {
		return trade
	}

	pos := domain.Position{
		MarketID:   snap.MarketID,
		Outcome:    outcome,
		Side:       domain.SideShort,
		EntryPrice: fill,
		Size:       shares,
		OpenedAt:   snap.Timestamp,
		Status:     domain.PositionOpen,
	}
	if err := ledger.OpenOrIncrease(pos, cost); err != nil {
		return e.reject(sig, snap, outcome, err)
	}

	return domain.Trade{
		ID:            e.newID(),
		Timestamp:     snap.Timestamp,
		MarketID:      snap.MarketID,
		Outcome:       outcome,
		Side:          domain.SideShort,
		Type:          sig.Type,
		RequestedSize: shares,
		FillPrice:     fill,
		Fee:           fee,
		CapitalAtRisk: cost,
		Status:        domain.TradeExecuted,
		Reason:        sig.Reason,
	}
}

// buyAll compra el set completo de outcomes con shares iguales (Dutch book).
// Una sola mutación atómica del ledger; un solo trade resumen en el log.
func (e *Executor) buyAll(sig domain.Signal, snap domain.MarketSnapshot, ledger *Ledger) domain.Trade {
	sum := snap.SumPrices()
	if sum <= 0 || len(snap.Prices) < 2 {
		return e.reject(sig, snap, "",
			&domain.InvalidMarketStateError{MarketID: snap.MarketID, Detail: "not enough outcomes for a set"})
	}

	value := sig.Fraction * ledger.Equity()
	shares := value / sum

	outcomes := snap.Outcomes()
	positions := make([]domain.Position, 0, len(outcomes))
	var fee float64
	for _, outcome := range outcomes {
		price := snap.Price(outcome)
		positions = append(positions, domain.Position{
			MarketID:   snap.MarketID,
			Outcome:    outcome,
			Side:       domain.SideLong,
			EntryPrice: price,
			Size:       shares,
			OpenedAt:   snap.Timestamp,
			Status:     domain.PositionOpen,
		})
		fee += e.buyFee(price, shares)
	}
	totalCost := sum*shares + fee

	if trade, ok := e.checkCapital(sig, snap, ledger, "", totalCost); !ok {
		return trade
	}
	if trade, ok := e.checkLimits(sig, snap, ledger, "", "", totalCost); !ok {
		return trade
	}

	if err := ledger.OpenSet(positions, totalCost); err != nil {
		return e.reject(sig, snap, "", err)
	}

	return domain.Trade{
		ID:            e.newID(),
		Timestamp:     snap.Timestamp,
		MarketID:      snap.MarketID,
		Side:          domain.SideLong,
		Type:          domain.SignalBuyAll,
		RequestedSize: shares,
		FillPrice:     sum, // coste del set por share
		Fee:           fee,
		CapitalAtRisk: totalCost,
		Status:        domain.TradeExecuted,
		Reason:        sig.Reason,
	}
}

// sellAll vende el set completo (mint por $1 + venta por Σ). El P&L se realiza
// inmediatamente: no queda posición abierta.
func (e *Executor) sellAll(sig domain.Signal, snap domain.MarketSnapshot, ledger *Ledger) domain.Trade {
	sum := snap.SumPrices()
	if len(snap.Prices) < 2 {
		return e.reject(sig, snap, "",
			&domain.InvalidMarketStateError{MarketID: snap.MarketID, Detail: "not enough outcomes for a set"})
	}

	value := sig.Fraction * ledger.Equity()
	shares := value // mint cuesta $1 por set

	var fee float64
	for _, outcome := range snap.Outcomes() {
		fee += e.sellFee(snap.Price(outcome), shares)
	}
	proceeds := sum * shares

	if trade, ok := e.checkCapital(sig, snap, ledger, "", shares); !ok {
		return trade
	}
	if err := ledger.MintSell(shares, proceeds, fee); err != nil {
		return e.reject(sig, snap, "", err)
	}

	return domain.Trade{
		ID:            e.newID(),
		Timestamp:     snap.Timestamp,
		MarketID:      snap.MarketID,
		Side:          domain.SideShort,
		Type:          domain.SignalSellAll,
		RequestedSize: shares,
		FillPrice:     sum,
		Fee:           fee,
		RealizedPnL:   proceeds - shares - fee,
		CapitalAtRisk: shares,
		Closing:       true,
		Status:        domain.TradeExecuted,
		Reason:        sig.Reason,
	}
}

// quote simula una cotización bid/ask descansando en el book: el bid se llena
// si el precio cruza por debajo, el ask si cruza por encima y hay inventario.
// Como máximo un lado por paso (bid primero); las quotes son órdenes límite,
// así que no llevan slippage.
func (e *Executor) quote(sig domain.Signal, snap domain.MarketSnapshot, ledger *Ledger) []domain.Trade {
	price := snap.Price(sig.Outcome)
	if price <= 0 {
		return nil
	}

	if price <= sig.Bid {
		buySig := sig
		buySig.Type = domain.SignalBuy
		buySig.Limit = 0
		return []domain.Trade{e.buy(buySig, snap, ledger, sig.Outcome, sig.Bid, false)}
	}

	longKey := domain.PositionKey(snap.MarketID, sig.Outcome, domain.SideLong)
	if _, ok := ledger.Position(longKey); ok && price >= sig.Ask {
		sellSig := sig
		sellSig.Type = domain.SignalSell
		sellSig.Limit = 0
		return []domain.Trade{e.sell(sellSig, snap, ledger, sig.Outcome, sig.Ask, false)}
	}

	return nil
}

// ExitPosition cierra una posición entera al precio de mercado actual (con
// slippage). Lo usa el engine para los stop-loss que aconseja la estrategia.
func (e *Executor) ExitPosition(pos domain.Position, snap domain.MarketSnapshot, ledger *Ledger, reason string) domain.Trade {
	raw := snap.Price(pos.Outcome)
	if raw <= 0 || raw >= 1 {
		return e.reject(domain.Signal{Type: domain.SignalSell, Reason: reason}, snap, pos.Outcome,
			&domain.InvalidMarketStateError{MarketID: snap.MarketID, Detail: "no price for outcome " + pos.Outcome})
	}

	// Cerrar un long es vender; cerrar un short es recomprar.
	direction := -1.0
	if pos.Side == domain.SideShort {
		direction = +1.0
	}
	fill := e.slip(raw, raw*pos.Size, snap.LiquidityFor(pos.Outcome), direction)

	var fee float64
	if pos.Side == domain.SideLong {
		fee = e.sellFee(fill, pos.Size)
	} else {
		fee = e.buyFee(fill, pos.Size)
	}

	pnl, err := ledger.Close(pos.Key(), fill, pos.Size, fee)
	if err != nil {
		return e.reject(domain.Signal{Type: domain.SignalSell, Reason: reason}, snap, pos.Outcome, err)
	}

	return domain.Trade{
		ID:            e.newID(),
		Timestamp:     snap.Timestamp,
		MarketID:      snap.MarketID,
		Outcome:       pos.Outcome,
		Side:          pos.Side,
		Type:          domain.SignalSell,
		RequestedSize: pos.Size,
		FillPrice:     fill,
		Fee:           fee,
		RealizedPnL:   pnl,
		CapitalAtRisk: pos.CostBasis(),
		Closing:       true,
		Status:        domain.TradeExecuted,
		Reason:        reason,
	}
}

// slip desplaza el precio contra el trader: la fracción configurada en bps,
// escalada por el tamaño de la orden sobre la liquidez disponible (si se conoce).
func (e *Executor) slip(raw, orderValue, liquidity float64, direction float64) float64 {
	frac := e.cfg.SlippageBps / 10000
	if liquidity > 0 {
		frac *= math.Min(orderValue/liquidity, 1)
	}
	fill := raw * (1 + direction*frac)
	return clampPrice(fill)
}

func clampPrice(p float64) float64 {
	return math.Min(0.9999, math.Max(0.0001, p))
}

// Fees de trading intermedio (default 0: el fee canónico es el 2% del ganador
// a resolución, aplicado por el ledger).
//
//	sell: feeRate × min(p, 1−p) × size
//	buy:  feeRate × min(p, 1−p) × size / p
func (e *Executor) sellFee(price, shares float64) float64 {
	return e.cfg.CommissionRate * math.Min(price, 1-price) * shares
}

func (e *Executor) buyFee(price, shares float64) float64 {
	if price <= 0 {
		return 0
	}
	return e.cfg.CommissionRate * math.Min(price, 1-price) * shares / price
}

// checkCapital rechaza el fill si dejaría el cash en negativo.
func (e *Executor) checkCapital(sig domain.Signal, snap domain.MarketSnapshot, ledger *Ledger, outcome string, cost float64) (domain.Trade, bool) {
	if cost > ledger.Cash() {
		return e.reject(sig, snap, outcome,
			&domain.InsufficientFundsError{Cash: ledger.Cash(), Required: cost}), false
	}
	return domain.Trade{}, true
}

// checkLimits aplica el límite de exposición por mercado y el máximo de
// posiciones abiertas simultáneas.
func (e *Executor) checkLimits(sig domain.Signal, snap domain.MarketSnapshot, ledger *Ledger, outcome, newKey string, cost float64) (domain.Trade, bool) {
	limit := e.cfg.PositionSizeLimit * e.cfg.InitialCapital
	if limit > 0 {
		if exposure := ledger.MarketExposure(snap.MarketID) + cost; exposure > limit {
			return e.reject(sig, snap, outcome,
				&domain.PositionLimitError{MarketID: snap.MarketID, Exposure: exposure, Limit: limit}), false
		}
	}
	if e.cfg.MaxOpenPositions > 0 && newKey != "" {
		if _, exists := ledger.Position(newKey); !exists && ledger.OpenPositions() >= e.cfg.MaxOpenPositions {
			return e.reject(sig, snap, outcome,
				&domain.PositionLimitError{MarketID: snap.MarketID,
					Exposure: float64(ledger.OpenPositions()), Limit: float64(e.cfg.MaxOpenPositions)}), false
		}
	}
	return domain.Trade{}, true
}

// reject construye el registro de rechazo auditado para el trade log.
// El ledger no se toca: cash y posiciones quedan exactamente igual.
func (e *Executor) reject(sig domain.Signal, snap domain.MarketSnapshot, outcome string, cause error) domain.Trade {
	return domain.Trade{
		ID:           e.newID(),
		Timestamp:    snap.Timestamp,
		MarketID:     snap.MarketID,
		Outcome:      outcome,
		Type:         sig.Type,
		Status:       domain.TradeRejected,
		RejectReason: rejectReason(cause),
		Reason:       sig.Reason,
	}
}

// rejectReason etiqueta el rechazo con su categoría de la taxonomía de errores.
func rejectReason(err error) string {
	var (
		insufficient *domain.InsufficientFundsError
		limit        *domain.PositionLimitError
		state        *domain.InvalidMarketStateError
	)
	switch {
	case errors.As(err, &insufficient):
		return "InsufficientFunds: " + err.Error()
	case errors.As(err, &limit):
		return "PositionLimitExceeded: " + err.Error()
	case errors.As(err, &state):
		return "InvalidMarketState: " + err.Error()
	default:
		return err.Error()
	}
}
