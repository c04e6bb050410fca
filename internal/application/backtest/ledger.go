package backtest

// ledger.go — propietario exclusivo del cash y las posiciones.
//
// Invariante de solvencia: en todo momento
//
//	equity = cash + Σ mark_to_market(posiciones abiertas)
//
// y cash ≥ 0 después de cualquier fill. Cualquier mutación que lo violaría
// se rechaza con el error tipado correspondiente; el ledger nunca clippea
// órdenes en silencio.

import (
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// Ledger mantiene cash, posiciones, P&L realizado y la curva de equity.
// No es seguro para uso concurrente: cada run posee su propio Ledger, así que
// no hay locking que pagar.
type Ledger struct {
	cash      float64
	positions map[string]domain.Position
	realized  float64

	// lastPrices guarda el último precio observado por mercado/outcome,
	// para mark-to-market. Si nunca se observó, se usa el precio de entrada.
	lastPrices map[string]map[string]float64

	curve  []domain.EquityPoint
	frozen bool
}

// ResolutionFill describe la liquidación de una posición al resolverse el mercado.
type ResolutionFill struct {
	Position    domain.Position
	SettlePrice float64 // 1 si ganó, 0 si perdió
	Payout      float64 // USDC devueltos al cash (antes de fee)
	Fee         float64 // fee del 2% solo sobre payouts ganadores
	RealizedPnL float64
}

// NewLedger crea un ledger con el capital inicial dado.
func NewLedger(initialCapital float64) *Ledger {
	return &Ledger{
		cash:       initialCapital,
		positions:  make(map[string]domain.Position),
		lastPrices: make(map[string]map[string]float64),
	}
}

// Cash devuelve el cash disponible.
func (l *Ledger) Cash() float64 { return l.cash }

// RealizedPnL devuelve el P&L realizado acumulado.
func (l *Ledger) RealizedPnL() float64 { return l.realized }

// Equity devuelve cash + mark-to-market de todas las posiciones abiertas.
func (l *Ledger) Equity() float64 {
	eq := l.cash
	for _, pos := range l.positions {
		eq += pos.MarkToMarket(l.markPrice(pos))
	}
	return eq
}

// markPrice devuelve el último precio observado del outcome, o el de entrada.
func (l *Ledger) markPrice(pos domain.Position) float64 {
	if prices, ok := l.lastPrices[pos.MarketID]; ok {
		if p, ok := prices[pos.Outcome]; ok {
			return p
		}
	}
	return pos.EntryPrice
}

// OpenOrIncrease abre una posición nueva o promedia sobre la existente.
// cost es el débito total de cash (fill × size + fee). Rechaza el fill entero
// si dejaría el cash en negativo.
func (l *Ledger) OpenOrIncrease(pos domain.Position, cost float64) error {
	if l.frozen {
		return fmt.Errorf("ledger.OpenOrIncrease: ledger is frozen")
	}
	if cost > l.cash {
		return &domain.InsufficientFundsError{Cash: l.cash, Required: cost}
	}

	key := pos.Key()
	if existing, ok := l.positions[key]; ok {
		// Promediar entrada ponderado por shares.
		total := existing.Size + pos.Size
		existing.EntryPrice = (existing.EntryPrice*existing.Size + pos.EntryPrice*pos.Size) / total
		existing.Size = total
		l.positions[key] = existing
	} else {
		pos.Status = domain.PositionOpen
		l.positions[key] = pos
	}

	l.cash -= cost
	return nil
}

// OpenSet abre atómicamente una posición por outcome (Dutch book BUY_ALL):
// se valida el coste total antes de mutar nada.
func (l *Ledger) OpenSet(positions []domain.Position, totalCost float64) error {
	if l.frozen {
		return fmt.Errorf("ledger.OpenSet: ledger is frozen")
	}
	if totalCost > l.cash {
		return &domain.InsufficientFundsError{Cash: l.cash, Required: totalCost}
	}
	for _, pos := range positions {
		cost := pos.CostBasis()
		if err := l.OpenOrIncrease(pos, cost); err != nil {
			return err
		}
	}
	// Descontar el resto del fee (totalCost − Σ costes base) si lo hay.
	if extra := totalCost - setCost(positions); extra > 0 {
		l.cash -= extra
	}
	return nil
}

func setCost(positions []domain.Position) float64 {
	var sum float64
	for _, p := range positions {
		sum += p.CostBasis()
	}
	return sum
}

// MintSell implementa la venta del set completo (SELL_ALL): mintear el set por
// $1 × shares y venderlo por Σprecios × shares. Necesita el coste del mint en
// cash por delante.
func (l *Ledger) MintSell(shares, proceeds, fee float64) error {
	if l.frozen {
		return fmt.Errorf("ledger.MintSell: ledger is frozen")
	}
	mintCost := shares // $1 por set
	if mintCost > l.cash {
		return &domain.InsufficientFundsError{Cash: l.cash, Required: mintCost}
	}
	pnl := proceeds - mintCost - fee
	l.cash += pnl
	l.realized += pnl
	return nil
}

// Close cierra (total o parcialmente) la posición y realiza el P&L.
// P&L = (exit − entry) × shares × signo(side); el cash recibe el valor de
// salida menos el fee. Devuelve el P&L realizado.
func (l *Ledger) Close(key string, exitPrice, shares, fee float64) (float64, error) {
	if l.frozen {
		return 0, fmt.Errorf("ledger.Close: ledger is frozen")
	}
	pos, ok := l.positions[key]
	if !ok || pos.Status != domain.PositionOpen {
		return 0, &domain.InvalidMarketStateError{MarketID: key, Detail: "no open position"}
	}
	if shares <= 0 || shares > pos.Size {
		shares = pos.Size
	}

	pnl := (exitPrice - pos.EntryPrice) * shares * pos.Side.Sign()

	// Valor devuelto al cash: para longs el valor de venta, para shorts el
	// colateral liberado más el P&L, (1 − exit) × shares. Con exit ≤ 1 nunca
	// es negativo: la pérdida del short está acotada por su colateral.
	var credit float64
	if pos.Side == domain.SideShort {
		credit = (1 - exitPrice) * shares
	} else {
		credit = exitPrice * shares
	}
	credit -= fee
	pnl -= fee

	if pos.Size-shares > 1e-12 {
		pos.Size -= shares
		l.positions[key] = pos
	} else {
		pos.Status = domain.PositionClosed
		delete(l.positions, key)
	}

	l.cash += credit
	l.realized += pnl
	return pnl, nil
}

// Resolve liquida todas las posiciones abiertas del mercado al resolverse:
// el outcome ganador paga $1 por share (menos el fee del ganador sobre el
// payout), el resto paga $0. Las posiciones pasan a RESOLVED y el mercado
// queda fuera de consideración.
func (l *Ledger) Resolve(marketID, winningOutcome string, winnerFeeRate float64) []ResolutionFill {
	if l.frozen {
		return nil
	}
	// Orden estable de liquidación: los maps de Go no garantizan orden y el
	// resultado tiene que ser byte-idéntico entre runs.
	keys := make([]string, 0, len(l.positions))
	for key, pos := range l.positions {
		if pos.MarketID == marketID {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var fills []ResolutionFill
	for _, key := range keys {
		pos := l.positions[key]

		settle := 0.0
		if pos.Outcome == winningOutcome {
			settle = 1.0
		}

		var payout, fee float64
		if pos.Side == domain.SideShort {
			// El colateral cubre exactamente el peor caso: payout 0 si el
			// outcome shorteado gana, el colateral completo si pierde.
			payout = (1 - settle) * pos.Size
		} else {
			payout = settle * pos.Size
			if settle == 1.0 {
				// Fee del 2% solo sobre el payout ganador.
				fee = winnerFeeRate * payout
			}
		}

		pnl := pos.RealizedPnL(settle) - fee

		l.cash += payout - fee
		l.realized += pnl

		pos.Status = domain.PositionResolved
		delete(l.positions, key)

		fills = append(fills, ResolutionFill{
			Position:    pos,
			SettlePrice: settle,
			Payout:      payout,
			Fee:         fee,
			RealizedPnL: pnl,
		})
	}
	return fills
}

// ObservePrices actualiza los últimos precios vistos para mark-to-market.
func (l *Ledger) ObservePrices(snap domain.MarketSnapshot) {
	if len(snap.Prices) == 0 {
		return
	}
	prices, ok := l.lastPrices[snap.MarketID]
	if !ok {
		prices = make(map[string]float64, len(snap.Prices))
		l.lastPrices[snap.MarketID] = prices
	}
	for outcome, p := range snap.Prices {
		prices[outcome] = p
	}
}

// MarkEquity registra un punto (timestamp, equity) en la curva.
// Se llama exactamente una vez por paso del engine.
func (l *Ledger) MarkEquity(ts time.Time) {
	l.curve = append(l.curve, domain.EquityPoint{Timestamp: ts, Equity: l.Equity()})
}

// Curve devuelve la curva de equity acumulada.
func (l *Ledger) Curve() []domain.EquityPoint { return l.curve }

// Freeze congela el ledger: ninguna mutación posterior es válida.
func (l *Ledger) Freeze() { l.frozen = true }

// State devuelve una copia del estado del portfolio (posiciones incluidas).
func (l *Ledger) State() domain.PortfolioState {
	positions := make(map[string]domain.Position, len(l.positions))
	for k, v := range l.positions {
		positions[k] = v
	}
	return domain.PortfolioState{
		Cash:        l.cash,
		Positions:   positions,
		RealizedPnL: l.realized,
		Equity:      l.Equity(),
	}
}

// Position devuelve la posición abierta bajo la clave dada, si existe.
func (l *Ledger) Position(key string) (domain.Position, bool) {
	pos, ok := l.positions[key]
	return pos, ok
}

// MarketExposure devuelve el coste comprometido en un mercado.
func (l *Ledger) MarketExposure(marketID string) float64 {
	var exp float64
	for _, pos := range l.positions {
		if pos.MarketID == marketID {
			exp += pos.CostBasis()
		}
	}
	return exp
}

// OpenPositions devuelve el número de posiciones abiertas.
func (l *Ledger) OpenPositions() int { return len(l.positions) }
