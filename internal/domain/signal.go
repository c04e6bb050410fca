package domain

// SignalType es el conjunto cerrado de acciones que puede emitir una estrategia.
type SignalType int

const (
	SignalHold SignalType = iota
	SignalBuy
	SignalSell
	SignalBuyAll  // comprar todos los outcomes del mercado (Dutch book, Σ < 1)
	SignalSellAll // vender todos los outcomes del mercado (Σ > 1)
	SignalQuote   // cotización bid/ask de market making
)

func (t SignalType) String() string {
	switch t {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	case SignalBuyAll:
		return "BUY_ALL"
	case SignalSellAll:
		return "SELL_ALL"
	case SignalQuote:
		return "QUOTE"
	default:
		return "HOLD"
	}
}

// SignalLeg es una pata de una señal multi-leg (arbitraje cross-venue).
type SignalLeg struct {
	Venue   string
	Outcome string
	Type    SignalType // SignalBuy o SignalSell
	Price   float64    // precio cotizado en el venue
}

// Signal es la decisión de una estrategia para un snapshot.
// Fraction es el tamaño objetivo como fracción del bankroll actual;
// el executor lo traduce a shares al precio de fill.
type Signal struct {
	Type     SignalType
	Outcome  string  // token objetivo (vacío en HOLD, BUY_ALL y SELL_ALL)
	Fraction float64 // fracción del bankroll a comprometer

	// Limit es el precio objetivo/límite de la señal (0 = a mercado).
	Limit float64

	// Confidence ∈ [0,1], informativo: fuerza de la señal según la estrategia.
	Confidence float64

	// Bid/Ask solo para SignalQuote.
	Bid float64
	Ask float64

	// Legs solo para señales pareadas cross-venue (BUY low / SELL high).
	Legs []SignalLeg

	// Reason es una etiqueta corta para el trade log ("longshot buy", "dutch book"…).
	Reason string
}

// Hold es la señal nula.
func Hold() Signal { return Signal{Type: SignalHold} }

// IsHold devuelve true si la señal no pide ninguna acción.
func (s Signal) IsHold() bool { return s.Type == SignalHold }
