package polymarket

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- CLOB API ---

// clobMarketResponse es la respuesta de GET /markets/{condition_id}.
type clobMarketResponse struct {
	ConditionID string      `json:"condition_id"`
	Question    string      `json:"question"`
	Tokens      []clobToken `json:"tokens"`
	Active      bool        `json:"active"`
	Closed      bool        `json:"closed"`
	EndDateISO  string      `json:"end_date_iso"`
}

// clobToken representa un token (YES/NO) en el CLOB.
type clobToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// pricesHistoryResponse es la respuesta de GET /prices-history.
type pricesHistoryResponse struct {
	History []pricePoint `json:"history"`
}

// pricePoint es un punto de la serie: epoch seconds y precio.
type pricePoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}
