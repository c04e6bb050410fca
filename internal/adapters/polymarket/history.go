package polymarket

// history.go — descarga de historiales de precios del CLOB.
//
// Implementa ports.HistoryProvider: por cada mercado se resuelven sus tokens
// y se baja la serie de precios de cada outcome, que mapping.go fusiona en
// records listos para el feed histórico.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// fidelityMinutes es la resolución de la serie pedida al CLOB.
const fidelityMinutes = 60

// FetchHistory descarga el historial de precios de los mercados dados en el
// rango [from, to], fusionado por timestamp y ordenado.
func (c *Client) FetchHistory(ctx context.Context, marketIDs []string, from, to time.Time) ([]domain.HistoryRecord, error) {
	var records []domain.HistoryRecord
	for _, conditionID := range marketIDs {
		mkt, err := c.fetchMarket(ctx, conditionID)
		if err != nil {
			return nil, fmt.Errorf("polymarket.FetchHistory: market %s: %w", conditionID, err)
		}

		series := make(map[string][]pricePoint, len(mkt.Tokens))
		for _, token := range mkt.Tokens {
			points, err := c.fetchPriceSeries(ctx, token.TokenID, from, to)
			if err != nil {
				return nil, fmt.Errorf("polymarket.FetchHistory: series %s/%s: %w",
					conditionID, token.Outcome, err)
			}
			series[token.Outcome] = points
		}

		recs := mapHistoryRecords(mkt, series)
		slog.Debug("history fetched",
			"condition_id", conditionID,
			"outcomes", len(series),
			"records", len(recs),
		)
		records = append(records, recs...)
	}
	return records, nil
}

// fetchMarket obtiene la metadata del mercado (tokens incluidos) del CLOB.
func (c *Client) fetchMarket(ctx context.Context, conditionID string) (clobMarketResponse, error) {
	var out clobMarketResponse
	endpoint := fmt.Sprintf("%s/markets/%s", c.clobBase, url.PathEscape(conditionID))
	if err := c.getJSON(ctx, c.clobLimiter, endpoint, &out); err != nil {
		return clobMarketResponse{}, err
	}
	if len(out.Tokens) == 0 {
		return clobMarketResponse{}, fmt.Errorf("market has no tokens")
	}
	return out, nil
}

// fetchPriceSeries baja la serie de precios de un token en el rango dado.
func (c *Client) fetchPriceSeries(ctx context.Context, tokenID string, from, to time.Time) ([]pricePoint, error) {
	q := url.Values{}
	q.Set("market", tokenID)
	q.Set("startTs", fmt.Sprintf("%d", from.Unix()))
	q.Set("endTs", fmt.Sprintf("%d", to.Unix()))
	q.Set("fidelity", fmt.Sprintf("%d", fidelityMinutes))

	var out pricesHistoryResponse
	endpoint := fmt.Sprintf("%s/prices-history?%s", c.clobBase, q.Encode())
	if err := c.getJSON(ctx, c.clobLimiter, endpoint, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}
