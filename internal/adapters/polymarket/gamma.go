package polymarket

// gamma.go — descubrimiento de mercados vía la Gamma API.

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// gammaMarket es la respuesta (parcial) de GET /markets en Gamma.
type gammaMarket struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
	Closed      bool   `json:"closed"`
	EndDate     string `json:"endDate"`
}

// ListResolvedMarkets devuelve condition IDs de mercados ya cerrados cuyo
// endDate cae en [from, to], hasta limit. Permite backtests sobre historia
// real sin conocer los IDs de antemano.
func (c *Client) ListResolvedMarkets(ctx context.Context, from, to time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	q.Set("closed", "true")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "endDate")
	q.Set("ascending", "false")
	q.Set("end_date_min", from.UTC().Format(time.RFC3339))
	q.Set("end_date_max", to.UTC().Format(time.RFC3339))

	var markets []gammaMarket
	endpoint := fmt.Sprintf("%s/markets?%s", c.gammaBase, q.Encode())
	if err := c.getJSON(ctx, c.gammaLimiter, endpoint, &markets); err != nil {
		return nil, fmt.Errorf("polymarket.ListResolvedMarkets: %w", err)
	}

	ids := make([]string, 0, len(markets))
	for _, m := range markets {
		if m.ConditionID != "" {
			ids = append(ids, m.ConditionID)
		}
	}
	return ids, nil
}
