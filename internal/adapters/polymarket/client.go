package polymarket

// client.go — acceso read-only a las APIs públicas de Polymarket.
// Solo GETs: metadata de mercados (Gamma) y series de precios (CLOB)
// para alimentar el feed histórico. Nunca firma ni envía órdenes.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits al 60% de los documentados:
	// CLOB general 9000/10s, Gamma /markets 300/10s.
	clobRatePerSec  = 540
	gammaRatePerSec = 18

	maxAttempts   = 4
	baseRetryWait = 500 * time.Millisecond
)

// Client descarga mercados e historiales de precios con rate limiting y
// reintentos. Seguro para uso concurrente.
type Client struct {
	http         *http.Client
	clobBase     string
	gammaBase    string
	clobLimiter  *rate.Limiter
	gammaLimiter *rate.Limiter
}

// NewClient crea un Client contra los base URLs dados (vacío = producción).
func NewClient(clobBase, gammaBase string) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	return &Client{
		// Las descargas de historial son bulk, de ahí el timeout generoso.
		http:         &http.Client{Timeout: 30 * time.Second},
		clobBase:     clobBase,
		gammaBase:    gammaBase,
		clobLimiter:  rate.NewLimiter(clobRatePerSec, 50),
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
	}
}

// getJSON hace un GET con rate limiting, reintenta 429 y 5xx con backoff
// exponencial, y decodifica el body en out.
func (c *Client) getJSON(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := baseRetryWait << (attempt - 1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("polymarket: rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("polymarket: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			slog.Debug("retrying request",
				"url", url,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
			continue
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("polymarket: GET %s: status %d: %s", url, resp.StatusCode, body)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("polymarket: decode %s: %w", url, err)
		}
		return nil
	}
	return fmt.Errorf("polymarket: GET %s: giving up after %d attempts: %w", url, maxAttempts, lastErr)
}
