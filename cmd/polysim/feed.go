package main

// feed.go — selección de la fuente de datos del backtest.
//
// Por defecto el feed es sintético (reproducible por seed). Con -json-data se
// reproduce un historial local, y con -fetch se descarga el historial real de
// Polymarket una sola vez y se reutiliza en todos los runs.

import (
	"context"
	"fmt"
	"strings"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/adapters/history"
	"github.com/alejandrodnm/polysim/internal/adapters/polymarket"
	"github.com/alejandrodnm/polysim/internal/application/backtest"
	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/feed"
	"github.com/alejandrodnm/polysim/internal/ports"
)

// buildFeedFactory devuelve la factory de feeds para el modo elegido.
// Los historiales (fichero o API) se cargan una vez; cada run del sweep
// recibe su propio iterador sobre los mismos records.
func buildFeedFactory(ctx context.Context, cfg *config.Config, jsonPath, fetchIDs string) (backtest.FeedFactory, error) {
	switch {
	case jsonPath != "":
		provider := history.NewJSONFile(jsonPath)
		records, err := provider.FetchHistory(ctx, nil, cfg.Backtest.Start, cfg.Backtest.End)
		if err != nil {
			return nil, fmt.Errorf("load history file: %w", err)
		}
		return historicalFactory(records, nil), nil

	case fetchIDs != "":
		client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)
		ids := splitIDs(fetchIDs)
		if len(ids) == 1 && ids[0] == "recent" {
			var err error
			ids, err = client.ListResolvedMarkets(ctx, cfg.Backtest.Start, cfg.Backtest.End, 20)
			if err != nil {
				return nil, fmt.Errorf("discover markets: %w", err)
			}
			if len(ids) == 0 {
				return nil, fmt.Errorf("discover markets: no resolved markets in range")
			}
		}
		records, err := client.FetchHistory(ctx, ids, cfg.Backtest.Start, cfg.Backtest.End)
		if err != nil {
			return nil, fmt.Errorf("fetch history: %w", err)
		}
		return historicalFactory(records, ids), nil

	default:
		return func(c *config.Config) (ports.SnapshotFeed, error) {
			return feed.NewSyntheticFeed(c.Synthetic, c.Backtest), nil
		}, nil
	}
}

// historicalFactory valida contra el rango configurado: un run sin datos (o
// con mercados pedidos ausentes) falla en la construcción del feed, no al
// final con un resultado vacío.
func historicalFactory(records []domain.HistoryRecord, markets []string) backtest.FeedFactory {
	return func(c *config.Config) (ports.SnapshotFeed, error) {
		return feed.NewHistoricalFeed(records, markets, c.Backtest.Start, c.Backtest.End, 0)
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
