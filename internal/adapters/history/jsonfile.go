package history

// jsonfile.go — carga de historiales desde ficheros JSON locales.
//
// El formato es un array de records con el mismo shape que produce el client
// de Polymarket, así que un historial descargado una vez puede re-backtestearse
// offline sin tocar la red.

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// JSONFile implementa ports.HistoryProvider leyendo un fichero local.
type JSONFile struct {
	path string
}

// NewJSONFile crea un provider sobre el fichero dado. El fichero se lee en
// cada FetchHistory; no se cachea nada.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// FetchHistory devuelve los records del fichero filtrados por mercado y rango.
// Con marketIDs vacío devuelve todos los mercados del fichero.
func (j *JSONFile) FetchHistory(ctx context.Context, marketIDs []string, from, to time.Time) ([]domain.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(j.path)
	if err != nil {
		return nil, fmt.Errorf("history.FetchHistory: read %q: %w", j.path, err)
	}

	var records []domain.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("history.FetchHistory: parse %q: %w", j.path, err)
	}

	wanted := make(map[string]bool, len(marketIDs))
	for _, id := range marketIDs {
		wanted[id] = true
	}

	var out []domain.HistoryRecord
	for i, rec := range records {
		if rec.MarketID == "" || rec.Timestamp.IsZero() {
			return nil, fmt.Errorf("history.FetchHistory: record %d: missing market_id or timestamp", i)
		}
		if len(wanted) > 0 && !wanted[rec.MarketID] {
			continue
		}
		if !from.IsZero() && rec.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && rec.Timestamp.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
