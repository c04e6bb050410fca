package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polysim/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
backtest:
  start: 2024-01-01T00:00:00Z
  end: 2024-03-01T00:00:00Z
  initial_capital: 5000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.02, cfg.Backtest.WinnerFeeRate)
	assert.Equal(t, 0.0, cfg.Backtest.CommissionRate) // fills intermedios sin fee por defecto
	assert.Equal(t, 0.15, cfg.Strategy.LongshotLow)
	assert.Equal(t, 0.85, cfg.Strategy.LongshotHigh)
	assert.Equal(t, 0.025, cfg.Strategy.IntraMinSpread)
	assert.Equal(t, 0.03, cfg.Strategy.CrossMinSpread)
	assert.Equal(t, 12, cfg.Strategy.MomentumLookback)
	assert.Equal(t, 20, cfg.Strategy.MeanRevLookback)
	assert.Equal(t, 2.0, cfg.Strategy.MeanRevEntryZ)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "polysim.db", cfg.Storage.DSN)
}

func TestLoad_InvalidRange(t *testing.T) {
	path := writeConfig(t, `
backtest:
  start: 2024-03-01T00:00:00Z
  end: 2024-01-01T00:00:00Z
  initial_capital: 5000
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestLoad_NonPositiveCapital(t *testing.T) {
	path := writeConfig(t, `
backtest:
  start: 2024-01-01T00:00:00Z
  end: 2024-03-01T00:00:00Z
  initial_capital: 0
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestValidate_PositionSizeLimitRange(t *testing.T) {
	cfg := Default()
	cfg.Backtest.PositionSizeLimit = 1.5
	assert.ErrorIs(t, cfg.Validate(), domain.ErrConfigInvalid)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Backtest.End.After(cfg.Backtest.Start))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POLYSIM_DSN", ":memory:")

	path := writeConfig(t, `
backtest:
  start: 2024-01-01T00:00:00Z
  end: 2024-03-01T00:00:00Z
  initial_capital: 1000
log:
  level: info
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
}

func TestValidate_StartEqualsEnd(t *testing.T) {
	cfg := Default()
	now := time.Now().UTC()
	cfg.Backtest.Start = now
	cfg.Backtest.End = now
	assert.NoError(t, cfg.Validate())
}
