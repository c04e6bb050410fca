package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest  BacktestConfig  `yaml:"backtest"`
	Synthetic SyntheticConfig `yaml:"synthetic"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// BacktestConfig parametriza un run. Inmutable una vez arranca el engine.
type BacktestConfig struct {
	Start          time.Time `yaml:"start"`
	End            time.Time `yaml:"end"`
	InitialCapital float64   `yaml:"initial_capital"`

	// CommissionRate es el fee sobre fills intermedios (default 0: solo se
	// cobra el fee de resolución; la fuente original es ambigua y esto es
	// una elección de configuración, no un supuesto cableado).
	CommissionRate float64 `yaml:"commission_rate"`

	// WinnerFeeRate se aplica solo al payout de posiciones resueltas ganadoras.
	WinnerFeeRate float64 `yaml:"winner_fee_rate"`

	// SlippageBps desplaza el fill contra el trader en proporción al tamaño
	// de la orden sobre la liquidez disponible.
	SlippageBps float64 `yaml:"slippage_bps"`

	// PositionSizeLimit es el coste máximo comprometible por mercado,
	// como fracción del capital inicial.
	PositionSizeLimit float64 `yaml:"position_size_limit"`

	// MaxOpenPositions limita las posiciones abiertas simultáneas (0 = sin límite).
	MaxOpenPositions int `yaml:"max_open_positions"`

	// PeriodsPerYear fuerza la anualización del Sharpe (0 = derivar del paso
	// mediano de la curva de equity).
	PeriodsPerYear float64 `yaml:"periods_per_year"`
}

// SyntheticConfig controla el feed sintético.
type SyntheticConfig struct {
	Seed            int64   `yaml:"seed"`
	Markets         int     `yaml:"markets"`
	SnapshotsPerDay int     `yaml:"snapshots_per_day"`
	Volatility      float64 `yaml:"volatility"`
}

// StrategyConfig agrupa los umbrales de las estrategias.
type StrategyConfig struct {
	// LongshotBias
	LongshotLow    float64 `yaml:"longshot_low"`     // SELL si precio < low (default 0.15)
	LongshotHigh   float64 `yaml:"longshot_high"`    // BUY si precio > high (default 0.85)
	LongshotSizing float64 `yaml:"longshot_sizing"`  // fracción del bankroll (default 0.02)
	StopLossPct    float64 `yaml:"stop_loss_pct"`    // salida forzada (0 = desactivado)

	// Arbitraje
	IntraMinSpread float64 `yaml:"intra_min_spread"` // default 0.025 (> fee 2%)
	CrossMinSpread float64 `yaml:"cross_min_spread"` // default 0.03
	ArbFraction    float64 `yaml:"arb_fraction"`     // fracción del bankroll por Dutch book

	// TradeFraction es el tamaño por defecto de news/sentiment.
	TradeFraction float64 `yaml:"trade_fraction"`

	// NewsVelocity
	NewsBuySigma  float64 `yaml:"news_buy_sigma"`  // σ > umbral → BUY (default 0.7)
	NewsSellSigma float64 `yaml:"news_sell_sigma"` // σ < umbral → SELL (default 0.3)

	// Sentiment
	SentimentThreshold float64 `yaml:"sentiment_threshold"` // default 0.2

	// MarketMaking
	MMSpread         float64 `yaml:"mm_spread"`          // spread cotizado (default 0.04)
	MMSkewFactor     float64 `yaml:"mm_skew_factor"`     // default 0.3
	MMInventoryLimit float64 `yaml:"mm_inventory_limit"` // shares máx por mercado
	MMQuoteSize      float64 `yaml:"mm_quote_size"`      // fracción del bankroll por quote

	// Momentum
	MomentumLookback     int     `yaml:"momentum_lookback"`      // snapshots en la ventana (default 12)
	MomentumMinChange    float64 `yaml:"momentum_min_change"`    // cambio mínimo de precio (default 0.05)
	MomentumMinLiquidity float64 `yaml:"momentum_min_liquidity"` // default 5000
	MomentumReversal     float64 `yaml:"momentum_reversal"`      // pnl por share que fuerza salida (default 0.03)
	MomentumTakeProfit   float64 `yaml:"momentum_take_profit"`   // default 0.10
	MomentumMaxHold      float64 `yaml:"momentum_max_hold"`      // horas (default 4)

	// MeanReversion
	MeanRevLookback     int     `yaml:"meanrev_lookback"`      // default 20
	MeanRevEntryZ       float64 `yaml:"meanrev_entry_z"`       // |z| de entrada (default 2.0)
	MeanRevExitZ        float64 `yaml:"meanrev_exit_z"`        // |z| de salida (default 0.5)
	MeanRevStopZ        float64 `yaml:"meanrev_stop_z"`        // |z| en contra que corta (default 3.0)
	MeanRevMinVol       float64 `yaml:"meanrev_min_vol"`       // σ mínima de la ventana (default 0.02)
	MeanRevMinLiquidity float64 `yaml:"meanrev_min_liquidity"` // default 10000
	MeanRevMaxHold      float64 `yaml:"meanrev_max_hold"`      // horas (default 72)
}

// APIConfig contiene los base URLs del colaborador de datos.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controla dónde se persisten los runs.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Valida fail-fast: una config inválida nunca llega al engine.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default devuelve una configuración válida lista para tests y modo sintético.
func Default() *Config {
	cfg := &Config{
		Backtest: BacktestConfig{
			Start:          time.Now().UTC().AddDate(0, -3, 0),
			End:            time.Now().UTC(),
			InitialCapital: 10000,
		},
	}
	setDefaults(cfg)
	return cfg
}

// Validate comprueba los invariantes de la configuración.
// Cualquier violación envuelve domain.ErrConfigInvalid.
func (c *Config) Validate() error {
	bt := c.Backtest
	switch {
	case bt.End.Before(bt.Start):
		return fmt.Errorf("config.Validate: end %s before start %s: %w",
			bt.End.Format(time.RFC3339), bt.Start.Format(time.RFC3339), domain.ErrConfigInvalid)
	case bt.InitialCapital <= 0:
		return fmt.Errorf("config.Validate: initial_capital %.2f must be > 0: %w",
			bt.InitialCapital, domain.ErrConfigInvalid)
	case bt.CommissionRate < 0 || bt.WinnerFeeRate < 0 || bt.SlippageBps < 0:
		return fmt.Errorf("config.Validate: negative rates: %w", domain.ErrConfigInvalid)
	case bt.PositionSizeLimit < 0 || bt.PositionSizeLimit > 1:
		return fmt.Errorf("config.Validate: position_size_limit %.2f outside [0,1]: %w",
			bt.PositionSizeLimit, domain.ErrConfigInvalid)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("POLYSIM_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	bt := &cfg.Backtest
	if bt.WinnerFeeRate == 0 {
		bt.WinnerFeeRate = 0.02 // fee de liquidación del 2% sobre el payout ganador
	}
	if bt.PositionSizeLimit == 0 {
		bt.PositionSizeLimit = 0.10
	}

	syn := &cfg.Synthetic
	if syn.Markets <= 0 {
		syn.Markets = 25
	}
	if syn.SnapshotsPerDay <= 0 {
		syn.SnapshotsPerDay = 4
	}
	if syn.Volatility <= 0 {
		syn.Volatility = 0.03
	}

	st := &cfg.Strategy
	if st.LongshotLow == 0 {
		st.LongshotLow = 0.15
	}
	if st.LongshotHigh == 0 {
		st.LongshotHigh = 0.85
	}
	if st.LongshotSizing == 0 {
		st.LongshotSizing = 0.02
	}
	if st.IntraMinSpread == 0 {
		st.IntraMinSpread = 0.025
	}
	if st.CrossMinSpread == 0 {
		st.CrossMinSpread = 0.03
	}
	if st.ArbFraction == 0 {
		st.ArbFraction = 0.05
	}
	if st.TradeFraction == 0 {
		st.TradeFraction = 0.02
	}
	if st.NewsBuySigma == 0 {
		st.NewsBuySigma = 0.7
	}
	if st.NewsSellSigma == 0 {
		st.NewsSellSigma = 0.3
	}
	if st.SentimentThreshold == 0 {
		st.SentimentThreshold = 0.2
	}
	if st.MMSpread == 0 {
		st.MMSpread = 0.04
	}
	if st.MMSkewFactor == 0 {
		st.MMSkewFactor = 0.3
	}
	if st.MMInventoryLimit == 0 {
		st.MMInventoryLimit = 500
	}
	if st.MMQuoteSize == 0 {
		st.MMQuoteSize = 0.02
	}
	if st.MomentumLookback == 0 {
		st.MomentumLookback = 12
	}
	if st.MomentumMinChange == 0 {
		st.MomentumMinChange = 0.05
	}
	if st.MomentumMinLiquidity == 0 {
		st.MomentumMinLiquidity = 5000
	}
	if st.MomentumReversal == 0 {
		st.MomentumReversal = 0.03
	}
	if st.MomentumTakeProfit == 0 {
		st.MomentumTakeProfit = 0.10
	}
	if st.MomentumMaxHold == 0 {
		st.MomentumMaxHold = 4
	}
	if st.MeanRevLookback == 0 {
		st.MeanRevLookback = 20
	}
	if st.MeanRevEntryZ == 0 {
		st.MeanRevEntryZ = 2.0
	}
	if st.MeanRevExitZ == 0 {
		st.MeanRevExitZ = 0.5
	}
	if st.MeanRevStopZ == 0 {
		st.MeanRevStopZ = 3.0
	}
	if st.MeanRevMinVol == 0 {
		st.MeanRevMinVol = 0.02
	}
	if st.MeanRevMinLiquidity == 0 {
		st.MeanRevMinLiquidity = 10000
	}
	if st.MeanRevMaxHold == 0 {
		st.MeanRevMaxHold = 72
	}

	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polysim.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
