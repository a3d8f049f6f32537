package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// Config is the full bot configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Feed    FeedConfig    `yaml:"feed"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig drives the allocation and reconciliation engine.
type EngineConfig struct {
	MonitorPeriodSeconds int  `yaml:"monitor_period_seconds"`
	WarmupSeconds        int  `yaml:"warmup_seconds"`
	DryRun               bool `yaml:"dry_run"`
	// ReplaceMode picks how resting orders are swapped for the new set:
	// "all" cancels everything before placing anything (widest exposure
	// window), "market" cancels and replaces one market at a time.
	ReplaceMode string `yaml:"replace_mode"`

	PriceTolerance    float64 `yaml:"price_tolerance"`
	AmountTolerance   float64 `yaml:"amount_tolerance"`
	ReserveTolerance  float64 `yaml:"reserve_tolerance"`
	ReserveThreshold  float64 `yaml:"reserve_threshold"`
	ReferenceCurrency string  `yaml:"reference_currency"`

	// MarketAllocations maps "MARKET_BASE" -> currency -> percent (0-1].
	MarketAllocations map[string]map[string]float64 `yaml:"market_allocations"`
	// CurrencyReserves maps currency -> amount that stays untouched.
	CurrencyReserves map[string]float64 `yaml:"currency_reserves"`
	// Intervals maps slippage (as a decimal string key) -> ratio per side.
	Intervals IntervalsConfig `yaml:"intervals"`
}

// IntervalsConfig is the raw slippage -> ratio mapping per order side.
type IntervalsConfig struct {
	Buy  map[string]float64 `yaml:"buy"`
	Sell map[string]float64 `yaml:"sell"`
}

// FeedConfig controls the market data collector.
type FeedConfig struct {
	UpdatePeriodSeconds int      `yaml:"update_period_seconds"`
	Sources             []string `yaml:"sources"` // qtrade | bittrex
}

// APIConfig holds the exchange endpoint and credentials location.
type APIConfig struct {
	Endpoint string `yaml:"endpoint"`
	// Keyfile is a file containing "keyID:secret". The LPBOT_HMAC_KEY
	// environment variable takes precedence when set.
	Keyfile string `yaml:"keyfile"`
}

// StorageConfig controls where state is persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // path to the SQLite file, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config and the .env file if present, applies env
// overrides and defaults, and validates. Invalid configuration is fatal
// here, before the control loop ever starts.
func Load(path string) (*Config, error) {
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
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configuration the engine must never run with.
func (c *Config) Validate() error {
	e := &c.Engine
	if e.MonitorPeriodSeconds <= 0 {
		return fmt.Errorf("engine.monitor_period_seconds must be > 0")
	}
	if e.ReplaceMode != "all" && e.ReplaceMode != "market" {
		return fmt.Errorf("engine.replace_mode must be \"all\" or \"market\", got %q", e.ReplaceMode)
	}
	if e.PriceTolerance < 0 || e.AmountTolerance < 0 || e.ReserveTolerance < 0 || e.ReserveThreshold < 0 {
		return fmt.Errorf("tolerances must be >= 0")
	}
	if e.ReserveThreshold > 0 && e.ReferenceCurrency == "" {
		return fmt.Errorf("engine.reference_currency is required with reserve_threshold")
	}

	if len(e.MarketAllocations) == 0 {
		return fmt.Errorf("engine.market_allocations is empty")
	}
	for market, percents := range e.MarketAllocations {
		mc, bc, err := domain.SplitMarket(market)
		if err != nil {
			return err
		}
		for _, cur := range []string{mc, bc} {
			pct, ok := percents[cur]
			if !ok {
				return fmt.Errorf("market %s: missing allocation percent for %s", market, cur)
			}
			if pct <= 0 || pct > 1 {
				return fmt.Errorf("market %s: allocation percent for %s must be in (0,1], got %v", market, cur, pct)
			}
			if _, ok := e.CurrencyReserves[cur]; !ok {
				return fmt.Errorf("market %s: no reserve configured for %s", market, cur)
			}
		}
	}
	for cur, reserve := range e.CurrencyReserves {
		if reserve < 0 {
			return fmt.Errorf("currency_reserves.%s must be >= 0", cur)
		}
	}

	for side, levels := range map[string]map[string]float64{"buy": e.Intervals.Buy, "sell": e.Intervals.Sell} {
		if len(levels) == 0 {
			return fmt.Errorf("intervals.%s is empty", side)
		}
		sum := 0.0
		for slip, ratio := range levels {
			s, err := decimal.NewFromString(slip)
			if err != nil {
				return fmt.Errorf("intervals.%s: bad slippage key %q: %w", side, slip, err)
			}
			// zero slippage would cross the touch and fill as a taker
			if !s.IsPositive() {
				return fmt.Errorf("intervals.%s: slippage must be > 0, got %s", side, slip)
			}
			if ratio < 0 {
				return fmt.Errorf("intervals.%s[%s]: ratio must be >= 0, got %v", side, slip, ratio)
			}
			sum += ratio
		}
		if sum > 1 {
			return fmt.Errorf("intervals.%s: ratios sum to %v, must be <= 1", side, sum)
		}
	}

	for _, src := range c.Feed.Sources {
		if src != "qtrade" && src != "bittrex" {
			return fmt.Errorf("feed.sources: unknown source %q", src)
		}
	}
	return nil
}

// MonitorPeriod returns the control-loop period as a time.Duration.
func (c *Config) MonitorPeriod() time.Duration {
	return time.Duration(c.Engine.MonitorPeriodSeconds) * time.Second
}

// WarmupPeriod returns how long the loop waits for the feed before its
// first cycle.
func (c *Config) WarmupPeriod() time.Duration {
	return time.Duration(c.Engine.WarmupSeconds) * time.Second
}

// FeedPeriod returns the collector's update period.
func (c *Config) FeedPeriod() time.Duration {
	return time.Duration(c.Feed.UpdatePeriodSeconds) * time.Second
}

// AllocationConfig converts the raw allocation maps to decimal form.
func (c *Config) AllocationConfig() domain.AllocationConfig {
	out := domain.AllocationConfig{
		Markets:  make(map[string]map[string]decimal.Decimal, len(c.Engine.MarketAllocations)),
		Reserves: make(map[string]decimal.Decimal, len(c.Engine.CurrencyReserves)),
	}
	for market, percents := range c.Engine.MarketAllocations {
		m := make(map[string]decimal.Decimal, len(percents))
		for cur, pct := range percents {
			m[cur] = decimal.NewFromFloat(pct)
		}
		out.Markets[market] = m
	}
	for cur, reserve := range c.Engine.CurrencyReserves {
		out.Reserves[cur] = decimal.NewFromFloat(reserve)
	}
	return out
}

// IntervalConfig converts the raw interval maps to sorted decimal levels.
// Level order is slippage ascending so indexes stay stable across cycles.
func (c *Config) IntervalConfig() domain.Intervals {
	return domain.Intervals{
		Buy:  sortedLevels(c.Engine.Intervals.Buy),
		Sell: sortedLevels(c.Engine.Intervals.Sell),
	}
}

// ToleranceConfig converts the tolerance surface to decimal form.
func (c *Config) ToleranceConfig() domain.Tolerances {
	return domain.Tolerances{
		Price:             decimal.NewFromFloat(c.Engine.PriceTolerance),
		Amount:            decimal.NewFromFloat(c.Engine.AmountTolerance),
		Reserve:           decimal.NewFromFloat(c.Engine.ReserveTolerance),
		ReserveThreshold:  decimal.NewFromFloat(c.Engine.ReserveThreshold),
		ReferenceCurrency: c.Engine.ReferenceCurrency,
	}
}

func sortedLevels(raw map[string]float64) []domain.IntervalLevel {
	levels := make([]domain.IntervalLevel, 0, len(raw))
	for slip, ratio := range raw {
		s, err := decimal.NewFromString(slip)
		if err != nil {
			continue // Validate already rejected malformed keys
		}
		levels = append(levels, domain.IntervalLevel{Slippage: s, Ratio: decimal.NewFromFloat(ratio)})
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Slippage.LessThan(levels[j].Slippage)
	})
	return levels
}

// applyEnvOverrides overrides config values from the environment.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LPBOT_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}
	if v := os.Getenv("LPBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults fills in sensible values for anything left unset.
func setDefaults(cfg *Config) {
	if cfg.Engine.MonitorPeriodSeconds <= 0 {
		cfg.Engine.MonitorPeriodSeconds = 60
	}
	if cfg.Engine.WarmupSeconds < 0 {
		cfg.Engine.WarmupSeconds = 0
	}
	if cfg.Engine.ReplaceMode == "" {
		cfg.Engine.ReplaceMode = "all"
	}
	if cfg.Engine.ReferenceCurrency == "" {
		cfg.Engine.ReferenceCurrency = "BTC"
	}
	if cfg.Feed.UpdatePeriodSeconds <= 0 {
		cfg.Feed.UpdatePeriodSeconds = 2
	}
	if len(cfg.Feed.Sources) == 0 {
		cfg.Feed.Sources = []string{"qtrade"}
	}
	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = "https://api.qtrade.io"
	}
	if cfg.API.Keyfile == "" {
		cfg.API.Keyfile = "lpbot_hmac.txt"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "lpbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
