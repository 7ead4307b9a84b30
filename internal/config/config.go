// Package config handles application configuration using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete application configuration. It is loaded once
// at startup and passed explicitly to constructors; no component reads
// ambient global state.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Weights  WeightsConfig  `mapstructure:"weights"`
	Signals  SignalsConfig  `mapstructure:"signals"`
	Decision DecisionConfig `mapstructure:"decision"`
	Sizing   SizingConfig   `mapstructure:"sizing"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Context  ContextConfig  `mapstructure:"context"`
	Paper    PaperConfig    `mapstructure:"paper"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// EngineConfig holds run-level settings shared by backtest and paper modes.
type EngineConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	Slippage       float64 `mapstructure:"slippage"`
	Commission     float64 `mapstructure:"commission"`
}

// WeightsConfig holds the signal weight tables. Keys are signal names.
type WeightsConfig struct {
	Buy  map[string]float64 `mapstructure:"buy"`
	Sell map[string]float64 `mapstructure:"sell"`
}

// SignalsConfig holds the trigger thresholds the rule predicates use.
type SignalsConfig struct {
	RSIOversold     float64 `mapstructure:"rsi_oversold"`
	RSIOverbought   float64 `mapstructure:"rsi_overbought"`
	RSIBuyCeiling   float64 `mapstructure:"rsi_buy_ceiling"`
	RSISellFloor    float64 `mapstructure:"rsi_sell_floor"`
	NearLowPct      float64 `mapstructure:"near_low_pct"`
	NearHighPct     float64 `mapstructure:"near_high_pct"`
	VolumeSpike     float64 `mapstructure:"volume_spike"`
	VolumeFloor     float64 `mapstructure:"volume_floor"`
	ProfitTargetPct float64 `mapstructure:"profit_target_pct"`
	StopLossPct     float64 `mapstructure:"stop_loss_pct"`
}

// DecisionConfig holds combiner thresholds and blend weights.
type DecisionConfig struct {
	BuyThreshold   float64 `mapstructure:"buy_threshold"`
	SellThreshold  float64 `mapstructure:"sell_threshold"`
	ScoreCap       float64 `mapstructure:"score_cap"`
	MLWeight       float64 `mapstructure:"ml_weight"`
	RuleWeight     float64 `mapstructure:"rule_weight"`
	SentimentDelta float64 `mapstructure:"sentiment_delta"`
	SectorDelta    float64 `mapstructure:"sector_delta"`
}

// SizingConfig holds position-sizing parameters.
type SizingConfig struct {
	BaseFraction   float64 `mapstructure:"base_fraction"`
	MaxPositionPct float64 `mapstructure:"max_position_pct"`
	MinFraction    float64 `mapstructure:"min_fraction"`
	MinQuantity    int     `mapstructure:"min_quantity"`
	MaxQuantity    int     `mapstructure:"max_quantity"`
}

// RiskConfig holds exit and loss-limit parameters.
type RiskConfig struct {
	StopLossPct     float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64 `mapstructure:"take_profit_pct"`
	MaxDailyLossPct float64 `mapstructure:"max_daily_loss_pct"`
	MacroVetoBuy    bool    `mapstructure:"macro_veto_buy"`
}

// ContextConfig holds TTLs and fetch bounds for the context adjusters.
type ContextConfig struct {
	SentimentTTL  time.Duration `mapstructure:"sentiment_ttl"`
	SectorTTL     time.Duration `mapstructure:"sector_ttl"`
	MacroTTL      time.Duration `mapstructure:"macro_ttl"`
	FilterTTL     time.Duration `mapstructure:"filter_ttl"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	FetchAttempts int           `mapstructure:"fetch_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// PaperConfig holds the live/paper polling loop settings.
type PaperConfig struct {
	Symbols         []string      `mapstructure:"symbols"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	SessionOpen     string        `mapstructure:"session_open"`
	SessionClose    string        `mapstructure:"session_close"`
	Timezone        string        `mapstructure:"timezone"`
}

// JournalConfig holds the trade journal location.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	Console    bool   `mapstructure:"console"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Default returns the configuration with all default values applied.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			InitialCapital: 10000,
			Slippage:       0.001,
			Commission:     0,
		},
		Weights: WeightsConfig{
			Buy: map[string]float64{
				"RSI":              1.5,
				"BollingerLower":   1.5,
				"NearLow":          1.0,
				"VolumeSpike":      1.2,
				"MASupport":        1.0,
				"MACDUp":           1.3,
				"BullDivergence":   2.0,
				"MarketFilterPass": 1.0,
			},
			Sell: map[string]float64{
				"RSI":            1.5,
				"BollingerUpper": 1.5,
				"NearHigh":       1.0,
				"MAResistance":   1.0,
				"MACDDown":       1.3,
				"ProfitTarget":   2.0,
				"StopLoss":       3.0,
				"BearDivergence": 2.0,
			},
		},
		Signals: SignalsConfig{
			RSIOversold:     30,
			RSIOverbought:   70,
			RSIBuyCeiling:   40,
			RSISellFloor:    60,
			NearLowPct:      0.02,
			NearHighPct:     0.02,
			VolumeSpike:     1.5,
			VolumeFloor:     0.8,
			ProfitTargetPct: 0.05,
			StopLossPct:     0.03,
		},
		Decision: DecisionConfig{
			BuyThreshold:   4.5,
			SellThreshold:  4.0,
			ScoreCap:       10.0,
			MLWeight:       0.4,
			RuleWeight:     0.6,
			SentimentDelta: 2.0,
			SectorDelta:    1.0,
		},
		Sizing: SizingConfig{
			BaseFraction:   0.10,
			MaxPositionPct: 0.20,
			MinFraction:    0.01,
			MinQuantity:    1,
			MaxQuantity:    0,
		},
		Risk: RiskConfig{
			StopLossPct:     0.03,
			TakeProfitPct:   0.05,
			MaxDailyLossPct: 0.02,
			MacroVetoBuy:    true,
		},
		Context: ContextConfig{
			SentimentTTL:  time.Hour,
			SectorTTL:     6 * time.Hour,
			MacroTTL:      24 * time.Hour,
			FilterTTL:     time.Hour,
			FetchTimeout:  5 * time.Second,
			FetchAttempts: 2,
			RetryDelay:    50 * time.Millisecond,
		},
		Paper: PaperConfig{
			PollInterval:    5 * time.Minute,
			MonitorInterval: time.Minute,
			SessionOpen:     "09:30",
			SessionClose:    "16:00",
			Timezone:        "America/New_York",
		},
		Journal: JournalConfig{
			Path: DefaultConfigDir() + "/journal.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       DefaultConfigDir() + "/trader.log",
			Console:    true,
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signal-trader"
	}
	return filepath.Join(home, ".config", "signal-trader")
}

// Load reads config.toml from the given directory (or the default
// directory when empty), applies environment overrides, and validates.
// A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies TRADER_* environment variables on top of
// the file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADER_INITIAL_CAPITAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.InitialCapital = f
		}
	}
	if v := os.Getenv("TRADER_BUY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Decision.BuyThreshold = f
		}
	}
	if v := os.Getenv("TRADER_SELL_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Decision.SellThreshold = f
		}
	}
	if v := os.Getenv("TRADER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRADER_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Engine.InitialCapital <= 0 {
		return fmt.Errorf("engine.initial_capital must be positive, got %.2f", c.Engine.InitialCapital)
	}
	if c.Engine.Slippage < 0 || c.Engine.Slippage > 0.1 {
		return fmt.Errorf("engine.slippage must be in [0, 0.1], got %.4f", c.Engine.Slippage)
	}
	if c.Engine.Commission < 0 {
		return fmt.Errorf("engine.commission must not be negative, got %.4f", c.Engine.Commission)
	}
	if len(c.Weights.Buy) == 0 || len(c.Weights.Sell) == 0 {
		return fmt.Errorf("weights.buy and weights.sell must not be empty")
	}
	for name, w := range c.Weights.Buy {
		if w < 0 {
			return fmt.Errorf("weights.buy[%s] must not be negative, got %.2f", name, w)
		}
	}
	for name, w := range c.Weights.Sell {
		if w < 0 {
			return fmt.Errorf("weights.sell[%s] must not be negative, got %.2f", name, w)
		}
	}
	if c.Decision.BuyThreshold <= 0 || c.Decision.SellThreshold <= 0 {
		return fmt.Errorf("decision thresholds must be positive")
	}
	if c.Decision.ScoreCap <= 0 {
		return fmt.Errorf("decision.score_cap must be positive, got %.2f", c.Decision.ScoreCap)
	}
	if c.Decision.MLWeight < 0 || c.Decision.RuleWeight < 0 {
		return fmt.Errorf("decision blend weights must not be negative")
	}
	if s := c.Decision.MLWeight + c.Decision.RuleWeight; s < 0.999 || s > 1.001 {
		return fmt.Errorf("decision.ml_weight + decision.rule_weight must sum to 1, got %.3f", s)
	}
	if c.Sizing.BaseFraction <= 0 || c.Sizing.BaseFraction > 1 {
		return fmt.Errorf("sizing.base_fraction must be in (0, 1], got %.4f", c.Sizing.BaseFraction)
	}
	if c.Sizing.MaxPositionPct <= 0 || c.Sizing.MaxPositionPct > 1 {
		return fmt.Errorf("sizing.max_position_pct must be in (0, 1], got %.4f", c.Sizing.MaxPositionPct)
	}
	if c.Sizing.MinFraction < 0 || c.Sizing.MinFraction > c.Sizing.MaxPositionPct {
		return fmt.Errorf("sizing.min_fraction must be in [0, max_position_pct]")
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.StopLossPct >= 1 {
		return fmt.Errorf("risk.stop_loss_pct must be in (0, 1), got %.4f", c.Risk.StopLossPct)
	}
	if c.Risk.TakeProfitPct <= 0 {
		return fmt.Errorf("risk.take_profit_pct must be positive, got %.4f", c.Risk.TakeProfitPct)
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct >= 1 {
		return fmt.Errorf("risk.max_daily_loss_pct must be in (0, 1), got %.4f", c.Risk.MaxDailyLossPct)
	}
	if c.Context.FetchAttempts < 1 {
		return fmt.Errorf("context.fetch_attempts must be at least 1, got %d", c.Context.FetchAttempts)
	}
	if c.Paper.PollInterval <= 0 {
		return fmt.Errorf("paper.poll_interval must be positive")
	}
	if _, err := time.Parse("15:04", c.Paper.SessionOpen); err != nil {
		return fmt.Errorf("paper.session_open must be HH:MM, got %q", c.Paper.SessionOpen)
	}
	if _, err := time.Parse("15:04", c.Paper.SessionClose); err != nil {
		return fmt.Errorf("paper.session_close must be HH:MM, got %q", c.Paper.SessionClose)
	}
	return nil
}

// BuyWeightSum returns the sum of the BUY weight table.
func (c *Config) BuyWeightSum() float64 {
	var sum float64
	for _, w := range c.Weights.Buy {
		sum += w
	}
	return sum
}

// SellWeightSum returns the sum of the SELL weight table.
func (c *Config) SellWeightSum() float64 {
	var sum float64
	for _, w := range c.Weights.Sell {
		sum += w
	}
	return sum
}
