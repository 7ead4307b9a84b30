package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 9.5, cfg.BuyWeightSum(), 1e-9)
	assert.InDelta(t, 13.3, cfg.SellWeightSum(), 1e-9)
	assert.InDelta(t, 4.5, cfg.Decision.BuyThreshold, 1e-9)
	assert.InDelta(t, 4.0, cfg.Decision.SellThreshold, 1e-9)
	assert.InDelta(t, 1.0, cfg.Decision.MLWeight+cfg.Decision.RuleWeight, 1e-9)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capital", func(c *Config) { c.Engine.InitialCapital = 0 }},
		{"negative slippage", func(c *Config) { c.Engine.Slippage = -0.01 }},
		{"empty buy weights", func(c *Config) { c.Weights.Buy = nil }},
		{"negative weight", func(c *Config) { c.Weights.Sell["RSI"] = -1 }},
		{"zero score cap", func(c *Config) { c.Decision.ScoreCap = 0 }},
		{"blend weights do not sum to 1", func(c *Config) { c.Decision.MLWeight = 0.7 }},
		{"base fraction above 1", func(c *Config) { c.Sizing.BaseFraction = 1.5 }},
		{"min fraction above max position", func(c *Config) { c.Sizing.MinFraction = 0.5 }},
		{"stop loss of 100 percent", func(c *Config) { c.Risk.StopLossPct = 1 }},
		{"zero daily loss limit", func(c *Config) { c.Risk.MaxDailyLossPct = 0 }},
		{"zero fetch attempts", func(c *Config) { c.Context.FetchAttempts = 0 }},
		{"bad session open", func(c *Config) { c.Paper.SessionOpen = "9:30am" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.InDelta(t, 10000, cfg.Engine.InitialCapital, 1e-9)
}

func TestLoadReadsTOML(t *testing.T) {
	dir := t.TempDir()
	content := `
[engine]
initial_capital = 25000.0
slippage = 0.002

[decision]
buy_threshold = 5.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.InDelta(t, 25000, cfg.Engine.InitialCapital, 1e-9)
	assert.InDelta(t, 0.002, cfg.Engine.Slippage, 1e-9)
	assert.InDelta(t, 5.0, cfg.Decision.BuyThreshold, 1e-9)
	// Untouched sections keep defaults.
	assert.InDelta(t, 4.0, cfg.Decision.SellThreshold, 1e-9)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[engine]
initial_capital = -1.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRADER_INITIAL_CAPITAL", "50000")
	t.Setenv("TRADER_BUY_THRESHOLD", "6.0")
	t.Setenv("TRADER_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.InDelta(t, 50000, cfg.Engine.InitialCapital, 1e-9)
	assert.InDelta(t, 6.0, cfg.Decision.BuyThreshold, 1e-9)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestWriteTemplate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	path, err := WriteTemplate(dir)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// The template must load cleanly.
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// Refuses to overwrite an existing file.
	_, err = WriteTemplate(dir)
	assert.Error(t, err)
}
