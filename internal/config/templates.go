package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configTemplate is written by `trader config init`.
const configTemplate = `# signal-trader configuration

[engine]
initial_capital = 10000.0
slippage = 0.001
commission = 0.0

[weights.buy]
RSI = 1.5
BollingerLower = 1.5
NearLow = 1.0
VolumeSpike = 1.2
MASupport = 1.0
MACDUp = 1.3
BullDivergence = 2.0
MarketFilterPass = 1.0

[weights.sell]
RSI = 1.5
BollingerUpper = 1.5
NearHigh = 1.0
MAResistance = 1.0
MACDDown = 1.3
ProfitTarget = 2.0
StopLoss = 3.0
BearDivergence = 2.0

[signals]
rsi_oversold = 30.0
rsi_overbought = 70.0
rsi_buy_ceiling = 40.0
rsi_sell_floor = 60.0
near_low_pct = 0.02
near_high_pct = 0.02
volume_spike = 1.5
volume_floor = 0.8
profit_target_pct = 0.05
stop_loss_pct = 0.03

[decision]
buy_threshold = 4.5
sell_threshold = 4.0
score_cap = 10.0
# Blend between classifier confidence and rule confidence; must sum to 1.
ml_weight = 0.4
rule_weight = 0.6
sentiment_delta = 2.0
sector_delta = 1.0

[sizing]
base_fraction = 0.10
max_position_pct = 0.20
min_fraction = 0.01
min_quantity = 1
# 0 means unlimited
max_quantity = 0

[risk]
stop_loss_pct = 0.03
take_profit_pct = 0.05
max_daily_loss_pct = 0.02
macro_veto_buy = true

[context]
sentiment_ttl = "1h"
sector_ttl = "6h"
macro_ttl = "24h"
filter_ttl = "1h"
fetch_timeout = "5s"
fetch_attempts = 2
retry_delay = "50ms"

[paper]
symbols = ["AAPL", "MSFT"]
poll_interval = "5m"
monitor_interval = "1m"
session_open = "09:30"
session_close = "16:00"
timezone = "America/New_York"

[journal]
# path = "~/.config/signal-trader/journal.db"

[logging]
level = "info"
console = true
max_size_mb = 10
max_backups = 5
max_age_days = 30
`

// WriteTemplate writes the commented config template into dir, creating
// the directory if needed. It refuses to overwrite an existing file.
func WriteTemplate(dir string) (string, error) {
	if dir == "" {
		dir = DefaultConfigDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}
	return path, nil
}
