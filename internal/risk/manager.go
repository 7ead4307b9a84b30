package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signal-trader/internal/config"
	"signal-trader/internal/decision"
	apperrors "signal-trader/internal/errors"
	"signal-trader/internal/models"
)

// Exit reasons attached to forced trades.
const (
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
	ReasonSignal     = "signal"
)

// Manager enforces stop-loss, take-profit, daily-loss, and macro
// override policies. Exit checks are stateless per call; the daily
// realized-loss accumulator is the only state and resets at the
// trading-day boundary.
type Manager struct {
	cfg    config.RiskConfig
	logger zerolog.Logger

	mu            sync.Mutex
	day           time.Time
	dailyRealized float64
}

// NewManager creates a risk manager.
func NewManager(cfg config.RiskConfig, logger zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// ForcedExit returns the exit reason if the position must be closed at
// the given price, overriding any combiner output. Stop-loss is checked
// before take-profit.
func (m *Manager) ForcedExit(pos models.Position, price float64) (string, bool) {
	if pos.Quantity <= 0 || pos.EntryPrice <= 0 {
		return "", false
	}
	if price <= pos.EntryPrice*(1-m.cfg.StopLossPct) {
		return ReasonStopLoss, true
	}
	if price >= pos.EntryPrice*(1+m.cfg.TakeProfitPct) {
		return ReasonTakeProfit, true
	}
	return "", false
}

// StopPrice returns the stop level for an entry at the given price.
func (m *Manager) StopPrice(entry float64) float64 {
	return entry * (1 - m.cfg.StopLossPct)
}

// TargetPrice returns the take-profit level for an entry at the given
// price.
func (m *Manager) TargetPrice(entry float64) float64 {
	return entry * (1 + m.cfg.TakeProfitPct)
}

// AllowBuy reports whether a new BUY may proceed at the given time.
// It vetoes once the daily realized loss exceeds the configured
// fraction of equity, and under a maximally unfavorable macro rating
// when that policy is enabled.
func (m *Manager) AllowBuy(now time.Time, equity float64, mkt decision.MarketContext) error {
	if m.cfg.MacroVetoBuy && mkt.MacroVetoesBuy() {
		return &apperrors.RiskError{
			Rule:    "macro_override",
			Message: "macro environment rated very unfavorable",
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked(now)

	// The veto engages only once the loss strictly exceeds the limit; a
	// day sitting exactly at the limit may still open positions.
	limit := m.cfg.MaxDailyLossPct * equity
	if loss := -m.dailyRealized; loss > limit && limit > 0 {
		return &apperrors.RiskError{
			Rule:    "daily_loss_limit",
			Current: loss,
			Limit:   limit,
			Message: "daily loss limit reached, no new entries until next trading day",
		}
	}
	return nil
}

// RecordRealized feeds a realized P&L into the daily accumulator.
func (m *Manager) RecordRealized(now time.Time, pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked(now)
	m.dailyRealized += pnl
}

// DailyRealized returns the accumulated realized P&L for the trading
// day containing now.
func (m *Manager) DailyRealized(now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked(now)
	return m.dailyRealized
}

// rollDayLocked resets the accumulator when the calendar date changes.
func (m *Manager) rollDayLocked(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if !day.Equal(m.day) {
		if !m.day.IsZero() && m.dailyRealized != 0 {
			m.logger.Debug().
				Time("day", m.day).
				Float64("realized", m.dailyRealized).
				Msg("Daily realized P&L reset")
		}
		m.day = day
		m.dailyRealized = 0
	}
}
