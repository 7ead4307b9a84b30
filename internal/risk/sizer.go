// Package risk implements position sizing and risk controls.
package risk

import (
	"math"

	"signal-trader/internal/config"
	"signal-trader/internal/decision"
	"signal-trader/internal/models"
)

// Sizer converts a decision and the current equity into a target trade
// quantity.
type Sizer struct {
	cfg config.SizingConfig
}

// NewSizer creates a position sizer.
func NewSizer(cfg config.SizingConfig) *Sizer {
	return &Sizer{cfg: cfg}
}

// Quantity returns the number of shares to buy for the decision, or
// zero when the clamped allocation rounds to nothing. The equity
// fraction scales linearly with confidence around the base fraction
// (confidence 0.5 allocates exactly the base fraction) and is capped
// at max_position_pct; the result is then scaled by the market-filter,
// sector, and macro multipliers.
func (s *Sizer) Quantity(d models.Decision, equity, price float64, mkt decision.MarketContext) int {
	if price <= 0 || equity <= 0 {
		return 0
	}

	fraction := s.cfg.BaseFraction * 2 * d.Confidence
	if fraction > s.cfg.MaxPositionPct {
		fraction = s.cfg.MaxPositionPct
	}
	if fraction < s.cfg.MinFraction {
		fraction = s.cfg.MinFraction
	}

	alloc := equity * fraction
	alloc *= mkt.FilterMultiplier()
	alloc *= mkt.SectorWeight()
	alloc *= mkt.MacroMultiplier()

	qty := int(math.Floor(alloc / price))
	if s.cfg.MaxQuantity > 0 && qty > s.cfg.MaxQuantity {
		qty = s.cfg.MaxQuantity
	}
	if qty < s.cfg.MinQuantity {
		return 0
	}
	return qty
}
