// Package decision merges rule scores, classifier output, and context
// adjustments into trading decisions.
package decision

import (
	"context"

	"signal-trader/internal/models"
)

// Classifier is the boundary to the externally trained model. It may be
// unavailable; callers degrade to rule-only confidence when Predict
// returns ErrClassifierUnavailable.
type Classifier interface {
	Predict(ctx context.Context, row models.FeatureRow) (models.Prediction, error)
}

// ContextSource is the boundary to one external context adjuster
// (sentiment, sector strength, macro favorability, market filter).
// Implementations may be network-bound; the hub bounds their latency.
type ContextSource interface {
	Current(ctx context.Context, symbol string) (models.ContextReading, error)
}

// MarketContext carries the resolved, staleness-checked readings for
// one symbol at one tick. A nil reading means the source was
// unavailable or stale and is treated as neutral.
type MarketContext struct {
	Sentiment *models.ContextReading
	Sector    *models.ContextReading
	Macro     *models.ContextReading
	Filter    *models.ContextReading
}

// SectorWeight returns the sizing multiplier implied by the sector
// reading, in [0.7, 1.3]. The reading score is the sector's strength
// rank (1 = strongest).
func (m MarketContext) SectorWeight() float64 {
	if m.Sector == nil {
		return 1.0
	}
	rank := m.Sector.Score
	switch {
	case rank <= 2:
		return 1.3
	case rank <= 4:
		return 1.1
	case rank >= 10:
		return 0.7
	case rank >= 8:
		return 0.9
	default:
		return 1.0
	}
}

// MacroMultiplier returns the sizing multiplier implied by the macro
// label, in [0.3, 1.3].
func (m MarketContext) MacroMultiplier() float64 {
	if m.Macro == nil {
		return 1.0
	}
	switch m.Macro.Label {
	case models.MacroVeryFavorable:
		return 1.3
	case models.MacroFavorable:
		return 1.1
	case models.MacroUnfavorable:
		return 0.7
	case models.MacroVeryUnfavorable:
		return 0.3
	default:
		return 1.0
	}
}

// FilterMultiplier returns the market-regime sizing multiplier. The
// filter reading carries the multiplier directly in its score; a score
// of zero means new entries are disabled.
func (m MarketContext) FilterMultiplier() float64 {
	if m.Filter == nil {
		return 1.0
	}
	if m.Filter.Score < 0 {
		return 0
	}
	return m.Filter.Score
}

// MacroVetoesBuy reports whether the macro environment is rated
// maximally unfavorable.
func (m MarketContext) MacroVetoesBuy() bool {
	return m.Macro != nil && m.Macro.Label == models.MacroVeryUnfavorable
}
