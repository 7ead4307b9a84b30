package models

import "time"

// Context category labels supplied by the external adjusters.
const (
	SentimentVeryPositive = "VERY_POSITIVE"
	SentimentPositive     = "POSITIVE"
	SentimentNeutral      = "NEUTRAL"
	SentimentNegative     = "NEGATIVE"
	SentimentVeryNegative = "VERY_NEGATIVE"

	SectorStrong  = "STRONG"
	SectorNeutral = "NEUTRAL"
	SectorWeak    = "WEAK"

	MacroVeryFavorable   = "VERY_FAVORABLE"
	MacroFavorable       = "FAVORABLE"
	MacroNeutral         = "NEUTRAL"
	MacroUnfavorable     = "UNFAVORABLE"
	MacroVeryUnfavorable = "VERY_UNFAVORABLE"
)

// ContextReading is one cached observation from a context adjuster
// (sentiment, sector strength, macro favorability, market filter).
type ContextReading struct {
	Score float64
	Label string
	AsOf  time.Time
	TTL   time.Duration
}

// Stale reports whether the reading has outlived its TTL at the given
// time. A zero TTL never expires.
func (r ContextReading) Stale(now time.Time) bool {
	if r.TTL <= 0 {
		return false
	}
	return now.Sub(r.AsOf) > r.TTL
}

// Prediction is the output of the external classifier: a predicted
// class and the full probability vector over {SELL, HOLD, BUY}.
type Prediction struct {
	Class         Action
	Probabilities map[Action]float64
}

// Confidence returns the probability assigned to the predicted class.
func (p Prediction) Confidence() float64 {
	return p.Probabilities[p.Class]
}
