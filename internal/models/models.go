// Package models defines the core data types shared across the engine.
package models

import (
	"time"
)

// Action represents a trading decision outcome.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Side represents the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// FeatureRow is one instrument at one timestamp with its precomputed
// indicator values. Rows are produced externally and never mutated.
type FeatureRow struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64

	// Indicators maps named indicator values (rsi, bb_lower, ma20, ...).
	// Boolean flags such as divergence markers are encoded as 0/1.
	Indicators map[string]float64
}

// Indicator returns the named indicator value and whether it is present.
func (r FeatureRow) Indicator(name string) (float64, bool) {
	v, ok := r.Indicators[name]
	return v, ok
}

// Valid reports whether the row carries the minimal fields the decision
// pipeline requires.
func (r FeatureRow) Valid() bool {
	return r.Symbol != "" && !r.Timestamp.IsZero() && r.Close > 0
}

// ScoreResult holds the weighted buy and sell accumulators for one row,
// together with the names of the signals that fired.
type ScoreResult struct {
	BuyScore    float64
	SellScore   float64
	BuyReasons  []string
	SellReasons []string
}

// Strength is the larger of the two scores.
func (s ScoreResult) Strength() float64 {
	if s.SellScore > s.BuyScore {
		return s.SellScore
	}
	return s.BuyScore
}

// Decision is the output of the signal combiner for one symbol and one
// tick. Decisions are immutable once created.
type Decision struct {
	ID         string
	Symbol     string
	Timestamp  time.Time
	Action     Action
	Confidence float64
	BuyScore   float64
	SellScore  float64
	Price      float64
	Reasons    []string
}

// Position is an open long holding. At most one position may exist per
// symbol at any time.
type Position struct {
	Symbol      string
	Quantity    int
	EntryPrice  float64
	EntryTime   time.Time
	StopPrice   float64
	TargetPrice float64
}

// MarketValue returns the position value at the given price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Quantity) * price
}

// Trade is an immutable, append-only execution record. RealizedPnL is
// populated on SELL trades only.
type Trade struct {
	ID          string
	Symbol      string
	Side        Side
	Quantity    int
	Price       float64
	Commission  float64
	Timestamp   time.Time
	RealizedPnL float64
	Reason      string
}

// Snapshot is a copy-on-read view of the ledger for reporting consumers.
// It shares no mutable state with the portfolio manager.
type Snapshot struct {
	AsOf      time.Time
	Cash      float64
	Equity    float64
	Positions []Position
	Trades    []Trade
}

// EquityPoint is one point of a recorded equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Cash      float64
	Equity    float64
}
