// Package scoring implements the weighted multi-signal rule scorer.
package scoring

import (
	"sort"

	"signal-trader/internal/config"
	"signal-trader/internal/models"
)

// Indicator field names expected on a FeatureRow. Flags are 0/1.
const (
	IndRSI           = "rsi"
	IndBBLower       = "bb_lower"
	IndBBUpper       = "bb_upper"
	IndMA20          = "ma20"
	IndMA50          = "ma50"
	IndLowWindow     = "low_window"
	IndHighWindow    = "high_window"
	IndVolumeRatio   = "volume_ratio"
	IndPriceChange   = "price_change"
	IndChange5d      = "change_5d"
	IndMACDCrossUp   = "macd_cross_up"
	IndMACDCrossDown = "macd_cross_down"
	IndMACDHist      = "macd_hist"
	IndBullDiv       = "bull_divergence"
	IndBearDiv       = "bear_divergence"
	IndMarketFilter  = "market_filter"
)

// Predicate evaluates one signal trigger against a feature row. A
// predicate must not assume its fields are present; missing fields mean
// the signal does not fire.
type Predicate func(row models.FeatureRow) bool

// Signal is one entry of the weight table: a named trigger on one side
// with its weight.
type Signal struct {
	Name   string
	Side   models.Side
	Weight float64
	When   Predicate
}

// RuleScorer evaluates the signal table against feature rows. It is
// pure: no state, no side effects, identical input yields identical
// output.
type RuleScorer struct {
	signals []Signal
}

// NewRuleScorer creates a scorer over the given signal table. The
// table is sorted by (side, name) so that reason lists come out in a
// stable order regardless of construction order.
func NewRuleScorer(signals []Signal) *RuleScorer {
	sorted := make([]Signal, len(signals))
	copy(sorted, signals)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Side != sorted[j].Side {
			return sorted[i].Side == models.SideBuy
		}
		return sorted[i].Name < sorted[j].Name
	})
	return &RuleScorer{signals: sorted}
}

// Score evaluates every signal against the row and accumulates the
// weights of the signals that fire.
func (s *RuleScorer) Score(row models.FeatureRow) models.ScoreResult {
	var result models.ScoreResult
	for _, sig := range s.signals {
		if sig.When == nil || !sig.When(row) {
			continue
		}
		switch sig.Side {
		case models.SideBuy:
			result.BuyScore += sig.Weight
			result.BuyReasons = append(result.BuyReasons, sig.Name)
		case models.SideSell:
			result.SellScore += sig.Weight
			result.SellReasons = append(result.SellReasons, sig.Name)
		}
	}
	return result
}

// BuyWeightSum returns the sum of the BUY-side weights in the table.
func (s *RuleScorer) BuyWeightSum() float64 {
	var sum float64
	for _, sig := range s.signals {
		if sig.Side == models.SideBuy {
			sum += sig.Weight
		}
	}
	return sum
}

// SellWeightSum returns the sum of the SELL-side weights in the table.
func (s *RuleScorer) SellWeightSum() float64 {
	var sum float64
	for _, sig := range s.signals {
		if sig.Side == models.SideSell {
			sum += sig.Weight
		}
	}
	return sum
}

// ind is a convenience lookup used by the default predicates.
func ind(row models.FeatureRow, name string) (float64, bool) {
	return row.Indicator(name)
}

// DefaultSignals builds the standard signal table from the configured
// weights and trigger thresholds. A signal whose weight is absent from
// the weight table is omitted.
func DefaultSignals(weights config.WeightsConfig, trig config.SignalsConfig) []Signal {
	var signals []Signal

	addBuy := func(name string, when Predicate) {
		if w, ok := weights.Buy[name]; ok && w > 0 {
			signals = append(signals, Signal{Name: name, Side: models.SideBuy, Weight: w, When: when})
		}
	}
	addSell := func(name string, when Predicate) {
		if w, ok := weights.Sell[name]; ok && w > 0 {
			signals = append(signals, Signal{Name: name, Side: models.SideSell, Weight: w, When: when})
		}
	}

	addBuy("RSI", func(row models.FeatureRow) bool {
		rsi, ok := ind(row, IndRSI)
		return ok && rsi < trig.RSIOversold
	})
	addBuy("BollingerLower", func(row models.FeatureRow) bool {
		lower, ok1 := ind(row, IndBBLower)
		rsi, ok2 := ind(row, IndRSI)
		return ok1 && ok2 && row.Close <= lower && rsi < trig.RSIBuyCeiling
	})
	addBuy("NearLow", func(row models.FeatureRow) bool {
		low, ok1 := ind(row, IndLowWindow)
		ratio, ok2 := ind(row, IndVolumeRatio)
		return ok1 && ok2 && row.Close <= low*(1+trig.NearLowPct) && ratio > trig.VolumeFloor
	})
	addBuy("VolumeSpike", func(row models.FeatureRow) bool {
		ratio, ok1 := ind(row, IndVolumeRatio)
		change, ok2 := ind(row, IndPriceChange)
		return ok1 && ok2 && ratio > trig.VolumeSpike && change < 0
	})
	addBuy("MASupport", func(row models.FeatureRow) bool {
		ma20, ok1 := ind(row, IndMA20)
		ma50, ok2 := ind(row, IndMA50)
		return ok1 && ok2 && row.Close > ma20 && row.Close > ma50 && ma20 > ma50
	})
	addBuy("MACDUp", func(row models.FeatureRow) bool {
		cross, ok1 := ind(row, IndMACDCrossUp)
		hist, ok2 := ind(row, IndMACDHist)
		return ok1 && ok2 && cross > 0 && hist > 0
	})
	addBuy("BullDivergence", func(row models.FeatureRow) bool {
		div, ok := ind(row, IndBullDiv)
		return ok && div > 0
	})
	addBuy("MarketFilterPass", func(row models.FeatureRow) bool {
		filter, ok := ind(row, IndMarketFilter)
		return ok && filter > 0
	})

	addSell("RSI", func(row models.FeatureRow) bool {
		rsi, ok := ind(row, IndRSI)
		return ok && rsi > trig.RSIOverbought
	})
	addSell("BollingerUpper", func(row models.FeatureRow) bool {
		upper, ok1 := ind(row, IndBBUpper)
		rsi, ok2 := ind(row, IndRSI)
		return ok1 && ok2 && row.Close >= upper && rsi > trig.RSISellFloor
	})
	addSell("NearHigh", func(row models.FeatureRow) bool {
		high, ok := ind(row, IndHighWindow)
		return ok && row.Close >= high*(1-trig.NearHighPct)
	})
	addSell("MAResistance", func(row models.FeatureRow) bool {
		ma20, ok1 := ind(row, IndMA20)
		ma50, ok2 := ind(row, IndMA50)
		return ok1 && ok2 && row.Close < ma20 && row.Close < ma50 && ma20 < ma50
	})
	addSell("MACDDown", func(row models.FeatureRow) bool {
		cross, ok1 := ind(row, IndMACDCrossDown)
		hist, ok2 := ind(row, IndMACDHist)
		return ok1 && ok2 && cross > 0 && hist < 0
	})
	addSell("ProfitTarget", func(row models.FeatureRow) bool {
		change, ok := ind(row, IndChange5d)
		return ok && change > trig.ProfitTargetPct
	})
	addSell("StopLoss", func(row models.FeatureRow) bool {
		change, ok := ind(row, IndChange5d)
		return ok && change < -trig.StopLossPct
	})
	addSell("BearDivergence", func(row models.FeatureRow) bool {
		div, ok := ind(row, IndBearDiv)
		return ok && div > 0
	})

	return signals
}
