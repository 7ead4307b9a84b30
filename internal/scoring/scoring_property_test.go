package scoring

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"signal-trader/internal/config"
	"signal-trader/internal/models"
)

// featureRowGen generates feature rows with random but plausible
// indicator values. Fields are occasionally dropped to exercise the
// missing-field path.
func featureRowGen() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(1.0, 1000.0),  // close
		gen.Float64Range(0.0, 100.0),   // rsi
		gen.Float64Range(0.5, 1.5),     // bb band spread factor
		gen.Float64Range(0.0, 3.0),     // volume ratio
		gen.Float64Range(-0.2, 0.2),    // price change
		gen.Float64Range(-0.2, 0.2),    // 5d change
		gen.Float64Range(-5.0, 5.0),    // macd hist
		gen.Bool(),                     // macd cross up
		gen.Bool(),                     // macd cross down
		gen.Bool(),                     // bull divergence
		gen.Bool(),                     // bear divergence
		gen.Bool(),                     // market filter
		gen.IntRange(0, 15),            // bitmask of dropped fields
	).Map(func(values []interface{}) models.FeatureRow {
		close := values[0].(float64)
		dropped := values[12].(int)

		flag := func(b bool) float64 {
			if b {
				return 1
			}
			return 0
		}

		indicators := map[string]float64{
			IndRSI:           values[1].(float64),
			IndBBLower:       close * 0.95 * values[2].(float64),
			IndBBUpper:       close * 1.05 * values[2].(float64),
			IndMA20:          close * 0.98,
			IndMA50:          close * 1.01,
			IndLowWindow:     close * 0.93,
			IndHighWindow:    close * 1.07,
			IndVolumeRatio:   values[3].(float64),
			IndPriceChange:   values[4].(float64),
			IndChange5d:      values[5].(float64),
			IndMACDHist:      values[6].(float64),
			IndMACDCrossUp:   flag(values[7].(bool)),
			IndMACDCrossDown: flag(values[8].(bool)),
			IndBullDiv:       flag(values[9].(bool)),
			IndBearDiv:       flag(values[10].(bool)),
			IndMarketFilter:  flag(values[11].(bool)),
		}

		drops := []string{IndRSI, IndVolumeRatio, IndMACDHist, IndChange5d}
		for i, name := range drops {
			if dropped&(1<<i) != 0 {
				delete(indicators, name)
			}
		}

		return models.FeatureRow{
			Symbol:     "TEST",
			Timestamp:  time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
			Open:       close * 0.99,
			High:       close * 1.02,
			Low:        close * 0.97,
			Close:      close,
			Volume:     100000,
			Indicators: indicators,
		}
	})
}

func defaultScorer() *RuleScorer {
	cfg := config.Default()
	return NewRuleScorer(DefaultSignals(cfg.Weights, cfg.Signals))
}

func TestProperty_ScoresWithinWeightSumBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	scorer := defaultScorer()
	buyMax := scorer.BuyWeightSum()
	sellMax := scorer.SellWeightSum()

	properties.Property("buy and sell scores stay within weight-sum bounds", prop.ForAll(
		func(row models.FeatureRow) bool {
			result := scorer.Score(row)
			if result.BuyScore < 0 || result.BuyScore > buyMax+1e-9 {
				t.Logf("buy score %.4f out of [0, %.4f]", result.BuyScore, buyMax)
				return false
			}
			if result.SellScore < 0 || result.SellScore > sellMax+1e-9 {
				t.Logf("sell score %.4f out of [0, %.4f]", result.SellScore, sellMax)
				return false
			}
			return true
		},
		featureRowGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_ScoringIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	scorer := defaultScorer()

	properties.Property("identical rows always yield identical scores", prop.ForAll(
		func(row models.FeatureRow) bool {
			first := scorer.Score(row)
			second := scorer.Score(row)

			if first.BuyScore != second.BuyScore || first.SellScore != second.SellScore {
				t.Logf("scores drifted: %.4f/%.4f vs %.4f/%.4f",
					first.BuyScore, first.SellScore, second.BuyScore, second.SellScore)
				return false
			}
			if len(first.BuyReasons) != len(second.BuyReasons) || len(first.SellReasons) != len(second.SellReasons) {
				return false
			}
			for i := range first.BuyReasons {
				if first.BuyReasons[i] != second.BuyReasons[i] {
					return false
				}
			}
			return true
		},
		featureRowGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_ScoreMatchesReasonWeights(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	cfg := config.Default()
	scorer := defaultScorer()

	properties.Property("each score equals the sum of its fired signal weights", prop.ForAll(
		func(row models.FeatureRow) bool {
			result := scorer.Score(row)

			var buySum float64
			for _, name := range result.BuyReasons {
				buySum += cfg.Weights.Buy[name]
			}
			var sellSum float64
			for _, name := range result.SellReasons {
				sellSum += cfg.Weights.Sell[name]
			}

			return almostEqual(result.BuyScore, buySum) && almostEqual(result.SellScore, sellSum)
		},
		featureRowGen(),
	))

	properties.TestingRun(t)
}

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-9 && diff > -1e-9
}
