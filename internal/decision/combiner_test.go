package decision

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-trader/internal/config"
	apperrors "signal-trader/internal/errors"
	"signal-trader/internal/models"
	"signal-trader/internal/scoring"
)

func testRow(indicators map[string]float64) models.FeatureRow {
	return models.FeatureRow{
		Symbol:     "AAPL",
		Timestamp:  time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC),
		Open:       100,
		High:       101,
		Low:        99,
		Close:      100,
		Volume:     1000000,
		Indicators: indicators,
	}
}

func newTestCombiner(t *testing.T, classifier Classifier) *Combiner {
	t.Helper()
	cfg := config.Default()
	scorer := scoring.NewRuleScorer(scoring.DefaultSignals(cfg.Weights, cfg.Signals))
	return NewCombiner(scorer, classifier, cfg.Decision, zerolog.Nop())
}

// fixedScoreCombiner builds a combiner whose rule score is forced to
// exact values through always-true synthetic signals.
func fixedScoreCombiner(buyScore, sellScore float64, cfg config.DecisionConfig) *Combiner {
	always := func(models.FeatureRow) bool { return true }
	var signals []scoring.Signal
	if buyScore > 0 {
		signals = append(signals, scoring.Signal{Name: "forced_buy", Side: models.SideBuy, Weight: buyScore, When: always})
	}
	if sellScore > 0 {
		signals = append(signals, scoring.Signal{Name: "forced_sell", Side: models.SideSell, Weight: sellScore, When: always})
	}
	return NewCombiner(scoring.NewRuleScorer(signals), nil, cfg, zerolog.Nop())
}

func TestDecideBelowThresholdHolds(t *testing.T) {
	c := newTestCombiner(t, nil)

	// RSI + BollingerLower + MarketFilterPass = 1.5 + 1.5 + 1.0 = 4.0
	row := testRow(map[string]float64{
		scoring.IndRSI:          25,
		scoring.IndBBLower:      101,
		scoring.IndMarketFilter: 1,
	})

	d := c.Decide(context.Background(), row, MarketContext{})

	assert.Equal(t, models.ActionHold, d.Action)
	assert.InDelta(t, 4.0, d.BuyScore, 1e-9)
	assert.InDelta(t, 0.40, d.Confidence, 1e-9)
}

func TestDecideAboveThresholdBuys(t *testing.T) {
	c := newTestCombiner(t, nil)

	// Previous row plus NearLow = 4.0 + 1.0 = 5.0
	row := testRow(map[string]float64{
		scoring.IndRSI:          25,
		scoring.IndBBLower:      101,
		scoring.IndMarketFilter: 1,
		scoring.IndLowWindow:    99.5,
		scoring.IndVolumeRatio:  1.0,
	})

	d := c.Decide(context.Background(), row, MarketContext{})

	require.Equal(t, models.ActionBuy, d.Action)
	assert.InDelta(t, 5.0, d.BuyScore, 1e-9)
	assert.InDelta(t, 0.50, d.Confidence, 1e-9)
	assert.NotEmpty(t, d.Reasons)
	assert.NotEmpty(t, d.ID)
}

func TestTieBreakResolvesToSell(t *testing.T) {
	cfg := config.Default().Decision

	// Both thresholds exceeded with equal scores.
	c := fixedScoreCombiner(6.0, 6.0, cfg)
	d := c.Decide(context.Background(), testRow(nil), MarketContext{})
	assert.Equal(t, models.ActionSell, d.Action)

	// Sell above its threshold but below the buy score: BUY wins.
	c = fixedScoreCombiner(6.0, 4.5, cfg)
	d = c.Decide(context.Background(), testRow(nil), MarketContext{})
	assert.Equal(t, models.ActionBuy, d.Action)

	// Sell at or above the buy score: SELL wins even when both exceed.
	c = fixedScoreCombiner(5.0, 5.5, cfg)
	d = c.Decide(context.Background(), testRow(nil), MarketContext{})
	assert.Equal(t, models.ActionSell, d.Action)
}

func TestSentimentDeltaLiftsBuyScore(t *testing.T) {
	cfg := config.Default().Decision
	c := fixedScoreCombiner(3.0, 0, cfg)

	mkt := MarketContext{
		Sentiment: &models.ContextReading{Label: models.SentimentVeryPositive},
	}
	d := c.Decide(context.Background(), testRow(nil), mkt)

	// 3.0 + 2.0 sentiment = 5.0, above the 4.5 threshold.
	assert.Equal(t, models.ActionBuy, d.Action)
	assert.InDelta(t, 5.0, d.BuyScore, 1e-9)
	assert.Contains(t, d.Reasons, "sentiment_very_positive")
}

func TestSectorDeltaLiftsSellScore(t *testing.T) {
	cfg := config.Default().Decision
	c := fixedScoreCombiner(0, 3.5, cfg)

	mkt := MarketContext{
		Sector: &models.ContextReading{Label: models.SectorWeak},
	}
	d := c.Decide(context.Background(), testRow(nil), mkt)

	assert.Equal(t, models.ActionSell, d.Action)
	assert.InDelta(t, 4.5, d.SellScore, 1e-9)
}

func TestMacroOverrideVetoesBuy(t *testing.T) {
	cfg := config.Default().Decision
	c := fixedScoreCombiner(8.0, 0, cfg)

	mkt := MarketContext{
		Macro: &models.ContextReading{Label: models.MacroVeryUnfavorable},
	}
	d := c.Decide(context.Background(), testRow(nil), mkt)

	assert.Equal(t, models.ActionHold, d.Action)
	assert.Contains(t, d.Reasons, "macro_override")
}

func TestMacroOverrideDoesNotVetoSell(t *testing.T) {
	cfg := config.Default().Decision
	c := fixedScoreCombiner(0, 8.0, cfg)

	mkt := MarketContext{
		Macro: &models.ContextReading{Label: models.MacroVeryUnfavorable},
	}
	d := c.Decide(context.Background(), testRow(nil), mkt)

	assert.Equal(t, models.ActionSell, d.Action)
}

type stubClassifier struct {
	pred models.Prediction
	err  error
}

func (s stubClassifier) Predict(ctx context.Context, row models.FeatureRow) (models.Prediction, error) {
	return s.pred, s.err
}

func TestClassifierBlend(t *testing.T) {
	cfg := config.Default().Decision
	clf := stubClassifier{pred: models.Prediction{
		Class: models.ActionBuy,
		Probabilities: map[models.Action]float64{
			models.ActionSell: 0.1,
			models.ActionHold: 0.1,
			models.ActionBuy:  0.8,
		},
	}}

	always := func(models.FeatureRow) bool { return true }
	scorer := scoring.NewRuleScorer([]scoring.Signal{
		{Name: "forced_buy", Side: models.SideBuy, Weight: 5.0, When: always},
	})
	c := NewCombiner(scorer, clf, cfg, zerolog.Nop())

	d := c.Decide(context.Background(), testRow(nil), MarketContext{})

	// 0.4*0.8 + 0.6*(5.0/10) = 0.32 + 0.30 = 0.62
	assert.InDelta(t, 0.62, d.Confidence, 1e-9)
}

func TestClassifierUnavailableDegradesToRuleConfidence(t *testing.T) {
	cfg := config.Default().Decision
	clf := stubClassifier{err: apperrors.ErrClassifierUnavailable}

	c := fixedScoreCombiner(5.0, 0, cfg)
	c.classifier = clf

	d := c.Decide(context.Background(), testRow(nil), MarketContext{})
	assert.InDelta(t, 0.50, d.Confidence, 1e-9)
	assert.Equal(t, models.ActionBuy, d.Action)
}
