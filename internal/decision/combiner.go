package decision

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signal-trader/internal/config"
	apperrors "signal-trader/internal/errors"
	"signal-trader/internal/models"
	"signal-trader/internal/scoring"
)

// Combiner merges the rule score, the classifier probability vector,
// and the context deltas into one Decision per symbol per tick.
type Combiner struct {
	scorer     *scoring.RuleScorer
	classifier Classifier
	cfg        config.DecisionConfig
	logger     zerolog.Logger
	newID      func() string
}

// NewCombiner creates a combiner. classifier may be nil, in which case
// every decision uses rule-only confidence.
func NewCombiner(scorer *scoring.RuleScorer, classifier Classifier, cfg config.DecisionConfig, logger zerolog.Logger) *Combiner {
	return &Combiner{
		scorer:     scorer,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// SetIDFunc overrides decision ID generation. Backtests install a
// sequential generator so repeated runs produce identical output.
func (c *Combiner) SetIDFunc(fn func() string) {
	if fn != nil {
		c.newID = fn
	}
}

// Decide produces a fresh Decision for the row. It never returns an
// error: degraded inputs (absent classifier, stale context) reduce to
// rule-only or neutral behavior.
func (c *Combiner) Decide(ctx context.Context, row models.FeatureRow, mkt MarketContext) models.Decision {
	scores := c.scorer.Score(row)

	buyScore := scores.BuyScore
	sellScore := scores.SellScore
	reasons := append([]string{}, scores.BuyReasons...)
	reasons = append(reasons, scores.SellReasons...)

	// Context deltas apply to the scores before thresholding.
	buyDelta, sellDelta, contextReasons := c.contextDeltas(mkt)
	buyScore += buyDelta
	sellScore += sellDelta
	reasons = append(reasons, contextReasons...)
	if buyScore < 0 {
		buyScore = 0
	}
	if sellScore < 0 {
		sellScore = 0
	}

	action := c.resolveAction(buyScore, sellScore)

	confidence := c.confidence(ctx, row, buyScore, sellScore)

	if action == models.ActionBuy && mkt.MacroVetoesBuy() {
		action = models.ActionHold
		reasons = append(reasons, "macro_override")
		c.logger.Debug().Str("symbol", row.Symbol).Msg("BUY vetoed by macro environment")
	}

	return models.Decision{
		ID:         c.newID(),
		Symbol:     row.Symbol,
		Timestamp:  row.Timestamp,
		Action:     action,
		Confidence: confidence,
		BuyScore:   buyScore,
		SellScore:  sellScore,
		Price:      row.Close,
		Reasons:    reasons,
	}
}

// resolveAction applies the threshold gates. When both thresholds are
// exceeded at once, SELL wins: the buy arm requires a strictly greater
// buy score while the sell arm accepts equality.
func (c *Combiner) resolveAction(buyScore, sellScore float64) models.Action {
	sellSignal := sellScore >= c.cfg.SellThreshold && sellScore >= buyScore
	buySignal := buyScore >= c.cfg.BuyThreshold && buyScore > sellScore

	switch {
	case sellSignal:
		return models.ActionSell
	case buySignal:
		return models.ActionBuy
	default:
		return models.ActionHold
	}
}

// confidence computes the calibrated confidence: rule confidence is
// signal strength over the score cap, optionally blended with the
// classifier's probability for its predicted class.
func (c *Combiner) confidence(ctx context.Context, row models.FeatureRow, buyScore, sellScore float64) float64 {
	strength := buyScore
	if sellScore > strength {
		strength = sellScore
	}
	ruleConf := clamp01(strength / c.cfg.ScoreCap)

	if c.classifier == nil {
		return ruleConf
	}

	pred, err := c.classifier.Predict(ctx, row)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrClassifierUnavailable) {
			c.logger.Warn().Err(err).Str("symbol", row.Symbol).Msg("Classifier error, using rule confidence")
		}
		return ruleConf
	}

	blended := c.cfg.MLWeight*pred.Confidence() + c.cfg.RuleWeight*ruleConf
	return clamp01(blended)
}

// contextDeltas converts the sentiment and sector readings into
// bounded score adjustments. Absent or stale readings contribute zero.
func (c *Combiner) contextDeltas(mkt MarketContext) (buyDelta, sellDelta float64, reasons []string) {
	if mkt.Sentiment != nil {
		switch mkt.Sentiment.Label {
		case models.SentimentVeryPositive:
			buyDelta += c.cfg.SentimentDelta
			reasons = append(reasons, "sentiment_very_positive")
		case models.SentimentPositive:
			buyDelta += c.cfg.SentimentDelta / 2
			reasons = append(reasons, "sentiment_positive")
		case models.SentimentNegative:
			sellDelta += c.cfg.SentimentDelta / 2
			reasons = append(reasons, "sentiment_negative")
		case models.SentimentVeryNegative:
			sellDelta += c.cfg.SentimentDelta
			reasons = append(reasons, "sentiment_very_negative")
		}
	}

	if mkt.Sector != nil {
		switch {
		case mkt.Sector.Label == models.SectorStrong:
			buyDelta += c.cfg.SectorDelta
			reasons = append(reasons, "sector_strong")
		case mkt.Sector.Label == models.SectorWeak:
			sellDelta += c.cfg.SectorDelta
			reasons = append(reasons, "sector_weak")
		}
	}

	if mkt.Macro != nil {
		switch mkt.Macro.Label {
		case models.MacroVeryFavorable:
			buyDelta += c.cfg.SectorDelta
			reasons = append(reasons, "macro_very_favorable")
		case models.MacroUnfavorable:
			sellDelta += c.cfg.SectorDelta / 2
			reasons = append(reasons, "macro_unfavorable")
		}
	}

	return buyDelta, sellDelta, reasons
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
