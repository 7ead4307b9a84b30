package decision

import (
	"context"
	"time"

	apperrors "signal-trader/internal/errors"
	"signal-trader/internal/models"
)

// TableClassifier serves pre-materialized predictions keyed by symbol
// and timestamp, the form a backtest consumes. Missing entries surface
// as ErrClassifierUnavailable so the combiner degrades to rule-only
// confidence for that row.
type TableClassifier struct {
	predictions map[string]models.Prediction
}

// NewTableClassifier creates an empty table classifier.
func NewTableClassifier() *TableClassifier {
	return &TableClassifier{predictions: make(map[string]models.Prediction)}
}

// Add registers a prediction for one symbol at one timestamp.
func (t *TableClassifier) Add(symbol string, ts time.Time, pred models.Prediction) {
	t.predictions[tableKey(symbol, ts)] = pred
}

// Predict returns the registered prediction for the row.
func (t *TableClassifier) Predict(ctx context.Context, row models.FeatureRow) (models.Prediction, error) {
	pred, ok := t.predictions[tableKey(row.Symbol, row.Timestamp)]
	if !ok {
		return models.Prediction{}, apperrors.ErrClassifierUnavailable
	}
	return pred, nil
}

func tableKey(symbol string, ts time.Time) string {
	return symbol + "@" + ts.UTC().Format(time.RFC3339)
}

var _ Classifier = (*TableClassifier)(nil)
