package decision

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"signal-trader/internal/models"
)

var predictionColumns = []string{"symbol", "timestamp", "p_sell", "p_hold", "p_buy"}

// LoadPredictionsCSV reads a pre-materialized classifier prediction
// table into a TableClassifier. Rows the table does not cover degrade to
// rule-only confidence at decision time.
func LoadPredictionsCSV(path string) (*TableClassifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening prediction table: %w", err)
	}
	defer f.Close()

	return ReadPredictionsCSV(f)
}

// ReadPredictionsCSV parses a prediction table from a reader. The header
// must be symbol,timestamp,p_sell,p_hold,p_buy; the predicted class is
// the highest-probability column. Timestamps are RFC 3339 or YYYY-MM-DD
// and must match the feature rows they annotate.
func ReadPredictionsCSV(r io.Reader) (*TableClassifier, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading prediction table header: %w", err)
	}
	if len(header) != len(predictionColumns) {
		return nil, fmt.Errorf("prediction table header has %d columns, want %d", len(header), len(predictionColumns))
	}
	for i, want := range predictionColumns {
		if header[i] != want {
			return nil, fmt.Errorf("prediction table column %d is %q, want %q", i, header[i], want)
		}
	}

	tc := NewTableClassifier()
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading prediction table line %d: %w", line, err)
		}

		ts, err := parsePredictionTimestamp(record[1])
		if err != nil {
			return nil, fmt.Errorf("prediction table line %d: parsing timestamp %q: %w", line, record[1], err)
		}

		probs := make(map[models.Action]float64, 3)
		for i, action := range []models.Action{models.ActionSell, models.ActionHold, models.ActionBuy} {
			v, err := strconv.ParseFloat(record[i+2], 64)
			if err != nil {
				return nil, fmt.Errorf("prediction table line %d: parsing %s %q: %w", line, predictionColumns[i+2], record[i+2], err)
			}
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("prediction table line %d: %s %.4f outside [0, 1]", line, predictionColumns[i+2], v)
			}
			probs[action] = v
		}

		tc.Add(record[0], ts, models.Prediction{
			Class:         argmaxClass(probs),
			Probabilities: probs,
		})
	}
	return tc, nil
}

func argmaxClass(probs map[models.Action]float64) models.Action {
	class := models.ActionSell
	for _, action := range []models.Action{models.ActionHold, models.ActionBuy} {
		if probs[action] > probs[class] {
			class = action
		}
	}
	return class
}

func parsePredictionTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}
