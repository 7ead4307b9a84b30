package sim

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"signal-trader/internal/models"
)

// LiveFeed delivers feature rows for the paper runner, one batch per
// poll. Implementations wrap whatever data pipeline materializes the
// indicator table.
type LiveFeed interface {
	Fetch(ctx context.Context, symbols []string, now time.Time) ([]models.FeatureRow, error)
}

// fixed feature table columns; everything after them becomes a named
// indicator field.
var baseColumns = []string{"symbol", "timestamp", "open", "high", "low", "close", "volume"}

// LoadCSV reads a pre-materialized feature table. The header must start
// with symbol,timestamp,open,high,low,close,volume; any further columns
// are indicator fields. Timestamps are RFC 3339 or YYYY-MM-DD. Empty
// indicator cells are omitted from the row rather than parsed as zero.
func LoadCSV(path string) ([]models.FeatureRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening feature table: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses a feature table from a reader.
func ReadCSV(r io.Reader) ([]models.FeatureRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading feature table header: %w", err)
	}
	if len(header) < len(baseColumns) {
		return nil, fmt.Errorf("feature table header has %d columns, need at least %d", len(header), len(baseColumns))
	}
	for i, want := range baseColumns {
		if header[i] != want {
			return nil, fmt.Errorf("feature table column %d is %q, want %q", i, header[i], want)
		}
	}
	indicatorNames := header[len(baseColumns):]

	var rows []models.FeatureRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading feature table line %d: %w", line, err)
		}

		row, err := parseRow(record, indicatorNames)
		if err != nil {
			return nil, fmt.Errorf("feature table line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(record, indicatorNames []string) (models.FeatureRow, error) {
	var row models.FeatureRow

	row.Symbol = record[0]

	ts, err := parseTimestamp(record[1])
	if err != nil {
		return row, fmt.Errorf("parsing timestamp %q: %w", record[1], err)
	}
	row.Timestamp = ts

	fields := []*float64{&row.Open, &row.High, &row.Low, &row.Close, &row.Volume}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(record[i+2], 64)
		if err != nil {
			return row, fmt.Errorf("parsing %s %q: %w", baseColumns[i+2], record[i+2], err)
		}
		*dst = v
	}

	row.Indicators = make(map[string]float64, len(indicatorNames))
	for i, name := range indicatorNames {
		idx := len(baseColumns) + i
		if idx >= len(record) || record[idx] == "" {
			continue
		}
		v, err := strconv.ParseFloat(record[idx], 64)
		if err != nil {
			return row, fmt.Errorf("parsing indicator %s %q: %w", name, record[idx], err)
		}
		row.Indicators[name] = v
	}
	return row, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}

// ReplayFeed serves a pre-loaded feature table one tick per Fetch,
// which lets the paper runner be exercised without a live data
// pipeline. Timestamps are rewritten to the poll time so session and
// risk day-boundary logic see wall-clock time.
type ReplayFeed struct {
	mu    sync.Mutex
	ticks []tick
	next  int
}

// NewReplayFeed creates a replay feed over the rows.
func NewReplayFeed(rows []models.FeatureRow) *ReplayFeed {
	return &ReplayFeed{ticks: groupByTick(rows)}
}

// Fetch returns the next tick's rows for the requested symbols. Once
// the table is exhausted it returns empty batches.
func (f *ReplayFeed) Fetch(ctx context.Context, symbols []string, now time.Time) ([]models.FeatureRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.next >= len(f.ticks) {
		return nil, nil
	}
	source := f.ticks[f.next].rows
	f.next++

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}

	rows := make([]models.FeatureRow, 0, len(source))
	for _, row := range source {
		if len(want) > 0 && !want[row.Symbol] {
			continue
		}
		row.Timestamp = now
		rows = append(rows, row)
	}
	return rows, nil
}

var _ LiveFeed = (*ReplayFeed)(nil)
