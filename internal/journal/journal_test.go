package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-trader/internal/models"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalTradeRoundtrip(t *testing.T) {
	j := openTestJournal(t)
	ts := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordTrade(models.Trade{
		ID: "t-1", Symbol: "AAPL", Side: models.SideBuy,
		Quantity: 10, Price: 100.5, Commission: 1.25, Timestamp: ts,
		Reason: "signal",
	}))
	require.NoError(t, j.RecordTrade(models.Trade{
		ID: "t-2", Symbol: "AAPL", Side: models.SideSell,
		Quantity: 10, Price: 108, Timestamp: ts.Add(24 * time.Hour),
		RealizedPnL: 75, Reason: "take_profit",
	}))

	trades, err := j.Trades(time.Time{})
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "t-1", trades[0].ID)
	assert.Equal(t, models.SideBuy, trades[0].Side)
	assert.InDelta(t, 100.5, trades[0].Price, 1e-9)
	assert.InDelta(t, 1.25, trades[0].Commission, 1e-9)

	assert.Equal(t, "take_profit", trades[1].Reason)
	assert.InDelta(t, 75, trades[1].RealizedPnL, 1e-9)
}

func TestJournalTradesSinceFilter(t *testing.T) {
	j := openTestJournal(t)
	ts := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordTrade(models.Trade{
			ID: string(rune('a' + i)), Symbol: "AAPL", Side: models.SideBuy,
			Quantity: 1, Price: 100, Timestamp: ts.AddDate(0, 0, i),
		}))
	}

	trades, err := j.Trades(ts.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestJournalDecisionInsert(t *testing.T) {
	j := openTestJournal(t)

	d := models.Decision{
		ID: "d-1", Symbol: "AAPL",
		Timestamp:  time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
		Action:     models.ActionBuy,
		Confidence: 0.5, BuyScore: 5, SellScore: 0, Price: 100,
		Reasons: []string{"RSI", "BollingerLower"},
	}
	require.NoError(t, j.RecordDecision(d))

	// Duplicate IDs violate the primary key.
	assert.Error(t, j.RecordDecision(d))
}

func TestJournalEquityCurve(t *testing.T) {
	j := openTestJournal(t)
	ts := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	for i, eq := range []float64{10000, 10100, 10050} {
		require.NoError(t, j.RecordEquity(models.EquityPoint{
			Timestamp: ts.AddDate(0, 0, i), Cash: eq, Equity: eq,
		}))
	}

	points, err := j.EquityCurve(time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.InDelta(t, 10100, points[1].Equity, 1e-9)
	assert.True(t, points[0].Timestamp.Before(points[1].Timestamp))
}
