package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIsOpen(t *testing.T) {
	s, err := NewSession("09:30", "16:00", "America/New_York")
	require.NoError(t, err)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cases := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"midday weekday", time.Date(2024, 3, 4, 12, 0, 0, 0, ny), true},
		{"exact open", time.Date(2024, 3, 4, 9, 30, 0, 0, ny), true},
		{"minute before open", time.Date(2024, 3, 4, 9, 29, 0, 0, ny), false},
		{"exact close", time.Date(2024, 3, 4, 16, 0, 0, 0, ny), false},
		{"minute before close", time.Date(2024, 3, 4, 15, 59, 0, 0, ny), true},
		{"saturday", time.Date(2024, 3, 2, 12, 0, 0, 0, ny), false},
		{"sunday", time.Date(2024, 3, 3, 12, 0, 0, 0, ny), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.open, s.IsOpen(tc.at))
		})
	}
}

func TestSessionIsOpenConvertsTimezone(t *testing.T) {
	s, err := NewSession("09:30", "16:00", "America/New_York")
	require.NoError(t, err)

	// 15:00 UTC on a March weekday is 10:00 in New York.
	assert.True(t, s.IsOpen(time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)))
	// 02:00 UTC is the previous evening in New York.
	assert.False(t, s.IsOpen(time.Date(2024, 3, 4, 2, 0, 0, 0, time.UTC)))
}

func TestSessionNextOpen(t *testing.T) {
	s, err := NewSession("09:30", "16:00", "America/New_York")
	require.NoError(t, err)

	ny, _ := time.LoadLocation("America/New_York")

	// After Friday's close the next open is Monday morning.
	friday := time.Date(2024, 3, 1, 17, 0, 0, 0, ny)
	next := s.NextOpen(friday)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 30, next.Minute())

	// Before the open on a weekday, the next open is the same day.
	monday := time.Date(2024, 3, 4, 8, 0, 0, 0, ny)
	assert.Equal(t, monday.Day(), s.NextOpen(monday).Day())
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession("16:00", "09:30", "America/New_York")
	assert.Error(t, err)

	_, err = NewSession("9:30am", "16:00", "America/New_York")
	assert.Error(t, err)

	_, err = NewSession("09:30", "16:00", "Mars/Olympus")
	assert.Error(t, err)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	attempts := 0
	result, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestRetryReturnsLastError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	wantErr := errors.New("still failing")
	err := Retry(context.Background(), cfg, func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 10, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, cfg, func() error { return errors.New("transient") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCurrency(0))
	assert.Equal(t, "$999.99", FormatCurrency(999.99))
	assert.Equal(t, "$1,000.00", FormatCurrency(1000))
	assert.Equal(t, "$1,234,567.89", FormatCurrency(1234567.89))
	assert.Equal(t, "-$1,500.50", FormatCurrency(-1500.50))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+5.25%", FormatPercent(5.25))
	assert.Equal(t, "-3.10%", FormatPercent(-3.1))
	assert.Equal(t, "0.00%", FormatPercent(0))
}
