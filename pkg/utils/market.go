package utils

import (
	"fmt"
	"time"
)

// Session describes a daily trading window in a market timezone.
// Weekends are always closed.
type Session struct {
	open     int // minutes from midnight
	close    int
	location *time.Location
}

// NewSession parses HH:MM open and close times in the named timezone.
func NewSession(open, close, timezone string) (*Session, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	openMin, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("parsing session open: %w", err)
	}
	closeMin, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("parsing session close: %w", err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("session close %s must be after open %s", close, open)
	}

	return &Session{open: openMin, close: closeMin, location: loc}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsOpen reports whether the instant falls inside the trading window.
func (s *Session) IsOpen(t time.Time) bool {
	local := t.In(s.location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= s.open && minutes < s.close
}

// NextOpen returns the next session opening at or after t.
func (s *Session) NextOpen(t time.Time) time.Time {
	local := t.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.open/60, s.open%60, 0, 0, s.location)
	if !local.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
