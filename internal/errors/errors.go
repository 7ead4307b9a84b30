// Package errors defines the error taxonomy for the decision engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Rejected-trade sentinels. The attempted trade is not applied and the
// ledger is left untouched; callers log and continue with the next
// symbol or tick.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicatePosition = errors.New("position already open for symbol")
	ErrNoOpenPosition    = errors.New("no open position for symbol")
)

// Degradation sentinels. The pipeline continues with reduced inputs.
var (
	ErrClassifierUnavailable = errors.New("classifier unavailable")
)

// DataGapError indicates a missing or invalid feature row for one
// symbol at one tick. The symbol is skipped for that tick only.
type DataGapError struct {
	Symbol    string
	Timestamp time.Time
	Field     string
}

func (e *DataGapError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("data gap for %s at %s: missing %s", e.Symbol, e.Timestamp.Format(time.RFC3339), e.Field)
	}
	return fmt.Sprintf("data gap for %s at %s", e.Symbol, e.Timestamp.Format(time.RFC3339))
}

// StaleContextError indicates a context adjuster reading has outlived
// its TTL. The combiner substitutes a neutral value.
type StaleContextError struct {
	Source string
	AsOf   time.Time
	TTL    time.Duration
}

func (e *StaleContextError) Error() string {
	return fmt.Sprintf("stale %s context: as of %s, ttl %s", e.Source, e.AsOf.Format(time.RFC3339), e.TTL)
}

// LedgerError indicates the portfolio invariant
// cash + sum(position value) == equity no longer holds. This is fatal:
// the run must stop rather than continue on a corrupted ledger.
type LedgerError struct {
	Cash          float64
	PositionValue float64
	Equity        float64
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger invariant violated: cash %.6f + positions %.6f != equity %.6f (diff %.6g)",
		e.Cash, e.PositionValue, e.Equity, e.Cash+e.PositionValue-e.Equity)
}

// RiskError indicates a risk rule rejected an action.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk check failed [%s]: %s (current: %.2f, limit: %.2f)", e.Rule, e.Message, e.Current, e.Limit)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}
