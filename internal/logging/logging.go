// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"signal-trader/internal/config"
	"signal-trader/internal/models"
)

// New creates a logger from the application logging configuration:
// console writer plus a rotating file writer when a file path is set.
func New(cfg config.LoggingConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	if cfg.File != "" {
		logDir := filepath.Dir(cfg.File)
		if err := os.MkdirAll(logDir, 0o755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithComponent adds a component name to the logger context.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// LogDecision logs an emitted decision.
func LogDecision(logger zerolog.Logger, d models.Decision) {
	logger.Info().
		Str("event", "decision").
		Str("decision_id", d.ID).
		Str("symbol", d.Symbol).
		Str("action", string(d.Action)).
		Float64("confidence", d.Confidence).
		Float64("buy_score", d.BuyScore).
		Float64("sell_score", d.SellScore).
		Strs("reasons", d.Reasons).
		Msg("Decision")
}

// LogTrade logs an executed trade.
func LogTrade(logger zerolog.Logger, t models.Trade) {
	event := logger.Info().
		Str("event", "trade").
		Str("trade_id", t.ID).
		Str("symbol", t.Symbol).
		Str("side", string(t.Side)).
		Int("quantity", t.Quantity).
		Float64("price", t.Price).
		Str("reason", t.Reason)
	if t.Side == models.SideSell {
		event = event.Float64("realized_pnl", t.RealizedPnL)
	}
	event.Msg("Trade executed")
}

// LogRejection logs a trade attempt that was rejected without side effects.
func LogRejection(logger zerolog.Logger, symbol string, side models.Side, err error) {
	logger.Warn().
		Str("event", "trade_rejected").
		Str("symbol", symbol).
		Str("side", string(side)).
		Err(err).
		Msg("Trade rejected")
}
