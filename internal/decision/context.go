package decision

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signal-trader/internal/config"
	apperrors "signal-trader/internal/errors"
	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// Hub resolves context readings for the decision pipeline. Each source
// call is time-bounded; on timeout or error the last cached reading is
// used, and a reading past its TTL degrades to neutral (nil). A stalled
// external call never stalls a trading decision.
type Hub struct {
	sentiment ContextSource
	sector    ContextSource
	macro     ContextSource
	filter    ContextSource

	cfg    config.ContextConfig
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[string]models.ContextReading
}

// NewHub creates a context hub. Any source may be nil; its reading is
// then always neutral.
func NewHub(sentiment, sector, macro, filter ContextSource, cfg config.ContextConfig, logger zerolog.Logger) *Hub {
	return &Hub{
		sentiment: sentiment,
		sector:    sector,
		macro:     macro,
		filter:    filter,
		cfg:       cfg,
		logger:    logger,
		cache:     make(map[string]models.ContextReading),
	}
}

// Resolve returns the staleness-checked context for one symbol at the
// given time. Backtest callers pass the bar clock; paper callers pass
// wall-clock now.
func (h *Hub) Resolve(ctx context.Context, symbol string, now time.Time) MarketContext {
	return MarketContext{
		Sentiment: h.reading(ctx, "sentiment", h.sentiment, symbol, now, h.cfg.SentimentTTL),
		Sector:    h.reading(ctx, "sector", h.sector, symbol, now, h.cfg.SectorTTL),
		Macro:     h.reading(ctx, "macro", h.macro, "", now, h.cfg.MacroTTL),
		Filter:    h.reading(ctx, "filter", h.filter, "", now, h.cfg.FilterTTL),
	}
}

func (h *Hub) reading(ctx context.Context, name string, src ContextSource, symbol string, now time.Time, ttl time.Duration) *models.ContextReading {
	if src == nil {
		return nil
	}
	key := name + "/" + symbol

	fetchCtx := ctx
	var cancel context.CancelFunc
	if h.cfg.FetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, h.cfg.FetchTimeout)
		defer cancel()
	}

	retryCfg := utils.RetryConfig{
		MaxAttempts:   h.cfg.FetchAttempts,
		InitialDelay:  h.cfg.RetryDelay,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
	reading, err := utils.RetryWithResult(fetchCtx, retryCfg, func() (models.ContextReading, error) {
		return src.Current(fetchCtx, symbol)
	})
	if err == nil {
		if reading.TTL <= 0 {
			reading.TTL = ttl
		}
		h.mu.Lock()
		h.cache[key] = reading
		h.mu.Unlock()
	} else {
		h.logger.Debug().Err(err).Str("source", name).Str("symbol", symbol).Msg("Context fetch failed, using cache")
		h.mu.Lock()
		cached, ok := h.cache[key]
		h.mu.Unlock()
		if !ok {
			return nil
		}
		reading = cached
	}

	if reading.Stale(now) {
		staleErr := &apperrors.StaleContextError{Source: name, AsOf: reading.AsOf, TTL: reading.TTL}
		h.logger.Debug().Err(staleErr).Str("symbol", symbol).Msg("Context stale, degrading to neutral")
		return nil
	}
	return &reading
}

// StaticSource is a ContextSource with a fixed reading, used for
// backtests with pre-materialized context and in tests.
type StaticSource struct {
	Reading models.ContextReading
}

// Current returns the fixed reading.
func (s StaticSource) Current(ctx context.Context, symbol string) (models.ContextReading, error) {
	return s.Reading, nil
}

var _ ContextSource = StaticSource{}
