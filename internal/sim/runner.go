package sim

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"signal-trader/internal/config"
	"signal-trader/internal/decision"
	"signal-trader/internal/journal"
	"signal-trader/internal/models"
	"signal-trader/internal/portfolio"
	"signal-trader/internal/risk"
	"signal-trader/pkg/utils"
)

// Runner drives the paper/live trading loop: it polls the feed on a
// fixed interval during the trading session and pushes each batch of
// rows through the same pipeline the backtest uses. A monitoring loop
// records equity snapshots concurrently; the shared ledger serializes
// all mutation behind the portfolio manager.
type Runner struct {
	pipe    *pipeline
	feed    LiveFeed
	session *utils.Session
	cfg     config.PaperConfig
	logger  zerolog.Logger
}

// NewRunner assembles a paper trading runner. jnl may be nil.
func NewRunner(cfg *config.Config, combiner *decision.Combiner, hub *decision.Hub, feed LiveFeed, jnl *journal.Journal, logger zerolog.Logger) (*Runner, error) {
	session, err := utils.NewSession(cfg.Paper.SessionOpen, cfg.Paper.SessionClose, cfg.Paper.Timezone)
	if err != nil {
		return nil, err
	}

	return &Runner{
		pipe: &pipeline{
			combiner:   combiner,
			hub:        hub,
			sizer:      risk.NewSizer(cfg.Sizing),
			riskMgr:    risk.NewManager(cfg.Risk, logger),
			portfolio:  portfolio.NewManager(cfg.Engine.InitialCapital, logger),
			journal:    jnl,
			slippage:   cfg.Engine.Slippage,
			commission: cfg.Engine.Commission,
			logger:     logger,
		},
		feed:    feed,
		session: session,
		cfg:     cfg.Paper,
		logger:  logger,
	}, nil
}

// Run blocks until the context is cancelled or a fatal error occurs.
// Cancellation is graceful: an in-flight tick finishes its trades
// before the loops exit.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.tradingLoop(ctx) })
	g.Go(func() error { return r.monitorLoop(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) tradingLoop(ctx context.Context) error {
	r.logger.Info().
		Strs("symbols", r.cfg.Symbols).
		Dur("poll_interval", r.cfg.PollInterval).
		Msg("Paper trading loop started")

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		now := time.Now()
		if r.session.IsOpen(now) {
			if err := r.processTick(ctx, now); err != nil {
				return err
			}
		} else {
			r.logger.Debug().
				Time("next_open", r.session.NextOpen(now)).
				Msg("Session closed, idling")
		}

		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Paper trading loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processTick fetches one batch of rows and steps each symbol in a
// fixed lexical order, matching the backtest ordering.
func (r *Runner) processTick(ctx context.Context, now time.Time) error {
	rows, err := r.feed.Fetch(ctx, r.cfg.Symbols, now)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Feed fetch failed, skipping tick")
		return nil
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Symbol < rows[j].Symbol
	})
	for _, row := range rows {
		if err := r.pipe.step(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) monitorLoop(ctx context.Context) error {
	interval := r.cfg.MonitorInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			point := r.pipe.recordEquity(time.Now())
			r.logger.Info().
				Float64("cash", point.Cash).
				Float64("equity", point.Equity).
				Int("open_positions", r.pipe.portfolio.OpenPositionCount()).
				Msg("Portfolio snapshot")
		}
	}
}

// Snapshot exposes a copy-on-read view of the ledger for reporting.
func (r *Runner) Snapshot() models.Snapshot {
	return r.pipe.portfolio.Snapshot(time.Now())
}
