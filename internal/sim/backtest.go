package sim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"signal-trader/internal/config"
	"signal-trader/internal/decision"
	"signal-trader/internal/journal"
	"signal-trader/internal/models"
	"signal-trader/internal/portfolio"
	"signal-trader/internal/risk"
)

// Result holds the outcome of one backtest run.
type Result struct {
	InitialCapital float64
	FinalEquity    float64
	TotalReturnPct float64
	Trades         []models.Trade
	EquityCurve    []models.EquityPoint
	Metrics        Metrics
}

// Backtest replays a historical feature table through the decision
// pipeline. It is single threaded and fully deterministic: identical
// input and configuration produce an identical trade log.
type Backtest struct {
	pipe   *pipeline
	cfg    config.EngineConfig
	logger zerolog.Logger
}

// NewBacktest assembles a backtest run. classifier and jnl may be nil.
func NewBacktest(cfg *config.Config, combiner *decision.Combiner, hub *decision.Hub, jnl *journal.Journal, logger zerolog.Logger) *Backtest {
	ledger := portfolio.NewManager(cfg.Engine.InitialCapital, logger)

	// Sequential IDs keep repeated runs byte identical.
	var decisionSeq, tradeSeq int
	combiner.SetIDFunc(func() string {
		decisionSeq++
		return fmt.Sprintf("bt-d-%06d", decisionSeq)
	})
	ledger.SetIDFunc(func() string {
		tradeSeq++
		return fmt.Sprintf("bt-t-%06d", tradeSeq)
	})

	return &Backtest{
		pipe: &pipeline{
			combiner:   combiner,
			hub:        hub,
			sizer:      risk.NewSizer(cfg.Sizing),
			riskMgr:    risk.NewManager(cfg.Risk, logger),
			portfolio:  ledger,
			journal:    jnl,
			slippage:   cfg.Engine.Slippage,
			commission: cfg.Engine.Commission,
			logger:     logger,
		},
		cfg:    cfg.Engine,
		logger: logger,
	}
}

// Run replays the rows in strict chronological order. Within one tick,
// symbols are processed in lexical order; this fixed ordering is part
// of the determinism contract.
func (b *Backtest) Run(ctx context.Context, rows []models.FeatureRow) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no feature rows to replay")
	}

	ticks := groupByTick(rows)

	b.logger.Info().
		Int("rows", len(rows)).
		Int("ticks", len(ticks)).
		Float64("initial_capital", b.cfg.InitialCapital).
		Msg("Backtest started")

	var curve []models.EquityPoint
	lastRow := make(map[string]models.FeatureRow)

	for _, tick := range ticks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for _, row := range tick.rows {
			if err := b.pipe.step(ctx, row); err != nil {
				return nil, err
			}
			lastRow[row.Symbol] = row
		}
		curve = append(curve, b.pipe.recordEquity(tick.ts))
	}

	// Close any open positions at their last seen price so the result
	// reflects realized performance only.
	if err := b.closeOpenPositions(lastRow); err != nil {
		return nil, err
	}

	snap := b.pipe.portfolio.Snapshot(ticks[len(ticks)-1].ts)
	result := &Result{
		InitialCapital: b.cfg.InitialCapital,
		FinalEquity:    snap.Equity,
		TotalReturnPct: (snap.Equity - b.cfg.InitialCapital) / b.cfg.InitialCapital * 100,
		Trades:         snap.Trades,
		EquityCurve:    curve,
		Metrics:        computeMetrics(snap.Trades, curve, b.cfg.InitialCapital),
	}

	b.logger.Info().
		Float64("final_equity", result.FinalEquity).
		Float64("return_pct", result.TotalReturnPct).
		Int("trades", len(result.Trades)).
		Msg("Backtest finished")
	return result, nil
}

func (b *Backtest) closeOpenPositions(lastRow map[string]models.FeatureRow) error {
	snap := b.pipe.portfolio.Snapshot(time.Time{})
	for _, pos := range snap.Positions {
		row, ok := lastRow[pos.Symbol]
		if !ok {
			continue
		}
		if err := b.pipe.exit(row, pos, endOfRunReason); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot exposes the final ledger state for reporting.
func (b *Backtest) Snapshot(asOf time.Time) models.Snapshot {
	return b.pipe.portfolio.Snapshot(asOf)
}

type tick struct {
	ts   time.Time
	rows []models.FeatureRow
}

// groupByTick buckets rows by timestamp, orders ticks chronologically,
// and orders symbols lexically within each tick.
func groupByTick(rows []models.FeatureRow) []tick {
	byTime := make(map[time.Time][]models.FeatureRow)
	for _, row := range rows {
		key := row.Timestamp.UTC()
		byTime[key] = append(byTime[key], row)
	}

	ticks := make([]tick, 0, len(byTime))
	for ts, group := range byTime {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Symbol < group[j].Symbol
		})
		ticks = append(ticks, tick{ts: ts, rows: group})
	}
	sort.Slice(ticks, func(i, j int) bool {
		return ticks[i].ts.Before(ticks[j].ts)
	})
	return ticks
}
