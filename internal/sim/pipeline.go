// Package sim implements the time-stepped simulation loop used
// identically for historical replay and paper execution.
package sim

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"signal-trader/internal/decision"
	apperrors "signal-trader/internal/errors"
	"signal-trader/internal/journal"
	"signal-trader/internal/logging"
	"signal-trader/internal/models"
	"signal-trader/internal/portfolio"
	"signal-trader/internal/risk"
)

// endOfRunReason marks positions closed when a backtest finishes.
const endOfRunReason = "end_of_run"

// pipeline is the per-symbol per-tick decision path:
// Combiner -> Sizer -> RiskManager -> PortfolioManager, in that order.
// Backtest and paper modes share this single implementation.
type pipeline struct {
	combiner  *decision.Combiner
	hub       *decision.Hub
	sizer     *risk.Sizer
	riskMgr   *risk.Manager
	portfolio *portfolio.Manager
	journal   *journal.Journal // optional

	slippage   float64
	commission float64
	logger     zerolog.Logger
}

// step processes one feature row. Recoverable conditions (data gaps,
// rejected trades, risk vetoes) are logged and absorbed; only a fatal
// ledger violation is returned as an error.
func (p *pipeline) step(ctx context.Context, row models.FeatureRow) error {
	if !row.Valid() {
		gap := &apperrors.DataGapError{Symbol: row.Symbol, Timestamp: row.Timestamp, Field: "close"}
		p.logger.Warn().Err(gap).Msg("Skipping symbol for this tick")
		return nil
	}

	if err := p.portfolio.MarkPrice(row.Symbol, row.Close); err != nil {
		return err
	}

	// Forced exits run before the combiner so a stop or target always
	// fires regardless of what the signals say.
	if pos, ok := p.portfolio.Position(row.Symbol); ok {
		if reason, forced := p.riskMgr.ForcedExit(pos, row.Close); forced {
			return p.exit(row, pos, reason)
		}
	}

	mkt := p.hub.Resolve(ctx, row.Symbol, row.Timestamp)
	d := p.combiner.Decide(ctx, row, mkt)

	logging.LogDecision(p.logger, d)
	if p.journal != nil {
		if err := p.journal.RecordDecision(d); err != nil {
			p.logger.Warn().Err(err).Msg("Journal decision write failed")
		}
	}

	switch d.Action {
	case models.ActionBuy:
		return p.enter(row, d, mkt)
	case models.ActionSell:
		if pos, ok := p.portfolio.Position(row.Symbol); ok {
			return p.exit(row, pos, risk.ReasonSignal)
		}
	}
	return nil
}

// enter attempts to open a position for a BUY decision.
func (p *pipeline) enter(row models.FeatureRow, d models.Decision, mkt decision.MarketContext) error {
	if _, open := p.portfolio.Position(row.Symbol); open {
		p.logger.Debug().Str("symbol", row.Symbol).Msg("BUY signal while long, holding")
		return nil
	}

	if err := p.riskMgr.AllowBuy(row.Timestamp, p.portfolio.Equity(), mkt); err != nil {
		p.logger.Info().Err(err).Str("symbol", row.Symbol).Msg("BUY vetoed")
		return nil
	}

	qty := p.sizer.Quantity(d, p.portfolio.Equity(), row.Close, mkt)
	if qty == 0 {
		p.logger.Debug().Str("symbol", row.Symbol).Msg("Sized to zero, no trade")
		return nil
	}

	fill := row.Close * (1 + p.slippage)
	trade, err := p.portfolio.ExecuteTrade(portfolio.TradeRequest{
		Symbol:      row.Symbol,
		Side:        models.SideBuy,
		Quantity:    qty,
		Price:       fill,
		Commission:  p.commission,
		Timestamp:   row.Timestamp,
		Reason:      risk.ReasonSignal,
		StopPrice:   p.riskMgr.StopPrice(fill),
		TargetPrice: p.riskMgr.TargetPrice(fill),
	})
	if err != nil {
		return p.absorbTradeError(row.Symbol, models.SideBuy, err)
	}
	p.recordTrade(trade)
	return nil
}

// exit closes the full position at the row's price.
func (p *pipeline) exit(row models.FeatureRow, pos models.Position, reason string) error {
	fill := row.Close * (1 - p.slippage)
	trade, err := p.portfolio.ExecuteTrade(portfolio.TradeRequest{
		Symbol:     row.Symbol,
		Side:       models.SideSell,
		Quantity:   pos.Quantity,
		Price:      fill,
		Commission: p.commission,
		Timestamp:  row.Timestamp,
		Reason:     reason,
	})
	if err != nil {
		return p.absorbTradeError(row.Symbol, models.SideSell, err)
	}
	p.riskMgr.RecordRealized(trade.Timestamp, trade.RealizedPnL)
	p.recordTrade(trade)
	return nil
}

// absorbTradeError logs rejections and propagates fatal ledger errors.
func (p *pipeline) absorbTradeError(symbol string, side models.Side, err error) error {
	var ledgerErr *apperrors.LedgerError
	if apperrors.As(err, &ledgerErr) {
		return err
	}
	logging.LogRejection(p.logger, symbol, side, err)
	return nil
}

func (p *pipeline) recordTrade(trade models.Trade) {
	logging.LogTrade(p.logger, trade)
	if p.journal != nil {
		if err := p.journal.RecordTrade(trade); err != nil {
			p.logger.Warn().Err(err).Msg("Journal trade write failed")
		}
	}
}

func (p *pipeline) recordEquity(ts time.Time) models.EquityPoint {
	point := models.EquityPoint{
		Timestamp: ts,
		Cash:      p.portfolio.Cash(),
		Equity:    p.portfolio.Equity(),
	}
	if p.journal != nil {
		if err := p.journal.RecordEquity(point); err != nil {
			p.logger.Warn().Err(err).Msg("Journal equity write failed")
		}
	}
	return point
}
