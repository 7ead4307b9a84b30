package cli

import (
	"math"

	"github.com/spf13/cobra"

	"signal-trader/internal/decision"
	"signal-trader/internal/journal"
	"signal-trader/internal/scoring"
	"signal-trader/internal/sim"
	"signal-trader/pkg/utils"
)

func newBacktestCmd(app *App) *cobra.Command {
	var (
		dataPath        string
		predictionsPath string
		journalPath     string
		capital         float64
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a historical feature table through the decision pipeline",
		Long: `Backtest loads a pre-materialized feature table (CSV with
symbol,timestamp,open,high,low,close,volume plus indicator columns) and
replays it chronologically. Repeated runs over the same input and
configuration produce identical trade logs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := *app.Config
			if capital > 0 {
				cfg.Engine.InitialCapital = capital
			}

			rows, err := sim.LoadCSV(dataPath)
			if err != nil {
				return err
			}

			var jnl *journal.Journal
			if journalPath != "" {
				jnl, err = journal.Open(journalPath)
				if err != nil {
					return err
				}
				defer jnl.Close()
			}

			var classifier decision.Classifier
			if predictionsPath != "" {
				classifier, err = decision.LoadPredictionsCSV(predictionsPath)
				if err != nil {
					return err
				}
			}

			scorer := scoring.NewRuleScorer(scoring.DefaultSignals(cfg.Weights, cfg.Signals))
			combiner := decision.NewCombiner(scorer, classifier, cfg.Decision, app.Logger)
			hub := decision.NewHub(nil, nil, nil, nil, cfg.Context, app.Logger)

			bt := sim.NewBacktest(&cfg, combiner, hub, jnl, app.Logger)
			result, err := bt.Run(cmd.Context(), rows)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printResult(output, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to the feature table CSV (required)")
	cmd.Flags().StringVar(&predictionsPath, "predictions", "", "classifier prediction CSV (symbol,timestamp,p_sell,p_hold,p_buy); omit for rule-only decisions")
	cmd.Flags().StringVar(&journalPath, "journal", "", "record decisions and trades to this SQLite journal")
	cmd.Flags().Float64Var(&capital, "capital", 0, "override initial capital")
	cmd.MarkFlagRequired("data")

	return cmd
}

func printResult(output *Output, result *sim.Result) {
	output.Bold("Backtest Result")
	output.Printf("  %-18s%s\n", "Initial Capital", utils.FormatCurrency(result.InitialCapital))
	output.Printf("  %-18s%s\n", "Final Equity", utils.FormatCurrency(result.FinalEquity))
	output.Signed("Total Return", result.TotalReturnPct, utils.FormatPercent(result.TotalReturnPct))
	output.Println()

	m := result.Metrics
	output.Bold("Metrics")
	output.Printf("  %-18s%d (%d won / %d lost)\n", "Closed Trades", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	output.Printf("  %-18s%.1f%%\n", "Win Rate", m.WinRate)
	if !math.IsInf(m.ProfitFactor, 1) {
		output.Printf("  %-18s%.2f\n", "Profit Factor", m.ProfitFactor)
	}
	output.Printf("  %-18s%.2f\n", "Sharpe Ratio", m.SharpeRatio)
	output.Printf("  %-18s%.1f%%\n", "Max Drawdown", m.MaxDrawdown*100)
}
