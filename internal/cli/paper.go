package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"signal-trader/internal/decision"
	"signal-trader/internal/journal"
	"signal-trader/internal/scoring"
	"signal-trader/internal/sim"
	"signal-trader/pkg/utils"
)

func newPaperCmd(app *App) *cobra.Command {
	var (
		dataPath string
		symbols  []string
	)

	cmd := &cobra.Command{
		Use:   "paper",
		Short: "Run the paper trading loop",
		Long: `Paper polls for feature rows during the trading session and runs
each batch through the same pipeline the backtest uses. The loop stops
on SIGINT/SIGTERM; an in-flight tick finishes its trades first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := *app.Config
			if len(symbols) > 0 {
				cfg.Paper.Symbols = symbols
			}

			rows, err := sim.LoadCSV(dataPath)
			if err != nil {
				return err
			}
			feed := sim.NewReplayFeed(rows)

			jnl, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer jnl.Close()

			scorer := scoring.NewRuleScorer(scoring.DefaultSignals(cfg.Weights, cfg.Signals))
			combiner := decision.NewCombiner(scorer, nil, cfg.Decision, app.Logger)
			hub := decision.NewHub(nil, nil, nil, nil, cfg.Context, app.Logger)

			runner, err := sim.NewRunner(&cfg, combiner, hub, feed, jnl, app.Logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runner.Run(ctx); err != nil {
				return err
			}

			snap := runner.Snapshot()
			output.Println()
			output.Bold("Final Portfolio")
			output.Printf("  %-18s%s\n", "Cash", utils.FormatCurrency(snap.Cash))
			output.Printf("  %-18s%s\n", "Equity", utils.FormatCurrency(snap.Equity))
			output.Printf("  %-18s%d\n", "Open Positions", len(snap.Positions))
			output.Printf("  %-18s%d\n", "Trades", len(snap.Trades))
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to the feature table CSV to replay (required)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to trade (default: config)")
	cmd.MarkFlagRequired("data")

	return cmd
}
