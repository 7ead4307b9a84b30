package cli

import (
	"time"

	"github.com/spf13/cobra"

	"signal-trader/internal/journal"
	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

func newReportCmd(app *App) *cobra.Command {
	var (
		journalPath string
		days        int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded trades from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := journalPath
			if path == "" {
				path = app.Config.Journal.Path
			}

			jnl, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer jnl.Close()

			since := time.Time{}
			if days > 0 {
				since = time.Now().AddDate(0, 0, -days)
			}

			trades, err := jnl.Trades(since)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			printTrades(output, trades)
			return nil
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", "", "journal path (default: config)")
	cmd.Flags().IntVar(&days, "days", 0, "limit to the last N days")

	return cmd
}

func printTrades(output *Output, trades []models.Trade) {
	if len(trades) == 0 {
		output.Dim("No trades recorded.")
		return
	}

	output.Bold("%-20s %-8s %-5s %8s %12s %12s  %s", "Time", "Symbol", "Side", "Qty", "Price", "P&L", "Reason")
	var realized float64
	var wins, closed int
	for _, t := range trades {
		pnl := ""
		if t.Side == models.SideSell {
			pnl = utils.FormatCurrency(t.RealizedPnL)
			realized += t.RealizedPnL
			closed++
			if t.RealizedPnL > 0 {
				wins++
			}
		}
		output.Printf("%-20s %-8s %-5s %8d %12s %12s  %s\n",
			t.Timestamp.Format("2006-01-02 15:04"), t.Symbol, t.Side, t.Quantity,
			utils.FormatCurrency(t.Price), pnl, t.Reason)
	}

	output.Println()
	output.Signed("Realized P&L", realized, utils.FormatCurrency(realized))
	if closed > 0 {
		output.Printf("  %-18s%.1f%% (%d/%d)\n", "Win Rate", float64(wins)/float64(closed)*100, wins, closed)
	}
}
