// Package cli provides the command-line interface for the trading engine.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"signal-trader/internal/config"
	"signal-trader/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "signal-trader",
		Short: "Rule-and-classifier trading decision engine",
		Long: `signal-trader decides, per instrument and per time step, whether to
BUY, SELL, or HOLD, with what confidence and size, then replays or
executes those decisions against a portfolio ledger under risk
constraints. The same decision pipeline drives historical backtests
and paper trading.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/signal-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newPaperCmd(app))
	rootCmd.AddCommand(newReportCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("signal-trader v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration template",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			path, err := config.WriteTemplate(dir)
			if err != nil {
				return err
			}
			output.Success("Wrote %s", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Engine")
	output.Printf("  Initial Capital:  %.2f\n", cfg.Engine.InitialCapital)
	output.Printf("  Slippage:         %.4f\n", cfg.Engine.Slippage)
	output.Printf("  Commission:       %.2f\n", cfg.Engine.Commission)
	output.Println()

	output.Bold("Decision")
	output.Printf("  Buy Threshold:    %.2f\n", cfg.Decision.BuyThreshold)
	output.Printf("  Sell Threshold:   %.2f\n", cfg.Decision.SellThreshold)
	output.Printf("  Score Cap:        %.2f\n", cfg.Decision.ScoreCap)
	output.Printf("  Blend (ml/rule):  %.2f / %.2f\n", cfg.Decision.MLWeight, cfg.Decision.RuleWeight)
	output.Println()

	output.Bold("Sizing")
	output.Printf("  Base Fraction:    %.2f\n", cfg.Sizing.BaseFraction)
	output.Printf("  Max Position %%:   %.0f%%\n", cfg.Sizing.MaxPositionPct*100)
	output.Println()

	output.Bold("Risk")
	output.Printf("  Stop Loss:        %.1f%%\n", cfg.Risk.StopLossPct*100)
	output.Printf("  Take Profit:      %.1f%%\n", cfg.Risk.TakeProfitPct*100)
	output.Printf("  Max Daily Loss:   %.1f%%\n", cfg.Risk.MaxDailyLossPct*100)
	output.Printf("  Macro Veto:       %v\n", cfg.Risk.MacroVetoBuy)
	output.Println()

	output.Bold("Paper")
	output.Printf("  Symbols:          %v\n", cfg.Paper.Symbols)
	output.Printf("  Poll Interval:    %s\n", cfg.Paper.PollInterval)
	output.Printf("  Session:          %s-%s %s\n", cfg.Paper.SessionOpen, cfg.Paper.SessionClose, cfg.Paper.Timezone)
}
