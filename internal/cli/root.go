// Package cli provides the command-line interface for the option-chain tracker.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nse-oi-tracker/internal/config"
	"nse-oi-tracker/internal/logging"
	"nse-oi-tracker/internal/models"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "oi-tracker",
		Short: "NSE option-chain open interest tracker",
		Long: `oi-tracker follows open interest on NSE index option chains.

It computes put-call ratios, max pain, ATM, support and resistance from the
option chain, keeps an intraday history of snapshots and can rebuild that
history for the current session with a backfill.

Supported indices: NIFTY, BANKNIFTY, FINNIFTY.`,
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

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/nse-oi-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", !app.Config.UI.ColorEnabled, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addDashboardCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func symbolArg(args []string) (models.Index, error) {
	if len(args) == 0 {
		return models.IndexNifty, nil
	}
	return models.ParseIndex(args[0])
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("oi-tracker v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				shown := *app.Config
				shown.Store.RedisURL = shown.Store.RedactedRedisURL()
				return output.JSON(shown)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
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
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Provider")
	output.Printf("  Base URL:        %s\n", cfg.Provider.BaseURL)
	output.Printf("  Timeout:         %s\n", cfg.Provider.Timeout)
	output.Printf("  Lookup Timeout:  %s\n", cfg.Provider.LookupTimeout)
	output.Printf("  Breaker:         %d failures, %s open\n", cfg.Provider.FailureThreshold, cfg.Provider.BreakerTimeout)
	output.Println()

	output.Bold("Backfill")
	output.Printf("  Start:           %s\n", cfg.Backfill.Start)
	output.Printf("  Step:            %d min\n", cfg.Backfill.StepMinutes)
	output.Printf("  Request Delay:   %s\n", cfg.Backfill.RequestDelay)
	output.Printf("  Max Attempts:    %d\n", cfg.Backfill.MaxAttempts)
	output.Println()

	output.Bold("History Store")
	output.Printf("  Backend:         %s\n", cfg.Store.Backend)
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		output.Printf("  Path:            %s\n", cfg.Store.Path)
	case config.BackendRedis:
		output.Printf("  Redis URL:       %s\n", cfg.Store.RedactedRedisURL())
	}
	output.Printf("  Key:             %s\n", cfg.Store.Key)
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Printf("  Log Level:       %s\n", cfg.Log.Level)

	return nil
}
