package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nse-oi-tracker/internal/dashboard"
	"nse-oi-tracker/internal/models"
)

// addHistoryCommands adds history and export commands.
func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
}

func newHistoryCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded snapshot history",
		Long:  "Show the recorded snapshot summaries, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			summaries := app.Service.History(cmd.Context())
			if limit > 0 && len(summaries) > limit {
				summaries = summaries[:limit]
			}

			if output.IsJSON() {
				return output.JSON(summaries)
			}
			if len(summaries) == 0 {
				output.Info("No snapshots recorded yet. Run 'oi-tracker live' or 'oi-tracker backfill'.")
				return nil
			}
			renderSummaries(output, summaries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum snapshots to show (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Service.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"cleared": true})
			}
			output.Success("✓ History cleared")
			return nil
		},
	})

	return cmd
}

func renderSummaries(output *Output, summaries []models.SnapshotSummary) {
	table := output.NewTable("TIME", "SPOT", "PCR", "ΔOI PCR", "MAX PAIN", "CE OI", "PE OI")
	for _, s := range summaries {
		changePCR := "-"
		if s.PCRChangeOI != nil {
			changePCR = FormatPCR(*s.PCRChangeOI)
		}
		table.Append([]string{
			FormatTime(s.Timestamp),
			FormatPrice(s.UnderlyingValue),
			FormatPCR(s.PCR),
			changePCR,
			FormatStrike(s.MaxPain),
			FormatOI(s.CETotalOI),
			FormatOI(s.PETotalOI),
		})
	}
	table.Render()
}

func newExportCmd(app *App) *cobra.Command {
	var format string
	var path string

	cmd := &cobra.Command{
		Use:   "export [SYMBOL]",
		Short: "Export the current option chain",
		Long: `Fetch the current option chain and write it as JSON or CSV.

Without --output the document is written to a file named after the symbol
and snapshot time. Use --output - for standard output.`,
		Example: `  oi-tracker export NIFTY --format csv
  oi-tracker export BANKNIFTY --output - | jq .analysis`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			format = strings.ToLower(format)
			if format != dashboard.FormatJSON && format != dashboard.FormatCSV {
				return fmt.Errorf("unsupported format %q (want json or csv)", format)
			}
			symbol, err := symbolArg(args)
			if err != nil {
				return err
			}

			view, err := app.Service.Live(cmd.Context(), symbol)
			if view == nil {
				return err
			}
			if err != nil {
				app.Logger.Warn().Err(err).Msg("Exporting demo data")
			}

			if path == "-" {
				return app.Service.Export(output.Writer(), format)
			}
			if path == "" {
				path = app.Service.ExportFilename(format)
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := app.Service.Export(f, format); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path, "source": view.Source})
			}
			output.Success("✓ Exported %s %s to %s", view.Chain.Symbol, output.SourceTag(view.Source), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", dashboard.FormatJSON, "export format (json, csv)")
	cmd.Flags().StringVarP(&path, "output", "o", "", "output file, or - for stdout")

	return cmd
}
