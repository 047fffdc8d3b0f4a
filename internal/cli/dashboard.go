package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nse-oi-tracker/internal/backfill"
	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/models"
	"nse-oi-tracker/pkg/utils"
)

// addDashboardCommands adds the live view and backfill commands.
func addDashboardCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newLiveCmd(app))
	rootCmd.AddCommand(newBackfillCmd(app))
}

func newLiveCmd(app *App) *cobra.Command {
	var strikes int
	var watch time.Duration

	cmd := &cobra.Command{
		Use:   "live [SYMBOL]",
		Short: "Show the live option chain and its analysis",
		Long: `Fetch the current option chain for an index and show PCR, max pain,
ATM, support, resistance and trend along with the strikes around ATM.

When the relay cannot be reached, a demonstration chain is shown instead.`,
		Example: `  oi-tracker live
  oi-tracker live BANKNIFTY --strikes 5
  oi-tracker live NIFTY --watch 1m`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol, err := symbolArg(args)
			if err != nil {
				return err
			}
			if strikes <= 0 {
				strikes = app.Config.UI.Strikes
			}

			ctx := cmd.Context()
			for {
				if err := showLive(cmd, app, output, symbol, strikes); err != nil {
					return err
				}
				if watch <= 0 || output.IsJSON() {
					return nil
				}
				if err := utils.Sleep(ctx, watch); err != nil {
					return nil
				}
				output.Println()
			}
		},
	}

	cmd.Flags().IntVarP(&strikes, "strikes", "n", 0, "strikes shown on each side of ATM (default from config)")
	cmd.Flags().DurationVarP(&watch, "watch", "w", 0, "refresh at this interval until interrupted")

	return cmd
}

func showLive(cmd *cobra.Command, app *App, output *Output, symbol models.Index, strikes int) error {
	view, err := app.Service.Live(cmd.Context(), symbol)
	if view == nil {
		return err
	}

	if output.IsJSON() {
		resp := map[string]interface{}{"view": view}
		if err != nil {
			resp["warning"] = err.Error()
		}
		return output.JSON(resp)
	}

	if err != nil {
		output.Warning("⚠ Showing demo data: %v", err)
		output.Println()
	}
	renderView(output, view, strikes)
	return nil
}

func renderView(output *Output, view *models.LiveView, strikes int) {
	chain, res := view.Chain, view.Analysis

	title := fmt.Sprintf("%s %s  %s  %s", chain.Symbol, output.SourceTag(view.Source),
		FormatDateTime(chain.Timestamp), output.MarketStatus(utils.MarketStatusAt(chain.Timestamp)))
	output.Printf("%s\n\n", title)

	output.Box("Open Interest Summary", []string{
		fmt.Sprintf("Spot        %s", FormatPrice(chain.UnderlyingValue)),
		fmt.Sprintf("PCR (OI)    %s", FormatPCR(res.PCR)),
		fmt.Sprintf("PCR (Vol)   %s", FormatPCR(res.VolumePCR)),
		fmt.Sprintf("Max Pain    %s", FormatStrike(res.MaxPain)),
		fmt.Sprintf("ATM         %s", FormatStrike(res.ATMStrike)),
		fmt.Sprintf("Support     %s", output.Green(FormatStrike(res.Support))),
		fmt.Sprintf("Resistance  %s", output.Red(FormatStrike(res.Resistance))),
		fmt.Sprintf("CE OI       %s (%s)", FormatOI(res.TotalCallOI), output.Change(res.TotalCallChOI)),
		fmt.Sprintf("PE OI       %s (%s)", FormatOI(res.TotalPutOI), output.Change(res.TotalPutChOI)),
		fmt.Sprintf("Trend       %s", output.Trend(res.Trend)),
	})
	output.Println()

	rows := strikeWindow(chain.Strikes, res.ATMStrike, strikes)
	if len(rows) == 0 {
		output.Dim("No strikes in chain")
		return
	}

	table := output.NewTable("CE OI", "CE ΔOI", "CE LTP", "STRIKE", "PE LTP", "PE ΔOI", "PE OI")
	for _, rec := range rows {
		strike := FormatStrike(rec.Strike)
		if rec.Strike == res.ATMStrike {
			strike = output.BoldText(strike)
		}
		table.Append(append(append(legCells(output, rec.Call, true), strike), legCells(output, rec.Put, false)...))
	}
	table.Render()
}

// legCells renders one side of a strike row; calls read outward-in.
func legCells(output *Output, leg *models.OptionLeg, call bool) []string {
	if leg == nil {
		return []string{"-", "-", "-"}
	}
	cells := []string{FormatOI(leg.OI), output.Change(leg.ChangeOI), FormatPrice(leg.LTP)}
	if !call {
		cells[0], cells[2] = cells[2], cells[0]
	}
	return cells
}

// strikeWindow returns up to n strikes on each side of atm.
func strikeWindow(strikes []models.StrikeRecord, atm float64, n int) []models.StrikeRecord {
	if len(strikes) == 0 {
		return nil
	}
	center := 0
	for i, rec := range strikes {
		if rec.Strike == atm {
			center = i
			break
		}
	}
	lo, hi := center-n, center+n+1
	if lo < 0 {
		lo = 0
	}
	if hi > len(strikes) {
		hi = len(strikes)
	}
	return strikes[lo:hi]
}

func newBackfillCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill [SYMBOL]",
		Short: "Rebuild today's snapshot history",
		Long: `Fetch the option chain for every interval of the current session,
from the configured start time up to now, and merge the results into history.`,
		Example: `  oi-tracker backfill
  oi-tracker backfill BANKNIFTY`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol, err := symbolArg(args)
			if err != nil {
				return err
			}

			progress := func(p backfill.Progress) {
				if !output.IsJSON() {
					output.Progress(p.Done, p.Total, p.Message)
				}
			}

			res, err := app.Service.StartBackfill(cmd.Context(), symbol, progress)
			if err != nil {
				if errors.Is(err, errors.ErrLookupFailure) {
					output.Error("Backfill aborted: %v", err)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(res)
			}
			renderBackfill(output, res)
			return nil
		},
	}
}

func renderBackfill(output *Output, res *backfill.Result) {
	output.Println()
	output.Success("✓ Backfill %s: %d of %d intervals saved (expiry %s, %s)",
		res.Symbol, len(res.Summaries), len(res.Intervals), res.Expiry,
		FormatDuration(res.FinishedAt.Sub(res.StartedAt)))
	if len(res.Skipped) > 0 {
		output.Warning("Skipped: %v", res.Skipped)
	}
	if len(res.Summaries) > 0 && !res.Persisted {
		output.Warning("History store unavailable; results were not saved")
	}
	if len(res.Summaries) == 0 {
		return
	}
	output.Println()
	renderSummaries(output, res.Summaries)
}
