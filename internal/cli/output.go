package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"nse-oi-tracker/internal/models"
)

// Color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorWhite   = "\033[37m"
	ColorBold    = "\033[1m"
	ColorDim     = "\033[2m"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

// NewOutput creates a new Output instance. Colors are used only when writing
// to a terminal and --no-color is not set.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	w := cmd.OutOrStdout()
	return &Output{
		writer:       w,
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && !noColor && isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// Writer returns the underlying writer.
func (o *Output) Writer() io.Writer {
	return o.writer
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.colored(ColorGreen, format, args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.colored(ColorRed, format, args...)
}

// Warning prints a warning message in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.colored(ColorYellow, format, args...)
}

// Info prints an info message in cyan.
func (o *Output) Info(format string, args ...interface{}) {
	o.colored(ColorCyan, format, args...)
}

// Bold prints a bold message.
func (o *Output) Bold(format string, args ...interface{}) {
	o.colored(ColorBold, format, args...)
}

// Dim prints a dimmed message.
func (o *Output) Dim(format string, args ...interface{}) {
	o.colored(ColorDim, format, args...)
}

func (o *Output) colored(color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if o.colorEnabled {
		fmt.Fprintf(o.writer, "%s%s%s\n", color, msg, ColorReset)
	} else {
		fmt.Fprintln(o.writer, msg)
	}
}

// ColoredString returns a colored string without newline.
func (o *Output) ColoredString(color, text string) string {
	if o.colorEnabled {
		return color + text + ColorReset
	}
	return text
}

// Green returns green colored text.
func (o *Output) Green(text string) string {
	return o.ColoredString(ColorGreen, text)
}

// Red returns red colored text.
func (o *Output) Red(text string) string {
	return o.ColoredString(ColorRed, text)
}

// Yellow returns yellow colored text.
func (o *Output) Yellow(text string) string {
	return o.ColoredString(ColorYellow, text)
}

// Cyan returns cyan colored text.
func (o *Output) Cyan(text string) string {
	return o.ColoredString(ColorCyan, text)
}

// BoldText returns bold text.
func (o *Output) BoldText(text string) string {
	return o.ColoredString(ColorBold, text)
}

// SourceTag returns a bracketed tag naming where a view came from.
func (o *Output) SourceTag(source string) string {
	label := strings.ToUpper(source)
	switch source {
	case models.SourceLive:
		return "[" + o.Green(label) + "]"
	case models.SourceBackfill:
		return "[" + o.Cyan(label) + "]"
	case models.SourceDemo:
		return "[" + o.Yellow(label) + "]"
	}
	return "[" + label + "]"
}

// Trend colors a trend label.
func (o *Output) Trend(trend models.Trend) string {
	switch trend {
	case models.TrendBullish:
		return o.Green("▲ " + string(trend))
	case models.TrendBearish:
		return o.Red("▼ " + string(trend))
	}
	return o.Yellow("● " + string(trend))
}

// Change colors an open-interest change.
func (o *Output) Change(qty int64) string {
	switch {
	case qty > 0:
		return o.Green(FormatSigned(qty))
	case qty < 0:
		return o.Red(FormatSigned(qty))
	}
	return FormatSigned(qty)
}

// MarketStatus renders market status with appropriate color.
func (o *Output) MarketStatus(status models.MarketStatus) string {
	switch status {
	case models.MarketOpen:
		return o.Green("● OPEN")
	case models.MarketPreOpen:
		return o.Yellow("● PRE-OPEN")
	case models.MarketClosed:
		return o.Red("● CLOSED")
	}
	return string(status)
}

// NewTable returns a table writer styled for terminal output.
func (o *Output) NewTable(headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(o.writer)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetCenterSeparator(" ")
	table.SetHeaderLine(true)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

// stripANSI removes the color codes above from s.
func stripANSI(s string) string {
	for _, esc := range []string{
		ColorReset, ColorRed, ColorGreen, ColorYellow,
		ColorBlue, ColorMagenta, ColorCyan, ColorWhite,
		ColorBold, ColorDim,
	} {
		s = strings.ReplaceAll(s, esc, "")
	}
	return s
}

// Box draws a box around content.
func (o *Output) Box(title string, content []string) {
	width := len([]rune(title))
	for _, line := range content {
		if n := len([]rune(stripANSI(line))); n > width {
			width = n
		}
	}
	border := strings.Repeat("─", width+2)

	o.Printf("%s\n", o.ColoredString(ColorDim, "┌"+border+"┐"))
	o.Printf("%s %s%s %s\n", o.ColoredString(ColorDim, "│"), o.BoldText(title),
		strings.Repeat(" ", width-len([]rune(title))), o.ColoredString(ColorDim, "│"))
	o.Printf("%s\n", o.ColoredString(ColorDim, "├"+border+"┤"))
	for _, line := range content {
		pad := width - len([]rune(stripANSI(line)))
		o.Printf("%s %s%s %s\n", o.ColoredString(ColorDim, "│"), line, strings.Repeat(" ", pad), o.ColoredString(ColorDim, "│"))
	}
	o.Printf("%s\n", o.ColoredString(ColorDim, "└"+border+"┘"))
}

// Progress prints a one-line progress bar.
func (o *Output) Progress(current, total int, message string) {
	if total <= 0 {
		o.Printf("%s\n", message)
		return
	}
	barWidth := 20
	filled := barWidth * current / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	o.Printf("[%s] %3d%% %s\n", bar, 100*current/total, message)
}
