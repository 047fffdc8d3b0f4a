package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"nse-oi-tracker/internal/models"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ExportDocument is the JSON export of the current view.
type ExportDocument struct {
	ExportedAt      time.Time             `json:"exportedAt"`
	Source          string                `json:"source"`
	Symbol          models.Index          `json:"symbol"`
	Timestamp       time.Time             `json:"timestamp"`
	UnderlyingValue float64               `json:"underlyingValue"`
	Expiries        []string              `json:"expiries"`
	Analysis        models.AnalysisResult `json:"analysis"`
	Strikes         []StrikeRow           `json:"strikes"`
}

// StrikeRow is one strike of an export.
type StrikeRow struct {
	Strike       float64 `csv:"strike" json:"strike"`
	Expiry       string  `csv:"expiry" json:"expiry"`
	CallOI       int64   `csv:"call_oi" json:"callOI"`
	CallChangeOI int64   `csv:"call_change_oi" json:"callChangeOI"`
	CallVolume   int64   `csv:"call_volume" json:"callVolume"`
	CallLTP      float64 `csv:"call_ltp" json:"callLTP"`
	PutOI        int64   `csv:"put_oi" json:"putOI"`
	PutChangeOI  int64   `csv:"put_change_oi" json:"putChangeOI"`
	PutVolume    int64   `csv:"put_volume" json:"putVolume"`
	PutLTP       float64 `csv:"put_ltp" json:"putLTP"`
}

// Rows flattens a chain into one row per strike, ascending.
func Rows(chain *models.OptionChain) []StrikeRow {
	rows := make([]StrikeRow, 0, len(chain.Strikes))
	for _, rec := range chain.Strikes {
		row := StrikeRow{Strike: rec.Strike, Expiry: rec.Expiry}
		if c := rec.Call; c != nil {
			row.CallOI, row.CallChangeOI, row.CallVolume, row.CallLTP = c.OI, c.ChangeOI, c.Volume, c.LTP
		}
		if p := rec.Put; p != nil {
			row.PutOI, row.PutChangeOI, row.PutVolume, row.PutLTP = p.OI, p.ChangeOI, p.Volume, p.LTP
		}
		rows = append(rows, row)
	}
	return rows
}

// Document builds the export document for view.
func Document(view *models.LiveView, exportedAt time.Time) ExportDocument {
	return ExportDocument{
		ExportedAt:      exportedAt,
		Source:          view.Source,
		Symbol:          view.Chain.Symbol,
		Timestamp:       view.Chain.Timestamp,
		UnderlyingValue: view.Chain.UnderlyingValue,
		Expiries:        view.Chain.Expiries,
		Analysis:        view.Analysis,
		Strikes:         Rows(view.Chain),
	}
}

// Export writes the latest view to w in format. It fails with ErrNoSnapshot
// before any view exists.
func (s *Service) Export(w io.Writer, format string) error {
	view, err := s.Latest()
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Document(view, s.now()))
	case FormatCSV:
		rows := Rows(view.Chain)
		return gocsv.Marshal(&rows, w)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ExportFilename suggests a file name for an export of the latest view.
func (s *Service) ExportFilename(format string) string {
	view, err := s.Latest()
	if err != nil || view.Chain == nil {
		return "option-chain." + strings.ToLower(format)
	}
	return fmt.Sprintf("%s-%s.%s",
		strings.ToLower(view.Chain.Symbol.String()),
		view.Chain.Timestamp.Format("20060102-1504"),
		strings.ToLower(format))
}
