package export

import (
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sartorproj/autoforecast/cv"
	"github.com/sartorproj/autoforecast/experiment"
	"github.com/sartorproj/autoforecast/forecast"
)

// Precision is the number of decimal places written for numeric cells.
var Precision int32 = 4

// Column names of the comparison and forecast tables.
const (
	ColID       = "ID"
	ColModel    = "Model"
	ColTT       = "TT (Sec)"
	ColRank     = "Rank"
	ColFailed   = "Failed"
	ColTime     = "timestamp"
	ColForecast = "y_pred"
	ColLower    = "lower"
	ColUpper    = "upper"
)

// Table is a rectangular string table with a header.
type Table struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Column returns the index of the named column, or -1.
func (t Table) Column(name string) int {
	return slices.Index(t.Columns, name)
}

// ComparisonTable renders ranked records, one row per record in the given
// order. metrics selects the metric columns; they are always written in
// canonical order and nil selects all of them.
//
// Besides the candidate id, the metrics, Rank and Failed, the header carries
// two descriptive columns: Model holds the display name of the candidate
// (the id when the record has none) and TT (Sec) the mean wall time of its
// fold fits in seconds. The full header is
//
//	ID, Model, <metrics...>, TT (Sec), Rank, Failed
func ComparisonTable(records []cv.Record, metrics []string) Table {
	cols := make([]string, 0, len(experiment.Metrics))
	for _, m := range experiment.Metrics {
		if metrics == nil || slices.Contains(metrics, m) {
			cols = append(cols, m)
		}
	}

	t := Table{Columns: append(append([]string{ColID, ColModel}, cols...), ColTT, ColRank, ColFailed)}
	t.Rows = make([][]string, 0, len(records))
	for _, r := range records {
		name := r.Name
		if name == "" {
			name = r.CandidateID
		}
		row := make([]string, 0, len(t.Columns))
		row = append(row, r.CandidateID, name)
		for _, m := range cols {
			v, ok := r.Metrics[m]
			if !ok {
				v = math.NaN()
			}
			row = append(row, FormatFloat(v))
		}
		row = append(row, FormatFloat(r.FitSeconds), strconv.Itoa(r.Rank), strconv.FormatBool(r.Failed))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ForecastTable renders a forecast with one row per step. Timestamps are
// written as dates when they all fall on midnight UTC, RFC 3339 otherwise.
func ForecastTable(res *forecast.Result) Table {
	t := Table{Columns: []string{ColTime, ColForecast, ColLower, ColUpper}}
	if res == nil {
		return t
	}

	layout := "2006-01-02"
	for _, p := range res.Points {
		if !p.Time.Equal(p.Time.UTC().Truncate(24 * time.Hour)) {
			layout = time.RFC3339
			break
		}
	}

	t.Rows = make([][]string, len(res.Points))
	for i, p := range res.Points {
		t.Rows[i] = []string{
			p.Time.UTC().Format(layout),
			FormatFloat(p.Value),
			FormatFloat(p.Lower),
			FormatFloat(p.Upper),
		}
	}
	return t
}

// FormatFloat rounds v to Precision places. NaN is written as an empty cell.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return decimal.NewFromFloat(v).StringFixed(Precision)
}
