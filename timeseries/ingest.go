package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/sartorproj/autoforecast/errs"
)

const stageLoad = "load"

// LoadOptions holds options for loading a series from a tabular source.
type LoadOptions struct {
	TimeColumn  string // Column holding timestamps (auto-detected when empty)
	ValueColumn string // Numeric target column (the single remaining column when empty)
	DateFormat  string // Preferred time layout, tried before the built-in ones
	Delimiter   rune   // Field delimiter for delimited text (default ',' or '\t' for .tsv)
	Sheet       string // Worksheet for .xlsx sources (default: first sheet)
	SkipRows    int    // Number of rows to skip before the header

	Logger *zerolog.Logger
}

// DefaultLoadOptions returns options that auto-detect both columns.
func DefaultLoadOptions() *LoadOptions {
	return &LoadOptions{Delimiter: ','}
}

func (o *LoadOptions) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// timeColumnNames are header names recognized as the time index.
var timeColumnNames = []string{"ds", "date", "Date", "DATE", "Month", "month", "Mês", "mês", "Mes", "timestamp", "time", "period"}

// timeLayouts are tried in order after LoadOptions.DateFormat.
var timeLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
	"01/2006",
	"2006-01",
	"Jan-2006",
	"Jan 2006",
	"02-Jan-2006",
	"2006",
}

// missingTokens mark an absent value.
var missingTokens = map[string]bool{"": true, "NA": true, "NaN": true, "nan": true, "null": true, "NULL": true}

// Load reads a series from a file, choosing the reader by extension:
// .xlsx workbooks, otherwise delimited text (.csv, .tsv, .txt).
func Load(path string, opts *LoadOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultLoadOptions()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "open source: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSXFromReader(file, opts)
	case ".tsv":
		o := *opts
		o.Delimiter = '\t'
		return LoadCSVFromReader(file, &o)
	}
	return LoadCSVFromReader(file, opts)
}

// LoadCSVFromReader loads a series from delimited text with a header row.
func LoadCSVFromReader(r io.Reader, opts *LoadOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultLoadOptions()
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "read csv: %w", err)
	}
	return fromRecords(records, opts, false)
}

// LoadXLSXFromReader loads a series from an Excel workbook. Numeric cells in
// the time column are read as Excel serial dates.
func LoadXLSXFromReader(r io.Reader, opts *LoadOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultLoadOptions()
	}

	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "open workbook: %w", err)
	}
	defer book.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "read sheet %q: %w", sheet, err)
	}
	return fromRecords(rows, opts, true)
}

// fromRecords turns raw rows (header first) into a validated series.
func fromRecords(records [][]string, opts *LoadOptions, excelDates bool) (*Series, error) {
	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(records) {
			return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "no header after skipping %d rows", opts.SkipRows)
		}
		records = records[opts.SkipRows:]
	}
	if len(records) == 0 {
		return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "source is empty")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	timeIdx, valueIdx, err := locateColumns(header, opts)
	if err != nil {
		return nil, err
	}

	type observation struct {
		ts    time.Time
		value float64
	}
	obs := make([]observation, 0, len(records)-1)

	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		line := i + 2 + opts.SkipRows

		ts, err := parseTime(cell(record, timeIdx), opts.DateFormat, excelDates)
		if err != nil {
			return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "row %d: column %q: %w", line, header[timeIdx], err)
		}

		raw := cell(record, valueIdx)
		if missingTokens[raw] {
			return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "row %d: missing value in column %q at %s", line, header[valueIdx], ts.Format("2006-01-02"))
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "row %d: column %q: %w", line, header[valueIdx], err)
		}
		obs = append(obs, observation{ts: ts, value: v})
	}

	// Stable sort keeps file order among duplicates so the last one wins.
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].ts.Before(obs[j].ts) })

	timestamps := make([]time.Time, 0, len(obs))
	values := make([]float64, 0, len(obs))
	dupes := 0
	for _, o := range obs {
		if n := len(timestamps); n > 0 && timestamps[n-1].Equal(o.ts) {
			values[n-1] = o.value
			dupes++
			continue
		}
		timestamps = append(timestamps, o.ts)
		values = append(values, o.value)
	}
	if dupes > 0 {
		log := opts.logger()
		log.Warn().Int("duplicates", dupes).Str("column", header[timeIdx]).Msg("dropped duplicate timestamps, keeping the last occurrence")
	}

	if len(values) < 3 {
		return nil, errs.Errorf(errs.KindDataLoad, stageLoad, "need at least 3 observations, got %d", len(values))
	}

	series, err := NewWithTimestamps(header[valueIdx], timestamps, values)
	if err != nil {
		return nil, errs.New(errs.KindDataLoad, stageLoad, err)
	}
	if err := checkSpacing(series); err != nil {
		return nil, err
	}
	return series, nil
}

// checkSpacing fails when any consecutive pair is more than one step apart.
func checkSpacing(s *Series) error {
	missing := 0
	var first time.Time
	for i := 1; i < s.Len(); i++ {
		k, ok := s.Freq.Steps(s.Timestamps[i-1], s.Timestamps[i])
		if !ok {
			return errs.Errorf(errs.KindDataLoad, stageLoad, "irregular spacing between %s and %s for frequency %s",
				s.Timestamps[i-1].Format(time.RFC3339), s.Timestamps[i].Format(time.RFC3339), s.Freq)
		}
		if k > 1 {
			if missing == 0 {
				first = s.Freq.Add(s.Timestamps[i-1], 1)
			}
			missing += k - 1
		}
	}
	if missing > 0 {
		return errs.Errorf(errs.KindDataLoad, stageLoad, "%d missing periods at frequency %s, first missing at %s",
			missing, s.Freq, first.Format("2006-01-02"))
	}
	return nil
}

func locateColumns(header []string, opts *LoadOptions) (timeIdx, valueIdx int, err error) {
	timeIdx, valueIdx = -1, -1
	for i, h := range header {
		if opts.TimeColumn != "" && h == opts.TimeColumn {
			timeIdx = i
		}
		if opts.ValueColumn != "" && h == opts.ValueColumn {
			valueIdx = i
		}
	}
	if opts.TimeColumn != "" && timeIdx < 0 {
		return -1, -1, errs.Errorf(errs.KindDataLoad, stageLoad, "time column %q not found in header %v", opts.TimeColumn, header)
	}
	if opts.ValueColumn != "" && valueIdx < 0 {
		return -1, -1, errs.Errorf(errs.KindDataLoad, stageLoad, "target column %q not found in header %v", opts.ValueColumn, header)
	}

	if timeIdx < 0 {
	detect:
		for _, name := range timeColumnNames {
			for i, h := range header {
				if h == name && i != valueIdx {
					timeIdx = i
					break detect
				}
			}
		}
	}
	if timeIdx < 0 && len(header) > 1 && valueIdx != 0 {
		timeIdx = 0
	}
	if timeIdx < 0 {
		return -1, -1, errs.Errorf(errs.KindDataLoad, stageLoad, "no time column in header %v", header)
	}

	if valueIdx < 0 {
		candidates := make([]int, 0, 1)
		for i, h := range header {
			if i != timeIdx && h != "" {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) != 1 {
			return -1, -1, errs.Errorf(errs.KindDataLoad, stageLoad, "cannot pick a target column from header %v; set the value column", header)
		}
		valueIdx = candidates[0]
	}
	if timeIdx == valueIdx {
		return -1, -1, errs.Errorf(errs.KindDataLoad, stageLoad, "time and target column are both %q", header[timeIdx])
	}
	return timeIdx, valueIdx, nil
}

func parseTime(s, layout string, excelDates bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if excelDates {
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			ts, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return time.Time{}, fmt.Errorf("excel serial date %q: %w", s, err)
			}
			return ts.UTC(), nil
		}
	}
	if layout != "" {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	for _, l := range timeLayouts {
		if ts, err := time.Parse(l, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(strings.Trim(record[idx], "\""))
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
