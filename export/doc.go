// Package export renders the comparison and forecast tables of a run and
// encodes them to disk.
//
// A Table is a header plus rows of string cells. Rendering fixes the text of
// every cell, so the choice of format never changes a value.
//
// # Tables
//
//	cmp := export.ComparisonTable(p.Table(), nil)
//	// ID, Model, MASE, RMSSE, MAE, RMSE, MAPE, SMAPE, R2, TT (Sec), Rank, Failed
//
//	pred := export.ForecastTable(p.Result())
//	// timestamp, y_pred, lower, upper
//
// Numeric cells are rounded half away from zero to Precision (4) decimal
// places through shopspring/decimal. NaN becomes an empty cell and
// infinities are written as "inf" and "-inf". Forecast timestamps are dates
// (2006-01-02) when every step falls on midnight UTC and RFC 3339 otherwise.
//
// # Formats
//
//	f, err := export.ParseFormat("YML") // export.YAML
//	data, err := export.Encode(cmp, f)
//
// ParseFormat accepts a name or an extension with or without the leading
// dot, case-insensitively:
//
//	csv   header line then one record per row (encoding/csv quoting)
//	tsv   as csv with a tab separator
//	json  {"columns": [...], "rows": [[...], ...]}, two-space indent
//	yaml  columns and rows keys, also accepted as yml
//
// An empty table encodes as empty lists in json and yaml, never null.
//
// # Files
//
//	paths, err := export.WriteFiles("out", export.CSV, export.Bundle{
//		Comparison:  cmp,
//		Predictions: pred,
//	})
//	// out/model_comparison.csv, out/predictions.csv
//
// WriteFiles creates the directory when missing and returns the paths in
// that order. On failure it returns the paths already written.
//
// # Round Trip
//
// Decode reverses Encode for every format:
//
//	back, err := export.Decode(data, f)
//	// back equals cmp cell for cell
//
// Cells come back as the exact strings that were written, so a decoded table
// compares equal to the rendered one whatever the format. Decode rejects a
// row whose cell count differs from the header.
//
// Every failure in this package is an ExportError in stage "export"; an
// unknown format fails before anything is written.
package export
