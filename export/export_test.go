package export

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/autoforecast/cv"
	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/experiment"
	"github.com/sartorproj/autoforecast/forecast"
)

func records() []cv.Record {
	return []cv.Record{
		{
			CandidateID: "exp_smooth",
			Name:        "Exponential Smoothing",
			Metrics: map[string]float64{
				experiment.MetricMASE: 0.51234, experiment.MetricRMSSE: 0.6, experiment.MetricMAE: 12.5,
				experiment.MetricRMSE: 15.25, experiment.MetricMAPE: 0.031, experiment.MetricSMAPE: 0.0305, experiment.MetricR2: 0.81,
			},
			Rank:       1,
			FitSeconds: 0.01234,
		},
		{
			CandidateID: "arima",
			Name:        "ARIMA",
			Metrics:     map[string]float64{experiment.MetricMASE: math.NaN()},
			Rank:        2,
			Failed:      true,
		},
	}
}

func monthly() *forecast.Result {
	start := time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)
	res := &forecast.Result{CandidateID: "snaive", Coverage: 0.95}
	for i := range 3 {
		res.Points = append(res.Points, forecast.Point{
			Time:  start.AddDate(0, i, 0),
			Value: 100 + float64(i),
			Lower: 90 + float64(i),
			Upper: 110 + float64(i),
		})
	}
	return res
}

func TestComparisonTable(t *testing.T) {
	tbl := ComparisonTable(records(), nil)

	assert.Equal(t, []string{"ID", "Model", "MASE", "RMSSE", "MAE", "RMSE", "MAPE", "SMAPE", "R2", "TT (Sec)", "Rank", "Failed"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"exp_smooth", "Exponential Smoothing", "0.5123", "0.6000", "12.5000", "15.2500", "0.0310", "0.0305", "0.8100", "0.0123", "1", "false"}, tbl.Rows[0])
	assert.Equal(t, []string{"arima", "ARIMA", "", "", "", "", "", "", "", "0.0000", "2", "true"}, tbl.Rows[1])
}

func TestComparisonTableKeepsCanonicalOrder(t *testing.T) {
	tbl := ComparisonTable(records(), []string{experiment.MetricR2, experiment.MetricMASE})
	assert.Equal(t, []string{"ID", "Model", "MASE", "R2", "TT (Sec)", "Rank", "Failed"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Column("MASE"))
	assert.Equal(t, -1, tbl.Column("MAE"))
}

func TestForecastTable(t *testing.T) {
	tbl := ForecastTable(monthly())
	assert.Equal(t, []string{"timestamp", "y_pred", "lower", "upper"}, tbl.Columns)
	assert.Equal(t, [][]string{
		{"2010-01-01", "100.0000", "90.0000", "110.0000"},
		{"2010-02-01", "101.0000", "91.0000", "111.0000"},
		{"2010-03-01", "102.0000", "92.0000", "112.0000"},
	}, tbl.Rows)

	hourly := &forecast.Result{Points: []forecast.Point{
		{Time: time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), Value: 1, Lower: math.NaN(), Upper: math.NaN()},
	}}
	assert.Equal(t, []string{"2024-05-01T13:00:00Z", "1.0000", "", ""}, ForecastTable(hourly).Rows[0])
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "", FormatFloat(math.NaN()))
	assert.Equal(t, "inf", FormatFloat(math.Inf(1)))
	assert.Equal(t, "-1.2346", FormatFloat(-1.23456))
	assert.Equal(t, "3.0000", FormatFloat(3))
}

func TestRoundTrip(t *testing.T) {
	tables := map[string]Table{
		"comparison": ComparisonTable(records(), nil),
		"forecast":   ForecastTable(monthly()),
	}
	for name, tbl := range tables {
		for _, format := range []Format{CSV, TSV, JSON, YAML} {
			t.Run(name+"/"+string(format), func(t *testing.T) {
				data, err := Encode(tbl, format)
				require.NoError(t, err)

				got, err := Decode(data, format)
				require.NoError(t, err)
				assert.Equal(t, tbl, got)
			})
		}
	}
}

func TestEncodeShapes(t *testing.T) {
	tbl := ForecastTable(monthly())

	data, err := Encode(tbl, TSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "timestamp\ty_pred\tlower\tupper\n"))

	data, err = Encode(tbl, JSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"columns": [`)

	data, err = Encode(Table{}, JSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns": [], "rows": []}`, string(data))
}

func TestUnknownFormat(t *testing.T) {
	_, err := Encode(Table{}, "parquet")
	assert.True(t, errors.Is(err, errs.ErrExport))

	_, err = Decode(nil, "xml")
	assert.True(t, errors.Is(err, errs.ErrExport))

	_, err = ParseFormat("xls")
	assert.True(t, errors.Is(err, errs.ErrExport))

	f, err := ParseFormat(".YML")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)
}

func TestDecodeRejectsRaggedRows(t *testing.T) {
	_, err := Decode([]byte(`{"columns":["a","b"],"rows":[["1"]]}`), JSON)
	assert.True(t, errors.Is(err, errs.ErrExport))
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteFiles(dir, CSV, Bundle{
		Comparison:  ComparisonTable(records(), nil),
		Predictions: ForecastTable(monthly()),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "model_comparison.csv"),
		filepath.Join(dir, "predictions.csv"),
	}, paths)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), "2010-03-01,102.0000,92.0000,112.0000")
}

func TestWriteFilesUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := WriteFiles(filepath.Join(file, "sub"), CSV, Bundle{})
	assert.True(t, errors.Is(err, errs.ErrExport))
}
