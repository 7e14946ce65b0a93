package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sartorproj/autoforecast/catalog"
	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/experiment"
	"github.com/sartorproj/autoforecast/export"
	"github.com/sartorproj/autoforecast/internal/logging"
	"github.com/sartorproj/autoforecast/internal/metrics"
	"github.com/sartorproj/autoforecast/timeseries"
)

// onibus builds 120 months of bus ridership with trend, a yearly cycle and
// a little irregular noise.
func onibus() *timeseries.Series {
	values := make([]float64, 120)
	for i := range values {
		values[i] = 2000 + 5*float64(i) +
			300*math.Sin(2*math.Pi*float64(i)/12) +
			40*math.Sin(float64(i)*1.7)
	}
	s := timeseries.New(values)
	s.Name = "Onibus"
	return s
}

func scenarioConfig() experiment.Config {
	cfg := experiment.DefaultConfig()
	cfg.Target = "Onibus"
	cfg.SeasonalPeriod = 12
	cfg.WindowLength = 12
	cfg.Horizon = 36
	return cfg
}

type stub struct {
	id  string
	err error
}

func (s stub) ID() string             { return s.id }
func (s stub) Name() string           { return "Stub " + s.id }
func (s stub) Params() map[string]any { return nil }
func (s stub) Fit(_ context.Context, series *timeseries.Series) (catalog.Fitted, error) {
	if s.err != nil {
		return nil, s.err
	}
	return flat(series.Values[series.Len()-1]), nil
}

type flat float64

func (f flat) Predict(h int) ([]float64, error) {
	out := make([]float64, h)
	for i := range out {
		out[i] = float64(f)
	}
	return out, nil
}

func stubCatalog(t *testing.T, adapters ...catalog.Adapter) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(adapters...)
	require.NoError(t, err)
	return c
}

func TestRunOnibusScenario(t *testing.T) {
	var logs bytes.Buffer
	recorder := metrics.New()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	p := New(
		WithLogger(logging.NewWriter(&logs, logging.Config{Level: "debug", Format: "json"})),
		WithMetrics(recorder),
		WithTracerProvider(tp),
	)
	series := onibus()
	dir := t.TempDir()

	bundle, err := p.Run(context.Background(), series, scenarioConfig(), dir, export.CSV)
	require.NoError(t, err)
	assert.Equal(t, StateExported, p.State())

	cat, err := p.Context().Catalog()
	require.NoError(t, err)
	require.Len(t, p.Records(), cat.Len(), "one record per candidate")
	require.Len(t, p.Table(), cat.Len())

	prev := math.Inf(-1)
	seenFailed := false
	for i, r := range p.Table() {
		assert.Equal(t, i+1, r.Rank)
		if r.Failed {
			seenFailed = true
			continue
		}
		assert.False(t, seenFailed, "viable rows precede failed rows")
		assert.GreaterOrEqual(t, r.Metrics[experiment.MetricMASE], prev)
		prev = r.Metrics[experiment.MetricMASE]
	}
	assert.Equal(t, p.Table()[0].CandidateID, p.BestID())
	assert.Equal(t, p.BestID(), p.Model().CandidateID)
	assert.Equal(t, 120, p.Model().TrainedOn)

	res := p.Result()
	require.Len(t, res.Points, 36)
	assert.Equal(t, time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC), res.Points[0].Time)
	for i := 1; i < len(res.Points); i++ {
		assert.Equal(t, timeseries.Monthly.Add(res.Points[i-1].Time, 1), res.Points[i].Time)
	}

	assert.Len(t, bundle.Predictions.Rows, 36)
	assert.Len(t, bundle.Comparison.Rows, cat.Len())
	assert.Equal(t, "2010-01-01", bundle.Predictions.Rows[0][0])
	for _, name := range []string{"model_comparison.csv", "predictions.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	n, err := testutil.GatherAndCount(recorder.Registry(), "autoforecast_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 6, n, "one series per stage")

	var names []string
	for _, s := range spans.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"pipeline.setup", "pipeline.evaluate", "pipeline.select",
		"pipeline.finalize", "pipeline.forecast", "pipeline.export",
	}, names)

	assert.Contains(t, logs.String(), `"message":"model selected"`)
	assert.Contains(t, logs.String(), p.Context().RunID())
}

func TestSequenceErrors(t *testing.T) {
	ctx := context.Background()
	p := New(WithCatalog(stubCatalog(t, stub{id: "flat"})))

	err := p.Finalize(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSequence))
	assert.Equal(t, StageFinalize, errs.StageOf(err))
	assert.Contains(t, err.Error(), "requires state SELECTED, pipeline is INIT")
	assert.Equal(t, StateInit, p.State(), "sequence errors do not abort")

	require.NoError(t, p.Setup(ctx, onibus(), scenarioConfig()))
	assert.True(t, errors.Is(p.Setup(ctx, onibus(), scenarioConfig()), errs.ErrSequence), "stages are not re-enterable")

	_, err = p.Select(ctx)
	assert.True(t, errors.Is(err, errs.ErrSequence))

	require.NoError(t, p.Evaluate(ctx))
	_, err = p.Select(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Finalize(ctx))
	_, err = p.Forecast(ctx, 3)
	require.NoError(t, err)
	_, err = p.Export(ctx, "", export.JSON)
	require.NoError(t, err)
	assert.Empty(t, p.Paths())

	_, err = p.Export(ctx, "", export.JSON)
	assert.True(t, errors.Is(err, errs.ErrSequence), "EXPORTED is terminal")
	assert.True(t, p.State().Terminal())
}

func TestSetupFailureAborts(t *testing.T) {
	ctx := context.Background()
	p := New()
	cfg := scenarioConfig()
	cfg.WindowLength = 120

	err := p.Setup(ctx, onibus(), cfg)
	assert.True(t, errors.Is(err, errs.ErrConfig))
	assert.Equal(t, StateAborted, p.State())

	err = p.Setup(ctx, onibus(), scenarioConfig())
	assert.True(t, errors.Is(err, errs.ErrSequence))
	assert.Contains(t, err.Error(), "pipeline is ABORTED")
}

func TestNoViableModelAborts(t *testing.T) {
	ctx := context.Background()
	broken := errors.New("does not converge")
	p := New(WithCatalog(stubCatalog(t, stub{id: "a", err: broken}, stub{id: "b", err: broken})))

	require.NoError(t, p.Setup(ctx, onibus(), scenarioConfig()))
	require.NoError(t, p.Evaluate(ctx), "candidate failures are not fatal on their own")
	for _, r := range p.Records() {
		assert.True(t, r.Failed)
	}

	_, err := p.Select(ctx)
	assert.True(t, errors.Is(err, errs.ErrNoViableModel))
	assert.Equal(t, StateAborted, p.State())
	assert.True(t, errors.Is(p.Finalize(ctx), errs.ErrSequence))
}

func TestForecastRejectsZeroHorizon(t *testing.T) {
	ctx := context.Background()
	p := New(WithCatalog(stubCatalog(t, stub{id: "flat"})))
	require.NoError(t, p.Setup(ctx, onibus(), scenarioConfig()))
	require.NoError(t, p.Evaluate(ctx))
	_, err := p.Select(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Finalize(ctx))

	_, err = p.Forecast(ctx, 0)
	assert.True(t, errors.Is(err, errs.ErrPrediction))
	assert.Equal(t, StateAborted, p.State())
}

func TestExportFailureAborts(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	recorder := metrics.New()
	p := New(WithCatalog(stubCatalog(t, stub{id: "flat"})), WithMetrics(recorder))
	cfg := scenarioConfig()
	cfg.Horizon = 12

	_, err := p.Run(ctx, onibus(), cfg, filepath.Join(file, "out"), export.CSV)
	assert.True(t, errors.Is(err, errs.ErrExport))
	assert.Equal(t, StateAborted, p.State())

	n, err := testutil.GatherAndCount(recorder.Registry(), "autoforecast_stage_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFinalizeLogsARIMADiagnostics(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	p := New(WithLogger(logging.NewWriter(&logs, logging.Config{Level: "debug", Format: "json"})))
	cfg := scenarioConfig()
	cfg.Include = []string{"arima"}
	cfg.Horizon = 12
	cfg.Folds = 2

	require.NoError(t, p.Setup(ctx, onibus(), cfg))
	require.NoError(t, p.Evaluate(ctx))
	_, err := p.Select(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Finalize(ctx))

	summary := p.Model().Summary
	require.NotNil(t, summary)
	require.NotNil(t, summary.LjungBox)
	assert.Equal(t, 12, summary.Order.M)
	assert.Contains(t, logs.String(), `"message":"model refitted"`)
	assert.Contains(t, logs.String(), `"ljung_box_p":`)
	assert.Contains(t, logs.String(), `"order":"`)
}

func TestIncludeFilterAppliesToCustomCatalog(t *testing.T) {
	p := New(WithCatalog(stubCatalog(t, stub{id: "a"}, stub{id: "b"})))
	cfg := scenarioConfig()
	cfg.Include = []string{"b"}
	require.NoError(t, p.Setup(context.Background(), onibus(), cfg))
	require.NoError(t, p.Evaluate(context.Background()))
	require.Len(t, p.Records(), 1)
	assert.Equal(t, "b", p.Records()[0].CandidateID)

	cfg.Include = []string{"missing"}
	q := New(WithCatalog(stubCatalog(t, stub{id: "a"})))
	assert.True(t, errors.Is(q.Setup(context.Background(), onibus(), cfg), errs.ErrConfig))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "FORECASTED", StateForecasted.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
	assert.False(t, StateSelected.Terminal())
}
