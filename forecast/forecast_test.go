package forecast

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/autoforecast/catalog"
	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/timeseries"
)

type constant struct {
	value float64
	n     int // forced output length when positive
}

func (c constant) Predict(h int) ([]float64, error) {
	if c.n > 0 {
		h = c.n
	}
	out := make([]float64, h)
	for i := range out {
		out[i] = c.value
	}
	return out, nil
}

type stub struct {
	id   string
	fits atomic.Int32
	fit  func(s *timeseries.Series) (catalog.Fitted, error)
}

func (s *stub) ID() string             { return s.id }
func (s *stub) Name() string           { return "Stub" }
func (s *stub) Params() map[string]any { return map[string]any{} }
func (s *stub) Fit(_ context.Context, series *timeseries.Series) (catalog.Fitted, error) {
	s.fits.Add(1)
	return s.fit(series)
}

func seasonal(n int) *timeseries.Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = 500 + float64(i) + 40*math.Sin(2*math.Pi*float64(i)/12) + float64(i%5)
	}
	s := timeseries.New(values)
	s.Name = "Onibus"
	return s
}

func TestFinalizeAndPredictSeasonalNaive(t *testing.T) {
	series := seasonal(120)
	cat := catalog.Default(catalog.Options{SeasonalPeriod: 12, WindowLength: 12})

	model, err := Finalize(context.Background(), cat, "snaive", series)
	require.NoError(t, err)
	assert.Equal(t, 120, model.TrainedOn)
	assert.Equal(t, "Seasonal Naive Forecaster", model.Name)

	res, err := Predict(model, 36, 0.95)
	require.NoError(t, err)
	require.Len(t, res.Points, 36)

	last := series.Last()
	for i, p := range res.Points {
		assert.Equal(t, timeseries.Monthly.Add(last, i+1), p.Time)
		assert.InDelta(t, series.Values[108+i%12], p.Value, 1e-9)
		assert.LessOrEqual(t, p.Lower, p.Value)
		assert.GreaterOrEqual(t, p.Upper, p.Value)
	}
	assert.Equal(t, time.Date(2010, time.February, 1, 0, 0, 0, 0, time.UTC), res.Points[1].Time)
	assert.Len(t, res.Values(), 36)
}

func TestFinalizeKeepsARIMASummary(t *testing.T) {
	series := seasonal(120)
	cat := catalog.Default(catalog.Options{SeasonalPeriod: 12, WindowLength: 12})

	model, err := Finalize(context.Background(), cat, "arima", series)
	require.NoError(t, err)
	require.NotNil(t, model.Summary)
	assert.Equal(t, 1, model.Summary.Order.P)
	require.NotNil(t, model.Summary.LjungBox)
	assert.Equal(t, 21, model.Summary.LjungBox.Lags, "a fifth of the 108 seasonally differenced residuals")

	naive, err := Finalize(context.Background(), cat, "naive", series)
	require.NoError(t, err)
	assert.Nil(t, naive.Summary)
}

func TestPredictStartsAfterLastObservation(t *testing.T) {
	a := &stub{id: "const", fit: func(*timeseries.Series) (catalog.Fitted, error) {
		return constant{value: 3}, nil
	}}
	cat, err := catalog.New(a)
	require.NoError(t, err)
	series := &timeseries.Series{
		Timestamps: []time.Time{
			time.Date(2021, time.October, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2021, time.November, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2021, time.December, 1, 0, 0, 0, 0, time.UTC),
		},
		Values: []float64{1, 2, 3},
		Freq:   timeseries.Monthly,
	}

	model, err := Finalize(context.Background(), cat, "const", series)
	require.NoError(t, err)
	res, err := Predict(model, 2, 0.95)
	require.NoError(t, err)
	assert.Equal(t, series.Future(2), []time.Time{res.Points[0].Time, res.Points[1].Time})
	assert.Equal(t, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC), res.Points[0].Time)
}

func TestFinalizeRefitsEveryCall(t *testing.T) {
	a := &stub{id: "const", fit: func(s *timeseries.Series) (catalog.Fitted, error) {
		return constant{value: s.Values[s.Len()-1]}, nil
	}}
	cat, err := catalog.New(a)
	require.NoError(t, err)

	for range 2 {
		_, err := Finalize(context.Background(), cat, "const", seasonal(30))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), a.fits.Load())
}

func TestFinalizeErrors(t *testing.T) {
	broken := &stub{id: "broken", fit: func(*timeseries.Series) (catalog.Fitted, error) {
		return nil, errors.New("matrix is singular")
	}}
	cat, err := catalog.New(broken)
	require.NoError(t, err)

	_, err = Finalize(context.Background(), cat, "missing", seasonal(30))
	assert.True(t, errors.Is(err, errs.ErrPrediction))
	assert.Equal(t, "finalize", errs.StageOf(err))

	_, err = Finalize(context.Background(), cat, "broken", seasonal(30))
	assert.True(t, errors.Is(err, errs.ErrPrediction))
	assert.Contains(t, err.Error(), "matrix is singular")

	_, err = Finalize(context.Background(), nil, "broken", seasonal(30))
	assert.True(t, errors.Is(err, errs.ErrPrediction))
}

func TestPredictErrors(t *testing.T) {
	a := &stub{id: "short", fit: func(*timeseries.Series) (catalog.Fitted, error) {
		return constant{value: 1, n: 2}, nil
	}}
	cat, err := catalog.New(a)
	require.NoError(t, err)
	model, err := Finalize(context.Background(), cat, "short", seasonal(30))
	require.NoError(t, err)

	tests := []struct {
		name    string
		model   *FinalizedModel
		horizon int
	}{
		{"zero horizon", model, 0},
		{"negative horizon", model, -3},
		{"nil model", nil, 12},
		{"not finalized", &FinalizedModel{}, 12},
		{"wrong length", model, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Predict(tt.model, tt.horizon, 0.95)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrPrediction))
			assert.Equal(t, "forecast", errs.StageOf(err))
		})
	}
}

func TestPredictWithoutIntervals(t *testing.T) {
	a := &stub{id: "const", fit: func(*timeseries.Series) (catalog.Fitted, error) {
		return constant{value: 7}, nil
	}}
	cat, err := catalog.New(a)
	require.NoError(t, err)
	model, err := Finalize(context.Background(), cat, "const", seasonal(30))
	require.NoError(t, err)

	res, err := Predict(model, 4, 0.9)
	require.NoError(t, err)
	for _, p := range res.Points {
		assert.Equal(t, 7.0, p.Value)
		assert.True(t, math.IsNaN(p.Lower))
		assert.True(t, math.IsNaN(p.Upper))
	}
}
