package smoothing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/autoforecast/timeseries"
)

var pattern = []float64{-8, -6, -2, 1, 4, 7, 9, 8, 4, 0, -5, -12}

func seasonal(n int, slope float64) *timeseries.Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + slope*float64(i) + pattern[i%12]
	}
	return timeseries.New(values)
}

func TestSESOnConstant(t *testing.T) {
	m := NewSES()
	require.NoError(t, m.Fit(timeseries.New([]float64{5, 5, 5, 5, 5, 5})))

	forecasts, err := m.Predict(4)
	require.NoError(t, err)
	for _, f := range forecasts {
		assert.InDelta(t, 5, f, 1e-12)
	}
	assert.InDelta(t, 0, m.SSE, 1e-12)
}

func TestHoltFollowsLinearTrend(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 3 + 2*float64(i)
	}
	m := NewHolt()
	require.NoError(t, m.Fit(timeseries.New(values)))

	forecasts, err := m.Predict(5)
	require.NoError(t, err)
	for h, f := range forecasts {
		assert.InDelta(t, 3+2*float64(40+h), f, 1e-6)
	}
}

func TestHoltWintersRecoversSeason(t *testing.T) {
	series := seasonal(96, 0.5)
	m := NewHoltWinters(12)
	require.NoError(t, m.Fit(series))

	forecasts, lower, upper, err := m.PredictWithInterval(24, 0.95)
	require.NoError(t, err)
	require.Len(t, forecasts, 24)
	for h, f := range forecasts {
		i := 96 + h
		assert.InDelta(t, 100+0.5*float64(i)+pattern[i%12], f, 1e-6)
		assert.LessOrEqual(t, lower[h], f)
		assert.GreaterOrEqual(t, upper[h], f)
	}
}

func TestFixedParameters(t *testing.T) {
	m := New(Config{Trend: true, Alpha: 0.3, Beta: 0.2})
	require.NoError(t, m.Fit(seasonal(48, 1)))
	assert.Equal(t, 0.3, m.Alpha)
	assert.Equal(t, 0.2, m.Beta)
	assert.Zero(t, m.Gamma)
}

func TestFitErrors(t *testing.T) {
	assert.Error(t, NewSES().Fit(nil))
	assert.Error(t, NewSES().Fit(timeseries.New([]float64{1, 2})))
	assert.Error(t, NewHoltWinters(12).Fit(seasonal(24, 0)), "two periods are not enough")
	assert.Error(t, NewHoltWinters(1).Fit(seasonal(48, 0)))

	_, err := NewHolt().Predict(3)
	assert.Error(t, err)

	m := NewSES()
	require.NoError(t, m.Fit(seasonal(24, 0)))
	_, err = m.Predict(0)
	assert.Error(t, err)
}
