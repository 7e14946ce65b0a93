// Package baseline provides the benchmark forecasters every other model is
// compared against: last value, seasonal last value, historical mean,
// random walk with drift and a linear time trend.
package baseline

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/autoforecast/stats"
	"github.com/sartorproj/autoforecast/timeseries"
)

// Method names a benchmark forecaster.
type Method string

// Supported methods.
const (
	Naive      Method = "naive"
	Seasonal   Method = "snaive"
	GrandMeans Method = "grand_means"
	Drift      Method = "drift"
	PolyTrend  Method = "polytrend"
)

// Model is a fitted benchmark forecaster.
type Model struct {
	Method Method
	Period int // season length for Seasonal

	fitted    bool
	history   []float64
	mean      float64
	slope     float64
	intercept float64
	sigma     float64
}

// New creates a benchmark model. period is only used by Seasonal.
func New(method Method, period int) *Model {
	return &Model{Method: method, Period: period}
}

// Fit records the state the method needs and its one-step residual spread.
func (m *Model) Fit(series *timeseries.Series) error {
	if series == nil || series.Len() < 2 {
		return errors.New("need at least 2 observations")
	}
	y := series.Values
	n := len(y)

	var residuals []float64
	switch m.Method {
	case Naive:
		residuals = stats.Diff(y, 1)
	case Seasonal:
		if m.Period < 1 || n < m.Period+1 {
			return fmt.Errorf("seasonal naive needs more than %d observations, have %d", m.Period, n)
		}
		residuals = stats.Diff(y, m.Period)
	case GrandMeans:
		m.mean = stat.Mean(y, nil)
		residuals = make([]float64, n)
		for i, v := range y {
			residuals[i] = v - m.mean
		}
	case Drift:
		m.slope = (y[n-1] - y[0]) / float64(n-1)
		residuals = stats.Diff(y, 1)
		for i := range residuals {
			residuals[i] -= m.slope
		}
	case PolyTrend:
		index := make([]float64, n)
		for i := range index {
			index[i] = float64(i)
		}
		m.intercept, m.slope = stat.LinearRegression(index, y, nil, false)
		residuals = make([]float64, n)
		for i, v := range y {
			residuals[i] = v - (m.intercept + m.slope*float64(i))
		}
	default:
		return fmt.Errorf("unknown baseline method %q", m.Method)
	}

	m.history = append([]float64(nil), y...)
	m.sigma = stats.ResidualStd(residuals, 0)
	m.fitted = true
	return nil
}

// Predict generates point forecasts for the given number of steps.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, errors.New("model must be fitted before prediction")
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	n := len(m.history)
	last := m.history[n-1]
	out := make([]float64, steps)
	for h := range out {
		switch m.Method {
		case Naive:
			out[h] = last
		case Seasonal:
			out[h] = m.history[n-m.Period+h%m.Period]
		case GrandMeans:
			out[h] = m.mean
		case Drift:
			out[h] = last + float64(h+1)*m.slope
		case PolyTrend:
			out[h] = m.intercept + m.slope*float64(n+h)
		}
	}
	return out, nil
}

// PredictWithInterval adds normal intervals whose growth follows the
// forecast variance of each method.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	forecasts, err = m.Predict(steps)
	if err != nil {
		return nil, nil, nil, err
	}
	n := float64(len(m.history))
	growth := func(h int) float64 {
		k := float64(h)
		switch m.Method {
		case Seasonal:
			return math.Sqrt(float64((h-1)/m.Period + 1))
		case GrandMeans:
			return math.Sqrt(1 + 1/n)
		case Drift:
			return math.Sqrt(k * (1 + k/(n-1)))
		case PolyTrend:
			return 1
		}
		return math.Sqrt(k)
	}
	lower, upper = stats.Bands(forecasts, m.sigma, confidence, growth)
	return forecasts, lower, upper, nil
}
