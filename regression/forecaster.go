package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/autoforecast/stats"
	"github.com/sartorproj/autoforecast/timeseries"
)

// seasonalityConfidence is the one-sided level of the seasonal ACF test
// that gates deseasonalization.
const seasonalityConfidence = 0.95

// Forecaster reduces forecasting to regression on lag windows. Before the
// windows are built the series is conditionally deseasonalized and then
// detrended with a linear fit on the time index. Forecasts are produced
// recursively and the trend and seasonality are added back.
type Forecaster struct {
	Window    int       // number of lagged values per feature row
	Period    int       // seasonal period, values below 2 disable deseasonalizing
	Estimator Estimator // fitted on the windows

	fitted    bool
	n         int
	kind      string // seasonal decomposition kind, empty when not deseasonalized
	pattern   []float64
	intercept float64
	slope     float64
	tail      []float64 // last Window residual values
	sigma     float64
}

// NewForecaster creates a lag-window forecaster.
func NewForecaster(window, period int, est Estimator) *Forecaster {
	return &Forecaster{Window: window, Period: period, Estimator: est}
}

// Deseasonalized reports the decomposition kind applied during Fit, or ""
// when the seasonality test did not pass.
func (f *Forecaster) Deseasonalized() string {
	return f.kind
}

// Fit transforms the series and fits the estimator on its lag windows.
func (f *Forecaster) Fit(series *timeseries.Series) error {
	if series == nil {
		return errors.New("series is nil")
	}
	if f.Estimator == nil {
		return errors.New("no estimator configured")
	}
	if f.Window < 1 {
		return fmt.Errorf("window length must be positive, got %d", f.Window)
	}
	y := series.Values
	n := len(y)
	if n < f.Window+3 {
		return fmt.Errorf("need at least %d observations for window %d, have %d", f.Window+3, f.Window, n)
	}

	f.kind, f.pattern = "", nil
	adjusted := append([]float64(nil), y...)
	if f.Period > 1 && stats.SeasonalACFSignificant(y, f.Period, seasonalityConfidence) {
		kind := stats.Multiplicative
		for _, v := range y {
			if v <= 0 {
				kind = stats.Additive
				break
			}
		}
		if d := stats.Decompose(y, f.Period, kind); d != nil {
			f.kind, f.pattern = kind, d.Pattern
			for i := range adjusted {
				adjusted[i] = f.deseason(adjusted[i], i)
			}
		}
	}

	index := make([]float64, n)
	for i := range index {
		index[i] = float64(i)
	}
	f.intercept, f.slope = stat.LinearRegression(index, adjusted, nil, false)
	resid := make([]float64, n)
	for i, v := range adjusted {
		resid[i] = v - f.trend(i)
	}

	rows := n - f.Window
	x := mat.NewDense(rows, f.Window, nil)
	target := make([]float64, rows)
	for i := 0; i < rows; i++ {
		x.SetRow(i, resid[i:i+f.Window])
		target[i] = resid[i+f.Window]
	}
	if err := f.Estimator.Fit(x, target); err != nil {
		return err
	}

	errs := make([]float64, rows)
	for i := 0; i < rows; i++ {
		t := i + f.Window
		pred := f.Estimator.PredictOne(resid[i:t])
		errs[i] = y[t] - f.reseason(pred+f.trend(t), t)
	}
	f.sigma = stats.ResidualStd(errs, 0)

	f.tail = append([]float64(nil), resid[n-f.Window:]...)
	f.n = n
	f.fitted = true
	return nil
}

func (f *Forecaster) trend(t int) float64 {
	return f.intercept + f.slope*float64(t)
}

func (f *Forecaster) deseason(v float64, t int) float64 {
	switch f.kind {
	case stats.Multiplicative:
		return v / f.pattern[t%len(f.pattern)]
	case stats.Additive:
		return v - f.pattern[t%len(f.pattern)]
	}
	return v
}

func (f *Forecaster) reseason(v float64, t int) float64 {
	switch f.kind {
	case stats.Multiplicative:
		return v * f.pattern[t%len(f.pattern)]
	case stats.Additive:
		return v + f.pattern[t%len(f.pattern)]
	}
	return v
}

// Predict forecasts the given number of steps recursively.
func (f *Forecaster) Predict(steps int) ([]float64, error) {
	if !f.fitted {
		return nil, errors.New("model must be fitted before prediction")
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	window := make([]float64, 0, f.Window+steps)
	window = append(window, f.tail...)
	out := make([]float64, steps)
	for h := 0; h < steps; h++ {
		next := f.Estimator.PredictOne(window[h : h+f.Window])
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return nil, fmt.Errorf("non-finite prediction at step %d", h+1)
		}
		window = append(window, next)
		t := f.n + h
		out[h] = f.reseason(next+f.trend(t), t)
	}
	return out, nil
}

// PredictWithInterval adds normal intervals from the in-sample one-step error.
func (f *Forecaster) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	forecasts, err = f.Predict(steps)
	if err != nil {
		return nil, nil, nil, err
	}
	lower, upper = stats.Bands(forecasts, f.sigma, confidence, nil)
	return forecasts, lower, upper, nil
}
