package smoothing

import (
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/autoforecast/stats"
	"github.com/sartorproj/autoforecast/timeseries"
)

// Config selects the components of the model.
type Config struct {
	Trend    bool // Additive trend (Holt)
	Seasonal bool // Additive seasonality (Holt-Winters)
	Period   int  // Seasonal period, required when Seasonal is set

	// Fixed smoothing parameters. Zero values are optimized by grid search
	// over the in-sample one-step squared error.
	Alpha float64
	Beta  float64
	Gamma float64
}

// Model is an additive exponential smoothing model: simple (SES), Holt
// linear trend, or additive Holt-Winters, depending on Config.
type Model struct {
	Config Config

	Alpha float64
	Beta  float64
	Gamma float64
	SSE   float64

	fitted    bool
	level     float64
	trend     float64
	season    []float64 // last Period seasonal terms, oldest first
	residuals []float64
	n         int
}

// NewSES creates a simple exponential smoothing model.
func NewSES() *Model {
	return &Model{}
}

// NewHolt creates a Holt linear trend model.
func NewHolt() *Model {
	return &Model{Config: Config{Trend: true}}
}

// NewHoltWinters creates an additive Holt-Winters model with the given period.
func NewHoltWinters(period int) *Model {
	return &Model{Config: Config{Trend: true, Seasonal: true, Period: period}}
}

// New creates a model from an explicit configuration.
func New(config Config) *Model {
	return &Model{Config: config}
}

// grid holds the candidate smoothing parameters.
var grid = func() []float64 {
	g := make([]float64, 0, 19)
	for v := 0.05; v < 0.96; v += 0.05 {
		g = append(g, math.Round(v*100)/100)
	}
	return g
}()

func choices(fixed float64, enabled bool) []float64 {
	switch {
	case !enabled:
		return []float64{0}
	case fixed > 0 && fixed <= 1:
		return []float64{fixed}
	}
	return grid
}

// Fit estimates the smoothing parameters and the final states.
func (m *Model) Fit(series *timeseries.Series) error {
	if series == nil {
		return errors.New("series is nil")
	}
	y := series.Values
	cfg := m.Config

	switch {
	case cfg.Seasonal && cfg.Period < 2:
		return fmt.Errorf("seasonal period must be at least 2, got %d", cfg.Period)
	case cfg.Seasonal && len(y) < 2*cfg.Period+2:
		return fmt.Errorf("need at least %d observations for period %d, have %d", 2*cfg.Period+2, cfg.Period, len(y))
	case len(y) < 3:
		return fmt.Errorf("need at least 3 observations, have %d", len(y))
	}

	best := math.Inf(1)
	for _, a := range choices(cfg.Alpha, true) {
		for _, b := range choices(cfg.Beta, cfg.Trend) {
			for _, g := range choices(cfg.Gamma, cfg.Seasonal) {
				if sse := m.run(y, a, b, g, nil); sse < best {
					best = sse
					m.Alpha, m.Beta, m.Gamma = a, b, g
				}
			}
		}
	}
	if math.IsInf(best, 1) || math.IsNaN(best) {
		return errors.New("smoothing diverged for every parameter choice")
	}

	m.residuals = make([]float64, 0, len(y))
	m.SSE = m.run(y, m.Alpha, m.Beta, m.Gamma, m)
	m.n = len(y)
	m.fitted = true
	return nil
}

// run filters y with the given parameters and returns the one-step SSE.
// When into is non-nil the final states and residuals are stored on it.
func (m *Model) run(y []float64, alpha, beta, gamma float64, into *Model) float64 {
	cfg := m.Config
	period := 0
	if cfg.Seasonal {
		period = cfg.Period
	}

	var level, trend float64
	var season []float64
	start := 1
	if cfg.Seasonal {
		first := timeseries.Mean(y[:period])
		second := timeseries.Mean(y[period : 2*period])
		trend = (second - first) / float64(period)
		center := float64(period-1) / 2
		season = make([]float64, period)
		for i := range season {
			season[i] = y[i] - (first + trend*(float64(i)-center))
		}
		// Level at the end of the first season.
		level = first + trend*center
		start = period
	} else {
		level = y[0]
		if cfg.Trend {
			trend = y[1] - y[0]
		}
	}

	sse := 0.0
	for t := start; t < len(y); t++ {
		s := 0.0
		if period > 0 {
			s = season[(t-start)%period]
		}
		forecast := level + trend + s
		e := y[t] - forecast
		sse += e * e
		if into != nil {
			into.residuals = append(into.residuals, e)
		}

		prevLevel := level
		level = alpha*(y[t]-s) + (1-alpha)*(prevLevel+trend)
		if cfg.Trend {
			trend = beta*(level-prevLevel) + (1-beta)*trend
		}
		if period > 0 {
			season[(t-start)%period] = gamma*(y[t]-level) + (1-gamma)*s
		}
	}

	if into != nil {
		into.level, into.trend = level, trend
		if period > 0 {
			// Rotate so index 0 is the season of the first forecast step.
			offset := (len(y) - start) % period
			into.season = append(append([]float64(nil), season[offset:]...), season[:offset]...)
		}
	}
	return sse
}

// Predict generates point forecasts for the given number of steps.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, errors.New("model must be fitted before prediction")
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	out := make([]float64, steps)
	for h := range out {
		out[h] = m.level + float64(h+1)*m.trend
		if len(m.season) > 0 {
			out[h] += m.season[h%len(m.season)]
		}
	}
	return out, nil
}

// PredictWithInterval generates forecasts with normal prediction intervals
// from the one-step residual standard deviation.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	forecasts, err = m.Predict(steps)
	if err != nil {
		return nil, nil, nil, err
	}
	sigma := stats.ResidualStd(m.residuals, m.numParams())
	lower, upper = stats.Bands(forecasts, sigma, confidence, nil)
	return forecasts, lower, upper, nil
}

// Residuals returns the in-sample one-step forecast errors.
func (m *Model) Residuals() []float64 {
	return append([]float64(nil), m.residuals...)
}

func (m *Model) numParams() int {
	k := 1
	if m.Config.Trend {
		k++
	}
	if m.Config.Seasonal {
		k++
	}
	return k
}
