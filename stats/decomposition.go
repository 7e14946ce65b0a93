package stats

import "math"

// Decomposition kinds.
const (
	Additive       = "additive"
	Multiplicative = "multiplicative"
)

// DecompositionResult holds the components of a classical decomposition.
// Trend and Residual are NaN where the centered moving average is undefined.
type DecompositionResult struct {
	Trend    []float64
	Seasonal []float64
	Residual []float64
	Pattern  []float64 // one seasonal index per position in the period
	Period   int
	Kind     string
}

// Decompose performs classical seasonal decomposition with a centered
// moving-average trend. kind is Additive (Y = T + S + R) or
// Multiplicative (Y = T * S * R); anything else falls back to Additive.
// It returns nil when values span fewer than two periods.
func Decompose(values []float64, period int, kind string) *DecompositionResult {
	n := len(values)
	if period < 2 || n < 2*period {
		return nil
	}
	if kind != Multiplicative {
		kind = Additive
	}
	mult := kind == Multiplicative

	trend := MovingAverage(values, period)

	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, v := range values {
		t := trend[i]
		if math.IsNaN(t) || (mult && t == 0) {
			continue
		}
		if mult {
			pattern[i%period] += v / t
		} else {
			pattern[i%period] += v - t
		}
		counts[i%period]++
	}

	mean := 0.0
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
		mean += pattern[i]
	}
	mean /= float64(period)
	for i := range pattern {
		if mult {
			pattern[i] /= mean
		} else {
			pattern[i] -= mean
		}
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i, v := range values {
		seasonal[i] = pattern[i%period]
		t := trend[i]
		switch {
		case math.IsNaN(t):
			residual[i] = math.NaN()
		case mult:
			if t == 0 || seasonal[i] == 0 {
				residual[i] = math.NaN()
			} else {
				residual[i] = v / (t * seasonal[i])
			}
		default:
			residual[i] = v - t - seasonal[i]
		}
	}

	return &DecompositionResult{
		Trend:    trend,
		Seasonal: seasonal,
		Residual: residual,
		Pattern:  pattern,
		Period:   period,
		Kind:     kind,
	}
}

// MovingAverage returns the centered moving average of width period, using
// a 2 x period average for even periods. Edges are NaN.
func MovingAverage(values []float64, period int) []float64 {
	n := len(values)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	half := period / 2

	for i := half; i < n-half; i++ {
		sum := 0.0
		if period%2 == 0 {
			sum += 0.5*values[i-half] + 0.5*values[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
		}
		out[i] = sum / float64(period)
	}
	return out
}
