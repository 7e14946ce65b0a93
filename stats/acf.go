package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ACF calculates the autocorrelation function of values for lags 0 to maxLag.
// Returns nil for constant input.
func ACF(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(values, nil)
	denom := 0.0
	for _, v := range values {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (values[i] - mean) * (values[i-k] - mean)
		}
		acf[k] = sum / denom
	}
	return acf
}

// SeasonalACFSignificant reports whether the autocorrelation at lag period
// exceeds its one-sided confidence bound, using Bartlett's variance formula
// for the sum of squared lower-lag autocorrelations.
func SeasonalACFSignificant(values []float64, period int, confidence float64) bool {
	n := len(values)
	if period < 2 || n < 3*period {
		return false
	}
	acf := ACF(values, period)
	if acf == nil {
		return false
	}

	sumSq := 0.0
	for k := 1; k < period; k++ {
		sumSq += acf[k] * acf[k]
	}
	limit := NormalQuantile(confidence) * math.Sqrt((1+2*sumSq)/float64(n))
	return math.Abs(acf[period]) > limit
}
