package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// NormalQuantile returns the standard normal quantile for probability p.
func NormalQuantile(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return distuv.UnitNormal.Quantile(p)
}

// Bands builds symmetric prediction intervals around point forecasts. The
// standard error of step h is sigma*growth(h); a nil growth uses sqrt(h).
func Bands(point []float64, sigma, confidence float64, growth func(h int) float64) (lower, upper []float64) {
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	if growth == nil {
		growth = func(h int) float64 { return math.Sqrt(float64(h)) }
	}
	z := NormalQuantile((1 + confidence) / 2)

	lower = make([]float64, len(point))
	upper = make([]float64, len(point))
	for i, p := range point {
		half := z * sigma * growth(i+1)
		lower[i] = p - half
		upper[i] = p + half
	}
	return lower, upper
}

// ResidualStd is the standard deviation of the finite residuals, with dof
// degrees of freedom removed from the denominator.
func ResidualStd(residuals []float64, dof int) float64 {
	sse := 0.0
	n := 0
	for _, r := range residuals {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		sse += r * r
		n++
	}
	if n == 0 {
		return 0
	}
	if n > dof {
		return math.Sqrt(sse / float64(n-dof))
	}
	return math.Sqrt(sse / float64(n))
}
