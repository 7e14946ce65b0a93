package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult holds a Ljung-Box portmanteau test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// LjungBox tests residuals for autocorrelation up to lags. fitdf is the
// number of estimated ARMA coefficients and is subtracted from the degrees
// of freedom. A small p-value means the residuals are not white noise.
// Returns nil with fewer than 10 residuals or constant residuals.
func LjungBox(residuals []float64, lags, fitdf int) *LjungBoxResult {
	n := len(residuals)
	if n < 10 || lags < 1 {
		return nil
	}
	lags = min(lags, n-1)

	acf := ACF(residuals, lags)
	if acf == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += acf[k] * acf[k] / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := max(lags-fitdf, 1)
	return &LjungBoxResult{
		Statistic: q,
		PValue:    1 - distuv.ChiSquared{K: float64(dof)}.CDF(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// LjungBoxLags is the usual lag choice: 10 for non-seasonal data, two
// seasons for seasonal data, capped at a fifth of the sample.
func LjungBoxLags(n, period int) int {
	lags := 10
	if period > 1 {
		lags = 2 * period
	}
	return max(min(lags, n/5), 1)
}
