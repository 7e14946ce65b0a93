package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Unit root tests accepted by NDiffs.
const (
	TestKPSS = "kpss"
	TestADF  = "adf"
)

// NDiffs estimates how many first differences make values stationary.
// maxD defaults to 2 and testType to KPSS.
func NDiffs(values []float64, maxD int, testType string) int {
	if maxD <= 0 {
		maxD = 2
	}

	current := values
	for d := 0; d < maxD; d++ {
		if isStationary(current, testType) {
			return d
		}
		current = Diff(current, 1)
		if len(current) < 10 {
			return d
		}
	}
	return maxD
}

func isStationary(values []float64, testType string) bool {
	if testType == TestADF {
		r := ADF(values, 0)
		return r != nil && r.IsStationary
	}
	r := KPSS(values, "c", 0)
	return r != nil && r.IsStationary
}

// NSDiffs estimates how many seasonal differences values need. One is
// suggested while the seasonal strength F_S is at least 0.64.
func NSDiffs(values []float64, period int, maxD int) int {
	if maxD <= 0 {
		maxD = 1
	}
	if period <= 1 || len(values) < 2*period {
		return 0
	}

	current := values
	for d := 0; d < maxD; d++ {
		if SeasonalStrength(current, period) < 0.64 {
			return d
		}
		current = Diff(current, period)
		if len(current) < 2*period {
			return d
		}
	}
	return maxD
}

// SeasonalStrength returns F_S = max(0, 1 - Var(R)/Var(S+R)) from an
// additive classical decomposition.
func SeasonalStrength(values []float64, period int) float64 {
	d := Decompose(values, period, Additive)
	if d == nil {
		return 0
	}

	var resid, seasonalResid []float64
	for i := range d.Residual {
		if math.IsNaN(d.Residual[i]) {
			continue
		}
		resid = append(resid, d.Residual[i])
		seasonalResid = append(seasonalResid, d.Seasonal[i]+d.Residual[i])
	}
	if len(resid) < 2 {
		return 0
	}

	varSR := stat.Variance(seasonalResid, nil)
	if varSR == 0 {
		return 0
	}
	return math.Max(0, 1-stat.Variance(resid, nil)/varSR)
}

// Diff returns the lag-differenced values, values[i] - values[i-lag].
func Diff(values []float64, lag int) []float64 {
	if lag <= 0 || len(values) <= lag {
		return []float64{}
	}
	out := make([]float64, len(values)-lag)
	for i := range out {
		out[i] = values[i+lag] - values[i]
	}
	return out
}

// Undiff inverts Diff for forecasts: history holds the last undifferenced
// observations (at least lag of them) and diffs the forecasted differences.
func Undiff(history, diffs []float64, lag int) []float64 {
	buf := make([]float64, 0, len(history)+len(diffs))
	buf = append(buf, history...)
	for _, d := range diffs {
		buf = append(buf, buf[len(buf)-lag]+d)
	}
	return buf[len(history):]
}

// InformationCriteria holds AIC, AICc and BIC for a fitted model.
type InformationCriteria struct {
	AIC    float64
	AICc   float64
	BIC    float64
	LogLik float64
}

// CalculateIC calculates all information criteria from a log-likelihood.
func CalculateIC(logLik float64, nObs int, nParams int) *InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	aicc := math.Inf(1)
	if n-k-1 > 0 {
		aicc = aic + 2*k*(k+1)/(n-k-1)
	}

	return &InformationCriteria{
		AIC:    aic,
		AICc:   aicc,
		BIC:    -2*logLik + k*math.Log(n),
		LogLik: logLik,
	}
}

// GaussianLogLik returns the concentrated Gaussian log-likelihood for a
// residual sum of squares over n observations.
func GaussianLogLik(sse float64, n int) float64 {
	if n <= 0 {
		return math.Inf(-1)
	}
	sigma2 := sse / float64(n)
	if sigma2 <= 0 {
		sigma2 = 1e-10
	}
	return -0.5 * float64(n) * (math.Log(2*math.Pi*sigma2) + 1)
}
