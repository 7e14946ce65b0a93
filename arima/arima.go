package arima

import (
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/autoforecast/stats"
	"github.com/sartorproj/autoforecast/timeseries"
)

// Order represents a seasonal ARIMA order (p, d, q) x (P, D, Q)[m].
type Order struct {
	P int // Non-seasonal AR order
	D int // Non-seasonal differencing order
	Q int // Non-seasonal MA order
	// Seasonal components
	SP int // Seasonal AR order
	SD int // Seasonal differencing order
	SQ int // Seasonal MA order
	M  int // Seasonal period
}

// IsSeasonal reports whether the order has any seasonal term.
func (o Order) IsSeasonal() bool {
	return o.M > 1 && (o.SP > 0 || o.SD > 0 || o.SQ > 0)
}

func (o Order) String() string {
	if !o.IsSeasonal() {
		return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
	}
	return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

func (o Order) numParams() int {
	return o.P + o.Q + o.SP + o.SQ + 1
}

func (o Order) minLength() int {
	m := o.M
	if !o.IsSeasonal() {
		m = 0
	}
	return o.P + o.Q + o.D + (o.SP+o.SD+o.SQ)*m + 20
}

// Model represents a seasonal ARIMA model estimated by conditional sum of
// squares. A zero seasonal order gives a plain ARIMA(p,d,q).
type Model struct {
	Order     Order
	ARCoeffs  []float64 // Non-seasonal AR coefficients
	MACoeffs  []float64 // Non-seasonal MA coefficients
	SARCoeffs []float64 // Seasonal AR coefficients
	SMACoeffs []float64 // Seasonal MA coefficients
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64 // Corrected AIC for small sample sizes
	BIC       float64
	LogLik    float64

	fitted    bool
	levels    [][]float64 // levels[0] is the input, each next level one more difference
	lags      []int       // lag of the difference producing levels[i+1]
	residuals []float64
}

// New creates a new model with the specified non-seasonal and seasonal orders.
func New(p, d, q, sp, sd, sq, m int) *Model {
	if m < 2 {
		sp, sd, sq, m = 0, 0, 0, 0
	}
	return &Model{
		Order: Order{
			P: p, D: d, Q: q,
			SP: sp, SD: sd, SQ: sq, M: m,
		},
		ARCoeffs:  make([]float64, p),
		MACoeffs:  make([]float64, q),
		SARCoeffs: make([]float64, sp),
		SMACoeffs: make([]float64, sq),
	}
}

// NewARIMA creates a non-seasonal ARIMA(p,d,q) model.
func NewARIMA(p, d, q int) *Model {
	return New(p, d, q, 0, 0, 0, 0)
}

// Fit fits the model to the given time series.
func (m *Model) Fit(series *timeseries.Series) error {
	if series == nil || series.Len() < m.Order.minLength() {
		return fmt.Errorf("insufficient data points for %s", m.Order)
	}

	m.levels = [][]float64{series.Values}
	m.lags = m.lags[:0]
	current := series.Values
	for i := 0; i < m.Order.D; i++ {
		current = stats.Diff(current, 1)
		m.levels = append(m.levels, current)
		m.lags = append(m.lags, 1)
	}
	for i := 0; i < m.Order.SD; i++ {
		current = stats.Diff(current, m.Order.M)
		m.levels = append(m.levels, current)
		m.lags = append(m.lags, m.Order.M)
	}
	if len(current) < 10 {
		return errors.New("differencing left too few observations")
	}

	m.fitCSS(current)
	m.calculateIC()
	m.fitted = true
	return nil
}

// diffData returns the fully differenced series the ARMA part is fitted on.
func (m *Model) diffData() []float64 {
	return m.levels[len(m.levels)-1]
}

// fitCSS fits the ARMA part with Conditional Sum of Squares estimation.
func (m *Model) fitCSS(y []float64) {
	p, sp, period := m.Order.P, m.Order.SP, m.Order.M

	// A constant is kept only while it stays a level or a drift.
	m.Intercept = 0
	if m.Order.D+m.Order.SD < 2 {
		m.Intercept = timeseries.Mean(y)
	}

	if p > 0 {
		if acf := stats.ACF(y, p); acf != nil {
			m.ARCoeffs = yuleWalker(acf, p)
		}
	}
	if sp > 0 {
		if acf := stats.ACF(y, sp*period); acf != nil {
			for i := 0; i < sp; i++ {
				if idx := (i + 1) * period; idx < len(acf) {
					m.SARCoeffs[i] = acf[idx] * 0.5
				}
			}
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}
	for i := range m.SMACoeffs {
		m.SMACoeffs[i] = 0.1
	}

	if m.Order.numParams() > 1 {
		m.optimizeCSS(y)
	}

	m.residuals = m.filter(y)

	start := m.startIndex(len(y))
	sse := 0.0
	for _, r := range m.residuals[start:] {
		sse += r * r
	}
	count := len(y) - start
	if k := m.Order.numParams(); count > k {
		m.Variance = sse / float64(count-k)
	} else {
		m.Variance = sse / float64(max(count, 1))
	}
}

func (m *Model) startIndex(n int) int {
	start := max(max(m.Order.P, m.Order.Q), max(m.Order.SP, m.Order.SQ)*m.Order.M)
	if start >= n-10 {
		return 0
	}
	return start
}

// predictAt returns the one-step prediction for index t given the series and
// the residuals observed so far. Residuals at or after limit count as zero.
func (m *Model) predictAt(y, residuals []float64, t, limit int) float64 {
	pred := m.Intercept
	for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
		pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Order.SP; i++ {
		if lag := (i + 1) * m.Order.M; t-lag >= 0 {
			pred += m.SARCoeffs[i] * (y[t-lag] - m.Intercept)
		}
	}
	for i := 0; i < m.Order.Q && t-i-1 >= 0 && t-i-1 < limit; i++ {
		pred += m.MACoeffs[i] * residuals[t-i-1]
	}
	for i := 0; i < m.Order.SQ; i++ {
		if lag := (i + 1) * m.Order.M; t-lag >= 0 && t-lag < limit {
			pred += m.SMACoeffs[i] * residuals[t-lag]
		}
	}
	return pred
}

// filter returns the one-step-ahead residuals of y.
func (m *Model) filter(y []float64) []float64 {
	n := len(y)
	residuals := make([]float64, n)
	for t := 0; t < n; t++ {
		residuals[t] = y[t] - m.predictAt(y, residuals, t, n)
	}
	return residuals
}

// optimizeCSS optimizes the coefficients by gradient descent with momentum
// and a decaying learning rate, keeping the best solution seen.
func (m *Model) optimizeCSS(y []float64) {
	n := len(y)
	p, q, sp, sq, period := m.Order.P, m.Order.Q, m.Order.SP, m.Order.SQ, m.Order.M

	const (
		maxIter   = 200
		tolerance = 1e-8
		momentum  = 0.9
		decay     = 0.99
	)
	learningRate := 0.005

	coeffs := [][]float64{m.ARCoeffs, m.MACoeffs, m.SARCoeffs, m.SMACoeffs}
	velocity := make([][]float64, len(coeffs))
	best := make([][]float64, len(coeffs))
	grads := make([][]float64, len(coeffs))
	for i, c := range coeffs {
		velocity[i] = make([]float64, len(c))
		best[i] = append([]float64(nil), c...)
		grads[i] = make([]float64, len(c))
	}

	start := m.startIndex(n)
	scale := math.Max(math.Sqrt(timeseries.Variance(y)), 1e-8)
	bestSSE := math.Inf(1)
	noImprove := 0

	for iter := 0; iter < maxIter; iter++ {
		residuals := m.filter(y)
		sse := 0.0
		for t := start; t < n; t++ {
			sse += residuals[t] * residuals[t]
		}
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			break
		}

		if sse < bestSSE {
			if bestSSE-sse < tolerance {
				bestSSE = sse
				break
			}
			bestSSE = sse
			for i, c := range coeffs {
				copy(best[i], c)
			}
			noImprove = 0
		} else if noImprove++; noImprove > 20 {
			break
		}

		for _, g := range grads {
			clear(g)
		}
		for t := start; t < n; t++ {
			e := residuals[t]
			for i := 0; i < p && t-i-1 >= 0; i++ {
				grads[0][i] -= 2 * e * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				grads[1][i] -= 2 * e * residuals[t-i-1]
			}
			for i := 0; i < sp; i++ {
				if lag := (i + 1) * period; t-lag >= 0 {
					grads[2][i] -= 2 * e * (y[t-lag] - m.Intercept)
				}
			}
			for i := 0; i < sq; i++ {
				if lag := (i + 1) * period; t-lag >= 0 {
					grads[3][i] -= 2 * e * residuals[t-lag]
				}
			}
		}

		// Gradients are normalized by the data scale so the step size does
		// not depend on the units of the series.
		norm := float64(n) * scale * scale
		for i, c := range coeffs {
			for j := range c {
				velocity[i][j] = momentum*velocity[i][j] + learningRate*grads[i][j]/norm
				c[j] = clamp(c[j]-velocity[i][j], -0.99, 0.99)
			}
		}
		learningRate *= decay
	}

	for i, c := range coeffs {
		copy(c, best[i])
	}
}

// calculateIC calculates the log-likelihood, AIC, AICc and BIC.
func (m *Model) calculateIC() {
	n := len(m.residuals)
	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}
	ic := stats.CalculateIC(stats.GaussianLogLik(sse, n), n, m.Order.numParams())
	m.LogLik = ic.LogLik
	m.AIC = ic.AIC
	m.AICc = ic.AICc
	m.BIC = ic.BIC
}

// Predict generates forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	forecasts, _, _, err := m.PredictWithInterval(steps, 0.95)
	return forecasts, err
}

// PredictWithInterval generates forecasts with prediction intervals.
// Returns point forecasts, lower bounds, and upper bounds at the given confidence level.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if !m.fitted {
		return nil, nil, nil, errors.New("model must be fitted before prediction")
	}
	if steps < 1 {
		return nil, nil, nil, errors.New("steps must be at least 1")
	}

	y := m.diffData()
	n := len(y)
	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for t := n; t < n+steps; t++ {
		extY[t] = m.predictAt(extY, extResiduals, t, n)
	}

	forecasts = extY[n:]
	for i := len(m.lags) - 1; i >= 0; i-- {
		forecasts = stats.Undiff(m.levels[i], forecasts, m.lags[i])
	}

	psi := m.psiWeights(steps)
	cum := make([]float64, steps)
	acc := 0.0
	for j := 0; j < steps; j++ {
		acc += psi[j] * psi[j]
		cum[j] = math.Sqrt(acc)
	}
	lower, upper = stats.Bands(forecasts, math.Sqrt(m.Variance), confidence, func(h int) float64 { return cum[h-1] })
	return forecasts, lower, upper, nil
}

// psiWeights returns the first h MA(infinity) weights of the integrated
// model, which drive the growth of the forecast error variance.
func (m *Model) psiWeights(h int) []float64 {
	ar := []float64{1}
	ar = polyMul(ar, lagPoly(m.ARCoeffs, 1, -1))
	ar = polyMul(ar, lagPoly(m.SARCoeffs, m.Order.M, -1))
	for _, lag := range m.lags {
		diff := make([]float64, lag+1)
		diff[0], diff[lag] = 1, -1
		ar = polyMul(ar, diff)
	}
	ma := polyMul(lagPoly(m.MACoeffs, 1, 1), lagPoly(m.SMACoeffs, m.Order.M, 1))

	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for i := 1; i < len(ar) && i <= j; i++ {
			v -= ar[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

// lagPoly builds 1 + sign*sum(c_i B^(i*lag)).
func lagPoly(c []float64, lag int, sign float64) []float64 {
	if len(c) == 0 || lag < 1 {
		return []float64{1}
	}
	out := make([]float64, len(c)*lag+1)
	out[0] = 1
	for i, v := range c {
		out[(i+1)*lag] = sign * v
	}
	return out
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// Residuals returns the model residuals on the differenced scale.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.residuals...)
}

// Summary represents a model summary.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int

	// Residual whiteness check; nil when there are too few residuals.
	LjungBox *stats.LjungBoxResult
}

// Summary returns a summary of the fitted model.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}
	lags := stats.LjungBoxLags(len(m.residuals), m.Order.M)
	fitdf := m.Order.P + m.Order.Q + m.Order.SP + m.Order.SQ
	return &Summary{
		Order:     m.Order,
		ARCoeffs:  m.ARCoeffs,
		MACoeffs:  m.MACoeffs,
		SARCoeffs: m.SARCoeffs,
		SMACoeffs: m.SMACoeffs,
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      len(m.levels[0]),
		LjungBox:  stats.LjungBox(m.residuals, lags, fitdf),
	}
}

// yuleWalker solves the Yule-Walker equations for initial AR estimates.
func yuleWalker(acf []float64, p int) []float64 {
	phi := make([]float64, p)
	if p == 0 || len(acf) <= p {
		return phi
	}
	// Durbin-Levinson on the supplied autocorrelations.
	prev := make([]float64, p+1)
	cur := make([]float64, p+1)
	prev[1] = acf[1]
	for k := 2; k <= p; k++ {
		num, den := acf[k], 1.0
		for j := 1; j < k; j++ {
			num -= prev[j] * acf[k-j]
			den -= prev[j] * acf[j]
		}
		if den == 0 {
			break
		}
		cur[k] = num / den
		for j := 1; j < k; j++ {
			cur[j] = prev[j] - cur[k]*prev[k-j]
		}
		prev, cur = cur, prev
	}
	for i := range phi {
		phi[i] = clamp(prev[i+1], -0.99, 0.99)
	}
	return phi
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
