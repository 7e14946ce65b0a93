package arima

import (
	"context"
	"errors"
	"math"

	"github.com/sartorproj/autoforecast/stats"
	"github.com/sartorproj/autoforecast/timeseries"
)

// Information criteria accepted by AutoConfig.Criterion.
const (
	CriterionAIC  = "aic"
	CriterionAICc = "aicc"
	CriterionBIC  = "bic"
)

// AutoConfig holds configuration for the automatic order search.
type AutoConfig struct {
	MaxP        int    // Maximum AR order (default: 5)
	MaxD        int    // Maximum differencing order (default: 2)
	MaxQ        int    // Maximum MA order (default: 5)
	MaxSP       int    // Maximum seasonal AR order (default: 2)
	MaxSD       int    // Maximum seasonal differencing order (default: 1)
	MaxSQ       int    // Maximum seasonal MA order (default: 2)
	Seasonal    bool   // Whether to consider seasonal models
	SeasonalM   int    // Seasonal period (required if Seasonal=true)
	Stepwise    bool   // Use stepwise search instead of exhaustive
	Criterion   string // "aic", "aicc" or "bic" (default: "aic")
	StationTest string // Stationarity test: "adf" or "kpss" (default: "kpss")
}

// DefaultAutoConfig returns the default search configuration.
func DefaultAutoConfig() *AutoConfig {
	return &AutoConfig{
		MaxP:        5,
		MaxD:        2,
		MaxQ:        5,
		MaxSP:       2,
		MaxSD:       1,
		MaxSQ:       2,
		Stepwise:    true,
		Criterion:   CriterionAIC,
		StationTest: stats.TestKPSS,
	}
}

// AutoResult represents the outcome of the order search.
type AutoResult struct {
	Model           *Model
	Order           Order
	Criterion       float64
	ModelsEvaluated int
}

// Predict generates forecasts using the selected model.
func (r *AutoResult) Predict(steps int) ([]float64, error) {
	return r.Model.Predict(steps)
}

// Summary returns the summary of the selected model.
func (r *AutoResult) Summary() *Summary {
	return r.Model.Summary()
}

// PredictWithInterval generates forecasts and intervals using the selected model.
func (r *AutoResult) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	return r.Model.PredictWithInterval(steps, confidence)
}

// Auto selects the orders that minimize the configured information
// criterion. The differencing orders are fixed up front by unit root and
// seasonal strength tests; only the AR and MA orders are searched. The
// context is checked between candidate fits.
func Auto(ctx context.Context, series *timeseries.Series, config *AutoConfig) (*AutoResult, error) {
	if config == nil {
		config = DefaultAutoConfig()
	}
	if series == nil || series.Len() < 10 {
		return nil, errors.New("auto arima needs at least 10 observations")
	}

	seasonal := config.Seasonal && config.SeasonalM > 1 && series.Len() >= 2*config.SeasonalM
	m := 0
	if seasonal {
		m = config.SeasonalM
	}

	sd := 0
	values := series.Values
	if seasonal && config.MaxSD > 0 {
		sd = stats.NSDiffs(values, m, config.MaxSD)
		for i := 0; i < sd; i++ {
			values = stats.Diff(values, m)
		}
	}
	d := determineDifferencing(values, config.MaxD, config.StationTest)

	s := &searcher{ctx: ctx, series: series, config: config, d: d, sd: sd, m: m}
	if config.Stepwise {
		s.stepwise()
	} else {
		s.exhaustive()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.best == nil {
		return nil, errors.New("no candidate order could be fitted")
	}
	return &AutoResult{
		Model:           s.best,
		Order:           s.best.Order,
		Criterion:       s.bestScore,
		ModelsEvaluated: s.evaluated,
	}, nil
}

// determineDifferencing accepts a level as stationary when KPSS and ADF
// agree, or when KPSS is comfortably above its 10% level.
func determineDifferencing(values []float64, maxD int, testType string) int {
	current := values
	for d := 0; d < maxD; d++ {
		kpss := stats.KPSS(current, "c", 0)
		adf := stats.ADF(current, 0)
		kpssOK := kpss != nil && kpss.IsStationary
		adfOK := adf != nil && adf.IsStationary

		var stationary bool
		if testType == stats.TestADF {
			stationary = adfOK
		} else {
			stationary = (kpssOK && adfOK) || (kpssOK && kpss.PValue > 0.1)
		}
		if stationary {
			return d
		}

		current = stats.Diff(current, 1)
		if len(current) < 10 {
			return d
		}
	}
	return maxD
}

type orderKey struct {
	p, q, sp, sq int
}

type searcher struct {
	ctx    context.Context
	series *timeseries.Series
	config *AutoConfig
	d, sd  int
	m      int

	seen      map[orderKey]bool
	best      *Model
	bestKey   orderKey
	bestScore float64
	evaluated int
}

func (s *searcher) allowed(c orderKey) bool {
	cfg := s.config
	if c.p < 0 || c.q < 0 || c.sp < 0 || c.sq < 0 {
		return false
	}
	if c.p > cfg.MaxP || c.q > cfg.MaxQ {
		return false
	}
	if s.m == 0 {
		return c.sp == 0 && c.sq == 0
	}
	return c.sp <= cfg.MaxSP && c.sq <= cfg.MaxSQ
}

// try fits one candidate and reports whether it improved on the best.
func (s *searcher) try(c orderKey) bool {
	if s.ctx.Err() != nil || !s.allowed(c) {
		return false
	}
	if s.seen == nil {
		s.seen = make(map[orderKey]bool)
		s.bestScore = math.Inf(1)
	}
	if s.seen[c] {
		return false
	}
	s.seen[c] = true

	model := New(c.p, s.d, c.q, c.sp, s.sd, c.sq, s.m)
	if err := model.Fit(s.series); err != nil {
		return false
	}
	s.evaluated++

	score := s.score(model)
	if math.IsNaN(score) || score >= s.bestScore {
		return false
	}
	s.best, s.bestKey, s.bestScore = model, c, score
	return true
}

func (s *searcher) score(model *Model) float64 {
	switch s.config.Criterion {
	case CriterionBIC:
		return model.BIC
	case CriterionAICc:
		return model.AICc
	}
	return model.AIC
}

func (s *searcher) stepwise() {
	starts := []orderKey{{0, 0, 0, 0}, {1, 0, 0, 0}, {0, 1, 0, 0}, {1, 1, 0, 0}, {2, 2, 0, 0}}
	if s.m > 0 {
		starts = []orderKey{{0, 0, 0, 0}, {1, 0, 1, 0}, {0, 1, 0, 1}, {1, 1, 1, 1}, {2, 2, 1, 1}}
	}
	for _, c := range starts {
		s.try(c)
	}
	if s.best == nil {
		return
	}

	for improved := true; improved && s.ctx.Err() == nil; {
		improved = false
		b := s.bestKey
		neighbors := []orderKey{
			{b.p + 1, b.q, b.sp, b.sq},
			{b.p - 1, b.q, b.sp, b.sq},
			{b.p, b.q + 1, b.sp, b.sq},
			{b.p, b.q - 1, b.sp, b.sq},
			{b.p + 1, b.q + 1, b.sp, b.sq},
			{b.p - 1, b.q - 1, b.sp, b.sq},
			{b.p, b.q, b.sp + 1, b.sq},
			{b.p, b.q, b.sp - 1, b.sq},
			{b.p, b.q, b.sp, b.sq + 1},
			{b.p, b.q, b.sp, b.sq - 1},
		}
		for _, c := range neighbors {
			if s.try(c) {
				improved = true
			}
		}
	}
}

func (s *searcher) exhaustive() {
	maxSP, maxSQ := 0, 0
	if s.m > 0 {
		maxSP, maxSQ = s.config.MaxSP, s.config.MaxSQ
	}
	for p := 0; p <= s.config.MaxP; p++ {
		for q := 0; q <= s.config.MaxQ; q++ {
			for sp := 0; sp <= maxSP; sp++ {
				for sq := 0; sq <= maxSQ; sq++ {
					s.try(orderKey{p, q, sp, sq})
				}
			}
		}
	}
}
