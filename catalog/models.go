package catalog

import (
	"context"
	"fmt"
	"maps"

	"github.com/sartorproj/autoforecast/arima"
	"github.com/sartorproj/autoforecast/baseline"
	"github.com/sartorproj/autoforecast/regression"
	"github.com/sartorproj/autoforecast/smoothing"
	"github.com/sartorproj/autoforecast/timeseries"
)

// Options parameterize the default catalog.
type Options struct {
	SeasonalPeriod int
	WindowLength   int
	// SeedFor derives the seed of a stochastic candidate from its id.
	// Nil seeds every candidate with 0.
	SeedFor func(id string) uint64
}

// model is a fitted state that can be estimated from a series.
type model interface {
	IntervalPredictor
	Fitted
	Fit(series *timeseries.Series) error
}

// adapter wraps a model constructor; each Fit builds a new model.
type adapter struct {
	id     string
	name   string
	params map[string]any
	build  func() model
}

func (a *adapter) ID() string   { return a.id }
func (a *adapter) Name() string { return a.name }

func (a *adapter) Params() map[string]any {
	return maps.Clone(a.params)
}

func (a *adapter) Fit(ctx context.Context, series *timeseries.Series) (Fitted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := a.build()
	if err := m.Fit(series); err != nil {
		return nil, fmt.Errorf("%s: %w", a.id, err)
	}
	return m, nil
}

// autoARIMA searches orders with the caller's context.
type autoARIMA struct {
	config arima.AutoConfig
}

func (a *autoARIMA) ID() string   { return "auto_arima" }
func (a *autoARIMA) Name() string { return "Auto ARIMA" }

func (a *autoARIMA) Params() map[string]any {
	return map[string]any{
		"sp":        a.config.SeasonalM,
		"criterion": a.config.Criterion,
		"max_p":     a.config.MaxP,
		"max_q":     a.config.MaxQ,
		"stepwise":  a.config.Stepwise,
	}
}

func (a *autoARIMA) Fit(ctx context.Context, series *timeseries.Series) (Fitted, error) {
	cfg := a.config
	result, err := arima.Auto(ctx, series, &cfg)
	if err != nil {
		return nil, fmt.Errorf("auto_arima: %w", err)
	}
	return result, nil
}

// Default returns the fixed candidate catalog.
func Default(opts Options) *Catalog {
	sp, window := opts.SeasonalPeriod, opts.WindowLength
	seedFor := opts.SeedFor
	if seedFor == nil {
		seedFor = func(string) uint64 { return 0 }
	}

	base := func(id, name string, method baseline.Method) Adapter {
		params := map[string]any{}
		if method == baseline.Seasonal {
			params["sp"] = sp
		}
		return &adapter{id: id, name: name, params: params, build: func() model { return baseline.New(method, sp) }}
	}
	lagged := func(id, name string, params map[string]any, est func() regression.Estimator) Adapter {
		params["window_length"] = window
		params["sp"] = sp
		return &adapter{id: id, name: name, params: params, build: func() model {
			return regression.NewForecaster(window, sp, est())
		}}
	}

	auto := arima.DefaultAutoConfig()
	auto.Seasonal = sp > 1
	auto.SeasonalM = sp
	auto.MaxP, auto.MaxQ = 3, 3
	auto.MaxSP, auto.MaxSQ = 1, 1
	auto.Criterion = arima.CriterionAICc

	baggingSeed := seedFor("bagging_cds_dt")

	c, err := New(
		base("naive", "Naive Forecaster", baseline.Naive),
		base("snaive", "Seasonal Naive Forecaster", baseline.Seasonal),
		base("grand_means", "Grand Means Forecaster", baseline.GrandMeans),
		base("drift", "Random Walk with Drift", baseline.Drift),
		base("polytrend", "Polynomial Trend Forecaster", baseline.PolyTrend),
		&adapter{
			id:     "arima",
			name:   "ARIMA",
			params: map[string]any{"order": "(1,0,0)", "seasonal_order": fmt.Sprintf("(0,1,0,%d)", sp)},
			build:  func() model { return arima.New(1, 0, 0, 0, 1, 0, sp) },
		},
		&autoARIMA{config: *auto},
		&adapter{
			id:     "ses",
			name:   "Simple Exponential Smoothing",
			params: map[string]any{"trend": false, "seasonal": false},
			build:  func() model { return smoothing.NewSES() },
		},
		&adapter{
			id:     "holt",
			name:   "Holt",
			params: map[string]any{"trend": "add", "seasonal": false},
			build:  func() model { return smoothing.NewHolt() },
		},
		&adapter{
			id:     "exp_smooth",
			name:   "Exponential Smoothing",
			params: map[string]any{"trend": "add", "seasonal": "add", "sp": sp},
			build:  func() model { return smoothing.NewHoltWinters(sp) },
		},
		lagged("lr_cds_dt", "Linear w/ Cond. Deseasonalize & Detrending", map[string]any{},
			func() regression.Estimator { return regression.NewLinear() }),
		lagged("ridge_cds_dt", "Ridge w/ Cond. Deseasonalize & Detrending", map[string]any{"alpha": 1.0},
			func() regression.Estimator { return regression.NewRidge(1) }),
		lagged("knn_cds_dt", "K Neighbors w/ Cond. Deseasonalize & Detrending", map[string]any{"n_neighbors": 5},
			func() regression.Estimator { return regression.NewKNN(5) }),
		lagged("bagging_cds_dt", "Bagging w/ Cond. Deseasonalize & Detrending",
			map[string]any{"n_estimators": 10, "seed": baggingSeed},
			func() regression.Estimator { return regression.NewBagging(10, baggingSeed) }),
	)
	if err != nil {
		// The ids above are fixed and distinct.
		panic(err)
	}
	return c
}
