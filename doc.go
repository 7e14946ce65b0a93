// Package autoforecast selects and fits a forecasting model for a single
// univariate time series.
//
// A run loads a regularly spaced series, cross-validates a fixed catalog of
// candidate models with rolling-origin folds, ranks them by a scale-free
// error metric, refits the winner on the whole series and forecasts a
// horizon with prediction intervals. It follows the methodology of
// "Forecasting: Principles and Practice".
//
// # Quick Start
//
// Run the whole experiment:
//
//	series, _ := timeseries.Load("onibus.xlsx", &timeseries.LoadOptions{ValueColumn: "Onibus"})
//	cfg := experiment.DefaultConfig()
//	cfg.Target = "Onibus"
//	p := pipeline.New()
//	bundle, err := p.Run(ctx, series, cfg, "out", export.CSV)
//
// Or fit a single model directly:
//
//	config := arima.DefaultAutoConfig()
//	result, _ := arima.Auto(ctx, series, config)
//	forecasts, _ := result.Predict(12)
//
// # Packages
//
//   - timeseries: series type, frequencies and csv/xlsx ingestion
//   - experiment: validated configuration and the per-run context
//   - catalog: the candidate models behind one fit/predict interface
//   - arima, smoothing, regression, baseline: the model families
//   - stats: ACF, Ljung-Box, unit-root tests, differencing and decomposition
//   - cv: rolling-origin cross-validation and error metrics
//   - rank: deterministic model ranking
//   - forecast: final refit and horizon forecast
//   - export: comparison and forecast tables in csv, tsv, json or yaml
//   - pipeline: the stage state machine tying it together
//   - errs: the error taxonomy
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Box, G. E. P., & Jenkins, G. M. (1976). Time Series Analysis: Forecasting and Control
package autoforecast
