// Package regression turns regressors into forecasters by reduction to lag
// windows.
//
// A Forecaster conditionally deseasonalizes the series (only when the
// autocorrelation at the seasonal lag is significant, multiplicatively for
// strictly positive data), removes a linear trend, and fits an Estimator on
// rows of Window consecutive values predicting the next one. Forecasts are
// produced recursively, feeding each prediction back into the window.
//
//	f := regression.NewForecaster(12, 12, regression.NewRidge(1))
//	if err := f.Fit(series); err != nil {
//	    log.Fatal(err)
//	}
//	forecasts, err := f.Predict(36)
//
// Estimators: NewLinear (least squares), NewRidge, NewKNN and NewBagging,
// a bootstrap ensemble of ridge fits drawn from a seeded PCG generator.
package regression
