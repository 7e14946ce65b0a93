// Package arima implements seasonal ARIMA models and an automatic order
// search.
//
// A SARIMA(p,d,q)(P,D,Q)[m] model combines:
//   - AR(p) and seasonal AR(P) terms on lags 1..p and m, 2m, ..., Pm
//   - d first differences and D seasonal differences of lag m
//   - MA(q) and seasonal MA(Q) terms on past residuals
//
// Coefficients are estimated by conditional sum of squares with a momentum
// gradient descent. A constant is fitted only while the total differencing
// order is below two, so a seasonally differenced model keeps its drift.
//
// # Basic Usage
//
//	// Seasonal random walk with drift on monthly data
//	model := arima.New(1, 0, 0, 0, 1, 0, 12)
//	if err := model.Fit(series); err != nil {
//	    log.Fatal(err)
//	}
//	forecasts, lower, upper, _ := model.PredictWithInterval(36, 0.95)
//
// Non-seasonal models use NewARIMA(p, d, q).
//
// # Prediction Intervals
//
// Interval widths follow the psi weights of the integrated model, so a
// stationary AR model converges to a fixed width while differenced models
// widen with the horizon.
//
// # Automatic Order Selection
//
//	config := arima.DefaultAutoConfig()
//	config.Seasonal = true
//	config.SeasonalM = 12
//	result, err := arima.Auto(ctx, series, config)
//	fmt.Println(result.Order, result.ModelsEvaluated)
//
// Auto fixes D with the seasonal strength test and d with KPSS/ADF, then
// searches the AR and MA orders stepwise (or exhaustively) by AIC, AICc or
// BIC. Cancelling ctx stops the search between candidate fits.
package arima
