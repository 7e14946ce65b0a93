// Package smoothing implements additive exponential smoothing forecasters.
//
//	ses := smoothing.NewSES()
//	holt := smoothing.NewHolt()
//	hw := smoothing.NewHoltWinters(12)
//
//	if err := hw.Fit(series); err != nil {
//	    log.Fatal(err)
//	}
//	forecasts, lower, upper, _ := hw.PredictWithInterval(36, 0.95)
//
// Unset smoothing parameters are chosen by a grid search over 0.05..0.95
// minimizing the in-sample one-step squared error, so fitting is
// deterministic. Holt-Winters initializes the level and trend from the first
// two seasons and needs at least two full periods plus two observations.
package smoothing
