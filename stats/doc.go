// Package stats provides the statistical tests and helpers shared by the
// forecasting models.
//
// All functions operate on plain []float64 so they can be applied to a
// training window, a differenced series or a residual vector alike.
//
// # Stationarity Tests
//
//	// Augmented Dickey-Fuller, H0: unit root
//	adf := stats.ADF(values, 0)
//
//	// KPSS, H0: level stationary
//	kpss := stats.KPSS(values, "c", 0)
//
// Both return nil when the input is too short to test.
//
// # Differencing Analysis
//
//	d := stats.NDiffs(values, 2, stats.TestKPSS)
//	D := stats.NSDiffs(values, 12, 1)
//
// NSDiffs uses the seasonal strength F_S of a classical decomposition
// and suggests a seasonal difference when F_S >= 0.64.
//
// # Autocorrelation
//
//	acf := stats.ACF(values, 24)
//	seasonal := stats.SeasonalACFSignificant(values, 12, 0.95)
//
// # Residual Diagnostics
//
//	lb := stats.LjungBox(residuals, stats.LjungBoxLags(len(residuals), 12), p+q)
//	// lb.PValue < 0.05: residuals are autocorrelated
//
// # Decomposition
//
//	d := stats.Decompose(values, 12, stats.Additive)
//	// d.Trend, d.Seasonal, d.Residual, d.Pattern
//
// # Intervals
//
// Bands turns point forecasts and a residual standard deviation into
// symmetric normal prediction intervals whose width grows with the horizon.
package stats
