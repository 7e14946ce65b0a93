// Package timeseries provides the canonical time series type and the loaders
// that produce it.
//
// A Series is a regularly spaced, strictly increasing sequence of
// observations. Its Frequency is inferred from the timestamps and is used to
// continue the time index past the last observation.
//
// # Loading
//
// Load a series from a delimited file or an Excel workbook:
//
//	opts := &timeseries.LoadOptions{
//	    TimeColumn:  "Mês",
//	    ValueColumn: "Onibus",
//	}
//	series, err := timeseries.Load("Onibus_1990.xlsx", opts)
//
// Loading deduplicates timestamps (the last occurrence wins), sorts them and
// rejects series with missing periods or missing values; nothing is imputed.
// Failures are errs.KindDataLoad errors.
//
// # Frequencies
//
// Hourly, daily, weekly, monthly, quarterly and yearly spacing is recognized.
// Month-based frequencies are calendar aware:
//
//	freq, _ := timeseries.InferFrequency(series.Timestamps)
//	next := freq.Add(series.Last(), 1)  // one month later for monthly data
//	sp := freq.Period()                 // 12 for monthly data
//
// # Slicing
//
// Series are treated as read-only once loaded. Slice, Head and Copy return
// independent copies:
//
//	train := series.Head(84)
//	test := series.Slice(84, 120)
package timeseries
