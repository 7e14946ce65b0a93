// Package cv cross-validates forecasting candidates with expanding-window
// folds.
//
// Every (candidate, fold) pair is an independent unit of work. Units run on
// a bounded pool, each under its own timeout. A unit that fails in any way
// only marks its own candidate as failed:
//
//	records, err := cv.Evaluate(ctx, ec, cat, cv.WithLogger(log))
//	if err != nil {
//		return err // ctx was cancelled
//	}
//	for _, r := range records {
//		fmt.Println(r.CandidateID, r.Metrics[experiment.MetricMASE], r.Failed)
//	}
package cv
