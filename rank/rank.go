// Package rank orders cross-validation records and picks the winner.
package rank

import (
	"cmp"
	"math"
	"slices"

	"github.com/sartorproj/autoforecast/cv"
	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/experiment"
)

const stageSelect = "select"

// SelectBest returns the id of the best scored candidate and the full
// comparison table. A record is scored when it did not fail and its
// primary metric is finite. Scored records come first, ordered by the
// primary metric (descending for higher-is-better metrics) with ties broken
// by candidate id. Unscored records follow in id order, then failed records
// in id order. Only a scored record can be selected; with none the error is
// NoViableModel.
//
// The result depends only on the arguments. seed is part of the signature
// so callers pass the experiment seed through; the ordering itself draws no
// random numbers. records is not modified.
func SelectBest(records []cv.Record, primary string, seed int64) (bestID string, table []cv.Record, err error) {
	if !slices.Contains(experiment.Metrics, primary) {
		return "", nil, errs.Errorf(errs.KindConfig, stageSelect, "unknown primary metric %q", primary)
	}

	scored := make([]cv.Record, 0, len(records))
	var unscored, failed []cv.Record
	for _, r := range records {
		r.Metrics = cloneMetrics(r.Metrics)
		v, ok := r.Metrics[primary]
		switch {
		case r.Failed:
			failed = append(failed, r)
		case !ok || math.IsNaN(v) || math.IsInf(v, 0):
			unscored = append(unscored, r)
		default:
			scored = append(scored, r)
		}
	}
	if len(scored) == 0 {
		return "", nil, errs.Errorf(errs.KindNoViableModel, stageSelect,
			"no candidate has a finite %s: %d failed, %d unscored", primary, len(failed), len(unscored))
	}

	desc := experiment.HigherIsBetter(primary)
	slices.SortStableFunc(scored, func(a, b cv.Record) int {
		if c := compareMetric(a.Metrics[primary], b.Metrics[primary], desc); c != 0 {
			return c
		}
		return cmp.Compare(a.CandidateID, b.CandidateID)
	})
	byID := func(a, b cv.Record) int { return cmp.Compare(a.CandidateID, b.CandidateID) }
	slices.SortStableFunc(unscored, byID)
	slices.SortStableFunc(failed, byID)

	table = slices.Concat(scored, unscored, failed)
	for i := range table {
		table[i].Rank = i + 1
	}
	return table[0].CandidateID, table, nil
}

func compareMetric(a, b float64, desc bool) int {
	if desc {
		return cmp.Compare(b, a)
	}
	return cmp.Compare(a, b)
}

func cloneMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
