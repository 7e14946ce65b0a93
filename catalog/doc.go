// Package catalog holds the candidate forecasting models of an experiment.
//
// Each candidate is an Adapter with a stable id. Fit never mutates the
// adapter: it returns a new Fitted value, so the cross-validator can fit the
// same candidate on several folds in parallel and the finalizer can refit it
// on the full series without touching fold state.
//
//	cat := catalog.Default(catalog.Options{SeasonalPeriod: 12, WindowLength: 12})
//	cat, err := cat.Filter(nil, []string{"knn_cds_dt"})
//	for _, id := range cat.IDs() {
//	    a, _ := cat.Get(id)
//	    fitted, err := a.Fit(ctx, series)
//	    ...
//	}
package catalog
