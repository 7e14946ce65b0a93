package catalog

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/sartorproj/autoforecast/arima"
	"github.com/sartorproj/autoforecast/timeseries"
)

// Fitted is the opaque fitted state of a candidate.
type Fitted interface {
	Predict(steps int) ([]float64, error)
}

// IntervalPredictor is implemented by fitted states that can produce
// prediction intervals.
type IntervalPredictor interface {
	PredictWithInterval(steps int, coverage float64) (forecasts, lower, upper []float64, err error)
}

// Summarizer is implemented by fitted states that report estimation
// diagnostics.
type Summarizer interface {
	Summary() *arima.Summary
}

// Adapter is a candidate forecasting model. Adapters hold parameters only;
// every Fit returns fresh state, so one adapter can be fitted concurrently
// on different series.
type Adapter interface {
	ID() string
	Name() string
	Params() map[string]any
	Fit(ctx context.Context, series *timeseries.Series) (Fitted, error)
}

// Catalog is an immutable set of adapters keyed by id.
type Catalog struct {
	adapters map[string]Adapter
}

// New builds a catalog, rejecting empty and duplicate ids.
func New(adapters ...Adapter) (*Catalog, error) {
	c := &Catalog{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		id := a.ID()
		if id == "" {
			return nil, fmt.Errorf("adapter %q has an empty id", a.Name())
		}
		if _, dup := c.adapters[id]; dup {
			return nil, fmt.Errorf("duplicate candidate id %q", id)
		}
		c.adapters[id] = a
	}
	return c, nil
}

// IDs returns the candidate ids in lexical order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.adapters))
	for id := range c.adapters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of candidates.
func (c *Catalog) Len() int {
	return len(c.adapters)
}

// Get returns the adapter registered under id.
func (c *Catalog) Get(id string) (Adapter, bool) {
	a, ok := c.adapters[id]
	return a, ok
}

// Filter returns a catalog restricted to include (all when empty) minus
// exclude. Unknown ids in either list are an error.
func (c *Catalog) Filter(include, exclude []string) (*Catalog, error) {
	for _, id := range slices.Concat(include, exclude) {
		if _, ok := c.adapters[id]; !ok {
			return nil, fmt.Errorf("unknown candidate id %q", id)
		}
	}

	out := &Catalog{adapters: make(map[string]Adapter)}
	for id, a := range c.adapters {
		if len(include) > 0 && !slices.Contains(include, id) {
			continue
		}
		if slices.Contains(exclude, id) {
			continue
		}
		out.adapters[id] = a
	}
	if len(out.adapters) == 0 {
		return nil, fmt.Errorf("filter leaves no candidates")
	}
	return out, nil
}

// PredictWithInterval forecasts steps ahead with f. Bounds are NaN when f
// cannot produce intervals.
func PredictWithInterval(f Fitted, steps int, coverage float64) (forecasts, lower, upper []float64, err error) {
	if ip, ok := f.(IntervalPredictor); ok {
		return ip.PredictWithInterval(steps, coverage)
	}
	forecasts, err = f.Predict(steps)
	if err != nil {
		return nil, nil, nil, err
	}
	lower = make([]float64, len(forecasts))
	upper = make([]float64, len(forecasts))
	for i := range forecasts {
		lower[i], upper[i] = math.NaN(), math.NaN()
	}
	return forecasts, lower, upper, nil
}

// Summarize returns the estimation summary of f, or nil when f keeps none.
func Summarize(f Fitted) *arima.Summary {
	if s, ok := f.(Summarizer); ok {
		return s.Summary()
	}
	return nil
}
