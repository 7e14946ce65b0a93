package cv

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/autoforecast/catalog"
	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/experiment"
	"github.com/sartorproj/autoforecast/internal/metrics"
	"github.com/sartorproj/autoforecast/timeseries"
)

const stageEvaluate = "evaluate"

// Record is the cross-validated evaluation of one candidate.
type Record struct {
	CandidateID string
	Name        string
	Params      map[string]any
	Metrics     map[string]float64
	Rank        int
	Failed      bool
	Errors      []error // one FoldEvaluationError per failing fold
	FitSeconds  float64 // mean wall time per fold
}

// Fold is one rolling-origin split: train on [0, TrainEnd), test on
// [TrainEnd, TestEnd).
type Fold struct {
	Index    int
	TrainEnd int
	TestEnd  int
}

// Folds returns k expanding-window folds whose test blocks of length
// horizon tile the end of a series of length n. Folds whose training
// prefix would be empty are still returned; evaluating them fails.
func Folds(n, horizon, k int) []Fold {
	folds := make([]Fold, k)
	for i := range folds {
		end := n - (k-i-1)*horizon
		folds[i] = Fold{Index: i, TrainEnd: end - horizon, TestEnd: end}
	}
	return folds
}

type evaluator struct {
	log     zerolog.Logger
	metrics *metrics.Recorder
}

// Option configures Evaluate.
type Option func(*evaluator)

// WithLogger logs one debug line per (candidate, fold) unit.
func WithLogger(log zerolog.Logger) Option {
	return func(e *evaluator) { e.log = log }
}

// WithMetrics records fold durations and failures.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *evaluator) { e.metrics = r }
}

type unitResult struct {
	metrics map[string]float64
	err     error
	seconds float64
}

// Evaluate cross-validates every candidate of cat on the experiment series.
// Each (candidate, fold) pair runs on a bounded worker pool with its own
// timeout; a failing pair marks only its candidate as failed. A pair past
// its deadline is failed but holds its slot until the fit returns, so at
// most Workers fits run at once. Records are returned in candidate id
// order. Cancelling ctx aborts with ctx's error.
func Evaluate(ctx context.Context, ec *experiment.Context, cat *catalog.Catalog, opts ...Option) ([]Record, error) {
	e := &evaluator{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	if cat == nil || cat.Len() == 0 {
		return nil, errs.Errorf(errs.KindConfig, stageEvaluate, "catalog has no candidates")
	}

	cfg := ec.Config()
	series := ec.Series()
	ids := cat.IDs()
	folds := Folds(series.Len(), cfg.Horizon, cfg.Folds)

	results := make([][]unitResult, len(ids))
	for i := range results {
		results[i] = make([]unitResult, len(folds))
	}

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i, id := range ids {
		adapter, _ := cat.Get(id)
		for j, fold := range folds {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				m, err := e.runUnit(ctx, adapter, series, fold, cfg)
				res := unitResult{metrics: m, err: err, seconds: time.Since(start).Seconds()}
				results[i][j] = res

				e.metrics.RecordFold(id, res.seconds, err != nil)
				ev := e.log.Debug().Str("candidate", id).Int("fold", fold.Index).Float64("seconds", res.seconds)
				if err != nil {
					ev = ev.Err(err)
				}
				ev.Msg("fold evaluated")
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]Record, len(ids))
	for i, id := range ids {
		adapter, _ := cat.Get(id)
		records[i] = aggregate(id, adapter, results[i])
	}
	return records, nil
}

// runUnit fits on the fold's prefix and scores the held-out block.
func (e *evaluator) runUnit(ctx context.Context, adapter catalog.Adapter, series *timeseries.Series, fold Fold, cfg experiment.Config) (map[string]float64, error) {
	foldErr := func(err error) error {
		return errs.New(errs.KindFoldEvaluation, stageEvaluate, fmt.Errorf("candidate %s fold %d: %w", adapter.ID(), fold.Index, err))
	}
	if fold.TrainEnd < 1 {
		return nil, foldErr(fmt.Errorf("no training data: %d observations cannot hold %d folds of horizon %d", series.Len(), cfg.Folds, cfg.Horizon))
	}

	uctx, cancel := context.WithTimeout(ctx, cfg.FoldTimeout)
	defer cancel()

	train := series.Head(fold.TrainEnd)
	horizon := fold.TestEnd - fold.TrainEnd

	type outcome struct {
		pred []float64
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		fitted, err := adapter.Fit(uctx, train)
		if err != nil {
			done <- outcome{err: fmt.Errorf("fit: %w", err)}
			return
		}
		pred, err := fitted.Predict(horizon)
		if err != nil {
			err = fmt.Errorf("predict: %w", err)
		}
		done <- outcome{pred: pred, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-uctx.Done():
		// The unit keeps its worker slot until the fit returns so that a
		// fit ignoring ctx never runs beside a fresh one past the limit.
		<-done
		return nil, foldErr(fmt.Errorf("timed out after %s: %w", cfg.FoldTimeout, uctx.Err()))
	}
	if out.err != nil {
		return nil, foldErr(out.err)
	}
	if len(out.pred) != horizon {
		return nil, foldErr(fmt.Errorf("predicted %d values for a horizon of %d", len(out.pred), horizon))
	}
	for h, v := range out.pred {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, foldErr(fmt.Errorf("non-finite prediction at step %d", h+1))
		}
	}

	actual := series.Values[fold.TrainEnd:fold.TestEnd]
	return Score(actual, out.pred, train.Values, cfg.SeasonalPeriod), nil
}

func aggregate(id string, adapter catalog.Adapter, units []unitResult) Record {
	rec := Record{
		CandidateID: id,
		Name:        adapter.Name(),
		Params:      adapter.Params(),
	}

	total := 0.0
	for _, u := range units {
		total += u.seconds
		if u.err != nil {
			rec.Errors = append(rec.Errors, u.err)
		}
	}
	if len(units) > 0 {
		rec.FitSeconds = total / float64(len(units))
	}

	if len(rec.Errors) > 0 {
		rec.Failed = true
		rec.Metrics = nanMetrics()
		return rec
	}

	rec.Metrics = make(map[string]float64, len(experiment.Metrics))
	for _, name := range experiment.Metrics {
		sum := 0.0
		for _, u := range units {
			sum += u.metrics[name]
		}
		rec.Metrics[name] = sum / float64(len(units))
	}
	return rec
}
