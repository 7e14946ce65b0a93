// Package pipeline drives one forecasting experiment through its stages:
// setup, cross-validation, selection, finalization, forecasting and export.
//
// Stages must run in order. Calling a stage out of order, or calling one a
// second time, fails with a SequenceError and leaves the pipeline as it
// was. A stage that fails for any other reason moves the pipeline to
// StateAborted, after which every call fails with a SequenceError. A
// Pipeline is not safe for concurrent use.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sartorproj/autoforecast/catalog"
	"github.com/sartorproj/autoforecast/cv"
	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/experiment"
	"github.com/sartorproj/autoforecast/export"
	"github.com/sartorproj/autoforecast/forecast"
	"github.com/sartorproj/autoforecast/internal/metrics"
	"github.com/sartorproj/autoforecast/rank"
	"github.com/sartorproj/autoforecast/timeseries"
)

const tracerName = "github.com/sartorproj/autoforecast/pipeline"

// Stage names used in errors, logs, spans and metrics.
const (
	StageSetup    = "setup"
	StageEvaluate = "evaluate"
	StageSelect   = "select"
	StageFinalize = "finalize"
	StageForecast = "forecast"
	StageExport   = "export"
)

// Pipeline holds the state of one experiment.
type Pipeline struct {
	log     zerolog.Logger
	metrics *metrics.Recorder
	tracer  trace.Tracer
	catalog *catalog.Catalog // overrides the default catalog when set

	state   State
	ec      *experiment.Context
	cat     *catalog.Catalog
	records []cv.Record
	table   []cv.Record
	bestID  string
	model   *forecast.FinalizedModel
	result  *forecast.Result
	bundle  export.Bundle
	paths   []string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics records stage and fold measurements on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = r }
}

// WithTracerProvider sets the span source. The default is the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(tracerName) }
}

// WithCatalog replaces the default candidate catalog. The experiment's
// Include and Exclude lists still apply.
func WithCatalog(c *catalog.Catalog) Option {
	return func(p *Pipeline) { p.catalog = c }
}

// New creates a pipeline in StateInit.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		log:    zerolog.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current state.
func (p *Pipeline) State() State { return p.state }

// Context returns the experiment context, nil before Setup.
func (p *Pipeline) Context() *experiment.Context { return p.ec }

// Records returns the cross-validation records in candidate id order.
func (p *Pipeline) Records() []cv.Record { return p.records }

// Table returns the ranked comparison table.
func (p *Pipeline) Table() []cv.Record { return p.table }

// BestID returns the selected candidate.
func (p *Pipeline) BestID() string { return p.bestID }

// Model returns the finalized model.
func (p *Pipeline) Model() *forecast.FinalizedModel { return p.model }

// Result returns the forecast.
func (p *Pipeline) Result() *forecast.Result { return p.result }

// Bundle returns the exported tables.
func (p *Pipeline) Bundle() export.Bundle { return p.bundle }

// Paths returns the files written by Export.
func (p *Pipeline) Paths() []string { return p.paths }

// run executes fn as stage name when the pipeline is in state from, and
// moves it to state to on success.
func (p *Pipeline) run(ctx context.Context, name string, from, to State, fn func(ctx context.Context, log zerolog.Logger) error) error {
	if p.state != from {
		return errs.Errorf(errs.KindSequence, name, "stage %s requires state %s, pipeline is %s", name, from, p.state)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline."+name, trace.WithAttributes(attribute.String("stage", name)))
	defer span.End()

	log := p.log.With().Str("stage", name).Logger()
	if p.ec != nil {
		log = log.With().Str("run_id", p.ec.RunID()).Logger()
		span.SetAttributes(attribute.String("run_id", p.ec.RunID()))
	}

	start := time.Now()
	err := fn(ctx, log)
	seconds := time.Since(start).Seconds()

	if err != nil {
		kind := string(errs.KindOf(err))
		if kind == "" {
			kind = "Unclassified"
		}
		p.state = StateAborted
		p.metrics.RecordStage(name, seconds, kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		log.Error().Err(err).Str("kind", kind).Float64("seconds", seconds).Msg("stage failed, pipeline aborted")
		return err
	}

	p.state = to
	p.metrics.RecordStage(name, seconds, "")
	span.SetStatus(codes.Ok, "")
	log.Info().Float64("seconds", seconds).Str("state", to.String()).Msg("stage complete")
	return nil
}

// Setup validates cfg against series and builds the candidate catalog.
func (p *Pipeline) Setup(ctx context.Context, series *timeseries.Series, cfg experiment.Config) error {
	return p.run(ctx, StageSetup, StateInit, StateConfigured, func(_ context.Context, log zerolog.Logger) error {
		ec, err := experiment.Setup(series, cfg)
		if err != nil {
			return err
		}

		var cat *catalog.Catalog
		if p.catalog != nil {
			cat = p.catalog
			if len(cfg.Include) > 0 || len(cfg.Exclude) > 0 {
				if cat, err = cat.Filter(cfg.Include, cfg.Exclude); err != nil {
					return errs.New(errs.KindConfig, StageSetup, err)
				}
			}
		} else if cat, err = ec.Catalog(); err != nil {
			return err
		}

		p.ec, p.cat = ec, cat
		log.Info().
			Str("run_id", ec.RunID()).
			Str("target", cfg.Target).
			Int("observations", series.Len()).
			Str("frequency", series.Freq.String()).
			Int("candidates", cat.Len()).
			Msg("experiment configured")
		return nil
	})
}

// Evaluate cross-validates every candidate. Candidate failures are
// recorded, not returned.
func (p *Pipeline) Evaluate(ctx context.Context) error {
	return p.run(ctx, StageEvaluate, StateConfigured, StateEvaluated, func(ctx context.Context, log zerolog.Logger) error {
		records, err := cv.Evaluate(ctx, p.ec, p.cat, cv.WithLogger(log), cv.WithMetrics(p.metrics))
		if err != nil {
			return err
		}

		failed := 0
		for _, r := range records {
			if r.Failed {
				failed++
				log.Warn().Str("candidate", r.CandidateID).Errs("folds", r.Errors).Msg("candidate failed cross-validation")
			}
		}
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("candidates", len(records)),
			attribute.Int("failed", failed),
		)
		p.records = records
		return nil
	})
}

// Select ranks the records and returns the winning candidate id.
func (p *Pipeline) Select(ctx context.Context) (string, error) {
	err := p.run(ctx, StageSelect, StateEvaluated, StateSelected, func(ctx context.Context, log zerolog.Logger) error {
		cfg := p.ec.Config()
		best, table, err := rank.SelectBest(p.records, cfg.PrimaryMetric, cfg.Seed)
		if err != nil {
			p.metrics.SetViable(0)
			return err
		}

		viable := 0
		for _, r := range table {
			if !r.Failed {
				viable++
			}
		}
		p.metrics.SetViable(viable)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("best", best))
		log.Info().
			Str("best", best).
			Str("metric", cfg.PrimaryMetric).
			Float64("score", table[0].Metrics[cfg.PrimaryMetric]).
			Int("viable", viable).
			Msg("model selected")

		p.bestID, p.table = best, table
		return nil
	})
	return p.bestID, err
}

// Finalize refits the selected candidate on the full series.
func (p *Pipeline) Finalize(ctx context.Context) error {
	return p.run(ctx, StageFinalize, StateSelected, StateFinalized, func(ctx context.Context, log zerolog.Logger) error {
		model, err := forecast.Finalize(ctx, p.cat, p.bestID, p.ec.Series())
		if err != nil {
			return err
		}
		ev := log.Debug().Str("candidate", model.CandidateID).Float64("fit_seconds", model.FitSeconds)
		if s := model.Summary; s != nil {
			ev = ev.Str("order", s.Order.String()).Float64("aicc", s.AICc).Float64("sigma2", s.Variance)
			if lb := s.LjungBox; lb != nil {
				ev = ev.Float64("ljung_box_q", lb.Statistic).Float64("ljung_box_p", lb.PValue).Int("ljung_box_lags", lb.Lags)
			}
		}
		ev.Msg("model refitted")
		p.model = model
		return nil
	})
}

// Forecast predicts horizon steps past the series end at the configured
// interval coverage.
func (p *Pipeline) Forecast(ctx context.Context, horizon int) (*forecast.Result, error) {
	err := p.run(ctx, StageForecast, StateFinalized, StateForecasted, func(_ context.Context, log zerolog.Logger) error {
		res, err := forecast.Predict(p.model, horizon, p.ec.Config().Coverage)
		if err != nil {
			return err
		}
		log.Debug().
			Int("horizon", horizon).
			Time("first", res.Points[0].Time).
			Time("last", res.Points[len(res.Points)-1].Time).
			Msg("forecast ready")
		p.result = res
		return nil
	})
	return p.result, err
}

// Export renders the comparison and forecast tables. When dir is not empty
// they are also written there in the given format.
func (p *Pipeline) Export(ctx context.Context, dir string, format export.Format) (export.Bundle, error) {
	err := p.run(ctx, StageExport, StateForecasted, StateExported, func(_ context.Context, log zerolog.Logger) error {
		bundle := export.Bundle{
			Comparison:  export.ComparisonTable(p.table, nil),
			Predictions: export.ForecastTable(p.result),
		}
		if dir != "" {
			paths, err := export.WriteFiles(dir, format, bundle)
			if err != nil {
				return err
			}
			p.paths = paths
			log.Info().Strs("files", paths).Msg("results written")
		}
		p.bundle = bundle
		return nil
	})
	return p.bundle, err
}

// Run executes every stage in order with the configured horizon.
func (p *Pipeline) Run(ctx context.Context, series *timeseries.Series, cfg experiment.Config, dir string, format export.Format) (export.Bundle, error) {
	if err := p.Setup(ctx, series, cfg); err != nil {
		return export.Bundle{}, err
	}
	if err := p.Evaluate(ctx); err != nil {
		return export.Bundle{}, err
	}
	if _, err := p.Select(ctx); err != nil {
		return export.Bundle{}, err
	}
	if err := p.Finalize(ctx); err != nil {
		return export.Bundle{}, err
	}
	if _, err := p.Forecast(ctx, p.ec.Config().Horizon); err != nil {
		return export.Bundle{}, err
	}
	return p.Export(ctx, dir, format)
}
