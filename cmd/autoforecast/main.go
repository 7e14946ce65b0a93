// Command autoforecast loads a time series, cross-validates the candidate
// catalog, refits the best model and writes the comparison and forecast
// tables.
//
// Usage:
//
//	autoforecast -config autoforecast.yaml
//	autoforecast -source data.xlsx -target Onibus -out results -format json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/export"
	"github.com/sartorproj/autoforecast/internal/config"
	"github.com/sartorproj/autoforecast/internal/logging"
	"github.com/sartorproj/autoforecast/internal/metrics"
	"github.com/sartorproj/autoforecast/pipeline"
	"github.com/sartorproj/autoforecast/timeseries"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "autoforecast:", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("autoforecast", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	source := fs.String("source", "", "input table (.csv, .tsv or .xlsx)")
	target := fs.String("target", "", "target column")
	out := fs.String("out", "", "output directory")
	format := fs.String("format", "", "output format: csv, tsv, json or yaml")
	envFile := fs.String("env", ".env", "dotenv file loaded before the configuration")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *source != "" {
		cfg.Source.Path = *source
	}
	if *target != "" {
		cfg.Experiment.Target = *target
	}
	if *out != "" {
		cfg.Output.Dir = *out
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	shutdown, err := setupTracing(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	outFormat, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	export.Precision = cfg.Output.Precision

	opts := cfg.LoadOptions()
	opts.Logger = &log
	series, err := timeseries.Load(cfg.Source.Path, opts)
	if err != nil {
		return err
	}
	log.Info().
		Str("source", cfg.Source.Path).
		Int("observations", series.Len()).
		Str("frequency", series.Freq.String()).
		Msg("series loaded")

	recorder := metrics.New()
	p := pipeline.New(pipeline.WithLogger(log), pipeline.WithMetrics(recorder))
	_, runErr := p.Run(ctx, series, cfg.Experiment, cfg.Output.Dir, outFormat)

	if cfg.Output.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			log.Warn().Err(err).Str("path", cfg.Output.MetricsFile).Msg("could not write metrics")
		}
	}
	if runErr != nil {
		return runErr
	}

	best := p.Table()[0]
	fmt.Fprintf(stdout, "best model: %s (%s) %s=%s\n", best.Name, best.CandidateID,
		cfg.Experiment.PrimaryMetric, export.FormatFloat(best.Metrics[cfg.Experiment.PrimaryMetric]))
	for _, path := range p.Paths() {
		fmt.Fprintf(stdout, "wrote %s\n", path)
	}
	return nil
}

// setupTracing installs a global tracer provider for the stdout exporter.
// With no exporter the global no-op provider stays in place.
func setupTracing(cfg config.TracingConfig) (func(context.Context) error, error) {
	if cfg.Exporter != "stdout" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// exitCode maps error kinds to distinct process exit codes.
func exitCode(err error) int {
	switch errs.KindOf(err) {
	case errs.KindDataLoad:
		return 3
	case errs.KindConfig:
		return 2
	case errs.KindNoViableModel:
		return 4
	case errs.KindExport:
		return 5
	case "":
		return 1
	}
	return 6
}
