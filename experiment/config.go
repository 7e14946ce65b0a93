package experiment

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Metric names understood by the cross-validator and the ranker.
const (
	MetricMASE  = "MASE"
	MetricRMSSE = "RMSSE"
	MetricMAE   = "MAE"
	MetricRMSE  = "RMSE"
	MetricMAPE  = "MAPE"
	MetricSMAPE = "SMAPE"
	MetricR2    = "R2"
)

// Metrics lists every metric in reporting order.
var Metrics = []string{MetricMASE, MetricRMSSE, MetricMAE, MetricRMSE, MetricMAPE, MetricSMAPE, MetricR2}

// HigherIsBetter reports whether larger values of metric are preferred.
func HigherIsBetter(metric string) bool {
	return metric == MetricR2
}

// Config is the experiment configuration. Zero values are not replaced in
// Setup; start from DefaultConfig to get the documented defaults.
type Config struct {
	Target         string        `mapstructure:"target" yaml:"target" validate:"required"`
	SeasonalPeriod int           `mapstructure:"seasonal_period" yaml:"seasonal_period" default:"12" validate:"gt=0"`
	WindowLength   int           `mapstructure:"window_length" yaml:"window_length" default:"12" validate:"gt=0"`
	Seed           int64         `mapstructure:"seed" yaml:"seed" default:"123"`
	Horizon        int           `mapstructure:"horizon" yaml:"horizon" default:"36" validate:"gt=0"`
	Folds          int           `mapstructure:"folds" yaml:"folds" default:"2" validate:"gte=1"`
	PrimaryMetric  string        `mapstructure:"primary_metric" yaml:"primary_metric" default:"MASE" validate:"oneof=MASE RMSSE MAE RMSE MAPE SMAPE R2"`
	Coverage       float64       `mapstructure:"coverage" yaml:"coverage" default:"0.95" validate:"gt=0,lt=1"`
	FoldTimeout    time.Duration `mapstructure:"fold_timeout" yaml:"fold_timeout" default:"30s" validate:"gt=0"`
	Workers        int           `mapstructure:"workers" yaml:"workers" default:"4" validate:"gte=1"`
	Include        []string      `mapstructure:"include" yaml:"include"`
	Exclude        []string      `mapstructure:"exclude" yaml:"exclude"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("experiment defaults: %v", err))
	}
	return cfg
}

// ApplyDefaults fills the zero fields of cfg.
func ApplyDefaults(cfg *Config) error {
	return defaults.Set(cfg)
}

func (c Config) clone() Config {
	c.Include = slices.Clone(c.Include)
	c.Exclude = slices.Clone(c.Exclude)
	return c
}

var validate = validator.New()

// Validate checks the field constraints that do not depend on the series.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", e.Field(), e.Tag(), e.Param(), e.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", e.Field(), e.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
