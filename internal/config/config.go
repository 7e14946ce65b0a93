// Package config loads the command configuration from a YAML file,
// environment variables with the AUTOFORECAST_ prefix, and defaults.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/experiment"
	"github.com/sartorproj/autoforecast/internal/logging"
	"github.com/sartorproj/autoforecast/timeseries"
)

// EnvPrefix prefixes every environment override, e.g.
// AUTOFORECAST_EXPERIMENT_HORIZON=24.
const EnvPrefix = "AUTOFORECAST"

const stageConfig = "config"

// Config is the full command configuration.
type Config struct {
	Source     SourceConfig      `mapstructure:"source" yaml:"source"`
	Experiment experiment.Config `mapstructure:"experiment" yaml:"experiment"`
	Output     OutputConfig      `mapstructure:"output" yaml:"output"`
	Logging    logging.Config    `mapstructure:"logging" yaml:"logging"`
	Tracing    TracingConfig     `mapstructure:"tracing" yaml:"tracing"`
}

// SourceConfig locates the input table.
type SourceConfig struct {
	Path        string `mapstructure:"path" yaml:"path" validate:"required"`
	TimeColumn  string `mapstructure:"time_column" yaml:"time_column"`
	ValueColumn string `mapstructure:"value_column" yaml:"value_column"` // defaults to the experiment target
	DateFormat  string `mapstructure:"date_format" yaml:"date_format"`
	Delimiter   string `mapstructure:"delimiter" yaml:"delimiter" default:","`
	Sheet       string `mapstructure:"sheet" yaml:"sheet"`
	SkipRows    int    `mapstructure:"skip_rows" yaml:"skip_rows" validate:"gte=0"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir" default:"out"`
	Format      string `mapstructure:"format" yaml:"format" default:"csv" validate:"oneof=csv tsv json yaml"`
	Precision   int32  `mapstructure:"precision" yaml:"precision" default:"4" validate:"gte=0,lte=12"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"` // Prometheus textfile, skipped when empty
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Exporter string `mapstructure:"exporter" yaml:"exporter" default:"none" validate:"oneof=none stdout"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads path (skipped when empty) over the defaults and applies
// environment overrides. The result is not validated; flags may still
// fill required fields, so call Validate afterwards.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Registering every key as a default is what lets AutomaticEnv reach
	// keys that are absent from the file.
	for key, value := range flatten(Default()) {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.New(errs.KindConfig, stageConfig, fmt.Errorf("read %s: %w", path, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.New(errs.KindConfig, stageConfig, fmt.Errorf("decode config: %w", err))
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errs.New(errs.KindConfig, stageConfig, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			field := strings.TrimPrefix(e.Namespace(), "Config.")
			if e.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", field, e.Tag(), e.Param(), e.Value()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s is %s", field, e.Tag()))
			}
		}
		return errs.Errorf(errs.KindConfig, stageConfig, "%s", strings.Join(msgs, "; "))
	}
	if utf8.RuneCountInString(c.Source.Delimiter) > 1 {
		return errs.Errorf(errs.KindConfig, stageConfig, "delimiter must be a single character, got %q", c.Source.Delimiter)
	}
	return nil
}

// LoadOptions converts the source section for timeseries.Load. The value
// column falls back to the experiment target.
func (c *Config) LoadOptions() *timeseries.LoadOptions {
	opts := &timeseries.LoadOptions{
		TimeColumn:  c.Source.TimeColumn,
		ValueColumn: c.Source.ValueColumn,
		DateFormat:  c.Source.DateFormat,
		Sheet:       c.Source.Sheet,
		SkipRows:    c.Source.SkipRows,
		Delimiter:   ',',
	}
	if opts.ValueColumn == "" {
		opts.ValueColumn = c.Experiment.Target
	}
	if r, _ := utf8.DecodeRuneInString(c.Source.Delimiter); r != utf8.RuneError {
		opts.Delimiter = r
	}
	return opts
}

// flatten maps every leaf of cfg to its dotted mapstructure key.
func flatten(cfg Config) map[string]any {
	out := make(map[string]any)
	walk(reflect.ValueOf(cfg), "", out)
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

func walk(v reflect.Value, prefix string, out map[string]any) {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Struct && fv.Type() != durationType {
			walk(fv, key, out)
			continue
		}
		out[key] = fv.Interface()
	}
}
