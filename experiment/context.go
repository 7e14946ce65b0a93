package experiment

import (
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/sartorproj/autoforecast/catalog"
	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/timeseries"
)

const stageSetup = "setup"

// Context is a validated, immutable experiment: the series, its
// configuration and the seed every stochastic stage derives from.
type Context struct {
	series *timeseries.Series
	config Config
	runID  string
}

// Setup validates cfg against series and captures both. It fails with a
// ConfigError when the target is not the series' column, the window does
// not fit inside the series, or a field is out of range.
func Setup(series *timeseries.Series, cfg Config) (*Context, error) {
	if series == nil || series.Len() == 0 {
		return nil, errs.Errorf(errs.KindConfig, stageSetup, "series is empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errs.New(errs.KindConfig, stageSetup, err)
	}
	if series.Name != "" && cfg.Target != series.Name {
		return nil, errs.Errorf(errs.KindConfig, stageSetup, "target %q not found, series holds %q", cfg.Target, series.Name)
	}
	if cfg.WindowLength >= series.Len() {
		return nil, errs.Errorf(errs.KindConfig, stageSetup, "window length %d must be below the series length %d", cfg.WindowLength, series.Len())
	}

	return &Context{
		series: series.Copy(),
		config: cfg.clone(),
		runID:  uuid.NewString(),
	}, nil
}

// Series returns the experiment series. Callers must treat it as read-only.
func (c *Context) Series() *timeseries.Series {
	return c.series
}

// Config returns a copy of the configuration.
func (c *Context) Config() Config {
	return c.config.clone()
}

// RunID identifies this experiment in logs and traces.
func (c *Context) RunID() string {
	return c.runID
}

// Seed returns the configured seed.
func (c *Context) Seed() int64 {
	return c.config.Seed
}

// SeedFor derives a per-candidate seed from the experiment seed and the
// candidate id, so candidates draw independent but reproducible streams.
func (c *Context) SeedFor(id string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return splitmix(uint64(c.config.Seed) ^ h.Sum64())
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Catalog builds the default candidate catalog for this experiment,
// narrowed by the Include and Exclude lists.
func (c *Context) Catalog() (*catalog.Catalog, error) {
	cat := catalog.Default(catalog.Options{
		SeasonalPeriod: c.config.SeasonalPeriod,
		WindowLength:   c.config.WindowLength,
		SeedFor:        c.SeedFor,
	})
	if len(c.config.Include) == 0 && len(c.config.Exclude) == 0 {
		return cat, nil
	}
	filtered, err := cat.Filter(c.config.Include, c.config.Exclude)
	if err != nil {
		return nil, errs.New(errs.KindConfig, stageSetup, err)
	}
	return filtered, nil
}
