// Package experiment validates an experiment configuration against a series
// and captures the result in an immutable Context.
//
//	cfg := experiment.DefaultConfig()
//	cfg.Target = "Onibus"
//	ec, err := experiment.Setup(series, cfg)
//	if errors.Is(err, errs.ErrConfig) {
//	    ...
//	}
//
// Defaults come from the struct tags (creasty/defaults) and are only applied
// by DefaultConfig and ApplyDefaults; Setup validates what it is given, so a
// zero horizon is rejected rather than silently defaulted.
package experiment
