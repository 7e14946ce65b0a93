package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/autoforecast/errs"
)

func writeSeries(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Mês,Onibus\n")
	start := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		v := 1000 + 3*float64(i) + 80*math.Sin(2*math.Pi*float64(i)/12)
		fmt.Fprintf(&b, "%s,%.2f\n", start.AddDate(0, i, 0).Format("2006-01-02"), v)
	}
	path := filepath.Join(dir, "onibus.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	source := writeSeries(t, dir, 60)
	cfgPath := filepath.Join(dir, "autoforecast.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
experiment:
  horizon: 12
  include: [naive, snaive, drift]
logging:
  level: disabled
output:
  metrics_file: `+filepath.Join(dir, "run.prom")+`
`), 0o644))

	out := filepath.Join(dir, "results")
	var stdout bytes.Buffer
	err := run(context.Background(), []string{
		"-config", cfgPath,
		"-source", source,
		"-target", "Onibus",
		"-out", out,
		"-format", "json",
		"-env", filepath.Join(dir, "missing.env"),
	}, &stdout)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "best model: ")
	assert.Contains(t, stdout.String(), filepath.Join(out, "predictions.json"))
	for _, name := range []string{"model_comparison.json", "predictions.json"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(dir, "run.prom"))
	assert.NoError(t, err)
}

func TestRunReportsConfigErrors(t *testing.T) {
	dir := t.TempDir()
	source := writeSeries(t, dir, 30)

	err := run(context.Background(), []string{
		"-source", source,
		"-env", filepath.Join(dir, "missing.env"),
	}, &bytes.Buffer{})
	require.Error(t, err, "target is required")
	assert.Equal(t, 2, exitCode(err))

	err = run(context.Background(), []string{
		"-source", filepath.Join(dir, "absent.csv"),
		"-target", "Onibus",
		"-env", filepath.Join(dir, "missing.env"),
	}, &bytes.Buffer{})
	assert.Equal(t, errs.KindDataLoad, errs.KindOf(err))
	assert.Equal(t, 3, exitCode(err))
}

func TestRunReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	source := writeSeries(t, dir, 48)
	env := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(env, []byte(
		"AUTOFORECAST_EXPERIMENT_TARGET=Onibus\n"+
			"AUTOFORECAST_EXPERIMENT_HORIZON=6\n"+
			"AUTOFORECAST_EXPERIMENT_INCLUDE=naive\n"+
			"AUTOFORECAST_LOGGING_LEVEL=disabled\n"), 0o644))
	t.Cleanup(func() {
		for _, k := range []string{"TARGET", "HORIZON", "INCLUDE"} {
			os.Unsetenv("AUTOFORECAST_EXPERIMENT_" + k)
		}
		os.Unsetenv("AUTOFORECAST_LOGGING_LEVEL")
	})

	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-source", source, "-out", filepath.Join(dir, "out"), "-env", env}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "(naive)")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(assert.AnError))
	assert.Equal(t, 4, exitCode(errs.Errorf(errs.KindNoViableModel, "select", "none")))
	assert.Equal(t, 5, exitCode(errs.Errorf(errs.KindExport, "export", "disk full")))
	assert.Equal(t, 6, exitCode(errs.Errorf(errs.KindPrediction, "forecast", "bad")))
}
