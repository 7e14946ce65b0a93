package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFold(t *testing.T) {
	r := New()
	r.RecordFold("naive", 0.01, false)
	r.RecordFold("naive", 0.02, true)
	r.RecordFold("arima", 0.5, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.foldFailures.WithLabelValues("naive")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.foldDuration))
}

func TestRecordStage(t *testing.T) {
	r := New()
	r.RecordStage("evaluate", 1.5, "")
	r.RecordStage("finalize", 0.1, "PredictionError")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.stageErrors.WithLabelValues("finalize", "PredictionError")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageErrors))
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.SetViable(3)
	b.SetViable(5)
	assert.Equal(t, 3.0, testutil.ToFloat64(a.candidates))
	assert.Equal(t, 5.0, testutil.ToFloat64(b.candidates))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordFold("naive", 1, true)
		r.RecordStage("setup", 1, "")
		r.SetViable(1)
	})
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.SetViable(3)
	path := filepath.Join(t.TempDir(), "autoforecast.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "autoforecast_viable_candidates 3")

	var nilRecorder *Recorder
	assert.NoError(t, nilRecorder.WriteTextfile(path))
}
