package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Submission("accepted")
	m.Submission("accepted")
	m.Submission("queue_full")
	m.RunFinished("completed")
	m.RunFinished("failed")
	m.RunStarted()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("queue_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	m.RunDone()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))

	m.ObserveStage("synthesis", time.Now(), nil)
	m.ObserveStage("compile", time.Now(), errors.New("boom"))
	count, err := testutil.GatherAndCount(reg, "script2vid_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Submission("accepted")
		m.RunFinished("completed")
		m.ObserveStage("publish", time.Now(), nil)
		m.RunStarted()
		m.RunDone()
	})
}

func TestNewWithNilRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}
