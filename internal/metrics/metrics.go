package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	submissions   *prometheus.CounterVec
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
}

// New registers the pipeline collectors on reg. A nil reg creates an
// unexported registry, which keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "script2vid_submissions_total",
			Help: "Total number of generation submissions by outcome.",
		}, []string{"outcome"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "script2vid_pipeline_runs_total",
			Help: "Total number of finished pipeline runs by terminal status.",
		}, []string{"status"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "script2vid_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage", "result"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "script2vid_pipelines_in_flight",
			Help: "Number of pipelines currently running.",
		}),
	}
}

func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveStage(stage string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stageDuration.WithLabelValues(stage, result).Observe(time.Since(started).Seconds())
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) RunDone() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
