package pipeline

import (
	"time"

	"stratex/internal/types"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 管道运行指标，注册在独立的 Registry 上。
type Metrics struct {
	Registry *prometheus.Registry

	runs          *prometheus.CounterVec
	steps         *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratex",
			Name:      "runs_total",
			Help:      "Pipeline runs by final import status.",
		}, []string{"status"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratex",
			Name:      "stage_total",
			Help:      "Debug steps recorded by step name and outcome.",
		}, []string{"step", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stratex",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent per pipeline phase.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
	}
	m.Registry.MustRegister(m.runs, m.steps, m.stageDuration)
	return m
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeRun(status types.ImportStatus, debug *types.DebugInfo) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(status)).Inc()
	if debug == nil {
		return
	}
	for _, s := range debug.Steps {
		m.steps.WithLabelValues(s.Step, string(s.Status)).Inc()
	}
}
