package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

const outcomeOK = "ok"

// Metrics implements core.Recorder on a dedicated Prometheus registry.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	StepsTotal       *prometheus.CounterVec
	StepDuration     *prometheus.HistogramVec
	FilesServed      prometheus.Counter
	RateLimitedTotal prometheus.Counter

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "musicdl_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "musicdl_run_duration_seconds",
				Help:    "Time spent on a full pipeline run",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "musicdl_steps_total",
				Help: "Total number of pipeline steps by step and outcome",
			},
			[]string{"step", "outcome"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "musicdl_step_duration_seconds",
				Help:    "Time spent in each pipeline step",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"step"},
		),
		FilesServed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "musicdl_files_served_total",
				Help: "Total number of finished files handed out over HTTP",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "musicdl_rate_limited_total",
				Help: "Total number of chat requests refused by the flood gate",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RunsTotal,
		m.RunDuration,
		m.StepsTotal,
		m.StepDuration,
		m.FilesServed,
		m.RateLimitedTotal,
	)
	return m
}

func outcome(kind string) string {
	if kind == "" {
		return outcomeOK
	}
	return kind
}

func (m *Metrics) RecordStep(step core.Step, kind string, duration time.Duration) {
	m.StepsTotal.WithLabelValues(string(step), outcome(kind)).Inc()
	m.StepDuration.WithLabelValues(string(step)).Observe(duration.Seconds())
}

func (m *Metrics) RecordRun(kind string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(outcome(kind)).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

// RecordRateLimited counts a refused chat request.
func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
