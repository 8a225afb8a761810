package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Monitor struct {
	passRuns      *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	records       *prometheus.CounterVec
	runs          *prometheus.CounterVec
	lastRunFinish *prometheus.GaugeVec
}

// NewMonitor registers the maintenance metrics with reg. Pass
// prometheus.DefaultRegisterer to expose them on /metrics.
func NewMonitor(reg prometheus.Registerer) *Monitor {
	factory := promauto.With(reg)

	return &Monitor{
		passRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maintenance_pass_runs_total",
				Help: "Total maintenance pass executions by result status",
			},
			[]string{"pass", "status"},
		),
		passDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maintenance_pass_duration_seconds",
				Help:    "Duration of maintenance passes",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"pass"},
		),
		records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maintenance_records_total",
				Help: "Records scanned by maintenance passes by outcome",
			},
			[]string{"pass", "outcome"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maintenance_runs_total",
				Help: "Total maintenance invocations by status",
			},
			[]string{"status"},
		),
		lastRunFinish: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "maintenance_last_run_timestamp_seconds",
				Help: "Unix time of the last maintenance invocation per status",
			},
			[]string{"status"},
		),
	}
}

// Track pass executions
func (m *Monitor) TrackPass(pass, status string, duration time.Duration) {
	m.passRuns.WithLabelValues(pass, status).Inc()
	m.passDuration.WithLabelValues(pass).Observe(duration.Seconds())
}

func (m *Monitor) TrackRecords(pass, outcome string, n int) {
	if n <= 0 {
		return
	}
	m.records.WithLabelValues(pass, outcome).Add(float64(n))
}

func (m *Monitor) TrackRun(status string, finishedAt time.Time) {
	m.runs.WithLabelValues(status).Inc()
	m.lastRunFinish.WithLabelValues(status).Set(float64(finishedAt.Unix()))
}
