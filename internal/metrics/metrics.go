// Package metrics holds the service's Prometheus instrumentation. All
// metrics use the codeexec_ namespace and register on an explicit registry
// so tests can use isolated ones.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	SessionsCreated   prometheus.Counter
	SessionsDeleted   prometheus.Counter
	ExecutionsActive  prometheus.Gauge
}

// New creates and registers the service metrics on the given registry.
// Returns nil if reg is nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		ExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codeexec",
			Name:      "executions_total",
			Help:      "Total executions by language and outcome status.",
		}, []string{"language", "status"}),

		ExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "codeexec",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock execution duration in seconds by language.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"language"}),

		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "codeexec",
			Name:      "sessions_created_total",
			Help:      "Total sessions created.",
		}),

		SessionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "codeexec",
			Name:      "sessions_deleted_total",
			Help:      "Total sessions deleted.",
		}),

		ExecutionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codeexec",
			Name:      "executions_active",
			Help:      "Number of currently running executions.",
		}),
	}

	reg.MustRegister(
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.SessionsCreated,
		m.SessionsDeleted,
		m.ExecutionsActive,
	)

	return m
}

// ObserveExecution records one completed execution. Safe on a nil receiver
// so callers do not need metrics wired in tests.
func (m *Metrics) ObserveExecution(language, status string, seconds float64) {
	if m == nil {
		return
	}
	m.ExecutionsTotal.WithLabelValues(language, status).Inc()
	m.ExecutionDuration.WithLabelValues(language).Observe(seconds)
}

func (m *Metrics) IncSessionsCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

func (m *Metrics) IncSessionsDeleted() {
	if m == nil {
		return
	}
	m.SessionsDeleted.Inc()
}

func (m *Metrics) ExecStarted() {
	if m == nil {
		return
	}
	m.ExecutionsActive.Inc()
}

func (m *Metrics) ExecFinished() {
	if m == nil {
		return
	}
	m.ExecutionsActive.Dec()
}
