/*
metrics.go - Prometheus instrumentation for selection runs

METRICS:
  convocacao_runs_total{source, mode, outcome}
      One per run. outcome is "ok" or the error class ("client_error",
      "input_absent", "not_found", "source_unavailable", "internal").

  convocacao_decisions_total{status}
      One per audit entry: selected, forced, skipped.

  convocacao_run_duration_seconds{source}
      Load + merge + select, excluding response encoding.

REGISTRY:
  Each Handler owns a private registry so several handlers (tests) never
  collide on registration. The router exposes it at /metrics.
*/
package api

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/generic"
)

const metricsNamespace = "convocacao"

// Metrics holds the run collectors.
type Metrics struct {
	Runs      *prometheus.CounterVec
	Decisions *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them, plus the Go and
// process collectors, on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Selection runs by source, mission mode and outcome.",
		}, []string{"source", "mode", "outcome"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decisions_total",
			Help:      "Audit decisions by status.",
		}, []string{"status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Time to load, merge and select.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	reg.MustRegister(
		m.Runs, m.Decisions, m.Duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// observe records one finished run. result is nil when err is set.
func (m *Metrics) observe(source string, mode convocacao.MissionMode, started time.Time, result *convocacao.SelectionResult, err error) {
	m.Duration.WithLabelValues(source).Observe(time.Since(started).Seconds())
	m.Runs.WithLabelValues(source, string(mode), outcomeOf(err)).Inc()
	if result == nil {
		return
	}
	for _, e := range result.AuditLogs {
		m.Decisions.WithLabelValues(string(e.Status)).Inc()
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case generic.IsClientError(err):
		return "client_error"
	case generic.IsNotFound(err):
		return "not_found"
	case generic.IsInputAbsent(err):
		return "input_absent"
	case errors.Is(err, generic.ErrSourceUnavailable):
		return "source_unavailable"
	default:
		return "internal"
	}
}
