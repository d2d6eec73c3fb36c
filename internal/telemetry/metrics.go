// Package telemetry exposes what the engine and runner do as Prometheus
// metrics, OpenTelemetry traces and a small HTTP status endpoint.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chr1sbest/stagehand/internal/engine"
)

const namespace = "stagehand"

// Metrics is an engine.Observer and driver.CallObserver backed by its own
// registry, so several runs in one process (tests, mostly) never collide.
type Metrics struct {
	registry *prometheus.Registry

	failures      *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	rounds        prometheus.Counter
	attempts      *prometheus.CounterVec
	restarts      prometheus.Counter
	driverCalls   *prometheus.CounterVec
	driverLatency *prometheus.HistogramVec
	watchdog      *prometheus.CounterVec
}

// NewMetrics registers every stagehand metric plus the Go and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failures recorded against an escalation counter.",
		}, []string{"kind"}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Escalation decisions by failure kind.",
		}, []string{"kind", "decision"}),
		rounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_completed_total",
			Help:      "Rounds that reached a confirmed completion.",
		}),
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Finished attempts by result.",
		}, []string{"result"}),
		restarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_restarts_total",
			Help:      "Fresh attempts started after a restart request.",
		}),
		driverCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "calls_total",
			Help:      "Driver calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		driverLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "call_duration_seconds",
			Help:      "Driver call latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		}, []string{"op"}),
		watchdog: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchdog_actions_total",
			Help:      "Corrective actions taken by the watchdogs.",
		}, []string{"watchdog"}),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) FailureRecorded(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) DecisionMade(kind, decision string) {
	m.decisions.WithLabelValues(kind, decision).Inc()
}

func (m *Metrics) RoundCompleted(int) {
	m.rounds.Inc()
}

func (m *Metrics) WatchdogAction(watchdog string) {
	m.watchdog.WithLabelValues(watchdog).Inc()
}

// ObserveDriverCall records one driver call.
func (m *Metrics) ObserveDriverCall(op, outcome string, elapsed time.Duration) {
	m.driverCalls.WithLabelValues(op, outcome).Inc()
	m.driverLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// AttemptStarted counts every attempt after the first as a process restart.
func (m *Metrics) AttemptStarted(attempt int, _ string) {
	if attempt > 1 {
		m.restarts.Inc()
	}
}

// AttemptFinished counts a finished attempt by result.
func (m *Metrics) AttemptFinished(r engine.Report) {
	m.attempts.WithLabelValues(r.Result.String()).Inc()
}
