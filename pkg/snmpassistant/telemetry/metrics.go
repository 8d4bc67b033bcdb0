// Package telemetry exposes the assistant's Prometheus metrics. A nil
// *Metrics is valid and records nothing.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "snmp_assistant"

// Metrics holds the registry and every collector the pipeline updates.
type Metrics struct {
	registry *prometheus.Registry

	llmFailures   *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	snmpCommands  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	return &Metrics{
		registry: registry,
		llmFailures: newCounterVec(registry, "llm", "failed_attempts_total",
			"Failed language model calls by error class.", "class"),
		cacheLookups: newCounterVec(registry, "cache", "lookups_total",
			"Response cache lookups by result.", "result"),
		snmpCommands: newCounterVec(registry, "snmp", "commands_total",
			"Executed SNMP commands by command and outcome.", "command", "outcome"),
		queryDuration: newHistogramVec(registry, "query", "duration_seconds",
			"End-to-end query pipeline latency.", "outcome"),
	}
}

// newCounterVec creates, registers and returns a labeled counter.
func newCounterVec(registry *prometheus.Registry, subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	metric := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	registry.MustRegister(metric)
	return metric
}

// newHistogramVec creates, registers and returns a labeled histogram.
func newHistogramVec(registry *prometheus.Registry, subsystem, name, help string, labels ...string) *prometheus.HistogramVec {
	metric := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, labels)
	registry.MustRegister(metric)
	return metric
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LLMFailure counts one failed model call.
func (m *Metrics) LLMFailure(class string) {
	if m == nil {
		return
	}
	m.llmFailures.WithLabelValues(class).Inc()
}

// CacheLookup counts one response cache lookup.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SNMPCommand counts one executed command. outcome is "ok", "partial" or
// "error".
func (m *Metrics) SNMPCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.snmpCommands.WithLabelValues(command, outcome).Inc()
}

// ObserveQuery records the latency of one pipeline run.
func (m *Metrics) ObserveQuery(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
