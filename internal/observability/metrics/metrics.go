// Package metrics exposes Prometheus instruments for the booking agent.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// AgentMetrics counts agent turns, model calls and tool invocations.
type AgentMetrics struct {
	turnsTotal      *prometheus.CounterVec
	turnIterations  prometheus.Histogram
	turnLatency     prometheus.Histogram
	modelCallsTotal *prometheus.CounterVec
	modelLatency    *prometheus.HistogramVec
	toolCallsTotal  *prometheus.CounterVec
	bookingsTotal   *prometheus.CounterVec
}

func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	m := &AgentMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "turns_total",
			Help:      "Agent turns by outcome (answered, synthesized, failed, model_error, rejected)",
		}, []string{"outcome"}),
		turnIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "turn_iterations",
			Help:      "Model round trips per turn",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "turn_latency_seconds",
			Help:      "Wall time of one agent turn",
			Buckets:   prometheus.DefBuckets,
		}),
		modelCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "model_calls_total",
			Help:      "Language model calls by status",
		}, []string{"status"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "model_latency_seconds",
			Help:      "Latency of language model calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 60},
		}, []string{"status"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and result",
		}, []string{"tool", "ok"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agent",
			Name:      "booking_rejections_total",
			Help:      "Rejected booking attempts by error type",
		}, []string{"error_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnIterations, m.turnLatency, m.modelCallsTotal,
		m.modelLatency, m.toolCallsTotal, m.bookingsTotal)
	return m
}

func (m *AgentMetrics) ObserveTurn(outcome string, iterations int, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnIterations.Observe(float64(iterations))
	m.turnLatency.Observe(seconds)
}

func (m *AgentMetrics) ObserveModelCall(status string, seconds float64) {
	if m == nil {
		return
	}
	m.modelCallsTotal.WithLabelValues(status).Inc()
	m.modelLatency.WithLabelValues(status).Observe(seconds)
}

func (m *AgentMetrics) ObserveToolCall(tool string, ok bool) {
	if m == nil {
		return
	}
	label := "false"
	if ok {
		label = "true"
	}
	m.toolCallsTotal.WithLabelValues(tool, label).Inc()
}

func (m *AgentMetrics) ObserveRejection(errorType string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(errorType).Inc()
}
