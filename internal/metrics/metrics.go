package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the chatbot.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SyncRuns       *prometheus.CounterVec
	SyncedItems    prometheus.Gauge
	IndexedChunks  prometheus.Gauge
	RebuildLatency prometheus.Histogram

	AskRequests *prometheus.CounterVec
	AskLatency  prometheus.Histogram

	AgentIterations prometheus.Histogram
	AgentForced     prometheus.Counter
	ToolCalls       *prometheus.CounterVec
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SyncRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbot_menu_sync_runs_total",
			Help: "Menu synchronization runs by result",
		}, []string{"result"}), // result: "success" or "failure"

		SyncedItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "chatbot_menu_synced_items",
			Help: "Menu items written by the last successful sync",
		}),

		IndexedChunks: f.NewGauge(prometheus.GaugeOpts{
			Name: "chatbot_index_chunks",
			Help: "Chunks in the published index snapshot",
		}),

		RebuildLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatbot_index_rebuild_duration_seconds",
			Help:    "Time to load, split, embed and publish the index",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		AskRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbot_ask_requests_total",
			Help: "Questions answered by status",
		}, []string{"status"}),

		AskLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatbot_ask_duration_seconds",
			Help:    "Question answering latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		AgentIterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatbot_agent_iterations",
			Help:    "Reasoning iterations per agent run",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 25},
		}),

		AgentForced: f.NewCounter(prometheus.CounterOpts{
			Name: "chatbot_agent_forced_stops_total",
			Help: "Agent runs that exhausted their iteration or time budget",
		}),

		ToolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbot_tool_calls_total",
			Help: "Tool invocations by tool and result",
		}, []string{"tool", "result"}),
	}
}

// ObserveSync records one synchronization run.
func (m *Metrics) ObserveSync(ok bool, items int) {
	if m == nil {
		return
	}
	if !ok {
		m.SyncRuns.WithLabelValues("failure").Inc()
		return
	}
	m.SyncRuns.WithLabelValues("success").Inc()
	m.SyncedItems.Set(float64(items))
}

// ObserveRebuild records a published snapshot.
func (m *Metrics) ObserveRebuild(chunks int, took time.Duration) {
	if m == nil {
		return
	}
	m.IndexedChunks.Set(float64(chunks))
	m.RebuildLatency.Observe(took.Seconds())
}

// ObserveAsk records one /ask outcome.
func (m *Metrics) ObserveAsk(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.AskRequests.WithLabelValues(status).Inc()
	m.AskLatency.Observe(took.Seconds())
}

// ObserveAgentRun records how many iterations a run used.
func (m *Metrics) ObserveAgentRun(iterations int, forced bool) {
	if m == nil {
		return
	}
	m.AgentIterations.Observe(float64(iterations))
	if forced {
		m.AgentForced.Inc()
	}
}

// ObserveToolCall records a tool invocation.
func (m *Metrics) ObserveToolCall(tool string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ToolCalls.WithLabelValues(tool, result).Inc()
}
