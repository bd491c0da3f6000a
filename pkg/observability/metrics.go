package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Blackboard metrics
	eventsPostedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyflow_events_posted_total",
			Help: "Total number of events posted to the blackboard",
		},
		[]string{"type"},
	)

	// Agent loop metrics
	agentIterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyflow_agent_iterations_total",
			Help: "Total number of autonomous loop iterations",
		},
		[]string{"agent", "outcome"},
	)

	agentActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyflow_agent_action_duration_seconds",
			Help:    "Autonomous action duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	agentPerformanceScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "studyflow_agent_performance_score",
			Help: "Most recent self-evaluated performance score per agent",
		},
		[]string{"agent"},
	)

	// Orchestrator metrics
	handlerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyflow_handler_requests_total",
			Help: "Total number of one-shot handler invocations",
		},
		[]string{"handler", "status"},
	)

	handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyflow_handler_duration_seconds",
			Help:    "One-shot handler duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	// LLM boundary metrics
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyflow_llm_calls_total",
			Help: "Total number of text-generation calls",
		},
		[]string{"provider", "status"},
	)

	llmCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyflow_llm_call_duration_seconds",
			Help:    "Text-generation call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	initOnce sync.Once
)

// InitMetrics registers all Prometheus metrics. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			eventsPostedTotal,
			agentIterationsTotal,
			agentActionDuration,
			agentPerformanceScore,
			handlerRequestsTotal,
			handlerDuration,
			llmCallsTotal,
			llmCallDuration,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordEventPosted records a blackboard event by type
func RecordEventPosted(eventType string) {
	eventsPostedTotal.WithLabelValues(eventType).Inc()
}

// RecordAgentIteration records one loop iteration and its outcome
// (acted, skipped, failed)
func RecordAgentIteration(agent, outcome string) {
	agentIterationsTotal.WithLabelValues(agent, outcome).Inc()
}

// RecordAgentAction records the duration of one autonomous action
func RecordAgentAction(agent string, duration time.Duration) {
	agentActionDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// SetAgentPerformance sets the latest self-evaluation score for an agent
func SetAgentPerformance(agent string, score float64) {
	agentPerformanceScore.WithLabelValues(agent).Set(score)
}

// RecordHandlerRequest records a one-shot handler invocation
func RecordHandlerRequest(handler, status string, duration time.Duration) {
	handlerRequestsTotal.WithLabelValues(handler, status).Inc()
	handlerDuration.WithLabelValues(handler).Observe(duration.Seconds())
}

// RecordLLMCall records a text-generation call
func RecordLLMCall(provider, status string, duration time.Duration) {
	llmCallsTotal.WithLabelValues(provider, status).Inc()
	llmCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
