package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "society_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SchedulerTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "society_scheduler_ticks_total",
			Help: "Total number of scheduler ticks executed.",
		},
	)

	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_decisions_total",
			Help: "Total number of agent decisions by action kind.",
		},
		[]string{"action"},
	)

	ReactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_reactions_total",
			Help: "Total number of reaction decisions by kind.",
		},
		[]string{"kind"},
	)

	ReflectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "society_reflections_total",
			Help: "Total number of completed reflections.",
		},
	)

	PipelineFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "society_pipeline_failures_total",
			Help: "Total number of per-agent pipeline failures caught by the scheduler.",
		},
	)

	InferenceCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "society_inference_calls_total",
			Help: "Total number of inference service calls by outcome.",
		},
		[]string{"outcome"},
	)

	AgentsRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "society_agents_registered",
			Help: "Number of agents currently registered in the directory.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SchedulerTicksTotal,
		DecisionsTotal,
		ReactionsTotal,
		ReflectionsTotal,
		PipelineFailuresTotal,
		InferenceCallsTotal,
		AgentsRegistered,
	)
}
