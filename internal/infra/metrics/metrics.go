package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every veritas collector plus the Go runtime and process collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "veritas_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	HTTPDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "veritas_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method"})

	HTTPInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Name: "veritas_http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})

	analyses = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "veritas_analyses_total",
		Help: "Analyses by path and outcome.",
	}, []string{"path", "outcome"})

	acquisitions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "veritas_acquisitions_total",
		Help: "Evidence acquisitions by terminal state.",
	}, []string{"state"})

	reasoning = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "veritas_reasoning_calls_total",
		Help: "Reasoning model calls by model and result.",
	}, []string{"model", "result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func ObserveAnalysis(path, outcome string) {
	analyses.WithLabelValues(path, outcome).Inc()
}

func ObserveAcquisition(state string) {
	acquisitions.WithLabelValues(state).Inc()
}

func ObserveReasoning(model, result string) {
	reasoning.WithLabelValues(model, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
