package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the dashboard service.
// A dedicated prometheus.Registry keeps tests isolated from the global one.
type Registry struct {
	registry *prometheus.Registry

	// Verification engine
	VerificationPasses   prometheus.Counter
	VerificationOverlaps prometheus.Counter
	PredictionsScored    prometheus.Counter
	PredictionsPruned    prometheus.Counter
	PassDuration         prometheus.Histogram

	// Analysis orchestration
	AnalysisRequests *prometheus.CounterVec

	// Dashboard push channel
	ConnectedClients prometheus.Gauge
	EventsPublished  *prometheus.CounterVec
}

// NewRegistry creates a registry with all service metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,

		VerificationPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldash_verification_passes_total",
			Help: "Total number of completed verification passes",
		}),
		VerificationOverlaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldash_verification_overlaps_dropped_total",
			Help: "Verification triggers dropped because a pass was already in flight",
		}),
		PredictionsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldash_predictions_scored_total",
			Help: "Predictions scored inside the verification window",
		}),
		PredictionsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldash_predictions_pruned_total",
			Help: "Predictions removed after exceeding the verification window",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signaldash_verification_pass_duration_seconds",
			Help:    "Duration of a full verification pass in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),

		AnalysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldash_analysis_requests_total",
			Help: "Analysis webhook requests by result",
		}, []string{"result"}),

		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signaldash_ws_clients",
			Help: "Currently connected dashboard WebSocket clients",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldash_events_published_total",
			Help: "Events pushed to the dashboard by type",
		}, []string{"type"}),
	}

	reg.MustRegister(
		r.VerificationPasses,
		r.VerificationOverlaps,
		r.PredictionsScored,
		r.PredictionsPruned,
		r.PassDuration,
		r.AnalysisRequests,
		r.ConnectedClients,
		r.EventsPublished,
	)

	return r
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
