package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Response paths.
const (
	PathValidation = "validation"
	PathEmergency  = "emergency"
	PathMatched    = "matched"
	PathAI         = "ai"
	PathFallback   = "fallback"
	PathReset      = "reset"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Triage metrics
	triageResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_responses_total",
			Help: "Total number of triage responses by level and decision path",
		},
		[]string{"level", "path"},
	)

	emergencyGroups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_emergency_groups_total",
			Help: "Emergency phrase group hits",
		},
		[]string{"group"},
	)

	aiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_ai_requests_total",
			Help: "Generative provider calls by outcome",
		},
		[]string{"outcome"},
	)

	aiRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_ai_request_duration_seconds",
			Help:    "Generative provider call duration in seconds, retries included",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16},
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so session keys never become label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func RecordResponse(level, path string) {
	triageResponses.WithLabelValues(level, path).Inc()
}

func RecordEmergencyGroups(groups []string) {
	for _, g := range groups {
		emergencyGroups.WithLabelValues(g).Inc()
	}
}

func RecordAIRequest(outcome string, duration time.Duration) {
	aiRequests.WithLabelValues(outcome).Inc()
	aiRequestDuration.Observe(duration.Seconds())
}
