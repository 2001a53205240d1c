package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	webhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhooks_total",
			Help: "Webhooks received by provider, event type and outcome",
		},
		[]string{"provider", "event", "outcome"},
	)

	subscriptionsActivated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Total number of subscriptions activated",
		},
		[]string{"origin"},
	)

	reverseSyncActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reverse_sync_actions_total",
			Help: "Outbound sync results by action",
		},
		[]string{"action"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)

	subscriptionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions expired by the period worker",
		},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		// padrão da rota em vez do path cru, pra não explodir cardinalidade
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func RecordWebhook(provider, event, outcome string) {
	webhooksReceived.WithLabelValues(provider, event, outcome).Inc()
}

func RecordSubscriptionActivation(origin string) {
	subscriptionsActivated.WithLabelValues(origin).Inc()
}

func RecordReverseSync(action string) {
	reverseSyncActions.WithLabelValues(action).Inc()
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}

func RecordExpired(n int) {
	subscriptionsExpired.Add(float64(n))
}
