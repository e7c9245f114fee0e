// Package metrics exposes Prometheus collectors for the console client.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal          *prometheus.CounterVec
	apiRequestDurationSeconds *prometheus.HistogramVec
	realtimeStateTransitions  *prometheus.CounterVec
	realtimeReconnectsTotal   prometheus.Counter
	realtimeFramesTotal       *prometheus.CounterVec
	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDurationSecs   *prometheus.HistogramVec
	rateLimitDelaySeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		apiRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_api_requests_total",
				Help: "Backend API calls, labeled by method and status class.",
			},
			[]string{"method", "class"},
		)

		apiRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_api_request_duration_seconds",
				Help:    "Backend API call latency, labeled by method.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_rate_limit_delay_seconds",
				Help:    "Time backend calls spent waiting for the client-side rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)

		realtimeStateTransitions = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_realtime_state_transitions_total",
				Help: "Realtime channel state changes, labeled by the state entered.",
			},
			[]string{"state"},
		)

		realtimeReconnectsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "console_realtime_reconnects_total",
				Help: "Reconnect attempts scheduled by the realtime channel.",
			},
		)

		realtimeFramesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_realtime_frames_total",
				Help: "Realtime frames seen, labeled by direction and outcome.",
			},
			[]string{"direction", "outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StatusClass groups an HTTP status code for labeling. Zero means the
// request never produced a response.
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "network"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}

// ObserveAPIRequest records one backend call.
func ObserveAPIRequest(method string, code int, duration time.Duration) {
	Init()
	apiRequestsTotal.WithLabelValues(method, StatusClass(code)).Inc()
	apiRequestDurationSeconds.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveRealtimeState records the realtime channel entering state.
func ObserveRealtimeState(state string) {
	Init()
	realtimeStateTransitions.WithLabelValues(state).Inc()
}

// ObserveReconnect records a scheduled reconnect.
func ObserveReconnect() {
	Init()
	realtimeReconnectsTotal.Inc()
}

// ObserveFrame records a realtime frame. Direction is "in" or "out".
func ObserveFrame(direction, outcome string) {
	Init()
	realtimeFramesTotal.WithLabelValues(direction, outcome).Inc()
}

// ObserveHTTPRequest records a request served by the local status server.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records a wait imposed by the request limiter.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(duration.Seconds())
}
