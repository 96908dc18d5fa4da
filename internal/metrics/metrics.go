// Package metrics provides Prometheus instrumentation for the auction service.
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

var (
	// OperationsTotal counts successful ledger mutations by operation.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcl_ledger_operations_total",
		Help: "Total number of applied ledger operations",
	}, []string{"op"})

	// RejectionsTotal counts operations refused by validation or state
	// checks, partitioned by error kind.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcl_ledger_rejections_total",
		Help: "Ledger operations rejected before being applied",
	}, []string{"op", "kind"})

	// PointsSold accumulates points paid across all sales.
	PointsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dcl_points_sold_total",
		Help: "Cumulative points paid for sold players",
	})

	// UnsoldPlayers tracks the size of the unsold pool.
	UnsoldPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dcl_unsold_players",
		Help: "Number of players currently in the unsold pool",
	})

	// TeamPointsRemaining tracks each team's remaining budget.
	TeamPointsRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dcl_team_points_remaining",
		Help: "Remaining points per team",
	}, []string{"team"})

	// StoreSaveDuration observes snapshot persistence latency.
	StoreSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dcl_store_save_duration_seconds",
		Help:    "Ledger snapshot save latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dcl_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcl_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dcl_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveSave records a snapshot save that started at start.
func ObserveSave(start time.Time) {
	StoreSaveDuration.Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer so http.ResponseController and the
// websocket upgrader can reach its Hijacker.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
