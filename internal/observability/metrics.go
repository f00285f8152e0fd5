package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	dbConnectionPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connection_pool_stats",
			Help: "Database connection pool statistics (total, idle, active)",
		},
		[]string{"state"},
	)

	storeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_store_operations_total",
			Help: "Key-value store operations by op and result (hit, miss, ok, error)",
		},
		[]string{"op", "result"},
	)

	remoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wishlist_remote_request_duration_seconds",
			Help:    "Latency of remote wishlist calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)

	toggleOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_toggle_outcomes_total",
			Help: "Resolved wishlist toggles by outcome",
		},
		[]string{"outcome"},
	)

	toggleFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_toggle_reconciliation_total",
			Help: "Toggles whose server response was reconciled, discarded as stale or rolled back",
		},
		[]string{"kind"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(httpRequestLatency)
	prometheus.MustRegister(dbConnectionPoolStats)
	prometheus.MustRegister(storeOps)
	prometheus.MustRegister(remoteLatency)
	prometheus.MustRegister(toggleOutcomes)
	prometheus.MustRegister(toggleFlags)
}

// Middleware records HTTP request latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriterSpy{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		httpRequestLatency.WithLabelValues(r.Method, r.Pattern, fmt.Sprint(ww.code)).Observe(duration)
	})
}

type responseWriterSpy struct {
	http.ResponseWriter
	code int
}

func (w *responseWriterSpy) WriteHeader(statusCode int) {
	w.code = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// StartDBStatsCollector starts a background goroutine to collect DB stats.
func StartDBStatsCollector(dbPool *pgxpool.Pool) {
	go func() {
		for {
			stats := dbPool.Stat()
			dbConnectionPoolStats.WithLabelValues("total").Set(float64(stats.TotalConns()))
			dbConnectionPoolStats.WithLabelValues("idle").Set(float64(stats.IdleConns()))
			dbConnectionPoolStats.WithLabelValues("acquired").Set(float64(stats.AcquiredConns()))
			time.Sleep(5 * time.Second)
		}
	}()
}
