package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/answerkey-relay/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Provider auth

	AuthAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "answerkey",
		Name:      "auth_attempts_total",
		Help:      "Provider authentication attempts, by outcome.",
	}, []string{"outcome"})

	// Catalog sync

	SyncCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "answerkey",
		Name:      "sync_cycles_total",
		Help:      "Catalog sync cycles, by outcome.",
	}, []string{"outcome"})

	SyncCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "answerkey",
		Name:      "sync_cycle_duration_seconds",
		Help:      "Time taken for one catalog sync cycle.",
		Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	CatalogEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "answerkey",
		Name:      "catalog_entries",
		Help:      "Number of entries in the current catalog.",
	})

	CatalogSyncedTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "answerkey",
		Name:      "catalog_synced_timestamp_seconds",
		Help:      "Unix timestamp of the last successful catalog sync.",
	})

	// Interactive path

	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "answerkey",
		Name:      "queries_total",
		Help:      "Catalog queries, by whether anything matched.",
	}, []string{"result"})

	DownloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "answerkey",
		Name:      "downloads_total",
		Help:      "Document downloads, by outcome.",
	}, []string{"outcome"})

	DownloadBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "answerkey",
		Name:      "download_size_bytes",
		Help:      "Size of downloaded documents.",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 10),
	})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "answerkey",
		Name:      "active_sessions",
		Help:      "Number of users with a live browsing session.",
	})

	JanitorEvictedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "answerkey",
		Name:      "janitor_evicted_total",
		Help:      "Items removed by the janitor, by kind.",
	}, []string{"kind"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "answerkey",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "answerkey",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPResponseBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "answerkey",
		Name:      "http_response_size_bytes",
		Help:      "HTTP response body size; large values are streamed answer keys.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"path"})
)

func Register() {
	prometheus.MustRegister(
		AuthAttemptsTotal,
		SyncCyclesTotal,
		SyncCycleDuration,
		CatalogEntries,
		CatalogSyncedTimestamp,
		QueriesTotal,
		DownloadsTotal,
		DownloadBytes,
		ActiveSessions,
		JanitorEvictedTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
		HTTPResponseBytes,
	)
}

// NewServer serves /metrics plus the liveness and readiness probes. The
// liveness probe doubles as the hosting platform's keepalive target.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if result.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}
