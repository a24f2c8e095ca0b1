package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ItemsScanned counts content items passed through the analyzer.
	ItemsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptoscan_items_scanned_total",
		Help: "Number of content items analyzed.",
	})

	// Detections counts emitted detections per severity tier.
	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptoscan_detections_total",
		Help: "Number of detections emitted.",
	}, []string{"severity"})

	// SourceFailures counts recovered per-source fetch failures.
	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptoscan_source_failures_total",
		Help: "Number of source fetch failures recovered during scans.",
	}, []string{"source"})

	// ScanDuration tracks end-to-end scan duration.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cryptoscan_scan_duration_seconds",
		Help:    "Scan duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr. It blocks until the listener fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
