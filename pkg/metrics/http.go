package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics collects HTTP and drive operation metrics.
//
// Implementations must be safe for concurrent use.
type HTTPMetrics interface {
	// ObserveRequest records one completed HTTP request.
	ObserveRequest(method, route string, status int, duration time.Duration)

	// ObserveUpload records one successful upload of the given size.
	ObserveUpload(bytes int64)

	// IncDownload records one successful download.
	IncDownload()
}

// NewHTTPMetrics creates an HTTPMetrics instance.
//
// Returns a Prometheus-backed implementation when the global registry is
// initialized, otherwise a no-op implementation.
func NewHTTPMetrics() HTTPMetrics {
	reg := GetRegistry()
	if reg == nil {
		return noopHTTPMetrics{}
	}

	m := &promHTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskfs",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Completed HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deskfs",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deskfs",
			Subsystem: "drive",
			Name:      "upload_bytes_total",
			Help:      "Total bytes accepted through uploads.",
		}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deskfs",
			Subsystem: "drive",
			Name:      "uploads_total",
			Help:      "Successful uploads.",
		}),
		downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deskfs",
			Subsystem: "drive",
			Name:      "downloads_total",
			Help:      "Successful downloads.",
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.uploadBytes, m.uploads, m.downloads)
	return m
}

type promHTTPMetrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	uploadBytes prometheus.Counter
	uploads     prometheus.Counter
	downloads   prometheus.Counter
}

func (m *promHTTPMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *promHTTPMetrics) ObserveUpload(bytes int64) {
	m.uploads.Inc()
	m.uploadBytes.Add(float64(bytes))
}

func (m *promHTTPMetrics) IncDownload() {
	m.downloads.Inc()
}

// noopHTTPMetrics discards everything. Used when metrics are disabled.
type noopHTTPMetrics struct{}

func (noopHTTPMetrics) ObserveRequest(string, string, int, time.Duration) {}
func (noopHTTPMetrics) ObserveUpload(int64)                              {}
func (noopHTTPMetrics) IncDownload()                                     {}
