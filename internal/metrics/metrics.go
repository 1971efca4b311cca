package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanrigamen",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	backendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanrigamen",
			Name:      "backend_requests_total",
			Help:      "Booking-backend calls by action and result.",
		},
		[]string{"action", "result"},
	)

	snapshotReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanrigamen",
			Name:      "snapshot_reloads_total",
			Help:      "Snapshot reload attempts by result.",
		},
		[]string{"result"},
	)

	snapshotAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kanrigamen",
			Name:      "snapshot_age_seconds",
			Help:      "Age of the current snapshot.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, backendRequests, snapshotReloads, snapshotAge)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBackend increments the backend call counter.
func IncBackend(action, result string) {
	backendRequests.WithLabelValues(action, result).Inc()
}

// IncSnapshotReload increments the reload counter with "ok" or "error".
func IncSnapshotReload(result string) {
	snapshotReloads.WithLabelValues(result).Inc()
}

// SetSnapshotAge records how stale the current snapshot is.
func SetSnapshotAge(age time.Duration) {
	snapshotAge.Set(age.Seconds())
}
