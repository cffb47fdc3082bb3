package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreLatency is the duration of store queries.
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dataaccess_store_latency",
			Help: "Duration of store queries",
		},
		[]string{"dal", "query", "backend"},
	)

	// StoreTotalRequests is the total number of store requests.
	StoreTotalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataaccess_store_total_requests",
			Help: "Total number of store requests",
		},
		[]string{"dal", "query", "backend"},
	)

	// StoreErrors is the total number of store requests that failed unexpectedly.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataaccess_store_errors",
			Help: "Total number of failed store requests",
		},
		[]string{"dal", "query", "backend"},
	)
)

// Track counts a request and returns a function that observes its latency. Call it with the error of the
// request, expected outcomes should be passed as nil.
func Track(dal, query, backend string) func(err error) {
	StoreTotalRequests.WithLabelValues(dal, query, backend).Inc()
	t := prometheus.NewTimer(StoreLatency.WithLabelValues(dal, query, backend))
	return func(err error) {
		t.ObserveDuration()
		if err != nil {
			StoreErrors.WithLabelValues(dal, query, backend).Inc()
		}
	}
}
