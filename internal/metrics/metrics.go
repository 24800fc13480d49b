// Package metrics exposes Prometheus metrics for decoding, batches and HTTP.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/NICValidator/internal/core"
	"github.com/JonMunkholm/NICValidator/internal/nic"
)

const namespace = "nicvalidator"

// outcomeAccepted labels identifiers that decoded successfully.
const outcomeAccepted = "accepted"

// Metrics implements core.Observer.
type Metrics struct {
	// Identifiers decoded, by outcome ("accepted" or a rejection reason)
	Decoded *prometheus.CounterVec

	// Batches by status
	Batches *prometheus.CounterVec

	// Records written or skipped as duplicates
	RecordsInserted   prometheus.Counter
	RecordsDuplicated prometheus.Counter

	BatchDuration prometheus.Histogram

	// HTTP requests by method, route pattern and status code
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		Decoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifiers_decoded_total",
			Help:      "Identifiers decoded, by outcome",
		}, []string{"outcome"}),

		Batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Upload batches processed, by status",
		}, []string{"status"}),

		RecordsInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_inserted_total",
			Help:      "Decoded records stored",
		}),

		RecordsDuplicated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_duplicate_total",
			Help:      "Decoded records skipped because the identifier was already stored",
		}),

		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of a batch from limiter slot to result",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	// Pre-create label values so every series is exported from startup.
	m.Decoded.WithLabelValues(outcomeAccepted)
	for _, r := range nic.Reasons() {
		m.Decoded.WithLabelValues(string(r))
	}
	m.Batches.WithLabelValues(string(core.BatchComplete))
	m.Batches.WithLabelValues(string(core.BatchFailed))

	return m
}

// ObserveDecode counts one decoded identifier. An empty reason means accepted.
func (m *Metrics) ObserveDecode(reason nic.Reason) {
	if m == nil {
		return
	}
	outcome := outcomeAccepted
	if reason != "" {
		outcome = string(reason)
	}
	m.Decoded.WithLabelValues(outcome).Inc()
}

// ObserveBatch records a finished batch.
func (m *Metrics) ObserveBatch(status core.BatchStatus, res *core.BatchResult) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(string(status)).Inc()
	if res == nil {
		return
	}
	m.BatchDuration.Observe(res.Duration.Seconds())
	if status == core.BatchComplete {
		m.RecordsInserted.Add(float64(res.Inserted))
		m.RecordsDuplicated.Add(float64(res.Duplicates))
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
