// Package metrics holds the prometheus collectors for day reads, cache lookups,
// orbit navigation and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orbits"

// Day read results.
const (
	ReadData    = "data"
	ReadEmpty   = "empty"
	ReadSkipped = "skipped"
	ReadError   = "error"
)

// Metrics is a set of registered collectors. A nil *Metrics discards every
// observation.
type Metrics struct {
	dayReads     *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	navigations  *prometheus.CounterVec
	scanDays     prometheus.Histogram
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dayReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "day_reads_total",
			Help:      "Total calendar days read from the data source.",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total day cache lookups.",
		}, []string{"result"}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "iterator",
			Name:      "navigations_total",
			Help:      "Total orbit navigation calls.",
		}, []string{"op", "outcome"}),
		scanDays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "iterator",
			Name:      "scan_days",
			Help:      "Calendar days examined while rolling over to another day.",
			Buckets:   []float64{1, 2, 3, 5, 10, 30, 90},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"path", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}
	for _, c := range []prometheus.Collector{
		m.dayReads,
		m.cacheLookups,
		m.navigations,
		m.scanDays,
		m.httpRequests,
		m.httpDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveDayRead counts a read of one calendar day with the given result.
func (m *Metrics) ObserveDayRead(result string) {
	if m == nil {
		return
	}
	m.dayReads.WithLabelValues(result).Inc()
}

// ObserveLookup counts a day cache lookup.
func (m *Metrics) ObserveLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveNavigation counts a navigation call and its outcome.
func (m *Metrics) ObserveNavigation(op, outcome string) {
	if m == nil {
		return
	}
	m.navigations.WithLabelValues(op, outcome).Inc()
}

// ObserveScan records the number of days examined by a rollover scan.
func (m *Metrics) ObserveScan(days int) {
	if m == nil {
		return
	}
	m.scanDays.Observe(float64(days))
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(path, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(elapsed.Seconds())
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
