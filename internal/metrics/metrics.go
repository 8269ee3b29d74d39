// Package metrics exposes Prometheus counters for upstream statistics calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the API client reports to.
type Recorder interface {
	RecordRequest(metricType string, outcome string)
	RecordLatency(d time.Duration)
	RecordLoad(country string, ok bool)
}

const (
	OutcomeOK          = "ok"
	OutcomeHTTPError   = "http_error"
	OutcomeStatusError = "status_error"
	OutcomeDecodeError = "decode_error"
)

type Collector struct {
	requests *prometheus.CounterVec
	latency  prometheus.Histogram
	loads    *prometheus.CounterVec
}

var _ Recorder = &Collector{}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "covidstats_api_requests_total",
			Help: "Statistics API requests by type and outcome",
		}, []string{"type", "outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "covidstats_api_latency_seconds",
			Help:    "Statistics API request latency",
			Buckets: prometheus.DefBuckets,
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "covidstats_country_loads_total",
			Help: "Country loads (both metrics merged) by result",
		}, []string{"result"}),
	}

	reg.MustRegister(c.requests, c.latency, c.loads)
	return c
}

func (c *Collector) RecordRequest(metricType string, outcome string) {
	if metricType == "" {
		metricType = "all"
	}
	c.requests.WithLabelValues(metricType, outcome).Inc()
}

func (c *Collector) RecordLatency(d time.Duration) {
	c.latency.Observe(d.Seconds())
}

// RecordLoad ignores the country to keep label cardinality bounded.
func (c *Collector) RecordLoad(country string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.loads.WithLabelValues(result).Inc()
}

// Nop discards everything, used where no registry is wired.
type Nop struct{}

func (Nop) RecordRequest(string, string) {}
func (Nop) RecordLatency(time.Duration)  {}
func (Nop) RecordLoad(string, bool)      {}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
