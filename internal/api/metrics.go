package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// Metrics holds the Prometheus metrics of the server.
type Metrics struct {
	Decodes       *prometheus.CounterVec
	DecodeSeconds *prometheus.HistogramVec
	MapsOpened    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	decodes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tagcache_decodes_total",
		Help: "Tag decodes by class and result",
	}, []string{"class", "result"})

	decodeSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tagcache_decode_duration_seconds",
		Help:    "Time spent decoding one tag",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"class"})

	mapsOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tagcache_maps_opened_total",
		Help: "Cache files opened by the server",
	})

	reg.MustRegister(decodes, decodeSeconds, mapsOpened)

	return &Metrics{
		Decodes:       decodes,
		DecodeSeconds: decodeSeconds,
		MapsOpened:    mapsOpened,
	}
}

// ObserveDecode records one decode. A nil receiver is a no-op.
func (m *Metrics) ObserveDecode(class cache.ClassCode, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Decodes.WithLabelValues(string(class), resultLabel(err)).Inc()
	m.DecodeSeconds.WithLabelValues(string(class)).Observe(d.Seconds())
}

func (m *Metrics) ObserveOpen(string, *cache.Handle) {
	if m == nil {
		return
	}
	m.MapsOpened.Inc()
}
