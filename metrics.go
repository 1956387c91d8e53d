package office2pdf

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the conversion core.
// All recording methods are nil-safe so instrumentation stays
// optional: components carry a nil *Metrics unless the caller
// supplies a registerer.
type Metrics struct {
	HandlesRented      prometheus.Gauge
	ConversionsTotal   prometheus.Counter
	ConversionFailures prometheus.Counter
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	BreakerOpen        prometheus.Gauge
}

// NewMetrics builds the collectors and registers them when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HandlesRented: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "office2pdf",
			Name:      "handles_rented",
			Help:      "Number of conversion handles currently rented out.",
		}),
		ConversionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "office2pdf",
			Name:      "conversions_total",
			Help:      "Total conversion attempts, including failures.",
		}),
		ConversionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "office2pdf",
			Name:      "conversion_failures_total",
			Help:      "Total failed conversion attempts.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "office2pdf",
			Name:      "cache_hits_total",
			Help:      "Artifact cache lookups served from storage.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "office2pdf",
			Name:      "cache_misses_total",
			Help:      "Artifact cache lookups that required conversion.",
		}),
		BreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "office2pdf",
			Name:      "breaker_open",
			Help:      "1 while the circuit breaker is open, else 0.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.HandlesRented,
			m.ConversionsTotal,
			m.ConversionFailures,
			m.CacheHits,
			m.CacheMisses,
			m.BreakerOpen,
		)
	}
	return m
}

func (m *Metrics) rentedInc() {
	if m != nil {
		m.HandlesRented.Inc()
	}
}

func (m *Metrics) rentedDec() {
	if m != nil {
		m.HandlesRented.Dec()
	}
}

func (m *Metrics) conversion(failed bool) {
	if m == nil {
		return
	}
	m.ConversionsTotal.Inc()
	if failed {
		m.ConversionFailures.Inc()
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) breakerOpened() {
	if m != nil {
		m.BreakerOpen.Set(1)
	}
}

func (m *Metrics) breakerClosed() {
	if m != nil {
		m.BreakerOpen.Set(0)
	}
}
