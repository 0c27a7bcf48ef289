package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics mirrors Stats as Prometheus series. It is nil unless a
// registerer was configured.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	coalesced prometheus.Counter
	evictions *prometheus.CounterVec
	size      prometheus.Gauge
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func newCacheMetrics(reg prometheus.Registerer, name string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"cache": name}
	m := &cacheMetrics{}
	var err error

	if m.hits, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "supplychain", Subsystem: "cache", Name: "hits_total",
		ConstLabels: labels, Help: "Lookups answered from the cache",
	})); err != nil {
		return nil, err
	}
	if m.misses, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "supplychain", Subsystem: "cache", Name: "misses_total",
		ConstLabels: labels, Help: "Lookups that started a computation",
	})); err != nil {
		return nil, err
	}
	if m.coalesced, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "supplychain", Subsystem: "cache", Name: "coalesced_total",
		ConstLabels: labels, Help: "Lookups that joined an in-flight computation",
	})); err != nil {
		return nil, err
	}
	if m.evictions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supplychain", Subsystem: "cache", Name: "evictions_total",
		ConstLabels: labels, Help: "Entries removed by reason",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if m.size, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "supplychain", Subsystem: "cache", Name: "entries",
		ConstLabels: labels, Help: "Entries currently cached",
	})); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *cacheMetrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *cacheMetrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *cacheMetrics) join() {
	if m != nil {
		m.coalesced.Inc()
	}
}

func (m *cacheMetrics) evict(reason string, n int) {
	if m != nil && n > 0 {
		m.evictions.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *cacheMetrics) setSize(n int) {
	if m != nil {
		m.size.Set(float64(n))
	}
}
