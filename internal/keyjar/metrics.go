package keyjar

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	entries  prometheus.Gauge
	stores   prometheus.Counter
	removes  prometheus.Counter
	accesses prometheus.Counter
	misses   prometheus.Counter
	evicted  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ots", Subsystem: "keyjar", Name: "entries",
			Help: "Secret keys currently held.",
		}),
		stores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ots", Subsystem: "keyjar", Name: "stores_total",
			Help: "Keys stored.",
		}),
		removes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ots", Subsystem: "keyjar", Name: "removes_total",
			Help: "Keys removed and wiped.",
		}),
		accesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ots", Subsystem: "keyjar", Name: "accesses_total",
			Help: "Successful key accesses through a handle.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ots", Subsystem: "keyjar", Name: "misses_total",
			Help: "Lookups of unknown handles.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ots", Subsystem: "keyjar", Name: "evicted_total",
			Help: "Released keys evicted by the retention policy.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.entries, m.stores, m.removes, m.accesses, m.misses, m.evicted)
	}
	return m
}
