package seedjar

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	entries prometheus.Gauge
	dedups  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ots", Subsystem: "seedjar", Name: "entries",
			Help: "Seeds currently held.",
		}),
		dedups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ots", Subsystem: "seedjar", Name: "dedup_hits_total",
			Help: "Stores and updates resolved to an existing equal seed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.entries, m.dedups)
	}
	return m
}
