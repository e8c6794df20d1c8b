package persistence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the pool manager. Tenant ids
// are deliberately not used as label values to keep cardinality bounded; the
// per-tenant detail lives in logs and Stats().
type Metrics struct {
	PoolsLive          prometheus.Gauge
	PoolCreationsTotal prometheus.Counter
	AcquisitionsTotal  prometheus.Counter
	EvictionsTotal     *prometheus.CounterVec
	ExhaustedTotal     prometheus.Counter
}

// NewMetrics initializes and registers the pool manager metrics. A nil
// registerer falls back to the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PoolsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "atlasdesk",
			Subsystem: "tenant_pools",
			Name:      "live_gauge",
			Help:      "Number of live per-tenant connection pools.",
		}),
		PoolCreationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atlasdesk",
			Subsystem: "tenant_pools",
			Name:      "creations_total",
			Help:      "Total number of per-tenant pools created.",
		}),
		AcquisitionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atlasdesk",
			Subsystem: "tenant_pools",
			Name:      "acquisitions_total",
			Help:      "Total number of successful connection acquisitions.",
		}),
		EvictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atlasdesk",
			Subsystem: "tenant_pools",
			Name:      "evictions_total",
			Help:      "Total number of pool evictions by cause.",
		}, []string{"cause"}), // cause: idle, capacity, manual
		ExhaustedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atlasdesk",
			Subsystem: "tenant_pools",
			Name:      "exhausted_total",
			Help:      "Total number of acquisitions that timed out on a full pool.",
		}),
	}
}
