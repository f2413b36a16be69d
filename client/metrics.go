package client

import "github.com/prometheus/client_golang/prometheus"

// metrics is the Session's prometheus.Collector: transactions currently
// in flight, active permissions, whether an allocation is held, and the
// time remaining on its lifetime. It is exposed via Session.Metrics for
// a caller to register; the session never registers it itself.
type metrics struct {
	transactionsInFlight prometheus.Gauge
	permissionsActive    prometheus.Gauge
	allocationActive     prometheus.Gauge
	allocationLifetime   prometheus.Gauge
}

func newMetrics(labels prometheus.Labels) *metrics {
	return &metrics{
		transactionsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "turnc_transactions_in_flight",
			Help:        "Number of STUN/TURN transactions awaiting a response.",
			ConstLabels: labels,
		}),
		permissionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "turnc_permissions_active",
			Help:        "Number of acked permissions currently held.",
			ConstLabels: labels,
		}),
		allocationActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "turnc_allocation_active",
			Help:        "1 if a relayed allocation is currently held, 0 otherwise.",
			ConstLabels: labels,
		}),
		allocationLifetime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "turnc_allocation_lifetime_seconds",
			Help:        "Seconds until the current allocation expires, 0 when none is held.",
			ConstLabels: labels,
		}),
	}
}

func (m *metrics) Describe(d chan<- *prometheus.Desc) {
	d <- m.transactionsInFlight.Desc()
	d <- m.permissionsActive.Desc()
	d <- m.allocationActive.Desc()
	d <- m.allocationLifetime.Desc()
}

func (m *metrics) Collect(c chan<- prometheus.Metric) {
	m.transactionsInFlight.Collect(c)
	m.permissionsActive.Collect(c)
	m.allocationActive.Collect(c)
	m.allocationLifetime.Collect(c)
}

// sample refreshes the gauges from current session state. Called on the
// event loop after any operation that changes transaction, permission, or
// allocation counts.
func (m *metrics) sample(s *Session) {
	m.transactionsInFlight.Set(float64(s.txTable.outstanding()))
	acked := 0
	for _, p := range s.relay.permissions {
		if p.acked {
			acked++
		}
	}
	m.permissionsActive.Set(float64(acked))
	if s.relay.active() {
		m.allocationActive.Set(1)
	} else {
		m.allocationActive.Set(0)
	}
	m.allocationLifetime.Set(s.relay.remaining().Seconds())
}
