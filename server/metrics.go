package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nullroom/chatrelay/registry"
)

// Metrics is the concrete observability sink wired into both the
// admission and relay services. It satisfies admission.Metrics and
// relay.Metrics without either of those packages importing Prometheus
// directly, keeping the protocol packages free of ambient-layer deps.
type Metrics struct {
	reg *registry.Registry

	roomsActive     prometheus.GaugeFunc
	membersActive   prometheus.GaugeFunc
	admissionsTotal *prometheus.CounterVec
	fanoutTotal     prometheus.Counter
	authFailures    prometheus.Counter
}

// NewMetrics registers the chat relay's Prometheus collectors with the
// process-wide default registerer (via promauto); registryRef backs the
// room and member gauges. No unregister cleanup is done: one Metrics
// instance lives for the process.
func NewMetrics(registryRef *registry.Registry) *Metrics {
	m := &Metrics{reg: registryRef}

	m.roomsActive = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chatrelay_rooms_active",
		Help: "Number of rooms currently tracked by the registry.",
	}, func() float64 { return float64(m.reg.RoomCount()) })

	m.membersActive = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chatrelay_members_active",
		Help: "Number of members currently tracked across all rooms.",
	}, func() float64 { return float64(m.reg.MemberCount()) })

	m.admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_admissions_total",
		Help: "Admission connections handled, labeled by terminal outcome.",
	}, []string{"outcome"})

	m.fanoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_relay_fanout_total",
		Help: "Total outbound chat datagrams sent by the relay's fanout.",
	})

	m.authFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_relay_auth_failures_total",
		Help: "Chat datagrams rejected by the relay for an unrecognized (room, token) pair.",
	})

	return m
}

// ObserveAdmission implements admission.Metrics.
func (m *Metrics) ObserveAdmission(outcome string) {
	m.admissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFanout implements relay.Metrics.
func (m *Metrics) ObserveFanout(n int) {
	m.fanoutTotal.Add(float64(n))
}

// ObserveAuthFailure implements relay.Metrics.
func (m *Metrics) ObserveAuthFailure() {
	m.authFailures.Inc()
}
