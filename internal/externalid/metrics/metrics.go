package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the external ID directory.
// All methods are safe on a nil receiver so metrics stay optional.
type Metrics struct {
	ThrottleWait         prometheus.Histogram
	ThrottlePermits      prometheus.Counter
	ReadCapacityConsumed prometheus.Counter
	StoreQueries         prometheus.Counter
	PagesServed          prometheus.Counter
	AssignmentsCommitted prometheus.Counter
	AssignmentConflicts  prometheus.Counter
	AssignmentsReleased  prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ThrottleWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "extid_throttle_wait_seconds",
			Help:    "Time spent blocked acquiring read capacity permits",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ThrottlePermits: factory.NewCounter(prometheus.CounterOpts{
			Name: "extid_throttle_permits_acquired_total",
			Help: "Total read capacity permits acquired from the throttle",
		}),
		ReadCapacityConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "extid_read_capacity_consumed_total",
			Help: "Total read capacity units the store reported consuming",
		}),
		StoreQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "extid_store_range_queries_total",
			Help: "Total range queries issued while building directory pages",
		}),
		PagesServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "extid_directory_pages_total",
			Help: "Total directory pages returned",
		}),
		AssignmentsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "extid_assignments_committed_total",
			Help: "Total external IDs bound to an account",
		}),
		AssignmentConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "extid_assignment_conflicts_total",
			Help: "Total commits that lost the conditional write race",
		}),
		AssignmentsReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "extid_assignments_released_total",
			Help: "Total external IDs released from their account",
		}),
	}
}

func (m *Metrics) ObserveThrottleWait(d time.Duration, permits int) {
	if m == nil {
		return
	}
	m.ThrottleWait.Observe(d.Seconds())
	m.ThrottlePermits.Add(float64(permits))
}

func (m *Metrics) ObserveRangeQuery(consumed float64) {
	if m == nil {
		return
	}
	m.StoreQueries.Inc()
	if consumed > 0 {
		m.ReadCapacityConsumed.Add(consumed)
	}
}

func (m *Metrics) IncrementPagesServed() {
	if m == nil {
		return
	}
	m.PagesServed.Inc()
}

func (m *Metrics) IncrementAssignmentsCommitted() {
	if m == nil {
		return
	}
	m.AssignmentsCommitted.Inc()
}

func (m *Metrics) IncrementAssignmentConflicts() {
	if m == nil {
		return
	}
	m.AssignmentConflicts.Inc()
}

func (m *Metrics) IncrementAssignmentsReleased() {
	if m == nil {
		return
	}
	m.AssignmentsReleased.Inc()
}
