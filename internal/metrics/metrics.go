// Package metrics publishes the kernel's Prometheus counters and
// histograms: cost units consumed, substate lock contention, call
// frames pushed, and track commit/rollback counts (spec §4.7 ambient
// wiring), matching the teacher's metrics-middleware shape.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the kernel's collectors. New registers them and the
// serve command exposes them; the kernel and track do not update them.
type Metrics struct {
	CostUnitsConsumed prometheus.Counter
	FramesPushed      prometheus.Counter
	FramesPopped      prometheus.Counter
	LockConflicts     prometheus.Counter
	LockWaitSeconds   prometheus.Histogram
	TransactionsTotal *prometheus.CounterVec
	CommitsTotal      prometheus.Counter
	RollbacksTotal    prometheus.Counter
}

// New creates and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CostUnitsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radixkernel_cost_units_consumed_total",
			Help: "Total cost units consumed across all executed transactions.",
		}),
		FramesPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radixkernel_call_frames_pushed_total",
			Help: "Total call frames pushed by the kernel's invocation protocol.",
		}),
		FramesPopped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radixkernel_call_frames_popped_total",
			Help: "Total call frames popped by the kernel's invocation protocol.",
		}),
		LockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radixkernel_track_lock_conflicts_total",
			Help: "Total substate lock acquisitions that hit a conflict.",
		}),
		LockWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "radixkernel_track_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a substate lock.",
			Buckets: prometheus.DefBuckets,
		}),
		TransactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radixkernel_transactions_total",
			Help: "Total transactions executed, labeled by outcome.",
		}, []string{"outcome"}),
		CommitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radixkernel_track_commits_total",
			Help: "Total track commits.",
		}),
		RollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radixkernel_track_rollbacks_total",
			Help: "Total track rollbacks.",
		}),
	}

	reg.MustRegister(
		m.CostUnitsConsumed,
		m.FramesPushed,
		m.FramesPopped,
		m.LockConflicts,
		m.LockWaitSeconds,
		m.TransactionsTotal,
		m.CommitsTotal,
		m.RollbacksTotal,
	)
	return m
}
