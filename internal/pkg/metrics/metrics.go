// Package metrics exposes prometheus instruments for contract changes.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultCompleted   = "completed"
	ResultNeedsReview = "needs_review"
	ResultRejected    = "rejected"
	ResultScheduled   = "scheduled"
)

// Changes records change execution. A nil *Changes is valid and records
// nothing.
type Changes struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	locked   prometheus.Counter

	registerOnce sync.Once
}

// NewChanges creates the instruments and registers them with registry.
func NewChanges(registry prometheus.Registerer) *Changes {
	m := &Changes{}
	m.Register(registry)
	return m
}

// Register registers the instruments once. A nil registry is a no-op.
func (m *Changes) Register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.total = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contract_changes_total",
			Help: "Total number of contract changes by type and result",
		}, []string{"type", "result"})

		m.duration = factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contract_change_duration_seconds",
			Help:    "Duration of contract change execution",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"})

		m.locked = factory.NewCounter(prometheus.CounterOpts{
			Name: "contract_lock_conflicts_total",
			Help: "Total number of requests rejected because the contract was locked",
		})
	})
}

// Observe records one change of type typ ending in result.
func (m *Changes) Observe(typ, result string, took time.Duration) {
	if m == nil || m.total == nil {
		return
	}
	m.total.WithLabelValues(typ, result).Inc()
	if result == ResultCompleted || result == ResultNeedsReview {
		m.duration.WithLabelValues(typ).Observe(took.Seconds())
	}
}

// LockConflict counts a rejected request.
func (m *Changes) LockConflict() {
	if m == nil || m.locked == nil {
		return
	}
	m.locked.Inc()
}
