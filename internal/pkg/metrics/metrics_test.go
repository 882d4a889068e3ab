package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestChangesObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewChanges(registry)

	m.Observe("cancel", ResultCompleted, 20*time.Millisecond)
	m.Observe("cancel", ResultCompleted, 10*time.Millisecond)
	m.Observe("pause", ResultRejected, 0)
	m.LockConflict()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.total.WithLabelValues("cancel", ResultCompleted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.total.WithLabelValues("pause", ResultRejected)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.locked))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestChangesRegisterIsIdempotent(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewChanges(registry)
	assert.NotPanics(t, func() { m.Register(registry) })
}

func TestNilChangesIsNoop(t *testing.T) {
	var m *Changes
	assert.NotPanics(t, func() {
		m.Observe("cancel", ResultCompleted, time.Second)
		m.LockConflict()
	})
	assert.NotPanics(t, func() {
		NewChanges(nil).Observe("cancel", ResultCompleted, time.Second)
	})
}
