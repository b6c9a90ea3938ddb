package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Created()
	m.Created()
	m.Outcome("confirm", "ok")
	m.Swept(2, 3, 7)
	m.Dispatched("orders", nil)
	m.Dispatched("orders", errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.created))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("confirm", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evicted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.expired))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.live))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("orders", "error")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Created()
		m.Outcome("abort", "ok")
		m.Swept(1, 1, 1)
		m.Dispatched("x", nil)
	})
}
