package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionCounters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.Decision(true, "")
	m.Decision(false, "no roles")
	m.Decision(false, "no roles")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisions.WithLabelValues("allow", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthzDecisions.WithLabelValues("deny", "no roles")))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.Seeded("roles", 4)
	assert.Equal(t, 4.0, testutil.ToFloat64(second.SeededRows.WithLabelValues("roles")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Decision(true, "")
		m.Seeded("routes", 1)
		m.Request("GET", "/x", 200, time.Millisecond)
	})
}
