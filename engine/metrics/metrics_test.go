package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "")
	require.NoError(t, err)
	require.NotNil(t, m)

	m.TickCompleted(3, 2*time.Millisecond)
	m.Failure("render")

	count, err := testutil.GatherAndCount(reg,
		"oxy_life_ticks_total",
		"oxy_life_generation",
		"oxy_life_tick_duration_seconds",
		"oxy_life_orchestration_failures_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestMetrics_Values(t *testing.T) {
	m, err := New(prometheus.NewRegistry(), "test")
	require.NoError(t, err)

	m.TickCompleted(1, time.Millisecond)
	m.TickCompleted(2, time.Millisecond)
	m.TickSkipped()
	m.FrameSkipped()
	m.FrameSkipped()
	m.Failure("compute")
	m.SetPopulation(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.generation))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesLost))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("compute")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.population))
}

func TestNew_ReusesExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg, "")
	require.NoError(t, err)
	second, err := New(reg, "")
	require.NoError(t, err)

	first.TickSkipped()
	second.TickSkipped()
	assert.Equal(t, 2.0, testutil.ToFloat64(first.ticksSkipped))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TickCompleted(1, time.Millisecond)
		m.TickSkipped()
		m.FrameSkipped()
		m.Failure("bind")
		m.SetPopulation(1)
	})
}
