package life

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestTickStateTransitions(t *testing.T) {
	var states []FrameState
	rg := newRig(t, grid.Grid{Width: 8, Height: 8}, grid.Glider(1, 1), WithStateHook(func(s FrameState) {
		states = append(states, s)
	}))

	assert.Equal(t, StateIdle, rg.orch.State())
	require.NoError(t, rg.orch.Tick())
	assert.Equal(t, []FrameState{StateComputeDispatched, StateRenderDispatched, StateIdle}, states)
	assert.Equal(t, StateIdle, rg.orch.State())
	assert.Equal(t, uint64(1), rg.orch.Generation())
}

func TestCurrentIndexAlternates(t *testing.T) {
	rg := newRig(t, grid.Grid{Width: 8, Height: 8}, grid.AllDead)

	// Before any tick the seed lives in A, the output of binding set 1.
	assert.Equal(t, 1, rg.orch.CurrentIndex())
	for i := 1; i <= 4; i++ {
		require.NoError(t, rg.orch.Tick())
		// Tick i-1 used binding set (i-1) mod 2 and wrote its output.
		assert.Equal(t, (i-1)%2, rg.orch.CurrentIndex(), "after tick %d", i)
	}
}

func TestTickSkippedWhileBusy(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "")
	require.NoError(t, err)

	var orch FrameOrchestrator
	var nested error
	rg := newRig(t, grid.Grid{Width: 8, Height: 8}, grid.AllDead,
		WithMetrics(m),
		WithStateHook(func(s FrameState) {
			if s == StateComputeDispatched && nested == nil {
				nested = orch.Tick()
			}
		}),
	)
	orch = rg.orch

	require.NoError(t, rg.orch.Tick())
	assert.ErrorIs(t, nested, ErrTickInProgress)
	assert.Equal(t, uint64(1), rg.orch.Generation())
	assert.Equal(t, 1.0, counterValue(t, reg, "oxy_life_ticks_skipped_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "oxy_life_ticks_total"))
}

func TestTransientSurfaceErrorKeepsAlternation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "")
	require.NoError(t, err)

	g := grid.Grid{Width: 10, Height: 10}
	seed := grid.Glider(2, 2)
	var states []FrameState
	rg := newRig(t, g, seed, WithMetrics(m), WithStateHook(func(s FrameState) {
		states = append(states, s)
	}))

	want := seed(g)
	rg.surface.FailNext(2)
	for i := 1; i <= 5; i++ {
		states = states[:0]
		require.NoError(t, rg.orch.Tick(), "tick %d", i)
		want = referenceStep(g, want)
		assert.Equal(t, want, rg.snapshot(t), "tick %d", i)
		if i <= 2 {
			assert.Equal(t, []FrameState{StateComputeDispatched, StateIdle}, states, "tick %d", i)
		}
	}

	assert.Equal(t, uint64(5), rg.orch.Generation())
	assert.Equal(t, 2.0, counterValue(t, reg, "oxy_life_frames_skipped_total"))
	assert.Equal(t, 3, rg.surface.Acquired())
	assert.Equal(t, aliveIndices(want), rg.lastFrame(t).VisibleInstances())
}

func TestReleasedBindingIsFatal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "")
	require.NoError(t, err)
	rg := newRig(t, grid.Grid{Width: 8, Height: 8}, grid.AllDead, WithMetrics(m))

	require.NoError(t, rg.orch.Tick())
	rg.res.Release()

	err = rg.orch.Tick()
	require.Error(t, err)
	var oe *OrchestrationError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, PhaseBind, oe.Phase)
	assert.Equal(t, uint64(1), oe.Tick)
	assert.ErrorIs(t, err, ErrBindingReleased)
	assert.Equal(t, uint64(1), rg.orch.Generation())
	assert.Equal(t, StateIdle, rg.orch.State())

	assert.Same(t, oe, unwrapOrchestration(t, rg.orch.Tick()), "fatal error is sticky")
	assert.Equal(t, 1.0, counterValue(t, reg, "oxy_life_orchestration_failures_total"))

	_, err = rg.orch.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrBindingReleased)
}

func unwrapOrchestration(t *testing.T, err error) *OrchestrationError {
	t.Helper()
	var oe *OrchestrationError
	require.True(t, errors.As(err, &oe))
	return oe
}

func TestPauseAndStep(t *testing.T) {
	rg := newRig(t, grid.Grid{Width: 8, Height: 8}, grid.Glider(0, 0))

	rg.orch.Pause()
	assert.True(t, rg.orch.Paused())
	require.NoError(t, rg.orch.Tick())
	assert.Equal(t, uint64(0), rg.orch.Generation())

	require.NoError(t, rg.orch.Step(3))
	assert.Equal(t, uint64(3), rg.orch.Generation())

	rg.orch.Resume()
	require.NoError(t, rg.orch.Tick())
	assert.Equal(t, uint64(4), rg.orch.Generation())
}

func TestReseedReplacesCurrentGeneration(t *testing.T) {
	g := grid.Grid{Width: 10, Height: 10}
	rg := newRig(t, g, grid.RandomSeed(newRand(5), 0.5))
	require.NoError(t, rg.orch.Step(3))

	block := grid.Pattern([2]int{1, 1}, [2]int{2, 1}, [2]int{1, 2}, [2]int{2, 2})
	require.NoError(t, rg.orch.Reseed(block))
	assert.Equal(t, block(g), rg.snapshot(t))
	assert.Equal(t, uint64(3), rg.orch.Generation())

	require.NoError(t, rg.orch.Tick())
	assert.Equal(t, block(g), rg.snapshot(t))

	assert.ErrorIs(t, rg.orch.Reseed(func(grid.Grid) []uint32 { return []uint32{1} }), ErrSeedSizeMismatch)
}

func TestSnapshotHonoursContext(t *testing.T) {
	rg := newRig(t, grid.Grid{Width: 8, Height: 8}, grid.AllAlive)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rg.orch.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFrameOrchestratorRejectsMismatchedParts(t *testing.T) {
	rg := newRig(t, grid.Grid{Width: 8, Height: 8}, grid.AllDead)

	other := grid.Grid{Width: 4, Height: 4}
	sim, err := NewSimulationPipeline(other, DefaultTileEdge, NewBindingLayout(other))
	require.NoError(t, err)
	_, err = NewFrameOrchestrator(rg.r, rg.res, sim, rg.cells)
	assert.ErrorIs(t, err, ErrInvalidGrid)

	_, err = NewFrameOrchestrator(rg.r, rg.res, rg.sim, nil)
	assert.Error(t, err)
}
