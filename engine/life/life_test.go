package life

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	bgp "github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type rig struct {
	surface *renderer.HeadlessSurface
	r       renderer.Renderer
	res     ResourceSet
	sim     SimulationPipeline
	cells   RenderPipeline
	orch    FrameOrchestrator
}

func newRig(t *testing.T, g grid.Grid, seed grid.SeedFunc, opts ...OrchestratorOption) *rig {
	t.Helper()
	logger := zaptest.NewLogger(t)
	surface := renderer.NewHeadlessSurface(256, 256)
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, surface,
		renderer.WithWorkerCount(4),
		renderer.WithLogger(logger),
	)
	require.NoError(t, err)

	res, err := NewResourceSet(r, g, seed, WithResourceLogger(logger))
	require.NoError(t, err)
	sim, err := NewSimulationPipeline(g, DefaultTileEdge, res.BindingLayout())
	require.NoError(t, err)
	cells, err := NewRenderPipeline(g, res.BindingLayout())
	require.NoError(t, err)
	require.NoError(t, r.RegisterPipelines(sim.Pipeline(), cells.Pipeline()))

	orch, err := NewFrameOrchestrator(r, res, sim, cells, append([]OrchestratorOption{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		res.Release()
		r.Release()
	})
	return &rig{surface: surface, r: r, res: res, sim: sim, cells: cells, orch: orch}
}

func (rg *rig) snapshot(t *testing.T) []uint32 {
	t.Helper()
	cells, err := rg.orch.Snapshot(context.Background())
	require.NoError(t, err)
	return cells
}

func (rg *rig) lastFrame(t *testing.T) renderer.Frame {
	t.Helper()
	rec, ok := rg.r.Backend().(renderer.FrameRecorder)
	require.True(t, ok)
	frame, ok := rec.LastFrame()
	require.True(t, ok, "no frame presented")
	return frame
}

// referenceStep is a direct signed-arithmetic implementation of one generation.
func referenceStep(g grid.Grid, cells []uint32) []uint32 {
	w, h := int(g.Width), int(g.Height)
	next := make([]uint32, len(cells))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var n uint32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					n += cells[((y+dy+h)%h)*w+(x+dx+w)%w]
				}
			}
			if n == 3 || (n == 2 && cells[y*w+x] == grid.Alive) {
				next[y*w+x] = grid.Alive
			}
		}
	}
	return next
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func aliveIndices(cells []uint32) []uint32 {
	out := []uint32{}
	for i, c := range cells {
		if c == grid.Alive {
			out = append(out, uint32(i))
		}
	}
	return out
}

func TestAllDeadStaysDead(t *testing.T) {
	g := grid.Grid{Width: 16, Height: 16}
	rg := newRig(t, g, grid.AllDead)

	require.NoError(t, rg.orch.Step(5))
	assert.Equal(t, 0, grid.Population(rg.snapshot(t)))
	assert.Empty(t, rg.lastFrame(t).VisibleInstances())
}

func TestIsolatedCellDies(t *testing.T) {
	g := grid.Grid{Width: 10, Height: 10}
	rg := newRig(t, g, grid.Pattern([2]int{5, 5}))

	require.NoError(t, rg.orch.Tick())
	assert.Equal(t, 0, grid.Population(rg.snapshot(t)))
}

func TestBlockIsStable(t *testing.T) {
	g := grid.Grid{Width: 10, Height: 10}
	seed := grid.Pattern([2]int{3, 3}, [2]int{4, 3}, [2]int{3, 4}, [2]int{4, 4})
	rg := newRig(t, g, seed)
	want := seed(g)

	for i := 0; i < 4; i++ {
		require.NoError(t, rg.orch.Tick())
		assert.Equal(t, want, rg.snapshot(t), "generation %d", i+1)
	}
}

func TestNeighboursWrapAcrossCorners(t *testing.T) {
	g := grid.Grid{Width: 8, Height: 6}
	// (0,0) is dead and its only alive neighbours are the three cells across the corners.
	rg := newRig(t, g, grid.Pattern([2]int{7, 5}, [2]int{7, 0}, [2]int{0, 5}))

	require.NoError(t, rg.orch.Tick())
	cells := rg.snapshot(t)
	assert.Equal(t, grid.Alive, cells[g.Index(0, 0)], "(0,0) must count (w-1,h-1)")
	assert.Equal(t, []uint32{
		uint32(g.Index(0, 0)),
		uint32(g.Index(7, 0)),
		uint32(g.Index(0, 5)),
		uint32(g.Index(7, 5)),
	}, aliveIndices(cells))

	// The block straddling the corner is stable, so (w-1,h-1) counts (0,0) in turn.
	require.NoError(t, rg.orch.Tick())
	assert.Equal(t, cells, rg.snapshot(t))
}

func TestGliderReturnsAfterCrossingTorus(t *testing.T) {
	g := grid.Grid{Width: 8, Height: 8}
	seed := grid.Glider(0, 0)
	rg := newRig(t, g, seed)

	require.NoError(t, rg.orch.Step(32))
	assert.Equal(t, seed(g), rg.snapshot(t))
	assert.Equal(t, uint64(32), rg.orch.Generation())
}

func TestMatchesReferenceOnUnalignedGrid(t *testing.T) {
	g := grid.Grid{Width: 37, Height: 23}
	rg := newRig(t, g, grid.RandomSeed(newRand(42), grid.DefaultDensity))

	want := rg.snapshot(t)
	for i := 0; i < 12; i++ {
		want = referenceStep(g, want)
		require.NoError(t, rg.orch.Tick())
		require.Equal(t, want, rg.snapshot(t), "generation %d", i+1)
	}
}

func TestRenderReadsLatestComputeOutput(t *testing.T) {
	g := grid.Grid{Width: 12, Height: 9}
	rg := newRig(t, g, grid.RandomSeed(newRand(3), grid.DefaultDensity))

	require.NoError(t, rg.orch.Redraw())
	assert.Equal(t, aliveIndices(rg.snapshot(t)), rg.lastFrame(t).VisibleInstances(), "seed frame")

	for i := 1; i <= 6; i++ {
		require.NoError(t, rg.orch.Tick())
		cells := rg.snapshot(t)
		frame := rg.lastFrame(t)
		require.Equal(t, aliveIndices(cells), frame.VisibleInstances(), "tick %d", i)
		assert.Len(t, frame.Primitives, g.CellCount())
	}
}

func TestRenderGeometryAndColor(t *testing.T) {
	g := grid.Grid{Width: 4, Height: 5}
	rg := newRig(t, g, grid.AllAlive)
	require.NoError(t, rg.orch.Redraw())

	frame := rg.lastFrame(t)
	require.Len(t, frame.Primitives, g.CellCount())
	w, h := float32(g.Width), float32(g.Height)
	for _, prim := range frame.Primitives {
		x, y := g.Coord(int(prim.Instance))
		require.True(t, prim.Visible)
		assert.Equal(t, CellColor(g, x, y), prim.Color, "cell (%d,%d)", x, y)
		assert.Len(t, prim.Positions, QuadVertexCount)
		for _, p := range prim.Positions {
			assert.GreaterOrEqual(t, p[0], 2*float32(x)/w-1-1e-5)
			assert.LessOrEqual(t, p[0], 2*float32(x+1)/w-1+1e-5)
			assert.GreaterOrEqual(t, p[1], 2*float32(y)/h-1-1e-5)
			assert.LessOrEqual(t, p[1], 2*float32(y+1)/h-1+1e-5)
		}
	}
	assert.Equal(t, renderer.DefaultClearColor, frame.ClearColor)
	assert.True(t, frame.Persisted)
}

func TestDeterministicSeeding(t *testing.T) {
	g := grid.Grid{Width: 20, Height: 20}
	a := newRig(t, g, grid.RandomSeed(newRand(99), 0.4))
	b := newRig(t, g, grid.RandomSeed(newRand(99), 0.4))

	assert.Equal(t, a.snapshot(t), b.snapshot(t))
	require.NoError(t, a.orch.Step(7))
	require.NoError(t, b.orch.Step(7))
	assert.Equal(t, a.snapshot(t), b.snapshot(t))
}

func TestSmallGridSingleWorkgroup(t *testing.T) {
	g := grid.Grid{Width: 4, Height: 4}
	rg := newRig(t, g, grid.AllDead)

	assert.Equal(t, [3]uint32{1, 1, 1}, rg.sim.WorkgroupCount())
	assert.Equal(t, [3]uint32{8, 8, 1}, rg.sim.WorkgroupSize())

	var invocations atomic.Int32
	var writes [16]atomic.Int32
	counting := func(id [3]uint32, b pipeline.Bindings) {
		invocations.Add(1)
		if g.Contains(id[0], id[1]) {
			writes[g.Index(id[0], id[1])].Add(1)
		}
		StepCell(id, b)
	}
	p := pipeline.NewPipeline("life.counting", pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(rg.sim.Pipeline().Shader(shader.ShaderTypeCompute)),
		pipeline.WithLayout(rg.res.BindingLayout()),
		pipeline.WithComputeKernel(counting),
	)
	require.NoError(t, rg.r.RegisterPipelines(p))

	// Poison buffer B so every cell must be written for it to read back as dead.
	poison := make([]byte, g.ByteSize())
	for i := range poison {
		poison[i] = 0xff
	}
	require.NoError(t, rg.r.WriteBuffers([]bgp.BufferWrite{{Provider: rg.res.BindingSet(0), Binding: int(BindingStateOut), Data: poison}}))

	require.NoError(t, rg.r.BeginComputeFrame())
	require.NoError(t, rg.r.DispatchCompute("life.counting", rg.res.BindingSet(0), rg.sim.WorkgroupCount()))
	require.NoError(t, rg.r.EndComputeFrame())

	assert.Equal(t, int32(64), invocations.Load())
	for i := 0; i < len(writes); i++ {
		assert.Equal(t, int32(1), writes[i].Load(), "cell %d", i)
	}
	data, err := rg.r.ReadBuffer(rg.res.StateBuffer(1))
	require.NoError(t, err)
	assert.Equal(t, make([]byte, g.ByteSize()), data)
}

func TestAllAliveDiesInOneTick(t *testing.T) {
	g := grid.Grid{Width: 64, Height: 64}
	rg := newRig(t, g, grid.AllAlive)

	assert.Equal(t, g.CellCount(), grid.Population(rg.snapshot(t)))
	require.NoError(t, rg.orch.Tick())
	assert.Equal(t, 0, grid.Population(rg.snapshot(t)))
	assert.Empty(t, rg.lastFrame(t).VisibleInstances())
}
