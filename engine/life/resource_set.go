package life

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-life/common"
	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	bgp "github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// resourceSet is the implementation of the ResourceSet interface.
type resourceSet struct {
	mu       sync.Mutex
	r        renderer.Renderer
	grid     grid.Grid
	layout   binding.Layout
	logger   *zap.Logger
	label    string
	released bool

	uniform  bgp.Buffer
	states   [2]bgp.Buffer
	sets     [2]bgp.BindGroupProvider
	geometry bgp.BindGroupProvider
}

// ResourceSet owns every buffer of the simulation: the cell geometry, the grid uniform and the two
// cell state buffers A and B, plus the pair of binding sets built from them against the shared layout.
//
// Binding set 0 binds A as input and B as output; binding set 1 binds B as input and A as output.
type ResourceSet interface {
	// Grid returns the grid the buffers were sized for.
	Grid() grid.Grid

	// BindingLayout returns the shared three-slot layout both pipelines are built against.
	BindingLayout() binding.Layout

	// BindingSet returns binding set i mod 2.
	//
	// Parameters:
	//   - i: the binding set index, usually the tick counter
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the binding set
	BindingSet(i int) bgp.BindGroupProvider

	// Geometry returns the provider holding the quad vertex buffer.
	Geometry() bgp.BindGroupProvider

	// StateBuffer returns state buffer A for 0 and B for 1, taken mod 2.
	StateBuffer(i int) bgp.Buffer

	// Reseed overwrites the input buffer of binding set current with a new seed.
	//
	// Parameters:
	//   - seed: the seed function
	//   - current: the binding set that the next compute pass will use
	//
	// Returns:
	//   - error: ErrSeedSizeMismatch, ErrBindingReleased or a write error
	Reseed(seed grid.SeedFunc, current int) error

	// Release frees every buffer and bind group. It is safe to call more than once.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

var _ ResourceSet = &resourceSet{}

// NewResourceSet allocates the simulation buffers on r and seeds state buffer A. Buffer B is
// allocated but never written here; the first compute pass fills it.
//
// Parameters:
//   - r: the renderer to allocate on
//   - g: the grid
//   - seed: fills buffer A
//   - options: variadic list of ResourceSetOption functions
//
// Returns:
//   - ResourceSet: the resources
//   - error: ErrInvalidGrid, ErrSeedSizeMismatch, or a *ResourceError for a failed allocation
func NewResourceSet(r renderer.Renderer, g grid.Grid, seed grid.SeedFunc, options ...ResourceSetOption) (ResourceSet, error) {
	if g.Width == 0 || g.Height == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGrid, g)
	}
	seedData, err := grid.Encode(g, seed)
	if err != nil {
		return nil, err
	}

	rs := &resourceSet{
		r:      r,
		grid:   g,
		layout: NewBindingLayout(g),
		logger: zap.NewNop(),
		label:  "Cells",
	}
	for _, opt := range options {
		opt(rs)
	}

	if err := rs.allocate(); err != nil {
		rs.Release()
		return nil, err
	}

	uniform := NewGPUGridUniform(g)
	if err := r.WriteBuffers([]bgp.BufferWrite{
		{Provider: rs.sets[0], Binding: int(BindingGrid), Data: uniform.Marshal()},
		{Provider: rs.sets[0], Binding: int(BindingStateIn), Data: seedData},
	}); err != nil {
		rs.Release()
		return nil, fmt.Errorf("life: seeding %s: %w", rs.states[0].Label(), err)
	}

	rs.logger.Debug("resources allocated",
		zap.Stringer("grid", g),
		zap.Uint64("stateBytes", g.ByteSize()),
		zap.Int("seeded", grid.Population(common.BytesToUint32s(seedData))),
	)
	return rs, nil
}

func (rs *resourceSet) allocate() error {
	var err error
	rs.uniform, err = rs.createBuffer(rs.label+" Grid Uniform", uniformSize, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	stateUsage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	for i, name := range []string{"A", "B"} {
		rs.states[i], err = rs.createBuffer(fmt.Sprintf("%s State %s", rs.label, name), rs.grid.ByteSize(), stateUsage)
		if err != nil {
			return err
		}
	}

	for i := range rs.sets {
		in, out := rs.states[i], rs.states[(i+1)%2]
		rs.sets[i] = bgp.NewBindGroupProvider(fmt.Sprintf("%s Binding Set %d", rs.label, i),
			bgp.WithBuffers(map[int]bgp.Buffer{
				int(BindingGrid):     rs.uniform,
				int(BindingStateIn):  in,
				int(BindingStateOut): out,
			}),
		)
		if err := rs.r.InitBindGroup(rs.sets[i], rs.layout); err != nil {
			return &ResourceError{Label: rs.sets[i].Label(), Err: err}
		}
	}

	rs.geometry = bgp.NewBindGroupProvider(rs.label + " Geometry")
	if err := rs.r.InitMeshBuffers(rs.geometry, common.Float32sToBytes(QuadVertices...), QuadVertexCount); err != nil {
		return &ResourceError{Label: rs.geometry.Label(), Err: err}
	}
	return nil
}

func (rs *resourceSet) createBuffer(label string, size uint64, usage wgpu.BufferUsage) (bgp.Buffer, error) {
	buf, err := rs.r.CreateBuffer(label, size, usage)
	if err != nil {
		return nil, &ResourceError{Label: label, Err: err}
	}
	return buf, nil
}

func (rs *resourceSet) Grid() grid.Grid {
	return rs.grid
}

func (rs *resourceSet) BindingLayout() binding.Layout {
	return rs.layout
}

func (rs *resourceSet) BindingSet(i int) bgp.BindGroupProvider {
	return rs.sets[mod2(i)]
}

func (rs *resourceSet) Geometry() bgp.BindGroupProvider {
	return rs.geometry
}

func (rs *resourceSet) StateBuffer(i int) bgp.Buffer {
	return rs.states[mod2(i)]
}

func (rs *resourceSet) Reseed(seed grid.SeedFunc, current int) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.released {
		return ErrBindingReleased
	}
	data, err := grid.Encode(rs.grid, seed)
	if err != nil {
		return err
	}
	set := rs.sets[mod2(current)]
	if err := rs.r.WriteBuffers([]bgp.BufferWrite{{Provider: set, Binding: int(BindingStateIn), Data: data}}); err != nil {
		return fmt.Errorf("life: reseeding %s: %w", set.Label(), err)
	}
	return nil
}

func (rs *resourceSet) Release() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.released {
		return
	}
	rs.released = true

	// Providers only own their bind groups and the vertex buffer; the shared buffers go last.
	for _, set := range rs.sets {
		if set != nil {
			set.Release()
		}
	}
	if rs.geometry != nil {
		rs.geometry.Release()
	}
	for _, buf := range []bgp.Buffer{rs.uniform, rs.states[0], rs.states[1]} {
		if buf != nil {
			buf.Release()
		}
	}
}

func (rs *resourceSet) Released() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.released
}

func mod2(i int) int {
	return ((i % 2) + 2) % 2
}
