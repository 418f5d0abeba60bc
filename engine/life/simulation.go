package life

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	bgp "github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/shader"
)

const (
	// SimulationPipelineKey is the default key of the compute pipeline.
	SimulationPipelineKey = "life.simulation"

	// DefaultTileEdge is the default workgroup edge: 8x8 invocations per workgroup.
	DefaultTileEdge uint32 = 8

	// maxInvocationsPerWorkgroup is the WebGPU default limit on tileEdge*tileEdge.
	maxInvocationsPerWorkgroup = 256
)

// simulationPipeline is the implementation of the SimulationPipeline interface.
type simulationPipeline struct {
	grid     grid.Grid
	tileEdge uint32
	pipeline pipeline.Pipeline
}

// SimulationPipeline advances the cell state by one generation per dispatch. It reads the state
// bound at BindingStateIn and writes the next state to BindingStateOut.
type SimulationPipeline interface {
	// Key returns the key the pipeline is registered under.
	Key() string

	// Pipeline returns the compute pipeline description to register with a renderer.
	Pipeline() pipeline.Pipeline

	// Grid returns the grid the dispatch was sized for.
	Grid() grid.Grid

	// WorkgroupSize returns the workgroup size compiled into the kernel: (tileEdge, tileEdge, 1).
	WorkgroupSize() [3]uint32

	// WorkgroupCount returns the dispatch size: ceil(width/tileEdge), ceil(height/tileEdge), 1.
	WorkgroupCount() [3]uint32

	// Encode records one compute dispatch bound to set into the open compute frame.
	//
	// Parameters:
	//   - r: the renderer with an open compute frame
	//   - set: the binding set of the current tick
	//
	// Returns:
	//   - error: a dispatch error
	Encode(r renderer.Renderer, set bgp.BindGroupProvider) error
}

var _ SimulationPipeline = &simulationPipeline{}

// NewSimulationPipeline builds the compute pipeline from the embedded kernel with tileEdge
// stamped in as its workgroup size. The kernel's declared bindings are checked against layout.
//
// Parameters:
//   - g: the grid
//   - tileEdge: the workgroup edge, tileEdge*tileEdge must not exceed 256
//   - layout: the shared binding layout
//   - options: variadic list of PipelineOption functions
//
// Returns:
//   - SimulationPipeline: the pipeline
//   - error: ErrInvalidGrid, ErrInvalidTileEdge, ErrLayoutMismatch or a shader error
func NewSimulationPipeline(g grid.Grid, tileEdge uint32, layout binding.Layout, options ...PipelineOption) (SimulationPipeline, error) {
	if g.Width == 0 || g.Height == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGrid, g)
	}
	if tileEdge == 0 || uint64(tileEdge)*uint64(tileEdge) > maxInvocationsPerWorkgroup {
		return nil, fmt.Errorf("%w: %d (need 1..16)", ErrInvalidTileEdge, tileEdge)
	}
	cfg := newPipelineConfig(SimulationPipelineKey, options)

	cs, err := shader.NewShader(cfg.key+".compute", shader.ShaderTypeCompute, SimulationSource, shaderOptions(tileEdge)...)
	if err != nil {
		return nil, err
	}
	if cfg.validate {
		if err := cs.Validate(); err != nil {
			return nil, err
		}
	}

	p := pipeline.NewPipeline(cfg.key, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(cs),
		pipeline.WithLayout(layout),
		pipeline.WithComputeKernel(StepCell),
	)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &simulationPipeline{grid: g, tileEdge: tileEdge, pipeline: p}, nil
}

func (s *simulationPipeline) Key() string {
	return s.pipeline.PipelineKey()
}

func (s *simulationPipeline) Pipeline() pipeline.Pipeline {
	return s.pipeline
}

func (s *simulationPipeline) Grid() grid.Grid {
	return s.grid
}

func (s *simulationPipeline) WorkgroupSize() [3]uint32 {
	return s.pipeline.Shader(shader.ShaderTypeCompute).WorkgroupSize()
}

func (s *simulationPipeline) WorkgroupCount() [3]uint32 {
	return s.grid.WorkgroupCount(s.tileEdge)
}

func (s *simulationPipeline) Encode(r renderer.Renderer, set bgp.BindGroupProvider) error {
	return r.DispatchCompute(s.Key(), set, s.WorkgroupCount())
}
