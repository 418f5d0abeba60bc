package life

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	bgp "github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderPipelineKey is the default key of the cell render pipeline.
const RenderPipelineKey = "life.cells"

// renderPipeline is the implementation of the RenderPipeline interface.
type renderPipeline struct {
	grid     grid.Grid
	pipeline pipeline.Pipeline
}

// RenderPipeline draws one quad instance per cell. A dead cell's quad collapses to a point and
// produces no fragments; a live cell's quad fills its slot in a color that depends only on its
// coordinate.
type RenderPipeline interface {
	// Key returns the key the pipeline is registered under.
	Key() string

	// Pipeline returns the render pipeline description to register with a renderer.
	Pipeline() pipeline.Pipeline

	// Grid returns the grid the instance count was sized for.
	Grid() grid.Grid

	// VertexCount returns the vertices drawn per instance.
	VertexCount() int

	// InstanceCount returns the number of instances drawn, one per cell.
	InstanceCount() uint32

	// Encode records the cell draw into the open render frame.
	//
	// Parameters:
	//   - r: the renderer with an open frame
	//   - geometry: the provider holding the quad vertex buffer
	//   - set: the binding set whose input buffer holds the state to draw
	//
	// Returns:
	//   - error: a draw error
	Encode(r renderer.Renderer, geometry bgp.BindGroupProvider, set bgp.BindGroupProvider) error
}

var _ RenderPipeline = &renderPipeline{}

// NewRenderPipeline builds the cell render pipeline from the embedded vertex and fragment programs.
// Both stages are checked against layout; they may only touch the grid uniform and the input state.
//
// Parameters:
//   - g: the grid
//   - layout: the shared binding layout
//   - options: variadic list of PipelineOption functions
//
// Returns:
//   - RenderPipeline: the pipeline
//   - error: ErrInvalidGrid, ErrLayoutMismatch or a shader error
func NewRenderPipeline(g grid.Grid, layout binding.Layout, options ...PipelineOption) (RenderPipeline, error) {
	if g.Width == 0 || g.Height == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGrid, g)
	}
	cfg := newPipelineConfig(RenderPipelineKey, options)

	opts := shaderOptions(DefaultTileEdge)
	vs, err := shader.NewShader(cfg.key+".vertex", shader.ShaderTypeVertex, CellsSource, opts...)
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShader(cfg.key+".fragment", shader.ShaderTypeFragment, CellsSource, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.validate {
		// Both stages share one module, so compiling it once covers both.
		if err := vs.Validate(); err != nil {
			return nil, err
		}
	}

	p := pipeline.NewPipeline(cfg.key, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithLayout(layout),
		pipeline.WithVertexProgram(CellVertex),
		pipeline.WithFragmentProgram(CellFragment),
		pipeline.WithCullMode(wgpu.CullModeNone),
		pipeline.WithBlendEnabled(false),
	)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &renderPipeline{grid: g, pipeline: p}, nil
}

func (rp *renderPipeline) Key() string {
	return rp.pipeline.PipelineKey()
}

func (rp *renderPipeline) Pipeline() pipeline.Pipeline {
	return rp.pipeline
}

func (rp *renderPipeline) Grid() grid.Grid {
	return rp.grid
}

func (rp *renderPipeline) VertexCount() int {
	return QuadVertexCount
}

func (rp *renderPipeline) InstanceCount() uint32 {
	return uint32(rp.grid.CellCount())
}

func (rp *renderPipeline) Encode(r renderer.Renderer, geometry bgp.BindGroupProvider, set bgp.BindGroupProvider) error {
	return r.DrawCall(rp.Key(), geometry, rp.InstanceCount(), []bgp.BindGroupProvider{set})
}
