package life

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-life/common"
	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipUnsupported skips when naga rejects a construct it has not implemented yet.
func skipUnsupported(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		return
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"not yet implemented", "not supported", "unsupported"} {
		if strings.Contains(msg, s) {
			t.Skipf("naga: %v", err)
		}
	}
}

func TestSimulationPipelineReflection(t *testing.T) {
	g := grid.Grid{Width: 30, Height: 17}
	layout := NewBindingLayout(g)

	for _, edge := range []uint32{1, 4, 8, 16} {
		sim, err := NewSimulationPipeline(g, edge, layout)
		require.NoError(t, err, "tile %d", edge)
		assert.Equal(t, [3]uint32{edge, edge, 1}, sim.WorkgroupSize())
		assert.Equal(t, [3]uint32{(30 + edge - 1) / edge, (17 + edge - 1) / edge, 1}, sim.WorkgroupCount())
		assert.Equal(t, SimulationPipelineKey, sim.Key())
	}

	sim, err := NewSimulationPipeline(g, DefaultTileEdge, layout)
	require.NoError(t, err)
	cs := sim.Pipeline().Shader(shader.ShaderTypeCompute)
	require.NotNil(t, cs)
	assert.Equal(t, "computeMain", cs.EntryPoint())
	assert.Contains(t, cs.Source(), "@workgroup_size(8, 8)")
	assert.NotContains(t, cs.Source(), "@oxy:")

	desc := cs.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 3)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[0].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, desc.Entries[1].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, desc.Entries[2].Buffer.Type)
	assert.Equal(t, "cellStateOut", cs.BindGroupVarName(0, 2))
	assert.NotNil(t, sim.Pipeline().Kernel())
}

func TestSimulationPipelineRejectsBadTile(t *testing.T) {
	g := grid.Grid{Width: 8, Height: 8}
	for _, edge := range []uint32{0, 17, 1 << 16} {
		_, err := NewSimulationPipeline(g, edge, NewBindingLayout(g))
		assert.ErrorIs(t, err, ErrInvalidTileEdge, "tile %d", edge)
	}
	_, err := NewSimulationPipeline(grid.Grid{Width: 8}, 8, NewBindingLayout(g))
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestPipelinesRejectIncompatibleLayout(t *testing.T) {
	g := grid.Grid{Width: 8, Height: 8}
	all := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute

	// The output slot hidden from compute.
	hidden := binding.NewLayout("hidden",
		binding.Slot{Binding: 0, Name: "grid", Kind: wgpu.BufferBindingTypeUniform, Visibility: all},
		binding.Slot{Binding: 1, Name: "cellStateIn", Kind: wgpu.BufferBindingTypeReadOnlyStorage, Visibility: all},
		binding.Slot{Binding: 2, Name: "cellStateOut", Kind: wgpu.BufferBindingTypeStorage, Visibility: wgpu.ShaderStageVertex},
	)
	_, err := NewSimulationPipeline(g, DefaultTileEdge, hidden)
	assert.ErrorIs(t, err, ErrLayoutMismatch)

	// The input slot declared writable.
	writable := binding.NewLayout("writable",
		binding.Slot{Binding: 0, Name: "grid", Kind: wgpu.BufferBindingTypeUniform, Visibility: all},
		binding.Slot{Binding: 1, Name: "cellStateIn", Kind: wgpu.BufferBindingTypeStorage, Visibility: all},
		binding.Slot{Binding: 2, Name: "cellStateOut", Kind: wgpu.BufferBindingTypeStorage, Visibility: wgpu.ShaderStageCompute},
	)
	_, err = NewSimulationPipeline(g, DefaultTileEdge, writable)
	assert.ErrorIs(t, err, ErrLayoutMismatch)
	_, err = NewRenderPipeline(g, writable)
	assert.ErrorIs(t, err, ErrLayoutMismatch)

	// Only the uniform.
	short := binding.NewLayout("short",
		binding.Slot{Binding: 0, Name: "grid", Kind: wgpu.BufferBindingTypeUniform, Visibility: all},
	)
	_, err = NewRenderPipeline(g, short)
	assert.ErrorIs(t, err, ErrLayoutMismatch)
}

func TestRenderPipelineReflection(t *testing.T) {
	g := grid.Grid{Width: 64, Height: 64}
	cells, err := NewRenderPipeline(g, NewBindingLayout(g), WithPipelineKey("cells"))
	require.NoError(t, err)

	assert.Equal(t, "cells", cells.Key())
	assert.Equal(t, uint32(4096), cells.InstanceCount())
	assert.Equal(t, 6, cells.VertexCount())
	assert.Equal(t, pipeline.PipelineTypeRender, cells.Pipeline().Type())

	vs := cells.Pipeline().Shader(shader.ShaderTypeVertex)
	fs := cells.Pipeline().Shader(shader.ShaderTypeFragment)
	require.NotNil(t, vs)
	require.NotNil(t, fs)
	assert.Equal(t, "vertexMain", vs.EntryPoint())
	assert.Equal(t, "fragmentMain", fs.EntryPoint())

	layouts := vs.VertexLayouts()
	require.Len(t, layouts, 1)
	require.Len(t, layouts[0], 1)
	assert.Equal(t, uint64(quadStride), layouts[0][0].ArrayStride)
	require.Len(t, layouts[0][0].Attributes, 1)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, layouts[0][0].Attributes[0].Format)
	assert.Equal(t, uint32(0), layouts[0][0].Attributes[0].ShaderLocation)

	// The render stages never declare the writable slot.
	for _, s := range []shader.Shader{vs, fs} {
		for _, e := range s.BindGroupLayoutDescriptor(0).Entries {
			assert.NotEqual(t, BindingStateOut, e.Binding)
		}
	}
}

func TestEmbeddedShadersCompile(t *testing.T) {
	g := grid.Grid{Width: 64, Height: 64}
	layout := NewBindingLayout(g)

	_, err := NewSimulationPipeline(g, DefaultTileEdge, layout, WithShaderValidation(true))
	skipUnsupported(t, err)
	require.NoError(t, err)

	_, err = NewRenderPipeline(g, layout, WithShaderValidation(true))
	skipUnsupported(t, err)
	require.NoError(t, err)
}

func TestStepCellRules(t *testing.T) {
	g := grid.Grid{Width: 3, Height: 3}
	uniform := NewGPUGridUniform(g)

	tests := []struct {
		name  string
		alive [][2]int
		want  uint32
	}{
		{"dead with three neighbours is born", [][2]int{{0, 0}, {1, 0}, {2, 0}}, grid.Alive},
		{"dead with two neighbours stays dead", [][2]int{{0, 0}, {1, 0}}, grid.Dead},
		{"alive with two neighbours survives", [][2]int{{1, 1}, {0, 0}, {2, 2}}, grid.Alive},
		{"alive with one neighbour dies", [][2]int{{1, 1}, {0, 0}}, grid.Dead},
		{"alive with four neighbours dies", [][2]int{{1, 1}, {0, 0}, {2, 0}, {0, 2}, {2, 2}}, grid.Dead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := grid.Encode(g, grid.Pattern(tt.alive...))
			require.NoError(t, err)
			out := make([]byte, g.ByteSize())
			b := pipeline.Bindings{
				BindingGrid:     uniform.Marshal(),
				BindingStateIn:  in,
				BindingStateOut: out,
			}
			StepCell([3]uint32{1, 1, 0}, b)
			assert.Equal(t, tt.want, cellAt(out, g.Index(1, 1)))
		})
	}
}

func TestHostProgramsWithoutGridUniform(t *testing.T) {
	g := grid.Grid{Width: 2, Height: 2}
	state, err := grid.Encode(g, grid.AllAlive)
	require.NoError(t, err)
	vertex := common.Float32sToBytes(QuadVertices[:2]...)

	for name, uniform := range map[string][]byte{
		"missing": nil,
		"short":   {0, 0, 0x80},
		"empty":   common.Float32sToBytes(0, 0),
	} {
		t.Run(name, func(t *testing.T) {
			b := pipeline.Bindings{BindingStateIn: state, BindingStateOut: make([]byte, len(state))}
			if uniform != nil {
				b[BindingGrid] = uniform
			}

			assert.NotPanics(t, func() { StepCell([3]uint32{0, 0, 0}, b) })
			assert.Equal(t, make([]byte, len(state)), b[BindingStateOut], "nothing is written")

			var out pipeline.VertexOutput
			assert.NotPanics(t, func() {
				out = CellVertex(pipeline.VertexInput{InstanceIndex: 1, Attributes: vertex}, b)
			})
			assert.Equal(t, [4]float32{0, 0, 0, 1}, out.Position)
			assert.NotPanics(t, func() { CellFragment(out, b) })
		})
	}
}

func TestCellVertexOutOfRangeInstance(t *testing.T) {
	g := grid.Grid{Width: 2, Height: 2}
	state, err := grid.Encode(g, grid.AllAlive)
	require.NoError(t, err)
	uniform := NewGPUGridUniform(g)
	b := pipeline.Bindings{BindingGrid: uniform.Marshal(), BindingStateIn: state}
	vertex := common.Float32sToBytes(QuadVertices[:2]...)

	out := CellVertex(pipeline.VertexInput{InstanceIndex: 4, Attributes: vertex}, b)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, out.Position)

	out = CellVertex(pipeline.VertexInput{InstanceIndex: 3, Attributes: vertex}, b)
	assert.NotEqual(t, [4]float32{0, 0, 0, 1}, out.Position)
}
