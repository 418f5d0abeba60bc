package renderer

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	bgp "github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const doubleSource = `@group(0) @binding(0) var<storage, read> src: array<u32>;
@group(0) @binding(1) var<storage, read_write> dst: array<u32>;

@compute @workgroup_size(2)
fn main(@builtin(global_invocation_id) id: vec3u) {
    dst[id.x] = src[id.x] * 2u;
}
`

const triangleSource = `struct Corner {
    @location(0) pos: vec2f,
};

@vertex
fn vs(c: Corner) -> @builtin(position) vec4f {
    return vec4f(c.pos, 0.0, 1.0);
}

@fragment
fn fs() -> @location(0) vec4f {
    return vec4f(1.0, 0.0, 0.0, 1.0);
}
`

var doubleLayout = binding.NewLayout("double",
	binding.Slot{Binding: 0, Name: "src", Kind: wgpu.BufferBindingTypeReadOnlyStorage, Visibility: wgpu.ShaderStageCompute, MinBindingSize: 16},
	binding.Slot{Binding: 1, Name: "dst", Kind: wgpu.BufferBindingTypeStorage, Visibility: wgpu.ShaderStageCompute, MinBindingSize: 16},
)

func newTestRenderer(t *testing.T, surface SurfaceSource, options ...RendererBuilderOption) Renderer {
	t.Helper()
	options = append([]RendererBuilderOption{WithLogger(zaptest.NewLogger(t)), WithWorkerCount(2)}, options...)
	r, err := NewRenderer(BackendTypeSoftware, surface, options...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func doubleKernel(id [3]uint32, b pipeline.Bindings) {
	src, dst := b[0], b[1]
	off := id[0] * 4
	if int(off)+4 > len(dst) {
		return
	}
	binary.LittleEndian.PutUint32(dst[off:], binary.LittleEndian.Uint32(src[off:])*2)
}

func doublePipeline(t *testing.T, key string, kernel pipeline.ComputeKernel) pipeline.Pipeline {
	t.Helper()
	cs, err := shader.NewShader(key, shader.ShaderTypeCompute, doubleSource)
	require.NoError(t, err)
	opts := []pipeline.PipelineBuilderOption{pipeline.WithComputeShader(cs), pipeline.WithLayout(doubleLayout)}
	if kernel != nil {
		opts = append(opts, pipeline.WithComputeKernel(kernel))
	}
	return pipeline.NewPipeline(key, pipeline.PipelineTypeCompute, opts...)
}

func trianglePipeline(t *testing.T) pipeline.Pipeline {
	t.Helper()
	vs, err := shader.NewShader("triangle", shader.ShaderTypeVertex, triangleSource)
	require.NoError(t, err)
	fs, err := shader.NewShader("triangle", shader.ShaderTypeFragment, triangleSource)
	require.NoError(t, err)
	return pipeline.NewPipeline("triangle", pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithLayout(binding.NewLayout("empty")),
		pipeline.WithVertexProgram(func(in pipeline.VertexInput, _ pipeline.Bindings) pipeline.VertexOutput {
			// Every instance after the first collapses to a point.
			if in.InstanceIndex > 0 {
				return pipeline.VertexOutput{Position: [4]float32{0, 0, 0, 1}}
			}
			x := math.Float32frombits(binary.LittleEndian.Uint32(in.Attributes[0:]))
			y := math.Float32frombits(binary.LittleEndian.Uint32(in.Attributes[4:]))
			return pipeline.VertexOutput{Position: [4]float32{x, y, 0, 1}, Varying: [4]float32{x, y, 0, 1}}
		}),
		pipeline.WithFragmentProgram(func(pipeline.VertexOutput, pipeline.Bindings) [4]float32 {
			return [4]float32{1, 0, 0, 1}
		}),
	)
}

func words(vs ...uint32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func TestParseNames(t *testing.T) {
	bt, ok := ParseBackendType("software")
	assert.True(t, ok)
	assert.Equal(t, BackendTypeSoftware, bt)
	assert.Equal(t, "software", bt.String())

	bt, ok = ParseBackendType("")
	assert.True(t, ok)
	assert.Equal(t, BackendTypeWGPU, bt)

	_, ok = ParseBackendType("vulkan")
	assert.False(t, ok)

	assert.Equal(t, PresentModeUncapped, ParsePresentMode("immediate"))
	assert.Equal(t, PresentModeVSync, ParsePresentMode("fifo"))
}

func TestSoftwareComputeRoundTrip(t *testing.T) {
	r := newTestRenderer(t, NewHeadlessSurface(32, 32))
	require.NoError(t, r.RegisterPipelines(doublePipeline(t, "double", doubleKernel)))

	provider := bgp.NewBindGroupProvider("Double")
	require.NoError(t, r.InitBindGroup(provider, doubleLayout))
	require.NoError(t, r.WriteBuffers([]bgp.BufferWrite{{Provider: provider, Binding: 0, Data: words(1, 2, 3, 4)}}))

	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.DispatchCompute("double", provider, [3]uint32{2, 1, 1}))
	require.NoError(t, r.EndComputeFrame())

	out, err := r.ReadBuffer(provider.Buffer(1))
	require.NoError(t, err)
	assert.Equal(t, words(2, 4, 6, 8), out)
	assert.Equal(t, "Double dst", provider.Buffer(1).Label())

	provider.Release()
	_, err = r.ReadBuffer(provider.Buffer(1))
	assert.ErrorIs(t, err, bgp.ErrReleased)
}

func TestDispatchBracketErrors(t *testing.T) {
	r := newTestRenderer(t, NewHeadlessSurface(32, 32))
	require.NoError(t, r.RegisterPipelines(doublePipeline(t, "double", doubleKernel)))
	provider := bgp.NewBindGroupProvider("Double")
	require.NoError(t, r.InitBindGroup(provider, doubleLayout))

	assert.ErrorIs(t, r.DispatchCompute("double", provider, [3]uint32{1, 1, 1}), ErrNoFrame)
	assert.ErrorIs(t, r.EndComputeFrame(), ErrNoFrame)

	require.NoError(t, r.BeginComputeFrame())
	assert.ErrorIs(t, r.BeginComputeFrame(), ErrFrameInProgress)
	assert.ErrorIs(t, r.DispatchCompute("missing", provider, [3]uint32{1, 1, 1}), ErrPipelineNotFound)
	require.NoError(t, r.EndComputeFrame())

	assert.ErrorIs(t, r.EndFrame(), ErrNoFrame)
	assert.ErrorIs(t, r.Present(), ErrNoFrame)
	require.NoError(t, r.BeginFrame(RenderPassOptions{}))
	assert.ErrorIs(t, r.DrawCall("double", provider, 1, nil), ErrPipelineNotFound, "compute key used for a draw")
	require.NoError(t, r.EndFrame())
	require.NoError(t, r.Present())
}

func TestUsageConflict(t *testing.T) {
	r := newTestRenderer(t, NewHeadlessSurface(32, 32))
	require.NoError(t, r.RegisterPipelines(doublePipeline(t, "double", doubleKernel)))

	shared, err := r.CreateBuffer("Shared", 16, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	aliased := bgp.NewBindGroupProvider("Aliased", bgp.WithBuffer(0, shared), bgp.WithBuffer(1, shared))
	require.NoError(t, r.InitBindGroup(aliased, doubleLayout))

	require.NoError(t, r.BeginComputeFrame())
	assert.ErrorIs(t, r.DispatchCompute("double", aliased, [3]uint32{1, 1, 1}), ErrUsageConflict)
	require.NoError(t, r.EndComputeFrame())

	aliased.Release()
	assert.False(t, shared.Released(), "shared buffers outlive the provider")
}

func TestRegisterRequiresHostPrograms(t *testing.T) {
	r := newTestRenderer(t, NewHeadlessSurface(32, 32))

	err := r.RegisterPipelines(doublePipeline(t, "bare", nil))
	require.Error(t, err)
	var ce *CapabilityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "software", ce.Backend)
	assert.ErrorIs(t, err, ErrPipelineNotFound)
	assert.Nil(t, r.Pipeline("bare"))

	p := doublePipeline(t, "double", doubleKernel)
	require.NoError(t, r.RegisterPipelines(p, p))
	assert.Len(t, r.Pipelines(), 1)
	assert.Same(t, p, r.Pipeline("double"))
}

func TestResourceLimit(t *testing.T) {
	r := newTestRenderer(t, NewHeadlessSurface(32, 32), WithMaxBufferSize(8))

	_, err := r.CreateBuffer("Big", 16, wgpu.BufferUsageStorage)
	assert.ErrorIs(t, err, ErrResourceExhausted)

	err = r.InitBindGroup(bgp.NewBindGroupProvider("Double"), doubleLayout)
	assert.ErrorIs(t, err, ErrResourceExhausted)
}

func TestSoftwareDrawRecordsFrame(t *testing.T) {
	surface := NewHeadlessSurface(64, 64)
	r := newTestRenderer(t, surface)
	require.NoError(t, r.RegisterPipelines(trianglePipeline(t)))

	vertices := make([]byte, 0, 24)
	for _, f := range []float32{0, 0, 1, 0, 0, 1} {
		vertices = binary.LittleEndian.AppendUint32(vertices, math.Float32bits(f))
	}
	mesh := bgp.NewBindGroupProvider("Triangle")
	require.NoError(t, r.InitMeshBuffers(mesh, vertices, 3))

	clearColor := wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}
	require.NoError(t, r.BeginFrame(RenderPassOptions{ClearColor: clearColor, Persist: true}))
	assert.ErrorIs(t, r.BeginFrame(RenderPassOptions{}), ErrFrameInProgress)
	require.NoError(t, r.DrawCall("triangle", mesh, 2, nil))
	require.NoError(t, r.EndFrame())
	require.NoError(t, r.Present())

	rec, ok := r.Backend().(FrameRecorder)
	require.True(t, ok)
	frame, ok := rec.LastFrame()
	require.True(t, ok)
	assert.Equal(t, 1, rec.FramesPresented())
	assert.Equal(t, clearColor, frame.ClearColor)
	assert.True(t, frame.Persisted)
	require.Len(t, frame.Primitives, 2)
	assert.Equal(t, []uint32{0}, frame.VisibleInstances())
	assert.Equal(t, [4]float32{1, 0, 0, 1}, frame.Primitives[0].Color)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, frame.Primitives[0].Positions[1])
	assert.Equal(t, [4]float32{}, frame.Primitives[1].Color)
	assert.Equal(t, 1, surface.Acquired())
}

func TestHeadlessSurfaceLoss(t *testing.T) {
	surface := NewHeadlessSurface(16, 16)
	r := newTestRenderer(t, surface)

	surface.FailNext(1)
	assert.ErrorIs(t, r.BeginFrame(RenderPassOptions{}), ErrSurfaceUnavailable)
	require.NoError(t, r.BeginFrame(RenderPassOptions{}))
	require.NoError(t, r.EndFrame())
	require.NoError(t, r.Present())

	require.NoError(t, r.Resize(0, 0))
	assert.ErrorIs(t, r.BeginFrame(RenderPassOptions{}), ErrSurfaceUnavailable)
	require.NoError(t, r.Resize(16, 16))
	require.NoError(t, r.BeginFrame(RenderPassOptions{}))
	require.NoError(t, r.EndFrame())
	require.NoError(t, r.Present())
	assert.Equal(t, 2, surface.Acquired())
}
