package renderer

import (
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType specifies which rendering backend implementation to use.
type RendererBackendType int

const (
	// BackendTypeWGPU uses the WebGPU (wgpu-native) backend for GPU-accelerated rendering.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware emulates the device on the CPU. Kernels and shader stages run as
	// host programs attached to each pipeline, and frames are recorded instead of displayed.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// ParseBackendType maps a configuration name to a backend type.
//
// Parameters:
//   - name: "wgpu" or "software"
//
// Returns:
//   - RendererBackendType: the backend type
//   - bool: false if the name is unknown
func ParseBackendType(name string) (RendererBackendType, bool) {
	switch name {
	case "wgpu", "":
		return BackendTypeWGPU, true
	case "software":
		return BackendTypeSoftware, true
	default:
		return BackendTypeWGPU, false
	}
}

// PresentMode controls how rendered frames are delivered to the display.
type PresentMode int

const (
	// PresentModeVSync synchronizes frame presentation with the display refresh rate (FIFO).
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical sync.
	PresentModeUncapped
)

// ParsePresentMode maps a configuration name to a present mode. Unknown names select VSync.
func ParsePresentMode(name string) PresentMode {
	if name == "uncapped" || name == "immediate" {
		return PresentModeUncapped
	}
	return PresentModeVSync
}

// MSAASampleCount specifies the number of samples per pixel for multisample anti-aliasing.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (1 sample per pixel).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// RenderPassOptions configures the main render pass started by BeginFrame.
type RenderPassOptions struct {
	// ClearColor is the color attachment clear value.
	ClearColor wgpu.Color
	// Persist stores the rendered result instead of discarding it after the pass.
	Persist bool
}

// DefaultClearColor is the dark blue background used when no clear color is configured.
var DefaultClearColor = wgpu.Color{R: 0, G: 0, B: 0.4, A: 1}

// RendererBackend is implemented by each backend. The Renderer front end owns the pipeline
// cache and looks pipelines up before delegating.
type RendererBackend interface {
	ConfigureSurface(width, height int) error
	SetPresentMode(mode PresentMode)

	RegisterComputePipeline(p pipeline.Pipeline) error
	RegisterRenderPipeline(p pipeline.Pipeline) error

	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (bind_group_provider.Buffer, error)
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData []byte, vertexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, layout binding.Layout) error
	WriteBuffers(writes []bind_group_provider.BufferWrite) error
	ReadBuffer(buf bind_group_provider.Buffer) ([]byte, error)

	BeginComputeFrame() error
	DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error
	EndComputeFrame() error

	BeginFrame(opts RenderPassOptions) error
	DrawCall(p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error
	EndFrame() error
	Present() error

	Release()
}
