package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend
	logger      *zap.Logger

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	workerCount          int
	maxBufferSize        uint64
}

// Renderer is the high level GPU API used by the simulation. It owns a cache of pipelines
// keyed by name and delegates resource creation, compute dispatch and drawing to a backend.
//
// A frame is two brackets: BeginComputeFrame / DispatchCompute / EndComputeFrame submits
// compute work, then BeginFrame / DrawCall / EndFrame / Present draws and presents. Work is
// submitted on one queue, so a render pass always observes the compute writes submitted before it.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns a copy of the pipeline cache.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: pipelines keyed by PipelineKey
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines validates each pipeline, creates its GPU object through the backend and
	// caches it by PipelineKey. Keys that are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: a validation or creation error
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the presentation surface.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: a configuration error
	Resize(width, height int) error

	// CreateBuffer creates a standalone buffer, typically shared between several bind group providers.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the size in bytes
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - bind_group_provider.Buffer: the buffer
	//   - error: ErrResourceExhausted or a backend error
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (bind_group_provider.Buffer, error)

	// InitMeshBuffers uploads vertex data into a vertex buffer owned by the provider.
	//
	// Parameters:
	//   - provider: the provider to store the vertex buffer on
	//   - vertexData: the raw vertex bytes
	//   - vertexCount: the number of vertices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData []byte, vertexCount int) error

	// InitBindGroup creates a bind group for the provider against an explicit layout. Bindings
	// without an attached buffer get a new buffer sized by the slot's MinBindingSize, owned by
	// the provider. Storage buffers are created with copy-source usage so they can be read back.
	//
	// Parameters:
	//   - provider: the provider to initialize
	//   - layout: the layout the bind group must conform to
	//
	// Returns:
	//   - error: an error if a buffer or the bind group cannot be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, layout binding.Layout) error

	// WriteBuffers queues buffer writes. They are visible to every submission that follows.
	//
	// Parameters:
	//   - writes: the writes to perform
	//
	// Returns:
	//   - error: an error if a target buffer is missing or released
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// ReadBuffer copies a buffer's contents back to host memory, waiting for queued work to finish.
	//
	// Parameters:
	//   - buf: the buffer to read
	//
	// Returns:
	//   - []byte: a copy of the buffer contents
	//   - error: an error if the buffer cannot be mapped
	ReadBuffer(buf bind_group_provider.Buffer) ([]byte, error)

	// BeginComputeFrame opens the command encoder that batches a frame's compute dispatches.
	//
	// Returns:
	//   - error: ErrFrameInProgress or an encoder error
	BeginComputeFrame() error

	// DispatchCompute encodes a compute pass for a cached pipeline inside the current compute frame.
	//
	// Parameters:
	//   - pipelineKey: the key of a registered compute pipeline
	//   - computeProvider: the provider whose bind group is bound at group 0
	//   - workGroupCount: the workgroup counts in x, y and z
	//
	// Returns:
	//   - error: ErrPipelineNotFound, ErrNoFrame or a binding error
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputeFrame finishes and submits the compute frame.
	//
	// Returns:
	//   - error: a submission error
	EndComputeFrame() error

	// BeginFrame acquires the next surface texture and begins the main render pass.
	//
	// Parameters:
	//   - opts: render pass options such as the clear color
	//
	// Returns:
	//   - error: ErrSurfaceUnavailable when no texture can be acquired, or another error
	BeginFrame(opts RenderPassOptions) error

	// DrawCall encodes one instanced, non-indexed draw inside the current render pass.
	//
	// Parameters:
	//   - pipelineKey: the key of a registered render pipeline
	//   - meshProvider: the provider holding the vertex buffer
	//   - instanceCount: the number of instances to draw
	//   - bindGroups: providers whose bind groups are bound at groups 0..n-1
	//
	// Returns:
	//   - error: ErrPipelineNotFound, ErrNoFrame or a binding error
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the render pass and submits it. Present must follow.
	//
	// Returns:
	//   - error: ErrNoFrame or a submission error
	EndFrame() error

	// Present presents the surface texture acquired by BeginFrame.
	//
	// Returns:
	//   - error: a presentation error
	Present() error

	// SetPresentMode sets the present mode used by the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// BackendType returns the type of backend in use.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Backend exposes the backend for capability probes such as FrameRecorder.
	//
	// Returns:
	//   - RendererBackend: the backend
	Backend() RendererBackend

	// Release frees the device, the surface and every cached pipeline.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on the requested backend. For the WGPU backend the surface
// descriptor comes from the SurfaceSource, typically a window.Window; a source with no
// descriptor yields a headless device that can compute and read back but not present.
//
// Parameters:
//   - backendType: the backend to create
//   - surface: the presentation surface source
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: ErrNoAdapter, ErrNoDevice or a *CapabilityError when the platform cannot serve the backend
func NewRenderer(backendType RendererBackendType, surface SurfaceSource, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		logger:        zap.NewNop(),
	}

	// Options go first so config flags are known before an adapter is requested.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAAOff
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(surface, r.workerCount, r.maxBufferSize, r.logger)
	case BackendTypeWGPU:
		b, err := newWGPURendererBackend(surface, r.forceFallbackAdapter, msaa, r.logger)
		if err != nil {
			return nil, err
		}
		r.backend = b
	default:
		return nil, &CapabilityError{Backend: backendType.String(), Feature: "an implementation", Err: ErrNoAdapter}
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if surface != nil {
		if err := r.backend.ConfigureSurface(surface.Width(), surface.Height()); err != nil {
			r.backend.Release()
			return nil, err
		}
	}

	r.logger.Info("renderer ready", zap.Stringer("backend", backendType), zap.Uint32("msaa", uint32(msaa)))
	return r, nil
}

func (r *renderer) Resize(width, height int) error {
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := p.Validate(); err != nil {
			return err
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return fmt.Errorf("registering compute pipeline %q: %w", key, err)
			}
		case pipeline.PipelineTypeRender:
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return fmt.Errorf("registering render pipeline %q: %w", key, err)
			}
		}
		r.pipelineCache[key] = p
		r.logger.Debug("pipeline registered", zap.String("key", key), zap.Stringer("type", p.Type()))
	}
	return nil
}

func (r *renderer) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (bind_group_provider.Buffer, error) {
	return r.backend.CreateBuffer(label, size, usage)
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData []byte, vertexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, vertexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, layout binding.Layout) error {
	return r.backend.InitBindGroup(provider, layout)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.WriteBuffers(writes)
}

func (r *renderer) ReadBuffer(buf bind_group_provider.Buffer) ([]byte, error) {
	return r.backend.ReadBuffer(buf)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	p, err := r.lookup(pipelineKey, pipeline.PipelineTypeCompute)
	if err != nil {
		return err
	}
	return r.backend.DispatchCompute(p, computeProvider, workGroupCount)
}

func (r *renderer) BeginFrame(opts RenderPassOptions) error {
	return r.backend.BeginFrame(opts)
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, err := r.lookup(pipelineKey, pipeline.PipelineTypeRender)
	if err != nil {
		return err
	}
	return r.backend.DrawCall(p, meshProvider, instanceCount, bindGroups)
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Present() error {
	return r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	r.pipelineCache = make(map[string]pipeline.Pipeline)
	r.mu.Unlock()
	r.backend.Release()
}

func (r *renderer) lookup(key string, want pipeline.PipelineType) (pipeline.Pipeline, error) {
	r.mu.Lock()
	p, ok := r.pipelineCache[key]
	r.mu.Unlock()
	if !ok || p.Type() != want {
		return nil, fmt.Errorf("%w: %s pipeline %q", ErrPipelineNotFound, want, key)
	}
	return p, nil
}
