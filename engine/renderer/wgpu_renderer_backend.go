package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// wgpuBuffer wraps a *wgpu.Buffer so providers can track release.
type wgpuBuffer struct {
	buf      *wgpu.Buffer
	label    string
	size     uint64
	usage    wgpu.BufferUsage
	released bool
}

func (b *wgpuBuffer) Label() string  { return b.label }
func (b *wgpuBuffer) Size() uint64   { return b.size }
func (b *wgpuBuffer) Released() bool { return b.released }

func (b *wgpuBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.buf.Release()
}

type wgpuBindGroup struct {
	bg       *wgpu.BindGroup
	layout   string
	released bool
}

func (g *wgpuBindGroup) Released() bool { return g.released }

func (g *wgpuBindGroup) Release() {
	if g.released {
		return
	}
	g.released = true
	g.bg.Release()
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	logger *zap.Logger

	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	limits   wgpu.Limits

	surfaceFormat        wgpu.TextureFormat
	surfaceWidth         int
	surfaceHeight        int
	surfaceReady         bool
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	// bindGroupLayouts caches one GPU layout per binding.Layout label so bind groups and
	// pipelines built from the same layout share the same object.
	bindGroupLayouts map[string]*wgpu.BindGroupLayout

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Compute frame state for batching all compute dispatches into a single GPU submission
	computeFrameEncoder *wgpu.CommandEncoder
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend acquires an instance, adapter and device. A source without a surface
// descriptor produces a headless device.
func newWGPURendererBackend(source SurfaceSource, forceFallbackAdapter bool, sampleCount MSAASampleCount, logger *zap.Logger) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:               &sync.Mutex{},
		logger:           logger,
		instance:         wgpu.CreateInstance(nil),
		presentMode:      wgpu.PresentModeFifo,
		sampleCount:      sampleCount,
		surfaceFormat:    wgpu.TextureFormatBGRA8Unorm,
		bindGroupLayouts: make(map[string]*wgpu.BindGroupLayout),
		limits:           wgpu.DefaultLimits(),
	}

	var desc *wgpu.SurfaceDescriptor
	if source != nil {
		desc = source.SurfaceDescriptor()
	}
	if desc != nil {
		w.surface = w.instance.CreateSurface(desc)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil || a == nil {
		w.release()
		return nil, &CapabilityError{Backend: "wgpu", Feature: "a compatible adapter", Err: fmt.Errorf("%w: %v", ErrNoAdapter, err)}
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Life Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: w.limits,
		},
	})
	if err != nil || d == nil {
		w.release()
		return nil, &CapabilityError{Backend: "wgpu", Feature: "a device", Err: fmt.Errorf("%w: %v", ErrNoDevice, err)}
	}
	w.device = d
	w.queue = d.GetQueue()

	if w.surface != nil {
		caps := w.surface.GetCapabilities(w.adapter)
		if len(caps.Formats) > 0 {
			w.surfaceFormat = caps.Formats[0]
		}
	}
	return w, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.configureLocked(width, height)
}

func (b *wgpuRendererBackendImpl) configureLocked(width, height int) error {
	b.surfaceWidth, b.surfaceHeight = width, height
	if b.surface == nil {
		return nil
	}
	// A minimized window reports a zero size; frames are refused until it is restored.
	if width <= 0 || height <= 0 {
		b.surfaceReady = false
		return nil
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   alphaMode,
	})

	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTexture.Release()
		b.msaaTextureView, b.msaaTexture = nil, nil
	}

	storeOp := wgpu.StoreOpStore
	if b.sampleCount > 1 {
		// The pass draws into the MSAA texture and resolves into the swapchain view.
		tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   uint32(b.sampleCount),
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("%w: msaa texture: %v", ErrResourceExhausted, err)
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			return err
		}
		b.msaaTexture, b.msaaTextureView = tex, view
		storeOp = wgpu.StoreOpDiscard
	}

	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.msaaTextureView, // nil without MSAA, set per frame
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    storeOp,
				ClearValue: DefaultClearColor,
			},
		},
	}
	b.surfaceReady = true
	b.logger.Debug("surface configured", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

// bindGroupLayout returns the cached GPU layout for a binding.Layout, creating it on first use.
func (b *wgpuRendererBackendImpl) bindGroupLayout(layout binding.Layout) (*wgpu.BindGroupLayout, error) {
	if bgl, ok := b.bindGroupLayouts[layout.Label]; ok {
		return bgl, nil
	}
	desc := layout.Descriptor()
	bgl, err := b.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, fmt.Errorf("creating bind group layout %q: %w", layout.Label, err)
	}
	b.bindGroupLayouts[layout.Label] = bgl
	return bgl, nil
}

func (b *wgpuRendererBackendImpl) pipelineLayout(p pipeline.Pipeline) (*wgpu.PipelineLayout, error) {
	bgl, err := b.bindGroupLayout(p.Layout())
	if err != nil {
		return nil, err
	}
	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return err
	}
	defer fs.Release()

	layout, err := b.pipelineLayout(p)
	if err != nil {
		return err
	}
	defer layout.Release()

	vertexLayouts := make([]wgpu.VertexBufferLayout, 0, len(vertexShader.VertexLayouts()))
	for i := range len(vertexShader.VertexLayouts()) {
		vertexLayouts = append(vertexLayouts, vertexShader.VertexLayouts()[i]...)
	}

	target := wgpu.ColorTargetState{
		Format:    b.surfaceFormat,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	computeShader := p.Shader(shader.ShaderTypeCompute)
	module, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}
	defer module.Release()

	layout, err := b.pipelineLayout(p)
	if err != nil {
		return err
	}
	defer layout.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (bind_group_provider.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, err := b.createBufferLocked(label, size, usage)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) createBufferLocked(label string, size uint64, usage wgpu.BufferUsage) (*wgpuBuffer, error) {
	if size > b.limits.MaxBufferSize {
		return nil, fmt.Errorf("%w: buffer %q needs %d bytes, limit is %d", ErrResourceExhausted, label, size, b.limits.MaxBufferSize)
	}
	if usage&wgpu.BufferUsageStorage != 0 && size > b.limits.MaxStorageBufferBindingSize {
		return nil, fmt.Errorf("%w: storage buffer %q needs %d bytes, binding limit is %d", ErrResourceExhausted, label, size, b.limits.MaxStorageBufferBindingSize)
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("creating buffer %q: %w", label, err)
	}
	return &wgpuBuffer{buf: buf, label: label, size: size, usage: usage}, nil
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData []byte, vertexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) == 0 {
		return nil
	}
	buf, err := b.createBufferLocked(provider.Label()+" Vertex Buffer", uint64(len(vertexData)), wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	b.queue.WriteBuffer(buf.buf, 0, vertexData)
	provider.SetVertexBuffer(buf, vertexCount)
	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, layout binding.Layout) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bgl, err := b.bindGroupLayout(layout)
	if err != nil {
		return err
	}

	entries := make([]wgpu.BindGroupEntry, len(layout.Slots))
	for i, slot := range layout.Slots {
		handle := provider.Buffer(int(slot.Binding))
		if handle == nil {
			usage := wgpu.BufferUsageCopyDst
			switch slot.Kind {
			case wgpu.BufferBindingTypeUniform:
				usage |= wgpu.BufferUsageUniform
			default:
				usage |= wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
			}
			created, err := b.createBufferLocked(fmt.Sprintf("%s %s", provider.Label(), slot.Name), slot.MinBindingSize, usage)
			if err != nil {
				return err
			}
			provider.SetBuffer(int(slot.Binding), created)
			handle = created
		}
		buf, ok := handle.(*wgpuBuffer)
		if !ok {
			return fmt.Errorf("%w: binding %d of %q", ErrForeignResource, slot.Binding, provider.Label())
		}
		if buf.released {
			return fmt.Errorf("%w: binding %d of %q", bind_group_provider.ErrReleased, slot.Binding, provider.Label())
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: slot.Binding,
			Buffer:  buf.buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  bgl,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(&wgpuBindGroup{bg: bg, layout: layout.Label})
	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf, ok := w.Provider.Buffer(w.Binding).(*wgpuBuffer)
		if !ok || buf == nil {
			return fmt.Errorf("%w: no buffer at binding %d of %q", ErrForeignResource, w.Binding, w.Provider.Label())
		}
		if buf.released {
			return fmt.Errorf("%w: binding %d of %q", bind_group_provider.ErrReleased, w.Binding, w.Provider.Label())
		}
		b.queue.WriteBuffer(buf.buf, w.Offset, w.Data)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) ReadBuffer(handle bind_group_provider.Buffer) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, ok := handle.(*wgpuBuffer)
	if !ok {
		return nil, ErrForeignResource
	}
	if src.released {
		return nil, fmt.Errorf("%w: buffer %q", bind_group_provider.ErrReleased, src.label)
	}

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: src.label + " Staging",
		Size:  src.size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()
	encoder.CopyBufferToBuffer(src.buf, 0, staging, 0, src.size)
	commands, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	defer commands.Release()
	b.queue.Submit(commands)

	var mapStatus wgpu.BufferMapAsyncStatus
	done := make(chan struct{})
	err = staging.MapAsync(wgpu.MapModeRead, 0, src.size, func(status wgpu.BufferMapAsyncStatus) {
		mapStatus = status
		close(done)
	})
	if err != nil {
		return nil, err
	}
	b.device.Poll(true, nil)
	<-done
	if mapStatus != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("mapping %q for read: status %v", src.label, mapStatus)
	}

	mapped := staging.GetMappedRange(0, uint(src.size))
	out := make([]byte, len(mapped))
	copy(out, mapped)
	staging.Unmap()
	return out, nil
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder != nil {
		return ErrFrameInProgress
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return ErrNoFrame
	}
	defer func() {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
	}()

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	computeProvider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return ErrNoFrame
	}
	bg, err := boundGroup(computeProvider)
	if err != nil {
		return err
	}

	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(p.Pipeline().(*wgpu.ComputePipeline))
	pass.SetBindGroup(0, bg.bg, nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	pass.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame(opts RenderPassOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Acquiring while a previous surface texture is held is a validation error in wgpu-native.
	if b.frameSurface != nil {
		return ErrFrameInProgress
	}
	if b.surface == nil || !b.surfaceReady {
		return ErrSurfaceUnavailable
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		// Outdated or lost swapchains recover after a reconfigure.
		_ = b.configureLocked(b.surfaceWidth, b.surfaceHeight)
		return fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	attachment := &b.renderPassDescriptor.ColorAttachments[0]
	attachment.ClearValue = opts.ClearColor
	if b.sampleCount > 1 {
		attachment.ResolveTarget = view
	} else {
		attachment.View = view
		attachment.StoreOp = wgpu.StoreOpDiscard
		if opts.Persist {
			attachment.StoreOp = wgpu.StoreOpStore
		}
	}

	b.frameEncoder = encoder
	b.framePass = encoder.BeginRenderPass(b.renderPassDescriptor)
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	meshProvider bind_group_provider.BindGroupProvider,
	instanceCount uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoFrame
	}
	groups := make([]*wgpuBindGroup, len(bindGroups))
	for i, provider := range bindGroups {
		bg, err := boundGroup(provider)
		if err != nil {
			return err
		}
		groups[i] = bg
	}
	vb, ok := meshProvider.VertexBuffer().(*wgpuBuffer)
	if !ok || vb.released {
		return fmt.Errorf("%w: vertex buffer of %q", bind_group_provider.ErrReleased, meshProvider.Label())
	}

	b.framePass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	for i, bg := range groups {
		b.framePass.SetBindGroup(uint32(i), bg.bg, nil)
	}
	b.framePass.SetVertexBuffer(0, vb.buf, 0, wgpu.WholeSize)
	b.framePass.Draw(uint32(meshProvider.VertexCount()), instanceCount, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoFrame
	}
	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.releaseFrameSurface()
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return ErrNoFrame
	}
	b.surface.Present()
	b.releaseFrameSurface()
	return nil
}

func (b *wgpuRendererBackendImpl) releaseFrameSurface() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.release()
}

func (b *wgpuRendererBackendImpl) release() {
	b.releaseFrameSurface()
	for label, bgl := range b.bindGroupLayouts {
		bgl.Release()
		delete(b.bindGroupLayouts, label)
	}
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTexture.Release()
		b.msaaTextureView, b.msaaTexture = nil, nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// boundGroup validates a provider and returns its wgpu bind group.
func boundGroup(provider bind_group_provider.BindGroupProvider) (*wgpuBindGroup, error) {
	if err := provider.Validate(); err != nil {
		return nil, err
	}
	bg, ok := provider.BindGroup().(*wgpuBindGroup)
	if !ok {
		return nil, fmt.Errorf("%w: bind group of %q", ErrForeignResource, provider.Label())
	}
	return bg, nil
}
