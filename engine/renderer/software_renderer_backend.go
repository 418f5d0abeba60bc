package renderer

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// Primitive is one drawn instance as the software rasterizer saw it.
type Primitive struct {
	Pipeline string
	Instance uint32
	// Positions holds the clip-space position of every vertex of the instance.
	Positions [][4]float32
	// Visible is false when the instance's triangles cover no area, so no fragment ran.
	Visible bool
	// Color is the flat-shaded fragment output, zero when not visible.
	Color [4]float32
}

// Frame is the record of one presented frame.
type Frame struct {
	Index      int
	ClearColor wgpu.Color
	Persisted  bool
	Primitives []Primitive
}

// VisibleInstances returns the instance indices that produced fragments.
func (f Frame) VisibleInstances() []uint32 {
	out := make([]uint32, 0, len(f.Primitives))
	for _, p := range f.Primitives {
		if p.Visible {
			out = append(out, p.Instance)
		}
	}
	return out
}

// FrameRecorder is implemented by backends that keep the last presented frame for inspection.
type FrameRecorder interface {
	// LastFrame returns the most recently presented frame, false if none has been presented.
	LastFrame() (Frame, bool)
	// FramesPresented returns the number of frames presented.
	FramesPresented() int
}

type softwareBuffer struct {
	label    string
	data     []byte
	usage    wgpu.BufferUsage
	released atomic.Bool
}

func (b *softwareBuffer) Label() string  { return b.label }
func (b *softwareBuffer) Size() uint64   { return uint64(len(b.data)) }
func (b *softwareBuffer) Released() bool { return b.released.Load() }
func (b *softwareBuffer) Release()       { b.released.Store(true) }

type softwareBindGroup struct {
	label    string
	layout   binding.Layout
	buffers  map[uint32]*softwareBuffer
	released atomic.Bool
}

func (g *softwareBindGroup) Released() bool { return g.released.Load() }
func (g *softwareBindGroup) Release()       { g.released.Store(true) }

// bindings returns the buffers of the slots visible to a stage.
func (g *softwareBindGroup) bindings(stage wgpu.ShaderStage) pipeline.Bindings {
	out := make(pipeline.Bindings, len(g.buffers))
	for _, slot := range g.layout.Visible(stage) {
		out[slot.Binding] = g.buffers[slot.Binding].data
	}
	return out
}

type computeCommand struct {
	p     pipeline.Pipeline
	group *softwareBindGroup
	count [3]uint32
}

type drawCommand struct {
	p         pipeline.Pipeline
	vertices  *softwareBuffer
	vertCount int
	instances uint32
	groups    []*softwareBindGroup
}

// softwareRendererBackendImpl emulates a device on the CPU. Compute workgroups run in parallel
// on a worker pool with a barrier between dispatches. Draw calls run the pipeline's host vertex
// and fragment programs per instance and record the result instead of rasterizing pixels.
type softwareRendererBackendImpl struct {
	mu     *sync.Mutex
	logger *zap.Logger
	pool   worker.DynamicWorkerPool
	taskID atomic.Int64

	source        SurfaceSource
	surfaceReady  bool
	maxBufferSize uint64

	computeOpen bool
	compute     []computeCommand

	frameOpen    bool
	frameOpts    RenderPassOptions
	draws        []drawCommand
	pending      *Frame
	last         *Frame
	presented    int
	released     bool
	presentMode  PresentMode
	pipelineKeys map[string]bool
}

var (
	_ RendererBackend = &softwareRendererBackendImpl{}
	_ FrameRecorder   = &softwareRendererBackendImpl{}
)

func newSoftwareRendererBackend(source SurfaceSource, workers int, maxBufferSize uint64, logger *zap.Logger) *softwareRendererBackendImpl {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if maxBufferSize == 0 {
		maxBufferSize = wgpu.DefaultLimits().MaxBufferSize
	}
	return &softwareRendererBackendImpl{
		mu:            &sync.Mutex{},
		logger:        logger,
		pool:          worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		source:        source,
		maxBufferSize: maxBufferSize,
		pipelineKeys:  make(map[string]bool),
	}
}

func (b *softwareRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hs, ok := b.source.(*HeadlessSurface); ok {
		hs.Resize(width, height)
	}
	b.surfaceReady = width > 0 && height > 0
	return nil
}

func (b *softwareRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presentMode = mode
}

func (b *softwareRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if p.Kernel() == nil {
		return &CapabilityError{Backend: "software", Feature: fmt.Sprintf("a host kernel for %q", p.PipelineKey()), Err: ErrPipelineNotFound}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pipelineKeys[p.PipelineKey()] = true
	return nil
}

func (b *softwareRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.VertexProgram() == nil || p.FragmentProgram() == nil {
		return &CapabilityError{Backend: "software", Feature: fmt.Sprintf("host vertex and fragment programs for %q", p.PipelineKey()), Err: ErrPipelineNotFound}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pipelineKeys[p.PipelineKey()] = true
	return nil
}

func (b *softwareRendererBackendImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (bind_group_provider.Buffer, error) {
	buf, err := b.createBuffer(label, size, usage)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *softwareRendererBackendImpl) createBuffer(label string, size uint64, usage wgpu.BufferUsage) (*softwareBuffer, error) {
	if size > b.maxBufferSize {
		return nil, fmt.Errorf("%w: buffer %q needs %d bytes, limit is %d", ErrResourceExhausted, label, size, b.maxBufferSize)
	}
	return &softwareBuffer{label: label, data: make([]byte, size), usage: usage}, nil
}

func (b *softwareRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData []byte, vertexCount int) error {
	if len(vertexData) == 0 {
		return nil
	}
	buf, err := b.createBuffer(provider.Label()+" Vertex Buffer", uint64(len(vertexData)), wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	copy(buf.data, vertexData)
	provider.SetVertexBuffer(buf, vertexCount)
	return nil
}

func (b *softwareRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, layout binding.Layout) error {
	group := &softwareBindGroup{
		label:   provider.Label() + " Bind Group",
		layout:  layout,
		buffers: make(map[uint32]*softwareBuffer, len(layout.Slots)),
	}
	for _, slot := range layout.Slots {
		handle := provider.Buffer(int(slot.Binding))
		if handle == nil {
			usage := wgpu.BufferUsageCopyDst | wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
			if slot.Kind == wgpu.BufferBindingTypeUniform {
				usage = wgpu.BufferUsageCopyDst | wgpu.BufferUsageUniform
			}
			created, err := b.createBuffer(fmt.Sprintf("%s %s", provider.Label(), slot.Name), slot.MinBindingSize, usage)
			if err != nil {
				return err
			}
			provider.SetBuffer(int(slot.Binding), created)
			handle = created
		}
		buf, ok := handle.(*softwareBuffer)
		if !ok {
			return fmt.Errorf("%w: binding %d of %q", ErrForeignResource, slot.Binding, provider.Label())
		}
		if buf.Released() {
			return fmt.Errorf("%w: binding %d of %q", bind_group_provider.ErrReleased, slot.Binding, provider.Label())
		}
		if uint64(len(buf.data)) < slot.MinBindingSize {
			return fmt.Errorf("binding %d of %q is %d bytes, layout needs %d", slot.Binding, provider.Label(), len(buf.data), slot.MinBindingSize)
		}
		group.buffers[slot.Binding] = buf
	}
	provider.SetBindGroup(group)
	return nil
}

func (b *softwareRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range writes {
		buf, ok := w.Provider.Buffer(w.Binding).(*softwareBuffer)
		if !ok || buf == nil {
			return fmt.Errorf("%w: no buffer at binding %d of %q", ErrForeignResource, w.Binding, w.Provider.Label())
		}
		if buf.Released() {
			return fmt.Errorf("%w: binding %d of %q", bind_group_provider.ErrReleased, w.Binding, w.Provider.Label())
		}
		end := w.Offset + uint64(len(w.Data))
		if end > uint64(len(buf.data)) {
			return fmt.Errorf("write of %d bytes at offset %d overruns %q (%d bytes)", len(w.Data), w.Offset, buf.label, len(buf.data))
		}
		copy(buf.data[w.Offset:end], w.Data)
	}
	return nil
}

func (b *softwareRendererBackendImpl) ReadBuffer(handle bind_group_provider.Buffer) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := handle.(*softwareBuffer)
	if !ok {
		return nil, ErrForeignResource
	}
	if buf.Released() {
		return nil, fmt.Errorf("%w: buffer %q", bind_group_provider.ErrReleased, buf.label)
	}
	out := make([]byte, len(buf.data))
	copy(out, buf.data)
	return out, nil
}

func (b *softwareRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.computeOpen {
		return ErrFrameInProgress
	}
	b.computeOpen = true
	b.compute = b.compute[:0]
	return nil
}

func (b *softwareRendererBackendImpl) DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.computeOpen {
		return ErrNoFrame
	}
	group, err := softwareGroup(provider)
	if err != nil {
		return err
	}
	if err := checkUsage([]*softwareBindGroup{group}, nil); err != nil {
		return err
	}
	b.compute = append(b.compute, computeCommand{p: p, group: group, count: workGroupCount})
	return nil
}

func (b *softwareRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.computeOpen {
		return ErrNoFrame
	}
	b.computeOpen = false
	for _, cmd := range b.compute {
		if cmd.group.Released() {
			return fmt.Errorf("%w: %s", bind_group_provider.ErrReleased, cmd.group.label)
		}
		b.runDispatch(cmd)
	}
	b.compute = b.compute[:0]
	return nil
}

// runDispatch runs every workgroup of one dispatch and returns when all have finished.
func (b *softwareRendererBackendImpl) runDispatch(cmd computeCommand) {
	size := [3]uint32{1, 1, 1}
	if cs := cmd.p.Shader(shader.ShaderTypeCompute); cs != nil {
		size = cs.WorkgroupSize()
	}
	kernel := cmd.p.Kernel()
	bindings := cmd.group.bindings(wgpu.ShaderStageCompute)

	var wg sync.WaitGroup
	for gz := uint32(0); gz < cmd.count[2]; gz++ {
		for gy := uint32(0); gy < cmd.count[1]; gy++ {
			for gx := uint32(0); gx < cmd.count[0]; gx++ {
				origin := [3]uint32{gx * size[0], gy * size[1], gz * size[2]}
				wg.Add(1)
				b.pool.SubmitTask(worker.Task{
					ID: int(b.taskID.Add(1)),
					Do: func() (any, error) {
						defer wg.Done()
						for lz := uint32(0); lz < size[2]; lz++ {
							for ly := uint32(0); ly < size[1]; ly++ {
								for lx := uint32(0); lx < size[0]; lx++ {
									kernel([3]uint32{origin[0] + lx, origin[1] + ly, origin[2] + lz}, bindings)
								}
							}
						}
						return nil, nil
					},
				})
			}
		}
	}
	wg.Wait()
}

func (b *softwareRendererBackendImpl) BeginFrame(opts RenderPassOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frameOpen || b.pending != nil {
		return ErrFrameInProgress
	}
	if b.source == nil || !b.surfaceReady {
		return ErrSurfaceUnavailable
	}
	if hs, ok := b.source.(*HeadlessSurface); ok {
		if err := hs.acquire(); err != nil {
			return err
		}
	}
	b.frameOpen = true
	b.frameOpts = opts
	b.draws = b.draws[:0]
	return nil
}

func (b *softwareRendererBackendImpl) DrawCall(p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.frameOpen {
		return ErrNoFrame
	}
	groups := make([]*softwareBindGroup, len(bindGroups))
	for i, provider := range bindGroups {
		g, err := softwareGroup(provider)
		if err != nil {
			return err
		}
		groups[i] = g
	}
	vb, ok := mesh.VertexBuffer().(*softwareBuffer)
	if !ok || vb.Released() {
		return fmt.Errorf("%w: vertex buffer of %q", bind_group_provider.ErrReleased, mesh.Label())
	}
	if err := checkUsage(groups, vb); err != nil {
		return err
	}
	b.draws = append(b.draws, drawCommand{p: p, vertices: vb, vertCount: mesh.VertexCount(), instances: instanceCount, groups: groups})
	return nil
}

func (b *softwareRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.frameOpen {
		return ErrNoFrame
	}
	b.frameOpen = false

	frame := &Frame{Index: b.presented, ClearColor: b.frameOpts.ClearColor, Persisted: b.frameOpts.Persist}
	for _, d := range b.draws {
		prims, err := runDraw(d)
		if err != nil {
			return err
		}
		frame.Primitives = append(frame.Primitives, prims...)
	}
	b.draws = b.draws[:0]
	b.pending = frame
	return nil
}

func (b *softwareRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return ErrNoFrame
	}
	b.last = b.pending
	b.pending = nil
	b.presented++
	return nil
}

func (b *softwareRendererBackendImpl) LastFrame() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return Frame{}, false
	}
	return *b.last, true
}

func (b *softwareRendererBackendImpl) FramesPresented() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presented
}

func (b *softwareRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
	b.compute, b.draws, b.pending = nil, nil, nil
}

// runDraw runs the vertex program for each vertex of each instance and the fragment program once
// per visible instance, using the first vertex's output as the flat-shaded input.
func runDraw(d drawCommand) ([]Primitive, error) {
	if d.vertCount == 0 {
		return nil, nil
	}
	stride := len(d.vertices.data) / d.vertCount
	vertexBindings := make(pipeline.Bindings)
	fragmentBindings := make(pipeline.Bindings)
	for _, g := range d.groups {
		for k, v := range g.bindings(wgpu.ShaderStageVertex) {
			vertexBindings[k] = v
		}
		for k, v := range g.bindings(wgpu.ShaderStageFragment) {
			fragmentBindings[k] = v
		}
	}

	vertex, fragment := d.p.VertexProgram(), d.p.FragmentProgram()
	prims := make([]Primitive, 0, d.instances)
	for inst := uint32(0); inst < d.instances; inst++ {
		prim := Primitive{
			Pipeline:  d.p.PipelineKey(),
			Instance:  inst,
			Positions: make([][4]float32, d.vertCount),
		}
		var first pipeline.VertexOutput
		for v := 0; v < d.vertCount; v++ {
			out := vertex(pipeline.VertexInput{
				VertexIndex:   uint32(v),
				InstanceIndex: inst,
				Attributes:    d.vertices.data[v*stride : (v+1)*stride],
			}, vertexBindings)
			if v == 0 {
				first = out
			}
			prim.Positions[v] = out.Position
		}
		if coveredArea(prim.Positions) > 0 {
			prim.Visible = true
			prim.Color = fragment(first, fragmentBindings)
		}
		prims = append(prims, prim)
	}
	return prims, nil
}

// coveredArea sums the absolute screen-space areas of a triangle list.
func coveredArea(positions [][4]float32) float64 {
	var area float64
	for i := 0; i+2 < len(positions); i += 3 {
		a, b, c := ndc(positions[i]), ndc(positions[i+1]), ndc(positions[i+2])
		area += math.Abs(float64((b[0]-a[0])*(c[1]-a[1])-(c[0]-a[0])*(b[1]-a[1]))) / 2
	}
	return area
}

func ndc(p [4]float32) [2]float32 {
	if p[3] == 0 {
		return [2]float32{}
	}
	return [2]float32{p[0] / p[3], p[1] / p[3]}
}

func softwareGroup(provider bind_group_provider.BindGroupProvider) (*softwareBindGroup, error) {
	if err := provider.Validate(); err != nil {
		return nil, err
	}
	g, ok := provider.BindGroup().(*softwareBindGroup)
	if !ok {
		return nil, fmt.Errorf("%w: bind group of %q", ErrForeignResource, provider.Label())
	}
	return g, nil
}

// checkUsage rejects a pass in which a buffer bound as writable storage is also bound
// anywhere else, mirroring the WebGPU usage scope rule.
func checkUsage(groups []*softwareBindGroup, vertex *softwareBuffer) error {
	writable := make(map[*softwareBuffer]string)
	uses := make(map[*softwareBuffer]int)
	for _, g := range groups {
		for _, slot := range g.layout.Slots {
			buf := g.buffers[slot.Binding]
			uses[buf]++
			if slot.Kind == wgpu.BufferBindingTypeStorage {
				writable[buf] = fmt.Sprintf("%s binding %d", g.label, slot.Binding)
			}
		}
	}
	if vertex != nil {
		uses[vertex]++
	}
	for buf, where := range writable {
		if uses[buf] > 1 {
			return fmt.Errorf("%w: %q is writable at %s and bound again", ErrUsageConflict, buf.label, where)
		}
	}
	return nil
}
