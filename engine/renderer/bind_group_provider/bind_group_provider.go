package bind_group_provider

import (
	"errors"
	"fmt"
)

var (
	// ErrReleased is returned when a provider, its bind group or one of its buffers has been released.
	ErrReleased = errors.New("bind group provider: resource released")

	// ErrNotInitialized is returned when a provider has no bind group yet.
	ErrNotInitialized = errors.New("bind group provider: bind group not initialized")
)

// Buffer is a GPU buffer handle created by a renderer backend.
// Backends type-assert handles back to their own concrete type.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint64

	// Release frees the GPU memory. Safe to call more than once.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

// BindGroup is a bind group handle created by a renderer backend.
type BindGroup interface {
	// Release frees the bind group. Safe to call more than once.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label, prefixed onto every GPU resource label created for this provider.
	label string

	bindGroup BindGroup
	// buffers holds the buffers bound by this provider, keyed by binding index.
	buffers map[int]Buffer
	// owned marks the bindings whose buffers this provider created and therefore releases.
	// Buffers attached with WithBuffer are shared and left alone.
	owned map[int]bool

	vertexBuffer Buffer
	vertexCount  int

	released bool
}

// BindGroupProvider owns or borrows the buffers behind one bind group.
//
// Usage pattern:
//  1. Create a provider, attaching any shared buffers with WithBuffer
//  2. Renderer.InitBindGroup(provider, layout) creates missing buffers and the bind group
//  3. Renderer.WriteBuffers targets bindings on the provider
//  4. DispatchCompute and DrawCall bind BindGroup()
//  5. Release frees the bind group and the buffers the provider created
type BindGroupProvider interface {
	// Release releases the bind group, the vertex buffer and every buffer this provider created.
	// Shared buffers attached with WithBuffer are not released. The provider is invalid afterwards.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once released
	Released() bool

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil if the Renderer has not initialized it.
	//
	// Returns:
	//   - BindGroup: the bind group or nil
	BindGroup() BindGroup

	// Buffer returns the buffer bound at a binding index, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - Buffer: the buffer or nil
	Buffer(binding int) Buffer

	// Buffers returns every bound buffer keyed by binding index.
	//
	// Returns:
	//   - map[int]Buffer: the buffers
	Buffers() map[int]Buffer

	// VertexBuffer returns the vertex buffer, or nil for providers without geometry.
	//
	// Returns:
	//   - Buffer: the vertex buffer or nil
	VertexBuffer() Buffer

	// VertexCount returns the number of vertices in the vertex buffer.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// Owns reports whether the buffer at a binding was created for this provider.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - bool: true if Release will free it
	Owns(binding int) bool

	// SetBindGroup stores the bind group after GPU initialization.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg BindGroup)

	// SetBuffer stores a buffer the Renderer created for this provider. The provider takes ownership.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf Buffer)

	// SetVertexBuffer stores the vertex buffer and its vertex count. The provider takes ownership.
	//
	// Parameters:
	//   - buf: the created vertex buffer
	//   - count: the number of vertices
	SetVertexBuffer(buf Buffer, count int)

	// Validate checks that the bind group exists and that neither it nor any bound buffer
	// has been released.
	//
	// Returns:
	//   - error: ErrReleased or ErrNotInitialized wrapped with the offending label, or nil
	Validate() error
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a debug label for the provider and its GPU resources
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[int]Buffer),
		owned:   make(map[int]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Released() bool {
	return p.released
}

func (p *bindGroupProvider) BindGroup() BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]Buffer {
	return p.buffers
}

func (p *bindGroupProvider) VertexBuffer() Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) VertexCount() int {
	return p.vertexCount
}

func (p *bindGroupProvider) Owns(binding int) bool {
	return p.owned[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf Buffer) {
	p.buffers[binding] = buf
	p.owned[binding] = true
}

func (p *bindGroupProvider) SetVertexBuffer(buf Buffer, count int) {
	p.vertexBuffer = buf
	p.vertexCount = count
}

func (p *bindGroupProvider) Validate() error {
	if p.released {
		return fmt.Errorf("%w: provider %q", ErrReleased, p.label)
	}
	if p.bindGroup == nil && p.vertexBuffer == nil {
		return fmt.Errorf("%w: provider %q", ErrNotInitialized, p.label)
	}
	if p.bindGroup != nil && p.bindGroup.Released() {
		return fmt.Errorf("%w: bind group of %q", ErrReleased, p.label)
	}
	for binding, buf := range p.buffers {
		if buf == nil || buf.Released() {
			return fmt.Errorf("%w: binding %d of %q", ErrReleased, binding, p.label)
		}
	}
	if p.vertexBuffer != nil && p.vertexBuffer.Released() {
		return fmt.Errorf("%w: vertex buffer of %q", ErrReleased, p.label)
	}
	return nil
}

func (p *bindGroupProvider) Release() {
	if p.released {
		return
	}
	p.released = true

	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	for binding, buf := range p.buffers {
		if buf != nil && p.owned[binding] {
			buf.Release()
		}
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
	}
}
