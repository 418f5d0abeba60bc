package pipeline

// Bindings maps binding indices of a bind group to the bytes of the buffers bound there.
// Host programs read and write these slices in place.
type Bindings map[uint32][]byte

// ComputeKernel is the host form of a compute entry point, invoked once per global invocation id.
type ComputeKernel func(globalID [3]uint32, b Bindings)

// VertexInput carries the builtins and raw per-vertex attribute bytes for one vertex invocation.
type VertexInput struct {
	VertexIndex   uint32
	InstanceIndex uint32
	Attributes    []byte
}

// VertexOutput is the clip-space position and the @location(0) output passed to the fragment stage.
type VertexOutput struct {
	Position [4]float32
	Varying  [4]float32
}

// VertexProgram is the host form of a vertex entry point.
type VertexProgram func(in VertexInput, b Bindings) VertexOutput

// FragmentProgram is the host form of a fragment entry point. Flat interpolation is assumed.
type FragmentProgram func(in VertexOutput, b Bindings) [4]float32
