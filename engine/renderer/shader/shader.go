package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// ErrNoEntryPoint is returned when a source has no entry point for the requested stage.
var ErrNoEntryPoint = errors.New("shader: no entry point for stage")

// ShaderType identifies the stage a shader is compiled for.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex stage of a render pipeline.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment stage, paired with a vertex shader.
	ShaderTypeFragment
)

// Stage returns the wgpu stage flag for the shader type.
func (t ShaderType) Stage() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	default:
		return wgpu.ShaderStageNone
	}
}

func (t ShaderType) String() string {
	return binding.StageName(t.Stage())
}

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              map[int][]wgpu.VertexBufferLayout
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader is a pre-processed WGSL source for one stage together with the metadata
// reflected from it: entry point, workgroup size, vertex layouts and the buffer
// bindings it declares.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source with all annotations expanded
	Source() string

	// ShaderType returns the stage this shader was built for.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for this shader's stage.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// WorkgroupSize returns the workgroup size of a compute shader. Non-compute shaders return [0, 0, 0].
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// BindGroupLayoutDescriptor returns the buffer bindings the shader declares for a group,
	// with visibility set to this shader's stage.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the reflected descriptor, empty if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the WGSL variable name bound at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or "" if nothing is declared there
	BindGroupVarName(group, binding int) string

	// VertexLayouts returns the vertex buffer layouts reflected from vertex input structs.
	//
	// Returns:
	//   - map[int][]wgpu.VertexBufferLayout: layouts keyed by sequential index
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// Module returns the shader module descriptor used to create the GPU shader module.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor holding the processed WGSL
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the @oxy:group annotations found while pre-processing.
	//
	// Returns:
	//   - []Annotation: the declarations in source order
	Declarations() []Annotation

	// CheckLayout verifies the bindings this shader declares for the layout's group against the layout.
	//
	// Parameters:
	//   - layout: the layout the shader will be bound with
	//
	// Returns:
	//   - error: a wrapped binding.ErrLayoutMismatch, or nil
	CheckLayout(layout binding.Layout) error

	// Validate compiles the processed source with the naga WGSL front end.
	//
	// Returns:
	//   - error: the compiler error, or nil if the source compiles
	Validate() error
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects a WGSL source for one stage.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage to reflect for
//   - source: the annotated WGSL source
//   - opts: pre-processor registrations used by the source's annotations
//
// Returns:
//   - Shader: the shader
//   - error: a pre-processing error or ErrNoEntryPoint
func NewShader(key string, shaderType ShaderType, source string, opts ...PreProcessorOption) (Shader, error) {
	pp := NewPreProcessor(opts...)
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader: pre-processing %q: %w", key, err)
	}

	s := &shader{
		key:                        key,
		source:                     processed,
		shaderType:                 shaderType,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		vertexLayouts:              make(map[int][]wgpu.VertexBufferLayout),
		declarations:               append([]Annotation(nil), pp.Declarations()...),
	}

	s.entryPoint = parseEntryPoint(processed, shaderType)
	if s.entryPoint == "" {
		return nil, fmt.Errorf("%w: %s in %q", ErrNoEntryPoint, shaderType, key)
	}
	switch shaderType {
	case ShaderTypeVertex:
		s.vertexLayouts = parseVertexLayouts(processed)
	case ShaderTypeCompute:
		s.workGroupSize = parseWorkgroupSize(processed)
	}

	for _, rb := range parseBindings(processed, shaderType.Stage()) {
		desc := s.bindGroupLayoutDescriptors[rb.group]
		desc.Entries = append(desc.Entries, rb.entry)
		s.bindGroupLayoutDescriptors[rb.group] = desc
		if s.bindingVarNames[rb.group] == nil {
			s.bindingVarNames[rb.group] = make(map[int]string)
		}
		s.bindingVarNames[rb.group][int(rb.binding)] = rb.varName
	}

	s.module = &wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: processed,
		},
	}
	return s, nil
}

// NewShaderFromFile reads a WGSL file and passes it to NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage to reflect for
//   - path: the WGSL file path
//   - opts: pre-processor registrations
//
// Returns:
//   - Shader: the shader
//   - error: a read, pre-processing or entry point error
func NewShaderFromFile(key string, shaderType ShaderType, path string, opts ...PreProcessorOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: reading %q: %w", path, err)
	}
	return NewShader(key, shaderType, string(data), opts...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func (s *shader) CheckLayout(layout binding.Layout) error {
	if err := layout.Check(s.shaderType.Stage(), s.BindGroupLayoutDescriptor(int(layout.Group))); err != nil {
		return fmt.Errorf("shader %q: %w", s.key, err)
	}
	return nil
}

func (s *shader) Validate() error {
	if _, err := naga.Compile(s.source); err != nil {
		return fmt.Errorf("shader %q: %w", s.key, err)
	}
	return nil
}
