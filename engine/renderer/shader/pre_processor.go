// pre_processor.go implements the Oxy WGSL pre-processor. It replaces @oxy: annotations
// with generated WGSL and records binding declarations so callers can check a shader
// against the layout it will be bound with.
//
// The pre-processor holds three registries, all filled through options:
//   - structRegistry: annotation type keys to WGSL struct sources and resolved type names
//   - constants: names usable as @oxy:workgroup dimensions
//   - addressSpaceRegistry: address space keys to WGSL var<> syntax
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// registryEntry pairs an optional WGSL struct source with the WGSL type name emitted
// in generated declarations. Entries for builtin types such as vec2f have no Source.
type registryEntry struct {
	Source string
	Type   string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	constants            map[string]uint32
	addressSpaceRegistry map[AnnotationArg]string

	// declarations accumulates group annotations during a Process call.
	declarations []Annotation
}

// PreProcessor turns annotated WGSL into plain WGSL.
type PreProcessor interface {
	// Process replaces every @oxy: annotation in source with its WGSL output.
	// @oxy:include lines become the registered struct source, @oxy:group lines become
	// @group/@binding declarations and @oxy:workgroup lines become @workgroup_size attributes.
	// The declarations list is reset at the start of each call.
	//
	// Parameters:
	//   - source: the annotated WGSL source
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if an annotation is malformed or references an unregistered key
	Process(source string) (string, error)

	// Declarations returns the group annotations collected by the most recent Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations
	Declarations() []Annotation
}

// PreProcessorOption configures a PreProcessor.
type PreProcessorOption func(*preProcessor)

// WithStruct registers a type key. source may be empty for builtin WGSL types.
//
// Parameters:
//   - key: the annotation type key, e.g. "cell_vertex"
//   - source: the WGSL struct definition injected by @oxy:include
//   - typeName: the WGSL type emitted by @oxy:group
//
// Returns:
//   - PreProcessorOption: the option
func WithStruct(key AnnotationArg, source, typeName string) PreProcessorOption {
	return func(p *preProcessor) {
		p.structRegistry[key] = registryEntry{Source: source, Type: typeName}
	}
}

// WithConstant registers a named value for @oxy:workgroup dimensions.
//
// Parameters:
//   - name: the constant name
//   - value: its value
//
// Returns:
//   - PreProcessorOption: the option
func WithConstant(name string, value uint32) PreProcessorOption {
	return func(p *preProcessor) {
		p.constants[name] = value
	}
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the address space mappings pre-populated
// and the given struct types and constants registered.
//
// Parameters:
//   - opts: registry options
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(opts ...PreProcessorOption) PreProcessor {
	p := &preProcessor{
		structRegistry: make(map[AnnotationArg]registryEntry),
		constants:      make(map[string]uint32),
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok || entry.Source == "" {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			key, isArray := a.ElementType()
			entry, ok := p.structRegistry[key]
			if !ok {
				return "", fmt.Errorf("line %d: unknown type %q in @oxy:group annotation", i+1, key)
			}
			wgslType := entry.Type
			if isArray {
				wgslType = fmt.Sprintf("array<%s>", entry.Type)
			}
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, a.Args[1], wgslType))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeWorkgroup:
			dims := make([]string, 0, len(a.Args))
			for _, d := range a.Args {
				v, err := p.resolveDimension(d)
				if err != nil {
					return "", fmt.Errorf("line %d: %w", i+1, err)
				}
				dims = append(dims, strconv.FormatUint(uint64(v), 10))
			}
			out = append(out, fmt.Sprintf("@workgroup_size(%s)", strings.Join(dims, ", ")))
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

// resolveDimension resolves a workgroup dimension given as a literal or a registered constant.
func (p *preProcessor) resolveDimension(arg AnnotationArg) (uint32, error) {
	if v, ok := p.constants[string(arg)]; ok {
		if v == 0 {
			return 0, fmt.Errorf("constant %q is zero", arg)
		}
		return v, nil
	}
	v, err := strconv.ParseUint(string(arg), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown workgroup dimension %q", arg)
	}
	if v == 0 {
		return 0, fmt.Errorf("workgroup dimension must be positive")
	}
	return uint32(v), nil
}
