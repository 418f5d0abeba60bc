// annotations.go defines the annotation types and the line parser for the Oxy WGSL
// pre-processor. Annotations are single-line WGSL comments prefixed with @oxy: that
// inject registered struct sources, generate bind group declarations, and stamp
// host-configured workgroup sizes into compute entry points.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include cell_vertex
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding variable declaration and is
	// recorded in the pre-processor's declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 1 storage_read cellStateIn array<cell>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeWorkgroup emits a @workgroup_size attribute. Each dimension is either an
	// integer literal or the name of a constant registered on the pre-processor, so tile sizes
	// chosen at runtime end up as literals in the compiled shader.
	//
	// Syntax: //@oxy:workgroup <x> [<y> [<z>]]
	//
	// Example: //@oxy:workgroup TILE TILE
	AnnotationTypeWorkgroup AnnotationType = "workgroup"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:   [0] = struct type key
	//   - group:     [0] = address space, [1] = var name, [2] = type key, optionally array<key>
	//   - workgroup: one entry per dimension
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source.
	Line int

	// Group is the @group index for group annotations. Nil otherwise.
	Group *int

	// Binding is the @binding index for group annotations. Nil otherwise.
	Binding *int
}

// AnnotationArg is a typed string used as an annotation argument.
type AnnotationArg string

// Address space arguments accepted by @oxy:group.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

// ElementType returns the registry key of a group annotation's type, with any array<> wrapper removed.
//
// Returns:
//   - AnnotationArg: the type key
//   - bool: true if the type was wrapped in array<>
func (a Annotation) ElementType() (AnnotationArg, bool) {
	if len(a.Args) < 3 {
		return "", false
	}
	if inner, ok := strings.CutPrefix(string(a.Args[2]), "array<"); ok {
		return AnnotationArg(strings.TrimSuffix(inner, ">")), true
	}
	return a.Args[2], false
}

// parseAnnotation parses a single line. Lines without the @oxy: prefix return (nil, nil).
// Only syntax is checked here; registry lookups happen in the pre-processor.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires five arguments (group, binding, address space, var name, type)", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation: %w", lineNum, args[1], err)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation: %w", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	case AnnotationTypeWorkgroup:
		if len(args) < 2 || len(args) > 4 {
			return nil, fmt.Errorf("line %d: @oxy workgroup annotation requires one to three dimensions", lineNum)
		}
		dims := make([]AnnotationArg, 0, len(args)-1)
		for _, d := range args[1:] {
			dims = append(dims, AnnotationArg(d))
		}
		return &Annotation{
			Type: AnnotationTypeWorkgroup,
			Args: dims,
			Line: lineNum,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
