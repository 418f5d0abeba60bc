// Package binding declares bind group layouts as plain values so that several
// pipelines can be built against one contract and checked against the bindings
// their shaders actually declare.
package binding

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrLayoutMismatch is returned when a shader declares a binding that the layout does not allow.
var ErrLayoutMismatch = errors.New("binding: shader declaration does not match layout")

// Slot describes a single buffer binding in a Layout.
type Slot struct {
	// Binding is the @binding index within the group.
	Binding uint32
	// Name is a debug name, also used in labels.
	Name string
	// Kind is the buffer binding type (uniform, read-only storage or storage).
	Kind wgpu.BufferBindingType
	// Visibility is the set of shader stages allowed to access the slot.
	Visibility wgpu.ShaderStage
	// MinBindingSize is the minimum buffer size, 0 for no minimum.
	MinBindingSize uint64
}

// Layout is an ordered set of slots forming one bind group.
type Layout struct {
	Label string
	Group uint32
	Slots []Slot
}

// NewLayout creates a Layout for group 0 with the slots sorted by binding index.
//
// Parameters:
//   - label: a debug label used for the GPU bind group layout
//   - slots: the slots in any order
//
// Returns:
//   - Layout: the layout
func NewLayout(label string, slots ...Slot) Layout {
	s := make([]Slot, len(slots))
	copy(s, slots)
	sort.Slice(s, func(i, j int) bool { return s[i].Binding < s[j].Binding })
	return Layout{Label: label, Slots: s}
}

// Slot returns the slot declared at the given binding index.
func (l Layout) Slot(binding uint32) (Slot, bool) {
	for _, s := range l.Slots {
		if s.Binding == binding {
			return s, true
		}
	}
	return Slot{}, false
}

// Visible returns the slots a shader stage may access.
func (l Layout) Visible(stage wgpu.ShaderStage) []Slot {
	out := make([]Slot, 0, len(l.Slots))
	for _, s := range l.Slots {
		if s.Visibility&stage != 0 {
			out = append(out, s)
		}
	}
	return out
}

// Descriptor converts the layout to the descriptor used to create a GPU bind group layout.
func (l Layout) Descriptor() wgpu.BindGroupLayoutDescriptor {
	entries := make([]wgpu.BindGroupLayoutEntry, len(l.Slots))
	for i, s := range l.Slots {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    s.Binding,
			Visibility: s.Visibility,
			Buffer: wgpu.BufferBindingLayout{
				Type:           s.Kind,
				MinBindingSize: s.MinBindingSize,
			},
		}
	}
	return wgpu.BindGroupLayoutDescriptor{
		Label:   l.Label,
		Entries: entries,
	}
}

// Check verifies that every buffer binding a shader stage declares for this group
// exists in the layout with the same binding type and is visible to that stage.
// Bindings the layout has but the shader does not use are allowed.
//
// Parameters:
//   - stage: the stage the declaring shader runs in
//   - declared: the descriptor reflected from the shader source
//
// Returns:
//   - error: an ErrLayoutMismatch describing the first incompatible binding, or nil
func (l Layout) Check(stage wgpu.ShaderStage, declared wgpu.BindGroupLayoutDescriptor) error {
	for _, e := range declared.Entries {
		s, ok := l.Slot(e.Binding)
		if !ok {
			return fmt.Errorf("%w: %s declares binding %d which %q does not have", ErrLayoutMismatch, StageName(stage), e.Binding, l.Label)
		}
		if e.Buffer.Type != s.Kind {
			return fmt.Errorf("%w: %s binding %d (%s) is %s, layout %q says %s", ErrLayoutMismatch, StageName(stage), e.Binding, s.Name, KindName(e.Buffer.Type), l.Label, KindName(s.Kind))
		}
		if s.Visibility&stage == 0 {
			return fmt.Errorf("%w: binding %d (%s) is not visible to the %s stage", ErrLayoutMismatch, e.Binding, s.Name, StageName(stage))
		}
	}
	return nil
}

// StageName returns a readable name for a single shader stage flag.
func StageName(stage wgpu.ShaderStage) string {
	switch stage {
	case wgpu.ShaderStageVertex:
		return "vertex"
	case wgpu.ShaderStageFragment:
		return "fragment"
	case wgpu.ShaderStageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", stage)
	}
}

// KindName returns a readable name for a buffer binding type.
func KindName(kind wgpu.BufferBindingType) string {
	switch kind {
	case wgpu.BufferBindingTypeUniform:
		return "uniform"
	case wgpu.BufferBindingTypeStorage:
		return "storage"
	case wgpu.BufferBindingTypeReadOnlyStorage:
		return "read-only storage"
	default:
		return "undefined"
	}
}
