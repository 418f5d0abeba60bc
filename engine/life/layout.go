package life

import (
	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
	"github.com/cogentcore/webgpu/wgpu"
)

// Slots of the shared cell layout.
const (
	BindingGrid     uint32 = 0
	BindingStateIn  uint32 = 1
	BindingStateOut uint32 = 2
)

// uniformSize is the byte size of the grid uniform (vec2f).
const uniformSize = 8

// LayoutLabel names the shared layout. Backends key their bind group layout cache on it.
const LayoutLabel = "Cell Bind Group Layout"

// NewBindingLayout returns the three-slot layout shared by the simulation and render pipelines:
// the grid uniform and the input state are visible to every stage, the output state only to compute.
//
// Parameters:
//   - g: the grid, used for the state buffers' minimum binding size
//
// Returns:
//   - binding.Layout: the layout
func NewBindingLayout(g grid.Grid) binding.Layout {
	all := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute
	return binding.NewLayout(LayoutLabel,
		binding.Slot{
			Binding:        BindingGrid,
			Name:           "grid",
			Kind:           wgpu.BufferBindingTypeUniform,
			Visibility:     all,
			MinBindingSize: uniformSize,
		},
		binding.Slot{
			Binding:        BindingStateIn,
			Name:           "cellStateIn",
			Kind:           wgpu.BufferBindingTypeReadOnlyStorage,
			Visibility:     all,
			MinBindingSize: g.ByteSize(),
		},
		binding.Slot{
			Binding:        BindingStateOut,
			Name:           "cellStateOut",
			Kind:           wgpu.BufferBindingTypeStorage,
			Visibility:     wgpu.ShaderStageCompute,
			MinBindingSize: g.ByteSize(),
		},
	)
}
