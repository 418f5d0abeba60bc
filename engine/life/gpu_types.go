package life

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-life/common"
	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/shader"
)

// SimulationSource is the annotated WGSL of the compute kernel.
//
//go:embed shaders/simulation.wgsl
var SimulationSource string

// CellsSource is the annotated WGSL of the cell vertex and fragment programs.
//
//go:embed shaders/cells.wgsl
var CellsSource string

// GPUCellVertexSource is the WGSL VertexInput struct: one vec2f position at location 0.
//
//go:embed shaders/cell_vertex.wgsl
var GPUCellVertexSource string

// GPUCellVaryingsSource is the WGSL VertexOutput struct passed from the vertex to the fragment stage.
//
//go:embed shaders/cell_varyings.wgsl
var GPUCellVaryingsSource string

// QuadVertices is the cell geometry: two triangles of a square slightly smaller than the cell,
// as (x, y) pairs in cell-local units.
var QuadVertices = []float32{
	-0.8, -0.8,
	0.8, -0.8,
	0.8, 0.8,

	-0.8, -0.8,
	0.8, 0.8,
	-0.8, 0.8,
}

// QuadVertexCount is the number of vertices drawn per cell instance.
const QuadVertexCount = 6

// quadStride is the byte size of one vertex (vec2f).
const quadStride = 8

// GPUGridUniform is the grid-dimension uniform. Matches the WGSL vec2f bound at BindingGrid.
// Size: 8 bytes.
type GPUGridUniform struct {
	Width  float32 // offset 0
	Height float32 // offset 4
}

// NewGPUGridUniform returns the uniform for a grid.
func NewGPUGridUniform(g grid.Grid) GPUGridUniform {
	return GPUGridUniform{Width: float32(g.Width), Height: float32(g.Height)}
}

// Size returns the size of the GPUGridUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (8)
func (u *GPUGridUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the uniform for upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (u *GPUGridUniform) Marshal() []byte {
	return common.Float32sToBytes(u.Width, u.Height)
}

// Unmarshal reads the uniform back from buffer bytes. Short buffers leave the struct unchanged.
func (u *GPUGridUniform) Unmarshal(data []byte) {
	if len(data) < uniformSize {
		return
	}
	f := common.BytesToFloat32s(data[:uniformSize])
	u.Width, u.Height = f[0], f[1]
}

// shaderOptions registers the types and constants the embedded sources annotate with.
func shaderOptions(tileEdge uint32) []shader.PreProcessorOption {
	return []shader.PreProcessorOption{
		shader.WithStruct("grid", "", "vec2f"),
		shader.WithStruct("cell", "", "u32"),
		shader.WithStruct("cell_vertex", GPUCellVertexSource, "VertexInput"),
		shader.WithStruct("cell_varyings", GPUCellVaryingsSource, "VertexOutput"),
		shader.WithConstant("TILE", tileEdge),
	}
}
