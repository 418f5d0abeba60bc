package life

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/pipeline"
)

// neighbourOffsets lists the eight (dx, dy) offsets of the Moore neighbourhood.
var neighbourOffsets = [8][2]int{
	{1, 1}, {1, 0}, {1, -1},
	{0, -1}, {-1, -1}, {-1, 0},
	{-1, 1}, {0, 1},
}

func cellAt(buf []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(buf[i*grid.CellSize:])
}

// gridOf decodes the grid uniform. ok is false when the uniform is missing, short or names an
// empty grid, in which case no cell can be addressed.
func gridOf(b pipeline.Bindings) (u GPUGridUniform, g grid.Grid, ok bool) {
	u.Unmarshal(b[BindingGrid])
	g = grid.Grid{Width: uint32(u.Width), Height: uint32(u.Height)}
	return u, g, g.Width > 0 && g.Height > 0
}

// StepCell is the host form of computeMain. It reads the input state at BindingStateIn and
// writes the next state of the one cell addressed by id to BindingStateOut.
//
// Parameters:
//   - id: the global invocation id
//   - b: the compute-visible bindings of the active binding set
func StepCell(id [3]uint32, b pipeline.Bindings) {
	_, g, ok := gridOf(b)
	x, y := id[0], id[1]
	if !ok || !g.Contains(x, y) {
		return
	}
	in, out := b[BindingStateIn], b[BindingStateOut]
	if len(in) < g.CellCount()*grid.CellSize || len(out) < g.CellCount()*grid.CellSize {
		return
	}

	var neighbours uint32
	for _, d := range neighbourOffsets {
		nx, ny := g.Wrap(x, y, d[0], d[1])
		neighbours += cellAt(in, g.Index(nx, ny))
	}

	i := g.Index(x, y)
	next := grid.Dead
	if neighbours == 3 || (neighbours == 2 && cellAt(in, i) == grid.Alive) {
		next = grid.Alive
	}
	binary.LittleEndian.PutUint32(out[i*grid.CellSize:], next)
}

// CellVertex is the host form of vertexMain: the quad vertex is scaled by the cell state and
// moved into the cell's slot in clip space. The cell coordinate is passed on in Varying.
// Without a usable grid uniform, or for an instance past the state buffer, every vertex lands on
// the origin and the quad produces no fragments.
func CellVertex(in pipeline.VertexInput, b pipeline.Bindings) pipeline.VertexOutput {
	u, g, ok := gridOf(b)
	if !ok || len(in.Attributes) < quadStride || int(in.InstanceIndex) >= g.CellCount() ||
		len(b[BindingStateIn]) < g.CellCount()*grid.CellSize {
		return pipeline.VertexOutput{Position: [4]float32{0, 0, 0, 1}}
	}
	px := math.Float32frombits(binary.LittleEndian.Uint32(in.Attributes[0:]))
	py := math.Float32frombits(binary.LittleEndian.Uint32(in.Attributes[4:]))

	cx := float32(in.InstanceIndex % g.Width)
	cy := float32(in.InstanceIndex / g.Width)
	state := float32(cellAt(b[BindingStateIn], int(in.InstanceIndex)))

	return pipeline.VertexOutput{
		Position: [4]float32{
			(px*state+1)/u.Width - 1 + cx/u.Width*2,
			(py*state+1)/u.Height - 1 + cy/u.Height*2,
			0,
			1,
		},
		Varying: [4]float32{cx, cy, 0, 0},
	}
}

// CellFragment is the host form of fragmentMain: the color depends only on the cell coordinate.
func CellFragment(in pipeline.VertexOutput, b pipeline.Bindings) [4]float32 {
	u, _, ok := gridOf(b)
	if !ok {
		return [4]float32{0, 0, 0, 1}
	}
	cx, cy := in.Varying[0]/u.Width, in.Varying[1]/u.Height
	return [4]float32{cx, cy, 1 - cx, 1}
}

// CellColor returns the color the render pipeline gives the cell at (x, y).
func CellColor(g grid.Grid, x, y uint32) [4]float32 {
	cx, cy := float32(x)/float32(g.Width), float32(y)/float32(g.Height)
	return [4]float32{cx, cy, 1 - cx, 1}
}
