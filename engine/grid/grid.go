package grid

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-life/common"
)

// CellSize is the byte size of one cell in a state buffer (a WGSL u32).
const CellSize = 4

// Cell states as stored in a state buffer.
const (
	Dead  uint32 = 0
	Alive uint32 = 1
)

// ErrInvalidGrid is returned when a grid has a non-positive dimension.
var ErrInvalidGrid = errors.New("grid: width and height must be positive")

// Grid holds the immutable dimensions of the simulated torus.
type Grid struct {
	Width  uint32
	Height uint32
}

// New validates and returns a Grid of the given dimensions.
//
// Parameters:
//   - width: number of columns, must be positive
//   - height: number of rows, must be positive
//
// Returns:
//   - Grid: the grid
//   - error: ErrInvalidGrid if either dimension is zero or negative
func New(width, height int) (Grid, error) {
	if width <= 0 || height <= 0 {
		return Grid{}, fmt.Errorf("%w: got %dx%d", ErrInvalidGrid, width, height)
	}
	return Grid{Width: uint32(width), Height: uint32(height)}, nil
}

// CellCount returns N = width*height.
func (g Grid) CellCount() int {
	return int(g.Width) * int(g.Height)
}

// ByteSize returns the size in bytes of one state buffer for this grid.
func (g Grid) ByteSize() uint64 {
	return uint64(g.CellCount()) * CellSize
}

// Index maps a cell coordinate to its position in a state buffer (row-major).
func (g Grid) Index(x, y uint32) int {
	return int(y)*int(g.Width) + int(x)
}

// Coord maps a state buffer index back to its (x, y) cell coordinate.
func (g Grid) Coord(i int) (x, y uint32) {
	return uint32(i % int(g.Width)), uint32(i / int(g.Width))
}

// Wrap returns the neighbour coordinate of (x, y) offset by (dx, dy) on the torus.
// dx and dy must lie in [-1, 1]; the offset is folded into the modulus so no
// intermediate value underflows.
func (g Grid) Wrap(x, y uint32, dx, dy int) (uint32, uint32) {
	nx := (x + g.Width - 1 + uint32(dx+1)) % g.Width
	ny := (y + g.Height - 1 + uint32(dy+1)) % g.Height
	return nx, ny
}

// Uniform returns the grid-dimension uniform contents: width and height as two f32.
func (g Grid) Uniform() []byte {
	return common.Float32sToBytes(float32(g.Width), float32(g.Height))
}

// WorkgroupCount returns the compute dispatch size for a square tile edge:
// ceil(width/tile) x ceil(height/tile) x 1.
func (g Grid) WorkgroupCount(tileEdge uint32) [3]uint32 {
	return [3]uint32{common.CeilDiv(g.Width, tileEdge), common.CeilDiv(g.Height, tileEdge), 1}
}

// Contains reports whether a global invocation coordinate addresses a real cell.
func (g Grid) Contains(x, y uint32) bool {
	return x < g.Width && y < g.Height
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}
