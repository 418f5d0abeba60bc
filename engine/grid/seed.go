package grid

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/Carmen-Shannon/oxy-life/common"
)

// DefaultDensity is the reference fraction of cells alive after random seeding.
const DefaultDensity = 0.4

// ErrSeedSizeMismatch is returned when a seed does not produce exactly one word per cell.
var ErrSeedSizeMismatch = errors.New("grid: seed size does not match cell count")

// SeedFunc produces the initial activity of every cell in row-major order.
// Any non-zero word is treated as alive by Encode.
type SeedFunc func(g Grid) []uint32

// RandomSeed returns a SeedFunc marking each cell alive independently when
// rng.Float64() < density. The same rng seed always yields the same state.
// Cells are drawn in index order, so the rng is consumed exactly CellCount times.
//
// Parameters:
//   - rng: the pseudo-random source; not safe for concurrent seeding
//   - density: probability in [0, 1] that a cell starts alive
//
// Returns:
//   - SeedFunc: the seeding function
func RandomSeed(rng *rand.Rand, density float64) SeedFunc {
	return func(g Grid) []uint32 {
		cells := make([]uint32, g.CellCount())
		for i := range cells {
			if rng.Float64() < density {
				cells[i] = Alive
			}
		}
		return cells
	}
}

// AllDead seeds an empty grid.
func AllDead(g Grid) []uint32 {
	return make([]uint32, g.CellCount())
}

// AllAlive seeds every cell alive.
func AllAlive(g Grid) []uint32 {
	cells := make([]uint32, g.CellCount())
	for i := range cells {
		cells[i] = Alive
	}
	return cells
}

// Pattern seeds the listed (x, y) cells alive and everything else dead.
// Coordinates are wrapped onto the torus, so negative offsets are allowed.
func Pattern(cells ...[2]int) SeedFunc {
	return func(g Grid) []uint32 {
		out := make([]uint32, g.CellCount())
		w, h := int(g.Width), int(g.Height)
		for _, c := range cells {
			x := ((c[0] % w) + w) % w
			y := ((c[1] % h) + h) % h
			out[g.Index(uint32(x), uint32(y))] = Alive
		}
		return out
	}
}

// Glider returns a glider whose bounding box has its top-left corner at (x, y).
func Glider(x, y int) SeedFunc {
	return Pattern([2]int{x + 1, y}, [2]int{x + 2, y + 1}, [2]int{x, y + 2}, [2]int{x + 1, y + 2}, [2]int{x + 2, y + 2})
}

// Encode runs seed against g and returns the state buffer bytes.
//
// Parameters:
//   - g: the grid being seeded
//   - seed: the seed function
//
// Returns:
//   - []byte: CellCount*CellSize bytes of little-endian u32 cells, each 0 or 1
//   - error: ErrSeedSizeMismatch if the seed returned the wrong number of cells
func Encode(g Grid, seed SeedFunc) ([]byte, error) {
	cells := seed(g)
	if len(cells) != g.CellCount() {
		return nil, fmt.Errorf("%w: want %d cells (%d bytes), got %d", ErrSeedSizeMismatch, g.CellCount(), g.ByteSize(), len(cells))
	}
	for i, c := range cells {
		if c != Dead {
			cells[i] = Alive
		}
	}
	return common.Uint32sToBytes(cells), nil
}

// Decode converts a raw state buffer back into cells.
//
// Returns:
//   - []uint32: the cells in row-major order
//   - error: ErrSeedSizeMismatch if data is not exactly one buffer for g
func Decode(g Grid, data []byte) ([]uint32, error) {
	if uint64(len(data)) != g.ByteSize() {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrSeedSizeMismatch, g.ByteSize(), len(data))
	}
	return common.BytesToUint32s(data), nil
}

// Population counts the alive cells in a decoded state.
func Population(cells []uint32) int {
	n := 0
	for _, c := range cells {
		if c != Dead {
			n++
		}
	}
	return n
}

// Format draws a decoded state as text, one line per row: '#' for alive and '.' for dead.
// A state that does not cover g is drawn as far as it goes.
func Format(g Grid, cells []uint32) string {
	var sb strings.Builder
	sb.Grow(int(g.Width+1) * int(g.Height))
	for y := range g.Height {
		for x := range g.Width {
			i := g.Index(x, y)
			if i < len(cells) && cells[i] != Dead {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
