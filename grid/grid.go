// Package grid provides the caller-owned 3-D float32 array type consumed and
// produced by the codec. Storage is a flat row-major slice with dimensions
// (frames, height, width), matching the layout the EBCC engine expects.
//
// Construction is deliberately permissive about dimension values: a grid with
// a zero dimension can be built (it simply holds no data), and it is the
// codec's validator, not this package, that rejects shapes the engine cannot
// handle. Negative dimensions, products that overflow addressable memory,
// and mismatched backing slices are construction errors.
package grid

import (
	"fmt"
	"math"
)

// Grid is a 3-D float32 array with flat row-major storage.
// The zero value is an empty grid; use New or FromSlice to build one.
type Grid struct {
	frames int
	height int
	width  int
	data   []float32
}

// elemCount multiplies the dimensions, rejecting negative values, products
// that overflow int, and products whose byte size exceeds addressable memory.
// Without the check an overflowing product either panics in make or wraps to
// a small value, building a grid whose Dims and Len disagree.
func elemCount(frames, height, width int) (int, error) {
	if frames < 0 || height < 0 || width < 0 {
		return 0, fmt.Errorf("grid dimensions must be non-negative, got (%d, %d, %d)", frames, height, width)
	}
	total := frames
	for _, d := range [2]int{height, width} {
		if d != 0 && total > math.MaxInt/d {
			return 0, fmt.Errorf("grid dimensions (%d, %d, %d) overflow", frames, height, width)
		}
		total *= d
	}
	if total > math.MaxInt/4 {
		return 0, fmt.Errorf("grid dimensions (%d, %d, %d) exceed addressable memory", frames, height, width)
	}
	return total, nil
}

// New returns a zero-filled grid with the given dimensions.
func New(frames, height, width int) (*Grid, error) {
	n, err := elemCount(frames, height, width)
	if err != nil {
		return nil, err
	}
	return &Grid{
		frames: frames,
		height: height,
		width:  width,
		data:   make([]float32, n),
	}, nil
}

// FromSlice wraps data as a grid with the given dimensions. The slice is NOT
// copied; the grid aliases it. len(data) must equal frames*height*width.
func FromSlice(frames, height, width int, data []float32) (*Grid, error) {
	want, err := elemCount(frames, height, width)
	if err != nil {
		return nil, err
	}
	if len(data) != want {
		return nil, fmt.Errorf("data length %d does not match dimensions (%d, %d, %d) = %d elements",
			len(data), frames, height, width, want)
	}
	return &Grid{
		frames: frames,
		height: height,
		width:  width,
		data:   data,
	}, nil
}

// Fill returns a grid with every element set to v.
func Fill(frames, height, width int, v float32) (*Grid, error) {
	g, err := New(frames, height, width)
	if err != nil {
		return nil, err
	}
	for i := range g.data {
		g.data[i] = v
	}
	return g, nil
}

// Dims returns the grid dimensions (frames, height, width).
func (g *Grid) Dims() (frames, height, width int) {
	return g.frames, g.height, g.width
}

// Len returns the total element count.
func (g *Grid) Len() int {
	return len(g.data)
}

// Data returns the flat row-major backing slice. Mutating it mutates the grid.
func (g *Grid) Data() []float32 {
	return g.data
}

// At returns the element at (frame, row, col). Indices are not bounds-checked
// beyond what the backing slice enforces.
func (g *Grid) At(frame, row, col int) float32 {
	return g.data[(frame*g.height+row)*g.width+col]
}

// Set assigns the element at (frame, row, col).
func (g *Grid) Set(frame, row, col int, v float32) {
	g.data[(frame*g.height+row)*g.width+col] = v
}

// String describes the grid shape, for error messages and logging.
func (g *Grid) String() string {
	return fmt.Sprintf("grid(%d, %d, %d)", g.frames, g.height, g.width)
}
