package resample

import (
	"fmt"
	"slices"
)

// A Grid is a row-major two-dimensional array of samples.
type Grid[T Sample] struct {
	width   int
	height  int
	samples []T
}

// NewGrid returns a new zero-filled Grid. It panics if width or height is
// negative.
func NewGrid[T Sample](width, height int) *Grid[T] {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("resample: negative grid size %dx%d", width, height))
	}
	return &Grid[T]{
		width:   width,
		height:  height,
		samples: make([]T, width*height),
	}
}

// NewGridFromSamples returns a new Grid that uses samples, which must be in
// row-major order, as its backing store.
func NewGridFromSamples[T Sample](width, height int, samples []T) (*Grid[T], error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative grid size %dx%d", ErrInvalidArgument, width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("%w: got %d samples, expected %d", ErrInvalidArgument, len(samples), width*height)
	}
	return &Grid[T]{
		width:   width,
		height:  height,
		samples: samples,
	}, nil
}

// NewGridFromRows returns a new Grid with a copy of rows. All rows must have
// the same length.
func NewGridFromRows[T Sample](rows [][]T) (*Grid[T], error) {
	if len(rows) == 0 {
		return NewGrid[T](0, 0), nil
	}
	width := len(rows[0])
	samples := make([]T, 0, width*len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d samples, expected %d", ErrInvalidArgument, i, len(row), width)
		}
		samples = append(samples, row...)
	}
	return &Grid[T]{
		width:   width,
		height:  len(rows),
		samples: samples,
	}, nil
}

// Kind returns g's element kind.
func (g *Grid[T]) Kind() Kind {
	return kindOf[T]()
}

// Width returns the number of columns in g.
func (g *Grid[T]) Width() int {
	return g.width
}

// Height returns the number of rows in g.
func (g *Grid[T]) Height() int {
	return g.height
}

// At returns the sample at row, col.
func (g *Grid[T]) At(row, col int) T {
	return g.samples[row*g.width+col]
}

// Set sets the sample at row, col.
func (g *Grid[T]) Set(row, col int, value T) {
	g.samples[row*g.width+col] = value
}

// Float64At returns the sample at row, col as a float64.
func (g *Grid[T]) Float64At(row, col int) float64 {
	return toFloat64(g.At(row, col))
}

// Samples returns g's samples in row-major order. The returned slice aliases g.
func (g *Grid[T]) Samples() []T {
	return g.samples
}

// Row returns row as a slice aliasing g.
func (g *Grid[T]) Row(row int) []T {
	return g.samples[row*g.width : (row+1)*g.width]
}

// Rows returns a copy of g's samples, one slice per row.
func (g *Grid[T]) Rows() [][]T {
	rows := make([][]T, g.height)
	for i := range rows {
		rows[i] = slices.Clone(g.Row(i))
	}
	return rows
}

// Crop returns a new Grid containing the samples of g within window.
func (g *Grid[T]) Crop(window Window) (*Grid[T], error) {
	if !window.Within(g.width, g.height) {
		return nil, fmt.Errorf("%w: window %v outside %dx%d grid", ErrInvalidArgument, window, g.width, g.height)
	}
	cropped := NewGrid[T](window.Width, window.Height)
	for row := range window.Height {
		srcRow := g.Row(window.Y + row)
		copy(cropped.Row(row), srcRow[window.X:window.X+window.Width])
	}
	return cropped, nil
}
