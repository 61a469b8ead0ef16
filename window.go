package resample

import (
	"fmt"
	"math"
)

// bilinearMargin is the number of extra samples needed on each side of a
// window so that bilinear interpolation at the window's edges uses real
// neighbors instead of clamped ones.
const bilinearMargin = 1

// A Window is a rectangle of samples.
type Window struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Margins are the number of extra samples on each side of a Window.
type Margins struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", w.Width, w.Height, w.X, w.Y)
}

// Within returns whether w lies completely within a width x height band.
func (w Window) Within(width, height int) bool {
	return 0 <= w.X && 0 <= w.Y && 0 <= w.Width && 0 <= w.Height &&
		w.X+w.Width <= width && w.Y+w.Height <= height
}

// Expand returns w expanded by m.
func (w Window) Expand(m Margins) Window {
	return Window{
		X:      w.X - m.Left,
		Y:      w.Y - m.Top,
		Width:  w.Width + m.Left + m.Right,
		Height: w.Height + m.Top + m.Bottom,
	}
}

// BilinearMargins returns the margins that should be read around window in a
// bandWidth x bandHeight band for BilinearWindow. Margins are limited by the
// band's edges.
func BilinearMargins(window Window, bandWidth, bandHeight int) Margins {
	return Margins{
		Left:   clampMargin(window.X),
		Top:    clampMargin(window.Y),
		Right:  clampMargin(bandWidth - (window.X + window.Width)),
		Bottom: clampMargin(bandHeight - (window.Y + window.Height)),
	}
}

func clampMargin(available int) int {
	return min(max(available, 0), bilinearMargin)
}

// BilinearWindow resamples the window of src within margins to width x
// height. src must include margins, typically those returned by
// BilinearMargins. The margins are resampled at the same scale as the window
// and then cropped from the result.
func BilinearWindow[T Sample](src *Grid[T], margins Margins, width, height int, options ...Option) (*Grid[T], error) {
	o, err := newOptions(options)
	if err != nil {
		return nil, err
	}
	return bilinearWindow(src, margins, width, height, o)
}

func bilinearWindow[T Sample](src *Grid[T], margins Margins, width, height int, o *options) (*Grid[T], error) {
	if src == nil {
		return nil, fmt.Errorf("%w: empty input grid", ErrInvalidArgument)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative output size %dx%d", ErrInvalidArgument, width, height)
	}
	if margins.Left < 0 || margins.Top < 0 || margins.Right < 0 || margins.Bottom < 0 {
		return nil, fmt.Errorf("%w: negative margins %+v", ErrInvalidArgument, margins)
	}
	coreWidth := src.width - margins.Left - margins.Right
	coreHeight := src.height - margins.Top - margins.Bottom
	if coreWidth < 1 || coreHeight < 1 {
		return nil, fmt.Errorf("%w: margins %+v leave no samples in %dx%d grid", ErrInvalidArgument, margins, src.width, src.height)
	}

	left := scaleMargin(margins.Left, width, coreWidth)
	top := scaleMargin(margins.Top, height, coreHeight)
	right := scaleMargin(margins.Right, width, coreWidth)
	bottom := scaleMargin(margins.Bottom, height, coreHeight)

	dst, err := bilinear(src, left+width+right, top+height+bottom, o)
	if err != nil {
		return nil, err
	}
	return dst.Crop(Window{
		X:      left,
		Y:      top,
		Width:  width,
		Height: height,
	})
}

// scaleMargin returns margin scaled from an axis of in samples to an axis of
// out samples.
func scaleMargin(margin, out, in int) int {
	return int(math.Round(float64(margin) * float64(out) / float64(in)))
}
