package resample

import (
	"fmt"
	"math"
)

// A Mapping maps output sample indexes to fractional input coordinates.
type Mapping int

const (
	// PixelCenter aligns the centers of input and output pixels, so
	// x = (o + 0.5) * in / out - 0.5.
	PixelCenter Mapping = iota
	// EdgeAligned aligns the first and last samples of input and output, so
	// x = o * (in - 1) / (out - 1).
	EdgeAligned
)

var mappingNames = map[Mapping]string{
	PixelCenter: "pixel-center",
	EdgeAligned: "edge-aligned",
}

// ParseMapping parses a Mapping name.
func ParseMapping(s string) (Mapping, error) {
	for m, name := range mappingNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mapping %q", ErrInvalidArgument, s)
}

func (m Mapping) String() string {
	if name, ok := mappingNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mapping(%d)", int(m))
}

func (m Mapping) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mapping) UnmarshalText(text []byte) error {
	mapping, err := ParseMapping(string(text))
	if err != nil {
		return err
	}
	*m = mapping
	return nil
}

// An axisSample is the pair of input indexes and the weight of the upper index
// for one output index along one axis.
type axisSample struct {
	lo int
	hi int
	w  float64
}

// axis returns the axisSamples for each of the out output indexes along an
// axis with in input samples. The fractional coordinate is clamped to
// [0, in-1] so lo and hi are always valid indexes and w is in [0, 1).
func (m Mapping) axis(in, out int) []axisSample {
	axisSamples := make([]axisSample, out)
	maxX := float64(in - 1)
	for o := range out {
		var x float64
		switch m {
		case EdgeAligned:
			if out > 1 {
				x = float64(o) * maxX / float64(out-1)
			}
		default:
			x = (float64(o)+0.5)*float64(in)/float64(out) - 0.5
		}
		x = min(max(x, 0), maxX)
		lo := math.Floor(x)
		axisSamples[o] = axisSample{
			lo: int(lo),
			hi: int(math.Ceil(x)),
			w:  x - lo,
		}
	}
	return axisSamples
}
