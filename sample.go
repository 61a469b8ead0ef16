package resample

import (
	"math"

	"github.com/x448/float16"
)

// A codec loads samples into the float64 accumulator and narrows accumulated
// values back to T.
type codec[T Sample] struct {
	load  func(T) float64
	store func(float64) T
}

func newCodec[T Sample]() codec[T] {
	var zero T
	switch any(zero).(type) {
	case float16.Float16:
		return any(codec[float16.Float16]{
			load: func(v float16.Float16) float64 {
				return float64(v.Float32())
			},
			store: float16FromFloat64,
		}).(codec[T])
	case float32, float64:
		return codec[T]{
			load: func(v T) float64 {
				return float64(v)
			},
			store: func(x float64) T {
				return T(x)
			},
		}
	default:
		minValue, maxValue := intBounds[T]()
		lo, hi := float64(minValue), float64(maxValue)
		return codec[T]{
			load: func(v T) float64 {
				return float64(v)
			},
			// Integers round half away from zero and saturate. The float64
			// of the largest int64 or uint64 is one past it, so the bounds are
			// compared before converting. NaN narrows to zero.
			store: func(x float64) T {
				x = math.Round(x)
				switch {
				case math.IsNaN(x):
					return 0
				case x <= lo:
					return minValue
				case x >= hi:
					return maxValue
				default:
					return T(x)
				}
			},
		}
	}
}

// float16FromFloat64 returns the Float16 nearest to x. x is rounded to
// float32 with round-to-odd first, which float32's extra precision makes
// equivalent to a single rounding.
func float16FromFloat64(x float64) float16.Float16 {
	f := float32(x)
	if !math.IsNaN(x) && float64(f) != x {
		if math.Abs(float64(f)) > math.Abs(x) {
			f = math.Nextafter32(f, 0)
		}
		f = math.Float32frombits(math.Float32bits(f) | 1)
	}
	return float16.Fromfloat32(f)
}

// intBounds returns the smallest and largest values of the integer type T.
func intBounds[T Sample]() (T, T) {
	var minValue, maxValue any
	var zero T
	switch any(zero).(type) {
	case int8:
		minValue, maxValue = int8(math.MinInt8), int8(math.MaxInt8)
	case uint8:
		minValue, maxValue = uint8(0), uint8(math.MaxUint8)
	case int16:
		minValue, maxValue = int16(math.MinInt16), int16(math.MaxInt16)
	case uint16:
		minValue, maxValue = uint16(0), uint16(math.MaxUint16)
	case int32:
		minValue, maxValue = int32(math.MinInt32), int32(math.MaxInt32)
	case uint32:
		minValue, maxValue = uint32(0), uint32(math.MaxUint32)
	case int64:
		minValue, maxValue = int64(math.MinInt64), int64(math.MaxInt64)
	case uint64:
		minValue, maxValue = uint64(0), uint64(math.MaxUint64)
	default:
		return zero, zero
	}
	return minValue.(T), maxValue.(T)
}

// newIgnore narrows ignore to T like any other stored value and returns it
// together with a function that reports whether a sample is the ignore value.
// A NaN ignore value matches NaN samples of float kinds and no samples of
// integer kinds, in which case the returned function is nil.
func newIgnore[T Sample](c codec[T], ignore float64) (T, func(T) bool) {
	narrowed := c.store(ignore)
	if math.IsNaN(ignore) {
		if !kindOf[T]().IsFloat() {
			return narrowed, nil
		}
		return narrowed, func(v T) bool {
			return math.IsNaN(c.load(v))
		}
	}
	x := c.load(narrowed)
	return narrowed, func(v T) bool {
		return c.load(v) == x
	}
}

// toFloat64 converts a single sample to a float64.
func toFloat64[T Sample](v T) float64 {
	if h, ok := any(v).(float16.Float16); ok {
		return float64(h.Float32())
	}
	return float64(v)
}
