package resample

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// A Band is a Grid whose element kind is only known at run time. Every *Grid[T]
// is a Band.
type Band interface {
	Kind() Kind
	Width() int
	Height() int
	Float64At(row, col int) float64
}

// kindFuncs are the instantiations of the generic operations for one Kind.
type kindFuncs struct {
	newBand        func(width, height int) Band
	fullBand       func(width, height int, value float64) Band
	bilinear       func(src Band, width, height int, o *options) (Band, error)
	bilinearWindow func(src Band, margins Margins, width, height int, o *options) (Band, error)
	crop           func(src Band, window Window) (Band, error)
	decode         func(width, height int, order binary.ByteOrder, data []byte) (Band, error)
	encode         func(src Band, order binary.ByteOrder) ([]byte, error)
}

var kindFuncsByKind = map[Kind]*kindFuncs{
	Int8: newKindFuncs(
		func(_ binary.ByteOrder, b []byte) int8 { return int8(b[0]) },
		func(_ binary.ByteOrder, b []byte, v int8) { b[0] = byte(v) },
	),
	Uint8: newKindFuncs(
		func(_ binary.ByteOrder, b []byte) uint8 { return b[0] },
		func(_ binary.ByteOrder, b []byte, v uint8) { b[0] = v },
	),
	Int16: newKindFuncs(
		func(order binary.ByteOrder, b []byte) int16 { return int16(order.Uint16(b)) },
		func(order binary.ByteOrder, b []byte, v int16) { order.PutUint16(b, uint16(v)) },
	),
	Uint16: newKindFuncs(
		binary.ByteOrder.Uint16,
		binary.ByteOrder.PutUint16,
	),
	Int32: newKindFuncs(
		func(order binary.ByteOrder, b []byte) int32 { return int32(order.Uint32(b)) },
		func(order binary.ByteOrder, b []byte, v int32) { order.PutUint32(b, uint32(v)) },
	),
	Uint32: newKindFuncs(
		binary.ByteOrder.Uint32,
		binary.ByteOrder.PutUint32,
	),
	Int64: newKindFuncs(
		func(order binary.ByteOrder, b []byte) int64 { return int64(order.Uint64(b)) },
		func(order binary.ByteOrder, b []byte, v int64) { order.PutUint64(b, uint64(v)) },
	),
	Uint64: newKindFuncs(
		binary.ByteOrder.Uint64,
		binary.ByteOrder.PutUint64,
	),
	Float16: newKindFuncs(
		func(order binary.ByteOrder, b []byte) float16.Float16 { return float16.Frombits(order.Uint16(b)) },
		func(order binary.ByteOrder, b []byte, v float16.Float16) { order.PutUint16(b, v.Bits()) },
	),
	Float32: newKindFuncs(
		func(order binary.ByteOrder, b []byte) float32 { return math.Float32frombits(order.Uint32(b)) },
		func(order binary.ByteOrder, b []byte, v float32) { order.PutUint32(b, math.Float32bits(v)) },
	),
	Float64: newKindFuncs(
		func(order binary.ByteOrder, b []byte) float64 { return math.Float64frombits(order.Uint64(b)) },
		func(order binary.ByteOrder, b []byte, v float64) { order.PutUint64(b, math.Float64bits(v)) },
	),
}

func newKindFuncs[T Sample](get func(binary.ByteOrder, []byte) T, put func(binary.ByteOrder, []byte, T)) *kindFuncs {
	kind := kindOf[T]()
	size := kind.Size()
	grid := func(band Band) (*Grid[T], error) {
		g, ok := band.(*Grid[T])
		if !ok || g == nil {
			return nil, fmt.Errorf("%T: %w", band, ErrUnsupportedKind)
		}
		return g, nil
	}
	return &kindFuncs{
		newBand: func(width, height int) Band {
			return NewGrid[T](width, height)
		},
		fullBand: func(width, height int, value float64) Band {
			g := NewGrid[T](width, height)
			v := newCodec[T]().store(value)
			for i := range g.samples {
				g.samples[i] = v
			}
			return g
		},
		bilinear: func(src Band, width, height int, o *options) (Band, error) {
			g, err := grid(src)
			if err != nil {
				return nil, err
			}
			dst, err := bilinear(g, width, height, o)
			if err != nil {
				return nil, err
			}
			return dst, nil
		},
		bilinearWindow: func(src Band, margins Margins, width, height int, o *options) (Band, error) {
			g, err := grid(src)
			if err != nil {
				return nil, err
			}
			dst, err := bilinearWindow(g, margins, width, height, o)
			if err != nil {
				return nil, err
			}
			return dst, nil
		},
		crop: func(src Band, window Window) (Band, error) {
			g, err := grid(src)
			if err != nil {
				return nil, err
			}
			cropped, err := g.Crop(window)
			if err != nil {
				return nil, err
			}
			return cropped, nil
		},
		decode: func(width, height int, order binary.ByteOrder, data []byte) (Band, error) {
			if width < 0 || height < 0 {
				return nil, fmt.Errorf("%w: negative band size %dx%d", ErrInvalidArgument, width, height)
			}
			if len(data) != size*width*height {
				return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidArgument, len(data), size*width*height)
			}
			g := NewGrid[T](width, height)
			for i := range g.samples {
				g.samples[i] = get(order, data[i*size:(i+1)*size])
			}
			return g, nil
		},
		encode: func(src Band, order binary.ByteOrder) ([]byte, error) {
			g, err := grid(src)
			if err != nil {
				return nil, err
			}
			data := make([]byte, size*len(g.samples))
			for i, v := range g.samples {
				put(order, data[i*size:(i+1)*size], v)
			}
			return data, nil
		},
	}
}

func kindFuncsFor(kind Kind) (*kindFuncs, error) {
	kf, ok := kindFuncsByKind[kind]
	if !ok {
		return nil, fmt.Errorf("%v: %w", kind, ErrUnsupportedKind)
	}
	return kf, nil
}

// NewBand returns a new zero-filled Band of kind.
func NewBand(kind Kind, width, height int) (Band, error) {
	kf, err := kindFuncsFor(kind)
	if err != nil {
		return nil, err
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative band size %dx%d", ErrInvalidArgument, width, height)
	}
	return kf.newBand(width, height), nil
}

// FullBand returns a new Band of kind with every sample set to value narrowed
// to kind.
func FullBand(kind Kind, width, height int, value float64) (Band, error) {
	kf, err := kindFuncsFor(kind)
	if err != nil {
		return nil, err
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative band size %dx%d", ErrInvalidArgument, width, height)
	}
	return kf.fullBand(width, height, value), nil
}

// BilinearBand is Bilinear for a Band. It returns a Band of the same kind as
// src.
func BilinearBand(src Band, width, height int, options ...Option) (Band, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil band", ErrInvalidArgument)
	}
	kf, err := kindFuncsFor(src.Kind())
	if err != nil {
		return nil, err
	}
	o, err := newOptions(options)
	if err != nil {
		return nil, err
	}
	return kf.bilinear(src, width, height, o)
}

// BilinearWindowBand is BilinearWindow for a Band.
func BilinearWindowBand(src Band, margins Margins, width, height int, options ...Option) (Band, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil band", ErrInvalidArgument)
	}
	kf, err := kindFuncsFor(src.Kind())
	if err != nil {
		return nil, err
	}
	o, err := newOptions(options)
	if err != nil {
		return nil, err
	}
	return kf.bilinearWindow(src, margins, width, height, o)
}

// CropBand returns a new Band containing the samples of src within window.
func CropBand(src Band, window Window) (Band, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil band", ErrInvalidArgument)
	}
	kf, err := kindFuncsFor(src.Kind())
	if err != nil {
		return nil, err
	}
	return kf.crop(src, window)
}

// DecodeBand decodes a width x height Band of kind from data, which contains
// samples in row-major order with the given byte order.
func DecodeBand(kind Kind, width, height int, order binary.ByteOrder, data []byte) (Band, error) {
	kf, err := kindFuncsFor(kind)
	if err != nil {
		return nil, err
	}
	return kf.decode(width, height, order, data)
}

// EncodeBand encodes src's samples in row-major order with the given byte
// order.
func EncodeBand(src Band, order binary.ByteOrder) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil band", ErrInvalidArgument)
	}
	kf, err := kindFuncsFor(src.Kind())
	if err != nil {
		return nil, err
	}
	return kf.encode(src, order)
}
