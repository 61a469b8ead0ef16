package resample

import (
	"errors"
	"fmt"

	"github.com/x448/float16"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnsupportedKind = fmt.Errorf("unsupported element kind: %w", errors.ErrUnsupported)
)

// A Sample is a supported element type.
type Sample interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 |
		float16.Float16 | float32 | float64
}

// A Kind is the runtime element type of a Band.
type Kind int

const (
	Invalid Kind = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float16
	Float32
	Float64
)

var kindNames = [...]string{
	Invalid: "invalid",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float16: "float16",
	Float32: "float32",
	Float64: "float64",
}

// ParseKind parses a numpy-style dtype name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if k != int(Invalid) && name == s {
			return Kind(k), nil
		}
	}
	return Invalid, fmt.Errorf("%q: %w", s, ErrUnsupportedKind)
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Size returns the size of a single sample of kind k in bytes, or zero if k is
// not supported.
func (k Kind) Size() int {
	switch k {
	case Int8, Uint8:
		return 1
	case Int16, Uint16, Float16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// IsFloat returns whether k is a floating point kind.
func (k Kind) IsFloat() bool {
	return k == Float16 || k == Float32 || k == Float64
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// kindOf returns the Kind of T.
func kindOf[T Sample]() Kind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	case float16.Float16:
		return Float16
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		return Invalid
	}
}
