package resample

import "fmt"

// An IgnorePolicy determines how samples equal to the ignore value contribute
// to interpolated output.
type IgnorePolicy int

const (
	// WeightedExclusion drops ignored neighbors and their weights and
	// renormalizes the remaining weighted sum. If all neighbors are ignored the
	// output is the ignore value.
	WeightedExclusion IgnorePolicy = iota
	// AnyNeighbor outputs the ignore value if any neighbor is ignored.
	AnyNeighbor
)

var ignorePolicyNames = map[IgnorePolicy]string{
	WeightedExclusion: "weighted-exclusion",
	AnyNeighbor:       "any-neighbor",
}

// ParseIgnorePolicy parses an IgnorePolicy name.
func ParseIgnorePolicy(s string) (IgnorePolicy, error) {
	for p, name := range ignorePolicyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown ignore policy %q", ErrInvalidArgument, s)
}

func (p IgnorePolicy) String() string {
	if name, ok := ignorePolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("IgnorePolicy(%d)", int(p))
}

func (p IgnorePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *IgnorePolicy) UnmarshalText(text []byte) error {
	policy, err := ParseIgnorePolicy(string(text))
	if err != nil {
		return err
	}
	*p = policy
	return nil
}

// An Option sets an option on a resampling operation.
type Option func(*options)

type options struct {
	hasIgnore bool
	ignore    float64
	mapping   Mapping
	policy    IgnorePolicy
}

// WithIgnore sets the ignore (no data) value.
func WithIgnore(ignore float64) Option {
	return func(o *options) {
		o.hasIgnore = true
		o.ignore = ignore
	}
}

// WithNoData sets the ignore value to value if ok is true and clears it
// otherwise. Its arguments match the results of functions that return an
// optional no data value.
func WithNoData(value float64, ok bool) Option {
	return func(o *options) {
		o.hasIgnore = ok
		o.ignore = value
	}
}

// WithMapping sets the coordinate mapping. The default is PixelCenter.
func WithMapping(mapping Mapping) Option {
	return func(o *options) {
		o.mapping = mapping
	}
}

// WithIgnorePolicy sets the ignore policy. The default is WeightedExclusion.
func WithIgnorePolicy(policy IgnorePolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

func newOptions(opts []Option) (*options, error) {
	o := &options{
		mapping: PixelCenter,
		policy:  WeightedExclusion,
	}
	for _, opt := range opts {
		opt(o)
	}
	if _, ok := mappingNames[o.mapping]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, o.mapping)
	}
	if _, ok := ignorePolicyNames[o.policy]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, o.policy)
	}
	return o, nil
}
