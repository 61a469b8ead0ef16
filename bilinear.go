package resample

import "fmt"

// Bilinear returns a new width x height grid interpolated from src.
//
// Each output sample is the weighted average of the four input samples
// surrounding its mapped coordinate. Accumulation is done in float64 and the
// result is narrowed to T: integer kinds are rounded to nearest, with halves
// rounded away from zero, and saturated.
func Bilinear[T Sample](src *Grid[T], width, height int, options ...Option) (*Grid[T], error) {
	o, err := newOptions(options)
	if err != nil {
		return nil, err
	}
	return bilinear(src, width, height, o)
}

func bilinear[T Sample](src *Grid[T], width, height int, o *options) (*Grid[T], error) {
	if src == nil || src.width < 1 || src.height < 1 {
		return nil, fmt.Errorf("%w: empty input grid", ErrInvalidArgument)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative output size %dx%d", ErrInvalidArgument, width, height)
	}

	c := newCodec[T]()
	var ignore T
	var isIgnore func(T) bool
	if o.hasIgnore {
		ignore, isIgnore = newIgnore(c, o.ignore)
	}

	dst := NewGrid[T](width, height)
	if width == 0 || height == 0 {
		return dst, nil
	}

	rows := o.mapping.axis(src.height, height)
	cols := o.mapping.axis(src.width, width)
	switch {
	case isIgnore == nil:
		bilinearNoIgnore(dst, src, rows, cols, c)
	case o.policy == AnyNeighbor:
		bilinearAnyNeighbor(dst, src, rows, cols, c, ignore, isIgnore)
	default:
		bilinearWeightedExclusion(dst, src, rows, cols, c, ignore, isIgnore)
	}
	return dst, nil
}

// neighbors returns the four samples surrounding r, col: a (lo, lo), b (lo,
// hi), c (hi, lo), and d (hi, hi).
func neighbors[T Sample](src *Grid[T], r, col axisSample) [4]T {
	lo := src.Row(r.lo)
	hi := src.Row(r.hi)
	return [4]T{lo[col.lo], lo[col.hi], hi[col.lo], hi[col.hi]}
}

// weights returns the weights of the four neighbors, in the same order as
// neighbors.
func weights(r, col axisSample) [4]float64 {
	return [4]float64{
		(1 - col.w) * (1 - r.w),
		col.w * (1 - r.w),
		r.w * (1 - col.w),
		col.w * r.w,
	}
}

func blend[T Sample](c codec[T], v [4]T, w [4]float64) float64 {
	return c.load(v[0])*w[0] + c.load(v[1])*w[1] + c.load(v[2])*w[2] + c.load(v[3])*w[3]
}

func bilinearNoIgnore[T Sample](dst, src *Grid[T], rows, cols []axisSample, c codec[T]) {
	for i, r := range rows {
		dstRow := dst.Row(i)
		for j, col := range cols {
			dstRow[j] = c.store(blend(c, neighbors(src, r, col), weights(r, col)))
		}
	}
}

func bilinearWeightedExclusion[T Sample](dst, src *Grid[T], rows, cols []axisSample, c codec[T], ignore T, isIgnore func(T) bool) {
	for i, r := range rows {
		dstRow := dst.Row(i)
		for j, col := range cols {
			v := neighbors(src, r, col)
			w := weights(r, col)
			excluded := false
			sum, totalWeight := 0.0, 0.0
			for k := range v {
				if isIgnore(v[k]) {
					excluded = true
					continue
				}
				sum += c.load(v[k]) * w[k]
				totalWeight += w[k]
			}
			switch {
			case !excluded:
				// Match the no ignore path exactly.
				dstRow[j] = c.store(blend(c, v, w))
			case totalWeight > 0:
				dstRow[j] = c.store(sum / totalWeight)
			default:
				dstRow[j] = ignore
			}
		}
	}
}

func bilinearAnyNeighbor[T Sample](dst, src *Grid[T], rows, cols []axisSample, c codec[T], ignore T, isIgnore func(T) bool) {
	for i, r := range rows {
		dstRow := dst.Row(i)
	COL:
		for j, col := range cols {
			v := neighbors(src, r, col)
			for k := range v {
				if isIgnore(v[k]) {
					dstRow[j] = ignore
					continue COL
				}
			}
			dstRow[j] = c.store(blend(c, v, weights(r, col)))
		}
	}
}
