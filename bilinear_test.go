package resample_test

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/twpayne/go-resample"
)

func mustNewGridFromRows[T resample.Sample](t *testing.T, rows [][]T) *resample.Grid[T] {
	t.Helper()
	g, err := resample.NewGridFromRows(rows)
	assert.NoError(t, err)
	return g
}

func TestBilinear(t *testing.T) {
	src := mustNewGridFromRows(t, [][]float64{
		{1, 2},
		{3, 4},
	})
	for _, tc := range []struct {
		name     string
		options  []resample.Option
		width    int
		height   int
		expected [][]float64
	}{
		{
			name:   "pixel_center_upsample",
			width:  4,
			height: 4,
			expected: [][]float64{
				{1, 1.25, 1.75, 2},
				{1.5, 1.75, 2.25, 2.5},
				{2.5, 2.75, 3.25, 3.5},
				{3, 3.25, 3.75, 4},
			},
		},
		{
			name:    "edge_aligned_upsample",
			options: []resample.Option{resample.WithMapping(resample.EdgeAligned)},
			width:   3,
			height:  3,
			expected: [][]float64{
				{1, 1.5, 2},
				{2, 2.5, 3},
				{3, 3.5, 4},
			},
		},
		{
			name:   "pixel_center_single",
			width:  1,
			height: 1,
			expected: [][]float64{
				{2.5},
			},
		},
		{
			name:    "edge_aligned_single",
			options: []resample.Option{resample.WithMapping(resample.EdgeAligned)},
			width:   1,
			height:  1,
			expected: [][]float64{
				{1},
			},
		},
		{
			name:   "identity",
			width:  2,
			height: 2,
			expected: [][]float64{
				{1, 2},
				{3, 4},
			},
		},
		{
			name:   "non_square",
			width:  4,
			height: 1,
			expected: [][]float64{
				{2, 2.25, 2.75, 3},
			},
		},
		{
			name:   "ignore_never_occurs",
			options: []resample.Option{
				resample.WithIgnore(-9999),
			},
			width:  4,
			height: 4,
			expected: [][]float64{
				{1, 1.25, 1.75, 2},
				{1.5, 1.75, 2.25, 2.5},
				{2.5, 2.75, 3.25, 3.5},
				{3, 3.25, 3.75, 4},
			},
		},
		{
			name: "weighted_exclusion",
			options: []resample.Option{
				resample.WithIgnore(2),
			},
			width:  4,
			height: 4,
			expected: [][]float64{
				{1, 1, 1, 2},
				{1.5, 1.375 / 0.8125, 1.125 / 0.4375, 4},
				{2.5, 2.625 / 0.9375, 2.875 / 0.8125, 4},
				{3, 3.25, 3.75, 4},
			},
		},
		{
			name: "any_neighbor",
			options: []resample.Option{
				resample.WithIgnore(2),
				resample.WithIgnorePolicy(resample.AnyNeighbor),
			},
			width:  4,
			height: 4,
			expected: [][]float64{
				{1, 2, 2, 2},
				{1.5, 2, 2, 2},
				{2.5, 2, 2, 2},
				{3, 3.25, 3.75, 4},
			},
		},
		{
			name: "no_data_disabled",
			options: []resample.Option{
				resample.WithIgnore(2),
				resample.WithNoData(0, false),
			},
			width:  2,
			height: 1,
			expected: [][]float64{
				{2, 3},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := resample.Bilinear(src, tc.width, tc.height, tc.options...)
			assert.NoError(t, err)
			assert.Equal(t, tc.width, actual.Width())
			assert.Equal(t, tc.height, actual.Height())
			assert.Equal(t, tc.expected, actual.Rows())
		})
	}
}

func TestBilinearUint8(t *testing.T) {
	src := mustNewGridFromRows(t, [][]uint8{
		{10, 20},
		{30, 40},
	})
	for _, mapping := range []resample.Mapping{resample.PixelCenter, resample.EdgeAligned} {
		t.Run(mapping.String(), func(t *testing.T) {
			actual, err := resample.Bilinear(src, 3, 3, resample.WithMapping(mapping))
			assert.NoError(t, err)
			assert.Equal(t, [][]uint8{
				{10, 15, 20},
				{20, 25, 30},
				{30, 35, 40},
			}, actual.Rows())
		})
	}
}

func TestBilinearIntegerRounding(t *testing.T) {
	src := mustNewGridFromRows(t, [][]int16{
		{0, 1},
		{-1, -2},
	})
	actual, err := resample.Bilinear(src, 4, 4)
	assert.NoError(t, err)
	assert.Equal(t, [][]int16{
		{0, 0, 1, 1},
		{0, 0, 0, 0},
		{-1, -1, -1, -1},
		{-1, -1, -2, -2},
	}, actual.Rows())

	// Halves round away from zero.
	for _, tc := range []struct {
		rows     [][]int16
		expected [][]int16
	}{
		{
			rows:     [][]int16{{0, 1}},
			expected: [][]int16{{0, 1, 1}},
		},
		{
			rows:     [][]int16{{0, -1}},
			expected: [][]int16{{0, -1, -1}},
		},
	} {
		actual, err := resample.Bilinear(mustNewGridFromRows(t, tc.rows), 3, 1)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, actual.Rows())
	}
}

func TestBilinearEmptyOutput(t *testing.T) {
	src := mustNewGridFromRows(t, [][]int32{
		{1, 2},
		{3, 4},
	})
	for _, tc := range []struct {
		width  int
		height int
	}{
		{width: 0, height: 0},
		{width: 0, height: 3},
		{width: 3, height: 0},
	} {
		actual, err := resample.Bilinear(src, tc.width, tc.height, resample.WithIgnore(2))
		assert.NoError(t, err)
		assert.Equal(t, tc.width, actual.Width())
		assert.Equal(t, tc.height, actual.Height())
		assert.Equal(t, 0, len(actual.Samples()))
	}
}

func TestBilinearErrors(t *testing.T) {
	src := mustNewGridFromRows(t, [][]uint8{
		{1, 2},
	})
	for _, tc := range []struct {
		name    string
		src     *resample.Grid[uint8]
		width   int
		height  int
		options []resample.Option
	}{
		{
			name:   "nil_src",
			width:  1,
			height: 1,
		},
		{
			name:   "empty_src",
			src:    resample.NewGrid[uint8](0, 2),
			width:  1,
			height: 1,
		},
		{
			name:   "negative_width",
			src:    src,
			width:  -1,
			height: 1,
		},
		{
			name:   "negative_height",
			src:    src,
			width:  1,
			height: -1,
		},
		{
			name:    "unknown_mapping",
			src:     src,
			width:   1,
			height:  1,
			options: []resample.Option{resample.WithMapping(resample.Mapping(99))},
		},
		{
			name:    "unknown_policy",
			src:     src,
			width:   1,
			height:  1,
			options: []resample.Option{resample.WithIgnorePolicy(resample.IgnorePolicy(99))},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resample.Bilinear(tc.src, tc.width, tc.height, tc.options...)
			assert.IsError(t, err, resample.ErrInvalidArgument)
		})
	}
}

func TestBilinearNaNIgnore(t *testing.T) {
	nan := float32(math.NaN())
	src := mustNewGridFromRows(t, [][]float32{
		{1, nan},
		{3, 4},
	})
	actual, err := resample.Bilinear(src, 2, 2, resample.WithIgnore(math.NaN()))
	assert.NoError(t, err)
	assert.Equal(t, float32(1), actual.At(0, 0))
	assert.True(t, math.IsNaN(float64(actual.At(0, 1))))
	assert.Equal(t, float32(3), actual.At(1, 0))
	assert.Equal(t, float32(4), actual.At(1, 1))

	actual, err = resample.Bilinear(src, 1, 1, resample.WithIgnore(math.NaN()))
	assert.NoError(t, err)
	assert.Equal(t, float32(8)/3, actual.At(0, 0))
}

func TestBilinearSingleSample(t *testing.T) {
	src := mustNewGridFromRows(t, [][]int64{
		{-7},
	})
	for _, mapping := range []resample.Mapping{resample.PixelCenter, resample.EdgeAligned} {
		for _, size := range []int{1, 2, 5} {
			actual, err := resample.Bilinear(src, size, size+1, resample.WithMapping(mapping))
			assert.NoError(t, err)
			for _, sample := range actual.Samples() {
				assert.Equal(t, int64(-7), sample)
			}
		}
	}
}

func TestBilinearSentinelRegion(t *testing.T) {
	const ignore = 255
	src := resample.NewGrid[uint8](6, 6)
	for row := range 6 {
		for col := range 6 {
			if row < 3 {
				src.Set(row, col, ignore)
			} else {
				src.Set(row, col, uint8(10*col))
			}
		}
	}
	for _, policy := range []resample.IgnorePolicy{resample.WeightedExclusion, resample.AnyNeighbor} {
		t.Run(policy.String(), func(t *testing.T) {
			actual, err := resample.Bilinear(src, 12, 12, resample.WithIgnore(ignore), resample.WithIgnorePolicy(policy))
			assert.NoError(t, err)
			// Output rows 0 to 4 map entirely into the sentinel region.
			for row := range 5 {
				for col := range 12 {
					assert.Equal(t, uint8(ignore), actual.At(row, col), "row=%d col=%d", row, col)
				}
			}
			for row := 7; row < 12; row++ {
				for col := range 12 {
					assert.NotEqual(t, uint8(ignore), actual.At(row, col), "row=%d col=%d", row, col)
				}
			}
		})
	}
}

func TestBilinearProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(0, 0))
	for i := range 64 {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			inWidth, inHeight := 1+r.IntN(8), 1+r.IntN(8)
			outWidth, outHeight := r.IntN(17), r.IntN(17)
			src := resample.NewGrid[float64](inWidth, inHeight)
			minSample, maxSample := math.Inf(1), math.Inf(-1)
			for i := range src.Samples() {
				sample := math.Round(100 * r.Float64())
				src.Samples()[i] = sample
				minSample = min(minSample, sample)
				maxSample = max(maxSample, sample)
			}

			for _, mapping := range []resample.Mapping{resample.PixelCenter, resample.EdgeAligned} {
				actual, err := resample.Bilinear(src, outWidth, outHeight, resample.WithMapping(mapping))
				assert.NoError(t, err)
				assert.Equal(t, outWidth, actual.Width())
				assert.Equal(t, outHeight, actual.Height())
				for _, sample := range actual.Samples() {
					assert.True(t, minSample-1e-9 <= sample && sample <= maxSample+1e-9)
				}

				again, err := resample.Bilinear(src, outWidth, outHeight, resample.WithMapping(mapping))
				assert.NoError(t, err)
				assert.Equal(t, actual.Samples(), again.Samples())

				neverOccurs, err := resample.Bilinear(src, outWidth, outHeight, resample.WithMapping(mapping), resample.WithIgnore(-1))
				assert.NoError(t, err)
				assert.Equal(t, actual.Samples(), neverOccurs.Samples())
			}
		})
	}
}

func TestBilinearKinds(t *testing.T) {
	rows := [][]float64{
		{10, 20},
		{30, 40},
	}
	expected := [][]float64{
		{10, 15, 20},
		{20, 25, 30},
		{30, 35, 40},
	}
	for _, kind := range []resample.Kind{
		resample.Int8,
		resample.Uint8,
		resample.Int16,
		resample.Uint16,
		resample.Int32,
		resample.Uint32,
		resample.Int64,
		resample.Uint64,
		resample.Float16,
		resample.Float32,
		resample.Float64,
	} {
		t.Run(kind.String(), func(t *testing.T) {
			src := newBand(t, kind, rows)

			actual, err := resample.BilinearBand(src, 3, 3, resample.WithMapping(resample.EdgeAligned))
			assert.NoError(t, err)
			assert.Equal(t, kind, actual.Kind())
			assert.Equal(t, expected, bandRows(actual))

			// The center sample is (10 + 30 + 40) / 3, rounded for integer
			// kinds.
			center := 27.0
			if kind.IsFloat() {
				center = 80.0 / 3
			}
			actual, err = resample.BilinearBand(src, 3, 3, resample.WithIgnore(20))
			assert.NoError(t, err)
			assert.Equal(t, kind, actual.Kind())
			expectedIgnore := [][]float64{
				{10, 10, 20},
				{20, center, 40},
				{30, 35, 40},
			}
			if diff := cmp.Diff(expectedIgnore, bandRows(actual), cmpopts.EquateApprox(0, 0.01)); diff != "" {
				t.Errorf("mismatch (-expected +actual):\n%s", diff)
			}

			actual, err = resample.BilinearBand(src, 3, 3, resample.WithIgnore(20), resample.WithIgnorePolicy(resample.AnyNeighbor))
			assert.NoError(t, err)
			assert.Equal(t, [][]float64{
				{10, 20, 20},
				{20, 20, 20},
				{30, 35, 40},
			}, bandRows(actual))
		})
	}
}

func TestBilinearIgnoreNarrowing(t *testing.T) {
	for _, tc := range []struct {
		name     string
		rows     [][]uint8
		width    int
		height   int
		ignore   float64
		expected [][]uint8
	}{
		{
			name: "fractional_rounds",
			rows: [][]uint8{
				{1, 2},
				{3, 4},
			},
			width:  3,
			height: 3,
			ignore: 1.5,
			expected: [][]uint8{
				{1, 1, 2},
				{2, 3, 4},
				{3, 4, 4},
			},
		},
		{
			name: "below_range_saturates",
			rows: [][]uint8{
				{0, 10},
				{20, 30},
			},
			width:    1,
			height:   1,
			ignore:   -9999,
			expected: [][]uint8{{20}},
		},
		{
			name: "above_range_saturates",
			rows: [][]uint8{
				{255, 10},
				{20, 30},
			},
			width:    1,
			height:   1,
			ignore:   1e6,
			expected: [][]uint8{{20}},
		},
		{
			name: "nan_matches_nothing",
			rows: [][]uint8{
				{0, 10},
				{20, 30},
			},
			width:    1,
			height:   1,
			ignore:   math.NaN(),
			expected: [][]uint8{{15}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src := mustNewGridFromRows(t, tc.rows)
			actual, err := resample.Bilinear(src, tc.width, tc.height, resample.WithIgnore(tc.ignore))
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual.Rows())
		})
	}
}

func TestBilinearIntegerExtremes(t *testing.T) {
	int64s := mustNewGridFromRows(t, [][]int64{
		{math.MaxInt64, math.MaxInt64},
		{math.MinInt64, math.MinInt64},
	})
	actual, err := resample.Bilinear(int64s, 3, 2)
	assert.NoError(t, err)
	assert.Equal(t, [][]int64{
		{math.MaxInt64, math.MaxInt64, math.MaxInt64},
		{math.MinInt64, math.MinInt64, math.MinInt64},
	}, actual.Rows())

	uint64s := mustNewGridFromRows(t, [][]uint64{
		{math.MaxUint64, math.MaxUint64},
	})
	actualUint64s, err := resample.Bilinear(uint64s, 3, 1)
	assert.NoError(t, err)
	assert.Equal(t, [][]uint64{{math.MaxUint64, math.MaxUint64, math.MaxUint64}}, actualUint64s.Rows())

	band, err := resample.FullBand(resample.Int64, 1, 1, 1e19)
	assert.NoError(t, err)
	grid, ok := band.(*resample.Grid[int64])
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), grid.At(0, 0))

	band, err = resample.FullBand(resample.Uint16, 1, 1, math.NaN())
	assert.NoError(t, err)
	assert.Equal(t, 0.0, band.Float64At(0, 0))
}

func TestBilinearFloatTolerance(t *testing.T) {
	src := mustNewGridFromRows(t, [][]float32{
		{0, 1, 2},
		{1, 2, 3},
		{2, 3, 4},
	})
	actual, err := resample.Bilinear(src, 7, 7)
	assert.NoError(t, err)
	// The input is a plane, so output samples lie on the same plane wherever
	// the mapped coordinate is not clamped.
	expected := make([][]float32, 7)
	for row := range expected {
		expected[row] = make([]float32, 7)
		for col := range expected[row] {
			y := min(max((float64(row)+0.5)*3/7-0.5, 0), 2)
			x := min(max((float64(col)+0.5)*3/7-0.5, 0), 2)
			expected[row][col] = float32(x + y)
		}
	}
	if diff := cmp.Diff(expected, actual.Rows(), cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("mismatch (-expected +actual):\n%s", diff)
	}
}

// newBand returns a Band of kind with samples from rows, narrowed as if they
// were resampled output.
func newBand(t *testing.T, kind resample.Kind, rows [][]float64) resample.Band {
	t.Helper()
	var data []byte
	for _, row := range rows {
		for _, value := range row {
			sample, err := resample.FullBand(kind, 1, 1, value)
			assert.NoError(t, err)
			sampleData, err := resample.EncodeBand(sample, binary.LittleEndian)
			assert.NoError(t, err)
			data = append(data, sampleData...)
		}
	}
	band, err := resample.DecodeBand(kind, len(rows[0]), len(rows), binary.LittleEndian, data)
	assert.NoError(t, err)
	return band
}

func bandRows(band resample.Band) [][]float64 {
	rows := make([][]float64, band.Height())
	for row := range rows {
		rows[row] = make([]float64, band.Width())
		for col := range rows[row] {
			rows[row][col] = band.Float64At(row, col)
		}
	}
	return rows
}
