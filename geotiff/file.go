// Package geotiff reads single-band GeoTIFF and BigTIFF files into
// [resample.Band]s.
package geotiff

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"github.com/maypok86/otter/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/image/tiff/lzw"

	"github.com/twpayne/go-resample"
)

const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionDeflateOld = 32946
)

const (
	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

var (
	errNotTIFF   = errors.New("not a TIFF file")
	errShortRead = errors.New("short read")
)

var (
	tileRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resample_geotiff_tile_requests_total",
		Help: "The total number of tile requests",
	})
	tileLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resample_geotiff_tile_loads_total",
		Help: "The total number of tiles read from files",
	})
	sparseTiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resample_geotiff_sparse_tiles_total",
		Help: "The total number of sparse tiles filled with the nodata value",
	})
	decompressedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resample_geotiff_decompressed_bytes_total",
		Help: "The total number of bytes of tile data decompressed",
	})
)

// A TileCoord is a tile coordinate. Strips are tiles that span the whole
// width of the image, so C is always zero for them.
type TileCoord struct {
	C int
	R int
}

// A File is an open single-band GeoTIFF file.
type File struct {
	file               fs.File
	r                  io.ReaderAt
	byteOrder          binary.ByteOrder
	kind               resample.Kind
	imageWidth         int
	imageLength        int
	tileWidth          int
	tileLength         int
	tilesAcross        int
	tilesDown          int
	stripped           bool
	tileOffsets        []uint64
	tileByteCounts     []uint64
	compression        int
	noData             float64
	hasNoData          bool
	srid               int
	tileCacheSizeBytes int
	tileDataCache      *otter.Cache[TileCoord, []byte]
}

// An Option sets an option on a [File].
type Option func(*File)

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth                uint32   `tiff:"field,tag=256"`
	ImageLength               uint32   `tiff:"field,tag=257"`
	BitsPerSample             uint16   `tiff:"field,tag=258"`
	Compression               uint16   `tiff:"field,tag=259"`
	PhotometricInterpretation uint16   `tiff:"field,tag=262"`
	StripOffsets              []uint64 `tiff:"field,tag=273"`
	SamplesPerPixel           uint16   `tiff:"field,tag=277"`
	RowsPerStrip              uint32   `tiff:"field,tag=278"`
	StripByteCounts           []uint64 `tiff:"field,tag=279"`
	PlanarConfiguration       uint16   `tiff:"field,tag=284"`
	Predictor                 uint16   `tiff:"field,tag=317"`
	TileWidth                 uint32   `tiff:"field,tag=322"`
	TileLength                uint32   `tiff:"field,tag=323"`
	TileOffsets               []uint64 `tiff:"field,tag=324"`
	TileByteCounts            []uint64 `tiff:"field,tag=325"`
	SampleFormat              uint16   `tiff:"field,tag=339"`
	GeoKeyDirectoryTag        []uint16 `tiff:"field,tag=34735"`
	GDALNoData                string   `tiff:"field,tag=42113"`
}

// A readAtReadSeeker is the interface that github.com/google/tiff needs to
// parse a file.
type readAtReadSeeker interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// Open opens the GeoTIFF file name in fsys. Only the first IFD is read, so
// overviews are ignored.
func Open(fsys fs.FS, name string, options ...Option) (*File, error) {
	var err error
	ok := false

	f := &File{
		tileCacheSizeBytes: 128 << 20, // 128MB.
	}
	for _, option := range options {
		option(f)
	}

	f.file, err = fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if !ok {
			_ = f.file.Close()
		}
	}()
	r, isReadAtReadSeeker := f.file.(readAtReadSeeker)
	if !isReadAtReadSeeker {
		return nil, fmt.Errorf("%s: %w", name, errors.ErrUnsupported)
	}
	f.r = r

	header := make([]byte, 2)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	switch string(header) {
	case "II":
		f.byteOrder = binary.LittleEndian
	case "MM":
		f.byteOrder = binary.BigEndian
	default:
		return nil, fmt.Errorf("%s: %w", name, errNotTIFF)
	}

	tiffTIFF, err := tiff.Parse(r, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(tiffTIFF.IFDs()) == 0 {
		return nil, fmt.Errorf("%s: no IFDs", name)
	}

	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := f.setLayout(&ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if ifd.GDALNoData != "" {
		noDataStr := strings.TrimSpace(strings.TrimRight(ifd.GDALNoData, "\x00"))
		f.noData, err = strconv.ParseFloat(noDataStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: GDAL_NODATA: %w", name, err)
		}
		f.hasNoData = true
	}

	if ifd.GeoKeyDirectoryTag != nil {
		params, err := parseGeoKeys(ifd.GeoKeyDirectoryTag)
		if err != nil {
			return nil, fmt.Errorf("%s: GeoKeyDirectoryTag: %w", name, err)
		}
		f.srid = sridFromGeoKeys(params)
	}

	tileByteCountUncompressed := f.tileWidth * f.tileLength * f.kind.Size()
	tileCacheCount := max(f.tileCacheSizeBytes/max(tileByteCountUncompressed, 1), 1)
	f.tileDataCache, err = otter.New(&otter.Options[TileCoord, []byte]{
		MaximumSize: tileCacheCount,
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return f, nil
}

// WithTileCacheSize sets the maximum size in bytes of decompressed tile data
// cached by a File.
func WithTileCacheSize(tileCacheSize int) Option {
	return func(f *File) {
		f.tileCacheSizeBytes = tileCacheSize
	}
}

// setLayout sets f's sample kind and tile layout from ifd.
func (f *File) setLayout(ifd *geoTIFFIFD) error {
	if ifd.SamplesPerPixel > 1 ||
		ifd.PlanarConfiguration > 1 ||
		ifd.Predictor > 1 {
		return errors.ErrUnsupported
	}

	switch compression := int(ifd.Compression); compression {
	case 0:
		f.compression = compressionNone
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateOld:
		f.compression = compression
	default:
		return fmt.Errorf("compression %d: %w", compression, errors.ErrUnsupported)
	}

	kind, err := sampleKind(ifd.SampleFormat, ifd.BitsPerSample)
	if err != nil {
		return err
	}
	f.kind = kind

	f.imageWidth = int(ifd.ImageWidth)
	f.imageLength = int(ifd.ImageLength)
	if f.imageWidth == 0 || f.imageLength == 0 {
		return errors.New("empty image")
	}
	switch {
	case ifd.TileWidth != 0 && ifd.TileLength != 0:
		f.tileWidth = int(ifd.TileWidth)
		f.tileLength = int(ifd.TileLength)
		f.tileOffsets = ifd.TileOffsets
		f.tileByteCounts = ifd.TileByteCounts
	case ifd.StripOffsets != nil:
		f.stripped = true
		f.tileWidth = f.imageWidth
		f.tileLength = f.imageLength
		if rowsPerStrip := int(ifd.RowsPerStrip); 0 < rowsPerStrip && rowsPerStrip < f.imageLength {
			f.tileLength = rowsPerStrip
		}
		f.tileOffsets = ifd.StripOffsets
		f.tileByteCounts = ifd.StripByteCounts
	default:
		return errors.New("missing tile or strip offsets")
	}
	f.tilesAcross = (f.imageWidth + f.tileWidth - 1) / f.tileWidth
	f.tilesDown = (f.imageLength + f.tileLength - 1) / f.tileLength
	tilesPerImage := f.tilesAcross * f.tilesDown
	if len(f.tileByteCounts) != tilesPerImage || len(f.tileOffsets) != tilesPerImage {
		return errors.New("incorrect number of tile byte counts or offsets")
	}
	return nil
}

// sampleKind returns the kind of samples with the given TIFF SampleFormat and
// BitsPerSample.
func sampleKind(sampleFormat, bitsPerSample uint16) (resample.Kind, error) {
	if sampleFormat == 0 {
		sampleFormat = sampleFormatUint
	}
	type key struct {
		sampleFormat  uint16
		bitsPerSample uint16
	}
	switch (key{sampleFormat, bitsPerSample}) {
	case key{sampleFormatInt, 8}:
		return resample.Int8, nil
	case key{sampleFormatUint, 8}:
		return resample.Uint8, nil
	case key{sampleFormatInt, 16}:
		return resample.Int16, nil
	case key{sampleFormatUint, 16}:
		return resample.Uint16, nil
	case key{sampleFormatInt, 32}:
		return resample.Int32, nil
	case key{sampleFormatUint, 32}:
		return resample.Uint32, nil
	case key{sampleFormatInt, 64}:
		return resample.Int64, nil
	case key{sampleFormatUint, 64}:
		return resample.Uint64, nil
	case key{sampleFormatFloat, 16}:
		return resample.Float16, nil
	case key{sampleFormatFloat, 32}:
		return resample.Float32, nil
	case key{sampleFormatFloat, 64}:
		return resample.Float64, nil
	default:
		return resample.Invalid, fmt.Errorf("sample format %d with %d bits per sample: %w",
			sampleFormat, bitsPerSample, errors.ErrUnsupported)
	}
}

func (f *File) Close() error {
	return f.file.Close()
}

func (f *File) Width() int {
	return f.imageWidth
}

func (f *File) Height() int {
	return f.imageLength
}

func (f *File) Kind() resample.Kind {
	return f.kind
}

// ByteOrder returns the byte order of f's samples.
func (f *File) ByteOrder() binary.ByteOrder {
	return f.byteOrder
}

// NoData returns f's GDAL nodata value and whether it has one.
func (f *File) NoData() (float64, bool) {
	return f.noData, f.hasNoData
}

// SRID returns the EPSG code of f's CRS, or zero if it is unknown.
func (f *File) SRID() int {
	return f.srid
}

// ReadBand reads all of f's samples.
func (f *File) ReadBand(ctx context.Context) (resample.Band, error) {
	return f.ReadWindow(ctx, resample.Window{
		Width:  f.imageWidth,
		Height: f.imageLength,
	})
}

// ReadWindow reads the samples in window, which must lie within f.
func (f *File) ReadWindow(ctx context.Context, window resample.Window) (resample.Band, error) {
	if !window.Within(f.imageWidth, f.imageLength) {
		return nil, fmt.Errorf("window %s outside %dx%d image: %w",
			window, f.imageWidth, f.imageLength, resample.ErrInvalidArgument)
	}

	sampleSize := f.kind.Size()
	data := make([]byte, window.Width*window.Height*sampleSize)
	if window.Width == 0 || window.Height == 0 {
		return resample.DecodeBand(f.kind, window.Width, window.Height, f.byteOrder, data)
	}

	// Copy the samples one tile at a time.
	for r := window.Y / f.tileLength; r <= (window.Y+window.Height-1)/f.tileLength; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y0 := max(window.Y, r*f.tileLength)
		y1 := min(window.Y+window.Height, (r+1)*f.tileLength)
		for c := window.X / f.tileWidth; c <= (window.X+window.Width-1)/f.tileWidth; c++ {
			tileData, err := f.getTileDataCached(ctx, TileCoord{C: c, R: r})
			if err != nil {
				return nil, err
			}
			x0 := max(window.X, c*f.tileWidth)
			x1 := min(window.X+window.Width, (c+1)*f.tileWidth)
			n := (x1 - x0) * sampleSize
			for y := y0; y < y1; y++ {
				src := ((y-r*f.tileLength)*f.tileWidth + x0 - c*f.tileWidth) * sampleSize
				dst := ((y-window.Y)*window.Width + x0 - window.X) * sampleSize
				copy(data[dst:dst+n], tileData[src:src+n])
			}
		}
	}

	return resample.DecodeBand(f.kind, window.Width, window.Height, f.byteOrder, data)
}

// tileDataSize returns the size in bytes of the uncompressed data of the tile
// at tileCoord. Only the last strip can be shorter than the others.
func (f *File) tileDataSize(tileCoord TileCoord) int {
	tileLength := f.tileLength
	if f.stripped {
		tileLength = min(f.tileLength, f.imageLength-tileCoord.R*f.tileLength)
	}
	return f.tileWidth * tileLength * f.kind.Size()
}

// getTileData returns the uncompressed tile data at tileCoord.
func (f *File) getTileData(ctx context.Context, tileCoord TileCoord) ([]byte, error) {
	tileLoads.Inc()

	tileIndex := tileCoord.C + f.tilesAcross*tileCoord.R
	tileByteCount := f.tileByteCounts[tileIndex]
	tileDataSize := f.tileDataSize(tileCoord)
	if tileByteCount == 0 {
		sparseTiles.Inc()
		return f.sparseTileData(tileDataSize)
	}

	compressedData := make([]byte, tileByteCount)
	switch n, err := f.r.ReadAt(compressedData, int64(f.tileOffsets[tileIndex])); {
	case n == int(tileByteCount):
	case err != nil && !errors.Is(err, io.EOF):
		return nil, err
	default:
		return nil, fmt.Errorf("tile %d: %w", tileIndex, errShortRead)
	}

	switch f.compression {
	case compressionLZW:
		r := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
		defer r.Close()
		return decompressTileData(r, tileDataSize)
	case compressionDeflate, compressionDeflateOld:
		r, err := zlib.NewReader(bytes.NewReader(compressedData))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return decompressTileData(r, tileDataSize)
	default:
		if len(compressedData) < tileDataSize {
			return nil, fmt.Errorf("tile %d: %w", tileIndex, errShortRead)
		}
		return compressedData[:tileDataSize], nil
	}
}

// getTileDataCached returns the tile data at tileCoord using f's cache.
func (f *File) getTileDataCached(ctx context.Context, tileCoord TileCoord) ([]byte, error) {
	tileRequests.Inc()
	return f.tileDataCache.Get(ctx, tileCoord, otter.LoaderFunc[TileCoord, []byte](f.getTileData))
}

// sparseTileData returns the data of a tile that is not present in the file.
// GDAL fills these with the nodata value, or zero if there is none.
func (f *File) sparseTileData(tileDataSize int) ([]byte, error) {
	samples := tileDataSize / f.kind.Size()
	band, err := resample.FullBand(f.kind, samples, 1, f.noData)
	if err != nil {
		return nil, err
	}
	return resample.EncodeBand(band, f.byteOrder)
}

// decompressTileData reads exactly tileDataSize bytes from r.
func decompressTileData(r io.Reader, tileDataSize int) ([]byte, error) {
	tileData := make([]byte, tileDataSize)
	if _, err := io.ReadFull(r, tileData); err != nil {
		return nil, fmt.Errorf("%w: %w", errShortRead, err)
	}
	decompressedBytes.Add(float64(tileDataSize))
	return tileData, nil
}
