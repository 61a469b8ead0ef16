package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/twpayne/go-resample"
	"github.com/twpayne/go-resample/geotiff"
	"github.com/twpayne/go-resample/internal/config"
)

func run() error {
	configFile := flag.String("config", os.Getenv("RESAMPLE_CONFIG"), "path to YAML config file")
	flag.Int("width", -1, "output width")
	flag.Int("height", -1, "output height")
	flag.String("ignore", "", `ignore value, "" to use the input's nodata value, or "none"`)
	flag.String("mapping", resample.PixelCenter.String(), "coordinate mapping: pixel-center or edge-aligned")
	flag.String("policy", resample.WeightedExclusion.String(), "ignore policy: weighted-exclusion or any-neighbor")
	flag.String("window", "", "window x,y,width,height of the input to resample")
	flag.String("byte-order", "little", "output byte order: little or big")
	flag.Int("tile-cache-size", 128<<20, "tile cache size in bytes")
	flag.Bool("verbose", false, "verbose output")
	flag.Parse()

	if flag.NArg() != 2 {
		return errors.New("syntax: resample [flags] input.tif output.raw")
	}
	input, output := flag.Arg(0), flag.Arg(1)

	// Only flags set on the command line override the environment and config
	// file.
	overrides := make(map[string]any)
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			return
		}
		overrides[strings.ReplaceAll(f.Name, "-", "_")] = f.Value.(flag.Getter).Get()
	})
	cfg, err := config.Load(*configFile, overrides)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	f, err := geotiff.Open(
		os.DirFS(filepath.Dir(input)),
		filepath.Base(input),
		geotiff.WithTileCacheSize(cfg.TileCacheSize),
	)
	if err != nil {
		return err
	}
	defer f.Close()
	noData, hasNoData := f.NoData()
	logrus.WithFields(logrus.Fields{
		"input":     input,
		"width":     f.Width(),
		"height":    f.Height(),
		"kind":      f.Kind(),
		"srid":      f.SRID(),
		"noData":    noData,
		"hasNoData": hasNoData,
	}).Debug("opened input")

	options, err := cfg.Options(noData, hasNoData)
	if err != nil {
		return err
	}
	window, ok, err := cfg.ParseWindow()
	if err != nil {
		return err
	}
	if !ok {
		window = resample.Window{Width: f.Width(), Height: f.Height()}
	}
	margins := resample.BilinearMargins(window, f.Width(), f.Height())
	logrus.WithFields(logrus.Fields{
		"window":  window.String(),
		"margins": margins,
	}).Debug("reading window")

	src, err := f.ReadWindow(context.Background(), window.Expand(margins))
	if err != nil {
		return err
	}
	dst, err := resample.BilinearWindowBand(src, margins, cfg.Width, cfg.Height, options...)
	if err != nil {
		return err
	}

	byteOrder, err := cfg.ParseByteOrder()
	if err != nil {
		return err
	}
	data, err := resample.EncodeBand(dst, byteOrder)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o666); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"output": output,
		"width":  dst.Width(),
		"height": dst.Height(),
		"kind":   dst.Kind(),
		"bytes":  len(data),
	}).Info("wrote output")

	return nil
}

func main() {
	if err := run(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
