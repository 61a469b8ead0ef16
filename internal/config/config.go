// Package config loads the configuration of the resample command.
package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/twpayne/go-resample"
)

var (
	errInvalidByteOrder = errors.New("invalid byte order")
	errInvalidWindow    = errors.New("invalid window")
)

// Config holds the configuration of the resample command.
type Config struct {
	Width         int    `mapstructure:"width"`
	Height        int    `mapstructure:"height"`
	Ignore        string `mapstructure:"ignore"`
	Mapping       string `mapstructure:"mapping"`
	Policy        string `mapstructure:"policy"`
	Window        string `mapstructure:"window"`
	ByteOrder     string `mapstructure:"byte_order"`
	TileCacheSize int    `mapstructure:"tile_cache_size"`
	Verbose       bool   `mapstructure:"verbose"`
}

// Load loads the configuration from overrides, environment variables, and
// an optional YAML config file.
// Priority (highest to lowest): overrides > env vars > config file > defaults
func Load(configFile string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	v.SetDefault("width", -1)
	v.SetDefault("height", -1)
	v.SetDefault("ignore", "")
	v.SetDefault("mapping", resample.PixelCenter.String())
	v.SetDefault("policy", resample.WeightedExclusion.String())
	v.SetDefault("window", "")
	v.SetDefault("byte_order", "little")
	v.SetDefault("tile_cache_size", 128<<20)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("RESAMPLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: width and height are required", resample.ErrInvalidArgument)
	}
	if _, err := c.ParseByteOrder(); err != nil {
		return err
	}
	if _, _, err := c.ParseWindow(); err != nil {
		return err
	}
	_, err := c.Options(0, false)
	return err
}

// Options returns the resampling options. An empty ignore value uses the
// input's nodata value, and "none" disables the ignore value.
func (c *Config) Options(noData float64, hasNoData bool) ([]resample.Option, error) {
	mapping, err := resample.ParseMapping(c.Mapping)
	if err != nil {
		return nil, fmt.Errorf("mapping: %w", err)
	}
	policy, err := resample.ParseIgnorePolicy(c.Policy)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	options := []resample.Option{
		resample.WithMapping(mapping),
		resample.WithIgnorePolicy(policy),
	}
	switch c.Ignore {
	case "":
		options = append(options, resample.WithNoData(noData, hasNoData))
	case "none":
	default:
		ignore, err := strconv.ParseFloat(c.Ignore, 64)
		if err != nil {
			return nil, fmt.Errorf("ignore: %w", err)
		}
		options = append(options, resample.WithIgnore(ignore))
	}
	return options, nil
}

// ParseByteOrder returns the byte order of the output.
func (c *Config) ParseByteOrder() (binary.ByteOrder, error) {
	switch c.ByteOrder {
	case "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("%q: %w", c.ByteOrder, errInvalidByteOrder)
	}
}

// ParseWindow returns the window of the input to resample, and false if the
// whole input should be resampled.
func (c *Config) ParseWindow() (resample.Window, bool, error) {
	if c.Window == "" {
		return resample.Window{}, false, nil
	}
	fields := strings.Split(c.Window, ",")
	if len(fields) != 4 {
		return resample.Window{}, false, fmt.Errorf("%q: %w", c.Window, errInvalidWindow)
	}
	values := make([]int, len(fields))
	for i, field := range fields {
		value, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return resample.Window{}, false, fmt.Errorf("%q: %w: %w", c.Window, errInvalidWindow, err)
		}
		values[i] = value
	}
	return resample.Window{
		X:      values[0],
		Y:      values[1],
		Width:  values[2],
		Height: values[3],
	}, true, nil
}
