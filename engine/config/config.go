// Package config holds the runtime options of oxy-life: defaults, validation, YAML files,
// command line overrides and hot reload of the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every error Validate returns.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// MaxTileEdge bounds tileEdge so a square workgroup stays within 256 invocations.
const MaxTileEdge = 16

// Window holds the options of the desktop window.
type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// Config is the complete set of options. The zero value is not valid, start from Default.
type Config struct {
	GridWidth      int     `yaml:"gridWidth"`
	GridHeight     int     `yaml:"gridHeight"`
	TileEdge       int     `yaml:"tileEdge"`
	TickIntervalMs int     `yaml:"tickIntervalMs"`
	SeedDensity    float64 `yaml:"seedDensity"`
	// Seed seeds the initial population. Zero picks a seed from the clock.
	Seed        int64  `yaml:"seed"`
	Backend     string `yaml:"backend"`
	PresentMode string `yaml:"presentMode"`
	// MetricsAddr is the listen address of the /metrics endpoint, empty to disable it.
	MetricsAddr     string `yaml:"metricsAddr"`
	LogLevel        string `yaml:"logLevel"`
	Profile         bool   `yaml:"profile"`
	ValidateShaders bool   `yaml:"validateShaders"`
	Window          Window `yaml:"window"`
}

// Default returns the reference configuration: a 64x64 grid stepped every 120ms.
func Default() Config {
	return Config{
		GridWidth:      64,
		GridHeight:     64,
		TileEdge:       8,
		TickIntervalMs: 120,
		SeedDensity:    grid.DefaultDensity,
		Backend:        "wgpu",
		PresentMode:    "vsync",
		LogLevel:       "info",
		Window: Window{
			Width:  512,
			Height: 512,
			Title:  "Oxy Life",
		},
	}
}

// Validate reports every invalid option at once.
//
// Returns:
//   - error: the joined problems, each wrapping ErrInvalidConfig, or nil
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		invalid("grid must be positive, got %dx%d", c.GridWidth, c.GridHeight)
	}
	if c.TileEdge <= 0 || c.TileEdge > MaxTileEdge {
		invalid("tileEdge must be in 1..%d, got %d", MaxTileEdge, c.TileEdge)
	}
	if c.TickIntervalMs <= 0 {
		invalid("tickIntervalMs must be positive, got %d", c.TickIntervalMs)
	}
	if c.SeedDensity < 0 || c.SeedDensity > 1 {
		invalid("seedDensity must be in [0, 1], got %g", c.SeedDensity)
	}
	if _, ok := renderer.ParseBackendType(c.Backend); !ok {
		invalid("unknown backend %q", c.Backend)
	}
	switch c.PresentMode {
	case "", "vsync", "fifo", "uncapped", "immediate":
	default:
		invalid("unknown presentMode %q", c.PresentMode)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		invalid("logLevel: %v", err)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		invalid("window must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return errors.Join(errs...)
}

// Grid returns the grid dimensions.
func (c Config) Grid() (grid.Grid, error) {
	return grid.New(c.GridWidth, c.GridHeight)
}

// TickInterval returns the tick period as a duration.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// BackendType returns the renderer backend. Call Validate first.
func (c Config) BackendType() renderer.RendererBackendType {
	bt, _ := renderer.ParseBackendType(c.Backend)
	return bt
}

// Level returns the zap level named by LogLevel, info when it does not parse.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Load reads a YAML file over the defaults and validates the result. Keys missing from the
// file keep their default value and unknown keys are an error.
//
// Parameters:
//   - path: the YAML file
//
// Returns:
//   - Config: the loaded configuration
//   - error: a read, decode or validation error
func Load(path string) (Config, error) {
	cfg, err := decodeFile(path, Default())
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func decodeFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&base); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return base, nil
}
