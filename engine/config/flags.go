package config

import (
	"flag"
	"fmt"
	"io"
)

// BindFlags registers a flag for every option, defaulting to the current value and writing
// straight into c when parsed.
//
// Parameters:
//   - fs: the flag set to register on
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.GridWidth, "grid-width", c.GridWidth, "grid columns")
	fs.IntVar(&c.GridHeight, "grid-height", c.GridHeight, "grid rows")
	fs.IntVar(&c.TileEdge, "tile-edge", c.TileEdge, "compute workgroup edge length")
	fs.IntVar(&c.TickIntervalMs, "tick-interval-ms", c.TickIntervalMs, "milliseconds between generations")
	fs.Float64Var(&c.SeedDensity, "seed-density", c.SeedDensity, "fraction of cells alive at start")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed, 0 picks one from the clock")
	fs.StringVar(&c.Backend, "backend", c.Backend, "renderer backend: wgpu or software")
	fs.StringVar(&c.PresentMode, "present-mode", c.PresentMode, "vsync or uncapped")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "listen address for /metrics, empty disables it")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&c.Profile, "profile", c.Profile, "log tick rate and memory statistics")
	fs.BoolVar(&c.ValidateShaders, "validate-shaders", c.ValidateShaders, "compile shaders with naga before creating pipelines")
	fs.IntVar(&c.Window.Width, "window-width", c.Window.Width, "window width in pixels")
	fs.IntVar(&c.Window.Height, "window-height", c.Window.Height, "window height in pixels")
	fs.StringVar(&c.Window.Title, "window-title", c.Window.Title, "window title")
}

// Parse builds the configuration for a command line. The file named by -config is loaded over
// the defaults first, then every flag given on the command line overrides it.
//
// Parameters:
//   - name: the program name used in usage output
//   - args: the arguments without the program name
//
// Returns:
//   - Config: the validated configuration
//   - string: the config file path, empty when none was given
//   - error: a flag, file or validation error; flag.ErrHelp for -h
func Parse(name string, args []string) (Config, string, error) {
	path, err := configPath(name, args)
	if err != nil {
		return Config{}, "", err
	}

	cfg := Default()
	if path != "" {
		if cfg, err = decodeFile(path, cfg); err != nil {
			return Config{}, path, err
		}
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", path, "YAML configuration file")
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, path, err
	}
	if fs.NArg() > 0 {
		return Config{}, path, fmt.Errorf("config: unexpected arguments %v", fs.Args())
	}
	return cfg, path, cfg.Validate()
}

// configPath finds -config without reporting errors for the other flags.
func configPath(name string, args []string) (string, error) {
	scratch := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("config", "", "")
	scratch.BindFlags(fs)
	if err := fs.Parse(args); err != nil && err != flag.ErrHelp {
		return "", err
	}
	return *path, nil
}
