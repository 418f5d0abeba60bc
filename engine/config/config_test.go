package config

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	g, err := cfg.Grid()
	require.NoError(t, err)
	assert.Equal(t, grid.Grid{Width: 64, Height: 64}, g)
	assert.Equal(t, 8, cfg.TileEdge)
	assert.Equal(t, 120*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 0.4, cfg.SeedDensity)
	assert.Equal(t, renderer.BackendTypeWGPU, cfg.BackendType())
	assert.Equal(t, zapcore.InfoLevel, cfg.Level())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.GridWidth = 0 }},
		{"negative height", func(c *Config) { c.GridHeight = -1 }},
		{"zero tile", func(c *Config) { c.TileEdge = 0 }},
		{"tile too large", func(c *Config) { c.TileEdge = MaxTileEdge + 1 }},
		{"zero interval", func(c *Config) { c.TickIntervalMs = 0 }},
		{"density above one", func(c *Config) { c.SeedDensity = 1.5 }},
		{"unknown backend", func(c *Config) { c.Backend = "metal" }},
		{"unknown present mode", func(c *Config) { c.PresentMode = "mailbox" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
		{"empty window", func(c *Config) { c.Window.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := Default()
	cfg.GridWidth, cfg.TileEdge = 0, 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grid must be positive")
	assert.Contains(t, err.Error(), "tileEdge")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "life.yaml")
	writeFile(t, path, `
gridWidth: 100
gridHeight: 40
tickIntervalMs: 30
backend: software
window:
  title: Test
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.GridWidth)
	assert.Equal(t, 40, cfg.GridHeight)
	assert.Equal(t, 30*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, renderer.BackendTypeSoftware, cfg.BackendType())
	assert.Equal(t, "Test", cfg.Window.Title)
	assert.Equal(t, 512, cfg.Window.Width, "missing keys keep defaults")
	assert.Equal(t, 8, cfg.TileEdge)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	unknown := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknown, "gridSize: 10\n")
	_, err = Load(unknown)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	writeFile(t, invalid, "tileEdge: 64\n")
	_, err = Load(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "")
	cfg, err := Load(empty)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestBindFlags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)

	require.NoError(t, fs.Parse([]string{"-grid-width", "32", "-backend", "software", "-profile", "-seed", "7"}))
	assert.Equal(t, 32, cfg.GridWidth)
	assert.Equal(t, 64, cfg.GridHeight)
	assert.Equal(t, "software", cfg.Backend)
	assert.True(t, cfg.Profile)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestParseLayersFlagsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "life.yaml")
	writeFile(t, path, "gridWidth: 100\ntickIntervalMs: 30\n")

	cfg, got, err := Parse("oxy-life", []string{"-tick-interval-ms", "50", "-config", path})
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, 100, cfg.GridWidth)
	assert.Equal(t, 50, cfg.TickIntervalMs)

	cfg, got, err = Parse("oxy-life", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, Default(), cfg)

	_, _, err = Parse("oxy-life", []string{"-tile-edge", "0"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, _, err = Parse("oxy-life", []string{"extra"})
	assert.Error(t, err)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "life.yaml")
	writeFile(t, path, "tickIntervalMs: 120\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 4)
	require.NoError(t, Watch(ctx, path, func(c Config) { reloaded <- c }, WithDebounce(50*time.Millisecond)))

	// An invalid file is skipped and the next valid one is delivered.
	writeFile(t, path, "tickIntervalMs: -5\n")
	time.Sleep(250 * time.Millisecond)
	writeFile(t, path, "tickIntervalMs: 40\n")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 40*time.Millisecond, cfg.TickInterval())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "life.yaml"), func(Config) {})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}
