package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Carmen-Shannon/oxy-life/common"
	"github.com/Carmen-Shannon/oxy-life/engine"
	"github.com/Carmen-Shannon/oxy-life/engine/config"
	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/life"
	"github.com/Carmen-Shannon/oxy-life/engine/metrics"
	"github.com/Carmen-Shannon/oxy-life/engine/profiler"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	minTickInterval = 10 * time.Millisecond
	maxTickInterval = 2 * time.Second
	sampleTimeout   = time.Second
)

// app owns one running simulation: the renderer, its resources, the orchestrator and the engine
// driving it.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	r       renderer.Renderer
	res     life.ResourceSet
	orch    life.FrameOrchestrator
	metrics *metrics.Metrics
	engine  engine.Engine

	// rng is only used from the goroutine handling input.
	rng *rand.Rand
}

func newApp(cfg config.Config, logger *zap.Logger, surface renderer.SurfaceSource, reg prometheus.Registerer, options ...engine.EngineBuilderOption) (_ *app, err error) {
	g, err := cfg.Grid()
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	a := &app{cfg: cfg, logger: logger, rng: rand.New(rand.NewSource(seed))}
	// Everything allocated before a failed step is released here.
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.r, err = renderer.NewRenderer(cfg.BackendType(), surface,
		renderer.WithPresentMode(renderer.ParsePresentMode(cfg.PresentMode)),
		renderer.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	a.res, err = life.NewResourceSet(a.r, g, grid.RandomSeed(a.rng, cfg.SeedDensity), life.WithResourceLogger(logger))
	if err != nil {
		return nil, err
	}
	sim, err := life.NewSimulationPipeline(g, uint32(cfg.TileEdge), a.res.BindingLayout(), life.WithShaderValidation(cfg.ValidateShaders))
	if err != nil {
		return nil, err
	}
	cells, err := life.NewRenderPipeline(g, a.res.BindingLayout(), life.WithShaderValidation(cfg.ValidateShaders))
	if err != nil {
		return nil, err
	}
	if err := a.r.RegisterPipelines(sim.Pipeline(), cells.Pipeline()); err != nil {
		return nil, err
	}

	if reg != nil {
		if a.metrics, err = metrics.New(reg, ""); err != nil {
			return nil, err
		}
	}
	a.orch, err = life.NewFrameOrchestrator(a.r, a.res, sim, cells,
		life.WithLogger(logger),
		life.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}

	prof := profiler.NewProfiler(profiler.WithLogger(logger), profiler.WithSampler(a.sample))
	a.engine = engine.NewEngine(append([]engine.EngineBuilderOption{
		engine.WithLogger(logger),
		engine.WithTickInterval(cfg.TickInterval()),
		engine.WithProfiler(prof),
		engine.WithProfiling(cfg.Profile),
		engine.WithTickCallback(a.tick),
	}, options...)...)

	logger.Info("simulation ready",
		zap.Uint32("width", g.Width),
		zap.Uint32("height", g.Height),
		zap.Int("tileEdge", cfg.TileEdge),
		zap.Int64("seed", seed),
		zap.Stringer("backend", cfg.BackendType()),
	)
	return a, nil
}

// tick is the engine callback. A tick that overlaps an input-driven step is dropped.
func (a *app) tick(float32) error {
	err := a.orch.Tick()
	if errors.Is(err, life.ErrTickInProgress) {
		a.logger.Debug("tick skipped", zap.Uint64("generation", a.orch.Generation()))
		return nil
	}
	return err
}

// sample reports the population of the current generation to the profiler and the metrics.
func (a *app) sample() []zap.Field {
	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()
	fields := []zap.Field{
		zap.Uint64("generation", a.orch.Generation()),
		zap.Bool("paused", a.orch.Paused()),
	}
	cells, err := a.orch.Snapshot(ctx)
	if err != nil {
		return append(fields, zap.NamedError("sampleError", err))
	}
	population := grid.Population(cells)
	a.metrics.SetPopulation(population)
	return append(fields, zap.Int("population", population))
}

// handleKey maps key presses to simulation controls.
func (a *app) handleKey(keyCode uint32) {
	var err error
	switch keyCode {
	case common.KeySpace:
		if a.orch.Paused() {
			a.orch.Resume()
		} else {
			a.orch.Pause()
		}
		a.logger.Info("pause toggled", zap.Bool("paused", a.orch.Paused()))
	case common.KeyN:
		if !a.orch.Paused() {
			return
		}
		err = a.orch.Step(1)
	case common.KeyR:
		err = a.reseed(grid.RandomSeed(a.rng, a.cfg.SeedDensity))
	case common.KeyC:
		err = a.reseed(grid.AllDead)
	case common.KeyMinus:
		a.setTickInterval(a.engine.TickInterval() * 2)
	case common.KeyEqual:
		a.setTickInterval(a.engine.TickInterval() / 2)
	case common.KeyEsc:
		a.engine.Quit()
	default:
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, life.ErrTickInProgress):
		a.logger.Debug("input ignored while ticking", zap.Uint32("key", keyCode))
	default:
		a.logger.Error("input failed", zap.Uint32("key", keyCode), zap.Error(err))
	}
}

func (a *app) reseed(seed grid.SeedFunc) error {
	if err := a.orch.Reseed(seed); err != nil {
		return err
	}
	return a.orch.Redraw()
}

func (a *app) setTickInterval(d time.Duration) {
	d = max(minTickInterval, min(d, maxTickInterval))
	a.engine.SetTickInterval(d)
	a.logger.Info("tick interval changed", zap.Duration("tickInterval", d))
}

// handleResize reconfigures the surface. A paused simulation is redrawn so the window is not left blank.
func (a *app) handleResize(width, height int) {
	if err := a.r.Resize(width, height); err != nil {
		a.logger.Warn("resize failed", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
		return
	}
	if a.orch.Paused() {
		if err := a.orch.Redraw(); err != nil && !errors.Is(err, life.ErrTickInProgress) {
			a.logger.Warn("redraw after resize failed", zap.Error(err))
		}
	}
}

// applyConfig takes the settings that can change while running from a reloaded file.
func (a *app) applyConfig(cfg config.Config) {
	if cfg.TickInterval() != a.engine.TickInterval() {
		a.engine.SetTickInterval(cfg.TickInterval())
		a.logger.Info("tick interval reloaded", zap.Duration("tickInterval", cfg.TickInterval()))
	}
	if cfg.Profile {
		a.engine.EnableProfiler()
	} else {
		a.engine.DisableProfiler()
	}
	if cfg.GridWidth != a.cfg.GridWidth || cfg.GridHeight != a.cfg.GridHeight || cfg.TileEdge != a.cfg.TileEdge || cfg.Backend != a.cfg.Backend {
		a.logger.Warn("grid, tile and backend changes take effect after a restart")
	}
}

// run draws the seeded generation and blocks in the engine until it stops.
func (a *app) run() error {
	if err := a.orch.Redraw(); err != nil {
		return fmt.Errorf("drawing the seed: %w", err)
	}
	return a.engine.Run()
}

// Close releases the GPU resources. The engine must have stopped.
func (a *app) Close() {
	if a.res != nil {
		a.res.Release()
	}
	if a.r != nil {
		a.r.Release()
	}
}
