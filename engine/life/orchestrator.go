package life

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/metrics"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	bgp "github.com/Carmen-Shannon/oxy-life/engine/renderer/bind_group_provider"
	"go.uber.org/zap"
)

// FrameState is the position of the orchestrator within a tick.
type FrameState int32

const (
	// StateIdle is the state between ticks.
	StateIdle FrameState = iota

	// StateComputeDispatched means the compute frame of the current tick has been submitted.
	StateComputeDispatched

	// StateRenderDispatched means the render frame of the current tick has been submitted.
	StateRenderDispatched
)

func (s FrameState) String() string {
	switch s {
	case StateComputeDispatched:
		return "compute-dispatched"
	case StateRenderDispatched:
		return "render-dispatched"
	default:
		return "idle"
	}
}

// frameOrchestrator is the implementation of the FrameOrchestrator interface.
type frameOrchestrator struct {
	mu *sync.Mutex

	r     renderer.Renderer
	res   ResourceSet
	sim   SimulationPipeline
	cells RenderPipeline

	tick   atomic.Uint64
	state  atomic.Int32
	paused atomic.Bool
	fatal  error

	passOptions renderer.RenderPassOptions
	logger      *zap.Logger
	metrics     *metrics.Metrics
	onState     func(FrameState)
}

// FrameOrchestrator drives the simulation one tick at a time. Each tick submits a compute frame
// that writes the next generation, advances the tick counter, then submits a render frame that
// draws the generation just written.
//
// Ticks never overlap. The binding set of tick t is BindingSet(t mod 2); the render pass binds
// BindingSet((t+1) mod 2), whose read-only input is the buffer the compute pass just wrote.
type FrameOrchestrator interface {
	// Tick runs one compute and render cycle. While paused it does nothing.
	//
	// Returns:
	//   - error: ErrTickInProgress if another tick is running, a *OrchestrationError on a fatal
	//     renderer error, or nil. A transient surface error skips the render and returns nil.
	Tick() error

	// Step runs n ticks regardless of the pause state, stopping at the first error.
	//
	// Parameters:
	//   - n: the number of ticks
	//
	// Returns:
	//   - error: the first tick error
	Step(n int) error

	// Redraw renders the current generation without advancing it.
	//
	// Returns:
	//   - error: ErrTickInProgress, a *OrchestrationError, or nil
	Redraw() error

	// Generation returns the tick counter: the number of completed compute passes since seeding.
	Generation() uint64

	// State returns the current frame state.
	State() FrameState

	// CurrentIndex returns the index of the binding set whose output buffer holds the latest generation.
	CurrentIndex() int

	// Pause stops Tick from advancing the simulation.
	Pause()

	// Resume undoes Pause.
	Resume()

	// Paused reports whether the simulation is paused.
	Paused() bool

	// Reseed replaces the current generation with a new seed. The tick counter is kept.
	//
	// Parameters:
	//   - seed: the seed function
	//
	// Returns:
	//   - error: ErrSeedSizeMismatch, ErrBindingReleased or a write error
	Reseed(seed grid.SeedFunc) error

	// Snapshot reads back the current generation.
	//
	// Parameters:
	//   - ctx: cancels the wait for the readback
	//
	// Returns:
	//   - []uint32: the cells in row-major order
	//   - error: the context error or a readback error
	Snapshot(ctx context.Context) ([]uint32, error)
}

var _ FrameOrchestrator = &frameOrchestrator{}

// NewFrameOrchestrator wires the resources and pipelines into a tick driver. The pipelines must
// already be registered with r.
//
// Parameters:
//   - r: the renderer
//   - res: the resources, seeded
//   - sim: the simulation pipeline
//   - cells: the render pipeline
//   - options: variadic list of OrchestratorOption functions
//
// Returns:
//   - FrameOrchestrator: the orchestrator, at generation 0
//   - error: ErrInvalidGrid or ErrLayoutMismatch if the parts were built for different grids or layouts
func NewFrameOrchestrator(r renderer.Renderer, res ResourceSet, sim SimulationPipeline, cells RenderPipeline, options ...OrchestratorOption) (FrameOrchestrator, error) {
	if r == nil || res == nil || sim == nil || cells == nil {
		return nil, errors.New("life: orchestrator needs a renderer, resources and both pipelines")
	}
	g := res.Grid()
	if sim.Grid() != g || cells.Grid() != g {
		return nil, fmt.Errorf("%w: resources are %s, simulation %s, cells %s", ErrInvalidGrid, g, sim.Grid(), cells.Grid())
	}
	label := res.BindingLayout().Label
	if sim.Pipeline().Layout().Label != label || cells.Pipeline().Layout().Label != label {
		return nil, fmt.Errorf("%w: pipelines are not built against %q", ErrLayoutMismatch, label)
	}

	o := &frameOrchestrator{
		mu:          &sync.Mutex{},
		r:           r,
		res:         res,
		sim:         sim,
		cells:       cells,
		passOptions: renderer.RenderPassOptions{ClearColor: renderer.DefaultClearColor, Persist: true},
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		opt(o)
	}
	return o, nil
}

func (o *frameOrchestrator) Tick() error {
	if !o.mu.TryLock() {
		o.metrics.TickSkipped()
		return ErrTickInProgress
	}
	defer o.mu.Unlock()
	if o.paused.Load() {
		return nil
	}
	return o.tickLocked()
}

func (o *frameOrchestrator) Step(n int) error {
	for range n {
		if !o.mu.TryLock() {
			o.metrics.TickSkipped()
			return ErrTickInProgress
		}
		err := o.tickLocked()
		o.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *frameOrchestrator) Redraw() error {
	if !o.mu.TryLock() {
		return ErrTickInProgress
	}
	defer o.mu.Unlock()
	if o.fatal != nil {
		return o.fatal
	}
	return o.renderLocked(o.tick.Load())
}

// tickLocked runs one cycle. The caller holds mu.
func (o *frameOrchestrator) tickLocked() error {
	if o.fatal != nil {
		return o.fatal
	}
	start := time.Now()
	t := o.tick.Load()

	set := o.res.BindingSet(int(t % 2))
	if err := o.checkBinding(set); err != nil {
		return o.fail(t, PhaseBind, err)
	}

	if err := o.r.BeginComputeFrame(); err != nil {
		return o.fail(t, PhaseCompute, err)
	}
	if err := o.sim.Encode(o.r, set); err != nil {
		_ = o.r.EndComputeFrame()
		return o.fail(t, PhaseCompute, err)
	}
	if err := o.r.EndComputeFrame(); err != nil {
		return o.fail(t, PhaseCompute, err)
	}
	o.setState(StateComputeDispatched)

	next := t + 1
	o.tick.Store(next)
	o.metrics.TickCompleted(next, time.Since(start))

	return o.renderLocked(next)
}

// renderLocked draws the generation held by the input of BindingSet(gen mod 2) and presents it.
func (o *frameOrchestrator) renderLocked(gen uint64) error {
	defer o.setState(StateIdle)

	set := o.res.BindingSet(int(gen % 2))
	if err := o.checkBinding(set); err != nil {
		return o.fail(gen, PhaseBind, err)
	}

	if err := o.r.BeginFrame(o.passOptions); err != nil {
		if errors.Is(err, renderer.ErrSurfaceUnavailable) {
			o.metrics.FrameSkipped()
			o.logger.Debug("render skipped", zap.Uint64("generation", gen), zap.Error(err))
			return nil
		}
		return o.fail(gen, PhaseRender, err)
	}
	if err := o.cells.Encode(o.r, o.res.Geometry(), set); err != nil {
		_ = o.r.EndFrame()
		return o.fail(gen, PhaseRender, err)
	}
	if err := o.r.EndFrame(); err != nil {
		return o.fail(gen, PhaseRender, err)
	}
	o.setState(StateRenderDispatched)

	if err := o.r.Present(); err != nil {
		if errors.Is(err, renderer.ErrSurfaceUnavailable) {
			o.metrics.FrameSkipped()
			return nil
		}
		return o.fail(gen, PhasePresent, err)
	}
	return nil
}

func (o *frameOrchestrator) checkBinding(set bgp.BindGroupProvider) error {
	if o.res.Released() {
		return ErrBindingReleased
	}
	if err := set.Validate(); err != nil {
		if errors.Is(err, bgp.ErrReleased) {
			return fmt.Errorf("%w: %v", ErrBindingReleased, err)
		}
		return err
	}
	return nil
}

func (o *frameOrchestrator) fail(t uint64, phase Phase, err error) error {
	oe := &OrchestrationError{Tick: t, Phase: phase, Err: err}
	o.fatal = oe
	o.setState(StateIdle)
	o.metrics.Failure(string(phase))
	o.logger.Error("orchestration failed", zap.Uint64("tick", t), zap.String("phase", string(phase)), zap.Error(err))
	return oe
}

func (o *frameOrchestrator) setState(s FrameState) {
	if FrameState(o.state.Swap(int32(s))) == s {
		return
	}
	if o.onState != nil {
		o.onState(s)
	}
}

func (o *frameOrchestrator) Generation() uint64 {
	return o.tick.Load()
}

func (o *frameOrchestrator) State() FrameState {
	return FrameState(o.state.Load())
}

func (o *frameOrchestrator) CurrentIndex() int {
	return int((o.tick.Load() + 1) % 2)
}

func (o *frameOrchestrator) Pause() {
	o.paused.Store(true)
	o.logger.Info("paused", zap.Uint64("generation", o.tick.Load()))
}

func (o *frameOrchestrator) Resume() {
	o.paused.Store(false)
	o.logger.Info("resumed", zap.Uint64("generation", o.tick.Load()))
}

func (o *frameOrchestrator) Paused() bool {
	return o.paused.Load()
}

func (o *frameOrchestrator) Reseed(seed grid.SeedFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	// The next compute pass reads the input of BindingSet(t mod 2).
	return o.res.Reseed(seed, int(o.tick.Load()%2))
}

func (o *frameOrchestrator) Snapshot(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type result struct {
		cells []uint32
		err   error
	}
	done := make(chan result, 1)
	go func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if err := ctx.Err(); err != nil {
			done <- result{err: err}
			return
		}
		if o.res.Released() {
			done <- result{err: ErrBindingReleased}
			return
		}
		// The latest generation is the input of the set the next tick will use.
		data, err := o.r.ReadBuffer(o.res.StateBuffer(int(o.tick.Load() % 2)))
		if err != nil {
			done <- result{err: fmt.Errorf("life: reading generation %d: %w", o.tick.Load(), err)}
			return
		}
		cells, err := grid.Decode(o.res.Grid(), data)
		done <- result{cells: cells, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.cells, res.err
	}
}
