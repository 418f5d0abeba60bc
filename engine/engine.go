package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-life/engine/profiler"
	"github.com/Carmen-Shannon/oxy-life/engine/window"
	"go.uber.org/zap"
)

// DefaultTickInterval is the period between ticks when none is configured.
const DefaultTickInterval = 120 * time.Millisecond

// ErrAlreadyRunning is returned by Run when the engine is already running.
var ErrAlreadyRunning = errors.New("engine: already running")

// engine implements the Engine interface.
// Coordinates the tick goroutine and the window message loop.
type engine struct {
	tickIntervalChannel chan time.Duration // Channel for dynamic tick interval updates
	tickInterval        atomic.Int64

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window
	logger *zap.Logger

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	tickCallback func(deltaTime float32) error
	ticks        atomic.Uint64
	maxTicks     uint64

	errMu sync.Mutex
	err   error
}

// Engine drives a tick callback at a fixed cadence next to the window message loop.
//
// Ticks are delivered by a time.Ticker on a dedicated goroutine and run one at a time. A tick
// that would fire while the previous callback is still running is dropped rather than queued,
// so a slow tick never builds a backlog.
type Engine interface {
	// Window returns the window, nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables tick rate and memory statistics in the log.
	EnableProfiler()

	// DisableProfiler disables profiling output.
	DisableProfiler()

	// SetTickInterval changes the period between ticks. If the engine is running the change
	// takes effect at the next tick.
	//
	// Parameters:
	//   - d: the new period, values <= 0 select DefaultTickInterval
	SetTickInterval(d time.Duration)

	// TickInterval returns the current period between ticks.
	//
	// Returns:
	//   - time.Duration: the tick period
	TickInterval() time.Duration

	// SetTickCallback registers the function called each tick. An error returned from the
	// callback stops the engine and is returned by Run.
	//
	// Parameters:
	//   - callback: function to call at the configured interval, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32) error)

	// Ticks returns the number of tick callbacks that have completed.
	//
	// Returns:
	//   - uint64: the completed tick count
	Ticks() uint64

	// Run starts the tick goroutine and blocks until the window closes, Quit is called, the
	// tick limit is reached, or a tick fails. With a window it must be called from the main thread.
	//
	// Returns:
	//   - error: the tick error that stopped the engine, or nil
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (window, tick interval, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickIntervalChannel: make(chan time.Duration, 1),
		quitChannel:         make(chan struct{}),
		logger:              zap.NewNop(),
	}
	e.tickInterval.Store(int64(DefaultTickInterval))

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info("engine started", zap.Duration("tickInterval", e.TickInterval()), zap.Uint64("maxTicks", e.maxTicks))
	e.wg.Add(1)
	go e.handleEngine()

	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.window.RequestClose()
			default:
			}
		})
		e.window.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quitChannel
	}

	e.wg.Wait()
	err := e.Err()
	e.logger.Info("engine stopped", zap.Uint64("ticks", e.Ticks()), zap.Error(err))
	return err
}

// Err returns the error that stopped the engine.
func (e *engine) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Fires the tick callback at the configured interval and listens for interval changes
// via tickIntervalChannel. Exits when the quit channel is closed or a tick fails.
func (e *engine) handleEngine() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("engine: tick panicked: %v", r))
		}
	}()

	ticker := time.NewTicker(e.TickInterval())
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				if err := e.tickCallback(dt); err != nil {
					e.fail(err)
					return
				}
			}
			n := e.ticks.Add(1)
			if e.profilingEnabled.Load() {
				e.profiler.Tick()
			}
			if e.maxTicks > 0 && n >= e.maxTicks {
				e.signalQuit()
				return
			}
		case d := <-e.tickIntervalChannel:
			ticker.Reset(d)
			e.logger.Debug("tick interval changed", zap.Duration("tickInterval", d))
		}
	}
}

func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.logger.Error("tick failed, stopping", zap.Error(err))
	e.signalQuit()
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickInterval sets the period between ticks.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultTickInterval
	}
	e.tickInterval.Store(int64(d))
	if !e.running.Load() {
		return
	}
	// Non-blocking send - if channel is full, replace the pending value
	select {
	case e.tickIntervalChannel <- d:
	default:
		select {
		case <-e.tickIntervalChannel:
		default:
		}
		select {
		case e.tickIntervalChannel <- d:
		default:
		}
	}
}

func (e *engine) TickInterval() time.Duration {
	return time.Duration(e.tickInterval.Load())
}

// SetTickCallback registers the function called each tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32) error) {
	e.tickCallback = callback
}

func (e *engine) Ticks() uint64 {
	return e.ticks.Load()
}
