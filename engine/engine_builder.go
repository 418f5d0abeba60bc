package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-life/engine/profiler"
	"github.com/Carmen-Shannon/oxy-life/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default profiler, for example one that samples the population.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickInterval sets the period between ticks.
// Values <= 0 will be treated as the default (120ms).
//
// Parameters:
//   - d: the tick period
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickInterval(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		if d <= 0 {
			d = DefaultTickInterval
		}
		e.tickInterval.Store(int64(d))
	}
}

// WithTickCallback registers the tick callback during construction.
func WithTickCallback(callback func(deltaTime float32) error) EngineBuilderOption {
	return func(e *engine) {
		e.tickCallback = callback
	}
}

// WithMaxTicks stops the engine after n completed ticks. Zero runs until quit.
//
// Parameters:
//   - n: the tick limit
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxTicks(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxTicks = n
	}
}

// WithWindow sets the window whose message loop Run drives. Without one the engine is headless.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger.Named("engine")
		}
	}
}
