package life

import (
	"github.com/Carmen-Shannon/oxy-life/engine/metrics"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// OrchestratorOption is a functional option used to configure a FrameOrchestrator during construction.
type OrchestratorOption func(*frameOrchestrator)

// WithLogger sets the orchestrator's logger.
//
// Parameters:
//   - logger: the logger, named "life" on use
//
// Returns:
//   - OrchestratorOption: a function that sets the logger
func WithLogger(logger *zap.Logger) OrchestratorOption {
	return func(o *frameOrchestrator) {
		if logger != nil {
			o.logger = logger.Named("life")
		}
	}
}

// WithMetrics records ticks, skipped ticks, skipped frames and failures. A nil value disables metrics.
func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *frameOrchestrator) {
		o.metrics = m
	}
}

// WithClearColor sets the color the render pass clears to before drawing the cells.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - OrchestratorOption: a function that sets the clear color
func WithClearColor(color wgpu.Color) OrchestratorOption {
	return func(o *frameOrchestrator) {
		o.passOptions.ClearColor = color
	}
}

// WithStateHook calls fn on every frame state transition, from the goroutine running the tick.
func WithStateHook(fn func(FrameState)) OrchestratorOption {
	return func(o *frameOrchestrator) {
		o.onState = fn
	}
}
