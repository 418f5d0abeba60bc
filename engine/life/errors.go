package life

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-life/engine/grid"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer"
	"github.com/Carmen-Shannon/oxy-life/engine/renderer/binding"
)

var (
	// ErrResourceExhausted matches any ResourceError caused by the device running out of room.
	ErrResourceExhausted = renderer.ErrResourceExhausted

	// ErrSeedSizeMismatch is returned when a seed does not cover exactly one state buffer.
	ErrSeedSizeMismatch = grid.ErrSeedSizeMismatch

	// ErrInvalidGrid is returned for a grid with a zero dimension.
	ErrInvalidGrid = grid.ErrInvalidGrid

	// ErrLayoutMismatch is returned when a shader declares a binding the shared layout does not allow.
	ErrLayoutMismatch = binding.ErrLayoutMismatch

	// ErrBindingReleased is returned when a binding set is used after its resources were released.
	ErrBindingReleased = errors.New("life: binding set used after release")

	// ErrInvalidTileEdge is returned for a tile edge of zero or one whose square exceeds the
	// per-workgroup invocation limit.
	ErrInvalidTileEdge = errors.New("life: invalid tile edge")

	// ErrTickInProgress is returned by Tick when the previous tick has not finished.
	ErrTickInProgress = errors.New("life: tick already in progress")
)

// ResourceError reports a failed GPU allocation together with the resource it was for.
type ResourceError struct {
	Label string
	Err   error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("life: allocating %s: %v", e.Label, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Phase names the step of a tick an OrchestrationError happened in.
type Phase string

const (
	PhaseBind    Phase = "bind"
	PhaseCompute Phase = "compute"
	PhaseRender  Phase = "render"
	PhasePresent Phase = "present"
)

// OrchestrationError is a fatal error raised while driving a tick. Once returned, every later
// tick returns the same error.
type OrchestrationError struct {
	Tick  uint64
	Phase Phase
	Err   error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("life: tick %d %s: %v", e.Tick, e.Phase, e.Err)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}
