package renderer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAdapter is returned when no GPU adapter satisfies the request.
	ErrNoAdapter = errors.New("renderer: no compatible GPU adapter")

	// ErrNoDevice is returned when the adapter refuses to create a device.
	ErrNoDevice = errors.New("renderer: device request failed")

	// ErrSurfaceUnavailable is returned when the presentation surface cannot provide a frame,
	// for example while a window is minimized or the swapchain is outdated. It is transient.
	ErrSurfaceUnavailable = errors.New("renderer: surface texture unavailable")

	// ErrResourceExhausted is returned when a buffer exceeds the device limits.
	ErrResourceExhausted = errors.New("renderer: device resource limit exceeded")

	// ErrPipelineNotFound is returned when a pipeline key is not registered.
	ErrPipelineNotFound = errors.New("renderer: pipeline not registered")

	// ErrNoFrame is returned when a pass operation runs outside its Begin/End bracket.
	ErrNoFrame = errors.New("renderer: no frame in progress")

	// ErrFrameInProgress is returned when a Begin call overlaps an unfinished frame.
	ErrFrameInProgress = errors.New("renderer: previous frame not finished")

	// ErrUsageConflict is returned when one buffer is bound both writable and read-only in the same pass.
	ErrUsageConflict = errors.New("renderer: buffer bound with conflicting usages in one pass")

	// ErrForeignResource is returned when a handle created by another backend is passed in.
	ErrForeignResource = errors.New("renderer: resource does not belong to this backend")
)

// CapabilityError reports a platform capability the renderer needs but could not get.
type CapabilityError struct {
	Backend string
	Feature string
	Err     error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("renderer: %s backend lacks %s: %v", e.Backend, e.Feature, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}
