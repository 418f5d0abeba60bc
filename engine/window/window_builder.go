package window

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-life/common"
)

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar. An empty title keeps the default.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = common.Coalesce(title, w.title)
	}
}

// WithSize sets the initial framebuffer size requested from the platform.
//
// Parameters:
//   - width: initial width in pixels, must be positive
//   - height: initial height in pixels, must be positive
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width, w.height = width, height
	}
}

// WithMinSize stops the user from shrinking the window below width x height. The simulation
// passes its grid size so every cell keeps at least one pixel. Zero leaves a dimension unbounded.
//
// Parameters:
//   - width: minimum width in pixels
//   - height: minimum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth, w.minHeight = width, height
	}
}

// newEngineWindow applies the defaults and options and checks the result. An initial size below
// the minimum is raised to it.
func newEngineWindow(options ...WindowBuilderOption) (*engineWindow, error) {
	w := &engineWindow{
		title:     "Oxy Life",
		minWidth:  64,
		minHeight: 64,
		width:     512,
		height:    512,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.width <= 0 || w.height <= 0 {
		return nil, fmt.Errorf("window: size %dx%d must be positive", w.width, w.height)
	}
	if w.minWidth < 0 || w.minHeight < 0 {
		return nil, fmt.Errorf("window: minimum size %dx%d must not be negative", w.minWidth, w.minHeight)
	}
	w.width, w.height = max(w.width, w.minWidth), max(w.height, w.minHeight)
	return w, nil
}
