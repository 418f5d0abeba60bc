package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyC     = 67  // C key (ASCII), clears the grid
	KeyN     = 78  // N key (ASCII), single step while paused
	KeyR     = 82  // R key (ASCII), reseed
	KeySpace = 32  // Spacebar (ASCII), pause/resume
	KeyMinus = 45  // - key (ASCII), slower
	KeyEqual = 61  // = key (ASCII), faster
	KeyEsc   = 256 // Escape key (GLFW)
)
