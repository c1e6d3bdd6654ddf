package common

// Virtual key codes for the preview window key bindings.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyR     = 82  // R key (ASCII), recompile
	KeyD     = 68  // D key (ASCII), reset parameters to defaults
	KeyP     = 80  // P key (ASCII), print parameters
	KeySpace = 32  // Spacebar (ASCII), pause
	KeyEsc   = 256 // Escape key (GLFW), quit
)
