package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Mouse is the pointer state fed to iMouse. Coordinates are framebuffer pixels with the origin
// at the bottom-left corner.
type Mouse struct {
	// Position follows the pointer while the left button is held and keeps the last drag position
	// after release.
	Position [2]float32

	// Click is where the left button was last pressed.
	Click [2]float32

	// Pressed reports whether the left button is held.
	Pressed bool
}

// Window is the preview window: a GLFW window without a client API, a WebGPU surface descriptor
// and the input state the preview loop reads each frame.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events. Escape closes the window and is
	// not delivered.
	//
	// Parameters:
	//   - callback: function receiving the key code (see common.Key*)
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetTitle replaces the title bar text.
	//
	// Parameters:
	//   - title: the new title
	SetTitle(title string)

	// Mouse returns the current pointer state.
	//
	// Returns:
	//   - Mouse: the pointer state in framebuffer pixels
	Mouse() Mouse

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor for the window, created by the wgpuglfw
	// bridge for the current platform.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true until the window is closed.
	//
	// Returns:
	//   - bool: true if window is running
	IsRunning() bool

	// Close closes the window and terminates GLFW.
	//
	// Returns:
	//   - error: if the window was never initialized
	Close() error

	// Stop asks the message loop to return after the current iteration.
	Stop()

	// ProcessMessages runs the message loop on the calling thread until the window is closed,
	// calling the update callback each iteration.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

type previewWindow struct {
	title string

	// minWidth and minHeight bound interactive resizes.
	minWidth  int
	minHeight int

	width  int
	height int

	mouse Mouse

	// internalWindow holds the platform window (glfwWindow).
	internalWindow any

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
}

var _ Window = &previewWindow{}

// NewWindow creates and shows the preview window on the calling thread, which must be the main
// thread. It panics when the platform window cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &previewWindow{
		title:     "shadertoy",
		minWidth:  64,
		minHeight: 64,
		width:     640,
		height:    360,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("window: failed to create platform window: %v", err))
	}
	return w
}

func (w *previewWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *previewWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *previewWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *previewWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *previewWindow) Mouse() Mouse {
	return w.mouse
}

func (w *previewWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *previewWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *previewWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *previewWindow) Stop() {
	platformStop(w)
}

func (w *previewWindow) ProcessMessages() {
	for w.IsRunning() {
		if ok := platformProcessMessages(w); !ok {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *previewWindow) Width() int {
	return w.width
}

func (w *previewWindow) Height() int {
	return w.height
}

// pointer converts a cursor position in screen coordinates (origin top-left) into framebuffer
// pixels with the origin at the bottom-left. scaleX and scaleY are framebuffer size over window
// size.
func (w *previewWindow) pointer(x, y, scaleX, scaleY float64) [2]float32 {
	px := x * scaleX
	py := float64(w.height) - y*scaleY
	return [2]float32{float32(px), float32(py)}
}

// press records a left button press at framebuffer position p.
func (w *previewWindow) press(p [2]float32) {
	w.mouse.Pressed = true
	w.mouse.Click = p
	w.mouse.Position = p
}

// release records a left button release.
func (w *previewWindow) release() {
	w.mouse.Pressed = false
}

// move records a pointer move at framebuffer position p. The drag position only follows while
// the button is held.
func (w *previewWindow) move(p [2]float32) {
	if w.mouse.Pressed {
		w.mouse.Position = p
	}
}
