package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointerFlipsToBottomLeft(t *testing.T) {
	w := &previewWindow{width: 200, height: 100}
	assert.Equal(t, [2]float32{10, 80}, w.pointer(10, 20, 1, 1))
	// framebuffer twice the window size
	w.height = 200
	assert.Equal(t, [2]float32{20, 160}, w.pointer(10, 20, 2, 2))
}

func TestMouseDrag(t *testing.T) {
	w := &previewWindow{width: 200, height: 100}

	w.move([2]float32{5, 5})
	assert.Equal(t, Mouse{}, w.Mouse(), "moves without a press are ignored")

	w.press([2]float32{10, 20})
	w.move([2]float32{30, 40})
	assert.Equal(t, Mouse{Position: [2]float32{30, 40}, Click: [2]float32{10, 20}, Pressed: true}, w.Mouse())

	w.release()
	w.move([2]float32{50, 60})
	assert.Equal(t, Mouse{Position: [2]float32{30, 40}, Click: [2]float32{10, 20}}, w.Mouse())
}

func TestWindowWithoutPlatform(t *testing.T) {
	w := &previewWindow{}
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	w.SetTitle("x")
	w.Stop()
	assert.Equal(t, "x", w.title)
}
