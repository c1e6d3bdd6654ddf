package session

import (
	"image"
	"time"
)

// FrameContext holds the per-frame inputs of a render that are not shader parameters.
type FrameContext struct {
	// Width and Height are the output size in pixels.
	Width, Height int

	// Time is the playback time in seconds (iTime).
	Time float32

	// TimeDelta is the time since the previous frame in seconds (iTimeDelta).
	TimeDelta float32

	// Frame is the frame number (iFrame).
	Frame int32

	// FrameRate is the playback rate in frames per second (iFrameRate).
	FrameRate float32

	// Date is the wall clock time fed to iDate. The zero time means now.
	Date time.Time

	// SampleRate is the audio sample rate (iSampleRate). Zero means 44100.
	SampleRate float32

	// RenderScale is the host render scale (iRenderScale). Zero means (1, 1).
	RenderScale [2]float32

	// MousePosition is the pointer position in pixels, origin bottom-left.
	MousePosition [2]float32

	// MouseClick is the position of the last click in pixels.
	MouseClick [2]float32

	// MousePressed reports whether the button is held.
	MousePressed bool
}

// ChannelInput is the image bound to one input channel.
type ChannelInput struct {
	// Image is the channel image, or nil for an unbound channel.
	Image image.Image

	// Time is the playback time of the channel (iChannelTime).
	Time float32
}

// RenderResult is delivered by RenderAsync.
type RenderResult struct {
	// Image is the rendered image, or nil when nothing could be rendered.
	Image image.Image

	// Err is the render error. It can be set alongside Image when the current source failed and
	// the last good program rendered the frame.
	Err error
}
