package renderer

import (
	"image"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend
	logger      *slog.Logger

	surfaceWidth, surfaceHeight int

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	pendingPresentMode   *PresentMode
}

// Renderer defines the interface for the shader rendering system.
//
// The Renderer compiles generated fragment shaders into pipelines, caches the most recent pipeline
// per key, and runs a pipeline for a frame either into an offscreen image or onto a presentation
// surface. A failed compile leaves the cached pipeline of its key untouched.
type Renderer interface {
	// Compile creates the GPU pipeline for a fragment shader and caches it under key, releasing the
	// pipeline it replaces.
	//
	// Parameters:
	//   - key: the cache key
	//   - version: the source version the shader was generated from
	//   - fragment: the generated fragment shader
	//
	// Returns:
	//   - pipeline.Pipeline: the compiled pipeline
	//   - error: a *CompileError when the backend rejects the shader
	Compile(key string, version uint64, fragment shader.Shader) (pipeline.Pipeline, error)

	// Pipeline retrieves the cached Pipeline associated with the given key, or nil.
	//
	// Parameters:
	//   - key: the cache key
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline or nil
	Pipeline(key string) pipeline.Pipeline

	// Render runs p for one frame and reads the result back.
	//
	// Parameters:
	//   - p: a pipeline returned by Compile
	//   - frame: the frame inputs
	//
	// Returns:
	//   - *image.RGBA: the rendered image, top row first
	//   - error: an error if rendering or readback fails
	Render(p pipeline.Pipeline, frame Frame) (*image.RGBA, error)

	// Present runs p for one frame into the presentation surface. The surface is reconfigured
	// when the frame size changes.
	//
	// Parameters:
	//   - p: a pipeline returned by Compile
	//   - frame: the frame inputs
	//
	// Returns:
	//   - error: an error if the renderer has no surface or rendering fails
	Present(p pipeline.Pipeline, frame Frame) error

	// SetPresentMode sets the surface present mode. It takes effect on the next surface configuration.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Info describes the GPU adapter in use.
	//
	// Returns:
	//   - Info: the adapter description
	Info() Info

	// Release releases every cached pipeline and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type. Without WithSurfaceDescriptor
// the renderer is headless and Present fails.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		logger:        slog.Default(),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(r.surfaceDescriptor, r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	info := r.backend.Info()
	r.logger.Debug("[Renderer] adapter ready", "adapter", info.Adapter, "backend", info.Backend, "type", info.AdapterType)
	return r
}

func (r *renderer) Compile(key string, version uint64, fragment shader.Shader) (pipeline.Pipeline, error) {
	p := pipeline.NewPipeline(key, version, pipeline.WithFragmentShader(fragment))
	if err := r.backend.RegisterRenderPipeline(p); err != nil {
		r.logger.Debug("[Renderer] compile failed", "key", key, "version", version, "error", err)
		return nil, err
	}

	r.mu.Lock()
	old := r.pipelineCache[key]
	r.pipelineCache[key] = p
	r.mu.Unlock()

	if old != nil {
		r.backend.ReleasePipeline(old)
	}
	r.logger.Debug("[Renderer] compiled", "key", key, "version", version)
	return p, nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Render(p pipeline.Pipeline, frame Frame) (*image.RGBA, error) {
	if p.Shader(shader.ShaderTypeFragment) == nil {
		return nil, errNoFragmentShader
	}
	return r.backend.RenderOffscreen(p, frame)
}

func (r *renderer) Present(p pipeline.Pipeline, frame Frame) error {
	if !r.backend.HasSurface() {
		return errNoSurface
	}
	if p.Shader(shader.ShaderTypeFragment) == nil {
		return errNoFragmentShader
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return errInvalidFrameSize
	}

	r.mu.Lock()
	resized := frame.Width != r.surfaceWidth || frame.Height != r.surfaceHeight
	r.surfaceWidth, r.surfaceHeight = frame.Width, frame.Height
	r.mu.Unlock()
	if resized {
		r.backend.ConfigureSurface(frame.Width, frame.Height)
	}

	return r.backend.RenderSurface(p, frame)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)

	r.mu.Lock()
	r.surfaceWidth, r.surfaceHeight = 0, 0
	r.mu.Unlock()
}

func (r *renderer) Info() Info {
	return r.backend.Info()
}

func (r *renderer) Release() {
	r.mu.Lock()
	for key := range r.pipelineCache {
		delete(r.pipelineCache, key)
	}
	r.mu.Unlock()

	r.backend.Release()
}
