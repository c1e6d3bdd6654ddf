package pipeline

import (
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It pairs the fullscreen vertex stage with one generated fragment stage and holds the GPU objects created for them.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string
	// version is the shader source version the fragment stage was generated from
	version uint64

	vertexShader, fragmentShader shader.Shader

	// renderPipelines holds one render pipeline per color target format. Offscreen renders and the
	// presentation surface usually use different formats.
	renderPipelines map[wgpu.TextureFormat]*wgpu.RenderPipeline
	// bindGroupLayouts holds the layouts of the globals and parameter groups, indexed by group
	bindGroupLayouts []*wgpu.BindGroupLayout
	pipelineLayout   *wgpu.PipelineLayout

	topology  wgpu.PrimitiveTopology
	writeMask wgpu.ColorWriteMask
}

// Pipeline defines a compiled shader program: a fullscreen vertex stage, a generated fragment stage,
// and the render pipeline objects created from them by the Renderer.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Version returns the shader source version this pipeline was compiled from.
	//
	// Returns:
	//   - uint64: the source version
	Version() uint64

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex or fragment)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// Discovery returns the schema discovered from the fragment source, or nil when no fragment shader is set.
	//
	// Returns:
	//   - *param.Discovery: the discovered schema
	Discovery() *param.Discovery

	// RenderPipeline returns the render pipeline created for the given target format, or nil.
	//
	// Parameters:
	//   - format: the color target format
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline or nil
	RenderPipeline(format wgpu.TextureFormat) *wgpu.RenderPipeline

	// SetRenderPipeline stores the render pipeline created for a target format.
	//
	// Parameters:
	//   - format: the color target format
	//   - rp: the render pipeline
	SetRenderPipeline(format wgpu.TextureFormat, rp *wgpu.RenderPipeline)

	// BindGroupLayout returns the layout of the given bind group, or nil if not created.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout or nil
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// SetBindGroupLayouts stores the bind group layouts, indexed by group.
	//
	// Parameters:
	//   - layouts: the layouts
	SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout)

	// PipelineLayout returns the pipeline layout, or nil if not created.
	PipelineLayout() *wgpu.PipelineLayout

	// SetPipelineLayout stores the pipeline layout.
	SetPipelineLayout(pl *wgpu.PipelineLayout)

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the topology, a triangle list by default
	Topology() wgpu.PrimitiveTopology

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the write mask, all channels by default
	WriteMask() wgpu.ColorWriteMask

	// Release releases the GPU objects held by this pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new Pipeline for the given key and source version.
// The GPU objects are created later by the Renderer.
//
// Parameters:
//   - pipelineKey: the unique identifier for the pipeline
//   - version: the shader source version the fragment shader was generated from
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the new pipeline
func NewPipeline(pipelineKey string, version uint64, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:     pipelineKey,
		version:         version,
		vertexShader:    shader.NewVertexShader(),
		renderPipelines: make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
		topology:        wgpu.PrimitiveTopologyTriangleList,
		writeMask:       wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Version() uint64 {
	return p.version
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) Discovery() *param.Discovery {
	if p.fragmentShader == nil {
		return nil
	}
	return p.fragmentShader.Discovery()
}

func (p *pipeline) RenderPipeline(format wgpu.TextureFormat) *wgpu.RenderPipeline {
	return p.renderPipelines[format]
}

func (p *pipeline) SetRenderPipeline(format wgpu.TextureFormat, rp *wgpu.RenderPipeline) {
	p.renderPipelines[format] = rp
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout) {
	p.bindGroupLayouts = layouts
}

func (p *pipeline) PipelineLayout() *wgpu.PipelineLayout {
	return p.pipelineLayout
}

func (p *pipeline) SetPipelineLayout(pl *wgpu.PipelineLayout) {
	p.pipelineLayout = pl
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) Release() {
	for format, rp := range p.renderPipelines {
		if rp != nil {
			rp.Release()
		}
		delete(p.renderPipelines, format)
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for i, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
		p.bindGroupLayouts[i] = nil
	}
}
