package renderer

import (
	"fmt"
	"image"
	"reflect"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-shadertoy/common"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// offscreenFormat is the color format of offscreen render targets and of the images read back from them.
const offscreenFormat = wgpu.TextureFormatRGBA8Unorm

// programResources holds the bind groups of one compiled pipeline.
type programResources struct {
	globals bind_group_provider.BindGroupProvider
	params  bind_group_provider.BindGroupProvider
	// sources holds the image uploaded to each channel texture, nil for the black placeholder
	sources []image.Image
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeFifo (VSync)
	software      bool

	programs map[pipeline.Pipeline]*programResources
	samplers map[common.SamplerStagingData]*wgpu.Sampler
}

type wgpuRendererBackend interface {
	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// HasSurface reports whether the backend was created with a presentation surface.
	HasSurface() bool

	// RegisterRenderPipeline creates the shader modules, bind group layouts and pipeline layout of p,
	// and the render pipeline targeting the offscreen format.
	//
	// Parameters:
	//   - p: the pipeline holding the vertex and fragment shaders
	//
	// Returns:
	//   - error: a *CompileError if the backend rejects a shader, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RenderOffscreen draws one frame of p into an offscreen target and reads it back.
	//
	// Parameters:
	//   - p: a registered pipeline
	//   - frame: the frame inputs
	//
	// Returns:
	//   - *image.RGBA: the rendered image, top row first
	//   - error: an error if GPU resources could not be created or the readback failed
	RenderOffscreen(p pipeline.Pipeline, frame Frame) (*image.RGBA, error)

	// RenderSurface draws one frame of p into the presentation surface and presents it.
	//
	// Parameters:
	//   - p: a registered pipeline
	//   - frame: the frame inputs, sized like the configured surface
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired or rendering failed
	RenderSurface(p pipeline.Pipeline, frame Frame) error

	// ReleasePipeline releases p and the bind groups created for it.
	//
	// Parameters:
	//   - p: the pipeline to release
	ReleasePipeline(p pipeline.Pipeline)

	// Info describes the adapter in use.
	Info() Info

	// Release releases every GPU object held by the backend.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		software:    forceFallbackAdapter,
		programs:    make(map[pipeline.Pipeline]*programResources),
		samplers:    make(map[common.SamplerStagingData]*wgpu.Sampler),
	}
	if surfaceDescriptor != nil {
		w.surface = w.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(fmt.Sprintf("renderer: failed to request adapter: %v", err))
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Shader Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("renderer: failed to request device: %v", err))
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) HasSurface() bool {
	return b.surface != nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if fragmentShader == nil {
		return errNoFragmentShader
	}

	globalsEntries := []wgpu.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: wgpu.ShaderStageFragment,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: fragmentShader.GlobalsLayout().Size,
		},
	}}
	for k := 0; k < fragmentShader.Channels(); k++ {
		globalsEntries = append(globalsEntries,
			wgpu.BindGroupLayoutEntry{
				Binding:    uint32(shader.ChannelTextureBinding(k)),
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			wgpu.BindGroupLayoutEntry{
				Binding:    uint32(shader.ChannelSamplerBinding(k)),
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		)
	}
	globalsLayout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   p.PipelineKey() + " Globals Layout",
		Entries: globalsEntries,
	})
	if err != nil {
		return fmt.Errorf("failed to create bind group layout for group %d: %w", shader.GlobalsGroup, err)
	}
	paramsLayout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: p.PipelineKey() + " Params Layout",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: fragmentShader.ParamLayout().Size,
			},
		}},
	})
	if err != nil {
		globalsLayout.Release()
		return fmt.Errorf("failed to create bind group layout for group %d: %w", shader.ParamsGroup, err)
	}
	p.SetBindGroupLayouts([]*wgpu.BindGroupLayout{globalsLayout, paramsLayout})

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{globalsLayout, paramsLayout},
	})
	if err != nil {
		p.Release()
		return err
	}
	p.SetPipelineLayout(pipelineLayout)

	if _, err := b.renderPipeline(p, offscreenFormat); err != nil {
		p.Release()
		return err
	}
	return nil
}

// renderPipeline returns the render pipeline of p for format, creating it on first use.
// Caller must hold b.mu.
func (b *wgpuRendererBackendImpl) renderPipeline(p pipeline.Pipeline, format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if rp := p.RenderPipeline(format); rp != nil {
		return rp, nil
	}

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex module: %w", err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return nil, newCompileError(fragmentShader, err)
	}
	defer fs.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: p.PipelineLayout(),
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: p.WriteMask(),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, newCompileError(fragmentShader, err)
	}

	p.SetRenderPipeline(format, created)
	return created, nil
}

// prepareResources creates or updates the bind groups of p for frame and uploads the uniform blocks.
// Caller must hold b.mu.
func (b *wgpuRendererBackendImpl) prepareResources(p pipeline.Pipeline, frame Frame) (*programResources, error) {
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	globalsLayout := fragmentShader.GlobalsLayout()
	paramLayout := fragmentShader.ParamLayout()

	res, ok := b.programs[p]
	if !ok {
		globalsBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.PipelineKey() + " Globals Buffer",
			Size:  globalsLayout.Size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		paramsBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.PipelineKey() + " Params Buffer",
			Size:  paramLayout.Size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			globalsBuf.Release()
			return nil, err
		}
		res = &programResources{
			globals: bind_group_provider.NewBindGroupProvider(p.PipelineKey()+" Globals", bind_group_provider.WithBuffer(0, globalsBuf)),
			params:  bind_group_provider.NewBindGroupProvider(p.PipelineKey()+" Params", bind_group_provider.WithBuffer(0, paramsBuf)),
			sources: make([]image.Image, fragmentShader.Channels()),
		}
		for k := range res.sources {
			if err := b.uploadChannel(res, k, nil); err != nil {
				res.globals.Release()
				res.params.Release()
				return nil, err
			}
		}
		b.programs[p] = res
	}

	for k := range res.sources {
		ch := frame.channel(k)
		if !sameImage(res.sources[k], ch.Image) {
			if err := b.uploadChannel(res, k, ch.Image); err != nil {
				return nil, err
			}
		}
		s, err := b.sampler(common.NewSamplerStagingData(ch.Input))
		if err != nil {
			return nil, err
		}
		res.globals.SetSampler(shader.ChannelSamplerBinding(k), s)
	}

	for _, provider := range []bind_group_provider.BindGroupProvider{res.globals, res.params} {
		if !provider.Dirty() {
			continue
		}
		group := shader.GlobalsGroup
		if provider == res.params {
			group = shader.ParamsGroup
		}
		bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   provider.Label() + " Bind Group",
			Layout:  p.BindGroupLayout(group),
			Entries: provider.Entries(),
		})
		if err != nil {
			return nil, err
		}
		provider.SetBindGroup(bg)
	}

	params := frame.Params
	if uint64(len(params)) != paramLayout.Size {
		padded := make([]byte, paramLayout.Size)
		copy(padded, params)
		params = padded
	}
	b.writeBuffers([]bind_group_provider.BufferWrite{
		{Provider: res.globals, Binding: 0, Data: frame.Globals.Marshal(globalsLayout)},
		{Provider: res.params, Binding: 0, Data: params},
	})
	return res, nil
}

// uploadChannel replaces the texture of channel k with img and its mip chain, or with a 1x1 black
// texture when img is nil. Caller must hold b.mu.
func (b *wgpuRendererBackendImpl) uploadChannel(res *programResources, k int, img image.Image) error {
	levels := []common.TextureStagingData{{Pixels: []byte{0, 0, 0, 255}, Width: 1, Height: 1}}
	if img != nil && !img.Bounds().Empty() {
		levels = common.NewTextureMipChain(img)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     fmt.Sprintf("%s iChannel%d", res.globals.Label(), k),
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              levels[0].Width,
			Height:             levels[0].Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: uint32(len(levels)),
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	for level, staging := range levels {
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: uint32(level),
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			staging.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  staging.Width * 4,
				RowsPerImage: staging.Height,
			},
			&wgpu.Extent3D{
				Width:              staging.Width,
				Height:             staging.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	res.globals.SetTexture(shader.ChannelTextureBinding(k), tex, view)
	res.sources[k] = img
	return nil
}

// sampler returns the shared sampler for data, creating it on first use. Caller must hold b.mu.
func (b *wgpuRendererBackendImpl) sampler(data common.SamplerStagingData) (*wgpu.Sampler, error) {
	if s, ok := b.samplers[data]; ok {
		return s, nil
	}
	s, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Channel Sampler",
		AddressModeU:  common.Coalesce(data.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(data.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(data.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     data.MagFilter,
		MinFilter:     data.MinFilter,
		MipmapFilter:  data.MipmapFilter,
		LodMinClamp:   data.LodMinClamp,
		LodMaxClamp:   data.LodMaxClamp,
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, err
	}
	b.samplers[data] = s
	return s, nil
}

// writeBuffers writes staged uniform data to the GPU queue. Caller must hold b.mu.
func (b *wgpuRendererBackendImpl) writeBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

// encodePass records the fullscreen draw of p into view. Caller must hold b.mu.
func (b *wgpuRendererBackendImpl) encodePass(encoder *wgpu.CommandEncoder, view *wgpu.TextureView, format wgpu.TextureFormat, p pipeline.Pipeline, frame Frame) error {
	rp, err := b.renderPipeline(p, format)
	if err != nil {
		return err
	}
	res, err := b.prepareResources(p, frame)
	if err != nil {
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(rp)
	pass.SetBindGroup(shader.GlobalsGroup, res.globals.BindGroup(), nil)
	pass.SetBindGroup(shader.ParamsGroup, res.params.BindGroup(), nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	return nil
}

func (b *wgpuRendererBackendImpl) RenderOffscreen(p pipeline.Pipeline, frame Frame) (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, errInvalidFrameSize
	}
	width, height := uint32(frame.Width), uint32(frame.Height)
	size := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}

	target, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         p.PipelineKey() + " Offscreen Target",
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        offscreenFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	defer target.Release()

	view, err := target.CreateView(nil)
	if err != nil {
		return nil, err
	}
	defer view.Release()

	unpaddedRow := width * 4
	paddedRow := common.AlignUp(unpaddedRow, uint32(wgpu.CopyBytesPerRowAlignment))
	readSize := uint64(paddedRow) * uint64(height)
	readBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.PipelineKey() + " Readback Buffer",
		Size:  readSize,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer readBuf.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()

	if err := b.encodePass(encoder, view, offscreenFormat, p, frame); err != nil {
		return nil, err
	}
	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  target,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: readBuf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  paddedRow,
				RowsPerImage: height,
			},
		},
		&size,
	)
	if err != nil {
		return nil, err
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var status wgpu.BufferMapAsyncStatus
	err = readBuf.MapAsync(wgpu.MapModeRead, 0, readSize, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, err
	}
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, errMapReadback
	}

	mapped := readBuf.GetMappedRange(0, uint(readSize))
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		src := mapped[uint32(y)*paddedRow : uint32(y)*paddedRow+unpaddedRow]
		copy(img.Pix[y*img.Stride:], src)
	}
	readBuf.Unmap()

	return img, nil
}

func (b *wgpuRendererBackendImpl) RenderSurface(p pipeline.Pipeline, frame Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || b.surfaceFormat == nil {
		return errNoSurface
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	if err := b.encodePass(encoder, view, *b.surfaceFormat, p, frame); err != nil {
		return err
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	return nil
}

func (b *wgpuRendererBackendImpl) ReleasePipeline(p pipeline.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if res, ok := b.programs[p]; ok {
		res.globals.Release()
		res.params.Release()
		delete(b.programs, p)
	}
	p.Release()
}

func (b *wgpuRendererBackendImpl) Info() Info {
	info := b.adapter.GetInfo()
	return Info{
		Adapter:     info.Name,
		Driver:      info.DriverDescription,
		Backend:     info.BackendType.String(),
		AdapterType: info.AdapterType.String(),
		Software:    b.software,
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for p, res := range b.programs {
		res.globals.Release()
		res.params.Release()
		p.Release()
		delete(b.programs, p)
	}
	for key, s := range b.samplers {
		s.Release()
		delete(b.samplers, key)
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
}

// sameImage reports whether a and b are the same image value. Images that are not pointers never compare equal.
func sameImage(a, b image.Image) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != reflect.Pointer || vb.Kind() != reflect.Pointer || va.Type() != vb.Type() {
		return false
	}
	return va.Pointer() == vb.Pointer()
}
