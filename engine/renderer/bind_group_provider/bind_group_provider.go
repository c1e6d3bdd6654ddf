package bind_group_provider

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// bindGroup is the GPU bind group built from the current resources, or nil until the Renderer builds it.
	bindGroup *wgpu.BindGroup
	// dirty is set whenever a resource changes after the bind group was built.
	dirty bool

	// buffers holds the GPU buffers of this group, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textures holds the textures backing textureViews, keyed by binding index.
	textures map[int]*wgpu.Texture
	// textureViews holds the GPU texture views of this group, keyed by binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the samplers of this group, keyed by binding index. Samplers are shared
	// between groups and are not released by the provider.
	samplers map[int]*wgpu.Sampler
}

// BindGroupProvider collects the GPU resources of one bind group and the bind group built from them.
//
// Usage pattern:
//  1. The Renderer creates a provider per bind group and stores buffers, textures and samplers on it
//  2. When Dirty reports true, the Renderer builds a bind group from Entries and stores it via SetBindGroup
//  3. Per-frame uniform data is uploaded with BufferWrites targeting the provider's buffers
//  4. The render pass binds BindGroup()
type BindGroupProvider interface {
	// Release releases the buffers, textures and bind group held by this provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the bind group built from the current resources.
	// Returns nil if it has not been built.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// SetBindGroup stores a freshly built bind group, releasing the previous one and clearing Dirty.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// Dirty reports whether the bind group must be rebuilt.
	//
	// Returns:
	//   - bool: true when there is no bind group or a resource changed since it was built
	Dirty() bool

	// Buffer returns the buffer for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// SetTexture stores a texture and its view for a specific binding, releasing the ones they replace.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tex: the texture backing the view
	//   - view: the texture view to bind
	SetTexture(binding int, tex *wgpu.Texture, view *wgpu.TextureView)

	// Sampler returns the sampler for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// SetSampler stores a shared sampler for a specific binding. Setting the sampler already bound
	// leaves Dirty unchanged.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler
	SetSampler(binding int, s *wgpu.Sampler)

	// Entries returns the bind group entries for every resource set on the provider, ordered by binding.
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: the bind group entries
	Entries() []wgpu.BindGroupEntry
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a debug label for the provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		dirty:        true,
		buffers:      make(map[int]*wgpu.Buffer),
		textures:     make(map[int]*wgpu.Texture),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
	p.dirty = bg == nil
}

func (p *bindGroupProvider) Dirty() bool {
	return p.dirty
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) SetTexture(binding int, tex *wgpu.Texture, view *wgpu.TextureView) {
	if old := p.textureViews[binding]; old != nil && old != view {
		old.Release()
	}
	if old := p.textures[binding]; old != nil && old != tex {
		old.Release()
	}
	p.textures[binding] = tex
	p.textureViews[binding] = view
	p.dirty = true
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	if cur, ok := p.samplers[binding]; ok && cur == s {
		return
	}
	p.samplers[binding] = s
	p.dirty = true
}

func (p *bindGroupProvider) Entries() []wgpu.BindGroupEntry {
	entries := make([]wgpu.BindGroupEntry, 0, len(p.buffers)+len(p.textureViews)+len(p.samplers))
	for binding, buf := range p.buffers {
		if buf == nil {
			continue
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(binding),
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		})
	}
	for binding, tv := range p.textureViews {
		if tv == nil {
			continue
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(binding),
			TextureView: tv,
		})
	}
	for binding, s := range p.samplers {
		if s == nil {
			continue
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(binding),
			Sampler: s,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Binding < entries[j].Binding
	})
	return entries
}

func (p *bindGroupProvider) Release() {
	for i, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, i)
	}
	for i, tex := range p.textures {
		if tex != nil {
			tex.Release()
		}
		delete(p.textures, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	for i := range p.samplers {
		delete(p.samplers, i)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	p.dirty = true
}
