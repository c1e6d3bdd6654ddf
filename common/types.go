// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

// maxAnisotropy is the sampler anisotropy used for param.FilterAnisotropic.
const maxAnisotropy = 16

// TextureStagingData holds RGBA pixel data for a channel texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the pixel data in RGBA format, 4 bytes per pixel, bottom row first.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// NewTextureStagingData converts img to RGBA and flips it vertically, so texture coordinate
// (0, 0) samples the bottom-left pixel of the image as fragment coordinates do.
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - TextureStagingData: the staged pixels
func NewTextureStagingData(img image.Image) TextureStagingData {
	return stagingFromNRGBA(imaging.FlipV(img))
}

// NewTextureMipChain stages img (see NewTextureStagingData) followed by its mip levels, each half
// the size of the previous one, down to 1x1.
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - []TextureStagingData: the mip levels, base level first
func NewTextureMipChain(img image.Image) []TextureStagingData {
	level := imaging.FlipV(img)
	levels := []TextureStagingData{stagingFromNRGBA(level)}
	for w, h := level.Bounds().Dx(), level.Bounds().Dy(); w > 1 || h > 1; {
		w, h = max(w/2, 1), max(h/2, 1)
		level = imaging.Resize(level, w, h, imaging.Box)
		levels = append(levels, stagingFromNRGBA(level))
	}
	return levels
}

func stagingFromNRGBA(img *image.NRGBA) TextureStagingData {
	b := img.Bounds()
	return TextureStagingData{
		Pixels: img.Pix,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
	}
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// NewSamplerStagingData maps the filter and wrap settings of an input channel onto a sampler.
//
// Parameters:
//   - in: the input channel settings
//
// Returns:
//   - SamplerStagingData: the sampler configuration
func NewSamplerStagingData(in param.InputDescriptor) SamplerStagingData {
	s := SamplerStagingData{LodMaxClamp: 32}

	var mode wgpu.AddressMode
	switch in.Wrap {
	case param.WrapClamp:
		mode = wgpu.AddressModeClampToEdge
	case param.WrapMirror:
		mode = wgpu.AddressModeMirrorRepeat
	default:
		mode = wgpu.AddressModeRepeat
	}
	s.AddressModeU, s.AddressModeV, s.AddressModeW = mode, mode, mode

	switch in.Filter {
	case param.FilterNearest:
		s.MagFilter = wgpu.FilterModeNearest
		s.MinFilter = wgpu.FilterModeNearest
		s.MipmapFilter = wgpu.MipmapFilterModeNearest
		s.LodMaxClamp = 0
	case param.FilterLinear:
		s.MagFilter = wgpu.FilterModeLinear
		s.MinFilter = wgpu.FilterModeLinear
		s.MipmapFilter = wgpu.MipmapFilterModeNearest
		s.LodMaxClamp = 0
	case param.FilterAnisotropic:
		s.MagFilter = wgpu.FilterModeLinear
		s.MinFilter = wgpu.FilterModeLinear
		s.MipmapFilter = wgpu.MipmapFilterModeLinear
		s.MaxAnisotropy = maxAnisotropy
	default:
		s.MagFilter = wgpu.FilterModeLinear
		s.MinFilter = wgpu.FilterModeLinear
		s.MipmapFilter = wgpu.MipmapFilterModeLinear
	}
	return s
}

// LoadImage decodes an image file. PNG, JPEG, BMP, TIFF and WebP are supported.
//
// Parameters:
//   - path: the image file path
//
// Returns:
//   - image.Image: the decoded image
//   - error: error if the file cannot be opened or decoded
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image file %s: %w", path, err)
	}
	return img, nil
}

// SaveImage encodes img to path, choosing the format from the file extension.
//
// Parameters:
//   - img: the image to save
//   - path: the output file path
//
// Returns:
//   - error: error if the format is unsupported or the file cannot be written
func SaveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}
