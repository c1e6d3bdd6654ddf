package common

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

// twoRows returns a 1x2 image, red on top and blue at the bottom.
func twoRows() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	return img
}

func TestTextureStagingDataIsBottomRowFirst(t *testing.T) {
	data := NewTextureStagingData(twoRows())
	assert.Equal(t, uint32(1), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	assert.Equal(t, []byte{0, 0, 255, 255, 255, 0, 0, 255}, data.Pixels)
}

func TestTextureMipChain(t *testing.T) {
	levels := NewTextureMipChain(image.NewNRGBA(image.Rect(0, 0, 8, 3)))
	sizes := make([][2]uint32, len(levels))
	for i, l := range levels {
		sizes[i] = [2]uint32{l.Width, l.Height}
		assert.Len(t, l.Pixels, int(l.Width*l.Height*4), "level %d", i)
	}
	assert.Equal(t, [][2]uint32{{8, 3}, {4, 1}, {2, 1}, {1, 1}}, sizes)

	assert.Len(t, NewTextureMipChain(image.NewNRGBA(image.Rect(0, 0, 1, 1))), 1)
}

func TestSamplerStagingData(t *testing.T) {
	clamp := NewSamplerStagingData(param.InputDescriptor{Filter: param.FilterNearest, Wrap: param.WrapClamp})
	assert.Equal(t, wgpu.AddressModeClampToEdge, clamp.AddressModeU)
	assert.Equal(t, wgpu.AddressModeClampToEdge, clamp.AddressModeW)
	assert.Equal(t, wgpu.FilterModeNearest, clamp.MagFilter)
	assert.Zero(t, clamp.LodMaxClamp, "only the base level is sampled")

	mirror := NewSamplerStagingData(param.InputDescriptor{Filter: param.FilterLinear, Wrap: param.WrapMirror})
	assert.Equal(t, wgpu.AddressModeMirrorRepeat, mirror.AddressModeV)
	assert.Equal(t, wgpu.FilterModeLinear, mirror.MinFilter)
	assert.Zero(t, mirror.LodMaxClamp)

	mip := NewSamplerStagingData(param.DefaultInput())
	assert.Equal(t, wgpu.AddressModeRepeat, mip.AddressModeU)
	assert.Equal(t, wgpu.MipmapFilterModeLinear, mip.MipmapFilter)
	assert.Equal(t, float32(32), mip.LodMaxClamp)
	assert.Zero(t, mip.MaxAnisotropy)

	aniso := NewSamplerStagingData(param.InputDescriptor{Filter: param.FilterAnisotropic})
	assert.Equal(t, uint16(maxAnisotropy), aniso.MaxAnisotropy)
}

func TestSaveAndLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.png")
	require.NoError(t, SaveImage(twoRows(), path))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1, 2), img.Bounds())
	r, _, b, _ := img.At(0, 1).RGBA()
	assert.Zero(t, r)
	assert.Equal(t, uint32(0xffff), b)
}

func TestLoadImageErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadImage(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, err = LoadImage(garbage)
	assert.Error(t, err)

	assert.Error(t, SaveImage(twoRows(), filepath.Join(dir, "out.unknown")))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
	assert.Equal(t, time.Second, Coalesce(0, time.Second))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint32(256), AlignUp(uint32(4), 256))
	assert.Equal(t, uint32(256), AlignUp(uint32(256), 256))
	assert.Equal(t, uint64(512), AlignUp(uint64(260), 256))
	assert.Equal(t, 0, AlignUp(0, 16))
}
