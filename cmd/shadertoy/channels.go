package main

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Carmen-Shannon/oxy-shadertoy/common"
	"github.com/Carmen-Shannon/oxy-shadertoy/config"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/session"
)

// loadChannels decodes the channel images concurrently. Unbound channels stay empty.
func loadChannels(ctx context.Context, paths []string) ([]session.ChannelInput, error) {
	inputs := make([]session.ChannelInput, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		if path == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := common.LoadImage(path)
			if err != nil {
				return fmt.Errorf("channel %d: %w", i, err)
			}
			inputs[i] = session.ChannelInput{Image: img}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// outputSize picks the render size for a bounding box selection. Selections that cannot be
// resolved from the bound channel images fall back to the configured size.
func outputSize(b param.BBox, width, height int, inputs []session.ChannelInput, enabled func(k int) bool) (int, int) {
	size := func(k int) (image.Rectangle, bool) {
		if k < 0 || k >= len(inputs) || inputs[k].Image == nil || !enabled(k) {
			return image.Rectangle{}, false
		}
		bounds := inputs[k].Image.Bounds()
		return image.Rect(0, 0, bounds.Dx(), bounds.Dy()), true
	}

	var r image.Rectangle
	found := false
	switch b {
	case param.BBoxUnion, param.BBoxIntersection:
		for k := range inputs {
			rk, ok := size(k)
			if !ok {
				continue
			}
			switch {
			case !found:
				r = rk
			case b == param.BBoxUnion:
				r = r.Union(rk)
			default:
				r = r.Intersect(rk)
			}
			found = true
		}
	default:
		if k, ok := b.Channel(); ok {
			r, found = size(k)
		}
	}
	if !found || r.Empty() {
		return width, height
	}
	return r.Dx(), r.Dy()
}

// framePath returns the output path of frame i of n. A single frame is written to out itself.
func framePath(out string, i, n int) string {
	if n <= 1 {
		return out
	}
	ext := filepath.Ext(out)
	return fmt.Sprintf("%s_%04d%s", strings.TrimSuffix(out, ext), i, ext)
}

// applyOverrides sets the values named in the configuration. Each literal is parsed with the
// type of the live slot of that name.
func applyOverrides(s session.Session, values []config.Value) error {
	for _, v := range values {
		var typ param.UniformType
		for _, snap := range s.SlotViews() {
			if snap.Live() && snap.Name == v.Name {
				typ = snap.Type
				break
			}
		}
		if typ == param.UniformTypeNone {
			return fmt.Errorf("no parameter named %q", v.Name)
		}
		value, err := param.ParseValue(typ, v.Value)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", v.Name, err)
		}
		if err := s.SetSlotValueByName(v.Name, value); err != nil {
			return fmt.Errorf("parameter %s: %w", v.Name, err)
		}
	}
	return nil
}
