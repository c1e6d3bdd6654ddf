package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-shadertoy/common"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/session"
)

func newRenderCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render frames offscreen and write them as images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			source, err := os.ReadFile(cfg.Shader)
			if err != nil {
				return fmt.Errorf("failed to read shader: %w", err)
			}
			inputs, err := loadChannels(ctx, cfg.ChannelPaths())
			if err != nil {
				return err
			}

			r := renderer.NewRenderer(renderer.BackendTypeWGPU,
				renderer.WithForceSoftwareRenderer(cfg.Software),
				renderer.WithLogger(logger),
			)
			prof := profiler.NewProfiler(profiler.WithLogger(logger))
			s := session.NewSession(
				session.WithCapacity(cfg.Params),
				session.WithChannels(cfg.Channels),
				session.WithRenderer(r),
				session.WithLogger(logger),
				session.WithRenderWorkers(cfg.RenderWorkers),
				session.WithProfiler(prof),
				session.WithSource(string(source)),
			)
			defer s.Close()

			s.OnAutoSyncRequested()
			if err := s.Compile(ctx); err != nil {
				return fmt.Errorf("%s: %w", cfg.Shader, err)
			}
			if err := applyOverrides(s, cfg.Value); err != nil {
				return err
			}

			width, height := outputSize(s.BBox(), cfg.Width, cfg.Height, inputs, func(k int) bool {
				in, err := s.InputView(k)
				return err == nil && in.Enabled
			})

			results := make([]<-chan session.RenderResult, cfg.Frames)
			for i := range results {
				results[i] = s.RenderAsync(ctx, session.FrameContext{
					Width:     width,
					Height:    height,
					Time:      float32(i) / cfg.FPS,
					TimeDelta: 1 / cfg.FPS,
					Frame:     int32(i),
					FrameRate: cfg.FPS,
				}, inputs)
			}
			for i, ch := range results {
				res := <-ch
				if res.Err != nil {
					return fmt.Errorf("frame %d: %w", i, res.Err)
				}
				path := framePath(cfg.Output, i, cfg.Frames)
				if err := common.SaveImage(res.Image, path); err != nil {
					return err
				}
				logger.Debug("[Render] frame written", "frame", i, "path", path)
			}

			st := prof.Stats()
			logger.Info("[Render] done", "frames", st.Frames, "width", width, "height", height,
				"compile", st.Compile, "output", cfg.Output)
			return nil
		},
	}
	opts.addShaderFlags(cmd.Flags())
	opts.addRenderFlags(cmd.Flags())
	return cmd
}
