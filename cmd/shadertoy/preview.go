package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/session"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/watcher"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/window"
)

func newPreviewCommand(opts *options) *cobra.Command {
	var maxFrames int
	var uncapped bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the shader in a window; R recompiles, D resets parameters, P prints them, Space pauses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			source, err := os.ReadFile(cfg.Shader)
			if err != nil {
				return fmt.Errorf("failed to read shader: %w", err)
			}
			inputs, err := loadChannels(ctx, cfg.ChannelPaths())
			if err != nil {
				return err
			}

			title := "shadertoy - " + filepath.Base(cfg.Shader)
			win := window.NewWindow(window.WithTitle(title), window.WithSize(cfg.Width, cfg.Height))
			defer win.Close()

			r := renderer.NewRenderer(renderer.BackendTypeWGPU,
				renderer.WithSurfaceDescriptor(win.SurfaceDescriptor()),
				renderer.WithForceSoftwareRenderer(cfg.Software),
				renderer.WithLogger(logger),
			)
			if uncapped {
				r.SetPresentMode(renderer.PresentModeUncapped)
			}
			s := session.NewSession(
				session.WithCapacity(cfg.Params),
				session.WithChannels(cfg.Channels),
				session.WithRenderer(r),
				session.WithLogger(logger),
				session.WithProfiler(profiler.NewProfiler(profiler.WithLogger(logger))),
				session.WithSource(string(source)),
			)
			defer s.Close()

			// A broken shader still opens the window so it can be fixed while watching.
			s.OnAutoSyncRequested()
			if err := s.Compile(ctx); err != nil {
				logger.Warn("[Preview] shader failed to compile", "err", err)
			} else if err := applyOverrides(s, cfg.Value); err != nil {
				return err
			}

			engineOptions := []engine.EngineBuilderOption{
				engine.WithWindow(win),
				engine.WithSession(s),
				engine.WithChannelInputs(inputs),
				engine.WithRenderFrameLimit(float64(cfg.FPS)),
				engine.WithMaxFrames(maxFrames),
				engine.WithTitle(title),
				engine.WithLogger(logger),
			}
			if cfg.Watch {
				w, err := watcher.NewWatcher(cfg.Shader, func(text string) {
					s.OnShaderTextChanged(text)
					s.OnAutoSyncRequested()
				}, watcher.WithLogger(logger))
				if err != nil {
					return err
				}
				defer w.Close()
				engineOptions = append(engineOptions, engine.WithWatcher(w))
			}

			return engine.NewEngine(engineOptions...).Run(ctx)
		},
	}
	opts.addShaderFlags(cmd.Flags())
	cmd.Flags().IntVar(&opts.width, "width", 0, "initial window width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 0, "initial window height in pixels")
	cmd.Flags().Float32Var(&opts.fps, "fps", 0, "frame rate cap")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload the shader when the file changes")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "override a parameter: name=value (repeatable)")
	cmd.Flags().IntVar(&maxFrames, "max-frames", 0, "quit after this many frames; 0 runs until the window closes")
	cmd.Flags().BoolVar(&uncapped, "uncapped", false, "present without waiting for vertical blank")
	return cmd
}
