package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Carmen-Shannon/oxy-shadertoy/config"
)

// options holds the flags shared by every subcommand. Only flags set on the command line
// override the configuration file.
type options struct {
	configPath string
	logLevel   string

	shader   string
	output   string
	width    int
	height   int
	frames   int
	fps      float32
	software bool
	params   int
	channels int
	workers  int
	watch    bool
	bind     []string
	set      []string
}

func (o *options) addPersistentFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "TOML configuration file")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error")
}

func (o *options) addShaderFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.shader, "shader", "s", "", "fragment shader file")
	fs.IntVar(&o.params, "params", 0, "parameter slot count")
	fs.IntVar(&o.channels, "channels", 0, "input channel count")
	fs.StringArrayVarP(&o.bind, "channel", "c", nil, "bind an image to a channel: index=path (repeatable)")
	fs.BoolVar(&o.software, "software", false, "use the software fallback adapter")
}

func (o *options) addRenderFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.output, "out", "o", "", "output image; frame numbers are inserted when rendering several frames")
	fs.IntVar(&o.width, "width", 0, "output width in pixels")
	fs.IntVar(&o.height, "height", 0, "output height in pixels")
	fs.IntVar(&o.frames, "frames", 0, "number of frames")
	fs.Float32Var(&o.fps, "fps", 0, "frames per second of the playback clock")
	fs.IntVar(&o.workers, "workers", 0, "render workers")
	fs.StringArrayVar(&o.set, "set", nil, "override a parameter: name=value (repeatable)")
}

// load reads the configuration file, applies the flags that were set and validates the result.
func (o *options) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if changed("shader") {
		cfg.Shader = o.shader
	}
	if changed("out") {
		cfg.Output = o.output
	}
	if changed("width") {
		cfg.Width = o.width
	}
	if changed("height") {
		cfg.Height = o.height
	}
	if changed("frames") {
		cfg.Frames = o.frames
	}
	if changed("fps") {
		cfg.FPS = o.fps
	}
	if changed("software") {
		cfg.Software = o.software
	}
	if changed("params") {
		cfg.Params = o.params
	}
	if changed("channels") {
		cfg.Channels = o.channels
	}
	if changed("workers") {
		cfg.RenderWorkers = o.workers
	}
	if changed("watch") {
		cfg.Watch = o.watch
	}
	for _, b := range o.bind {
		ch, err := parseChannel(b)
		if err != nil {
			return cfg, err
		}
		cfg.Channel = replaceChannel(cfg.Channel, ch)
	}
	for _, s := range o.set {
		v, err := config.ParseSet(s)
		if err != nil {
			return cfg, err
		}
		cfg.Value = append(cfg.Value, v)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseChannel parses an index=path channel binding.
func parseChannel(s string) (config.Channel, error) {
	index, path, ok := strings.Cut(s, "=")
	if !ok || path == "" {
		return config.Channel{}, fmt.Errorf("invalid channel binding %q: want index=path", s)
	}
	k, err := strconv.Atoi(strings.TrimSpace(index))
	if err != nil {
		return config.Channel{}, fmt.Errorf("invalid channel index in %q: %w", s, err)
	}
	return config.Channel{Index: k, Path: strings.TrimSpace(path)}, nil
}

// replaceChannel binds ch, replacing an existing binding of the same index.
func replaceChannel(channels []config.Channel, ch config.Channel) []config.Channel {
	for i := range channels {
		if channels[i].Index == ch.Index {
			channels[i] = ch
			return channels
		}
	}
	return append(channels, ch)
}

// newLogger installs a text logger on stderr at the configured level.
func newLogger(cfg config.Config) *slog.Logger {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
