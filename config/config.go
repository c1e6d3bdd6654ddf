package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

var (
	errNoShader     = errors.New("no shader file configured")
	errSize         = errors.New("width and height must be positive")
	errFrames       = errors.New("frames must be positive")
	errFPS          = errors.New("fps must be positive")
	errCapacity     = errors.New("params must be positive")
	errChannelCount = errors.New("channels must be positive")
	errChannelIndex = errors.New("channel index out of range")
	errDuplicate    = errors.New("channel bound twice")
	errValueName    = errors.New("value override has no name")
	errLogLevel     = errors.New("unknown log level")
	errWorkers      = errors.New("render_workers must be positive")
)

// Channel binds an image file to one input channel.
type Channel struct {
	Index int    `toml:"index"`
	Path  string `toml:"path"`
}

// Value overrides the value of a discovered parameter by name. Value is a literal of the
// parameter's type: "2.5", "true", "(0.1, 0.2)".
type Value struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// Config holds the settings of the shadertoy command. Flags override file values.
type Config struct {
	Shader string `toml:"shader"`
	Output string `toml:"output"`

	Width  int     `toml:"width"`
	Height int     `toml:"height"`
	Frames int     `toml:"frames"`
	FPS    float32 `toml:"fps"`

	// Software selects the fallback adapter instead of a hardware GPU.
	Software bool `toml:"software"`

	// Params is the slot capacity N.
	Params int `toml:"params"`
	// Channels is the input channel count M.
	Channels int `toml:"channels"`

	Channel []Channel `toml:"channel"`
	Value   []Value   `toml:"value"`

	Watch         bool   `toml:"watch"`
	LogLevel      string `toml:"log_level"`
	RenderWorkers int    `toml:"render_workers"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Output:        "out.png",
		Width:         640,
		Height:        360,
		Frames:        1,
		FPS:           60,
		Params:        16,
		Channels:      4,
		LogLevel:      "info",
		RenderWorkers: 1,
	}
}

// Load reads a TOML file over the defaults and expands home-relative paths. Unknown keys are
// rejected.
//
// Parameters:
//   - path: the file path, may start with ~
//
// Returns:
//   - Config: the loaded configuration, not yet validated
//   - error: if the file cannot be read or decoded
func Load(path string) (Config, error) {
	cfg := Default()
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to expand config path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return cfg, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ExpandPaths replaces a leading ~ in the shader, output and channel paths with the home
// directory.
//
// Returns:
//   - error: if the home directory cannot be resolved
func (c *Config) ExpandPaths() error {
	var err error
	if c.Shader, err = homedir.Expand(c.Shader); err != nil {
		return fmt.Errorf("failed to expand shader path: %w", err)
	}
	if c.Output, err = homedir.Expand(c.Output); err != nil {
		return fmt.Errorf("failed to expand output path: %w", err)
	}
	for i := range c.Channel {
		if c.Channel[i].Path, err = homedir.Expand(c.Channel[i].Path); err != nil {
			return fmt.Errorf("failed to expand channel %d path: %w", c.Channel[i].Index, err)
		}
	}
	return nil
}

// Validate reports the first setting that cannot be used.
//
// Returns:
//   - error: nil when the configuration is usable
func (c Config) Validate() error {
	switch {
	case c.Shader == "":
		return errNoShader
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: %dx%d", errSize, c.Width, c.Height)
	case c.Frames <= 0:
		return fmt.Errorf("%w: %d", errFrames, c.Frames)
	case c.FPS <= 0:
		return fmt.Errorf("%w: %v", errFPS, c.FPS)
	case c.Params <= 0:
		return fmt.Errorf("%w: %d", errCapacity, c.Params)
	case c.Channels <= 0:
		return fmt.Errorf("%w: %d", errChannelCount, c.Channels)
	case c.RenderWorkers <= 0:
		return fmt.Errorf("%w: %d", errWorkers, c.RenderWorkers)
	}

	seen := make(map[int]bool, len(c.Channel))
	for _, ch := range c.Channel {
		if ch.Index < 0 || ch.Index >= c.Channels {
			return fmt.Errorf("%w: %d not in 0..%d", errChannelIndex, ch.Index, c.Channels-1)
		}
		if seen[ch.Index] {
			return fmt.Errorf("%w: %d", errDuplicate, ch.Index)
		}
		seen[ch.Index] = true
	}
	for _, v := range c.Value {
		if strings.TrimSpace(v.Name) == "" {
			return errValueName
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel onto a slog level. An empty level is info.
//
// Returns:
//   - slog.Level: the level
//   - error: if LogLevel is not debug, info, warn or error
func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", errLogLevel, c.LogLevel)
}

// ChannelPaths returns the configured image path of each channel, "" where unbound.
//
// Returns:
//   - []string: one entry per channel
func (c Config) ChannelPaths() []string {
	paths := make([]string, c.Channels)
	for _, ch := range c.Channel {
		if ch.Index >= 0 && ch.Index < len(paths) {
			paths[ch.Index] = ch.Path
		}
	}
	return paths
}

// ParseSet parses a name=value override as given on the command line.
//
// Parameters:
//   - s: the override
//
// Returns:
//   - Value: the parsed override
//   - error: if s has no = or no name
func ParseSet(s string) (Value, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Value{}, fmt.Errorf("invalid override %q: want name=value", s)
	}
	return Value{Name: name, Value: strings.TrimSpace(value)}, nil
}
