package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shadertoy.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
shader = "blur.frag"
width = 320
software = true
params = 8
log_level = "debug"

[[channel]]
index = 1
path = "photo.png"

[[value]]
name = "blurSize"
value = "2.5"

[[value]]
name = "offset"
value = "(0.1, 0.2)"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "blur.frag", cfg.Shader)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 360, cfg.Height, "unset keys keep their default")
	assert.True(t, cfg.Software)
	assert.Equal(t, 8, cfg.Params)
	assert.Equal(t, 4, cfg.Channels)
	assert.Equal(t, []Channel{{Index: 1, Path: "photo.png"}}, cfg.Channel)
	assert.Equal(t, []Value{{Name: "blurSize", Value: "2.5"}, {Name: "offset", Value: "(0.1, 0.2)"}}, cfg.Value)
	assert.Equal(t, []string{"", "photo.png", "", ""}, cfg.ChannelPaths())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadExpandsHome(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	cfg, err := Load(writeConfig(t, `shader = "~/shaders/x.frag"`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "shaders", "x.frag"), cfg.Shader)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, `shdaer = "x.frag"`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Shader = "x.frag"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no shader", func(c *Config) { c.Shader = "" }, errNoShader},
		{"zero width", func(c *Config) { c.Width = 0 }, errSize},
		{"zero frames", func(c *Config) { c.Frames = 0 }, errFrames},
		{"zero fps", func(c *Config) { c.FPS = 0 }, errFPS},
		{"zero params", func(c *Config) { c.Params = 0 }, errCapacity},
		{"zero channels", func(c *Config) { c.Channels = 0 }, errChannelCount},
		{"zero workers", func(c *Config) { c.RenderWorkers = 0 }, errWorkers},
		{"channel out of range", func(c *Config) { c.Channel = []Channel{{Index: 4}} }, errChannelIndex},
		{"negative channel", func(c *Config) { c.Channel = []Channel{{Index: -1}} }, errChannelIndex},
		{"channel twice", func(c *Config) { c.Channel = []Channel{{Index: 0}, {Index: 0}} }, errDuplicate},
		{"unnamed value", func(c *Config) { c.Value = []Value{{Value: "1"}} }, errValueName},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, errLogLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestParseSet(t *testing.T) {
	v, err := ParseSet(" offset = (1, 2) ")
	require.NoError(t, err)
	assert.Equal(t, Value{Name: "offset", Value: "(1, 2)"}, v)

	_, err = ParseSet("blurSize")
	assert.Error(t, err)
	_, err = ParseSet("=1")
	assert.Error(t, err)
}
