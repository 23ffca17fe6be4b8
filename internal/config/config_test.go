package config

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, FormatAuto, cfg.Log.Format)
	assert.Equal(t, 5*time.Second, cfg.Lua.Timeout.Std())
	assert.Equal(t, []string{"base", "table", "string", "math"}, cfg.Lua.Libraries)
	assert.Equal(t, "scratch", cfg.Run.BufferName)
}

func TestLoadFS_TOML(t *testing.T) {
	fsys := fstest.MapFS{
		"sigslot.toml": {Data: []byte(`
[log]
level = "debug"
format = "json"

[lua]
timeout = "250ms"
libraries = ["base", "string"]

[run]
scripts = ["a.lua", "b.lua"]
watch = true
buffer_name = "notes"

[buffer]
text = "hello"
crlf = true
`)},
	}

	cfg, err := LoadFS(fsys, "sigslot.toml", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, FormatJSON, cfg.Log.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Lua.Timeout.Std())
	assert.Equal(t, []string{"base", "string"}, cfg.Lua.Libraries)
	assert.Equal(t, []string{"a.lua", "b.lua"}, cfg.Run.Scripts)
	assert.True(t, cfg.Run.Watch)
	assert.Equal(t, "notes", cfg.Run.BufferName)
	assert.Equal(t, "hello", cfg.Buffer.Text)
	assert.True(t, cfg.Buffer.CRLF)
}

func TestLoadFS_YAML(t *testing.T) {
	for _, name := range []string{"sigslot.yaml", "sigslot.yml"} {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{
				name: {Data: []byte(`
log:
  level: warn
lua:
  timeout: 2s
run:
  scripts:
    - main.lua
`)},
			}
			cfg, err := LoadFS(fsys, name, nil)
			require.NoError(t, err)
			assert.Equal(t, "warn", cfg.Log.Level)
			assert.Equal(t, 2*time.Second, cfg.Lua.Timeout.Std())
			assert.Equal(t, []string{"main.lua"}, cfg.Run.Scripts)
			// Unset keys keep their defaults.
			assert.Equal(t, FormatAuto, cfg.Log.Format)
			assert.Equal(t, "scratch", cfg.Run.BufferName)
		})
	}
}

func TestLoadFS_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFS(fstest.MapFS{}, "absent.toml", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = LoadFS(fstest.MapFS{}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFS_EmptyYAML(t *testing.T) {
	cfg, err := LoadFS(fstest.MapFS{"empty.yaml": {Data: nil}}, "empty.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFS_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		message string
		line    int
	}{
		{"toml syntax", "bad.toml", "[log\nlevel = 1", "", 0},
		{"toml unknown key", "bad.toml", "[log]\ncolour = true\n", "unknown keys", 2},
		{"toml bad duration", "bad.toml", "[lua]\ntimeout = \"soon\"\n", "", 0},
		{"yaml syntax", "bad.yaml", "log: [unterminated", "", 0},
		{"yaml unknown key", "bad.yaml", "log:\n  colour: true\n", "colour", 2},
		{"yaml bad duration", "bad.yaml", "lua:\n  timeout: soon\n", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{tt.file: {Data: []byte(tt.data)}}
			_, err := LoadFS(fsys, tt.file, nil)
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.file, perr.File)
			assert.True(t, strings.HasPrefix(perr.Error(), tt.file), perr.Error())
			assert.Contains(t, perr.Error(), perr.Reason)
			if tt.message != "" {
				assert.Contains(t, perr.Reason, tt.message)
			}
			if tt.line > 0 {
				assert.Equal(t, tt.line, perr.Line)
			}
		})
	}
}

func TestDecode_UnsupportedFormat(t *testing.T) {
	err := Decode("sigslot.ini", []byte("x=1"), Default())
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, env(map[string]string{
		"SIGSLOT_LOG_LEVEL":       "DEBUG",
		"SIGSLOT_LOG_FORMAT":      "Text",
		"SIGSLOT_LUA_TIMEOUT":     "1m",
		"SIGSLOT_LUA_LIBRARIES":   "base, coroutine ,,",
		"SIGSLOT_RUN_WATCH":       "true",
		"SIGSLOT_RUN_BUFFER_NAME": "env-buffer",
	}))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, FormatText, cfg.Log.Format)
	assert.Equal(t, time.Minute, cfg.Lua.Timeout.Std())
	assert.Equal(t, []string{"base", "coroutine"}, cfg.Lua.Libraries)
	assert.True(t, cfg.Run.Watch)
	assert.Equal(t, "env-buffer", cfg.Run.BufferName)
}

func TestApplyEnv_Errors(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, env(map[string]string{
		"SIGSLOT_LUA_TIMEOUT": "later",
		"SIGSLOT_RUN_WATCH":   "maybe",
	}))
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Equal(t, Default().Lua.Timeout, cfg.Lua.Timeout)
}

func TestLoadFS_EnvOverridesFile(t *testing.T) {
	fsys := fstest.MapFS{"sigslot.toml": {Data: []byte("[log]\nlevel = \"warn\"\n")}}
	cfg, err := LoadFS(fsys, "sigslot.toml", env(map[string]string{"SIGSLOT_LOG_LEVEL": "error"}))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	cfg.Lua.Timeout = Duration(-time.Second)
	cfg.Lua.Libraries = []string{"base", "", "base"}
	cfg.Run.BufferName = " "
	cfg.Run.Scripts = []string{""}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)

	var paths []string
	for _, e := range merr.Errors {
		var verr *ValidationError
		require.ErrorAs(t, e, &verr)
		paths = append(paths, verr.Path)
	}
	assert.Equal(t, []string{
		"log.level",
		"log.format",
		"lua.timeout",
		"lua.libraries[1]",
		"lua.libraries[2]",
		"run.buffer_name",
		"run.scripts[0]",
	}, paths)
}

func TestLoadFS_InvalidFile(t *testing.T) {
	fsys := fstest.MapFS{"sigslot.toml": {Data: []byte("[log]\nformat = \"xml\"\n")}}
	_, err := LoadFS(fsys, "sigslot.toml", nil)
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	require.Error(t, d.UnmarshalText([]byte("ninety")))
}
