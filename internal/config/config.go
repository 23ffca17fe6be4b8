// Package config loads sigslot configuration from TOML or YAML files and
// SIGSLOT_ environment variables.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the complete sigslot configuration.
type Config struct {
	Log    LogConfig    `toml:"log" yaml:"log"`
	Lua    LuaConfig    `toml:"lua" yaml:"lua"`
	Run    RunConfig    `toml:"run" yaml:"run"`
	Buffer BufferConfig `toml:"buffer" yaml:"buffer"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is a logrus level name.
	Level string `toml:"level" yaml:"level"`
	// Format is "text", "json" or "auto" (text on a terminal, JSON otherwise).
	Format string `toml:"format" yaml:"format"`
}

// LuaConfig controls the script host.
type LuaConfig struct {
	// Timeout bounds a script run or a Lua slot call. Zero disables it.
	Timeout Duration `toml:"timeout" yaml:"timeout"`
	// Libraries lists the Lua standard libraries to open.
	Libraries []string `toml:"libraries" yaml:"libraries"`
}

// RunConfig controls the run command.
type RunConfig struct {
	Scripts    []string `toml:"scripts" yaml:"scripts"`
	Watch      bool     `toml:"watch" yaml:"watch"`
	BufferName string   `toml:"buffer_name" yaml:"buffer_name"`
}

// BufferConfig sets the initial state of the scripted buffer.
type BufferConfig struct {
	Text string `toml:"text" yaml:"text"`
	CRLF bool   `toml:"crlf" yaml:"crlf"`
}

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatAuto = "auto"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: FormatAuto,
		},
		Lua: LuaConfig{
			Timeout:   Duration(5 * time.Second),
			Libraries: []string{"base", "table", "string", "math"},
		},
		Run: RunConfig{
			BufferName: "scratch",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, &ValidationError{
			Path: "log.level", Value: c.Log.Level, Message: "unknown log level",
		})
	}
	switch c.Log.Format {
	case FormatText, FormatJSON, FormatAuto:
	default:
		result = multierror.Append(result, &ValidationError{
			Path: "log.format", Value: c.Log.Format, Message: "must be text, json or auto",
		})
	}

	if c.Lua.Timeout < 0 {
		result = multierror.Append(result, &ValidationError{
			Path: "lua.timeout", Value: c.Lua.Timeout, Message: "must not be negative",
		})
	}
	for i, lib := range c.Lua.Libraries {
		if strings.TrimSpace(lib) == "" {
			result = multierror.Append(result, &ValidationError{
				Path: fmt.Sprintf("lua.libraries[%d]", i), Value: lib, Message: "empty library name",
			})
		} else if slices.Index(c.Lua.Libraries, lib) != i {
			result = multierror.Append(result, &ValidationError{
				Path: fmt.Sprintf("lua.libraries[%d]", i), Value: lib, Message: "duplicate library",
			})
		}
	}

	if strings.TrimSpace(c.Run.BufferName) == "" {
		result = multierror.Append(result, &ValidationError{
			Path: "run.buffer_name", Value: c.Run.BufferName, Message: "must not be empty",
		})
	}
	for i, script := range c.Run.Scripts {
		if script == "" {
			result = multierror.Append(result, &ValidationError{
				Path: fmt.Sprintf("run.scripts[%d]", i), Value: script, Message: "empty script path",
			})
		}
	}

	return result.ErrorOrNil()
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string", node.Line)
	}
	if err := d.UnmarshalText([]byte(node.Value)); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}
