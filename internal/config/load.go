package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIGSLOT_"

// FileSystem reads config files. It is satisfied by OSFS and by
// testing/fstest.MapFS.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path or a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	return LoadFS(OSFS{}, path, os.LookupEnv)
}

// LoadFS is Load with an explicit file system and environment lookup.
func LoadFS(fsys FileSystem, path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := fsys.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := Decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}
	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses data over cfg, choosing TOML or YAML by the extension of
// path. Unknown keys are rejected.
func Decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return decodeTOML(path, data, cfg)
	case ".yaml", ".yml":
		return decodeYAML(path, data, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func decodeTOML(path string, data []byte, cfg *Config) error {
	err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
	if err == nil {
		return nil
	}

	perr := &ParseError{File: path, Reason: err.Error(), Err: err}
	var derr *toml.DecodeError
	var serr *toml.StrictMissingError
	switch {
	case errors.As(err, &derr):
		perr.Line, perr.Column = derr.Position()
	case errors.As(err, &serr):
		perr.Reason = "unknown keys: " + strings.TrimSpace(serr.String())
		if len(serr.Errors) > 0 {
			perr.Line, perr.Column = serr.Errors[0].Position()
		}
	}
	return perr
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	perr := &ParseError{File: path, Reason: err.Error(), Err: err}
	var terr *yaml.TypeError
	if errors.As(err, &terr) {
		perr.Reason = strings.Join(terr.Errors, "; ")
	}
	perr.Line = yamlLine(perr.Reason)
	return perr
}

// yamlLine returns the first line number yaml.v3 mentions in msg, as in
// "line 3: field colour not found", or zero.
func yamlLine(msg string) int {
	i := strings.Index(msg, "line ")
	if i < 0 {
		return 0
	}
	var line int
	if _, err := fmt.Sscanf(msg[i:], "line %d", &line); err != nil {
		return 0
	}
	return line
}

// ApplyEnv overrides cfg from SIGSLOT_ variables found by lookup:
//
//	SIGSLOT_LOG_LEVEL        log.level
//	SIGSLOT_LOG_FORMAT       log.format
//	SIGSLOT_LUA_TIMEOUT      lua.timeout
//	SIGSLOT_LUA_LIBRARIES    lua.libraries, comma separated
//	SIGSLOT_RUN_WATCH        run.watch
//	SIGSLOT_RUN_BUFFER_NAME  run.buffer_name
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	var result *multierror.Error
	get := func(name string) (string, bool) {
		return lookup(EnvPrefix + name)
	}

	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v, ok := get("LUA_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%sLUA_TIMEOUT: %w", EnvPrefix, err))
		} else {
			cfg.Lua.Timeout = Duration(d)
		}
	}
	if v, ok := get("LUA_LIBRARIES"); ok {
		cfg.Lua.Libraries = splitList(v)
	}
	if v, ok := get("RUN_WATCH"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%sRUN_WATCH: %w", EnvPrefix, err))
		} else {
			cfg.Run.Watch = b
		}
	}
	if v, ok := get("RUN_BUFFER_NAME"); ok {
		cfg.Run.BufferName = v
	}
	return result.ErrorOrNil()
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
