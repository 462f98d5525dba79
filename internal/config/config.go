// Package config loads the JSONC configuration of the sot CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/sostream/pkg/fs"
	"github.com/calvinalkan/sostream/pkg/stream"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	BufferSize int    `json:"buffer_size,omitempty"`
	Perm       string `json:"perm,omitempty"`
	Advise     string `json:"advise,omitempty"`

	// Resolved values (computed, not serialized)
	EffectiveCwd string      `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	PermMode     os.FileMode `json:"-"`
	Advice       fs.Advice   `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		BufferSize: stream.DefaultBufferSize,
		Perm:       "0644",
		Advise:     fs.AdviceNone.String(),
	}
}

// FileName is the default project config file name.
const FileName = ".sot.json"

// StreamOptions returns the [stream.Options] the CLI opens files with.
// fsys may be nil.
func (c Config) StreamOptions(fsys fs.FS) stream.Options {
	return stream.Options{
		BufferSize: c.BufferSize,
		Perm:       c.PermMode,
		FS:         fsys,
		Advise:     c.Advice,
	}
}

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/sot/config.json if set, otherwise ~/.config/sot/config.json.
// Returns empty string if home directory cannot be determined.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "sot", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "sot", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride    string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath         string            // -c/--config flag value
	BufferSizeOverride int               // --buffer-size flag value; 0 means no override
	Env                map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/sot/config.json or $XDG_CONFIG_HOME/sot/config.json)
// 3. Project config file at default location (.sot.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty)
// 5. CLI overrides.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	if !filepath.IsAbs(workDir) {
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
		}

		workDir = abs
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		globalCfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = merge(cfg, globalCfg)
		}
	}

	projectCfg, projectPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if input.BufferSizeOverride < 0 {
		return Config{}, fmt.Errorf("--buffer-size: %w", ErrBufferSizeInvalid)
	}

	if input.BufferSizeOverride > 0 {
		cfg.BufferSize = input.BufferSizeOverride
	}

	cfg.EffectiveCwd = workDir

	if err := resolve(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadProject loads the project config file (.sot.json) or an explicit config file.
// Returns the config, the path if loaded, and any error.
func loadProject(workDir, configPath string) (Config, string, error) {
	if configPath == "" {
		path := filepath.Join(workDir, FileName)

		cfg, loaded, err := loadFile(path, false)
		if err != nil || !loaded {
			return Config{}, "", err
		}

		return cfg, path, nil
	}

	path := configPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	// Check existence first to provide a clear "not found" error
	if _, err := os.Stat(path); err != nil {
		return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
	}

	cfg, _, err := loadFile(path, true)
	if err != nil {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadFile loads a config file. If mustExist is false, missing files return zero config.
// Returns the config, whether the file was loaded, and any error.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// Zero values mean "unset" during merge, so explicit zeros must be
	// rejected here.
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	if val, ok := raw["buffer_size"]; ok {
		if n, isNum := val.(float64); !isNum || n <= 0 || n != float64(int(n)) {
			return Config{}, ErrBufferSizeInvalid
		}
	}

	if val, ok := raw["perm"]; ok {
		if s, isStr := val.(string); !isStr || s == "" {
			return Config{}, ErrPermInvalid
		}
	}

	if cfg.Perm != "" {
		if _, err := parsePerm(cfg.Perm); err != nil {
			return Config{}, err
		}
	}

	if _, err := fs.ParseAdvice(cfg.Advise); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrAdviseInvalid, err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.BufferSize != 0 {
		base.BufferSize = overlay.BufferSize
	}

	if overlay.Perm != "" {
		base.Perm = overlay.Perm
	}

	if overlay.Advise != "" {
		base.Advise = overlay.Advise
	}

	return base
}

// resolve fills the computed fields from the serialized ones.
func resolve(cfg *Config) error {
	perm, err := parsePerm(cfg.Perm)
	if err != nil {
		return err
	}

	advice, err := fs.ParseAdvice(cfg.Advise)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAdviseInvalid, err)
	}

	cfg.PermMode = perm
	cfg.Advice = advice

	return nil
}

func parsePerm(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil || v == 0 || v > 0o777 {
		return 0, fmt.Errorf("%w: got %q", ErrPermInvalid, s)
	}

	return os.FileMode(v), nil
}
