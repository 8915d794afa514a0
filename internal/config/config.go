// Package config loads bkmr's layered configuration: CLI overrides take
// precedence over environment variables, which take precedence over an
// explicit config file, which takes precedence over the default config file
// in the user's config directory, which takes precedence over built-in
// defaults. The merged result is an immutable value passed into the
// component wiring at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/bkmr/bkmr/internal/apperr"
)

// ShellOpts configures the shell action's interactive/non-interactive mode.
type ShellOpts struct {
	Interactive bool `toml:"interactive"`
}

// fileConfig mirrors Config for TOML parsing only. Its ShellOpts.Interactive
// is a pointer so the merge step can tell "absent from this file" (nil)
// apart from "explicitly set to false", which a plain bool cannot do.
type fileConfig struct {
	DBURL     string `toml:"db_url"`
	FzfOpts   string `toml:"fzf_opts"`
	ShellOpts struct {
		Interactive *bool `toml:"interactive"`
	} `toml:"shell_opts"`
	BasePaths map[string]string `toml:"base_paths"`
}

// Config is bkmr's merged, immutable runtime configuration.
type Config struct {
	DBURL     string            `toml:"db_url"`
	FzfOpts   string            `toml:"fzf_opts"`
	ShellOpts ShellOpts         `toml:"shell_opts"`
	BasePaths map[string]string `toml:"base_paths"`
}

// NewConfig returns the built-in defaults, the lowest-precedence layer.
func NewConfig() *Config {
	return &Config{
		DBURL:     defaultDBPath(),
		FzfOpts:   "--multi --reverse",
		ShellOpts: ShellOpts{Interactive: true},
		BasePaths: map[string]string{},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "bkmr", "bkmr.db")
	}
	return filepath.Join(home, ".config", "bkmr", "bkmr.db")
}

// UserConfigPath returns the path to the default config file in the user's
// config directory, honoring XDG_CONFIG_HOME.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bkmr", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "bkmr", "config.toml")
	}
	return filepath.Join(home, ".config", "bkmr", "config.toml")
}

// UserConfigDir returns the directory containing the default user config file.
func UserConfigDir() string {
	return filepath.Dir(UserConfigPath())
}

// UserConfigExists reports whether the default user config file is present.
func UserConfigExists() bool {
	_, err := os.Stat(UserConfigPath())
	return err == nil
}

// Overrides carries command-line flag values, the highest-precedence layer.
// Zero values mean "not set on the command line" and are not applied.
type Overrides struct {
	DBURL            string
	ShellInteractive *bool
}

// Load builds the merged configuration: overrides > env > explicitPath >
// default user config file > built-in defaults. explicitPath may be empty
// to skip that layer.
func Load(explicitPath string, env map[string]string, ov Overrides) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadFile(UserConfigPath()); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if explicitPath != "" {
		fileCfg, err := loadFile(explicitPath)
		if err != nil {
			return nil, err
		}
		if fileCfg == nil {
			return nil, apperr.New(apperr.CodeConfigParseError,
				fmt.Sprintf("config file not found: %s", explicitPath), nil)
		}
		cfg.mergeWith(fileCfg)
	}

	cfg.applyEnv(env)
	cfg.applyOverrides(ov)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile reads and parses a TOML config file. Returns (nil, nil) if the
// file does not exist, which is not an error at this layer.
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.New(apperr.CodeConfigParseError,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed fileConfig
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, apperr.New(apperr.CodeConfigParseError,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return &parsed, nil
}

// mergeWith overlays non-zero fields from other onto c, matching the
// field-by-field precedence style bkmr's ambient config stack uses.
func (c *Config) mergeWith(other *fileConfig) {
	if other.DBURL != "" {
		c.DBURL = other.DBURL
	}
	if other.FzfOpts != "" {
		c.FzfOpts = other.FzfOpts
	}
	if other.ShellOpts.Interactive != nil {
		c.ShellOpts.Interactive = *other.ShellOpts.Interactive
	}
	for sentinel, path := range other.BasePaths {
		c.BasePaths[sentinel] = path
	}
}

// applyEnv applies the BKMR_* environment variables. env is an injectable
// map so tests don't need to mutate process state; production callers pass
// a snapshot built from os.Environ.
func (c *Config) applyEnv(env map[string]string) {
	if v, ok := env["BKMR_DB_URL"]; ok && v != "" {
		c.DBURL = v
	}
	if v, ok := env["BKMR_FZF_OPTS"]; ok && v != "" {
		c.FzfOpts = v
	}
	if v, ok := env["BKMR_SHELL_INTERACTIVE"]; ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ShellOpts.Interactive = b
		}
	}
}

func (c *Config) applyOverrides(ov Overrides) {
	if ov.DBURL != "" {
		c.DBURL = ov.DBURL
	}
	if ov.ShellInteractive != nil {
		c.ShellOpts.Interactive = *ov.ShellInteractive
	}
}

// Validate rejects a configuration that cannot be used to wire the core
// components.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DBURL) == "" {
		return apperr.New(apperr.CodeConfigValueError, "db_url must not be empty", nil)
	}
	for sentinel, path := range c.BasePaths {
		if sentinel == "" {
			return apperr.New(apperr.CodeConfigValueError, "base_paths sentinel must not be empty", nil)
		}
		if strings.TrimSpace(path) == "" {
			return apperr.New(apperr.CodeConfigValueError,
				fmt.Sprintf("base_paths[%s] must not be empty", sentinel), nil)
		}
	}
	return nil
}

// ExpandBasePath expands environment variables in a configured base path value.
func (c *Config) ExpandBasePath(sentinel string) (string, bool) {
	raw, ok := c.BasePaths[sentinel]
	if !ok {
		return "", false
	}
	return os.ExpandEnv(raw), true
}

// EnvSnapshot captures the subset of os.Environ() that bkmr reads, for
// passing into Load without touching global process state from callers
// that want a pure function.
func EnvSnapshot() map[string]string {
	keys := []string{"BKMR_DB_URL", "BKMR_FZF_OPTS", "BKMR_SHELL_INTERACTIVE"}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			out[k] = v
		}
	}
	return out
}

// GenerateDefault renders the built-in defaults as a TOML document, for the
// `--generate-config` CLI surface.
func GenerateDefault() (string, error) {
	cfg := NewConfig()
	b, err := toml.Marshal(cfg)
	if err != nil {
		return "", apperr.New(apperr.CodeConfigParseError, "failed to render default config", err)
	}
	return string(b), nil
}
