// Package config loads skim's configuration.
//
// Sources, lowest precedence first: built-in defaults, the YAML file
// (~/.config/skim/config.yaml unless --config names another), then SKIM_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/skim"
	"gopkg.in/yaml.v3"
)

// Cache drivers.
const (
	DriverSQLite = "sqlite"
	DriverDir    = "dir"
	DriverMemory = "memory"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// DefaultBaseURL is the summarizer service's development address.
const DefaultBaseURL = "http://localhost:5000"

// CacheConfig selects the Local Cache Store implementation.
type CacheConfig struct {
	Driver string `yaml:"driver"`
	// Path is the database file for sqlite and the directory for dir.
	Path string `yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives log output. Empty means stderr.
	File string `yaml:"file"`
}

// Config is skim's complete configuration.
type Config struct {
	BaseURL   string `yaml:"base_url"`
	TokenFile string `yaml:"token_file"`
	// Token is a literal bearer token. It is only ever set from the
	// environment and takes precedence over TokenFile.
	Token string      `yaml:"-"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:   DefaultBaseURL,
		TokenFile: "~/.config/skim/token",
		Cache: CacheConfig{
			Driver: DriverSQLite,
			Path:   "~/.local/share/skim/cache.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatConsole,
		},
	}
}

// DefaultPath returns ~/.config/skim/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "skim", "config.yaml")
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides from lookup and expands ~ in paths. A missing file at the
// default path is not an error; a missing explicit path is.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if lookup != nil {
		cfg.ApplyEnv(lookup)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SKIM_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("SKIM_BASE_URL", &c.BaseURL)
	set("SKIM_TOKEN", &c.Token)
	set("SKIM_TOKEN_FILE", &c.TokenFile)
	set("SKIM_CACHE_DRIVER", &c.Cache.Driver)
	set("SKIM_CACHE_PATH", &c.Cache.Path)
	set("SKIM_LOG_LEVEL", &c.Log.Level)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q must be an absolute http or https URL: %w", c.BaseURL, skim.ErrValidation)
	}
	switch c.Cache.Driver {
	case DriverSQLite, DriverDir:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for driver %q: %w", c.Cache.Driver, skim.ErrValidation)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown cache.driver %q: %w", c.Cache.Driver, skim.ErrValidation)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log.level %q: %w", c.Log.Level, skim.ErrValidation)
	}
	switch c.Log.Format {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("unknown log.format %q: %w", c.Log.Format, skim.ErrValidation)
	}
	return nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.TokenFile, &c.Cache.Path, &c.Log.File} {
		expanded, err := ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
