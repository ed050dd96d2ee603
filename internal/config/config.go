// Package config loads CLI settings from an optional TOML file, a .env
// file and GRANTLEE_* environment variables, in increasing precedence.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap/zapcore"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	DBPath       string   `toml:"db"`
	LogLevel     string   `toml:"log_level"`
	LogJSON      bool     `toml:"log_json"`
	TemplateDirs []string `toml:"template_dirs"`
	// Locale is a TS catalog path used to localize rendered templates.
	Locale    string `toml:"locale"`
	CacheSize int    `toml:"cache_size"`
	Workers   int    `toml:"workers"`
	// ProviderTimeout is a Go duration string such as "90s".
	ProviderTimeout string `toml:"provider_timeout"`

	Timeout time.Duration `toml:"-"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		DBPath:          filepath.Join("data", "grantlee.db"),
		LogLevel:        "info",
		CacheSize:       64,
		Workers:         4,
		ProviderTimeout: "60s",
	}
}

// Load reads .env, then the TOML file at path (or $GRANTLEE_CONFIG), then
// the environment. A missing .env is fine; a missing config file named
// explicitly is not.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "config: load .env")
	}
	return LoadFrom(path, os.Getenv)
}

// LoadFrom is Load without .env handling, reading variables via getenv.
func LoadFrom(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = getenv("GRANTLEE_CONFIG")
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "config: open")
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return errors.Wrapf(err, "config: decode %s", path)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("GRANTLEE_DB"); v != "" {
		c.DBPath = v
	}
	if v := getenv("GRANTLEE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("GRANTLEE_LOG_JSON"); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "GRANTLEE_LOG_JSON=%q", v)
		}
		c.LogJSON = b
	}
	if v := getenv("GRANTLEE_TEMPLATE_DIRS"); v != "" {
		c.TemplateDirs = filepath.SplitList(v)
	}
	if v := getenv("GRANTLEE_LOCALE"); v != "" {
		c.Locale = v
	}
	if v := getenv("GRANTLEE_CACHE_SIZE"); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "GRANTLEE_CACHE_SIZE=%q", v)
		}
		c.CacheSize = n
	}
	if v := getenv("GRANTLEE_WORKERS"); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "GRANTLEE_WORKERS=%q", v)
		}
		c.Workers = n
	}
	if v := getenv("GRANTLEE_PROVIDER_TIMEOUT"); v != "" {
		c.ProviderTimeout = v
	}
	return nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.Wrap(ErrInvalid, "db path is required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalid, "log level %q", c.LogLevel)
	}
	if c.CacheSize < 0 {
		return errors.Wrapf(ErrInvalid, "cache size %d", c.CacheSize)
	}
	if c.Workers < 1 {
		return errors.Wrapf(ErrInvalid, "workers %d", c.Workers)
	}
	d, err := time.ParseDuration(c.ProviderTimeout)
	if err != nil || d <= 0 {
		return errors.Wrapf(ErrInvalid, "provider timeout %q", c.ProviderTimeout)
	}
	c.Timeout = d
	return nil
}
