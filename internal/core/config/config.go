package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"ssd/internal/core/errors"
)

// DefaultPath is looked up in the working directory when --config is not
// given. A missing default file is not an error.
const DefaultPath = "ssd.toml"

type Config struct {
	Generate Generate          `toml:"generate"`
	Defines  map[string]string `toml:"defines"`
	Parser   Parser            `toml:"parser"`
	Check    Check             `toml:"check"`
	Watch    Watch             `toml:"watch"`
}

type Generate struct {
	Typemap string `toml:"typemap"`
	NoMap   bool   `toml:"no_map"`
	Format  string `toml:"format"`
}

type Parser struct {
	Backend string `toml:"backend"`
}

type Check struct {
	Include     []string `toml:"include"`
	ExcludeDirs []string `toml:"exclude_dirs"`
	Workers     int      `toml:"workers"`
	RoundTrip   bool     `toml:"round_trip"`
}

type Watch struct {
	Debounce    time.Duration `toml:"debounce"`
	MetricsAddr string        `toml:"metrics_addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and validates the config file at path. Environment overrides are
// applied before defaults so an empty variable never masks a default.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		code := errors.CodeConfigError
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "cannot read config"), errors.CtxPath, path)
	}
	return Parse(data, path, os.LookupEnv)
}

// LoadOptional behaves like Load but falls back to the defaults (plus the
// environment) when path does not exist.
func LoadOptional(fs afero.Fs, path string) (*Config, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfigError, "cannot stat config"), errors.CtxPath, path)
	}
	if !exists {
		return Parse(nil, path, os.LookupEnv)
	}
	return Load(fs, path)
}

// Parse decodes TOML data and runs the env, defaults and validation steps.
// lookup resolves environment variables.
func Parse(data []byte, path string, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfigError, "invalid config"), errors.CtxPath, path)
	}
	if err := ApplyEnvOverrides(&cfg, lookup); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfigError, "invalid environment override"), errors.CtxPath, path)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfigError, "invalid config"), errors.CtxPath, path)
	}
	return &cfg, nil
}
