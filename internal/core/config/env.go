package config

import (
	"log/slog"

	"github.com/mstoykov/envconfig"
)

// envOverrides lists the variables that override the file. Unset or empty
// variables leave the file value alone.
type envOverrides struct {
	Typemap     string `envconfig:"SSD_TYPEMAP"`
	Format      string `envconfig:"SSD_FORMAT"`
	Backend     string `envconfig:"SSD_BACKEND"`
	MetricsAddr string `envconfig:"SSD_METRICS_ADDR"`
	Workers     int    `envconfig:"SSD_WORKERS"`
}

// ApplyEnvOverrides applies SSD_* environment variables to cfg.
func ApplyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	var env envOverrides
	if err := envconfig.Process("", &env, lookup); err != nil {
		return err
	}

	setString(&cfg.Generate.Typemap, env.Typemap, "SSD_TYPEMAP")
	setString(&cfg.Generate.Format, env.Format, "SSD_FORMAT")
	setString(&cfg.Parser.Backend, env.Backend, "SSD_BACKEND")
	setString(&cfg.Watch.MetricsAddr, env.MetricsAddr, "SSD_METRICS_ADDR")
	if env.Workers > 0 {
		slog.Debug("applying env override", "key", "SSD_WORKERS", "value", env.Workers)
		cfg.Check.Workers = env.Workers
	}
	return nil
}

func setString(target *string, val, key string) {
	if val == "" {
		return
	}
	slog.Debug("applying env override", "key", key, "value", val)
	*target = val
}
