package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"ssd/internal/engine/generate"
	"ssd/internal/engine/parser"
)

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Generate.Format) == "" {
		cfg.Generate.Format = string(generate.FormatJSONPretty)
	}
	if cfg.Defines == nil {
		cfg.Defines = map[string]string{}
	}
	if strings.TrimSpace(cfg.Parser.Backend) == "" {
		cfg.Parser.Backend = string(parser.BackendNative)
	}

	if len(cfg.Check.Include) == 0 {
		cfg.Check.Include = []string{"*.ssd", "*.svc"}
	}
	if len(cfg.Check.ExcludeDirs) == 0 {
		cfg.Check.ExcludeDirs = []string{".git", "node_modules", "target"}
	}
	if cfg.Check.Workers <= 0 {
		cfg.Check.Workers = runtime.NumCPU()
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
}

func validate(cfg *Config) error {
	if _, err := generate.ParseFormat(cfg.Generate.Format); err != nil {
		return fmt.Errorf("generate.format: %w", err)
	}
	if _, err := parser.ParseBackend(cfg.Parser.Backend); err != nil {
		return fmt.Errorf("parser.backend: %w", err)
	}
	for key := range cfg.Defines {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("defines: empty key")
		}
	}
	return validateCheck(cfg)
}

func validateCheck(cfg *Config) error {
	for i, pattern := range cfg.Check.Include {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("check.include[%d] must not be empty", i)
		}
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("check.include[%d]: invalid pattern %q: %w", i, pattern, err)
		}
	}
	for i, dir := range cfg.Check.ExcludeDirs {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("check.exclude_dirs[%d] must not be empty", i)
		}
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %v", cfg.Watch.Debounce)
	}
	return nil
}

// MergeDefines layers command line definitions ("key=value", or "key" for an
// empty value) over the configured ones. The result is a new map.
func MergeDefines(base map[string]string, args []string) (map[string]string, error) {
	out := make(map[string]string, len(base)+len(args))
	for k, v := range base {
		out[k] = v
	}
	for _, arg := range args {
		key, value, _ := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid define %q: missing key", arg)
		}
		out[key] = value
	}
	return out, nil
}
