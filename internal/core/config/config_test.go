// # internal/core/config/config_test.go
package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/afero"

	"ssd/internal/core/errors"
)

// testContext returns a context canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func noEnv(string) (string, bool) { return "", false }

func TestParse(t *testing.T) {
	content := `
[generate]
typemap = "maps/rust.tym"
no_map = true
format = "yaml"

[defines]
lang = "rust"
edition = "2021"

[parser]
backend = "minissd"

[check]
include = ["*.ssd"]
exclude_dirs = ["vendor"]
workers = 3
round_trip = true

[watch]
debounce = "1s"
metrics_addr = ":9100"
`
	cfg, err := Parse([]byte(content), "ssd.toml", noEnv)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Generate.Typemap != "maps/rust.tym" || !cfg.Generate.NoMap || cfg.Generate.Format != "yaml" {
		t.Errorf("unexpected generate section: %+v", cfg.Generate)
	}
	if cfg.Defines["lang"] != "rust" || cfg.Defines["edition"] != "2021" {
		t.Errorf("unexpected defines: %v", cfg.Defines)
	}
	if cfg.Parser.Backend != "minissd" {
		t.Errorf("expected backend minissd, got %q", cfg.Parser.Backend)
	}
	if len(cfg.Check.Include) != 1 || cfg.Check.Include[0] != "*.ssd" {
		t.Errorf("unexpected include: %v", cfg.Check.Include)
	}
	if len(cfg.Check.ExcludeDirs) != 1 || cfg.Check.ExcludeDirs[0] != "vendor" {
		t.Errorf("unexpected exclude_dirs: %v", cfg.Check.ExcludeDirs)
	}
	if cfg.Check.Workers != 3 || !cfg.Check.RoundTrip {
		t.Errorf("unexpected check section: %+v", cfg.Check)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.MetricsAddr != ":9100" {
		t.Errorf("expected metrics_addr :9100, got %q", cfg.Watch.MetricsAddr)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Generate.Format != "json-pretty" {
		t.Errorf("expected default format json-pretty, got %q", cfg.Generate.Format)
	}
	if cfg.Parser.Backend != "native" {
		t.Errorf("expected default backend native, got %q", cfg.Parser.Backend)
	}
	if len(cfg.Check.Include) != 2 {
		t.Errorf("expected default include patterns, got %v", cfg.Check.Include)
	}
	if cfg.Check.Workers != runtime.NumCPU() {
		t.Errorf("expected %d workers, got %d", runtime.NumCPU(), cfg.Check.Workers)
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("expected default debounce 300ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.Defines == nil {
		t.Error("expected non-nil defines")
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"malformed":       "bad = toml = format",
		"unknown format":  "[generate]\nformat = \"ron\"",
		"unknown backend": "[parser]\nbackend = \"wasm\"",
		"bad glob":        "[check]\ninclude = [\"[a\"]",
		"empty exclude":   "[check]\nexclude_dirs = [\"\"]",
		"neg debounce":    "[watch]\ndebounce = \"-1s\"",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content), "ssd.toml", noEnv)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, errors.CodeConfigError) {
				t.Errorf("expected CONFIG_ERROR, got %v", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"SSD_TYPEMAP":      "env.tym",
		"SSD_FORMAT":       "toml",
		"SSD_METRICS_ADDR": ":9200",
		"SSD_WORKERS":      "7",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg, err := Parse([]byte("[generate]\nformat = \"yaml\"\ntypemap = \"file.tym\""), "ssd.toml", lookup)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Generate.Typemap != "env.tym" {
		t.Errorf("expected env typemap, got %q", cfg.Generate.Typemap)
	}
	if cfg.Generate.Format != "toml" {
		t.Errorf("expected env format, got %q", cfg.Generate.Format)
	}
	if cfg.Watch.MetricsAddr != ":9200" {
		t.Errorf("expected env metrics addr, got %q", cfg.Watch.MetricsAddr)
	}
	if cfg.Check.Workers != 7 {
		t.Errorf("expected 7 workers, got %d", cfg.Check.Workers)
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/p/ssd.toml", []byte("[defines]\nx = \"1\""), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(fs, "/p/ssd.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Defines["x"] != "1" {
		t.Errorf("unexpected defines: %v", cfg.Defines)
	}

	_, err = Load(fs, "/p/missing.toml")
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	cfg, err = LoadOptional(fs, "/p/missing.toml")
	if err != nil {
		t.Fatalf("LoadOptional failed: %v", err)
	}
	if cfg.Parser.Backend != "native" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestMergeDefines(t *testing.T) {
	base := map[string]string{"lang": "go", "keep": "yes"}
	got, err := MergeDefines(base, []string{"lang=rust", "flag", "expr=a=b"})
	if err != nil {
		t.Fatalf("MergeDefines failed: %v", err)
	}
	want := map[string]string{"lang": "rust", "keep": "yes", "flag": "", "expr": "a=b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("define %s: expected %q, got %q", k, v, got[k])
		}
	}
	if base["lang"] != "go" {
		t.Error("base map was modified")
	}

	if _, err := MergeDefines(nil, []string{"=x"}); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ssd.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w := NewWatcher(afero.NewOsFs(), path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err := w.Start(testContext(t)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[defines]\nlang = \"zig\""), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Defines["lang"] != "zig" {
			t.Errorf("unexpected defines after reload: %v", cfg.Defines)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherSkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ssd.toml")
	initial := []byte("[defines]\nlang = \"go\"\n")
	if err := os.WriteFile(path, initial, 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 4)
	w := NewWatcher(afero.NewOsFs(), path, func(cfg *Config) { reloaded <- cfg })
	if err := w.Start(testContext(t)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, initial, 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[defines]\nlang = \"rust\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Defines["lang"] != "rust" {
			t.Errorf("first reload should carry the changed content, got %v", cfg.Defines)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
