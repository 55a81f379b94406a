package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ssd/internal/core/config"
	"ssd/internal/core/errors"
	"ssd/internal/engine/ast"
	"ssd/internal/engine/diag"
	"ssd/internal/engine/generate"
	"ssd/internal/engine/parser"
	"ssd/internal/shared/observability"
	"ssd/internal/shared/util"
)

// App ties the engine packages to a file system and a configuration.
type App struct {
	Config  *config.Config
	FS      afero.Fs
	Backend parser.Backend
	Defines map[string]string

	// Base is the directory namespaces are computed from. Empty means WorkDir.
	Base    string
	WorkDir string

	// Diagnostics receives non-fatal notices. Every notice is also counted.
	Diagnostics diag.Handler
	// Stderr receives script print() and debug() output.
	Stderr io.Writer

	// ConfigPath, when set, is reloaded on change during Watch.
	ConfigPath string

	configMu   sync.RWMutex
	statusMu   sync.RWMutex
	lastCheck  time.Time
	lastResult checkSummary
}

type Option func(*App)

func WithBase(base string) Option {
	return func(a *App) { a.Base = base }
}

func WithWorkDir(dir string) Option {
	return func(a *App) { a.WorkDir = dir }
}

func WithDiagnostics(h diag.Handler) Option {
	return func(a *App) { a.Diagnostics = h }
}

func WithConfigPath(path string) Option {
	return func(a *App) { a.ConfigPath = path }
}

func WithStderr(w io.Writer) Option {
	return func(a *App) { a.Stderr = w }
}

// WithDefines merges command line definitions over the configured ones.
func WithDefines(defines map[string]string) Option {
	return func(a *App) {
		for k, v := range defines {
			a.Defines[k] = v
		}
	}
}

func New(cfg *config.Config, fs afero.Fs, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	backend, err := parser.ParseBackend(cfg.Parser.Backend)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigError, "invalid parser backend")
	}

	a := &App{
		Config:      cfg,
		FS:          fs,
		Backend:     backend,
		Defines:     make(map[string]string, len(cfg.Defines)),
		Diagnostics: diag.LogHandler,
		Stderr:      os.Stderr,
	}
	for k, v := range cfg.Defines {
		a.Defines[k] = v
	}
	if wd, err := os.Getwd(); err == nil {
		a.WorkDir = wd
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *App) currentConfig() *config.Config {
	a.configMu.RLock()
	defer a.configMu.RUnlock()
	return a.Config
}

// SetConfig swaps the configuration used by later check runs. The parser
// backend and defines chosen at startup are kept.
func (a *App) SetConfig(cfg *config.Config) {
	a.configMu.Lock()
	defer a.configMu.Unlock()
	a.Config = cfg
}

func (a *App) diagnostic(d diag.Diagnostic) {
	observability.DiagnosticsTotal.WithLabelValues(d.Severity.String()).Inc()
	if a.Diagnostics != nil {
		a.Diagnostics(d)
	}
}

// Namespace derives the module namespace from a file path: the path relative
// to Base (or the working directory), extension removed.
func (a *App) Namespace(path string) ast.Namespace {
	base := a.Base
	if base == "" {
		base = a.WorkDir
	}
	if a.WorkDir != "" {
		absPath := a.abs(path)
		absBase := a.abs(base)
		if rel, err := filepath.Rel(absBase, absPath); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return ast.NamespaceFromSegments(util.PathSegments(rel, ""))
		}
		return ast.NamespaceFromSegments(util.PathSegments(path, ""))
	}
	return ast.NamespaceFromSegments(util.PathSegments(path, base))
}

func (a *App) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(a.WorkDir, p)
}

func (a *App) readFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(a.FS, path)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return "", errors.AddContext(errors.Wrap(err, code, "cannot read file"), errors.CtxPath, path)
	}
	return string(data), nil
}

// ParseRaw reads path and returns its raw element sequence.
func (a *App) ParseRaw(ctx context.Context, path string) ([]ast.Element, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.ParseRaw", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("backend", string(a.Backend)),
	))
	defer span.End()

	src, err := a.readFile(ctx, path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := parser.ParseRawWith(a.Backend, src, parser.WithDiagnostics(a.diagnostic))
	observability.ParsingDuration.WithLabelValues(string(a.Backend)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, errors.AddContext(errors.WrapSource(err, path), errors.CtxBackend, string(a.Backend))
	}
	return raw, nil
}

// LoadModule parses and assembles path into a module named after the path.
func (a *App) LoadModule(ctx context.Context, path string) (ast.Module, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.LoadModule", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	raw, err := a.ParseRaw(ctx, path)
	if err != nil {
		return ast.Module{}, err
	}

	_, assembleSpan := observability.Tracer.Start(ctx, "ast.Assemble")
	m, err := ast.Assemble(a.Namespace(path), raw)
	assembleSpan.End()
	if err != nil {
		span.RecordError(err)
		return ast.Module{}, errors.WrapSource(err, path)
	}
	slog.Debug("module loaded", "path", path, "namespace", m.Namespace.String(),
		"data_types", m.DataTypes.Len(), "enums", m.Enums.Len(), "services", m.Services.Len())
	return m, nil
}

// LoadRaw decodes an arbitrary data file for generators run with --raw.
func (a *App) LoadRaw(ctx context.Context, path string) (any, error) {
	src, err := a.readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	v, err := generate.DecodeRaw([]byte(src))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return v, nil
}
