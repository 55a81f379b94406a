package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ssd/internal/core/errors"
	"ssd/internal/core/ports"
	"ssd/internal/engine/ast"
	"ssd/internal/engine/diag"
	"ssd/internal/engine/pretty"
	"ssd/internal/shared/observability"
)

type checkSummary struct {
	files    int
	failures int
}

// Check parses and assembles every source file named by req.Paths. Directories
// are walked for files matching the configured include patterns. Failures are
// collected per file; the returned error is reserved for problems that stop
// the run as a whole.
func (a *App) Check(ctx context.Context, req ports.CheckRequest) (ports.CheckResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Check", trace.WithAttributes(
		attribute.Int("paths", len(req.Paths)),
		attribute.Bool("round_trip", req.RoundTrip),
	))
	defer span.End()

	files, err := a.ScanPaths(req.Paths)
	if err != nil {
		return ports.CheckResult{}, err
	}

	var (
		mu       sync.Mutex
		failures []ports.FileFailure
	)
	g, gctx := errgroup.WithContext(ctx)
	workers := a.currentConfig().Check.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)
	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := a.checkFile(gctx, file, req.RoundTrip); err != nil {
				mu.Lock()
				failures = append(failures, ports.FileFailure{Path: file, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ports.CheckResult{}, err
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	a.recordCheck(len(files), len(failures))
	span.SetAttributes(attribute.Int("files", len(files)), attribute.Int("failures", len(failures)))
	slog.Debug("check finished", "files", len(files), "failures", len(failures))

	return ports.CheckResult{Files: files, Failures: failures}, nil
}

func (a *App) checkFile(ctx context.Context, path string, roundTrip bool) error {
	raw, err := a.ParseRaw(ctx, path)
	if err == nil {
		_, err = ast.Assemble(a.Namespace(path), raw)
		err = errors.WrapSource(err, path)
	}
	if err == nil && roundTrip {
		if _, err = pretty.Check(raw); err != nil {
			err = errors.WrapSource(err, path)
		}
	}

	switch {
	case err == nil:
		observability.FilesCheckedTotal.WithLabelValues(observability.ResultOK).Inc()
	case isRoundTrip(err):
		observability.FilesCheckedTotal.WithLabelValues(observability.ResultRoundTrip).Inc()
		observability.RoundTripFailuresTotal.Inc()
	default:
		observability.FilesCheckedTotal.WithLabelValues(observability.ResultError).Inc()
	}
	return err
}

func isRoundTrip(err error) bool {
	var rt *diag.RoundTripError
	return errors.As(err, &rt)
}

// ScanPaths expands files and directories into a sorted, de-duplicated list of
// source files. Explicitly named files are kept even when they do not match an
// include pattern.
func (a *App) ScanPaths(paths []string) ([]string, error) {
	cfg := a.currentConfig()
	includes, err := compileGlobs(cfg.Check.Include, "include")
	if err != nil {
		return nil, err
	}
	excludes, err := compileGlobs(cfg.Check.ExcludeDirs, "exclude dir")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := a.FS.Stat(root)
		if err != nil {
			code := errors.CodeInternal
			if os.IsNotExist(err) {
				code = errors.CodeNotFound
			}
			return nil, errors.AddContext(errors.Wrap(err, code, "cannot scan path"), errors.CtxPath, root)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = afero.Walk(a.FS, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			if info.IsDir() {
				if path != root && matchAny(excludes, base) {
					return filepath.SkipDir
				}
				return nil
			}
			if matchAny(includes, base) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "cannot scan path"), errors.CtxPath, root)
		}
	}
	sort.Strings(files)
	return files, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfigError, fmt.Sprintf("invalid %s pattern %q", label, p))
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (a *App) recordCheck(files, failures int) {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	a.lastCheck = time.Now()
	a.lastResult = checkSummary{files: files, failures: failures}
}
