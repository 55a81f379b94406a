package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"ssd/internal/core/config"
	"ssd/internal/core/errors"
	"ssd/internal/core/ports"
	"ssd/internal/core/watcher"
	"ssd/internal/shared/observability"
	"ssd/internal/shared/util"
)

const watchRunInterval = 500 * time.Millisecond

// Watch checks paths once, then re-checks changed files until ctx is done.
// Runs are rate limited so a burst of saves does not queue a check per save.
// With a metrics address configured, /metrics and /health are served for the
// duration of the call. Edits to the config file apply to later runs.
func (a *App) Watch(ctx context.Context, paths []string, handler func(ports.WatchUpdate)) error {
	if handler == nil {
		handler = func(ports.WatchUpdate) {}
	}

	cfg := a.currentConfig()
	if addr := cfg.Watch.MetricsAddr; addr != "" {
		srv := observability.NewServer(addr, NewHealthService(a).Components)
		if err := srv.Start(); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeConfigError, "cannot start metrics server"), "addr", addr)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	initial, err := a.Check(ctx, ports.CheckRequest{Paths: paths, RoundTrip: cfg.Check.RoundTrip})
	if err != nil {
		return err
	}
	handler(ports.WatchUpdate{Changed: initial.Files, Result: initial})

	changes := make(chan []string, 16)
	w, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Check.ExcludeDirs, cfg.Check.Include, func(batch []string) {
		select {
		case changes <- batch:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeConfigError, "cannot create watcher")
	}
	defer w.Close()

	if err := w.Watch(dirsOf(a, paths)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "cannot watch paths")
	}
	slog.Info("watching for changes", "paths", paths)

	if a.ConfigPath != "" {
		if ok, _ := existsFile(a, a.ConfigPath); ok {
			cw := config.NewWatcher(a.FS, a.ConfigPath, func(next *config.Config) {
				a.SetConfig(next)
				w.SetDebounce(next.Watch.Debounce)
			})
			if err := cw.Start(ctx); err != nil {
				slog.Warn("cannot watch config", "path", a.ConfigPath, "error", err)
			} else {
				defer cw.Stop()
			}
		}
	}

	throttle := util.NewThrottle(watchRunInterval, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-changes:
			waited, err := throttle.Wait(ctx)
			if err != nil {
				return nil
			}
			if waited > time.Millisecond {
				slog.Debug("check run throttled", "waited", waited)
			}
			batch = append(batch, drain(changes)...)
			a.recheck(ctx, batch, handler)
		}
	}
}

func (a *App) recheck(ctx context.Context, batch []string, handler func(ports.WatchUpdate)) {
	observability.WatchRunsTotal.Inc()

	existing := make([]string, 0, len(batch))
	seen := make(map[string]bool, len(batch))
	for _, p := range batch {
		if seen[p] {
			continue
		}
		seen[p] = true
		if ok, _ := existsFile(a, p); ok {
			existing = append(existing, p)
		} else {
			slog.Info("file removed", "path", p)
		}
	}
	sort.Strings(existing)
	if len(existing) == 0 {
		return
	}

	result, err := a.Check(ctx, ports.CheckRequest{Paths: existing, RoundTrip: a.currentConfig().Check.RoundTrip})
	if err != nil {
		slog.Warn("watch check failed", "error", err)
		return
	}
	handler(ports.WatchUpdate{Changed: existing, Result: result})
}

func drain(ch chan []string) []string {
	var out []string
	for {
		select {
		case more := <-ch:
			out = append(out, more...)
		default:
			return out
		}
	}
}

func existsFile(a *App, p string) (bool, error) {
	info, err := a.FS.Stat(p)
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// dirsOf maps watch targets to directories; a file is watched through its
// parent.
func dirsOf(a *App, paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool)
	for _, p := range paths {
		dir := p
		if ok, _ := existsFile(a, p); ok {
			dir = filepath.Dir(p)
		}
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	return out
}
