package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

const reloadDelay = 100 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands every
// valid new version to the callback. Invalid versions are logged and skipped,
// and saves that leave the content unchanged are ignored.
type Watcher struct {
	fs       afero.Fs
	path     string
	callback func(*Config)

	mu   sync.Mutex
	sum  uint64
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewWatcher(fs afero.Fs, path string, callback func(*Config)) *Watcher {
	return &Watcher{
		fs:       fs,
		path:     filepath.Clean(path),
		callback: callback,
		stop:     make(chan struct{}),
	}
}

// Start begins watching in the background until ctx is done or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors often save by renaming over the file, so the parent directory is
	// watched rather than the file itself.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}
	w.sum, _ = w.checksum()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fsw.Close()
		w.loop(ctx, fsw)
	}()
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	slog.Debug("watching config", "path", w.path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, w.reload)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) checksum() (uint64, error) {
	data, err := afero.ReadFile(w.fs, w.path)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func (w *Watcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	sum, err := w.checksum()
	if err == nil && sum == w.sum {
		return
	}
	cfg, err := Load(w.fs, w.path)
	if err != nil {
		slog.Warn("config reload failed", "path", w.path, "error", err)
		return
	}
	w.sum = sum
	slog.Info("config reloaded", "path", w.path)
	if w.callback != nil {
		w.callback(cfg)
	}
}
