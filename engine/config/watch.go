package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits after the last change before reloading.
const DefaultDebounce = 100 * time.Millisecond

type watchConfig struct {
	logger   *zap.Logger
	debounce time.Duration
}

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

// WithWatchLogger sets the logger reload failures are reported on.
func WithWatchLogger(logger *zap.Logger) WatchOption {
	return func(w *watchConfig) {
		if logger != nil {
			w.logger = logger.Named("config")
		}
	}
}

// WithDebounce sets the quiet period between the last change and the reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *watchConfig) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watch reloads path whenever it changes and passes every valid result to fn. A file that fails
// to load is logged and skipped, the previous configuration stays in effect. The directory is
// watched rather than the file so editors that replace the file on save are followed.
//
// Watch returns once the watcher is registered; reloading continues on its own goroutine until
// ctx is done.
//
// Parameters:
//   - ctx: stops the watcher when done
//   - path: the YAML file to watch
//   - fn: called with each reloaded configuration, from the watcher goroutine
//   - opts: watcher options
//
// Returns:
//   - error: an error if the watcher cannot be created
func Watch(ctx context.Context, path string, fn func(Config), opts ...WatchOption) error {
	wc := &watchConfig{logger: zap.NewNop(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(wc)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolving %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watching %s: %w", abs, err)
	}
	wc.logger.Info("watching config", zap.String("path", abs))

	go func() {
		defer watcher.Close()

		debounce := time.NewTimer(wc.debounce)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				debounce.Reset(wc.debounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				wc.logger.Warn("config watcher error", zap.Error(err))
			case <-debounce.C:
				cfg, err := Load(abs)
				if err != nil {
					wc.logger.Warn("config reload rejected", zap.Error(err))
					continue
				}
				wc.logger.Info("config reloaded", zap.Int("tickIntervalMs", cfg.TickIntervalMs))
				fn(cfg)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
