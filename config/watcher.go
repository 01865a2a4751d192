package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/utils"
)

// reloadDelay coalesces the burst of events an editor produces while saving.
const reloadDelay = 200 * time.Millisecond

// A Watcher re-reads a config file whenever it changes and hands every valid config that differs
// from the current one to its callback. Invalid configs are logged and skipped.
type Watcher struct {
	path    string
	logger  logging.Logger
	watcher *fsnotify.Watcher
	apply   func(ctx context.Context, cfg *Config)
	reload  chan struct{}
	workers utils.StoppableWorkers

	mu      sync.Mutex
	current *Config
}

// NewWatcher starts watching the file current was read from.
func NewWatcher(current *Config, apply func(ctx context.Context, cfg *Config), logger logging.Logger) (*Watcher, error) {
	if current.ConfigFilePath == "" {
		return nil, errors.New("config was not read from a file")
	}
	path, err := filepath.Abs(current.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory so that files replaced by rename are still seen.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return nil, multierr.Combine(err, fsw.Close())
	}

	w := &Watcher{
		path:    path,
		logger:  logger,
		watcher: fsw,
		apply:   apply,
		reload:  make(chan struct{}, 1),
		current: current,
	}
	w.workers = utils.NewStoppableWorkers(w.run)
	return w, nil
}

// Current returns the last applied config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Watcher) run(ctx context.Context) {
	debounced := debounce.New(reloadDelay)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			debounced(w.signal)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watcher error", "error", err)
		case <-w.reload:
			w.reloadConfig(ctx)
		}
	}
}

func (w *Watcher) signal() {
	select {
	case w.reload <- struct{}{}:
	default:
	}
}

func (w *Watcher) reloadConfig(ctx context.Context) {
	cfg, err := Read(ctx, w.path, w.logger)
	if err != nil {
		w.logger.Warnw("ignoring invalid config", "path", w.path, "error", err)
		return
	}
	cfg.ConfigFilePath = w.Current().ConfigFilePath

	w.mu.Lock()
	diff := cmp.Diff(w.current, cfg)
	if diff == "" {
		w.mu.Unlock()
		return
	}
	w.current = cfg
	w.mu.Unlock()

	w.logger.Infow("config changed", "diff", diff)
	w.apply(ctx, cfg)
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	w.workers.Stop()
	return err
}
