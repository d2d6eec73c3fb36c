package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigEvent represents a configuration change event.
type ConfigEvent struct {
	Path   string
	Config *Config
	Error  error
}

// Watcher monitors one config file and keeps the last valid version of it.
// The directory is watched rather than the file so editors that replace the
// file by rename are still seen.
type Watcher struct {
	loader   *Loader
	path     string
	watcher  *fsnotify.Watcher
	events   chan ConfigEvent
	debounce time.Duration

	mu      sync.RWMutex
	current *Config

	cancel context.CancelFunc
	done   chan struct{}
	stop   sync.Once
}

// NewWatcher creates a new config file watcher.
func NewWatcher(loader *Loader, path string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	return &Watcher{
		loader:   loader,
		path:     abs,
		watcher:  fsWatcher,
		events:   make(chan ConfigEvent, 10),
		debounce: 100 * time.Millisecond,
	}, nil
}

// Events returns the channel that receives config change events.
func (w *Watcher) Events() <-chan ConfigEvent {
	return w.events
}

// Current returns the last config that loaded and validated.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start loads the file once and begins watching it for changes.
func (w *Watcher) Start(ctx context.Context) error {
	cfg, err := w.loader.LoadAndValidate(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx)
	return nil
}

// Stop closes the watcher and cleans up resources.
func (w *Watcher) Stop() error {
	var err error
	w.stop.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		err = w.watcher.Close()
		if w.done != nil {
			<-w.done
		}
		close(w.events)
	})
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	var pending time.Time
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}

			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				pending = time.Now()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.emit(ctx, ConfigEvent{
					Path:  w.path,
					Error: fmt.Errorf("config removed: %s (keeping last valid config)", w.path),
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.emit(ctx, ConfigEvent{Path: w.path, Error: err})

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= w.debounce {
				pending = time.Time{}
				w.reload(ctx)
			}
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := w.loader.LoadAndValidate(w.path)
	if err != nil {
		w.emit(ctx, ConfigEvent{
			Path:  w.path,
			Error: fmt.Errorf("failed to reload config %s: %w", w.path, err),
		})
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.emit(ctx, ConfigEvent{Path: w.path, Config: cfg})
}

func (w *Watcher) emit(ctx context.Context, ev ConfigEvent) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
