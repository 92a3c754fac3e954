package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last file event before a
// reload.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a configuration file when it changes. Reloads that fail
// to parse or validate are logged and the previous configuration stays in
// effect.
type Watcher struct {
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func(*Config)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for reload diagnostics.
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher watches path. onChange receives every configuration that
// loads successfully after a change.
func NewWatcher(path string, onChange func(*Config), opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create file watcher: %w", err)
	}
	w := &Watcher{
		logger:   slog.New(discardHandler{}),
		watcher:  fw,
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		onChange: onChange,
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Run watches until ctx is done or Stop is called. The parent directory is
// watched so editors that replace the file are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", w.path, err)
	}
	w.logger.Info("watching configuration", "path", w.path)

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C
	defer debounceTimer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.shouldProcessEvent(event) {
				w.logger.Debug("configuration changed", "file", event.Name, "op", event.Op.String())
				debounceTimer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "err", err)

		case <-debounceTimer.C:
			w.reload()

		case <-ctx.Done():
			w.logger.Info("stopping configuration watcher")
			return ctx.Err()
		}
	}
}

// Stop closes the underlying watcher, ending Run.
func (w *Watcher) Stop() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create == 0 &&
		event.Op&fsnotify.Write == 0 &&
		event.Op&fsnotify.Rename == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

func (w *Watcher) reload() {
	start := time.Now()
	cfg, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("configuration reload failed, keeping previous", "path", w.path, "err", err)
		return
	}
	w.logger.Info("configuration reloaded", "path", w.path, "faces", cfg.FaceCount(),
		"duration", time.Since(start))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
