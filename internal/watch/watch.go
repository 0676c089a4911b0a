// Package watch reloads a document when its file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/value"
)

// DefaultDebounce is how long a file must stay quiet before a reload.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a single file.
type Watcher struct {
	path     string
	debounce time.Duration
	log      logr.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// New returns a watcher for path.
func New(path string, opts ...Option) *Watcher {
	w := &Watcher{path: path, debounce: DefaultDebounce, log: logr.Discard()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Run calls onChange once per burst of changes to the file until ctx is done.
// The parent directory is watched so editors that save by rename are seen.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.log.V(1).Info("watching file", "file", abs)

	fire := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.log.V(1).Info("file changed", "file", abs)
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error(err, "watcher error", "file", abs)
		}
	}
}

// Documents reloads the file with format after every change and passes the
// result to send. A failed load is passed as an error so the caller can clear
// its document.
func (w *Watcher) Documents(ctx context.Context, format loader.Format, send func(value.Value, error)) error {
	return w.Run(ctx, func() {
		doc, err := loader.LoadFile(w.path, format)
		if err != nil {
			w.log.Info("reload failed", "file", w.path, "error", err.Error())
		}
		send(doc, err)
	})
}
