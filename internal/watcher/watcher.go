// Package watcher re-runs a callback when a register document changes on disk.
package watcher

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of writes from editors into one reload
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a single document file
type Watcher struct {
	path     string
	onChange func(ctx context.Context) error
	debounce time.Duration
	log      *log.Logger
}

// New creates a watcher that calls onChange after path is written or replaced
func New(path string, onChange func(ctx context.Context) error) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
		log:      log.New(io.Discard, "", 0),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// WithLogger sets the logger for change and error reports
func (w *Watcher) WithLogger(l *log.Logger) *Watcher {
	if l != nil {
		w.log = l
	}
	return w
}

// Watch blocks until the context is cancelled. Callback failures are logged
// and watching continues.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the directory so files replaced by rename are still seen
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	w.log.Printf("Watching %s for changes", abs)

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.log.Printf("File changed: %s", abs)
			if err := w.onChange(ctx); err != nil {
				w.log.Printf("Reload of %s failed: %v", abs, err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Printf("Watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
