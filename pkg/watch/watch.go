// Package watch re-runs work when a file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce suits editors that write a file in several steps.
const DefaultDebounce = 200 * time.Millisecond

// Option configures [File].
type Option func(*options)

type options struct {
	onError func(error)
}

// WithErrorHandler receives errors from fn and from the watcher itself.
// Without it such errors are dropped and watching continues.
func WithErrorHandler(h func(error)) Option {
	return func(o *options) { o.onError = h }
}

// File calls fn once per burst of changes to path, where a burst ends after
// debounce passes without another event. It watches the parent directory so
// that editors which save by renaming a temp file over path are seen.
//
// File blocks until ctx is done, then returns nil. It returns an error only
// when the watch cannot be set up.
func File(ctx context.Context, path string, debounce time.Duration, fn func() error, opts ...Option) error {
	o := options{onError: func(error) {}}
	for _, opt := range opts {
		opt(&o)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			o.onError(err)

		case <-timer.C:
			if err := fn(); err != nil {
				o.onError(err)
			}
		}
	}
}
