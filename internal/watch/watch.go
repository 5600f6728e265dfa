// Package watch converts worlds as they appear in a folder.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler processes one settled file. It runs on the watcher's goroutine, so
// files are handled one at a time.
type Handler func(ctx context.Context, path string)

// Watcher calls a Handler for every regular file in a folder that is created
// or written and then left alone for the debounce interval.
type Watcher struct {
	dir      string
	debounce time.Duration
	handle   Handler
	skip     func(name string) bool
	logger   *zap.Logger
}

// New returns a Watcher for dir. Files whose base name starts with a dot are
// never handled, nor are names for which skip returns true. skip may be nil.
//
// Precondition: handle and logger must be non-nil; debounce must not be negative.
func New(dir string, debounce time.Duration, handle Handler, skip func(name string) bool, logger *zap.Logger) *Watcher {
	if skip == nil {
		skip = func(string) bool { return false }
	}
	return &Watcher{dir: dir, debounce: debounce, handle: handle, skip: skip, logger: logger}
}

// Run watches until ctx is done.
//
// Postcondition: Returns nil after ctx is done or the watcher shuts down, or
// an error if the folder cannot be watched. No debounce timer outlives Run.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching folder", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))
	return w.loop(ctx, fw.Events, fw.Errors)
}

// loop debounces events until ctx is done or either channel closes. Timers
// that fire after loop returns give up once its context is cancelled.
func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pending := make(map[string]*time.Timer)
	settled := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			name := ev.Name
			if !w.wanted(name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if t, ok := pending[name]; ok {
					t.Stop()
					delete(pending, name)
				}
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if t, ok := pending[name]; ok {
					t.Reset(w.debounce)
					continue
				}
				pending[name] = time.AfterFunc(w.debounce, func() {
					select {
					case settled <- name:
					case <-ctx.Done():
					}
				})
			}

		case name := <-settled:
			delete(pending, name)
			info, err := os.Stat(name)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			w.logger.Debug("file settled", zap.String("path", name))
			w.handle(ctx, name)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) wanted(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !w.skip(base)
}
