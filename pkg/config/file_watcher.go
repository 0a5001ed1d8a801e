/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDebounce = time.Second
	DefaultSettle   = 500 * time.Millisecond
)

// FileWatcher turns filesystem notifications for a fixed set of files into
// debounced change events. Repeated notifications for the same file within
// the debounce window collapse into one; each surviving event is delivered
// after a settle delay so readers do not see a half-written file.
type FileWatcher struct {
	dir      string
	files    map[string]struct{}
	debounce time.Duration
	settle   time.Duration
	logger   logger.Logger
	registry *WatcherRegistry
	id       string
	now      func() time.Time

	mu         sync.Mutex
	lastChange map[string]time.Time

	events  chan string
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// FileWatcherOption customizes a FileWatcher.
type FileWatcherOption func(*FileWatcher)

func WithDebounce(d time.Duration) FileWatcherOption {
	return func(w *FileWatcher) { w.debounce = d }
}

func WithSettle(d time.Duration) FileWatcherOption {
	return func(w *FileWatcher) { w.settle = d }
}

func WithRegistry(r *WatcherRegistry) FileWatcherOption {
	return func(w *FileWatcher) { w.registry = r }
}

func withNow(now func() time.Time) FileWatcherOption {
	return func(w *FileWatcher) { w.now = now }
}

// NewFileWatcher watches the named files inside dir. The directory is
// watched rather than the files so atomic rename-on-save is observed.
func NewFileWatcher(dir string, files []string, log logger.Logger, opts ...FileWatcherOption) (*FileWatcher, error) {
	w := &FileWatcher{
		dir:        filepath.Clean(dir),
		files:      make(map[string]struct{}, len(files)),
		debounce:   DefaultDebounce,
		settle:     DefaultSettle,
		logger:     log,
		now:        time.Now,
		lastChange: make(map[string]time.Time),
		events:     make(chan string, len(files)+1),
	}

	for _, f := range files {
		w.files[filepath.Base(f)] = struct{}{}
	}

	for _, opt := range opts {
		opt(w)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.watcher = fw

	if w.registry != nil {
		w.id = w.registry.Register("scheduler", w.dir)
	}

	return w, nil
}

// Events delivers the base name of each changed file.
func (w *FileWatcher) Events() <-chan string {
	return w.events
}

// Run consumes notifications until ctx is done, then releases the
// underlying watcher.
func (w *FileWatcher) Run(ctx context.Context) error {
	defer func() {
		_ = w.watcher.Close()
		w.wg.Wait()

		if w.registry != nil {
			w.registry.MarkStopped(w.id, ctx.Err())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}

			w.notify(ctx, filepath.Base(ev.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn().Err(err).Str("dir", w.dir).Msg("File watcher error")

			if w.registry != nil {
				w.registry.MarkEvent(w.id, err)
			}
		}
	}
}

// notify applies the debounce and schedules delivery after the settle delay.
func (w *FileWatcher) notify(ctx context.Context, name string) {
	if _, ok := w.files[name]; !ok {
		return
	}

	if !w.accept(name) {
		return
	}

	if w.registry != nil {
		w.registry.MarkEvent(w.id, nil)
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		t := time.NewTimer(w.settle)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		select {
		case w.events <- name:
		case <-ctx.Done():
		}
	}()
}

// accept reports whether a change to name falls outside the debounce window
// and records it.
func (w *FileWatcher) accept(name string) bool {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if last, ok := w.lastChange[name]; ok && now.Sub(last) < w.debounce {
		return false
	}

	w.lastChange[name] = now

	return true
}
