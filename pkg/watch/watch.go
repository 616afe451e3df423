// Package watch reports changes to template, partial and data files.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/loader"
)

// Watcher batches file system events and calls OnChange once a burst of
// changes has settled.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	exts     []string
	onChange func(paths []string)
	stdout   io.Writer
	stderr   io.Writer

	mu      sync.Mutex
	files   map[string]bool // files added directly, watched whatever their extension
	pending map[string]bool
	timer   *time.Timer
}

// New creates a watcher. Files in watched directories are reported when
// their extension is in exts; files added directly are always reported.
func New(debounce time.Duration, exts []string, onChange func(paths []string), stdout, stderr io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsWatcher,
		debounce: debounce,
		exts:     exts,
		onChange: onChange,
		stdout:   stdout,
		stderr:   stderr,
		files:    map[string]bool{},
		pending:  map[string]bool{},
	}, nil
}

// Add watches files and directories. Directories are watched recursively,
// skipping hidden ones. A file is watched through its parent directory so
// that editors which replace the file on save are still seen.
func (w *Watcher) Add(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return watchError(p, err)
		}
		if info.IsDir() {
			if err := w.watchDirRecursive(abs); err != nil {
				return watchError(p, err)
			}
			w.logInfo("watching directory: %s", p)
			continue
		}
		w.mu.Lock()
		w.files[abs] = true
		w.mu.Unlock()
		if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
			return watchError(p, err)
		}
		w.logInfo("watching file: %s", p)
	}
	return nil
}

// watchDirRecursive adds a directory and its subdirectories to the watch list
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
					if err := w.watchDirRecursive(event.Name); err != nil {
						w.logError("failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.relevant(event.Name) {
				w.schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logError("watcher error: %v", err)
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	direct := w.files[abs]
	w.mu.Unlock()
	return direct || loader.HasExtension(abs, w.exts)
}

// schedule records path and restarts the settle timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = map[string]bool{}
	w.timer = nil
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	for _, p := range paths {
		w.logInfo("changed: %s", p)
	}
	w.onChange(paths)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...interface{}) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...interface{}) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}

func watchError(path string, err error) error {
	return perrors.New("IO-0003", map[string]any{"Path": path, "GoError": err.Error()})
}
