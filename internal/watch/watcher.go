package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is how long a burst of events must stay quiet before the change is reported.
const DefaultDelay = 100 * time.Millisecond

// ChangeFunc handles one debounced batch of changed files.
type ChangeFunc func(ctx context.Context, changed []string) error

// FileWatcher reports changes to a fixed set of files. The parent directories are watched
// rather than the files themselves, so editors that save by replacing the file are still
// seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	delay   time.Duration
	logger  *zap.Logger
}

// Option configures a FileWatcher
type Option func(*FileWatcher)

// WithDelay sets the debounce delay
func WithDelay(d time.Duration) Option {
	return func(fw *FileWatcher) {
		if d > 0 {
			fw.delay = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(fw *FileWatcher) {
		if logger != nil {
			fw.logger = logger
		}
	}
}

// NewFileWatcher starts watching files. Events are queued from this point on, even before
// Run is called.
func NewFileWatcher(files []string, opts ...Option) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		files:   make(map[string]bool, len(files)),
		delay:   DefaultDelay,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fw)
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		fw.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		dirs[dir] = true
		fw.logger.Debug("watching directory", zap.String("dir", dir))
	}
	return fw, nil
}

// Files returns the watched files as absolute paths, sorted.
func (fw *FileWatcher) Files() []string {
	return sortedKeys(fw.files)
}

// Close stops watching
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

// Run calls onChange for every debounced batch of changes until ctx is cancelled or the
// watcher is closed. A failing onChange is logged and watching continues.
func (fw *FileWatcher) Run(ctx context.Context, onChange ChangeFunc) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(fw.delay)
	timer.Stop()
	defer timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			path, relevant := fw.relevant(event)
			if !relevant {
				continue
			}
			fw.logger.Debug("file changed", zap.String("path", path), zap.String("op", event.Op.String()))
			pending[path] = true
			timer.Reset(fw.delay)
			fire = timer.C

		case <-fire:
			fire = nil
			changed := sortedKeys(pending)
			pending = make(map[string]bool)
			if err := onChange(ctx, changed); err != nil {
				fw.logger.Warn("change handler failed", zap.Strings("files", changed), zap.Error(err))
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// relevant reports whether event writes or creates one of the watched files.
func (fw *FileWatcher) relevant(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}
	return path, fw.files[path]
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
