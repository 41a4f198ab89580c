package supervisor

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses a burst of file events into one restart.
const watchDebounce = 200 * time.Millisecond

var defaultIgnore = []string{".git", "node_modules", "*.swp", "*~"}

// watcher reports file changes below a set of paths.
type watcher struct {
	fs     *fsnotify.Watcher
	ignore []string
	log    *slog.Logger

	closeOnce sync.Once
}

// newWatcher watches every path (directories recursively). Relative paths
// are taken from root; an empty list watches root itself.
func newWatcher(root string, paths, ignore []string, log *slog.Logger) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &watcher{
		fs:     fsw,
		ignore: append(append([]string(nil), defaultIgnore...), ignore...),
		log:    log,
	}

	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if err := w.addTree(p); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// addTree adds path and, when it is a directory, every directory below it.
func (w *watcher) addTree(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if p != path && w.ignored(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p != path && !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		w.log.Debug("watching", "path", p)
		return nil
	})
}

func (w *watcher) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.ignore {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Changes starts the event loop and returns a channel that receives the
// name of a changed file once events have been quiet for watchDebounce.
// The loop stops when ctx is done.
func (w *watcher) Changes(ctx context.Context) <-chan string {
	out := make(chan string, 1)
	go w.loop(ctx, out)
	return out
}

func (w *watcher) loop(ctx context.Context, out chan<- string) {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				// New directories are watched too. Errors here only mean the
				// entry is already gone or is a plain file.
				_ = w.addTree(ev.Name)
			}
			changed = ev.Name
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error("file watcher error", "error", err)

		case <-fire:
			fire = nil
			select {
			case out <- changed:
			default:
			}
		}
	}
}

// Close stops watching.
func (w *watcher) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.fs.Close() })
	return err
}
