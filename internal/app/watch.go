package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/fsutil"
)

// watch reloads the configuration whenever a file under the configuration
// path changes. Bursts of events are collapsed into one reload after the
// debounce interval. The returned function stops the watcher and waits for
// it to exit.
func (a *App) watch(ctx context.Context) (func(), error) {
	logger := ctxlog.FromContext(ctx)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	path := filepath.Clean(a.config.ConfigPath)
	info, err := os.Stat(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	// Editors replace files on save, so single files are watched through
	// their directory.
	relevant := func(name string) bool { return filepath.Clean(name) == path }
	if info.IsDir() {
		relevant = func(name string) bool {
			base := filepath.Base(name)
			return !fsutil.IsHidden(base) && strings.HasSuffix(strings.ToLower(base), ".hcl")
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return err
			}
			if p != path && fsutil.IsHidden(d.Name()) {
				return filepath.SkipDir
			}
			return watcher.Add(p)
		})
	} else {
		err = watcher.Add(filepath.Dir(path))
	}
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	logger.Info("👀 Watching configuration for changes", "path", path, "debounce", a.config.ReloadDebounce)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if info.IsDir() && ev.Has(fsnotify.Create) {
					if st, err := os.Stat(ev.Name); err == nil && st.IsDir() && !fsutil.IsHidden(st.Name()) {
						_ = watcher.Add(ev.Name)
						continue
					}
				}
				if ev.Has(fsnotify.Chmod) || !relevant(ev.Name) {
					continue
				}
				logger.Debug("Configuration file event.", "event", ev.String())
				fire = time.After(a.config.ReloadDebounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("File watcher error.", "error", err)
			case <-fire:
				fire = nil
				a.reload(ctx)
			}
		}
	}()

	return func() {
		cancel()
		watcher.Close()
		<-done
	}, nil
}
