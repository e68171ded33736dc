package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/rci/internal/debug"
	"github.com/standardbeagle/rci/internal/selector"
)

// LoadFunc rebuilds a selector from the current catalog files
type LoadFunc func() (*selector.Selector, error)

// Reloader keeps a current Selector and swaps in a freshly built one when
// catalog files change. Readers never block: each query runs against
// whichever frozen index was current when it started.
type Reloader struct {
	current  atomic.Pointer[selector.Selector]
	load     LoadFunc
	debounce time.Duration

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	reloads  atomic.Int64
	failures atomic.Int64

	// onReload is called after every rebuild attempt (tests, logging)
	onReload func(*selector.Selector, error)
}

// NewReloader creates a Reloader serving initial until the first rebuild
func NewReloader(initial *selector.Selector, load LoadFunc, debounce time.Duration) *Reloader {
	r := &Reloader{load: load, debounce: debounce}
	r.current.Store(initial)
	return r
}

// SetReloadCallback registers fn to run after each rebuild attempt
func (r *Reloader) SetReloadCallback(fn func(*selector.Selector, error)) {
	r.onReload = fn
}

// Current returns the selector in effect
func (r *Reloader) Current() *selector.Selector {
	return r.current.Load()
}

// Reloads returns the number of successful and failed rebuilds
func (r *Reloader) Reloads() (ok, failed int64) {
	return r.reloads.Load(), r.failures.Load()
}

// Reload rebuilds synchronously. On failure the previous selector stays current.
func (r *Reloader) Reload() error {
	start := time.Now()
	sel, err := r.load()
	if err != nil {
		r.failures.Add(1)
		log.Printf("catalog reload failed, keeping previous index: %v", err)
	} else {
		r.current.Store(sel)
		r.reloads.Add(1)
		debug.LogWatch("catalog reloaded: %d rules in %v\n", sel.Stats().Rules, time.Since(start))
	}
	if r.onReload != nil {
		r.onReload(sel, err)
	}
	return err
}

// WatchRoots returns the directories to watch for the given catalog patterns:
// the static prefix of each pattern, resolved against root.
func WatchRoots(root string, patterns []string) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, p := range patterns {
		base, _ := doublestar.SplitPattern(p)
		dir := filepath.Join(root, filepath.FromSlash(base))
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

// Start watches dirs and their subdirectories. It returns once the watches
// are in place; events are processed in the background until Stop.
func (r *Reloader) Start(dirs []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	r.watcher = watcher

	for _, dir := range dirs {
		if err := r.addWatches(dir); err != nil {
			_ = watcher.Close()
			r.watcher = nil
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.wg.Add(1)
	go r.processEvents()

	debug.LogWatch("watching %d catalog directories\n", len(dirs))
	return nil
}

// Stop ends watching and waits for the event loop to exit
func (r *Reloader) Stop() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	err := r.watcher.Close()
	r.wg.Wait()
	return err
}

func (r *Reloader) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return r.watcher.Add(path)
		}
		return nil
	})
}

func (r *Reloader) processEvents() {
	defer r.wg.Done()

	// Armed only by relevant events
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !r.relevant(event) {
				continue
			}
			debug.LogWatch("%s %s\n", event.Op, event.Name)
			timer.Reset(r.debounce)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("catalog watcher error: %v", err)
		case <-timer.C:
			_ = r.Reload()
		}
	}
}

// relevant reports whether an event can change the catalog. New directories
// are watched so files created in them are seen.
func (r *Reloader) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := r.addWatches(event.Name); err != nil {
				log.Printf("failed to watch new directory %s: %v", event.Name, err)
			}
			// A new directory may already hold catalog files
			return true
		}
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	return strings.HasSuffix(event.Name, ".toml")
}
