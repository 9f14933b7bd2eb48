// Package watch re-runs a rewrite whenever compiled artifacts below a
// source directory change. Output always goes to a separate directory: a
// rewrite is not idempotent, so rewriting the watched tree in place would
// retrigger on its own writes and prefix twice.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/mountrewrite/internal/foundation/errors"
	"git.home.luguber.info/inful/mountrewrite/internal/logfields"
)

// DefaultDebounce is how long the tree must be quiet before a run starts.
const DefaultDebounce = 300 * time.Millisecond

// RunFunc performs one rewrite pass.
type RunFunc func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Extensions limits which file changes trigger a run. Empty means any.
	Extensions []string
	// Rescan, when positive, forces a full pass on this interval even
	// without events.
	Rescan time.Duration
	Logger *slog.Logger
}

// Watcher triggers RunFunc on changes below a source directory.
type Watcher struct {
	src      string
	out      string
	run      RunFunc
	debounce time.Duration
	exts     []string
	rescan   time.Duration
	logger   *slog.Logger
}

// New validates the directory pair and returns a Watcher. out must not be
// src or lie inside it.
func New(src, out string, run RunFunc, opts Options) (*Watcher, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve source directory").Build()
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve output directory").Build()
	}
	fi, err := os.Stat(absSrc)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot access source directory").
			WithContext("path", src).
			Build()
	}
	if !fi.IsDir() {
		return nil, ferrors.ValidationError(fmt.Sprintf("%s is not a directory", src)).Build()
	}
	if out == "" || isWithin(absSrc, absOut) {
		return nil, ferrors.ValidationError("output directory must be outside the watched source directory").
			WithContext("src", absSrc).
			WithContext("out", absOut).
			Build()
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{
		src:      absSrc,
		out:      absOut,
		run:      run,
		debounce: opts.Debounce,
		exts:     opts.Extensions,
		rescan:   opts.Rescan,
		logger:   opts.Logger,
	}, nil
}

// isWithin reports whether path is root or below it.
func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Run performs an initial pass, then watches until ctx is cancelled. A
// failing pass is logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := setupFileWatcher(w.src, w.logger)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	runReq, trigger, stop := newDebouncer(w.debounce)
	var wg sync.WaitGroup
	defer func() {
		stop()
		cancel()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx, runReq)
	}()

	if w.rescan > 0 {
		stopRescan, err := w.scheduleRescan(trigger)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "schedule rescan").Build()
		}
		defer stopRescan()
	}

	w.logger.Info("Watching for changes", logfields.Path(w.src), slog.String("out", w.out))
	runReq <- struct{}{}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping watcher")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// worker runs one pass at a time. Requests arriving during a pass collapse
// into a single follow-up pass.
func (w *Watcher) worker(ctx context.Context, runReq chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-runReq:
			start := time.Now()
			err := w.run(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				w.logger.Warn("Rewrite pass failed", logfields.Error(err))
				continue
			}
			w.logger.Info("Rewrite pass complete", logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		}
	}
}

// newDebouncer returns a request channel with room for one pending run, a
// trigger that fires it after d of quiet, and a stop func.
func newDebouncer(d time.Duration) (chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	stopped := false
	runReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case runReq <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
	}
	return runReq, trigger, stop
}

func setupFileWatcher(root string, logger *slog.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "fsnotify").Build()
	}
	if err := addDirsRecursive(watcher, root, logger); err != nil {
		_ = watcher.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "watch source directory").
			WithContext("path", root).
			Build()
	}
	return watcher, nil
}

func (w *Watcher) handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name, w.logger)
			trigger()
			return
		}
	}
	if ev.Op == fsnotify.Chmod {
		return
	}
	if len(w.exts) > 0 && !slices.Contains(w.exts, filepath.Ext(ev.Name)) {
		return
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger a run.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
