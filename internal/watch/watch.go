// Package watch reports changes to a set of files through a signal.
//
// Run owns the event loop and emits on the calling goroutine, so slots
// connected to Changed may touch single-goroutine state such as a Lua host.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/dshills/sigslot/internal/signal"
)

// Errors returned by the watcher.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
	ErrNoPaths       = errors.New("no paths to watch")
)

// DefaultDelay is how long a file must stay quiet before its change is
// reported.
const DefaultDelay = 150 * time.Millisecond

// changedContract is the parameter list of the changed signal.
var changedContract = signal.MustDeclare[func(path string)](signal.Arg("path"))

// Watcher watches individual files. It watches their directories so that
// editors which replace a file on save are still seen.
type Watcher struct {
	fsw     *fsnotify.Watcher
	files   map[string]bool
	delay   time.Duration
	log     logrus.FieldLogger
	changed *signal.Signal
	closed  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(w *Watcher) {
		w.log = log
	}
}

// New creates a watcher for paths. Every path must exist.
func New(paths []string, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	w := &Watcher{
		files:   make(map[string]bool, len(paths)),
		delay:   DefaultDelay,
		log:     logrus.StandardLogger(),
		changed: signal.New(changedContract),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(abs); err != nil {
			if os.IsNotExist(err) {
				return nil, ErrPathNotExist
			}
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	w.fsw = fsw
	return w, nil
}

// Changed returns the signal emitted with the path of each changed file.
func (w *Watcher) Changed() *signal.Signal {
	return w.changed
}

// Files returns the watched files, sorted.
func (w *Watcher) Files() []string {
	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

// Run processes file events until ctx is done or the watcher is closed.
// Changes to the same file within the delay are reported once. An error
// returned by a slot is logged and does not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	if w.closed {
		return ErrWatcherClosed
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			pending[filepath.Clean(ev.Name)] = true
			timer.Reset(w.delay)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("file watch error")

		case <-timer.C:
			w.flush(pending)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !w.files[filepath.Clean(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// flush emits pending paths in sorted order and clears the set.
func (w *Watcher) flush(pending map[string]bool) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	clear(pending)

	for _, p := range paths {
		w.log.WithField("path", p).Debug("file changed")
		if err := w.changed.Emit(p); err != nil {
			w.log.WithError(err).WithField("path", p).Warn("change handler failed")
		}
	}
}

// Close stops watching. A running Run returns.
func (w *Watcher) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}
