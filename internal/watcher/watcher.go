// Package watcher re-triggers clustering when an input file changes on disk.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce coalesces the several events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must stay quiet before onChange fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// Watcher reports content changes to a single file. The parent directory is
// watched so that rename-over saves and re-creation are seen too.
type Watcher struct {
	onChange func()
	path     string
	dir      string
	debounce time.Duration
}

// New resolves path and returns an idle Watcher. Nothing is watched until Run.
func New(path string, onChange func(), opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w := &Watcher{
		onChange: onChange,
		path:     abs,
		dir:      filepath.Dir(abs),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run watches until ctx is cancelled. It returns nil on cancellation and an
// error if the directory cannot be watched or the event stream breaks.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	log.Debug().Str("path", w.path).Dur("debounce", w.debounce).Msg("Watching input")

	// quiet fires once the debounce window passes without further events.
	var quiet <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watch %s: event stream closed", w.dir)
			}
			if !w.touchesTarget(ev) {
				continue
			}
			log.Debug().Str("path", w.path).Str("op", ev.Op.String()).Msg("Input event")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			quiet = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watch %s: error stream closed", w.dir)
			}
			log.Warn().Err(err).Str("path", w.path).Msg("Watcher error")

		case <-quiet:
			quiet = nil
			w.fire()
		}
	}
}

func (w *Watcher) touchesTarget(ev fsnotify.Event) bool {
	return filepath.Clean(ev.Name) == w.path &&
		ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// fire calls onChange unless the file is gone, as after a rename away.
func (w *Watcher) fire() {
	if _, err := os.Stat(w.path); err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("Input missing after change, skipping")
		return
	}
	log.Info().Str("path", w.path).Msg("Input changed")
	if w.onChange != nil {
		w.onChange()
	}
}
