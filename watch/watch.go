// Package watch turns filesystem events into resource change notices.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/mcp-resources/logging"
)

// DefaultDebounce coalesces bursts of events such as an editor's
// write-rename-chmod sequence.
const DefaultDebounce = 200 * time.Millisecond

// Target maps a path on disk to the resource URI it backs.
type Target struct {
	URI  string
	Path string
	// Dir reports changes to any direct child of Path. Otherwise only
	// Path itself is matched.
	Dir bool
}

// Change reports that the resource at URI may have new content.
type Change struct {
	URI string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithIgnore drops events for the given paths, such as a log file living
// inside a watched directory. Empty paths are skipped.
func WithIgnore(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			w.ignore[filepath.Clean(p)] = struct{}{}
		}
	}
}

// Watcher watches a fixed set of targets.
type Watcher struct {
	targets  []Target
	ignore   map[string]struct{}
	debounce time.Duration
	logger   logging.Logger
}

// New creates a watcher for targets.
func New(targets []Target, opts ...Option) *Watcher {
	w := &Watcher{
		ignore:   make(map[string]struct{}),
		debounce: DefaultDebounce,
		logger:   logging.Nop{},
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, t := range targets {
		if abs, err := filepath.Abs(t.Path); err == nil {
			t.Path = abs
		}
		w.targets = append(w.targets, t)
	}
	return w
}

// Run starts watching and returns the channel of changes, closed when ctx is
// done. Single files are watched through their parent directory so editors
// that replace the file by rename are still seen.
func (w *Watcher) Run(ctx context.Context) (<-chan Change, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	dirs := make(map[string]bool)
	for _, t := range w.targets {
		dir := t.Path
		if !t.Dir {
			dir = filepath.Dir(t.Path)
		}
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	out := make(chan Change)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- Change) {
	defer close(out)
	defer fw.Close()

	pending := make(map[string]struct{})
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			uris := w.Match(ev.Name)
			if len(uris) == 0 {
				continue
			}
			w.logger.Debug("filesystem event",
				logging.F("path", ev.Name),
				logging.F("op", ev.Op.String()),
			)
			for _, uri := range uris {
				pending[uri] = struct{}{}
			}
			if fire == nil {
				fire = time.After(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", logging.Err(err))
		case <-fire:
			fire = nil
			uris := make([]string, 0, len(pending))
			for uri := range pending {
				uris = append(uris, uri)
			}
			sort.Strings(uris)
			clear(pending)
			for _, uri := range uris {
				select {
				case out <- Change{URI: uri}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Match returns the URIs of the targets affected by a change at path.
func (w *Watcher) Match(path string) []string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, ok := w.ignore[path]; ok {
		return nil
	}
	var uris []string
	for _, t := range w.targets {
		switch {
		case t.Dir && filepath.Dir(path) == t.Path:
			uris = append(uris, t.URI)
		case !t.Dir && path == t.Path:
			uris = append(uris, t.URI)
		}
	}
	return uris
}
