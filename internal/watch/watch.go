// Package watch reports debounced changes to markdown files under one or
// more corpus roots.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind describes the type of file change detected.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota // created or edited
	ChangeRemoved                    // deleted or renamed away
)

// String returns a lower-case label for the change.
func (k ChangeKind) String() string {
	if k == ChangeRemoved {
		return "removed"
	}
	return "modified"
}

// Change is one settled change to a corpus file.
type Change struct {
	Kind ChangeKind
	Path string
}

// DefaultDebounce is how long a file must stay quiet before its change is
// emitted.
const DefaultDebounce = 100 * time.Millisecond

// Watcher monitors corpus roots, including subdirectories created after
// Start, for markdown file changes.
type Watcher struct {
	Roots   []string
	Changes <-chan Change

	changes  chan Change
	quit     chan struct{}
	done     chan struct{}
	watcher  *fsnotify.Watcher
	debounce time.Duration
	ignore   func(path string) bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithIgnore drops changes for paths the predicate matches.
func WithIgnore(ignore func(path string) bool) Option {
	return func(w *Watcher) { w.ignore = ignore }
}

// New creates a watcher for the given roots.
func New(roots []string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	ch := make(chan Change, 16)
	w := &Watcher{
		Roots:    roots,
		Changes:  ch,
		changes:  ch,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start registers every directory under the roots and begins watching.
func (w *Watcher) Start() error {
	for _, root := range w.Roots {
		if err := w.addTree(root); err != nil {
			w.watcher.Close()
			return err
		}
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	close(w.quit)
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				// Drain without blocking; nobody may be reading any more.
				for file := range pending {
					select {
					case w.changes <- w.change(file):
					default:
					}
				}
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// Best effort: a directory removed before it is added is harmless.
					_ = w.addTree(event.Name)
					continue
				}
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= w.debounce {
					select {
					case w.changes <- w.change(file):
					case <-w.quit:
						return
					}
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	if !strings.HasSuffix(path, ".md") {
		return false
	}
	return w.ignore == nil || !w.ignore(path)
}

func (w *Watcher) change(file string) Change {
	kind := ChangeModified
	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		kind = ChangeRemoved
	}
	return Change{Kind: kind, Path: file}
}
