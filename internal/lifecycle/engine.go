// Package lifecycle drives the curation state machine: scaffold creates a
// level-0 document, promote advances scaffold → pending_curation → curated
// when the required fields are populated, and verify stamps describes
// relations and lifts curated documents to verified. Levels never decrease
// through these operations.
package lifecycle

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// Store is the file access the engine needs. Every mutation re-reads the
// owning file, rewrites it, and writes it back whole.
type Store interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Exists(path string) bool
	ModTime(path string) (time.Time, error)
}

// Outcome is the per-document result of a lifecycle operation.
type Outcome struct {
	ID      string
	Path    string
	From    taxonomy.Level
	To      taxonomy.Level
	Applied bool
	Err     error
}

// Finding converts a failed outcome into a lifecycle finding.
func (o Outcome) Finding() result.Finding {
	return result.Finding{
		Category: result.CatLifecycle,
		Severity: result.SeverityError,
		ID:       o.ID,
		File:     o.Path,
		Message:  o.Err.Error(),
	}
}

// Engine applies lifecycle transitions to documents on disk.
type Engine struct {
	store  Store
	tax    *taxonomy.Taxonomy
	logger *slog.Logger
	now    func() time.Time
	root   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for verification dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRoot sets the directory describes paths are resolved against.
// Defaults to the working directory.
func WithRoot(dir string) Option {
	return func(e *Engine) { e.root = dir }
}

// New returns an Engine.
func New(store Store, tax *taxonomy.Taxonomy, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{store: store, tax: tax, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// today returns the current date at midnight UTC, the granularity stored in
// describes_verified.
func (e *Engine) today() time.Time {
	return day(e.now())
}

// rewrite re-reads path, applies fields to its metadata block and writes it.
func (e *Engine) rewrite(path string, fields ...frontmatter.Field) error {
	data, err := e.store.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := frontmatter.SetFields(data, fields...)
	if err != nil {
		return err
	}
	return e.store.WriteFile(path, out)
}

// resolveTarget maps a describes entry to a file: a corpus id resolves to its
// document, anything else is a path relative to the engine root.
func (e *Engine) resolveTarget(c *corpus.Corpus, target string) (string, bool) {
	if rec, ok := c.Records[target]; ok {
		return rec.Path, true
	}
	path := target
	if !filepath.IsAbs(path) {
		root := e.root
		if root == "" {
			root, _ = os.Getwd()
		}
		path = filepath.Join(root, path)
	}
	return path, e.store.Exists(path)
}
