// Package consolidate rolls dated session logs into the History Ledger and
// archives the originals. It validates everything first (duplicate ids,
// ledger shape, archive destinations) and only then mutates: the ledger is
// rewritten once, atomically, and files move only after that write succeeds.
package consolidate

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/ledger"
)

// Sentinel errors for consolidation.
var (
	// ErrDuplicateID indicates a candidate id collides with another document
	// or with an already ledgered slug.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrArchiveExists indicates an archive destination is already taken.
	ErrArchiveExists = errors.New("archive destination already exists")
)

// NoSummary is rendered when a log has no Goal section.
const NoSummary = "(no goal recorded)"

// DuplicateError names an id that blocks consolidation.
type DuplicateError struct {
	ID     string
	Detail string
}

// Error returns the collision in the form reported to users.
func (e *DuplicateError) Error() string {
	msg := fmt.Sprintf("Duplicate ID '%s' found", e.ID)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap lets callers match with errors.Is(err, ErrDuplicateID).
func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateID
}

// Store is the file access consolidation needs.
type Store interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Exists(path string) bool
	Move(src, dst string) error
}

// Report describes what a run did, or would do under dry-run.
type Report struct {
	Reviewed     int
	Candidates   []Candidate
	Rows         []ledger.Row
	Archived     []string
	LoggedRollup bool
	DryRun       bool
}

// Engine performs consolidation against one ledger and archive directory.
type Engine struct {
	store      Store
	logger     *slog.Logger
	ledgerPath string
	archiveDir string
	performer  string
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for age cutoffs and the rollup date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPerformer sets the name written into the Consolidation Log.
func WithPerformer(name string) Option {
	return func(e *Engine) { e.performer = name }
}

// New returns an Engine.
func New(store Store, logger *slog.Logger, ledgerPath, archiveDir string, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		logger:     logger,
		ledgerPath: ledgerPath,
		archiveDir: archiveDir,
		performer:  "onto",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadLedger reads and validates the ledger document. A missing or
// malformed ledger is a *ledger.LedgerError.
func (e *Engine) LoadLedger() (*ledger.Ledger, error) {
	data, err := e.store.ReadFile(e.ledgerPath)
	if err != nil {
		return nil, &ledger.LedgerError{Path: e.ledgerPath, Err: err}
	}
	return ledger.Parse(e.ledgerPath, data)
}

// Run selects logs by policy and consolidates them. Any pre-flight failure
// returns before a single byte is written.
func (e *Engine) Run(c *corpus.Corpus, p Policy, dryRun bool) (*Report, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(c.Duplicates) > 0 {
		d := c.Duplicates[0]
		return nil, &DuplicateError{ID: d.ID, Detail: fmt.Sprintf("in %s and %s", d.First, d.Second)}
	}

	led, err := e.LoadLedger()
	if err != nil {
		return nil, err
	}

	logs := datedLogs(c)
	y, m, d := e.now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	report := &Report{Reviewed: len(logs), DryRun: dryRun}
	report.Candidates = selectLogs(logs, p, today)
	if len(report.Candidates) == 0 {
		e.logger.Info("nothing to consolidate", "reviewed", report.Reviewed)
		return report, nil
	}

	if err := e.preflight(led, report.Candidates); err != nil {
		return nil, err
	}

	for i := range report.Candidates {
		cand := &report.Candidates[i]
		body, err := e.body(cand.Path)
		if err != nil {
			return nil, err
		}
		cand.Summary = GoalSummary(body)
		summary := cand.Summary
		if summary == "" {
			summary = NoSummary
		}
		report.Rows = append(report.Rows, ledger.Row{
			Date:        cand.Date.Format(frontmatter.DateLayout),
			Slug:        cand.ID,
			Event:       cand.Event,
			Outcome:     summary,
			Impacts:     cand.Impacts,
			ArchivePath: filepath.ToSlash(cand.ArchivePath),
		})
	}
	if dryRun {
		return report, nil
	}

	led.Append(report.Rows...)
	report.LoggedRollup = led.RecordConsolidation(ledger.ConsolidationEntry{
		Date:      today.Format(frontmatter.DateLayout),
		Reviewed:  report.Reviewed,
		Archived:  len(report.Candidates),
		Performer: e.performer,
	})
	if err := e.store.WriteFile(e.ledgerPath, led.Bytes()); err != nil {
		return nil, &ledger.LedgerError{Path: e.ledgerPath, Err: fmt.Errorf("writing ledger: %w", err)}
	}
	e.logger.Info("ledger updated", "path", e.ledgerPath, "rows", len(report.Rows))

	for _, cand := range report.Candidates {
		if err := e.store.Move(cand.Path, cand.ArchivePath); err != nil {
			return report, fmt.Errorf("archiving %s after ledger update: %w", cand.Path, err)
		}
		report.Archived = append(report.Archived, cand.ArchivePath)
	}
	return report, nil
}

// preflight rejects ids already in the ledger, repeated candidate ids and
// taken archive destinations, and assigns each candidate its archive path.
func (e *Engine) preflight(led *ledger.Ledger, cands []Candidate) error {
	seen := make(map[string]string, len(cands))
	dests := make(map[string]bool, len(cands))
	for i := range cands {
		cand := &cands[i]
		if led.Has(cand.ID) {
			return &DuplicateError{ID: cand.ID, Detail: "already recorded in " + e.ledgerPath}
		}
		if prev, ok := seen[cand.ID]; ok {
			return &DuplicateError{ID: cand.ID, Detail: fmt.Sprintf("in %s and %s", prev, cand.Path)}
		}
		seen[cand.ID] = cand.Path

		cand.ArchivePath = filepath.Join(e.archiveDir, filepath.Base(cand.Path))
		if dests[cand.ArchivePath] || e.store.Exists(cand.ArchivePath) {
			return fmt.Errorf("%w: %s", ErrArchiveExists, cand.ArchivePath)
		}
		dests[cand.ArchivePath] = true
	}
	return nil
}

func (e *Engine) body(path string) (string, error) {
	data, err := e.store.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	_, body, err := frontmatter.Parse(string(data))
	if err != nil {
		return strings.TrimSpace(string(data)), nil
	}
	return body, nil
}
