package lifecycle

import (
	"fmt"
	"time"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// Verify stamps describes_verified with today's date on each named document
// after checking every described target still exists. Curated documents are
// lifted to verified; documents below curated keep their level. A corpus
// with duplicate ids is refused before any write.
func (e *Engine) Verify(c *corpus.Corpus, ids []string) ([]Outcome, error) {
	if err := c.RequireUnique(); err != nil {
		return nil, err
	}
	outcomes := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		out := e.verifyOne(c, id)
		if out.Err != nil {
			e.logger.Warn("verification failed", "id", id, "error", out.Err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (e *Engine) verifyOne(c *corpus.Corpus, id string) Outcome {
	rec, err := c.Get(id)
	if err != nil {
		return Outcome{ID: id, Err: &LifecycleError{ID: id, Err: err}}
	}
	out := Outcome{ID: id, Path: rec.Path, From: rec.Level, To: rec.Level}
	if len(rec.Describes) == 0 {
		out.Err = &LifecycleError{ID: id, Path: rec.Path, Field: "describes", Err: ErrNoDescribes}
		return out
	}
	for _, target := range rec.Describes {
		if _, ok := e.resolveTarget(c, target); !ok {
			out.Err = &LifecycleError{ID: id, Path: rec.Path, Field: "describes",
				Err: fmt.Errorf("%w: %s", ErrMissingTarget, target)}
			return out
		}
	}

	fields := []frontmatter.Field{{Key: "describes_verified", Value: e.today()}}
	if rec.Level == taxonomy.LevelCurated {
		out.To = taxonomy.LevelVerified
		fields = append(fields, frontmatter.Field{Key: "curation_level", Value: int(out.To)})
	}
	if err := e.rewrite(rec.Path, fields...); err != nil {
		out.Err = &LifecycleError{ID: id, Path: rec.Path, Err: err}
		return out
	}
	e.logger.Info("verified document", "id", id, "level", out.To.String())
	out.Applied = true
	return out
}

// Staleness describes a document whose verification no longer holds.
type Staleness struct {
	ID       string
	Path     string
	Verified time.Time // zero when never verified
	Target   string    // most recently modified described target
	Modified time.Time
}

// Never reports whether the document was never verified at all.
func (s Staleness) Never() bool {
	return s.Verified.IsZero()
}

// Stale returns every document that describes targets and was either never
// verified or verified on a day before one of its targets last changed.
// Missing targets are left to Verify to report.
func (e *Engine) Stale(c *corpus.Corpus) []Staleness {
	var out []Staleness
	for _, id := range c.IDs() {
		rec := c.Records[id]
		if len(rec.Describes) == 0 {
			continue
		}
		if rec.DescribesVerified.IsZero() {
			out = append(out, Staleness{ID: id, Path: rec.Path})
			continue
		}

		var latest Staleness
		for _, target := range rec.Describes {
			path, ok := e.resolveTarget(c, target)
			if !ok {
				continue
			}
			mod, err := e.store.ModTime(path)
			if err != nil {
				e.logger.Warn("cannot stat described target", "id", id, "target", target, "error", err)
				continue
			}
			if mod.After(latest.Modified) {
				latest = Staleness{ID: id, Path: rec.Path, Verified: rec.DescribesVerified, Target: target, Modified: mod}
			}
		}
		if latest.Target != "" && day(latest.Modified).After(rec.DescribesVerified) {
			out = append(out, latest)
		}
	}
	return out
}

// StaleFindings renders staleness as findings.
func StaleFindings(stale []Staleness) []result.Finding {
	findings := make([]result.Finding, 0, len(stale))
	for _, s := range stale {
		msg := "describes targets but was never verified"
		if !s.Never() {
			msg = fmt.Sprintf("verified %s but %s changed %s", s.Verified.Format(frontmatter.DateLayout),
				s.Target, s.Modified.Format(frontmatter.DateLayout))
		}
		findings = append(findings, result.Finding{
			Category: result.CatStale,
			Severity: result.SeverityWarning,
			ID:       s.ID,
			File:     s.Path,
			Message:  msg,
		})
	}
	return findings
}

// day truncates t to its calendar date in its own location, expressed at
// midnight UTC to compare against stored dates.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
