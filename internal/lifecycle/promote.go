package lifecycle

import (
	"fmt"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// Candidates returns the ids of every document promote can advance: those at
// scaffold or pending_curation, sorted.
func (e *Engine) Candidates(c *corpus.Corpus) []string {
	var ids []string
	for _, id := range c.IDs() {
		if c.Records[id].Level < taxonomy.LevelCurated {
			ids = append(ids, id)
		}
	}
	return ids
}

// Promote advances each named document one level, or every candidate when
// ids is empty. In check mode nothing is written and each outcome reports
// whether the promotion would succeed. A failing document never stops the
// rest of the batch, but a corpus with duplicate ids is refused outright and
// nothing is written.
func (e *Engine) Promote(c *corpus.Corpus, ids []string, check bool) ([]Outcome, error) {
	if err := c.RequireUnique(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		ids = e.Candidates(c)
	}
	outcomes := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		out := e.promoteOne(c, id, check)
		if out.Err != nil {
			e.logger.Warn("promotion blocked", "id", id, "error", out.Err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (e *Engine) promoteOne(c *corpus.Corpus, id string, check bool) Outcome {
	rec, err := c.Get(id)
	if err != nil {
		return Outcome{ID: id, Err: &LifecycleError{ID: id, Err: err}}
	}
	out := Outcome{ID: id, Path: rec.Path, From: rec.Level, To: rec.Level + 1}
	if rec.Level >= taxonomy.LevelCurated {
		out.To = rec.Level
		out.Err = &LifecycleError{ID: id, Path: rec.Path, Err: fmt.Errorf(
			"%w: %s documents advance only through verify", ErrIllegalTransition, rec.Level)}
		return out
	}
	if err := e.eligible(rec, out.To); err != nil {
		out.Err = err
		return out
	}
	if check {
		return out
	}

	fields := []frontmatter.Field{{Key: "curation_level", Value: int(out.To)}}
	status := promotedStatus(rec.Status, out.To)
	if status == taxonomy.StatusDraft && !e.tax.ValidStatus(rec.Type, status) {
		status = taxonomy.StatusActive
	}
	if status != rec.Status {
		fields = append(fields, frontmatter.Field{Key: "status", Value: status})
	}
	if err := e.rewrite(rec.Path, fields...); err != nil {
		out.Err = &LifecycleError{ID: id, Path: rec.Path, Err: err}
		return out
	}
	e.logger.Info("promoted document", "id", id, "from", out.From.String(), "to", out.To.String())
	out.Applied = true
	return out
}

// eligible checks the fields a document must carry to reach level to.
// Reaching pending needs a chosen type and a real status; reaching curated
// needs every field the type requires.
func (e *Engine) eligible(rec *corpus.Record, to taxonomy.Level) error {
	if rec.Type == taxonomy.TypeUnknown {
		return &LifecycleError{ID: rec.ID, Path: rec.Path, Field: "type",
			Err: fmt.Errorf("%w: %q", ErrUnknownType, rec.RawType)}
	}
	required := []string{"status"}
	if to >= taxonomy.LevelCurated {
		required = e.tax.RequiredFields(rec.Type)
	}
	for _, field := range required {
		if !rec.Meta.Populated(field) {
			return &LifecycleError{ID: rec.ID, Path: rec.Path, Field: field, Err: ErrMissingField}
		}
	}
	return nil
}

// promotedStatus moves lifecycle-owned statuses forward with the level and
// leaves any status an author chose alone.
func promotedStatus(current string, to taxonomy.Level) string {
	switch {
	case to == taxonomy.LevelPending && (current == "" || current == taxonomy.StatusScaffold):
		return taxonomy.StatusPendingCuration
	case to == taxonomy.LevelCurated && (current == "" || current == taxonomy.StatusScaffold || current == taxonomy.StatusPendingCuration):
		return taxonomy.StatusDraft
	}
	return current
}
