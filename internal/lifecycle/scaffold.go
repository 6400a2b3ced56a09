package lifecycle

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// ScaffoldSchema is the schema version written into new documents.
const ScaffoldSchema = "3.0"

// untaggedType is the type placeholder written into adopted untagged files.
// It normalizes to unknown until someone picks an option.
const untaggedType = "[kernel | strategy | product | atom | log]"

var (
	slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	slugUnsafe  = regexp.MustCompile(`[^a-z0-9_.-]+`)
)

// ScaffoldRequest describes a new document.
type ScaffoldRequest struct {
	ID    string `validate:"required,slug"`
	Type  string `validate:"required"`
	Goal  string `validate:"required"`
	Path  string `validate:"required"`
	Force bool
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// Scaffold writes a new level-0 document. It fails when the corpus already
// has colliding ids, when the path exists without Force, or when another
// document already owns the id.
func (e *Engine) Scaffold(c *corpus.Corpus, req ScaffoldRequest) (Outcome, error) {
	out := Outcome{ID: req.ID, Path: req.Path, From: taxonomy.LevelScaffold, To: taxonomy.LevelScaffold}
	if err := c.RequireUnique(); err != nil {
		return out, err
	}
	if err := newValidator().Struct(req); err != nil {
		return out, fmt.Errorf("invalid scaffold request: %w", err)
	}
	dt := e.tax.ParseType(req.Type)
	if dt == taxonomy.TypeUnknown {
		return out, &LifecycleError{ID: req.ID, Path: req.Path, Field: "type", Err: fmt.Errorf("%w: %q", ErrUnknownType, req.Type)}
	}
	if e.store.Exists(req.Path) && !req.Force {
		return out, &LifecycleError{ID: req.ID, Path: req.Path, Err: ErrPathExists}
	}
	if rec, ok := c.Records[req.ID]; ok && filepath.Clean(rec.Path) != filepath.Clean(req.Path) {
		return out, &corpus.DuplicateIDError{ID: req.ID, First: rec.Path, Second: req.Path}
	}

	body := fmt.Sprintf("# %s\n\n## Goal\n\n%s\n", req.ID, strings.TrimSpace(req.Goal))
	data, err := frontmatter.Render(scaffoldFields(req.ID, string(dt), dt == taxonomy.TypeLog), body)
	if err != nil {
		return out, err
	}
	if err := e.store.WriteFile(req.Path, data); err != nil {
		return out, fmt.Errorf("writing scaffold: %w", err)
	}
	e.logger.Info("scaffolded document", "id", req.ID, "path", req.Path)
	out.Applied = true
	return out, nil
}

// AdoptUntagged prepends level-0 metadata to every untagged file, deriving
// each id from the file name. Files whose derived id is taken are reported
// and left alone. dryRun plans without writing. A corpus with colliding ids
// is refused before any file is touched.
func (e *Engine) AdoptUntagged(c *corpus.Corpus, dryRun bool) ([]Outcome, error) {
	if err := c.RequireUnique(); err != nil {
		return nil, err
	}
	taken := make(map[string]string, len(c.Records))
	for id, rec := range c.Records {
		taken[id] = rec.Path
	}

	outcomes := make([]Outcome, 0, len(c.Untagged))
	for _, path := range c.Untagged {
		id := SlugFromPath(path)
		out := Outcome{ID: id, Path: path, From: taxonomy.LevelScaffold, To: taxonomy.LevelScaffold}
		if prev, ok := taken[id]; ok {
			out.Err = &corpus.DuplicateIDError{ID: id, First: prev, Second: path}
			outcomes = append(outcomes, out)
			continue
		}
		taken[id] = path
		if !dryRun {
			out.Err = e.adopt(path, id)
			out.Applied = out.Err == nil
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (e *Engine) adopt(path, id string) error {
	data, err := e.store.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := frontmatter.Render(scaffoldFields(id, untaggedType, false), string(data))
	if err != nil {
		return err
	}
	if err := e.store.WriteFile(path, out); err != nil {
		return err
	}
	e.logger.Info("adopted untagged document", "id", id, "path", path)
	return nil
}

func scaffoldFields(id, docType string, isLog bool) []frontmatter.Field {
	fields := []frontmatter.Field{
		{Key: "id", Value: id},
		{Key: "type", Value: docType},
		{Key: "status", Value: taxonomy.StatusScaffold},
		{Key: "curation_level", Value: int(taxonomy.LevelScaffold)},
		{Key: "schema_version", Value: ScaffoldSchema},
	}
	if isLog {
		return append(fields,
			frontmatter.Field{Key: "event_type", Value: ""},
			frontmatter.Field{Key: "impacts", Value: []string{}},
		)
	}
	return append(fields, frontmatter.Field{Key: "depends_on", Value: []string{}})
}

// SlugFromPath derives a document id from a file name: lower-cased, unsafe
// runs collapsed to underscores, and no leading underscore.
func SlugFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(base), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "untitled"
	}
	return slug
}
