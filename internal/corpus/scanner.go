package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// Source is the filesystem surface a scan needs.
type Source interface {
	Walk(root string) ([]string, error)
	ReadFile(path string) ([]byte, error)
}

// Scanner turns directory roots into a Corpus.
type Scanner struct {
	src    Source
	tax    *taxonomy.Taxonomy
	skip   []string
	logger *slog.Logger
}

// NewScanner validates the skip patterns and returns a Scanner.
func NewScanner(src Source, tax *taxonomy.Taxonomy, skip []string, logger *slog.Logger) (*Scanner, error) {
	for _, p := range skip {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid skip pattern %q", p)
		}
	}
	return &Scanner{src: src, tax: tax, skip: skip, logger: logger}, nil
}

// Scan walks every root and parses each markdown file once, even when roots
// overlap. Missing roots become warnings; other walk failures are returned
// as errors.
func (s *Scanner) Scan(roots []string) (*Corpus, error) {
	c := &Corpus{Records: make(map[string]*Record)}
	seen := make(map[string]bool)
	for _, root := range roots {
		paths, err := s.src.Walk(root)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("corpus root missing", "path", root)
			c.Findings = append(c.Findings, result.Finding{
				Category: result.CatScan,
				Severity: result.SeverityWarning,
				File:     root,
				Message:  "Directory not found: " + root,
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if s.Skipped(path) {
				s.logger.Debug("skipping file", "path", path)
				continue
			}
			key := fileKey(path)
			if seen[key] {
				continue
			}
			seen[key] = true
			s.scanFile(c, path)
		}
	}
	return c, nil
}

// ScanFile parses a single document outside a full walk. It returns a nil
// record for untagged files.
func (s *Scanner) ScanFile(path string) (*Record, error) {
	data, err := s.src.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	meta, _, err := frontmatter.Parse(string(data))
	if errors.Is(err, frontmatter.ErrNoMetadata) {
		return nil, nil
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	rec, _ := s.build(meta, path)
	return rec, nil
}

// Skipped reports whether path matches one of the scanner's skip patterns.
func (s *Scanner) Skipped(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, p := range s.skip {
		if ok, _ := doublestar.Match(p, slashed); ok {
			return true
		}
	}
	return false
}

// fileKey identifies a file independently of the root it was reached from.
func fileKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (s *Scanner) scanFile(c *Corpus, path string) {
	data, err := s.src.ReadFile(path)
	if err != nil {
		s.logger.Warn("unreadable file", "path", path, "error", err)
		c.Findings = append(c.Findings, result.Finding{
			Category: result.CatScan,
			Severity: result.SeverityWarning,
			File:     path,
			Message:  err.Error(),
		})
		return
	}

	meta, _, err := frontmatter.Parse(string(data))
	switch {
	case errors.Is(err, frontmatter.ErrNoMetadata):
		c.Untagged = append(c.Untagged, path)
		return
	case err != nil:
		perr := &ParseError{Path: path, Err: err}
		s.logger.Warn("malformed metadata", "path", path, "error", err)
		c.Findings = append(c.Findings, result.Finding{
			Category: result.CatParseError,
			Severity: result.SeverityWarning,
			File:     path,
			Message:  perr.Error(),
		})
		return
	}

	if meta.ID == "" {
		c.Findings = append(c.Findings, result.Finding{
			Category: result.CatMissingField,
			Severity: result.SeverityError,
			File:     path,
			Message:  "missing required field id",
		})
		return
	}
	if strings.HasPrefix(meta.ID, "_") {
		s.logger.Debug("skipping template", "path", path, "id", meta.ID)
		return
	}

	rec, findings := s.build(meta, path)
	c.Findings = append(c.Findings, findings...)

	if prev, ok := c.Records[rec.ID]; ok {
		dup := &DuplicateIDError{ID: rec.ID, First: prev.Path, Second: path}
		c.Duplicates = append(c.Duplicates, dup)
		c.Findings = append(c.Findings, result.Finding{
			Category: result.CatDuplicateID,
			Severity: result.SeverityError,
			ID:       rec.ID,
			File:     path,
			Message:  dup.Error(),
		})
		return
	}
	c.Records[rec.ID] = rec
}

// build converts parsed metadata into a Record and runs the per-document
// checks: schema fields, status validity and curation level range.
func (s *Scanner) build(meta *frontmatter.Metadata, path string) (*Record, []result.Finding) {
	dt := s.tax.ParseType(meta.Type)
	rec := &Record{
		ID:                meta.ID,
		Type:              dt,
		RawType:           meta.Type,
		Status:            meta.Status,
		DependsOn:         meta.DependsOn,
		Impacts:           meta.Impacts,
		Level:             s.tax.DefaultLevel(dt),
		Describes:         meta.Describes,
		DescribesVerified: meta.DescribesVerified,
		Path:              path,
		Meta:              meta,
	}

	var findings []result.Finding
	add := func(cat result.Category, sev result.Severity, msg string) {
		findings = append(findings, result.Finding{Category: cat, Severity: sev, ID: rec.ID, File: path, Message: msg})
	}

	if meta.HasCurationLevel {
		lvl := taxonomy.Level(meta.CurationLevel)
		if lvl.Valid() {
			rec.Level, rec.ExplicitLevel = lvl, true
		} else {
			add(result.CatLifecycle, result.SeverityWarning,
				fmt.Sprintf("curation_level %d out of range, using default %d", meta.CurationLevel, rec.Level))
		}
	}

	version, schemaFindings := checkSchema(s.tax, meta)
	rec.SchemaVersion = version
	for _, f := range schemaFindings {
		add(f.Category, f.Severity, f.Message)
	}

	if dt == taxonomy.TypeUnknown && meta.Type != frontmatter.UnknownType {
		add(result.CatUnknownType, result.SeverityWarning, fmt.Sprintf("unrecognized type %q", meta.Type))
	}
	if rec.Status != "" && !s.tax.ValidStatus(dt, rec.Status) {
		add(result.CatInvalidStatus, result.SeverityWarning,
			fmt.Sprintf("status %q is not valid for type %s", rec.Status, dt))
	}
	return rec, findings
}
