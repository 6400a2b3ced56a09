// Package corpus walks the configured document roots, parses each file's
// metadata block and aggregates the id → record mapping that every other
// component consumes. Scanning never aborts on a bad file: parse failures,
// schema gaps and duplicate ids are collected as findings.
package corpus

import (
	"fmt"
	"sort"
	"time"

	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// Record is one parsed document.
type Record struct {
	ID                string
	Type              taxonomy.DocType
	RawType           string
	Status            string
	DependsOn         []string
	Impacts           []string
	Level             taxonomy.Level
	ExplicitLevel     bool
	Describes         []string
	DescribesVerified time.Time
	SchemaVersion     string
	Path              string

	// Meta is the normalized metadata the record was built from.
	Meta *frontmatter.Metadata
}

// Targets returns every outgoing reference: depends_on first, then impacts.
func (r *Record) Targets() []string {
	out := make([]string, 0, len(r.DependsOn)+len(r.Impacts))
	out = append(out, r.DependsOn...)
	return append(out, r.Impacts...)
}

// Corpus is the result of one scan.
type Corpus struct {
	Records    map[string]*Record
	Untagged   []string
	Duplicates []*DuplicateIDError
	Findings   []result.Finding
}

// IDs returns all record ids in sorted order.
func (c *Corpus) IDs() []string {
	ids := make([]string, 0, len(c.Records))
	for id := range c.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns the record for id or ErrUnknownID.
func (c *Corpus) Get(id string) (*Record, error) {
	r, ok := c.Records[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrUnknownID)
	}
	return r, nil
}

// RequireUnique returns the first duplicate id collision, if any. Every
// command that writes to the corpus calls it before touching a file.
func (c *Corpus) RequireUnique() error {
	if len(c.Duplicates) == 0 {
		return nil
	}
	return c.Duplicates[0]
}

// Warnings renders the collected findings as one-line strings.
func (c *Corpus) Warnings() []string {
	out := make([]string, len(c.Findings))
	for i, f := range c.Findings {
		out[i] = f.String()
	}
	return out
}
