// Package taxonomy holds the single source-of-truth table for document types,
// their ranks, valid statuses, curation defaults and the schema-version field
// sets. A Taxonomy is immutable once built and is passed explicitly to every
// component that needs it.
package taxonomy

import (
	"sort"
	"strings"
)

// DocType is a document type in the ranked taxonomy.
type DocType string

// Built-in document types, ordered from most foundational to least.
const (
	TypeKernel   DocType = "kernel"
	TypeStrategy DocType = "strategy"
	TypeProduct  DocType = "product"
	TypeAtom     DocType = "atom"
	TypeLog      DocType = "log"
	TypeUnknown  DocType = "unknown"
)

// Level is a document's curation level.
type Level int

// Curation levels. Transitions through promote/verify never decrease.
const (
	LevelScaffold Level = 0
	LevelPending  Level = 1
	LevelCurated  Level = 2
	LevelVerified Level = 3
)

// String returns the lifecycle name of the level.
func (l Level) String() string {
	switch l {
	case LevelScaffold:
		return "scaffold"
	case LevelPending:
		return "pending_curation"
	case LevelCurated:
		return "curated"
	case LevelVerified:
		return "verified"
	}
	return "unknown"
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l >= LevelScaffold && l <= LevelVerified
}

// Status values that the lifecycle engine writes itself.
const (
	StatusScaffold        = "scaffold"
	StatusPendingCuration = "pending_curation"
	StatusDraft           = "draft"
	StatusActive          = "active"
	StatusArchived        = "archived"
)

// TypeSpec describes one document type.
type TypeSpec struct {
	Rank         int      `toml:"rank"`
	Statuses     []string `toml:"statuses"`
	AllowOrphan  bool     `toml:"allow_orphan"`
	DefaultLevel Level    `toml:"default_level"`
	Required     []string `toml:"required"`
}

// Schema is the field set a schema version declares.
type Schema struct {
	Version  string   `toml:"-"`
	Required []string `toml:"required"`
	Optional []string `toml:"optional"`
}

// Taxonomy is the immutable type/status/schema table.
type Taxonomy struct {
	types   map[DocType]TypeSpec
	schemas map[string]Schema
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	common := []string{"scaffold", "pending_curation", "draft", "active", "deprecated", "rejected", "complete"}
	return &Taxonomy{
		types: map[DocType]TypeSpec{
			TypeKernel:   {Rank: 0, Statuses: common, AllowOrphan: true, DefaultLevel: LevelCurated, Required: []string{"status"}},
			TypeStrategy: {Rank: 1, Statuses: common, AllowOrphan: true, DefaultLevel: LevelCurated, Required: []string{"status", "depends_on"}},
			TypeProduct:  {Rank: 2, Statuses: common, AllowOrphan: true, DefaultLevel: LevelCurated, Required: []string{"status", "depends_on"}},
			TypeAtom:     {Rank: 3, Statuses: common, DefaultLevel: LevelCurated, Required: []string{"status", "depends_on"}},
			TypeLog: {
				Rank:         4,
				Statuses:     []string{"scaffold", "pending_curation", "active", "archived", "auto-generated"},
				DefaultLevel: LevelCurated,
				Required:     []string{"status", "event_type"},
			},
		},
		schemas: map[string]Schema{
			"1.0": {Version: "1.0", Required: []string{"id"}, Optional: []string{"type", "status", "depends_on"}},
			"2.0": {Version: "2.0", Required: []string{"id", "type"}, Optional: []string{"status", "depends_on", "impacts", "event_type"}},
			"2.2": {
				Version:  "2.2",
				Required: []string{"id", "type", "status"},
				Optional: []string{"depends_on", "impacts", "event_type", "describes", "describes_verified"},
			},
			"3.0": {
				Version:  "3.0",
				Required: []string{"id", "type", "status", "curation_level"},
				Optional: []string{"depends_on", "impacts", "event_type", "describes", "describes_verified", "concepts", "schema_version"},
			},
		},
	}
}

// ParseType maps a raw type string onto a known DocType, falling back to
// TypeUnknown for anything the table does not declare.
func (t *Taxonomy) ParseType(raw string) DocType {
	dt := DocType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := t.types[dt]; ok {
		return dt
	}
	return TypeUnknown
}

// Rank returns the rank of a type. Unknown types report ok=false.
func (t *Taxonomy) Rank(dt DocType) (int, bool) {
	spec, ok := t.types[dt]
	return spec.Rank, ok
}

// CanDependOn reports whether a document of type from may depend on a
// document of type to: only equal or more foundational (lower rank) targets
// are allowed. Pairs involving an unknown type are not judged.
func (t *Taxonomy) CanDependOn(from, to DocType) bool {
	fr, ok1 := t.Rank(from)
	tr, ok2 := t.Rank(to)
	if !ok1 || !ok2 {
		return true
	}
	return tr <= fr
}

// Types returns every declared type ordered by rank, then name.
func (t *Taxonomy) Types() []DocType {
	out := make([]DocType, 0, len(t.types))
	for dt := range t.types {
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := t.types[out[i]].Rank, t.types[out[j]].Rank
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

// IsFoundation reports whether dt has the lowest rank in the table. Those
// documents seed the connectivity traversal.
func (t *Taxonomy) IsFoundation(dt DocType) bool {
	r, ok := t.Rank(dt)
	if !ok {
		return false
	}
	for _, spec := range t.types {
		if spec.Rank < r {
			return false
		}
	}
	return true
}

// ValidStatus reports whether status is legal for the type. Unknown types
// accept any status.
func (t *Taxonomy) ValidStatus(dt DocType, status string) bool {
	spec, ok := t.types[dt]
	if !ok {
		return true
	}
	for _, s := range spec.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// AllowsOrphan reports whether a type is exempt from the orphan check.
func (t *Taxonomy) AllowsOrphan(dt DocType) bool {
	return t.types[dt].AllowOrphan
}

// DefaultLevel returns the curation level assumed when a document omits one.
func (t *Taxonomy) DefaultLevel(dt DocType) Level {
	spec, ok := t.types[dt]
	if !ok {
		return LevelScaffold
	}
	return spec.DefaultLevel
}

// RequiredFields returns the fields that must be populated before a document
// of the given type can be promoted to curated.
func (t *Taxonomy) RequiredFields(dt DocType) []string {
	return append([]string(nil), t.types[dt].Required...)
}

// Schema returns the field table for a schema version.
func (t *Taxonomy) Schema(version string) (Schema, bool) {
	s, ok := t.schemas[version]
	return s, ok
}

// LatestSchema returns the newest declared schema version.
func (t *Taxonomy) LatestSchema() Schema {
	versions := make([]string, 0, len(t.schemas))
	for v := range t.schemas {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versionLess(versions[i], versions[j]) })
	return t.schemas[versions[len(versions)-1]]
}

// versionLess compares dotted numeric versions component by component.
func versionLess(a, b string) bool {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = atoi(pa[i])
		}
		if i < len(pb) {
			y = atoi(pb[i])
		}
		if x != y {
			return x < y
		}
	}
	return false
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}
