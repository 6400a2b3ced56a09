package taxonomy

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrInvalidTable indicates a taxonomy override file declares an unusable table.
var ErrInvalidTable = errors.New("invalid taxonomy table")

// file mirrors the on-disk TOML override layout:
//
//	[types.runbook]
//	rank = 3
//	statuses = ["draft", "active"]
//
//	[schemas."3.1"]
//	required = ["id", "type", "status"]
type file struct {
	Types   map[string]TypeSpec `toml:"types"`
	Schemas map[string]Schema   `toml:"schemas"`
}

// Load returns the default taxonomy overlaid with the types and schemas
// declared in the TOML file at path. An empty path yields Default().
func Load(path string) (*Taxonomy, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy file: %w", err)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing taxonomy file: %w", err)
	}
	return base.overlay(f)
}

// overlay returns a new Taxonomy; the receiver is never modified.
func (t *Taxonomy) overlay(f file) (*Taxonomy, error) {
	out := &Taxonomy{
		types:   make(map[DocType]TypeSpec, len(t.types)+len(f.Types)),
		schemas: make(map[string]Schema, len(t.schemas)+len(f.Schemas)),
	}
	for k, v := range t.types {
		out.types[k] = v
	}
	for k, v := range t.schemas {
		out.schemas[k] = v
	}

	for name, spec := range f.Types {
		dt := DocType(name)
		if dt == TypeUnknown || name == "" {
			return nil, fmt.Errorf("%w: type name %q is reserved", ErrInvalidTable, name)
		}
		if spec.Rank < 0 {
			return nil, fmt.Errorf("%w: type %q has negative rank %d", ErrInvalidTable, name, spec.Rank)
		}
		if !spec.DefaultLevel.Valid() {
			return nil, fmt.Errorf("%w: type %q has invalid default_level %d", ErrInvalidTable, name, spec.DefaultLevel)
		}
		out.types[dt] = spec
	}

	for version, s := range f.Schemas {
		if len(s.Required) == 0 {
			return nil, fmt.Errorf("%w: schema %q declares no required fields", ErrInvalidTable, version)
		}
		s.Version = version
		out.schemas[version] = s
	}
	return out, nil
}
