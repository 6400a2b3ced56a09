// Package frontmatter extracts and normalizes the metadata block at the top of
// a corpus document. Both `---` YAML and `+++` TOML fences are recognized.
// Parsing is pure: it never touches the filesystem and never panics on bad
// input; callers distinguish "no metadata" from "malformed metadata" through
// the ErrNoMetadata and ErrMalformed sentinels.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoMetadata indicates the document does not open with a metadata fence.
	// Such files are untagged, not broken.
	ErrNoMetadata = errors.New("no metadata block")
	// ErrMalformed indicates a metadata fence was found but its contents
	// could not be decoded.
	ErrMalformed = errors.New("malformed metadata block")
)

// Format identifies the fence style of a metadata block.
type Format int

const (
	FormatYAML Format = iota // --- fenced YAML
	FormatTOML               // +++ fenced TOML
)

// Fence returns the three-character delimiter for the format.
func (f Format) Fence() string {
	if f == FormatTOML {
		return "+++"
	}
	return "---"
}

// Block is a split document: the decoded metadata fields and the body that
// follows the closing fence.
type Block struct {
	Format Format
	Fields map[string]any
	Body   string
}

// Split locates the leading metadata block and decodes it into a generic map.
// It returns ErrNoMetadata when the text does not start with a fence and
// ErrMalformed (wrapped with detail) when the fence is unterminated or the
// block does not decode to a key-value mapping.
func Split(content string) (Block, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var format Format
	switch {
	case strings.HasPrefix(content, "---\n"):
		format = FormatYAML
	case strings.HasPrefix(content, "+++\n"):
		format = FormatTOML
	default:
		return Block{}, ErrNoMetadata
	}

	fence := format.Fence()
	rest := content[len(fence)+1:]
	raw, body, ok := cutFence(rest, fence)
	if !ok {
		return Block{}, fmt.Errorf("%w: missing closing %s delimiter", ErrMalformed, fence)
	}

	fields := make(map[string]any)
	var err error
	if format == FormatTOML {
		err = toml.Unmarshal([]byte(raw), &fields)
	} else {
		err = yaml.Unmarshal([]byte(raw), &fields)
	}
	if err != nil {
		return Block{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return Block{Format: format, Fields: fields, Body: body}, nil
}

// cutFence finds a line consisting solely of fence and returns the text
// before it and the text after its line break.
func cutFence(rest, fence string) (string, string, bool) {
	if strings.HasPrefix(rest, fence+"\n") || rest == fence {
		return "", strings.TrimPrefix(strings.TrimPrefix(rest, fence), "\n"), true
	}
	marker := "\n" + fence
	offset := 0
	for {
		idx := strings.Index(rest[offset:], marker)
		if idx < 0 {
			return "", "", false
		}
		start := offset + idx
		end := start + len(marker)
		if end == len(rest) || rest[end] == '\n' {
			body := ""
			if end < len(rest) {
				body = rest[end+1:]
			}
			return rest[:start+1], body, true
		}
		offset = end
	}
}

// Parse splits content and normalizes its fields into Metadata.
func Parse(content string) (*Metadata, string, error) {
	b, err := Split(content)
	if err != nil {
		return nil, "", err
	}
	return Normalize(b.Fields), b.Body, nil
}
