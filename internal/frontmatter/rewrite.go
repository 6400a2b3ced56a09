package frontmatter

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Field is a single key/value pair to write into a metadata block. Value may
// be a string, an int, a time.Time (written as a date) or a []string.
type Field struct {
	Key   string
	Value any
}

// tomlTable matches a TOML table or array-of-tables header line.
var tomlTable = regexp.MustCompile(`^\[\[?\s*[A-Za-z0-9_."' -]+\]\]?\s*(#.*)?$`)

// SetFields rewrites the named top-level keys of content's metadata block in
// place, appending keys that are missing after the last top-level key. Every
// other line of the document, comments and ordering included, is preserved,
// as is a leading byte order mark.
func SetFields(content []byte, fields ...Field) ([]byte, error) {
	text := string(content)
	bom := ""
	if strings.HasPrefix(text, "\ufeff") {
		bom, text = "\ufeff", strings.TrimPrefix(text, "\ufeff")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var format Format
	switch {
	case strings.HasPrefix(text, "---\n"):
		format = FormatYAML
	case strings.HasPrefix(text, "+++\n"):
		format = FormatTOML
	default:
		return nil, ErrNoMetadata
	}

	lines := strings.Split(text, "\n")
	closing := -1
	for i := 1; i < len(lines); i++ {
		if lines[i] == format.Fence() {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, fmt.Errorf("%w: missing closing %s delimiter", ErrMalformed, format.Fence())
	}

	header := append([]string(nil), lines[1:closing]...)
	for _, f := range fields {
		rendered := renderField(format, f)
		top := topLevelEnd(header, format)
		start, end := findKey(header[:top], f.Key, format)
		if start < 0 {
			start, end = top, top
		}
		next := append([]string(nil), header[:start]...)
		next = append(next, rendered...)
		header = append(next, header[end:]...)
	}

	out := make([]string, 0, len(lines)+len(fields))
	out = append(out, format.Fence())
	out = append(out, header...)
	out = append(out, lines[closing:]...)
	return []byte(bom + strings.Join(out, "\n")), nil
}

// topLevelEnd returns the index of the first line that no longer belongs to
// the top-level table. In TOML that is the first table header; YAML has no
// such boundary.
func topLevelEnd(header []string, format Format) int {
	if format != FormatTOML {
		return len(header)
	}
	for i, line := range header {
		if tomlTable.MatchString(line) {
			return i
		}
	}
	return len(header)
}

// findKey returns the line span [start, end) occupied by a top-level key,
// including YAML continuation lines (indented or "- " list items) and TOML
// multi-line arrays.
func findKey(header []string, key string, format Format) (int, int) {
	sep := ":"
	if format == FormatTOML {
		sep = "="
	}
	for i, line := range header {
		if !strings.HasPrefix(line, key) {
			continue
		}
		rest := strings.TrimLeft(line[len(key):], " \t")
		if !strings.HasPrefix(rest, sep) {
			continue
		}
		end := i + 1
		if format == FormatYAML {
			for end < len(header) && isContinuation(header[end]) {
				end++
			}
		} else if strings.Contains(rest, "[") && !strings.Contains(rest, "]") {
			for end < len(header) {
				end++
				if strings.Contains(header[end-1], "]") {
					break
				}
			}
		}
		return i, end
	}
	return -1, -1
}

func isContinuation(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "- ")
}

// renderField renders one key in the target format. Lists are written in
// flow style so a field always occupies exactly one line.
func renderField(format Format, f Field) []string {
	sep := ": "
	if format == FormatTOML {
		sep = " = "
	}
	return []string{f.Key + sep + renderValue(format, f.Value)}
}

func renderValue(format Format, v any) string {
	switch val := v.(type) {
	case int:
		return strconv.Itoa(val)
	case time.Time:
		return val.Format(DateLayout)
	case []string:
		items := make([]string, len(val))
		for i, s := range val {
			items[i] = renderString(format, s)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case string:
		return renderString(format, val)
	}
	return renderString(format, fmt.Sprint(v))
}

func renderString(format Format, s string) string {
	if format == FormatTOML || needsQuote(s) {
		return strconv.Quote(s)
	}
	return s
}

// needsQuote reports whether a YAML plain scalar would be misread.
func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, ":#[]{},&*!|>'\"%@`") {
		return true
	}
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "null", "~", "on", "off":
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return s != strings.TrimSpace(s)
}

// Render produces a complete YAML-fenced document from ordered fields and a
// body. Empty list values are written as [] rather than omitted.
func Render(fields []Field, body string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: f.Key}
		val := &yaml.Node{}
		switch v := f.Value.(type) {
		case time.Time:
			val.Kind, val.Value = yaml.ScalarNode, v.Format(DateLayout)
		default:
			if err := val.Encode(v); err != nil {
				return nil, fmt.Errorf("encoding field %s: %w", f.Key, err)
			}
		}
		if val.Kind == yaml.SequenceNode {
			val.Style = yaml.FlowStyle
		}
		root.Content = append(root.Content, key, val)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("---\n")
	out.Write(buf.Bytes())
	out.WriteString("---\n")
	if body != "" {
		out.WriteString("\n")
		out.WriteString(strings.TrimLeft(body, "\n"))
	}
	return out.Bytes(), nil
}
