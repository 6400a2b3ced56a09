package frontmatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// UnknownType is the doc_type assigned when the raw value is missing,
// ambiguous, or an unfilled "[a | b]" placeholder.
const UnknownType = "unknown"

// DateLayout is the on-disk format of date-valued fields.
const DateLayout = "2006-01-02"

// Metadata is the canonical form of a document's metadata block.
type Metadata struct {
	ID                string
	Type              string
	Status            string
	DependsOn         []string
	Impacts           []string
	EventType         string
	Describes         []string
	DescribesVerified time.Time // zero when absent or unparseable
	SchemaVersion     string
	CurationLevel     int
	HasCurationLevel  bool

	// Fields is the decoded block, kept for schema and promotion checks.
	Fields map[string]any
}

// Normalize maps a decoded field map, in whatever legacy shape it arrived,
// onto Metadata.
func Normalize(fields map[string]any) *Metadata {
	m := &Metadata{
		ID:            Scalar(fields["id"]),
		Type:          NormalizeType(fields["type"]),
		Status:        Scalar(fields["status"]),
		DependsOn:     NormalizeList(fields["depends_on"]),
		Impacts:       NormalizeList(fields["impacts"]),
		EventType:     Scalar(fields["event_type"]),
		Describes:     NormalizeList(fields["describes"]),
		SchemaVersion: Scalar(fields["schema_version"]),
		Fields:        fields,
	}
	if _, ok := fields["type"]; !ok {
		// Older documents used doc_type.
		if v, ok := fields["doc_type"]; ok {
			m.Type = NormalizeType(v)
		}
	}
	if d, ok := Date(fields["describes_verified"]); ok {
		m.DescribesVerified = d
	}
	if lvl, ok := Int(fields["curation_level"]); ok {
		m.CurationLevel = lvl
		m.HasCurationLevel = true
	}
	return m
}

// NormalizeList canonicalizes a relation field: nil becomes an empty slice, a
// bare scalar becomes a one-element slice, and a sequence is filtered of nil
// and empty entries with order preserved. The result is never nil.
func NormalizeList(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	case []string:
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range val {
			if s := Scalar(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := Scalar(val); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeType canonicalizes the type field. Missing values, multi-element
// lists and values containing a pipe (an unchosen "[a | b]" template option)
// all become UnknownType.
func NormalizeType(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return UnknownType
	case []any:
		if len(val) != 1 {
			return UnknownType
		}
		s = Scalar(val[0])
	case []string:
		if len(val) != 1 {
			return UnknownType
		}
		s = strings.TrimSpace(val[0])
	default:
		s = Scalar(val)
	}
	if s == "" || strings.Contains(s, "|") {
		return UnknownType
	}
	return s
}

// Scalar renders a scalar value as a trimmed string. Nil yields "".
func Scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case time.Time:
		return val.Format(DateLayout)
	case toml.LocalDate:
		return val.String()
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Int reads an integer-valued field. YAML yields int, TOML yields int64, and
// hand-edited files occasionally quote the number.
func Int(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val == float64(int(val)) {
			return int(val), true
		}
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// Date reads a date-valued field, accepting YAML strings, TOML local dates
// and full timestamps.
func Date(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return truncateDay(val), true
	case toml.LocalDate:
		return time.Date(val.Year, time.Month(val.Month), val.Day, 0, 0, 0, 0, time.UTC), true
	case toml.LocalDateTime:
		return time.Date(val.Year, time.Month(val.Month), val.Day, 0, 0, 0, 0, time.UTC), true
	case string:
		s := strings.TrimSpace(val)
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d, true
		}
		if d, err := time.Parse(time.RFC3339, s); err == nil {
			return truncateDay(d), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsPlaceholder reports whether a value is an unfilled template slot: empty,
// an enumeration such as "[a | b]", a "<fill me>" marker, or TODO/TBD.
func IsPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "|") {
		return true
	}
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return true
	}
	switch strings.ToUpper(s) {
	case "TODO", "TBD", "FIXME":
		return true
	}
	return false
}

// Populated reports whether the named field carries a real value: present,
// non-empty and not a template placeholder. Lists must hold at least one
// entry and no placeholders.
func (m *Metadata) Populated(field string) bool {
	v, ok := m.Fields[field]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case []any, []string:
		items := NormalizeList(val)
		if len(items) == 0 {
			return false
		}
		for _, it := range items {
			if IsPlaceholder(it) {
				return false
			}
		}
		return true
	case string:
		return !IsPlaceholder(val)
	}
	return true
}

// Has reports whether the field key is present at all.
func (m *Metadata) Has(field string) bool {
	_, ok := m.Fields[field]
	return ok
}
