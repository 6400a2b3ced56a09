package consolidate

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// ErrPolicy indicates a recency policy that selects nothing sensibly.
var ErrPolicy = errors.New("invalid consolidation policy")

var datePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[_-]`)

// Selector names the Policy field that decides selection.
type Selector int

const (
	// SelectInferred uses whichever single selector holds a non-zero value.
	SelectInferred Selector = iota
	// SelectKeep selects by Keep, where zero keeps nothing.
	SelectKeep
	// SelectOlderThan selects by OlderThanDays, where zero means before today.
	SelectOlderThan
	// SelectBefore selects by Before.
	SelectBefore
)

// Policy picks which dated logs to consolidate. Exactly one of the three
// selectors applies: the one named by By, or else the only non-zero one.
type Policy struct {
	// Keep retains the N newest logs and consolidates the rest.
	Keep int `validate:"gte=0"`
	// OlderThanDays consolidates logs dated more than N days before today.
	OlderThanDays int `validate:"gte=0"`
	// Before consolidates logs dated strictly before this day.
	Before time.Time
	// By makes the choice explicit so a zero Keep or OlderThanDays can be
	// requested.
	By Selector
}

func (p Policy) selector() Selector {
	if p.By != SelectInferred {
		return p.By
	}
	switch {
	case p.Keep > 0:
		return SelectKeep
	case p.OlderThanDays > 0:
		return SelectOlderThan
	case !p.Before.IsZero():
		return SelectBefore
	}
	return SelectInferred
}

func (p Policy) validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrPolicy, err)
	}
	set := map[Selector]bool{
		SelectKeep:      p.Keep > 0,
		SelectOlderThan: p.OlderThanDays > 0,
		SelectBefore:    !p.Before.IsZero(),
	}
	chosen := p.selector()
	if chosen < SelectInferred || chosen > SelectBefore {
		return fmt.Errorf("%w: unknown selector %d", ErrPolicy, chosen)
	}
	if p.By != SelectInferred {
		set[p.By] = true
	}
	count := 0
	for _, ok := range set {
		if ok {
			count++
		}
	}
	if chosen == SelectInferred || count != 1 {
		return fmt.Errorf("%w: choose exactly one of keep, older-than or before", ErrPolicy)
	}
	if chosen == SelectBefore && p.Before.IsZero() {
		return fmt.Errorf("%w: before needs a date", ErrPolicy)
	}
	return nil
}

// Candidate is one log selected for consolidation.
type Candidate struct {
	ID          string
	Path        string
	Date        time.Time
	Event       string
	Impacts     []string
	Summary     string // empty when the log has no Goal section
	ArchivePath string
}

// LogDate extracts the YYYY-MM-DD prefix of a log file name.
func LogDate(path string) (time.Time, bool) {
	m := datePrefix.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return time.Time{}, false
	}
	d, err := time.Parse(frontmatter.DateLayout, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// datedLogs returns every log record with a dated file name, oldest first.
func datedLogs(c *corpus.Corpus) []Candidate {
	var logs []Candidate
	for _, rec := range c.Records {
		if rec.Type != taxonomy.TypeLog {
			continue
		}
		d, ok := LogDate(rec.Path)
		if !ok {
			continue
		}
		event := rec.Meta.EventType
		if event == "" {
			event = string(taxonomy.TypeLog)
		}
		logs = append(logs, Candidate{
			ID:      rec.ID,
			Path:    rec.Path,
			Date:    d,
			Event:   event,
			Impacts: rec.Impacts,
		})
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].Date.Equal(logs[j].Date) {
			return logs[i].Date.Before(logs[j].Date)
		}
		return logs[i].Path < logs[j].Path
	})
	return logs
}

// selectLogs applies the policy to the dated logs.
func selectLogs(logs []Candidate, p Policy, today time.Time) []Candidate {
	switch p.selector() {
	case SelectKeep:
		if len(logs) <= p.Keep {
			return nil
		}
		return logs[:len(logs)-p.Keep]
	case SelectOlderThan:
		return before(logs, today.AddDate(0, 0, -p.OlderThanDays))
	default:
		return before(logs, p.Before)
	}
}

func before(logs []Candidate, cutoff time.Time) []Candidate {
	var out []Candidate
	for _, l := range logs {
		if l.Date.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out
}

var goalHeading = regexp.MustCompile(`(?i)^#{2}\s+(?:\d+\.\s*)?goal\s*$`)

// GoalSummary returns the first non-empty line under a "## Goal" or
// "## <n>. Goal" heading, or "" when there is none.
func GoalSummary(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if !goalHeading.MatchString(strings.TrimSpace(line)) {
			continue
		}
		for _, next := range lines[i+1:] {
			next = strings.TrimSpace(next)
			if strings.HasPrefix(next, "#") {
				return ""
			}
			if next != "" {
				return next
			}
		}
		return ""
	}
	return ""
}
