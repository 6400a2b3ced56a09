// Package ledger reads and appends to the decision-history document: a
// markdown file holding a "History Ledger" table of consolidated session logs
// and, optionally, a "Consolidation Log" table recording each roll-up. The
// two tables are located by heading text and never confused.
package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors for ledger validation.
var (
	// ErrNoHistoryTable indicates the History Ledger heading or its table is missing.
	ErrNoHistoryTable = errors.New("history ledger table not found")
	// ErrBadColumns indicates the History Ledger header row has the wrong columns.
	ErrBadColumns = errors.New("history ledger columns do not match")
)

// Columns is the fixed History Ledger column order.
var Columns = [...]string{"Date", "Slug", "Event", "Decision/Outcome", "Impacts", "Archive Path"}

// EmptyImpacts is written in the Impacts cell when a log impacts nothing.
const EmptyImpacts = "—"

// LedgerError reports a missing or malformed ledger document. It is fatal to
// consolidation.
type LedgerError struct {
	Path string
	Err  error
}

// Error returns the ledger path and the cause.
func (e *LedgerError) Error() string {
	return "ledger " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Row is one History Ledger entry.
type Row struct {
	Date        string
	Slug        string
	Event       string
	Outcome     string
	Impacts     []string
	ArchivePath string
}

// ConsolidationEntry is one Consolidation Log row.
type ConsolidationEntry struct {
	Date      string
	Reviewed  int
	Archived  int
	Performer string
}

var (
	historyHeading       = regexp.MustCompile(`(?i)^#{1,6}\s+.*history ledger`)
	consolidationHeading = regexp.MustCompile(`(?i)^#{1,6}\s+.*consolidation log`)
	anyHeading           = regexp.MustCompile(`^#{1,6}\s`)
)

// table is the line span of a markdown table under a heading.
type table struct {
	header  int // header row
	lastRow int // last row, the separator when the table has no data
}

// Ledger is a parsed decision-history document.
type Ledger struct {
	Path  string
	Rows  []Row
	lines []string

	history       table
	consolidation *table
}

// Parse locates the History Ledger table in content and reads its rows.
func Parse(path string, content []byte) (*Ledger, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	l := &Ledger{Path: path, lines: strings.Split(text, "\n")}

	hist, err := l.findTable(historyHeading)
	if err != nil {
		return nil, &LedgerError{Path: path, Err: err}
	}
	header := splitRow(l.lines[hist.header])
	if len(header) != len(Columns) {
		return nil, &LedgerError{Path: path, Err: fmt.Errorf("%w: got %d columns, want %d", ErrBadColumns, len(header), len(Columns))}
	}
	for i, col := range Columns {
		if !strings.EqualFold(header[i], col) {
			return nil, &LedgerError{Path: path, Err: fmt.Errorf("%w: column %d is %q, want %q", ErrBadColumns, i+1, header[i], col)}
		}
	}
	l.history = hist

	for i := hist.header + 2; i <= hist.lastRow; i++ {
		cells := splitRow(l.lines[i])
		for len(cells) < len(Columns) {
			cells = append(cells, "")
		}
		l.Rows = append(l.Rows, Row{
			Date:        cells[0],
			Slug:        cells[1],
			Event:       cells[2],
			Outcome:     cells[3],
			Impacts:     parseImpacts(cells[4]),
			ArchivePath: cells[5],
		})
	}

	if cons, err := l.findTable(consolidationHeading); err == nil {
		l.consolidation = &cons
	}
	return l, nil
}

// findTable returns the first table that follows a heading matching re and
// precedes the next heading. Matching headings without a table, such as a
// document title, are passed over.
func (l *Ledger) findTable(re *regexp.Regexp) (table, error) {
	var malformed error
	for i, line := range l.lines {
		if !re.MatchString(strings.TrimSpace(line)) {
			continue
		}
		t, err := l.tableAfter(i)
		if err == nil {
			return t, nil
		}
		if err != ErrNoHistoryTable && malformed == nil {
			malformed = err
		}
	}
	if malformed != nil {
		return table{}, malformed
	}
	return table{}, ErrNoHistoryTable
}

// tableAfter locates the table between the heading at start and the next
// heading.
func (l *Ledger) tableAfter(start int) (table, error) {
	for i := start + 1; i < len(l.lines); i++ {
		line := strings.TrimSpace(l.lines[i])
		if anyHeading.MatchString(line) {
			break
		}
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if i+1 >= len(l.lines) || !isSeparator(l.lines[i+1]) {
			return table{}, fmt.Errorf("%w: header row at line %d has no separator", ErrNoHistoryTable, i+1)
		}
		t := table{header: i, lastRow: i + 1}
		for j := i + 2; j < len(l.lines) && strings.HasPrefix(strings.TrimSpace(l.lines[j]), "|"); j++ {
			t.lastRow = j
		}
		return t, nil
	}
	return table{}, ErrNoHistoryTable
}

// Has reports whether slug is already ledgered.
func (l *Ledger) Has(slug string) bool {
	for _, r := range l.Rows {
		if r.Slug == slug {
			return true
		}
	}
	return false
}

// Slugs returns the slug of every ledgered row in table order.
func (l *Ledger) Slugs() []string {
	out := make([]string, len(l.Rows))
	for i, r := range l.Rows {
		out[i] = r.Slug
	}
	return out
}

// Append inserts rows directly after the last History Ledger row, in the
// order given.
func (l *Ledger) Append(rows ...Row) {
	if len(rows) == 0 {
		return
	}
	rendered := make([]string, len(rows))
	for i, r := range rows {
		rendered[i] = formatRow([]string{r.Date, r.Slug, r.Event, r.Outcome, formatImpacts(r.Impacts), r.ArchivePath})
	}
	at := l.history.lastRow + 1
	l.insert(at, rendered)
	l.history.lastRow += len(rendered)
	if l.consolidation != nil && l.consolidation.header >= at {
		l.consolidation.header += len(rendered)
		l.consolidation.lastRow += len(rendered)
	}
	l.Rows = append(l.Rows, rows...)
}

// RecordConsolidation appends an entry to the Consolidation Log table. It
// reports false when the document has no such table.
func (l *Ledger) RecordConsolidation(e ConsolidationEntry) bool {
	if l.consolidation == nil {
		return false
	}
	row := formatRow([]string{e.Date, fmt.Sprint(e.Reviewed), fmt.Sprint(e.Archived), e.Performer})
	at := l.consolidation.lastRow + 1
	l.insert(at, []string{row})
	l.consolidation.lastRow++
	if l.history.header >= at {
		l.history.header++
		l.history.lastRow++
	}
	return true
}

// Bytes renders the document with every appended row in place.
func (l *Ledger) Bytes() []byte {
	return []byte(strings.Join(l.lines, "\n"))
}

func (l *Ledger) insert(at int, rows []string) {
	next := make([]string, 0, len(l.lines)+len(rows))
	next = append(next, l.lines[:at]...)
	next = append(next, rows...)
	l.lines = append(next, l.lines[at:]...)
}

func isSeparator(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "|") {
		return false
	}
	return strings.Trim(line, "|-: ") == ""
}

// splitRow splits a markdown table row into trimmed cells, honoring \| escapes.
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")

	var cells []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line) && line[i+1] == '|':
			cur.WriteByte('|')
			i++
		case line[i] == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(line[i])
		}
	}
	return append(cells, strings.TrimSpace(cur.String()))
}

func formatRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "\n", " ")
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return "| " + strings.Join(escaped, " | ") + " |"
}

func formatImpacts(ids []string) string {
	if len(ids) == 0 {
		return EmptyImpacts
	}
	return strings.Join(ids, ", ")
}

func parseImpacts(cell string) []string {
	if cell == "" || cell == EmptyImpacts || cell == "-" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(cell, ",") {
		if p := strings.Trim(strings.TrimSpace(part), "`[]"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
