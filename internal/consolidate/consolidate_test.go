package consolidate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/fsio"
	"github.com/papapumpkin/onto/internal/ledger"
	"github.com/papapumpkin/onto/internal/logging"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

const ledgerDoc = `# Decision History

## History Ledger

| Date | Slug | Event | Decision/Outcome | Impacts | Archive Path |
|------|------|-------|------------------|---------|--------------|
| 2025-01-02 | kickoff | decision | Chose markdown | — | docs/archive/logs/2025-01-02_kickoff.md |

## Consolidation Log

| Date | Sessions Reviewed | Sessions Archived | Performed By |
|------|-------------------|-------------------|--------------|
`

func logDoc(id, event, goal string, impacts ...string) string {
	var b strings.Builder
	b.WriteString("---\nid: " + id + "\ntype: log\nstatus: active\nevent_type: " + event + "\n")
	b.WriteString("impacts: [" + strings.Join(impacts, ", ") + "]\n---\n\n# Session\n\n")
	if goal != "" {
		b.WriteString("## 1. Goal\n\n" + goal + "\n\n")
	}
	b.WriteString("## Notes\n\nstuff\n")
	return b.String()
}

type fixture struct {
	root    string
	ledger  string
	archive string
	logs    string
}

func newFixture(t *testing.T, logs map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		root:    root,
		ledger:  filepath.Join(root, "docs", "strategy", "decision_history.md"),
		archive: filepath.Join(root, "docs", "archive", "logs"),
		logs:    filepath.Join(root, "docs", "logs"),
	}
	write(t, f.ledger, ledgerDoc)
	for name, content := range logs {
		write(t, filepath.Join(f.logs, name), content)
	}
	return f
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f fixture) scan(t *testing.T) *corpus.Corpus {
	t.Helper()
	s, err := corpus.NewScanner(fsio.Disk{}, taxonomy.Default(), []string{"**/archive/**"}, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.Scan([]string{filepath.Join(f.root, "docs")})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return c
}

func (f fixture) engine() *Engine {
	now := func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return New(fsio.Disk{}, logging.Discard(), f.ledger, f.archive, WithClock(now), WithPerformer("tester"))
}

func TestRunAppendsAndArchives(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{
		"2025-02-01_alpha.md": logDoc("alpha", "feature", "Ship the parser", "auth"),
		"2025-02-03_beta.md":  logDoc("beta", "fix", ""),
		"2025-02-20_gamma.md": logDoc("gamma", "feature", "Keep me"),
		"undated.md":          logDoc("undated", "feature", "Never selected"),
	})
	c := f.scan(t)

	report, err := f.engine().Run(c, Policy{Keep: 1}, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Reviewed != 3 || len(report.Candidates) != 2 {
		t.Fatalf("reviewed=%d candidates=%d, want 3 and 2", report.Reviewed, len(report.Candidates))
	}

	data, err := os.ReadFile(f.ledger)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	alpha := strings.Index(out, "| 2025-02-01 | alpha | feature | Ship the parser | auth |")
	beta := strings.Index(out, "| 2025-02-03 | beta | fix | "+NoSummary+" | — |")
	consolidation := strings.Index(out, "## Consolidation Log")
	if alpha < 0 || beta < 0 {
		t.Fatalf("rows missing:\n%s", out)
	}
	if !(alpha < beta && beta < consolidation) {
		t.Errorf("rows out of order or past the Consolidation Log:\n%s", out)
	}
	if !strings.Contains(out, "| 2025-03-01 | 3 | 2 | tester |") {
		t.Errorf("consolidation log entry missing:\n%s", out)
	}
	if !report.LoggedRollup {
		t.Error("LoggedRollup = false")
	}

	for _, name := range []string{"2025-02-01_alpha.md", "2025-02-03_beta.md"} {
		if _, err := os.Stat(filepath.Join(f.logs, name)); !os.IsNotExist(err) {
			t.Errorf("%s still in logs dir", name)
		}
		if _, err := os.Stat(filepath.Join(f.archive, name)); err != nil {
			t.Errorf("%s not archived: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(f.logs, "2025-02-20_gamma.md")); err != nil {
		t.Errorf("kept log was moved: %v", err)
	}
}

func TestRunDuplicateIDsTouchNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{
		"2025-02-01_one.md":   logDoc("session", "feature", "a"),
		"2025-02-02_two.md":   logDoc("session", "feature", "b"),
		"2025-02-03_three.md": logDoc("three", "feature", "c"),
	})
	c := f.scan(t)
	before, _ := os.ReadFile(f.ledger)

	_, err := f.engine().Run(c, Policy{Before: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, false)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Run = %v, want ErrDuplicateID", err)
	}
	if !strings.HasPrefix(err.Error(), "Duplicate ID 'session' found") {
		t.Errorf("message = %q", err.Error())
	}

	after, _ := os.ReadFile(f.ledger)
	if string(before) != string(after) {
		t.Error("ledger changed despite duplicate ids")
	}
	for _, name := range []string{"2025-02-01_one.md", "2025-02-02_two.md", "2025-02-03_three.md"} {
		if _, err := os.Stat(filepath.Join(f.logs, name)); err != nil {
			t.Errorf("%s moved: %v", name, err)
		}
	}
}

func TestRunRejectsLedgeredSlug(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{
		"2025-02-01_kickoff.md": logDoc("kickoff", "decision", "again"),
	})
	_, err := f.engine().Run(f.scan(t), Policy{OlderThanDays: 7}, false)
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.ID != "kickoff" {
		t.Errorf("Run = %v, want duplicate kickoff", err)
	}
}

func TestRunArchiveDestinationTaken(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{
		"2025-02-01_alpha.md": logDoc("alpha", "feature", "a"),
	})
	write(t, filepath.Join(f.archive, "2025-02-01_alpha.md"), "older copy")
	before, _ := os.ReadFile(f.ledger)

	_, err := f.engine().Run(f.scan(t), Policy{OlderThanDays: 7}, false)
	if !errors.Is(err, ErrArchiveExists) {
		t.Fatalf("Run = %v, want ErrArchiveExists", err)
	}
	after, _ := os.ReadFile(f.ledger)
	if string(before) != string(after) {
		t.Error("ledger changed despite archive collision")
	}
}

func TestRunMissingLedger(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{
		"2025-02-01_alpha.md": logDoc("alpha", "feature", "a"),
	})
	if err := os.Remove(f.ledger); err != nil {
		t.Fatal(err)
	}
	_, err := f.engine().Run(f.scan(t), Policy{Keep: 0, OlderThanDays: 1}, false)
	var lerr *ledger.LedgerError
	if !errors.As(err, &lerr) {
		t.Fatalf("Run = %v, want *ledger.LedgerError", err)
	}
	if _, err := os.Stat(filepath.Join(f.logs, "2025-02-01_alpha.md")); err != nil {
		t.Error("log moved without a ledger")
	}
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{
		"2025-02-01_alpha.md": logDoc("alpha", "feature", "Plan it"),
	})
	before, _ := os.ReadFile(f.ledger)

	report, err := f.engine().Run(f.scan(t), Policy{OlderThanDays: 7}, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Rows) != 1 || report.Rows[0].Outcome != "Plan it" {
		t.Errorf("rows = %+v", report.Rows)
	}
	after, _ := os.ReadFile(f.ledger)
	if string(before) != string(after) {
		t.Error("dry run wrote the ledger")
	}
	if len(report.Archived) != 0 {
		t.Errorf("dry run archived %v", report.Archived)
	}
}

func TestRunKeepZeroConsolidatesAll(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{
		"2025-02-01_alpha.md": logDoc("alpha", "feature", "a"),
		"2025-02-02_beta.md":  logDoc("beta", "fix", "b"),
	})
	report, err := f.engine().Run(f.scan(t), Policy{By: SelectKeep}, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Candidates) != 2 {
		t.Errorf("candidates = %+v, want both logs", report.Candidates)
	}
}

func TestPolicyValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		p    Policy
		ok   bool
	}{
		{"keep", Policy{Keep: 3}, true},
		{"older than", Policy{OlderThanDays: 30}, true},
		{"before", Policy{Before: time.Now()}, true},
		{"none", Policy{}, false},
		{"two", Policy{Keep: 3, OlderThanDays: 30}, false},
		{"negative", Policy{Keep: -1}, false},
		{"explicit keep zero", Policy{By: SelectKeep}, true},
		{"explicit keep with another selector", Policy{By: SelectKeep, OlderThanDays: 3}, false},
		{"explicit before without date", Policy{By: SelectBefore}, false},
	}
	for _, tt := range tests {
		err := tt.p.validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrPolicy) {
			t.Errorf("%s: error %v does not wrap ErrPolicy", tt.name, err)
		}
	}
}

func TestGoalSummary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain heading", "## Goal\n\nFix login\n", "Fix login"},
		{"numbered heading", "## 2. Goal\nShip it\nmore", "Ship it"},
		{"skips blank lines", "## Goal\n\n\n  Trimmed  \n", "Trimmed"},
		{"empty section", "## Goal\n\n## Next\ntext\n", ""},
		{"absent", "## Notes\nstuff\n", ""},
		{"not a goal subheading", "### Goal\nnested\n", ""},
		{"goals plural ignored", "## Goals\nmany\n", ""},
	}
	for _, tt := range tests {
		if got := GoalSummary(tt.body); got != tt.want {
			t.Errorf("%s: GoalSummary = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLogDate(t *testing.T) {
	t.Parallel()
	if d, ok := LogDate("docs/logs/2025-02-01_alpha.md"); !ok || d.Day() != 1 || d.Month() != time.February {
		t.Errorf("LogDate = %v, %v", d, ok)
	}
	for _, p := range []string{"docs/alpha.md", "docs/2025-13-01_bad.md", "docs/2025-02-01.md"} {
		if _, ok := LogDate(p); ok {
			t.Errorf("LogDate(%q) ok, want false", p)
		}
	}
}
