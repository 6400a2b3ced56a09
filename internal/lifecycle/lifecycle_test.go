package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/fsio"
	"github.com/papapumpkin/onto/internal/logging"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func scan(t *testing.T, root string) *corpus.Corpus {
	t.Helper()
	s, err := corpus.NewScanner(fsio.Disk{}, taxonomy.Default(), nil, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.Scan([]string{root})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return c
}

func readMeta(t *testing.T, path string) *frontmatter.Metadata {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	m, _, err := frontmatter.Parse(string(data))
	if err != nil {
		t.Fatalf("parsing %s: %v\n%s", path, err, data)
	}
	return m
}

var fixedNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func newEngine(root string) *Engine {
	return New(fsio.Disk{}, taxonomy.Default(), logging.Discard(),
		WithClock(func() time.Time { return fixedNow }),
		WithRoot(root))
}

func TestScaffold(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"kernel/k.md": "---\nid: k\ntype: kernel\n---\n"})
	e := newEngine(root)
	c := scan(t, root)

	path := filepath.Join(root, "atoms", "auth.md")
	out, err := e.Scaffold(c, ScaffoldRequest{ID: "auth", Type: "atom", Goal: "Describe login", Path: path})
	if err != nil {
		t.Fatalf("Scaffold: %v", err)
	}
	if !out.Applied {
		t.Error("Applied = false")
	}
	m := readMeta(t, path)
	if m.ID != "auth" || m.Type != "atom" || m.Status != taxonomy.StatusScaffold {
		t.Errorf("metadata = %+v", m)
	}
	if !m.HasCurationLevel || m.CurationLevel != 0 || m.SchemaVersion != ScaffoldSchema {
		t.Errorf("level=%d schema=%q", m.CurationLevel, m.SchemaVersion)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "## Goal\n\nDescribe login\n") {
		t.Errorf("missing goal section:\n%s", data)
	}
}

func TestScaffoldRefusals(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"atoms/taken.md":  "---\nid: taken\ntype: atom\n---\n",
		"atoms/exists.md": "plain\n",
	})
	e := newEngine(root)
	c := scan(t, root)

	tests := []struct {
		name string
		req  ScaffoldRequest
		want error
	}{
		{"path exists", ScaffoldRequest{ID: "x", Type: "atom", Goal: "g", Path: filepath.Join(root, "atoms", "exists.md")}, ErrPathExists},
		{"unknown type", ScaffoldRequest{ID: "x", Type: "essay", Goal: "g", Path: filepath.Join(root, "x.md")}, ErrUnknownType},
		{"id taken", ScaffoldRequest{ID: "taken", Type: "atom", Goal: "g", Path: filepath.Join(root, "other.md")}, corpus.ErrDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Scaffold(c, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("invalid request", func(t *testing.T) {
		for _, req := range []ScaffoldRequest{
			{ID: "", Type: "atom", Goal: "g", Path: "p.md"},
			{ID: "_template", Type: "atom", Goal: "g", Path: "p.md"},
			{ID: "ok", Type: "atom", Goal: "", Path: "p.md"},
		} {
			if _, err := e.Scaffold(c, req); err == nil {
				t.Errorf("Scaffold(%+v) succeeded, want validation error", req)
			}
		}
	})

	t.Run("force overwrites", func(t *testing.T) {
		path := filepath.Join(root, "atoms", "exists.md")
		if _, err := e.Scaffold(c, ScaffoldRequest{ID: "exists", Type: "atom", Goal: "g", Path: path, Force: true}); err != nil {
			t.Fatalf("Scaffold with Force: %v", err)
		}
		if readMeta(t, path).ID != "exists" {
			t.Error("forced scaffold did not overwrite")
		}
	})
}

func TestAdoptUntagged(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"Meeting Notes.md": "# Meeting\n\nbody\n",
		"atoms/used.md":    "---\nid: used\ntype: atom\n---\n",
		"other/used.md":    "no metadata\n",
	})
	e := newEngine(root)
	c := scan(t, root)

	plan, err := e.AdoptUntagged(c, true)
	if err != nil {
		t.Fatalf("AdoptUntagged dry run: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("plan = %+v, want 2 entries", plan)
	}
	if data, _ := os.ReadFile(filepath.Join(root, "Meeting Notes.md")); strings.HasPrefix(string(data), "---") {
		t.Error("dry run wrote metadata")
	}

	outcomes, err := e.AdoptUntagged(c, false)
	if err != nil {
		t.Fatalf("AdoptUntagged: %v", err)
	}
	var adopted, collided int
	for _, o := range outcomes {
		switch {
		case o.Applied:
			adopted++
			if o.ID != "meeting_notes" {
				t.Errorf("adopted id = %q, want meeting_notes", o.ID)
			}
		case errors.Is(o.Err, corpus.ErrDuplicateID):
			collided++
		}
	}
	if adopted != 1 || collided != 1 {
		t.Errorf("adopted=%d collided=%d, want 1 and 1", adopted, collided)
	}

	m := readMeta(t, filepath.Join(root, "Meeting Notes.md"))
	if m.Type != frontmatter.UnknownType || m.Status != taxonomy.StatusScaffold {
		t.Errorf("adopted metadata = %+v", m)
	}
	data, _ := os.ReadFile(filepath.Join(root, "Meeting Notes.md"))
	if !strings.HasSuffix(string(data), "# Meeting\n\nbody\n") {
		t.Errorf("original body lost:\n%s", data)
	}
}

func TestSlugFromPath(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"docs/Auth Flow.md":          "auth_flow",
		"docs/_private.md":           "private",
		"docs/2025-01-02_session.md": "2025-01-02_session",
		"docs/!!!.md":                "untitled",
		"docs/API (v2) -- spec.md":   "api_v2_--_spec",
	}
	for in, want := range tests {
		if got := SlugFromPath(in); got != want {
			t.Errorf("SlugFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPromote(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"k.md":        "---\nid: k\ntype: kernel\nstatus: active\ncuration_level: 2\n---\n",
		"ready.md":    "---\nid: ready\ntype: atom\nstatus: scaffold\ncuration_level: 0\ndepends_on: [k]\n---\n",
		"pending.md":  "---\nid: pending\ntype: atom\nstatus: pending_curation\ncuration_level: 1\ndepends_on: [k]\n---\n",
		"blocked.md":  "---\nid: blocked\ntype: atom\nstatus: pending_curation\ncuration_level: 1\ndepends_on: []\n---\n",
		"typeless.md": "---\nid: typeless\ntype: \"[atom | log]\"\nstatus: scaffold\ncuration_level: 0\n---\n",
	})
	e := newEngine(root)
	c := scan(t, root)

	if got := e.Candidates(c); strings.Join(got, ",") != "blocked,pending,ready,typeless" {
		t.Errorf("Candidates = %v", got)
	}

	t.Run("check mode writes nothing", func(t *testing.T) {
		before, _ := os.ReadFile(filepath.Join(root, "ready.md"))
		outcomes, err := e.Promote(c, []string{"ready"}, true)
		if err != nil {
			t.Fatal(err)
		}
		if len(outcomes) != 1 || outcomes[0].Err != nil || outcomes[0].Applied {
			t.Errorf("outcomes = %+v", outcomes)
		}
		after, _ := os.ReadFile(filepath.Join(root, "ready.md"))
		if string(before) != string(after) {
			t.Error("check mode modified the file")
		}
	})

	outcomes, err := e.Promote(c, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	byID := make(map[string]Outcome, len(outcomes))
	for _, o := range outcomes {
		byID[o.ID] = o
	}

	if o := byID["ready"]; !o.Applied || o.To != taxonomy.LevelPending {
		t.Errorf("ready = %+v", o)
	}
	m := readMeta(t, filepath.Join(root, "ready.md"))
	if m.CurationLevel != 1 || m.Status != taxonomy.StatusPendingCuration {
		t.Errorf("ready metadata level=%d status=%q", m.CurationLevel, m.Status)
	}

	if o := byID["pending"]; !o.Applied || o.To != taxonomy.LevelCurated {
		t.Errorf("pending = %+v", o)
	}
	m = readMeta(t, filepath.Join(root, "pending.md"))
	if m.CurationLevel != 2 || m.Status != taxonomy.StatusDraft {
		t.Errorf("pending metadata level=%d status=%q", m.CurationLevel, m.Status)
	}

	var lerr *LifecycleError
	if o := byID["blocked"]; !errors.As(o.Err, &lerr) || lerr.Field != "depends_on" || !errors.Is(o.Err, ErrMissingField) {
		t.Errorf("blocked err = %v, want missing depends_on", o.Err)
	}
	if o := byID["typeless"]; !errors.Is(o.Err, ErrUnknownType) {
		t.Errorf("typeless err = %v, want ErrUnknownType", o.Err)
	}
}

func TestPromoteRefusesCuratedAndUnknown(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"k.md": "---\nid: k\ntype: kernel\nstatus: active\ncuration_level: 2\n---\n"})
	e := newEngine(root)
	c := scan(t, root)

	outcomes, err := e.Promote(c, []string{"k", "ghost"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(outcomes[0].Err, ErrIllegalTransition) {
		t.Errorf("curated promote err = %v", outcomes[0].Err)
	}
	if !errors.Is(outcomes[1].Err, corpus.ErrUnknownID) {
		t.Errorf("unknown id err = %v", outcomes[1].Err)
	}
	if outcomes[0].Finding().Message == "" {
		t.Error("Finding has empty message")
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/auth.go":   "package auth\n",
		"docs/auth.md":  "---\nid: auth\ntype: atom\nstatus: active\ncuration_level: 2\ndepends_on: [k]\ndescribes: [src/auth.go]\n---\n",
		"docs/early.md": "---\nid: early\ntype: atom\nstatus: draft\ncuration_level: 1\ndescribes: [auth]\n---\n",
		"docs/gone.md":  "---\nid: gone\ntype: atom\nstatus: active\ncuration_level: 2\ndescribes: [src/missing.go]\n---\n",
		"docs/none.md":  "---\nid: none\ntype: atom\nstatus: active\ncuration_level: 2\n---\n",
	})
	e := newEngine(root)
	c := scan(t, filepath.Join(root, "docs"))

	outcomes, err := e.Verify(c, []string{"auth", "early", "gone", "none"})
	if err != nil {
		t.Fatal(err)
	}

	if o := outcomes[0]; !o.Applied || o.To != taxonomy.LevelVerified {
		t.Errorf("auth = %+v", o)
	}
	m := readMeta(t, filepath.Join(root, "docs", "auth.md"))
	if m.CurationLevel != 3 || !m.DescribesVerified.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("auth metadata level=%d verified=%v", m.CurationLevel, m.DescribesVerified)
	}

	if o := outcomes[1]; !o.Applied || o.To != taxonomy.LevelPending {
		t.Errorf("early = %+v, want stamped at its own level", o)
	}
	if !errors.Is(outcomes[2].Err, ErrMissingTarget) {
		t.Errorf("gone err = %v", outcomes[2].Err)
	}
	if !errors.Is(outcomes[3].Err, ErrNoDescribes) {
		t.Errorf("none err = %v", outcomes[3].Err)
	}
}

func TestStale(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/fresh.go":    "package a\n",
		"src/old.go":      "package b\n",
		"docs/current.md": "---\nid: current\ntype: atom\ndescribes: [src/fresh.go]\ndescribes_verified: 2026-03-01\n---\n",
		"docs/stale.md":   "---\nid: stale\ntype: atom\ndescribes: [src/fresh.go, src/old.go]\ndescribes_verified: 2026-01-01\n---\n",
		"docs/never.md":   "---\nid: never\ntype: atom\ndescribes: [src/old.go]\n---\n",
		"docs/plain.md":   "---\nid: plain\ntype: atom\n---\n",
	})
	fresh := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	old := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(root, "src", "fresh.go"), fresh, fresh); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(filepath.Join(root, "src", "old.go"), old, old); err != nil {
		t.Fatal(err)
	}
	e := newEngine(root)
	c := scan(t, filepath.Join(root, "docs"))

	stale := e.Stale(c)
	if len(stale) != 2 {
		t.Fatalf("Stale = %+v, want never and stale", stale)
	}
	if stale[0].ID != "never" || !stale[0].Never() {
		t.Errorf("first = %+v", stale[0])
	}
	if stale[1].ID != "stale" || stale[1].Target != "src/fresh.go" {
		t.Errorf("second = %+v", stale[1])
	}

	findings := StaleFindings(stale)
	if findings[0].Message != "describes targets but was never verified" {
		t.Errorf("never message = %q", findings[0].Message)
	}
	if !strings.Contains(findings[1].Message, "verified 2026-01-01 but src/fresh.go changed") {
		t.Errorf("stale message = %q", findings[1].Message)
	}
}
