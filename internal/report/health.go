// Package report answers read-only questions about a scanned corpus: the
// health summary, id and relation queries, and the combined validation
// result the validate command prints. Nothing here writes to disk.
package report

import (
	"fmt"

	"github.com/papapumpkin/onto/internal/ontology"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// TypeCount is the number of documents of one type.
type TypeCount struct {
	Type  taxonomy.DocType
	Count int
}

// Health is the corpus health summary.
type Health struct {
	Total        int
	Types        []TypeCount
	Reached      int
	Reachable    int
	Connectivity float64
	Foundation   string
	Orphans      []string
	Broken       []ontology.Link
	Cycles       [][]string
}

// BuildHealth computes the health summary. Every declared type is listed,
// including those with no documents; unknown types are listed last when
// present. Deferred targets are not counted as broken links.
func BuildHealth(g *ontology.Graph, tax *taxonomy.Taxonomy, deferred func(id string) bool) Health {
	h := Health{Total: g.Len()}
	for _, dt := range tax.Types() {
		h.Types = append(h.Types, TypeCount{Type: dt, Count: len(g.IDsOfType(dt))})
		if h.Foundation == "" && tax.IsFoundation(dt) {
			h.Foundation = string(dt)
		}
	}
	if n := len(g.IDsOfType(taxonomy.TypeUnknown)); n > 0 {
		h.Types = append(h.Types, TypeCount{Type: taxonomy.TypeUnknown, Count: n})
	}
	h.Reached, h.Reachable, h.Connectivity = g.Connectivity()
	h.Orphans = g.Orphans()
	h.Broken = g.BrokenLinks(deferred)
	h.Cycles = g.Cycles()
	return h
}

// Healthy reports whether the summary has no orphans, broken links or cycles.
func (h Health) Healthy() bool {
	return len(h.Orphans) == 0 && len(h.Broken) == 0 && len(h.Cycles) == 0
}

// ConnectivityLine renders the connectivity percentage.
func (h Health) ConnectivityLine() string {
	return fmt.Sprintf("%.1f%% reachable from %s", h.Connectivity, h.Foundation)
}

// Lines renders the summary as plain text, one fact per line.
func (h Health) Lines() []string {
	lines := []string{fmt.Sprintf("Total documents: %d", h.Total)}
	for _, tc := range h.Types {
		lines = append(lines, fmt.Sprintf("%s: %d", tc.Type, tc.Count))
	}
	lines = append(lines, h.ConnectivityLine())
	lines = append(lines, fmt.Sprintf("Orphans: %d", len(h.Orphans)))
	for _, id := range h.Orphans {
		lines = append(lines, "  "+id)
	}
	lines = append(lines, fmt.Sprintf("Broken links: %d", len(h.Broken)))
	for _, l := range h.Broken {
		lines = append(lines, fmt.Sprintf("  %s -%s-> %s", l.From, l.Kind, l.To))
	}
	lines = append(lines, fmt.Sprintf("Cycles: %d", len(h.Cycles)))
	for _, c := range h.Cycles {
		lines = append(lines, "  "+ontology.FormatCycle(c))
	}
	return lines
}
