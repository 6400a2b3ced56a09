// Package ontology builds the document dependency graph from a scanned corpus
// and runs the structural validation passes over it: hierarchy order, cycles,
// depth, broken links and orphans. It also answers dependency queries and
// computes kernel connectivity.
//
// Edges point from a document to what it references: if A depends on B,
// there is an edge from A to B. Unlike a scheduling DAG the graph accepts
// cycles, since reporting them is one of its jobs.
package ontology

import (
	"sort"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// EdgeKind distinguishes the two relations a document can declare.
type EdgeKind int

const (
	// EdgeDependsOn is a depends_on reference.
	EdgeDependsOn EdgeKind = iota
	// EdgeImpacts is an impacts reference from a log document.
	EdgeImpacts
)

// String returns the metadata field name for the kind.
func (k EdgeKind) String() string {
	if k == EdgeImpacts {
		return "impacts"
	}
	return "depends_on"
}

// Link is one reference from a document to a target that is not in the
// corpus.
type Link struct {
	From string
	To   string
	Kind EdgeKind
}

// Graph is the dependency graph over one corpus scan.
type Graph struct {
	tax     *taxonomy.Taxonomy
	records map[string]*corpus.Record
	// adjacency maps id → referenced ids (forward edges).
	adjacency map[string]map[string]EdgeKind
	// reverse maps id → ids that reference it (backward edges).
	reverse map[string]map[string]EdgeKind
	// dangling holds references whose target is not in the corpus, in
	// declaration order per source.
	dangling []Link
}

// Build constructs the graph from the scanned records. References to ids
// outside the corpus are kept aside for the broken-link pass.
func Build(records map[string]*corpus.Record, tax *taxonomy.Taxonomy) *Graph {
	g := &Graph{
		tax:       tax,
		records:   records,
		adjacency: make(map[string]map[string]EdgeKind, len(records)),
		reverse:   make(map[string]map[string]EdgeKind, len(records)),
	}
	for id := range records {
		g.adjacency[id] = make(map[string]EdgeKind)
		g.reverse[id] = make(map[string]EdgeKind)
	}
	for _, id := range g.IDs() {
		rec := records[id]
		g.link(id, rec.DependsOn, EdgeDependsOn)
		g.link(id, rec.Impacts, EdgeImpacts)
	}
	return g
}

func (g *Graph) link(from string, targets []string, kind EdgeKind) {
	for _, to := range targets {
		if _, ok := g.records[to]; !ok {
			g.dangling = append(g.dangling, Link{From: from, To: to, Kind: kind})
			continue
		}
		// depends_on wins when both relations name the same target.
		if existing, ok := g.adjacency[from][to]; ok && existing == EdgeDependsOn {
			continue
		}
		g.adjacency[from][to] = kind
		g.reverse[to][from] = kind
	}
}

// Record returns the record for id, or nil.
func (g *Graph) Record(id string) *corpus.Record {
	return g.records[id]
}

// IDs returns all document ids, sorted.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.records))
	for id := range g.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of documents in the graph.
func (g *Graph) Len() int {
	return len(g.records)
}

// IDsOfType returns the sorted ids of every document of the given type.
func (g *Graph) IDsOfType(dt taxonomy.DocType) []string {
	var ids []string
	for _, id := range g.IDs() {
		if g.records[id].Type == dt {
			ids = append(ids, id)
		}
	}
	return ids
}

// Dependencies returns what id references directly, or transitively when
// transitive is set. The result is sorted; unknown ids yield nil.
func (g *Graph) Dependencies(id string, transitive bool) []string {
	return g.walk(id, g.adjacency, transitive)
}

// Dependents returns what references id directly, or transitively when
// transitive is set. The result is sorted; unknown ids yield nil.
func (g *Graph) Dependents(id string, transitive bool) []string {
	return g.walk(id, g.reverse, transitive)
}

func (g *Graph) walk(id string, edges map[string]map[string]EdgeKind, transitive bool) []string {
	if _, ok := g.records[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range edges[cur] {
			if visited[next] || next == id {
				continue
			}
			visited[next] = true
			if transitive {
				queue = append(queue, next)
			}
		}
	}
	out := make([]string, 0, len(visited))
	for v := range visited {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// sortedNeighbors returns the forward neighbors of id restricted to kind,
// in sorted order so traversals are deterministic.
func (g *Graph) sortedNeighbors(id string, kind EdgeKind) []string {
	var out []string
	for to, k := range g.adjacency[id] {
		if k == kind {
			out = append(out, to)
		}
	}
	sort.Strings(out)
	return out
}
