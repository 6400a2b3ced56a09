package ontology

import (
	"strings"

	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// Cycles returns every elementary dependency cycle among non-log documents,
// each as a closed path starting at its smallest id. Cycles sharing nodes
// are all reported. Only depends_on edges take part; impacts edges never
// form cycles.
func (g *Graph) Cycles() [][]string {
	comp := g.components()
	var cycles [][]string
	for _, start := range g.IDs() {
		if _, ok := comp[start]; !ok {
			continue
		}
		cycles = append(cycles, g.cyclesFrom(start, comp)...)
	}
	return cycles
}

// cyclesFrom enumerates the cycles whose smallest id is start, using
// Johnson's blocking so each node is re-entered only after a cycle through
// it has been closed.
func (g *Graph) cyclesFrom(start string, comp map[string]int) [][]string {
	var (
		cycles  [][]string
		stack   []string
		blocked = make(map[string]bool)
		waiting = make(map[string]map[string]bool)
	)

	var unblock func(id string)
	unblock = func(id string) {
		blocked[id] = false
		for w := range waiting[id] {
			delete(waiting[id], w)
			if blocked[w] {
				unblock(w)
			}
		}
	}

	inScope := func(id string) bool {
		c, ok := comp[id]
		return ok && c == comp[start] && id >= start
	}

	var circuit func(id string) bool
	circuit = func(id string) bool {
		found := false
		stack = append(stack, id)
		blocked[id] = true
		for _, next := range g.cycleNeighbors(id) {
			if !inScope(next) {
				continue
			}
			if next == start {
				cycle := append(append([]string(nil), stack...), start)
				cycles = append(cycles, cycle)
				found = true
			} else if !blocked[next] && circuit(next) {
				found = true
			}
		}
		if found {
			unblock(id)
		} else {
			for _, next := range g.cycleNeighbors(id) {
				if !inScope(next) {
					continue
				}
				if waiting[next] == nil {
					waiting[next] = make(map[string]bool)
				}
				waiting[next][id] = true
			}
		}
		stack = stack[:len(stack)-1]
		return found
	}

	circuit(start)
	return cycles
}

// components labels the strongly connected components of the non-log
// depends_on subgraph (Tarjan). Nodes that cannot be on any cycle, singleton
// components without a self edge, are left out.
func (g *Graph) components() map[string]int {
	var (
		index   = make(map[string]int)
		low     = make(map[string]int)
		onStack = make(map[string]bool)
		stack   []string
		next    int
		label   int
		comp    = make(map[string]int)
	)

	var connect func(id string)
	connect = func(id string) {
		index[id], low[id] = next, next
		next++
		stack = append(stack, id)
		onStack[id] = true
		for _, w := range g.cycleNeighbors(id) {
			if _, seen := index[w]; !seen {
				connect(w)
				low[id] = min(low[id], low[w])
			} else if onStack[w] {
				low[id] = min(low[id], index[w])
			}
		}
		if low[id] != index[id] {
			return
		}
		var members []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			members = append(members, w)
			if w == id {
				break
			}
		}
		if len(members) > 1 || g.hasSelfEdge(id) {
			for _, m := range members {
				comp[m] = label
			}
			label++
		}
	}

	for _, id := range g.IDs() {
		if _, seen := index[id]; !seen && g.records[id].Type != taxonomy.TypeLog {
			connect(id)
		}
	}
	return comp
}

// cycleNeighbors returns the sorted depends_on targets of id that can take
// part in a cycle.
func (g *Graph) cycleNeighbors(id string) []string {
	var out []string
	for _, next := range g.sortedNeighbors(id, EdgeDependsOn) {
		if g.records[next].Type != taxonomy.TypeLog {
			out = append(out, next)
		}
	}
	return out
}

func (g *Graph) hasSelfEdge(id string) bool {
	kind, ok := g.adjacency[id][id]
	return ok && kind == EdgeDependsOn
}

// CheckCycles reports each cycle with its full path.
func (g *Graph) CheckCycles() []result.Finding {
	var findings []result.Finding
	for _, cycle := range g.Cycles() {
		findings = append(findings, result.Finding{
			Category: result.CatCycle,
			Severity: result.SeverityError,
			ID:       cycle[0],
			File:     g.records[cycle[0]].Path,
			Message:  "dependency cycle: " + FormatCycle(cycle),
		})
	}
	return findings
}

// FormatCycle renders a closed cycle path as "a → b → a".
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " → ")
}
