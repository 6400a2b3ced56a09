package ontology

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// DefaultMaxDepth is the longest dependency chain, in edges, allowed before
// the depth pass warns.
const DefaultMaxDepth = 5

// Options tunes the validation passes.
type Options struct {
	// MaxDepth bounds the longest depends_on chain. Zero means DefaultMaxDepth.
	MaxDepth int
	// Deferred reports whether a missing target was consolidated or archived
	// and so is not a broken link. Nil defers nothing.
	Deferred func(id string) bool
}

// Validate runs every pass and returns the combined, sorted findings. No pass
// short-circuits another.
func (g *Graph) Validate(opts Options) []result.Finding {
	var findings []result.Finding
	findings = append(findings, g.CheckHierarchy()...)
	findings = append(findings, g.CheckCycles()...)
	findings = append(findings, g.CheckDepth(opts.MaxDepth)...)
	findings = append(findings, g.CheckLinks(opts.Deferred)...)
	findings = append(findings, g.CheckOrphans()...)
	result.Sort(findings)
	return findings
}

// CheckHierarchy flags every edge whose target type is less foundational
// than its source type.
func (g *Graph) CheckHierarchy() []result.Finding {
	var findings []result.Finding
	for _, from := range g.IDs() {
		src := g.records[from]
		for _, to := range g.sortedTargets(from) {
			dst := g.records[to]
			if g.tax.CanDependOn(src.Type, dst.Type) {
				continue
			}
			findings = append(findings, result.Finding{
				Category: result.CatHierarchyViolation,
				Severity: result.SeverityError,
				ID:       from,
				File:     src.Path,
				Message: fmt.Sprintf("%s %s may not reference %s %s: targets must be the same or a more foundational type",
					src.Type, from, dst.Type, to),
			})
		}
	}
	return findings
}

// LongestChain returns the longest depends_on path in the graph as a list of
// ids, from the most dependent document down to its deepest dependency.
// Back edges of cycles are ignored.
func (g *Graph) LongestChain() []string {
	var best []string
	chains := g.chains()
	for _, id := range g.IDs() {
		if c := chains[id]; len(c) > len(best) {
			best = c
		}
	}
	return best
}

// CheckDepth warns for each chain longer than maxDepth edges, reported once at
// the top of the chain.
func (g *Graph) CheckDepth(maxDepth int) []result.Finding {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	chains := g.chains()
	var findings []result.Finding
	for _, id := range g.IDs() {
		chain := chains[id]
		if len(chain)-1 <= maxDepth || g.hasDependent(id, EdgeDependsOn) {
			continue
		}
		findings = append(findings, result.Finding{
			Category: result.CatDepthExceeded,
			Severity: result.SeverityWarning,
			ID:       id,
			File:     g.records[id].Path,
			Message: fmt.Sprintf("dependency chain depth %d exceeds %d, consider flattening: %s",
				len(chain)-1, maxDepth, strings.Join(chain, " → ")),
		})
	}
	return findings
}

// BrokenLinks returns references to missing documents that deferred does not
// excuse.
func (g *Graph) BrokenLinks(deferred func(id string) bool) []Link {
	var out []Link
	for _, l := range g.dangling {
		if deferred != nil && deferred(l.To) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// CheckLinks reports each broken link by source and missing target.
func (g *Graph) CheckLinks(deferred func(id string) bool) []result.Finding {
	var findings []result.Finding
	for _, l := range g.BrokenLinks(deferred) {
		findings = append(findings, result.Finding{
			Category: result.CatBrokenLink,
			Severity: result.SeverityError,
			ID:       l.From,
			File:     g.records[l.From].Path,
			Message:  fmt.Sprintf("%s references missing document %s", l.Kind, l.To),
		})
	}
	return findings
}

// Orphans returns documents nothing references, excluding types that are
// allowed to stand alone and log documents, which are leaves by nature.
func (g *Graph) Orphans() []string {
	var out []string
	for _, id := range g.IDs() {
		dt := g.records[id].Type
		if dt == taxonomy.TypeLog || g.tax.AllowsOrphan(dt) {
			continue
		}
		if len(g.reverse[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// CheckOrphans reports each orphan.
func (g *Graph) CheckOrphans() []result.Finding {
	var findings []result.Finding
	for _, id := range g.Orphans() {
		rec := g.records[id]
		findings = append(findings, result.Finding{
			Category: result.CatOrphan,
			Severity: result.SeverityWarning,
			ID:       id,
			File:     rec.Path,
			Message:  fmt.Sprintf("%s document has no dependents", rec.Type),
		})
	}
	return findings
}

// Connectivity follows edges backward from every foundation (kernel) document
// and returns how many non-foundation documents were reached, how many exist,
// and the reached percentage. An empty denominator counts as fully connected.
func (g *Graph) Connectivity() (reached, total int, pct float64) {
	visited := make(map[string]bool)
	var queue []string
	for _, id := range g.IDs() {
		if g.tax.IsFoundation(g.records[id].Type) {
			visited[id] = true
			queue = append(queue, id)
		} else {
			total++
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dependent := range g.reverse[cur] {
			if visited[dependent] {
				continue
			}
			visited[dependent] = true
			queue = append(queue, dependent)
			if !g.tax.IsFoundation(g.records[dependent].Type) {
				reached++
			}
		}
	}
	if total == 0 {
		return 0, 0, 100.0
	}
	return reached, total, float64(reached) * 100 / float64(total)
}

// chains memoizes, per id, the longest depends_on path starting there.
func (g *Graph) chains() map[string][]string {
	memo := make(map[string][]string, len(g.records))
	onStack := make(map[string]bool)

	var longest func(id string) []string
	longest = func(id string) []string {
		if c, ok := memo[id]; ok {
			return c
		}
		onStack[id] = true
		var best []string
		for _, dep := range g.sortedNeighbors(id, EdgeDependsOn) {
			if onStack[dep] {
				continue
			}
			if c := longest(dep); len(c) > len(best) {
				best = c
			}
		}
		onStack[id] = false
		chain := append([]string{id}, best...)
		memo[id] = chain
		return chain
	}
	for _, id := range g.IDs() {
		longest(id)
	}
	return memo
}

func (g *Graph) hasDependent(id string, kind EdgeKind) bool {
	for _, k := range g.reverse[id] {
		if k == kind {
			return true
		}
	}
	return false
}

func (g *Graph) sortedTargets(id string) []string {
	out := g.sortedNeighbors(id, EdgeDependsOn)
	return append(out, g.sortedNeighbors(id, EdgeImpacts)...)
}
