package report

import (
	"fmt"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/ontology"
	"github.com/papapumpkin/onto/internal/result"
)

// Options tunes Validate.
type Options struct {
	MaxDepth int
	// Strict turns any error-severity finding into a fatal result.
	Strict bool
	// Deferred excuses missing link targets that were consolidated or
	// archived.
	Deferred func(id string) bool
}

// Validate combines scan findings, every graph pass and the supplied
// staleness findings into one result. Duplicate ids are fatal; everything
// else is reported together.
func Validate(c *corpus.Corpus, g *ontology.Graph, stale []result.Finding, opts Options) result.Result {
	findings := make([]result.Finding, 0, len(c.Findings)+len(stale))
	findings = append(findings, c.Findings...)
	findings = append(findings, g.Validate(ontology.Options{MaxDepth: opts.MaxDepth, Deferred: opts.Deferred})...)
	findings = append(findings, stale...)
	result.Sort(findings)

	if err := c.RequireUnique(); err != nil {
		return result.Fatal(err.Error(), findings)
	}
	res := result.New(fmt.Sprintf("validated %d documents", len(c.Records)), findings)
	if opts.Strict && res.Errors() > 0 {
		return result.Fatal(fmt.Sprintf("%d error findings in strict mode", res.Errors()), findings)
	}
	return res
}

// Deferred returns a predicate matching any id in the given sets, typically
// the ledger slugs and the ids found under the archive directory.
func Deferred(sets ...[]string) func(id string) bool {
	known := make(map[string]bool)
	for _, set := range sets {
		for _, id := range set {
			known[id] = true
		}
	}
	return func(id string) bool { return known[id] }
}
