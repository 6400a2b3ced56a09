package report

import (
	"errors"
	"fmt"

	"github.com/papapumpkin/onto/internal/ontology"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// Query errors.
var (
	// ErrUnknownDocument indicates a relation query named an id not in the corpus.
	ErrUnknownDocument = errors.New("unknown document")
	// ErrUnknownType indicates an id listing named a type not in the taxonomy.
	ErrUnknownType = errors.New("unknown document type")
)

// Direction selects which side of a relation a query follows.
type Direction int

const (
	// Dependencies follows references outward from a document.
	Dependencies Direction = iota
	// Dependents follows references inward to a document.
	Dependents
)

// Querier answers id and relation queries over one graph.
type Querier struct {
	graph *ontology.Graph
	tax   *taxonomy.Taxonomy
}

// NewQuerier returns a Querier.
func NewQuerier(g *ontology.Graph, tax *taxonomy.Taxonomy) *Querier {
	return &Querier{graph: g, tax: tax}
}

// IDs lists every id of the named type, sorted.
func (q *Querier) IDs(typeName string) ([]string, error) {
	dt := q.tax.ParseType(typeName)
	if dt == taxonomy.TypeUnknown && typeName != string(taxonomy.TypeUnknown) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	return q.graph.IDsOfType(dt), nil
}

// Related lists the dependencies or dependents of id, transitively when
// requested.
func (q *Querier) Related(id string, dir Direction, transitive bool) ([]string, error) {
	if q.graph.Record(id) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	if dir == Dependents {
		return q.graph.Dependents(id, transitive), nil
	}
	return q.graph.Dependencies(id, transitive), nil
}
