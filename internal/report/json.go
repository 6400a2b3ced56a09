package report

import (
	"encoding/json"
	"fmt"

	"github.com/papapumpkin/onto/internal/ontology"
	"github.com/papapumpkin/onto/internal/result"
)

// jsonHealth is the machine-readable health summary.
type jsonHealth struct {
	Total        int            `json:"total"`
	Types        map[string]int `json:"types"`
	Connectivity float64        `json:"connectivity_percent"`
	Reached      int            `json:"reached"`
	Reachable    int            `json:"reachable"`
	Foundation   string         `json:"foundation"`
	Orphans      []string       `json:"orphans"`
	Broken       []jsonLink     `json:"broken_links"`
	Cycles       []string       `json:"cycles"`
	Healthy      bool           `json:"healthy"`
}

type jsonLink struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

// HealthJSON renders h as indented JSON for scripts and CI.
func HealthJSON(h Health) ([]byte, error) {
	out := jsonHealth{
		Total:        h.Total,
		Types:        make(map[string]int, len(h.Types)),
		Connectivity: h.Connectivity,
		Reached:      h.Reached,
		Reachable:    h.Reachable,
		Foundation:   h.Foundation,
		Orphans:      emptyIfNil(h.Orphans),
		Broken:       make([]jsonLink, len(h.Broken)),
		Cycles:       make([]string, len(h.Cycles)),
		Healthy:      h.Healthy(),
	}
	for _, tc := range h.Types {
		out.Types[string(tc.Type)] = tc.Count
	}
	for i, l := range h.Broken {
		out.Broken[i] = jsonLink{From: l.From, To: l.To, Kind: l.Kind.String()}
	}
	for i, c := range h.Cycles {
		out.Cycles[i] = ontology.FormatCycle(c)
	}
	return marshal(out)
}

// ResultJSON renders res as indented JSON. Findings are always an array.
func ResultJSON(res result.Result) ([]byte, error) {
	if res.Findings == nil {
		res.Findings = []result.Finding{}
	}
	return marshal(struct {
		result.Result
		Findings []result.Finding `json:"findings"`
		Errors   int              `json:"errors"`
	}{Result: res, Findings: res.Findings, Errors: res.Errors()})
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON report: %w", err)
	}
	return append(data, '\n'), nil
}

// emptyIfNil keeps JSON arrays as [] instead of null.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
