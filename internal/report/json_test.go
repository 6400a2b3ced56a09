package report

import (
	"encoding/json"
	"testing"

	"github.com/papapumpkin/onto/internal/ontology"
	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

func TestHealthJSON(t *testing.T) {
	t.Parallel()
	h := Health{
		Total:        3,
		Types:        []TypeCount{{Type: taxonomy.TypeKernel, Count: 1}, {Type: taxonomy.TypeAtom, Count: 2}},
		Connectivity: 66.7,
		Foundation:   "kernel",
		Broken:       []ontology.Link{{From: "a", To: "ghost", Kind: ontology.EdgeImpacts}},
		Cycles:       [][]string{{"x", "y", "x"}},
	}
	data, err := HealthJSON(h)
	if err != nil {
		t.Fatalf("HealthJSON: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, data)
	}
	if orphans, ok := got["orphans"].([]any); !ok || len(orphans) != 0 {
		t.Errorf("orphans = %v, want []", got["orphans"])
	}
	if got["healthy"] != false {
		t.Errorf("healthy = %v, want false", got["healthy"])
	}
	types := got["types"].(map[string]any)
	if types["atom"] != float64(2) {
		t.Errorf("types = %v", types)
	}
	broken := got["broken_links"].([]any)[0].(map[string]any)
	if broken["kind"] != "impacts" || broken["to"] != "ghost" {
		t.Errorf("broken link = %v", broken)
	}
	if c := got["cycles"].([]any)[0]; c != "x → y → x" {
		t.Errorf("cycle = %v", c)
	}
}

func TestResultJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		res      result.Result
		findings int
		errors   float64
	}{
		{"no findings renders empty array", result.New("validated 2 documents", nil), 0, 0},
		{"findings with errors", result.New("validated 2 documents", []result.Finding{
			{Category: result.CatOrphan, Severity: result.SeverityWarning, ID: "a", Message: "orphan"},
			{Category: result.CatBrokenLink, Severity: result.SeverityError, ID: "b", Message: "broken"},
		}), 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := ResultJSON(tt.res)
			if err != nil {
				t.Fatalf("ResultJSON: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, data)
			}
			findings, ok := got["findings"].([]any)
			if !ok || len(findings) != tt.findings {
				t.Errorf("findings = %v, want %d entries", got["findings"], tt.findings)
			}
			if got["errors"] != tt.errors {
				t.Errorf("errors = %v, want %v", got["errors"], tt.errors)
			}
			if got["status"] != string(tt.res.Status) {
				t.Errorf("status = %v, want %s", got["status"], tt.res.Status)
			}
		})
	}
}
