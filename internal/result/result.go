// Package result defines the structured outcome every core operation returns.
// A Result distinguishes success, success-with-warnings and fatal error, and
// carries both a human-readable message and machine-readable findings so the
// command layer can map it onto exit codes without re-deriving anything.
package result

import (
	"fmt"
	"sort"
)

// Status classifies the overall outcome of an operation.
type Status string

const (
	// StatusSuccess means the operation completed with no findings.
	StatusSuccess Status = "success"
	// StatusWarnings means the operation completed but reported findings.
	StatusWarnings Status = "success-with-warnings"
	// StatusFatal means the operation aborted; no mutation was performed
	// unless the message says otherwise.
	StatusFatal Status = "fatal-error"
)

// Severity ranks a single finding.
type Severity string

const (
	// SeverityWarning findings never fail a command on their own.
	SeverityWarning Severity = "warning"
	// SeverityError findings describe a real defect in the corpus.
	SeverityError Severity = "error"
)

// Category classifies a finding for programmatic handling.
type Category string

// Finding categories.
const (
	CatParseError         Category = "parse_error"
	CatDuplicateID        Category = "duplicate_id"
	CatMissingField       Category = "missing_field"
	CatInvalidStatus      Category = "invalid_status"
	CatUnknownType        Category = "unknown_type"
	CatSchemaVersion      Category = "schema_version"
	CatHierarchyViolation Category = "hierarchy_violation"
	CatCycle              Category = "cycle"
	CatDepthExceeded      Category = "depth_exceeded"
	CatBrokenLink         Category = "broken_link"
	CatOrphan             Category = "orphan"
	CatStale              Category = "stale"
	CatLifecycle          Category = "lifecycle"
	CatLedger             Category = "ledger"
	CatScan               Category = "scan"
)

// Finding is one defect or observation produced by a validation pass.
type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	ID       string   `json:"id,omitempty"`
	File     string   `json:"file,omitempty"`
	Message  string   `json:"message"`
}

// String renders the finding on one line, prefixed with its source context.
func (f Finding) String() string {
	switch {
	case f.File != "" && f.ID != "":
		return fmt.Sprintf("%s: %s: %s", f.File, f.ID, f.Message)
	case f.File != "":
		return f.File + ": " + f.Message
	case f.ID != "":
		return f.ID + ": " + f.Message
	}
	return f.Message
}

// Result is the outcome of a core operation.
type Result struct {
	Status   Status    `json:"status"`
	Message  string    `json:"message"`
	Findings []Finding `json:"findings,omitempty"`
}

// New builds a Result whose status is derived from the findings: success when
// there are none, success-with-warnings otherwise.
func New(message string, findings []Finding) Result {
	status := StatusSuccess
	if len(findings) > 0 {
		status = StatusWarnings
	}
	return Result{Status: status, Message: message, Findings: findings}
}

// Fatal builds a fatal Result.
func Fatal(message string, findings []Finding) Result {
	return Result{Status: StatusFatal, Message: message, Findings: findings}
}

// IsFatal reports whether the result should make the command exit non-zero.
func (r Result) IsFatal() bool {
	return r.Status == StatusFatal
}

// Count returns how many findings belong to the given category.
func (r Result) Count(cat Category) int {
	n := 0
	for _, f := range r.Findings {
		if f.Category == cat {
			n++
		}
	}
	return n
}

// Errors returns the number of error-severity findings.
func (r Result) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Sort orders findings by category, then id, then message, so reports are
// stable across runs regardless of map iteration order.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Message < b.Message
	})
}
