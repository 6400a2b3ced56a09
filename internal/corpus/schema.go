package corpus

import (
	"fmt"

	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
)

// InferSchema returns the schema version a document follows. An explicit
// schema_version wins; otherwise the richest field present decides.
func InferSchema(meta *frontmatter.Metadata) string {
	switch {
	case meta.SchemaVersion != "":
		return meta.SchemaVersion
	case meta.Has("curation_level"):
		return "3.0"
	case meta.Has("status"):
		return "2.2"
	case meta.Has("type") || meta.Has("doc_type"):
		return "2.0"
	}
	return "1.0"
}

// checkSchema resolves the document's schema version and reports required
// fields it lacks. Unknown versions are checked against the newest table.
func checkSchema(tax *taxonomy.Taxonomy, meta *frontmatter.Metadata) (string, []result.Finding) {
	version := InferSchema(meta)
	var findings []result.Finding

	schema, ok := tax.Schema(version)
	if !ok {
		schema = tax.LatestSchema()
		findings = append(findings, result.Finding{
			Category: result.CatSchemaVersion,
			Severity: result.SeverityWarning,
			Message:  fmt.Sprintf("unknown schema_version %q, checking against %s", version, schema.Version),
		})
	}

	for _, field := range schema.Required {
		present := meta.Has(field)
		if field == "type" {
			present = present || meta.Has("doc_type")
		}
		if !present {
			findings = append(findings, result.Finding{
				Category: result.CatMissingField,
				Severity: result.SeverityWarning,
				Message:  fmt.Sprintf("schema %s requires field %s", schema.Version, field),
			})
		}
	}
	return version, findings
}
