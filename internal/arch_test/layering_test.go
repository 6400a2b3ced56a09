package arch_test

import "testing"

// layers orders the internal packages from leaf utilities (0) up to
// presentation (5). A package may import only packages on its own layer or
// below, and never another package on its own layer.
var layers = map[string]int{
	"config":      0,
	"frontmatter": 0,
	"fsio":        0,
	"ledger":      0,
	"logging":     0,
	"result":      0,
	"taxonomy":    0,
	"telemetry":   0,
	"watch":       0,

	"corpus": 1,

	"ontology": 2,

	"consolidate": 3,
	"lifecycle":   3,
	"report":      3,

	"metrics": 4,

	"ui": 5,
}

func TestDependencyLayering(t *testing.T) {
	t.Parallel()

	for _, pkg := range loadTree(t).Internal() {
		from, ok := layers[pkg.Name]
		if !ok {
			t.Errorf("package %s has no layer; add it to the layers map", pkg.Name)
			continue
		}
		for _, imp := range pkg.InternalImports() {
			to, ok := layers[imp]
			switch {
			case !ok:
				t.Errorf("%s imports %s, which has no layer", pkg.Name, imp)
			case to > from:
				t.Errorf("layer violation: %s (layer %d) imports %s (layer %d)", pkg.Name, from, imp, to)
			case to == from:
				t.Errorf("%s imports %s on the same layer %d; move one of them", pkg.Name, imp, to)
			}
		}
	}
}

// TestCommandsStayOutOfInternal keeps the cobra layer a leaf: nothing under
// internal/ may reach back into cmd.
func TestCommandsStayOutOfInternal(t *testing.T) {
	t.Parallel()

	for _, pkg := range loadTree(t).Internal() {
		for _, imp := range pkg.Imports() {
			if imp == modulePath+"/cmd" {
				t.Errorf("%s imports the cmd package", pkg.Name)
			}
		}
	}
}

func TestLayersListOnlyExistingPackages(t *testing.T) {
	t.Parallel()

	m := loadTree(t)
	for name := range layers {
		if m.Package(name) == nil {
			t.Errorf("layers lists %s, which no longer exists", name)
		}
	}
}
