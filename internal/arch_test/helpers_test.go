package arch_test

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const modulePath = "github.com/papapumpkin/onto"

// sourceFile is one parsed Go file of the module.
type sourceFile struct {
	Rel  string // slash-separated, relative to the module root
	Test bool
	AST  *ast.File
}

// goPackage groups the parsed files of one directory. Name is the directory
// name under internal/, or "cmd".
type goPackage struct {
	Name  string
	Dir   string
	Files []sourceFile
	Fset  *token.FileSet
}

// Sources returns the non-test files.
func (p *goPackage) Sources() []sourceFile {
	var out []sourceFile
	for _, f := range p.Files {
		if !f.Test {
			out = append(out, f)
		}
	}
	return out
}

// Imports returns the deduplicated import paths of the non-test files.
func (p *goPackage) Imports() []string {
	seen := make(map[string]bool)
	for _, f := range p.Sources() {
		for _, imp := range f.AST.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err == nil {
				seen[path] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// InternalImports returns the internal package names p imports.
func (p *goPackage) InternalImports() []string {
	prefix := modulePath + "/internal/"
	var out []string
	for _, path := range p.Imports() {
		if rel, ok := strings.CutPrefix(path, prefix); ok {
			name, _, _ := strings.Cut(rel, "/")
			out = append(out, name)
		}
	}
	return out
}

// Pos renders a node position as rel:line.
func (p *goPackage) Pos(f sourceFile, n ast.Node) string {
	return fmt.Sprintf("%s:%d", f.Rel, p.Fset.Position(n.Pos()).Line)
}

type moduleTree struct {
	Root     string
	Packages []*goPackage
}

// Internal returns the packages under internal/.
func (m *moduleTree) Internal() []*goPackage {
	var out []*goPackage
	for _, p := range m.Packages {
		if p.Name != "cmd" {
			out = append(out, p)
		}
	}
	return out
}

// Package returns the named package, or nil.
func (m *moduleTree) Package(name string) *goPackage {
	for _, p := range m.Packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

var (
	treeOnce sync.Once
	tree     *moduleTree
	treeErr  error
)

// loadTree parses every package under internal/ plus cmd/ once per test
// binary. The architecture tests themselves are left out.
func loadTree(t *testing.T) *moduleTree {
	t.Helper()
	treeOnce.Do(func() { tree, treeErr = parseTree() })
	if treeErr != nil {
		t.Fatalf("loading module tree: %v", treeErr)
	}
	return tree
}

func parseTree() (*moduleTree, error) {
	root, err := findRoot()
	if err != nil {
		return nil, err
	}
	m := &moduleTree{Root: root}

	entries, err := os.ReadDir(filepath.Join(root, "internal"))
	if err != nil {
		return nil, err
	}
	dirs := []string{filepath.Join(root, "cmd")}
	for _, e := range entries {
		if e.IsDir() && e.Name() != "arch_test" {
			dirs = append(dirs, filepath.Join(root, "internal", e.Name()))
		}
	}
	for _, dir := range dirs {
		pkg, err := parsePackage(root, dir)
		if err != nil {
			return nil, err
		}
		if len(pkg.Files) > 0 {
			m.Packages = append(m.Packages, pkg)
		}
	}
	sort.Slice(m.Packages, func(i, j int) bool { return m.Packages[i].Name < m.Packages[j].Name })
	return m, nil
}

func parsePackage(root, dir string) (*goPackage, error) {
	pkg := &goPackage{Name: filepath.Base(dir), Dir: dir, Fset: token.NewFileSet()}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		node, err := parser.ParseFile(pkg.Fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		pkg.Files = append(pkg.Files, sourceFile{
			Rel:  filepath.ToSlash(rel),
			Test: strings.HasSuffix(e.Name(), "_test.go"),
			AST:  node,
		})
	}
	return pkg, nil
}

func findRoot() (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	for dir := filepath.Dir(thisFile); ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		if filepath.Dir(dir) == dir {
			return "", fmt.Errorf("no go.mod above %s", thisFile)
		}
	}
}

func TestLoadTree(t *testing.T) {
	t.Parallel()
	m := loadTree(t)

	for _, name := range []string{"cmd", "corpus", "ontology", "lifecycle", "consolidate", "ledger"} {
		if m.Package(name) == nil {
			t.Errorf("package %s not loaded", name)
		}
	}
	if m.Package("arch_test") != nil {
		t.Error("arch_test should not be loaded")
	}
	ontology := m.Package("ontology")
	if ontology == nil {
		t.FailNow()
	}
	if imports := ontology.InternalImports(); !contains(imports, "corpus") {
		t.Errorf("ontology internal imports = %v, want corpus among them", imports)
	}
	for _, f := range ontology.Sources() {
		if f.Test {
			t.Errorf("Sources returned test file %s", f.Rel)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
