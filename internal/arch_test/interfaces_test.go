package arch_test

import (
	"go/ast"
	"sort"
	"testing"
)

// ifaceDecl is one interface type declared in a package.
type ifaceDecl struct {
	Name    string
	Methods []string
	Where   string
}

func interfacesOf(pkg *goPackage) []ifaceDecl {
	var out []ifaceDecl
	for _, f := range pkg.Sources() {
		ast.Inspect(f.AST, func(n ast.Node) bool {
			ts, ok := n.(*ast.TypeSpec)
			if !ok {
				return true
			}
			it, ok := ts.Type.(*ast.InterfaceType)
			if !ok {
				return false
			}
			d := ifaceDecl{Name: ts.Name.Name, Where: pkg.Pos(f, ts)}
			for _, m := range it.Methods.List {
				for _, name := range m.Names {
					d.Methods = append(d.Methods, name.Name)
				}
			}
			out = append(out, d)
			return false
		})
	}
	return out
}

// methodSets maps each receiver type of pkg to its method names.
func methodSets(pkg *goPackage) map[string][]string {
	sets := make(map[string][]string)
	for _, f := range pkg.Sources() {
		for _, decl := range f.AST.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 {
				continue
			}
			expr := fd.Recv.List[0].Type
			if star, ok := expr.(*ast.StarExpr); ok {
				expr = star.X
			}
			if id, ok := expr.(*ast.Ident); ok {
				sets[id.Name] = append(sets[id.Name], fd.Name.Name)
			}
		}
	}
	return sets
}

// implementers returns the types in sets whose methods cover want, by name.
func implementers(want []string, sets map[string][]string) []string {
	var out []string
	for typ, have := range sets {
		covered := true
		for _, m := range want {
			if !contains(have, m) {
				covered = false
				break
			}
		}
		if covered {
			out = append(out, typ)
		}
	}
	sort.Strings(out)
	return out
}

// TestInterfacesLiveWithConsumers keeps each interface in the package that
// calls through it. A type in the same package satisfying it means the
// interface sits with its implementation instead.
func TestInterfacesLiveWithConsumers(t *testing.T) {
	t.Parallel()

	for _, pkg := range loadTree(t).Packages {
		sets := methodSets(pkg)
		for _, iface := range interfacesOf(pkg) {
			if len(iface.Methods) == 0 {
				continue
			}
			if impl := implementers(iface.Methods, sets); len(impl) > 0 {
				t.Errorf("%s: %s.%s is implemented in its own package by %v; declare it where it is consumed",
					iface.Where, pkg.Name, iface.Name, impl)
			}
		}
	}
}

// TestStoreInterfacesHaveAnImplementation requires every consumer-side file
// interface to be satisfied by some type elsewhere in internal/, normally
// fsio.Disk.
func TestStoreInterfacesHaveAnImplementation(t *testing.T) {
	t.Parallel()

	m := loadTree(t)
	for _, pkg := range m.Internal() {
		for _, iface := range interfacesOf(pkg) {
			if len(iface.Methods) == 0 {
				continue
			}
			found := false
			for _, other := range m.Internal() {
				if other != pkg && len(implementers(iface.Methods, methodSets(other))) > 0 {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("%s: no internal type implements %s.%s", iface.Where, pkg.Name, iface.Name)
			}
		}
	}
}

func TestFileInterfacesMatchDisk(t *testing.T) {
	t.Parallel()

	m := loadTree(t)
	fsio := m.Package("fsio")
	if fsio == nil {
		t.Fatal("fsio not loaded")
	}
	disk := map[string][]string{"Disk": methodSets(fsio)["Disk"]}
	for _, want := range []struct{ pkg, iface string }{
		{"corpus", "Source"},
		{"lifecycle", "Store"},
		{"consolidate", "Store"},
	} {
		pkg := m.Package(want.pkg)
		if pkg == nil {
			t.Errorf("package %s not loaded", want.pkg)
			continue
		}
		var decl *ifaceDecl
		for _, d := range interfacesOf(pkg) {
			if d.Name == want.iface {
				d := d
				decl = &d
			}
		}
		if decl == nil {
			t.Errorf("%s.%s not declared", want.pkg, want.iface)
			continue
		}
		if impl := implementers(decl.Methods, disk); len(impl) != 1 {
			t.Errorf("fsio.Disk does not cover %s.%s methods %v", want.pkg, want.iface, decl.Methods)
		}
	}
}
