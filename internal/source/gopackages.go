package source

// The "go" source views a Go main module as a build tree.
//
// Every package directory becomes a module named after its directory
// segments ("app:internal:store"). Directories between packages become
// grouping modules without packages. A package's output is its import path,
// so in-module imports classify as project references; imports from the
// module cache classify as repository artifacts.

import (
	"fmt"
	"go/build"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"ideagen/internal/buildgraph"
)

// GoPackages implements Source for directories holding a go.mod.
type GoPackages struct{}

func (GoPackages) Name() string { return "go" }

func (GoPackages) Detect(dir string) bool {
	return fileExists(filepath.Join(dir, "go.mod"))
}

func (GoPackages) Load(dir string) (*buildgraph.Tree, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedImports |
			packages.NeedDeps |
			packages.NeedModule,
		Dir: abs,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("go: load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("go: no packages found in %s", abs)
	}
	modulePath := ""
	for _, p := range pkgs {
		if p.Module != nil && p.Module.Main {
			modulePath = p.Module.Path
			break
		}
	}
	if modulePath == "" {
		return nil, fmt.Errorf("go: %s is not inside a main module", abs)
	}
	return BuildGoTree(abs, modulePath, pkgs, ModuleCache())
}

// ModuleCache returns GOMODCACHE, falling back to GOPATH/pkg/mod.
func ModuleCache() string {
	if v := os.Getenv("GOMODCACHE"); v != "" {
		return v
	}
	gopath := os.Getenv("GOPATH")
	if gopath == "" {
		gopath = build.Default.GOPATH
	}
	if i := strings.IndexRune(gopath, filepath.ListSeparator); i >= 0 {
		gopath = gopath[:i]
	}
	return filepath.Join(gopath, "pkg", "mod")
}

// BuildGoTree turns loaded packages into a tree rooted at root. Only
// packages of the main module under root become modules.
func BuildGoTree(root, modulePath string, pkgs []*packages.Package, repository string) (*buildgraph.Tree, error) {
	local := make([]*packages.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if p.Module == nil || !p.Module.Main || p.Dir == "" {
			continue
		}
		local = append(local, p)
	}
	sort.Slice(local, func(i, j int) bool { return local[i].Dir < local[j].Dir })

	rootModule := &buildgraph.Module{
		Name:      rootName(modulePath),
		BaseDir:   root,
		BuildFile: filepath.Join(root, "go.mod"),
	}
	nodes := map[string]*buildgraph.Module{".": rootModule}

	inTree := make(map[string]string, len(local))
	for _, p := range local {
		rel, err := filepath.Rel(root, p.Dir)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		inTree[p.PkgPath] = filepath.ToSlash(rel)
	}

	for _, p := range local {
		rel, ok := inTree[p.PkgPath]
		if !ok {
			continue
		}
		m := ensureNode(nodes, rootModule, rel)
		m.MainSources = []string{p.Dir}
		m.Packages = []string{p.PkgPath}
		if hasTestFiles(p.Dir) {
			m.TestSources = [][]string{{p.Dir}}
		}
		m.TestClasspath = goClasspath(p, inTree)
	}

	return &buildgraph.Tree{
		Root:       rootModule,
		Repository: repository,
		BuildFile:  rootModule.BuildFile,
		Inputs:     []string{filepath.Join(root, "go.sum")},
	}, nil
}

// rootName is the last module path element, skipping a major version
// suffix: "example.com/app/v2" is "app".
func rootName(modulePath string) string {
	dir, last := path.Split(modulePath)
	if dir != "" && isMajorVersion(last) {
		return path.Base(strings.TrimSuffix(dir, "/"))
	}
	return last
}

func isMajorVersion(elem string) bool {
	if len(elem) < 2 || elem[0] != 'v' || elem[1] == '0' {
		return false
	}
	for _, c := range elem[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return elem != "v1"
}

// ensureNode returns the module for rel ("a/b"), creating it and any
// missing ancestors.
func ensureNode(nodes map[string]*buildgraph.Module, root *buildgraph.Module, rel string) *buildgraph.Module {
	if m, ok := nodes[rel]; ok {
		return m
	}
	parentRel := path.Dir(rel)
	parent := ensureNode(nodes, root, parentRel)
	m := &buildgraph.Module{
		Name:    root.Name + buildgraph.Separator + strings.ReplaceAll(rel, "/", buildgraph.Separator),
		BaseDir: filepath.Join(root.BaseDir, filepath.FromSlash(rel)),
	}
	parent.AddChild(m)
	nodes[rel] = m
	return m
}

// goClasspath lists p's transitive imports in a fixed depth-first order.
// Packages in the tree appear as import paths, other modules' packages as
// directories. Standard library packages are left to the SDK, and main-module
// packages outside the tree are traversed but not listed.
func goClasspath(p *packages.Package, inTree map[string]string) []string {
	var out []string
	seen := make(map[string]bool)
	var visit func(*packages.Package)
	visit = func(pkg *packages.Package) {
		keys := make([]string, 0, len(pkg.Imports))
		for k := range pkg.Imports {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			dep := pkg.Imports[k]
			if dep == nil || seen[dep.PkgPath] {
				continue
			}
			seen[dep.PkgPath] = true
			if dep.Module == nil {
				continue
			}
			if _, ok := inTree[dep.PkgPath]; ok {
				out = append(out, dep.PkgPath)
			} else if !dep.Module.Main && dep.Dir != "" {
				out = append(out, dep.Dir)
			}
			visit(dep)
		}
	}
	visit(p)
	return out
}

func hasTestFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "_test.go") {
			return true
		}
	}
	return false
}
