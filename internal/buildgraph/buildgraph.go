// Package buildgraph holds the read-only module tree handed over by a build
// tool, and the TreeIndex used to recognise other modules' package outputs
// on a classpath.
//
// Modules are constructed by a loader (see internal/source) and never
// mutated afterwards; everything in this repository only reads them.
package buildgraph

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Separator joins identity segments ("core:util").
const Separator = ":"

// Module is one node of the build tree.
type Module struct {
	// Name is the hierarchical identity, e.g. "core:util".
	Name string
	// BaseDir is the absolute module directory.
	BaseDir string
	// BuildFile is the module's own build definition, if it has one.
	BuildFile string

	Parent   *Module
	Children []*Module

	MainSources []string
	// TestSources are grouped by the source set that declared them.
	TestSources [][]string
	Resources   []ResourceRoot

	CompileTarget     string
	TestCompileTarget string

	// TestClasspath is the resolved test-compile classpath. It is a superset
	// of the compile classpath; duplicates are allowed.
	TestClasspath []string

	// Packages lists the module's build artifacts. A module is packageable
	// iff this is non-empty.
	Packages []string
}

// ResourceRoot is a declared resource directory.
type ResourceRoot struct {
	Path string
	Test bool
}

// ID returns the identity with separators replaced by dashes ("core-util"),
// which is how descriptor files and module references are named.
func (m *Module) ID() string {
	return strings.ReplaceAll(m.Name, Separator, "-")
}

// Packageable reports whether the module declares at least one package.
func (m *Module) Packageable() bool { return len(m.Packages) > 0 }

// HasMainSources reports whether the module compiles main sources.
func (m *Module) HasMainSources() bool { return m.CompileTarget != "" }

// HasTestSources reports whether the module compiles test sources.
func (m *Module) HasTestSources() bool { return m.TestCompileTarget != "" }

// Segments returns the identity split on the separator.
func (m *Module) Segments() []string { return strings.Split(m.Name, Separator) }

// AddChild appends c to m's children and sets its parent link.
func (m *Module) AddChild(c *Module) {
	c.Parent = m
	m.Children = append(m.Children, c)
}

// Tree is one build tree plus the global inputs a generation run consumes.
type Tree struct {
	Root *Module
	// Repository is the local artifact repository root.
	Repository string
	// BuildFile is the top-level build definition.
	BuildFile string
	// Inputs are the build input files whose timestamps govern staleness.
	Inputs []string
}

// Walk visits every module in pre-order (parent before children, children in
// declaration order). Returning an error stops the walk.
func (t *Tree) Walk(fn func(*Module) error) error {
	return walk(t.Root, fn)
}

func walk(m *Module, fn func(*Module) error) error {
	if m == nil {
		return nil
	}
	if err := fn(m); err != nil {
		return err
	}
	for _, c := range m.Children {
		if err := walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// Modules returns every module in traversal order.
func (t *Tree) Modules() []*Module {
	var out []*Module
	_ = t.Walk(func(m *Module) error {
		out = append(out, m)
		return nil
	})
	return out
}

// Descendants returns every module below the root in traversal order.
func (t *Tree) Descendants() []*Module {
	all := t.Modules()
	if len(all) == 0 {
		return nil
	}
	return all[1:]
}

// Find returns the module with the given identity.
func (t *Tree) Find(name string) (*Module, error) {
	for _, m := range t.Modules() {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("module %q not found", name)
}

// ModuleInputs returns the trigger set for one module's descriptor: the
// global inputs, the top-level build file and the module's own build file.
func (t *Tree) ModuleInputs(m *Module) []string {
	out := make([]string, 0, len(t.Inputs)+2)
	out = append(out, t.Inputs...)
	out = appendFile(out, t.BuildFile)
	out = appendFile(out, m.BuildFile)
	return out
}

// AllInputs returns the trigger set for the aggregate descriptor: a superset
// of every module's trigger set.
func (t *Tree) AllInputs() []string {
	out := append([]string(nil), t.Inputs...)
	out = appendFile(out, t.BuildFile)
	for _, m := range t.Modules() {
		out = appendFile(out, m.BuildFile)
	}
	return out
}

func appendFile(files []string, f string) []string {
	if f == "" {
		return files
	}
	for _, existing := range files {
		if filepath.Clean(existing) == filepath.Clean(f) {
			return files
		}
	}
	return append(files, f)
}
