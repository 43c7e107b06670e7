// Package content assembles the content-root block of a module descriptor:
// source, test, resource and excluded folders.
package content

import (
	"fmt"
	"sort"

	"ideagen/internal/buildgraph"
	"ideagen/internal/pathresolve"
)

// Role tags what a content root is for.
type Role int

const (
	MainSource Role = iota
	TestSource
	Resource
	Excluded
)

func (r Role) String() string {
	switch r {
	case MainSource:
		return "main-source"
	case TestSource:
		return "test-source"
	case Resource:
		return "resource"
	case Excluded:
		return "excluded"
	}
	return "unknown"
}

// Root is one folder entry.
type Root struct {
	URL  string
	Role Role
	// Test is the isTestSource flag. Always true for TestSource, false for
	// MainSource, and taken from the declaration for Resource.
	Test bool
}

// Model is the content-root set of one module, in emission order.
type Model struct {
	// URL is the content root itself, the module directory.
	URL      string
	Sources  []Root
	Excludes []Root
}

// Build derives the content model for m. generated are the classpath
// entries the classifier attributed to m's own directory; they are indexed
// as main sources.
func Build(m *buildgraph.Module, generated []string) (*Model, error) {
	model := &Model{URL: pathresolve.ModuleDirURL}

	if len(m.MainSources) > 0 {
		paths := make([]string, 0, len(m.MainSources)+len(generated))
		paths = append(paths, m.MainSources...)
		paths = append(paths, generated...)
		rels, err := relativeSorted(paths, m.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("main sources of %s: %w", m.Name, err)
		}
		for _, rel := range rels {
			model.Sources = append(model.Sources, Root{URL: moduleURL(rel), Role: MainSource})
		}
	}

	for _, group := range m.TestSources {
		rels, err := relativeSorted(group, m.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("test sources of %s: %w", m.Name, err)
		}
		for _, rel := range rels {
			model.Sources = append(model.Sources, Root{URL: moduleURL(rel), Role: TestSource, Test: true})
		}
	}

	// Resource roots may sit outside the module tree, so they keep their
	// absolute location.
	for _, res := range m.Resources {
		model.Sources = append(model.Sources, Root{URL: pathresolve.FileURL(res.Path), Role: Resource, Test: res.Test})
	}

	if m.CompileTarget != "" {
		url, err := pathresolve.ModuleURL(m.CompileTarget, m.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("compile output of %s: %w", m.Name, err)
		}
		model.Excludes = append(model.Excludes, Root{URL: url, Role: Excluded})
	}
	return model, nil
}

// Roots returns every root, sources first.
func (m *Model) Roots() []Root {
	out := make([]Root, 0, len(m.Sources)+len(m.Excludes))
	out = append(out, m.Sources...)
	return append(out, m.Excludes...)
}

func relativeSorted(paths []string, base string) ([]string, error) {
	rels := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := pathresolve.Relative(p, base)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	return uniq(rels), nil
}

// uniq drops adjacent duplicates from a sorted slice.
func uniq(sorted []string) []string {
	out := sorted[:0]
	for _, s := range sorted {
		if len(out) > 0 && out[len(out)-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}

func moduleURL(rel string) string {
	if rel == "." {
		return pathresolve.ModuleDirURL
	}
	return pathresolve.ModuleDirURL + "/" + rel
}
