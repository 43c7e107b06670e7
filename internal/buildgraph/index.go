package buildgraph

import "path/filepath"

// Index is a read-only snapshot of which module emits which package path.
// It is built once per run, before any module is classified.
type Index struct {
	byPackage map[string]*Module
	order     []*Module
}

// NewIndex walks the tree in traversal order and records every packageable
// module's package paths. When two modules emit the same path the first one
// encountered keeps it.
func NewIndex(t *Tree) *Index {
	ix := &Index{byPackage: make(map[string]*Module)}
	_ = t.Walk(func(m *Module) error {
		if !m.Packageable() {
			return nil
		}
		ix.order = append(ix.order, m)
		for _, p := range m.Packages {
			key := filepath.Clean(p)
			if _, taken := ix.byPackage[key]; !taken {
				ix.byPackage[key] = m
			}
		}
		return nil
	})
	return ix
}

// Lookup returns the module whose package output equals path.
func (ix *Index) Lookup(path string) (*Module, bool) {
	if ix == nil || path == "" {
		return nil, false
	}
	m, ok := ix.byPackage[filepath.Clean(path)]
	return m, ok
}

// Packageable returns the packageable modules in traversal order.
func (ix *Index) Packageable() []*Module {
	if ix == nil {
		return nil
	}
	return ix.order
}
