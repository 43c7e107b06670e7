// Package source loads a build tree from a project directory.
//
// Each Source understands one kind of build definition. Generation never
// resolves dependencies itself; it consumes whatever tree a Source returns.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ideagen/internal/buildgraph"
)

// Source is implemented by every build-graph loader.
type Source interface {
	// Name returns the loader's short identifier (e.g. "manifest").
	Name() string

	// Detect reports whether dir holds a build definition this loader reads.
	Detect(dir string) bool

	// Load reads the build tree rooted at dir.
	Load(dir string) (*buildgraph.Tree, error)
}

// Select returns the source named name, or the first one whose Detect
// accepts dir when name is empty.
func Select(name, dir string, sources []Source) (Source, error) {
	if name != "" {
		for _, s := range sources {
			if s.Name() == name {
				return s, nil
			}
		}
		return nil, fmt.Errorf("unknown source %q (have %s)", name, strings.Join(names(sources), ", "))
	}
	for _, s := range sources {
		if s.Detect(dir) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no build definition found in %s (looked for %s)", dir, strings.Join(names(sources), ", "))
}

func names(sources []Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.Name()
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// resolvePath makes p absolute against base, expanding a leading "~/".
func resolvePath(p, base string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	return filepath.Join(base, p), nil
}
