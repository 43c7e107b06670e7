// Package classify partitions a module's resolved classpath into the four
// kinds of dependency an IDE module descriptor distinguishes.
//
// Precedence, highest first:
//
//	project reference   entry equals a packageable module's package path
//	repository artifact entry lies under the local repository root
//	generated output    entry lies under the module's own base directory
//	external file       anything else
//
// The module's own compile output is dropped before classification.
package classify

import (
	"path/filepath"

	"ideagen/internal/buildgraph"
	"ideagen/internal/pathresolve"
)

// Kind tags which partition a Reference landed in.
type Kind int

const (
	ProjectReference Kind = iota
	RepositoryArtifact
	GeneratedOutput
	ExternalFile
)

func (k Kind) String() string {
	switch k {
	case ProjectReference:
		return "project"
	case RepositoryArtifact:
		return "repository"
	case GeneratedOutput:
		return "generated"
	case ExternalFile:
		return "external"
	}
	return "unknown"
}

// Reference is one classified classpath entry.
type Reference struct {
	Kind Kind
	// Path is the classpath entry as given.
	Path string
	// Module is set for project references.
	Module *buildgraph.Module
}

// Result holds the four partitions. Each preserves the relative order the
// entries had on the classpath.
type Result struct {
	Projects   []Reference
	Repository []Reference
	Generated  []Reference
	External   []Reference
}

// All returns every reference, partition by partition.
func (r *Result) All() []Reference {
	out := make([]Reference, 0, len(r.Projects)+len(r.Repository)+len(r.Generated)+len(r.External))
	out = append(out, r.Projects...)
	out = append(out, r.Repository...)
	out = append(out, r.Generated...)
	out = append(out, r.External...)
	return out
}

// Paths returns the Path of each reference.
func Paths(refs []Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Path
	}
	return out
}

// Classifier classifies classpaths against one tree snapshot.
type Classifier struct {
	Index      *buildgraph.Index
	Repository string
}

// New returns a Classifier for the given index and repository root.
func New(ix *buildgraph.Index, repository string) *Classifier {
	return &Classifier{Index: ix, Repository: repository}
}

// Classify partitions m's test-compile classpath.
func (c *Classifier) Classify(m *buildgraph.Module) *Result {
	res := &Result{}
	own := ""
	if m.CompileTarget != "" {
		own = filepath.Clean(m.CompileTarget)
	}
	for _, entry := range m.TestClasspath {
		if entry == "" || filepath.Clean(entry) == own {
			continue
		}
		ref := c.classifyEntry(m, entry)
		switch ref.Kind {
		case ProjectReference:
			res.Projects = append(res.Projects, ref)
		case RepositoryArtifact:
			res.Repository = append(res.Repository, ref)
		case GeneratedOutput:
			res.Generated = append(res.Generated, ref)
		default:
			res.External = append(res.External, ref)
		}
	}
	return res
}

func (c *Classifier) classifyEntry(m *buildgraph.Module, entry string) Reference {
	if target, ok := c.Index.Lookup(entry); ok {
		return Reference{Kind: ProjectReference, Path: entry, Module: target}
	}
	if pathresolve.Within(entry, c.Repository) {
		return Reference{Kind: RepositoryArtifact, Path: entry}
	}
	if pathresolve.Within(entry, m.BaseDir) {
		return Reference{Kind: GeneratedOutput, Path: entry}
	}
	return Reference{Kind: ExternalFile, Path: entry}
}
