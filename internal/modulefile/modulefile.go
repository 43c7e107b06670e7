// Package modulefile renders and writes one module descriptor (.iml).
//
// Document layout:
//
//	module
//	  component NewModuleRootManager
//	    output, output-test      only when the source set compiles
//	    content                  see internal/content
//	    orderEntry ...           own sources, inherited SDK, modules, libraries
//	    orderEntryProperties
package modulefile

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"ideagen/internal/buildgraph"
	"ideagen/internal/classify"
	"ideagen/internal/content"
	"ideagen/internal/pathresolve"
	"ideagen/internal/staleness"
	"ideagen/internal/xmldoc"
)

const (
	// DefaultClassifier is appended to every generated module name.
	DefaultClassifier = "-7x"
	// Ext is the module descriptor extension.
	Ext = ".iml"
)

// ErrWriteFailure marks filesystem errors while writing a descriptor.
var ErrWriteFailure = errors.New("descriptor write failed")

// WriteError wraps a filesystem error for one descriptor file. It matches
// both ErrWriteFailure and the underlying error.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrWriteFailure, e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrWriteFailure, e.Err} }

// WriteFile writes data to path, wrapping any failure in a WriteError.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// Status reports what WriteIfStale did.
type Status int

const (
	// Skipped means the module has no packages and gets no descriptor.
	Skipped Status = iota
	UpToDate
	Written
	Failed
)

func (s Status) String() string {
	switch s {
	case Skipped:
		return "skipped"
	case UpToDate:
		return "up to date"
	case Written:
		return "written"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Name returns the IDE module name for m: "core-util-7x".
func Name(m *buildgraph.Module, classifier string) string {
	return m.ID() + classifier
}

// FileName returns the descriptor file name for m: "core-util-7x.iml".
func FileName(m *buildgraph.Module, classifier string) string {
	return Name(m, classifier) + Ext
}

// Writer renders module descriptors for one tree.
type Writer struct {
	Classifier *classify.Classifier
	// Suffix is the name classifier, DefaultClassifier when empty.
	Suffix string
	Stale  *staleness.Checker
	// Log receives one line per regenerated or fresh file; nil discards.
	Log *log.Logger
}

// NewWriter returns a Writer with default suffix and filesystem times.
func NewWriter(c *classify.Classifier) *Writer {
	return &Writer{Classifier: c, Suffix: DefaultClassifier, Stale: staleness.New(nil)}
}

func (w *Writer) suffix() string {
	if w.Suffix == "" {
		return DefaultClassifier
	}
	return w.Suffix
}

// Path returns where m's descriptor lives.
func (w *Writer) Path(m *buildgraph.Module) string {
	return filepath.Join(m.BaseDir, FileName(m, w.suffix()))
}

// WriteIfStale regenerates m's descriptor when it is missing or older than
// any of inputs. Modules without packages are skipped.
func (w *Writer) WriteIfStale(m *buildgraph.Module, inputs []string) (Status, error) {
	if !m.Packageable() {
		return Skipped, nil
	}
	path := w.Path(m)
	stale, err := w.Stale.Stale(path, inputs)
	if err != nil {
		return Failed, err
	}
	if !stale {
		w.logf("Up to date %s", path)
		return UpToDate, nil
	}
	data, err := w.Render(m)
	if err != nil {
		return Failed, err
	}
	w.logf("Writing %s", path)
	if err := WriteFile(path, data); err != nil {
		return Failed, err
	}
	return Written, nil
}

// Render returns the encoded descriptor for m. It touches no files.
func (w *Writer) Render(m *buildgraph.Module) ([]byte, error) {
	doc, err := w.Document(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := xmldoc.Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Document builds the element tree for m.
func (w *Writer) Document(m *buildgraph.Module) (*xmldoc.Element, error) {
	deps := w.Classifier.Classify(m)

	manager := xmldoc.New("component", "name", "NewModuleRootManager", "inherit-compiler-output", "false")

	outputs, err := outputElements(m)
	if err != nil {
		return nil, err
	}
	manager.Add(outputs...)

	model, err := content.Build(m, classify.Paths(deps.Generated))
	if err != nil {
		return nil, err
	}
	manager.Add(contentElement(model))

	manager.Add(w.orderEntries(deps.Projects)...)

	libs, err := w.libraryPaths(m, deps)
	if err != nil {
		return nil, err
	}
	for _, lib := range libs {
		manager.Add(libraryEntry(lib))
	}
	manager.Add(xmldoc.New("orderEntryProperties"))

	return xmldoc.New("module", "version", "4", "relativePaths", "true", "type", "JAVA_MODULE").Add(manager), nil
}

func outputElements(m *buildgraph.Module) ([]*xmldoc.Element, error) {
	var out []*xmldoc.Element
	if m.HasMainSources() {
		url, err := pathresolve.ModuleURL(m.CompileTarget, m.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("compile output of %s: %w", m.Name, err)
		}
		out = append(out, xmldoc.New("output", "url", url))
	}
	if m.HasTestSources() {
		url, err := pathresolve.ModuleURL(m.TestCompileTarget, m.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("test compile output of %s: %w", m.Name, err)
		}
		out = append(out, xmldoc.New("output-test", "url", url))
	}
	return out, nil
}

func contentElement(model *content.Model) *xmldoc.Element {
	el := xmldoc.New("content", "url", model.URL)
	for _, r := range model.Sources {
		el.Add(xmldoc.New("sourceFolder", "url", r.URL, "isTestSource", fmt.Sprint(r.Test)))
	}
	for _, r := range model.Excludes {
		el.Add(xmldoc.New("excludeFolder", "url", r.URL))
	}
	return el
}

// orderEntries emits own sources, the inherited SDK, then one entry per
// referenced module, sorted by name with duplicates removed.
func (w *Writer) orderEntries(projects []classify.Reference) []*xmldoc.Element {
	out := []*xmldoc.Element{
		xmldoc.New("orderEntry", "type", "sourceFolder", "forTests", "false"),
		xmldoc.New("orderEntry", "type", "inheritedJdk"),
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, Name(p.Module, w.suffix()))
	}
	sort.Strings(names)
	for i, n := range names {
		if i > 0 && n == names[i-1] {
			continue
		}
		out = append(out, xmldoc.New("orderEntry", "type", "module", "module-name", n))
	}
	return out
}

// libraryPaths lists external libraries relative to the module dir, then
// repository libraries under the repository token, in classpath order.
func (w *Writer) libraryPaths(m *buildgraph.Module, deps *classify.Result) ([]string, error) {
	out := make([]string, 0, len(deps.External)+len(deps.Repository))
	for _, ref := range deps.External {
		p, err := pathresolve.ModulePath(ref.Path, m.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("library of %s: %w", m.Name, err)
		}
		out = append(out, p)
	}
	for _, ref := range deps.Repository {
		out = append(out, pathresolve.RepositoryPath(ref.Path, w.Classifier.Repository))
	}
	return out, nil
}

func libraryEntry(path string) *xmldoc.Element {
	return xmldoc.New("orderEntry", "type", "module-library").Add(
		xmldoc.New("library").Add(
			xmldoc.New("CLASSES").Add(xmldoc.New("root", "url", pathresolve.JarURL(path))),
			xmldoc.New("JAVADOC"),
			xmldoc.New("SOURCES"),
		),
	)
}

func (w *Writer) logf(format string, args ...any) {
	if w.Log != nil {
		w.Log.Printf(format, args...)
	}
}
