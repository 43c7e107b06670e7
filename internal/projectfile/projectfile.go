// Package projectfile writes the aggregate project descriptor (.ipr) at the
// root of a build tree.
//
// The descriptor is a fixed template with one generated component appended
// as the last child of the template's root:
//
//	<component name="ProjectModuleManager">
//	  <modules>
//	    <module fileurl="file://$PROJECT_DIR$/<path>" filepath="$PROJECT_DIR$/<path>"/>
//	  </modules>
//	</component>
package projectfile

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "embed"

	"ideagen/internal/buildgraph"
	"ideagen/internal/modulefile"
	"ideagen/internal/pathresolve"
	"ideagen/internal/staleness"
	"ideagen/internal/xmldoc"
)

//go:embed project.ipr.template
var defaultTemplate []byte

// Ext is the project descriptor extension.
const Ext = ".ipr"

// RootElement is the element the template must be rooted at.
const RootElement = "project"

// ErrMissingTemplate is returned when the template cannot be read or does
// not have the expected shape.
var ErrMissingTemplate = errors.New("missing project template")

// TemplateError describes why a template was rejected.
type TemplateError struct {
	Source string
	Err    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrMissingTemplate, e.Source, e.Err)
}

func (e *TemplateError) Unwrap() []error { return []error{ErrMissingTemplate, e.Err} }

// DefaultTemplate returns a copy of the embedded template.
func DefaultTemplate() []byte {
	return append([]byte(nil), defaultTemplate...)
}

// LoadTemplate reads a template from disk.
func LoadTemplate(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TemplateError{Source: path, Err: err}
	}
	return data, nil
}

// Merge parses template and appends fragment as the last child of its root.
// Everything inside the root, comments included, is kept in order. The XML
// declaration and anything outside the root element are replaced by the
// standard header.
func Merge(template []byte, fragment *xmldoc.Element) (*xmldoc.Element, error) {
	root, err := xmldoc.Parse(bytes.NewReader(template))
	if err != nil {
		return nil, &TemplateError{Source: "template", Err: err}
	}
	if root.Name != RootElement {
		return nil, &TemplateError{Source: "template", Err: fmt.Errorf("root element is <%s>, want <%s>", root.Name, RootElement)}
	}
	return root.Add(fragment), nil
}

// Writer writes the aggregate descriptor.
type Writer struct {
	// Suffix is the name classifier shared with module descriptors.
	Suffix string
	// Template overrides the embedded template when non-nil.
	Template []byte
	// TemplatePath names a template file read at render time. It is used
	// when Template is nil; a read failure fails only this descriptor.
	TemplatePath string
	Stale        *staleness.Checker
	// Include, when set, further filters which packageable modules are
	// listed.
	Include func(*buildgraph.Module) bool
	Log     *log.Logger
}

// NewWriter returns a Writer using the embedded template.
func NewWriter() *Writer {
	return &Writer{Suffix: modulefile.DefaultClassifier, Stale: staleness.New(nil)}
}

func (w *Writer) suffix() string {
	if w.Suffix == "" {
		return modulefile.DefaultClassifier
	}
	return w.Suffix
}

// Path returns where the tree's project descriptor lives.
func (w *Writer) Path(t *buildgraph.Tree) string {
	return filepath.Join(t.Root.BaseDir, t.Root.ID()+w.suffix()+Ext)
}

func (w *Writer) listed(m *buildgraph.Module) bool {
	if !m.Packageable() {
		return false
	}
	return w.Include == nil || w.Include(m)
}

// Fragment builds the ProjectModuleManager component: every listed
// descendant in traversal order, then the root if it is listed.
func (w *Writer) Fragment(t *buildgraph.Tree) (*xmldoc.Element, error) {
	modules := xmldoc.New("modules")
	entries := append(t.Descendants(), t.Root)
	for _, m := range entries {
		if !w.listed(m) {
			continue
		}
		file := filepath.Join(m.BaseDir, modulefile.FileName(m, w.suffix()))
		rel, err := pathresolve.Relative(file, t.Root.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", m.Name, err)
		}
		modules.Add(xmldoc.New("module",
			"fileurl", pathresolve.ProjectURL(rel),
			"filepath", pathresolve.ProjectPath(rel),
		))
	}
	return xmldoc.New("component", "name", "ProjectModuleManager").Add(modules), nil
}

// Render returns the merged project document. It touches no files.
func (w *Writer) Render(t *buildgraph.Tree) ([]byte, error) {
	fragment, err := w.Fragment(t)
	if err != nil {
		return nil, err
	}
	template, err := w.template()
	if err != nil {
		return nil, err
	}
	doc, err := Merge(template, fragment)
	if err != nil {
		return nil, err
	}
	return xmldoc.Marshal(doc), nil
}

func (w *Writer) template() ([]byte, error) {
	switch {
	case w.Template != nil:
		return w.Template, nil
	case w.TemplatePath != "":
		return LoadTemplate(w.TemplatePath)
	}
	return defaultTemplate, nil
}

// WriteIfStale regenerates the project descriptor when it is missing or
// older than any of inputs.
func (w *Writer) WriteIfStale(t *buildgraph.Tree, inputs []string) (modulefile.Status, error) {
	path := w.Path(t)
	stale, err := w.Stale.Stale(path, inputs)
	if err != nil {
		return modulefile.Failed, err
	}
	if !stale {
		w.logf("Up to date %s", path)
		return modulefile.UpToDate, nil
	}
	data, err := w.Render(t)
	if err != nil {
		return modulefile.Failed, err
	}
	w.logf("Writing %s", path)
	if err := modulefile.WriteFile(path, data); err != nil {
		return modulefile.Failed, err
	}
	return modulefile.Written, nil
}

func (w *Writer) logf(format string, args ...any) {
	if w.Log != nil {
		w.Log.Printf(format, args...)
	}
}
