// Package generate runs descriptor generation over a build tree.
//
// A Generator indexes the tree once, then writes one module descriptor per
// packageable module and the project descriptor at the root. Module
// failures are isolated: every module is attempted and the project
// descriptor is attempted even when some modules failed, since it depends
// only on tree metadata.
package generate

import (
	"errors"
	"fmt"
	"log"

	"ideagen/internal/buildgraph"
	"ideagen/internal/classify"
	"ideagen/internal/modulefile"
	"ideagen/internal/projectfile"
	"ideagen/internal/staleness"
)

// ErrUnknownModule is returned by Module for identities not in the tree.
var ErrUnknownModule = errors.New("unknown module")

// Options configures a Generator. The zero value uses the embedded
// template, the default classifier and the local filesystem.
type Options struct {
	// Classifier is appended to descriptor names.
	Classifier string
	// Template replaces the embedded project template when non-nil.
	Template []byte
	// TemplatePath names a project template file. It is read when the
	// project descriptor is rendered, so a missing file fails only that
	// descriptor.
	TemplatePath string
	// Skip reports modules that get no descriptor and are left out of the
	// project descriptor.
	Skip func(name string) bool
	// Files supplies modification times for the staleness check.
	Files staleness.FileTimes
	Log   *log.Logger
}

// Result is the outcome for one descriptor file.
type Result struct {
	Module string
	Path   string
	Status modulefile.Status
	Err    error
}

// Report collects results of one run. Project is nil when the run did not
// touch the project descriptor.
type Report struct {
	Modules []Result
	Project *Result
}

// Names returns the modules whose result has status s, in run order.
func (r *Report) Names(s modulefile.Status) []string {
	var out []string
	for _, res := range r.Modules {
		if res.Status == s {
			out = append(out, res.Module)
		}
	}
	return out
}

// Err joins every failure in the report.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Modules {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	if r.Project != nil && r.Project.Err != nil {
		errs = append(errs, r.Project.Err)
	}
	return errors.Join(errs...)
}

// Generator writes descriptors for one tree.
type Generator struct {
	tree    *buildgraph.Tree
	skip    func(string) bool
	modules *modulefile.Writer
	project *projectfile.Writer
}

// New indexes tree and prepares both writers.
func New(tree *buildgraph.Tree, opts Options) *Generator {
	checker := staleness.New(opts.Files)
	skip := opts.Skip
	if skip == nil {
		skip = func(string) bool { return false }
	}

	mw := modulefile.NewWriter(classify.New(buildgraph.NewIndex(tree), tree.Repository))
	mw.Stale = checker
	mw.Log = opts.Log

	pw := projectfile.NewWriter()
	pw.Stale = checker
	pw.Log = opts.Log
	pw.Template = opts.Template
	pw.TemplatePath = opts.TemplatePath
	pw.Include = func(m *buildgraph.Module) bool { return !skip(m.Name) }

	if opts.Classifier != "" {
		mw.Suffix = opts.Classifier
		pw.Suffix = opts.Classifier
	}
	return &Generator{tree: tree, skip: skip, modules: mw, project: pw}
}

// All writes every module descriptor in traversal order, then the project
// descriptor. The returned error joins every failure.
func (g *Generator) All() (*Report, error) {
	report := &Report{}
	for _, m := range g.tree.Modules() {
		report.Modules = append(report.Modules, g.writeModule(m))
	}
	p := g.writeProject()
	report.Project = &p
	return report, report.Err()
}

// Module writes the descriptor of the module named name. For the root
// module the project descriptor is written as well.
func (g *Generator) Module(name string) (*Report, error) {
	m, err := g.tree.Find(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	report := &Report{Modules: []Result{g.writeModule(m)}}
	if m == g.tree.Root {
		p := g.writeProject()
		report.Project = &p
	}
	return report, report.Err()
}

func (g *Generator) writeModule(m *buildgraph.Module) Result {
	res := Result{Module: m.Name, Path: g.modules.Path(m)}
	if g.skip(m.Name) {
		res.Status = modulefile.Skipped
		return res
	}
	res.Status, res.Err = g.modules.WriteIfStale(m, g.tree.ModuleInputs(m))
	if res.Err != nil {
		res.Err = fmt.Errorf("module %s: %w", m.Name, res.Err)
	}
	return res
}

func (g *Generator) writeProject() Result {
	res := Result{Module: g.tree.Root.Name, Path: g.project.Path(g.tree)}
	res.Status, res.Err = g.project.WriteIfStale(g.tree, g.tree.AllInputs())
	if res.Err != nil {
		res.Err = fmt.Errorf("project %s: %w", g.tree.Root.Name, res.Err)
	}
	return res
}
