package source

// The "manifest" source reads a YAML snapshot of a build graph.
//
// Example ideagen.yaml:
//
//	name: shop
//	build_file: buildfile
//	repository: ~/.m2/repository
//	inputs: [profiles.yaml]
//	packages: [target/shop-1.0.jar]
//	modules:
//	  - name: api
//	    compile:
//	      sources: [src/main/java]
//	      target: target/classes
//	    test:
//	      sources: [[src/test/java]]
//	      target: target/test-classes
//	    resources:
//	      - path: src/main/resources
//	    classpath:
//	      - ~/.m2/repository/org/x/x-1.0.jar
//	    packages: [target/shop-api-1.0.jar]
//
// Child base directories default to the child's name below the parent's.
// Relative paths resolve against the owning module's base directory;
// repository and inputs resolve against the manifest's directory.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ideagen/internal/buildgraph"
)

// ManifestFile is the file name the manifest source looks for.
const ManifestFile = "ideagen.yaml"

// Manifest implements Source for ideagen.yaml files.
type Manifest struct{}

func (Manifest) Name() string { return "manifest" }

func (Manifest) Detect(dir string) bool {
	return fileExists(filepath.Join(dir, ManifestFile))
}

func (Manifest) Load(dir string) (*buildgraph.Tree, error) {
	return LoadManifest(filepath.Join(dir, ManifestFile))
}

type manifestFile struct {
	manifestModule `yaml:",inline"`
	Repository     string   `yaml:"repository"`
	Inputs         []string `yaml:"inputs"`
}

type manifestModule struct {
	Name      string             `yaml:"name"`
	BaseDir   string             `yaml:"base_dir"`
	BuildFile string             `yaml:"build_file"`
	Packages  []string           `yaml:"packages"`
	Compile   manifestSourceSet  `yaml:"compile"`
	Test      manifestTestSet    `yaml:"test"`
	Resources []manifestResource `yaml:"resources"`
	Classpath []string           `yaml:"classpath"`
	Modules   []manifestModule   `yaml:"modules"`
}

type manifestSourceSet struct {
	Sources []string `yaml:"sources"`
	Target  string   `yaml:"target"`
}

type manifestTestSet struct {
	Sources [][]string `yaml:"sources"`
	Target  string     `yaml:"target"`
}

type manifestResource struct {
	Path string `yaml:"path"`
	Test bool   `yaml:"test"`
}

// LoadManifest reads and resolves a manifest file. The manifest itself is
// added to the tree's inputs so editing it triggers regeneration.
func LoadManifest(path string) (*buildgraph.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data, filepath.Dir(abs), abs)
}

// ParseManifest resolves manifest bytes against dir. self, if non-empty, is
// recorded as an input.
func ParseManifest(data []byte, dir, self string) (*buildgraph.Tree, error) {
	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if mf.Name == "" {
		return nil, fmt.Errorf("manifest: root module has no name")
	}

	rootBase := dir
	if mf.BaseDir != "" {
		b, err := resolvePath(mf.BaseDir, dir)
		if err != nil {
			return nil, err
		}
		rootBase = b
	}
	root, err := buildModule(mf.manifestModule, "", rootBase)
	if err != nil {
		return nil, err
	}

	tree := &buildgraph.Tree{Root: root, BuildFile: root.BuildFile}
	if mf.Repository != "" {
		if tree.Repository, err = resolvePath(mf.Repository, dir); err != nil {
			return nil, err
		}
	}
	for _, in := range mf.Inputs {
		p, err := resolvePath(in, dir)
		if err != nil {
			return nil, err
		}
		tree.Inputs = append(tree.Inputs, p)
	}
	if self != "" {
		tree.Inputs = append(tree.Inputs, self)
	}
	return tree, nil
}

func buildModule(mm manifestModule, parentName, base string) (*buildgraph.Module, error) {
	if mm.Name == "" {
		return nil, fmt.Errorf("manifest: module under %q has no name", parentName)
	}
	if strings.Contains(mm.Name, buildgraph.Separator) {
		return nil, fmt.Errorf("manifest: module name %q must not contain %q", mm.Name, buildgraph.Separator)
	}
	name := mm.Name
	if parentName != "" {
		name = parentName + buildgraph.Separator + mm.Name
	}

	r := resolver{base: base}
	m := &buildgraph.Module{
		Name:              name,
		BaseDir:           base,
		BuildFile:         r.one(mm.BuildFile),
		MainSources:       r.all(mm.Compile.Sources),
		CompileTarget:     r.one(mm.Compile.Target),
		TestCompileTarget: r.one(mm.Test.Target),
		TestClasspath:     r.all(mm.Classpath),
		Packages:          r.all(mm.Packages),
	}
	for _, group := range mm.Test.Sources {
		m.TestSources = append(m.TestSources, r.all(group))
	}
	for _, res := range mm.Resources {
		m.Resources = append(m.Resources, buildgraph.ResourceRoot{Path: r.one(res.Path), Test: res.Test})
	}
	if r.err != nil {
		return nil, fmt.Errorf("manifest: module %s: %w", name, r.err)
	}

	seen := make(map[string]bool)
	for _, child := range mm.Modules {
		if seen[child.Name] {
			return nil, fmt.Errorf("manifest: duplicate module %q under %s", child.Name, name)
		}
		seen[child.Name] = true
		dir := child.BaseDir
		if dir == "" {
			dir = child.Name
		}
		childBase, err := resolvePath(dir, base)
		if err != nil {
			return nil, err
		}
		c, err := buildModule(child, name, childBase)
		if err != nil {
			return nil, err
		}
		m.AddChild(c)
	}
	return m, nil
}

// resolver resolves paths against one base and keeps the first error.
type resolver struct {
	base string
	err  error
}

func (r *resolver) one(p string) string {
	if p == "" || r.err != nil {
		return ""
	}
	out, err := resolvePath(p, r.base)
	if err != nil {
		r.err = err
		return ""
	}
	return out
}

func (r *resolver) all(ps []string) []string {
	if len(ps) == 0 {
		return nil
	}
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if v := r.one(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
