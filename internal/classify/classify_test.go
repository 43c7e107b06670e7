package classify_test

import (
	"reflect"
	"testing"

	"ideagen/internal/buildgraph"
	"ideagen/internal/classify"
)

const repo = "/home/u/.repo"

// coreTree is core -> (core:lib, core:util). core:util depends on core:lib.
func coreTree(classpath ...string) (*buildgraph.Tree, *buildgraph.Module) {
	root := &buildgraph.Module{Name: "core", BaseDir: "/w"}
	lib := &buildgraph.Module{
		Name:          "core:lib",
		BaseDir:       "/w/lib",
		CompileTarget: "/w/lib/target/classes",
		Packages:      []string{"/w/lib/target/core-lib-1.0.jar"},
	}
	util := &buildgraph.Module{
		Name:          "core:util",
		BaseDir:       "/w/util",
		MainSources:   []string{"/w/util/src/main"},
		TestSources:   [][]string{{"/w/util/src/test"}},
		CompileTarget: "/w/util/target/classes",
		TestClasspath: classpath,
		Packages:      []string{"/w/util/target/core-util-1.0.jar"},
	}
	root.AddChild(lib)
	root.AddChild(util)
	return &buildgraph.Tree{Root: root, Repository: repo}, util
}

func classifyUtil(classpath ...string) *classify.Result {
	tree, util := coreTree(classpath...)
	return classify.New(buildgraph.NewIndex(tree), tree.Repository).Classify(util)
}

func TestExampleScenario(t *testing.T) {
	res := classifyUtil("/w/lib/target/core-lib-1.0.jar", repo+"/org/x/x-1.0.jar")

	if len(res.Projects) != 1 || res.Projects[0].Module.Name != "core:lib" {
		t.Fatalf("Projects = %+v, want one reference to core:lib", res.Projects)
	}
	if got, want := classify.Paths(res.Repository), []string{repo + "/org/x/x-1.0.jar"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Repository = %v, want %v", got, want)
	}
	if len(res.Generated) != 0 || len(res.External) != 0 {
		t.Errorf("Generated = %v, External = %v, want both empty", res.Generated, res.External)
	}
}

func TestPrecedenceAndOrder(t *testing.T) {
	cp := []string{
		"/opt/ext/b.jar",
		repo + "/org/z/z.jar",
		"/w/util/target/generated/classes",
		"/w/lib/target/core-lib-1.0.jar",
		"/opt/ext/a.jar",
		repo + "/org/a/a.jar",
		"/w/util/gen-src",
	}
	res := classifyUtil(cp...)

	tests := []struct {
		kind classify.Kind
		refs []classify.Reference
		want []string
	}{
		{classify.ProjectReference, res.Projects, []string{"/w/lib/target/core-lib-1.0.jar"}},
		{classify.RepositoryArtifact, res.Repository, []string{repo + "/org/z/z.jar", repo + "/org/a/a.jar"}},
		{classify.GeneratedOutput, res.Generated, []string{"/w/util/target/generated/classes", "/w/util/gen-src"}},
		{classify.ExternalFile, res.External, []string{"/opt/ext/b.jar", "/opt/ext/a.jar"}},
	}
	for _, tc := range tests {
		if got := classify.Paths(tc.refs); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s = %v, want %v", tc.kind, got, tc.want)
		}
		for _, r := range tc.refs {
			if r.Kind != tc.kind {
				t.Errorf("%s tagged %s in the %s partition", r.Path, r.Kind, tc.kind)
			}
		}
	}
}

func TestCompletenessAndDisjointness(t *testing.T) {
	cp := []string{
		"/w/lib/target/core-lib-1.0.jar",
		"/w/lib/target/core-lib-1.0.jar",
		repo + "/org/x/x-1.0.jar",
		"/w/util/gen",
		"/tmp/x.jar",
		"/tmp/x.jar",
	}
	res := classifyUtil(cp...)

	seen := make(map[string]classify.Kind)
	count := 0
	for _, r := range res.All() {
		if k, ok := seen[r.Path]; ok && k != r.Kind {
			t.Errorf("%s landed in %s and %s", r.Path, k, r.Kind)
		}
		seen[r.Path] = r.Kind
		count++
	}
	// Duplicates are kept, one slot per classpath entry.
	if count != len(cp) {
		t.Errorf("classified %d entries, want %d", count, len(cp))
	}
}

func TestOwnCompileOutputExcluded(t *testing.T) {
	res := classifyUtil("/w/util/target/classes", "/w/util/target/./classes/", repo+"/a.jar")
	for _, r := range res.All() {
		if r.Path == "/w/util/target/classes" || r.Path == "/w/util/target/./classes/" {
			t.Errorf("own compile output %s was classified as %s", r.Path, r.Kind)
		}
	}
	if n := len(res.All()); n != 1 {
		t.Errorf("got %d references, want 1", n)
	}
}

func TestRepositoryBeatsGenerated(t *testing.T) {
	// A repository nested inside the module dir still wins.
	tree, util := coreTree("/w/util/.repo/org/y.jar")
	res := classify.New(buildgraph.NewIndex(tree), "/w/util/.repo").Classify(util)
	if len(res.Repository) != 1 || len(res.Generated) != 0 {
		t.Errorf("Repository = %v, Generated = %v", res.Repository, res.Generated)
	}
}

func TestEmptyRepositoryMatchesNothing(t *testing.T) {
	tree, util := coreTree(repo + "/org/x.jar")
	res := classify.New(buildgraph.NewIndex(tree), "").Classify(util)
	if len(res.Repository) != 0 || len(res.External) != 1 {
		t.Errorf("Repository = %v, External = %v", res.Repository, res.External)
	}
}

func TestUnpackageableModuleIsNotAProjectReference(t *testing.T) {
	tree, util := coreTree("/w/lib/target/core-lib-1.0.jar")
	lib, err := tree.Find("core:lib")
	if err != nil {
		t.Fatal(err)
	}
	lib.Packages = nil

	res := classify.New(buildgraph.NewIndex(tree), repo).Classify(util)
	if len(res.Projects) != 0 {
		t.Errorf("Projects = %v, want none", res.Projects)
	}
	if got := classify.Paths(res.External); !reflect.DeepEqual(got, []string{"/w/lib/target/core-lib-1.0.jar"}) {
		t.Errorf("External = %v", got)
	}
}

// Nested modules: a parent whose base dir contains a child's dir attributes
// the child's non-package output to itself as generated output.
func TestNestedModuleOutputAttributedToParent(t *testing.T) {
	parent := &buildgraph.Module{
		Name:          "app",
		BaseDir:       "/w/app",
		CompileTarget: "/w/app/target/classes",
		TestClasspath: []string{"/w/app/plugin/target/classes", "/w/app/plugin/target/plugin.jar"},
		Packages:      []string{"/w/app/target/app.jar"},
	}
	child := &buildgraph.Module{
		Name:          "app:plugin",
		BaseDir:       "/w/app/plugin",
		CompileTarget: "/w/app/plugin/target/classes",
		Packages:      []string{"/w/app/plugin/target/plugin.jar"},
	}
	parent.AddChild(child)
	tree := &buildgraph.Tree{Root: parent, Repository: repo}

	res := classify.New(buildgraph.NewIndex(tree), repo).Classify(parent)
	if got := classify.Paths(res.Projects); !reflect.DeepEqual(got, []string{"/w/app/plugin/target/plugin.jar"}) {
		t.Errorf("Projects = %v", got)
	}
	if got := classify.Paths(res.Generated); !reflect.DeepEqual(got, []string{"/w/app/plugin/target/classes"}) {
		t.Errorf("Generated = %v", got)
	}
}

func TestDeterministic(t *testing.T) {
	cp := []string{"/opt/a.jar", repo + "/b.jar", "/w/lib/target/core-lib-1.0.jar", "/w/util/gen"}
	first := classifyUtil(cp...)
	for i := 0; i < 5; i++ {
		if got := classifyUtil(cp...); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, got)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind classify.Kind
		want string
	}{
		{classify.ProjectReference, "project"},
		{classify.RepositoryArtifact, "repository"},
		{classify.GeneratedOutput, "generated"},
		{classify.ExternalFile, "external"},
		{classify.Kind(42), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tc.kind), got, tc.want)
		}
	}
}
