package projectfile_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"ideagen/internal/buildgraph"
	"ideagen/internal/modulefile"
	"ideagen/internal/projectfile"
	"ideagen/internal/staleness"
	"ideagen/internal/xmldoc"
)

// tree builds root -> (web, docs, api -> api:client). docs is not packageable.
func tree(base string) *buildgraph.Tree {
	root := &buildgraph.Module{Name: "shop", BaseDir: base, Packages: []string{"shop.jar"}}
	web := &buildgraph.Module{Name: "shop:web", BaseDir: filepath.Join(base, "web"), Packages: []string{"web.war"}}
	docs := &buildgraph.Module{Name: "shop:docs", BaseDir: filepath.Join(base, "docs")}
	api := &buildgraph.Module{Name: "shop:api", BaseDir: filepath.Join(base, "api"), Packages: []string{"api.jar"}}
	client := &buildgraph.Module{Name: "shop:api:client", BaseDir: filepath.Join(base, "api", "client"), Packages: []string{"client.jar"}}
	root.AddChild(web)
	root.AddChild(docs)
	root.AddChild(api)
	api.AddChild(client)
	return &buildgraph.Tree{Root: root}
}

func fileurls(t *testing.T, w *projectfile.Writer, tr *buildgraph.Tree) []string {
	t.Helper()
	frag, err := w.Fragment(tr)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	var out []string
	for _, m := range frag.Child("modules").Children {
		v, _ := m.Attr("fileurl")
		out = append(out, v)
	}
	return out
}

func render(t *testing.T, w *projectfile.Writer, tr *buildgraph.Tree) string {
	t.Helper()
	data, err := w.Render(tr)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return string(data)
}

func TestFragmentTraversalOrderRootLast(t *testing.T) {
	got := fileurls(t, projectfile.NewWriter(), tree("/w"))
	want := []string{
		"file://$PROJECT_DIR$/web/shop-web-7x.iml",
		"file://$PROJECT_DIR$/api/shop-api-7x.iml",
		"file://$PROJECT_DIR$/api/client/shop-api-client-7x.iml",
		"file://$PROJECT_DIR$/shop-7x.iml",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fileurls = %v, want %v", got, want)
	}
}

func TestFragmentOmitsUnpackageableRoot(t *testing.T) {
	tr := tree("/w")
	tr.Root.Packages = nil
	got := fileurls(t, projectfile.NewWriter(), tr)
	if len(got) != 3 {
		t.Fatalf("fileurls = %v, want 3 entries", got)
	}
	for _, u := range got {
		if strings.Contains(u, "shop-7x.iml") {
			t.Errorf("unpackageable root listed: %s", u)
		}
	}
}

func TestFragmentInclude(t *testing.T) {
	w := projectfile.NewWriter()
	w.Include = func(m *buildgraph.Module) bool { return !strings.HasPrefix(m.Name, "shop:api") }
	got := fileurls(t, w, tree("/w"))
	want := []string{
		"file://$PROJECT_DIR$/web/shop-web-7x.iml",
		"file://$PROJECT_DIR$/shop-7x.iml",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fileurls = %v, want %v", got, want)
	}
}

func TestFragmentFilepathAttr(t *testing.T) {
	frag, err := projectfile.NewWriter().Fragment(tree("/w"))
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := frag.Attr("name"); name != "ProjectModuleManager" {
		t.Errorf("component name = %q", name)
	}
	first := frag.Child("modules").Children[0]
	if v, _ := first.Attr("filepath"); v != "$PROJECT_DIR$/web/shop-web-7x.iml" {
		t.Errorf("filepath = %q", v)
	}
}

func TestRenderMergesAsLastChild(t *testing.T) {
	data := render(t, projectfile.NewWriter(), tree("/w"))

	doc, err := xmldoc.Parse(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "project" {
		t.Fatalf("root = %q", doc.Name)
	}
	tmpl, err := xmldoc.Parse(bytes.NewReader(projectfile.DefaultTemplate()))
	if err != nil {
		t.Fatal(err)
	}

	// Template children survive in order; the fragment is appended last.
	if len(doc.Children) != len(tmpl.Children)+1 {
		t.Fatalf("root has %d children, want %d", len(doc.Children), len(tmpl.Children)+1)
	}
	for i, c := range tmpl.Children {
		if !reflect.DeepEqual(c, doc.Children[i]) {
			t.Errorf("child %d changed: %+v -> %+v", i, c, doc.Children[i])
		}
	}
	last := doc.Children[len(doc.Children)-1]
	if name, _ := last.Attr("name"); name != "ProjectModuleManager" {
		t.Errorf("last child = %q", name)
	}
}

func TestMergeRejectsBadTemplates(t *testing.T) {
	frag := xmldoc.New("component", "name", "ProjectModuleManager")
	for name, tmpl := range map[string]string{
		"empty":      "",
		"wrong root": `<module version="4"/>`,
		"malformed":  `<project><component></project>`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := projectfile.Merge([]byte(tmpl), frag); !errors.Is(err, projectfile.ErrMissingTemplate) {
				t.Errorf("Merge error = %v, want ErrMissingTemplate", err)
			}
		})
	}
}

func TestLoadTemplateMissing(t *testing.T) {
	_, err := projectfile.LoadTemplate(filepath.Join(t.TempDir(), "nope.ipr"))
	if !errors.Is(err, projectfile.ErrMissingTemplate) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadTemplate error = %v", err)
	}
}

func TestCustomTemplate(t *testing.T) {
	w := projectfile.NewWriter()
	w.Template = []byte(`<project version="4"><component name="Custom"/></project>`)
	s := render(t, w, tree("/w"))
	custom := strings.Index(s, `name="Custom"`)
	if custom < 0 || custom > strings.Index(s, `name="ProjectModuleManager"`) {
		t.Errorf("custom component not kept ahead of the module list:\n%s", s)
	}
}

func TestTemplateCommentsKept(t *testing.T) {
	w := projectfile.NewWriter()
	w.Template = []byte(`<project version="4">
  <!-- vcs settings are managed by hand -->
  <component name="VcsDirectoryMappings"/>
</project>`)
	s := render(t, w, tree("/w"))
	comment := strings.Index(s, "<!-- vcs settings are managed by hand -->")
	vcs := strings.Index(s, `name="VcsDirectoryMappings"`)
	if comment < 0 || comment > vcs {
		t.Errorf("template comment lost or moved:\n%s", s)
	}
}

func TestTemplatePathReadAtRender(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.ipr")
	w := projectfile.NewWriter()
	w.TemplatePath = path

	if _, err := w.Render(tree("/w")); !errors.Is(err, projectfile.ErrMissingTemplate) {
		t.Fatalf("missing template file: err = %v, want ErrMissingTemplate", err)
	}

	if err := os.WriteFile(path, []byte(`<project><component name="FromFile"/></project>`), 0o644); err != nil {
		t.Fatal(err)
	}
	if s := render(t, w, tree("/w")); !strings.Contains(s, `name="FromFile"`) {
		t.Errorf("template file not used:\n%s", s)
	}
}

func TestWriteIfStale(t *testing.T) {
	base := t.TempDir()
	tr := tree(base)
	w := projectfile.NewWriter()
	if want := filepath.Join(base, "shop-7x.ipr"); w.Path(tr) != want {
		t.Errorf("Path = %q, want %q", w.Path(tr), want)
	}

	write := func(inputs []string, want modulefile.Status) {
		t.Helper()
		status, err := w.WriteIfStale(tr, inputs)
		if err != nil {
			t.Fatalf("WriteIfStale: %v", err)
		}
		if status != want {
			t.Fatalf("status = %s, want %s", status, want)
		}
	}

	write(nil, modulefile.Written)
	first, err := os.ReadFile(w.Path(tr))
	if err != nil {
		t.Fatal(err)
	}
	write(nil, modulefile.UpToDate)

	// A trigger newer than the descriptor forces a byte-identical rewrite.
	w.Stale = staleness.New(staleness.Clock{
		w.Path(tr):  time.Unix(100, 0),
		"buildfile": time.Unix(200, 0),
	})
	write([]string{"buildfile"}, modulefile.Written)
	second, err := os.ReadFile(w.Path(tr))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("regeneration must be byte-identical")
	}
}

func TestWriteIfStaleBadTemplate(t *testing.T) {
	base := t.TempDir()
	w := projectfile.NewWriter()
	w.Template = []byte("not xml at all <")
	status, err := w.WriteIfStale(tree(base), nil)
	if status != modulefile.Failed || !errors.Is(err, projectfile.ErrMissingTemplate) {
		t.Errorf("WriteIfStale = %s, %v; want failed with ErrMissingTemplate", status, err)
	}
	if _, err := os.Stat(filepath.Join(base, "shop-7x.ipr")); !os.IsNotExist(err) {
		t.Errorf("descriptor written from a bad template: %v", err)
	}
}
