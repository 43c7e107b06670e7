package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"ideagen/internal/generate"
	"ideagen/internal/modulefile"
	"ideagen/internal/source"
	"ideagen/internal/workspace"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

var commands = []command{
	{
		name:  "init",
		short: "Create .ideagen/settings.yaml for a project",
		usage: "ideagen init [dir]",
		long: `Create <dir>/.ideagen/settings.yaml (dir defaults to ".").

Prompts for the local repository root and the descriptor name classifier.
Empty answers keep the defaults.

Errors if the settings file already exists.
`,
		run: runInit,
	},
	{
		name:  "generate",
		short: "Write IDE descriptors for every module in a build tree",
		usage: "ideagen generate [dir]",
		long: `Load the build tree rooted at dir (default ".") and write one module
descriptor (.iml) per packageable module plus the project descriptor (.ipr)
at the root. Files newer than every build input are left alone.

Every module is attempted; failures are reported together at the end.
`,
		run: runGenerate,
	},
	{
		name:  "module",
		short: "Write the IDE descriptor for one module",
		usage: "ideagen module <identity> [dir]",
		long: `Write the descriptor of the module with the given identity
(e.g. "shop:api"). For the root module the project descriptor is
written as well.
`,
		run: runModule,
	},
}

// sources is the registry of build-graph loaders, in detection order.
var sources = []source.Source{
	source.Manifest{},
	source.GoPackages{},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "ideagen: IDE project descriptor generation\n\n")
	fmt.Fprintf(w, "Usage:\n  ideagen <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'ideagen help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(w, "ideagen: unknown command %q\n\nRun 'ideagen help' for usage.\n", name)
		return
	}
	fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
}

func lookup(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func dispatch(args []string) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	switch name {
	case "", "-h", "--help":
		printUsage(os.Stdout)
		return nil
	case "help":
		if len(args) < 2 {
			printUsage(os.Stdout)
		} else {
			printCommandHelp(os.Stdout, args[1])
		}
		return nil
	}
	cmd, ok := lookup(name)
	if !ok {
		return fmt.Errorf("unknown command %q\n\nRun 'ideagen help' for usage.", name)
	}
	return cmd.run(args[1:])
}

func dirArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return "."
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func runInit(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: ideagen init [dir]")
	}
	root := dirArg(args, 0)
	if _, err := os.Stat(workspace.SettingsPath(root)); err == nil {
		return fmt.Errorf("workspace already initialised at %s", workspace.SettingsPath(root))
	}

	s, err := askSettings()
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	if err := workspace.Init(root, s); err != nil {
		return err
	}
	fmt.Printf("created %s\n", workspace.SettingsPath(root))
	return nil
}

// ---------------------------------------------------------------------------
// generate / module
// ---------------------------------------------------------------------------

func runGenerate(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: ideagen generate [dir]")
	}
	g, err := open(dirArg(args, 0))
	if err != nil {
		return err
	}
	report, err := g.All()
	printReport(os.Stdout, report)
	return err
}

func runModule(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: ideagen module <identity> [dir]")
	}
	g, err := open(dirArg(args, 1))
	if err != nil {
		return err
	}
	report, err := g.Module(args[0])
	if report != nil {
		printReport(os.Stdout, report)
	}
	return err
}

// open loads settings and the build tree under dir and returns a generator
// configured from them.
func open(dir string) (*generate.Generator, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	settings, err := workspace.Load(root)
	if err != nil {
		return nil, err
	}
	src, err := source.Select(settings.SourceName(), root, sources)
	if err != nil {
		return nil, err
	}
	tree, err := src.Load(root)
	if err != nil {
		return nil, err
	}
	if tree.Repository, err = settings.ResolveRepository(tree.Repository); err != nil {
		return nil, err
	}

	opts := generate.Options{
		Classifier: settings.ClassifierOr(modulefile.DefaultClassifier),
		Skip:       settings.IsSkipped,
		Log:        log.New(os.Stdout, "", 0),
	}
	// Settings and template changes make every descriptor stale. The
	// template is read when the project descriptor is rendered.
	if _, err := os.Stat(workspace.SettingsPath(root)); err == nil {
		tree.Inputs = append(tree.Inputs, workspace.SettingsPath(root))
	}
	if path := settings.TemplatePath(root); path != "" {
		opts.TemplatePath = path
		tree.Inputs = append(tree.Inputs, path)
	}
	return generate.New(tree, opts), nil
}

// printReport writes a summary of a generation run.
func printReport(w io.Writer, r *generate.Report) {
	for _, s := range []modulefile.Status{modulefile.Written, modulefile.UpToDate, modulefile.Skipped} {
		names := r.Names(s)
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d):\n", s, len(names))
		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	for _, res := range r.Modules {
		if res.Err != nil {
			fmt.Fprintf(w, "failed: %s\n", res.Module)
		}
	}
	if r.Project != nil {
		fmt.Fprintf(w, "project %s: %s\n", r.Project.Path, r.Project.Status)
	}
}

func main() {
	// A missing .env is fine; only IDEAGEN_* variables are read from it.
	_ = godotenv.Load()
	if err := dispatch(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
