// Package workspace manages the .ideagen/ directory at a project root.
//
// Directory layout:
//
//	<root>/.ideagen/
//	    settings.yaml            # generator settings, all fields optional
//
// The settings file controls where the local artifact repository lives,
// which name classifier descriptors carry, an alternate project template,
// and which modules get no descriptor at all.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the workspace directory name under the project root.
	Dir = ".ideagen"
	// SettingsFile is the settings file name inside Dir.
	SettingsFile = "settings.yaml"
	// RepositoryEnv overrides every other repository setting.
	RepositoryEnv = "IDEAGEN_REPOSITORY"
)

// Settings holds generator configuration from .ideagen/settings.yaml.
type Settings struct {
	// Source forces a build-graph loader by name ("manifest", "go").
	Source string `yaml:"source,omitempty"`
	// Repository is the local artifact repository root.
	Repository string `yaml:"repository,omitempty"`
	// Classifier is appended to descriptor names ("-7x").
	Classifier string `yaml:"classifier,omitempty"`
	// Template is a path to an alternate project template, relative to
	// the project root.
	Template string `yaml:"template,omitempty"`
	// Skip lists module patterns that get no descriptor. Identities are
	// matched with ':' read as '/'. Patterns may be bare globs or wrapped
	// in Skip(...).
	// Example: ["Skip(shop/legacy/**)"]
	Skip []string `yaml:"skip,omitempty"`
}

// SettingsPath returns root/.ideagen/settings.yaml.
func SettingsPath(root string) string {
	return filepath.Join(root, Dir, SettingsFile)
}

// Load reads .ideagen/settings.yaml relative to root.
// Returns nil (not an error) if the file does not exist.
func Load(root string) (*Settings, error) {
	path := SettingsPath(root)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &s, nil
}

// Init writes root/.ideagen/settings.yaml and errors if it already exists.
func Init(root string, s Settings) error {
	path := SettingsPath(root)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("workspace already initialised at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// IsSkipped reports whether the module identity matches any skip rule.
// Safe to call on a nil *Settings receiver.
func (s *Settings) IsSkipped(module string) bool {
	if s == nil {
		return false
	}
	path := strings.ReplaceAll(module, ":", "/")
	for _, rule := range s.Skip {
		if matchSkipPattern(parseSkipRule(rule), path) {
			return true
		}
	}
	return false
}

// ResolveRepository picks the repository root: environment, then settings,
// then the build graph's own value, then ~/.m2/repository.
func (s *Settings) ResolveRepository(fromGraph string) (string, error) {
	if v := os.Getenv(RepositoryEnv); v != "" {
		return expandHome(v)
	}
	if s != nil && s.Repository != "" {
		return expandHome(s.Repository)
	}
	if fromGraph != "" {
		return fromGraph, nil
	}
	return expandHome("~/.m2/repository")
}

// ClassifierOr returns the configured classifier or def.
func (s *Settings) ClassifierOr(def string) string {
	if s == nil || s.Classifier == "" {
		return def
	}
	return s.Classifier
}

// TemplatePath returns the absolute template path, or "" when unset.
func (s *Settings) TemplatePath(root string) string {
	if s == nil || s.Template == "" {
		return ""
	}
	if filepath.IsAbs(s.Template) {
		return s.Template
	}
	return filepath.Join(root, s.Template)
}

// SourceName returns the forced loader name, or "" for auto-detection.
func (s *Settings) SourceName() string {
	if s == nil {
		return ""
	}
	return s.Source
}

// parseSkipRule extracts the glob from a skip rule.
//
//	"Skip(./shop/legacy/**)" → "shop/legacy/**"
//	"shop/legacy/**"         → "shop/legacy/**"
func parseSkipRule(rule string) string {
	if strings.HasPrefix(rule, "Skip(") && strings.HasSuffix(rule, ")") {
		rule = rule[5 : len(rule)-1]
	}
	return strings.TrimPrefix(rule, "./")
}

// matchSkipPattern reports whether path matches a skip glob pattern.
//
// "prefix/**" matches the prefix itself and every path beneath it.
// All other patterns use filepath.Match semantics (single * does not cross /).
func matchSkipPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	matched, _ := filepath.Match(pattern, path)
	return matched
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
