// Package pathresolve turns absolute filesystem paths into the portable
// forms written to IDE descriptors.
//
// Everything here is string computation; nothing touches the filesystem.
// Returned paths always use forward slashes.
package pathresolve

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Tokens understood by the IDE. They must be reproduced exactly.
const (
	FileProtocol    = "file://"
	ModuleDir       = "$MODULE_DIR$"
	ProjectDir      = "$PROJECT_DIR$"
	RepositoryToken = "$M2_REPO$"

	ModuleDirURL  = FileProtocol + ModuleDir
	ProjectDirURL = FileProtocol + ProjectDir
)

// ErrInvalidRelativePath is returned when a path cannot be expressed
// relative to a base directory.
var ErrInvalidRelativePath = errors.New("invalid relative path")

// RelativePathError records which pair of paths failed to relativize.
type RelativePathError struct {
	Path string
	Base string
	Err  error
}

func (e *RelativePathError) Error() string {
	return fmt.Sprintf("%v: %s is not reachable from %s: %v", ErrInvalidRelativePath, e.Path, e.Base, e.Err)
}

func (e *RelativePathError) Unwrap() error { return ErrInvalidRelativePath }

// Relative returns path expressed relative to base.
func Relative(path, base string) (string, error) {
	if path == "" || base == "" {
		return "", &RelativePathError{Path: path, Base: base, Err: errors.New("empty path")}
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", &RelativePathError{Path: path, Base: base, Err: err}
	}
	return filepath.ToSlash(rel), nil
}

// Within reports whether path is dir or lies beneath it. An empty dir
// contains nothing.
func Within(path, dir string) bool {
	if dir == "" || path == "" {
		return false
	}
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return strings.HasPrefix(path, dir)
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// RepositoryPath replaces the repository root prefix of path with
// RepositoryToken. Paths outside the repository are returned unchanged.
func RepositoryPath(path, repository string) string {
	if !Within(path, repository) {
		return filepath.ToSlash(path)
	}
	rest := strings.TrimPrefix(filepath.Clean(path), filepath.Clean(repository))
	return join(RepositoryToken, strings.TrimPrefix(filepath.ToSlash(rest), "/"))
}

// ModulePath returns path relative to the module base dir, prefixed with the
// module-directory token: "$MODULE_DIR$/../lib/x.jar".
func ModulePath(path, base string) (string, error) {
	rel, err := Relative(path, base)
	if err != nil {
		return "", err
	}
	return join(ModuleDir, rel), nil
}

// ModuleURL is ModulePath with the file protocol in front:
// "file://$MODULE_DIR$/src/main/java".
func ModuleURL(path, base string) (string, error) {
	rel, err := Relative(path, base)
	if err != nil {
		return "", err
	}
	return join(ModuleDirURL, rel), nil
}

// ProjectPath joins a root-relative path onto the project-directory token.
func ProjectPath(rel string) string { return join(ProjectDir, rel) }

// ProjectURL joins a root-relative path onto the project-directory URL.
func ProjectURL(rel string) string { return join(ProjectDirURL, rel) }

// FileURL returns the file-protocol form of an absolute path. Used where a
// path may lie outside the module tree.
func FileURL(path string) string {
	return FileProtocol + filepath.ToSlash(path)
}

// JarURL wraps a library path for a CLASSES root.
func JarURL(path string) string {
	return "jar://" + path + "!/"
}

func join(token, rel string) string {
	if rel == "" || rel == "." {
		return token
	}
	return token + "/" + rel
}
