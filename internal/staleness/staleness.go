// Package staleness decides whether a generated file must be rewritten.
//
// A target is stale when it does not exist or when any input has a
// modification time strictly newer than the target's. Inputs that do not
// exist are ignored.
package staleness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// FileTimes reports modification times. ModTime returns an error satisfying
// errors.Is(err, fs.ErrNotExist) for missing files.
type FileTimes interface {
	ModTime(path string) (time.Time, error)
}

// OS reads modification times from the local filesystem.
type OS struct{}

func (OS) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Checker applies the staleness rule.
type Checker struct {
	Files FileTimes
}

// New returns a Checker over files; nil means the local filesystem.
func New(files FileTimes) *Checker {
	if files == nil {
		files = OS{}
	}
	return &Checker{Files: files}
}

// Stale reports whether target must be regenerated from inputs.
func (c *Checker) Stale(target string, inputs []string) (bool, error) {
	targetTime, err := c.Files.ModTime(target)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", target, err)
	}
	for _, in := range inputs {
		t, err := c.Files.ModTime(in)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", in, err)
		}
		if t.After(targetTime) {
			return true, nil
		}
	}
	return false, nil
}

// Clock is an in-memory FileTimes for callers that track times themselves.
type Clock map[string]time.Time

func (c Clock) ModTime(path string) (time.Time, error) {
	t, ok := c[path]
	if !ok {
		return time.Time{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return t, nil
}

// Touch sets path's time.
func (c Clock) Touch(path string, t time.Time) { c[path] = t }
