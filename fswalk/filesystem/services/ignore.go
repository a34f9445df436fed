package services

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/lister"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreChecker interface for file ignore patterns
type IgnoreChecker interface {
	MatchesPath(path string) bool
}

// IgnoreScope holds the ignore patterns found in one directory and the
// scopes inherited from its ancestors.
type IgnoreScope struct {
	dir     string
	checker IgnoreChecker
	parent  *IgnoreScope
}

// NewIgnoreScope creates a scope rooted at dir
func NewIgnoreScope(dir string, checker IgnoreChecker, parent *IgnoreScope) *IgnoreScope {
	return &IgnoreScope{dir: dir, checker: checker, parent: parent}
}

// Ignored reports whether any scope in the chain matches fullPath. Each
// scope matches the path relative to its own directory.
func (s *IgnoreScope) Ignored(fullPath string, isDir bool) bool {
	for scope := s; scope != nil; scope = scope.parent {
		rel, err := filepath.Rel(scope.dir, fullPath)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if scope.checker.MatchesPath(rel) {
			return true
		}
		// "name/" patterns only match directories
		if isDir && scope.checker.MatchesPath(rel+"/") {
			return true
		}
	}
	return false
}

// IgnoreLoader reads per-directory ignore files with gitignore syntax
type IgnoreLoader struct {
	name string
	stat func(string) (fs.FileInfo, error)
}

// NewIgnoreLoader creates a loader for files called name. An empty name
// disables ignore handling.
func NewIgnoreLoader(name string) *IgnoreLoader {
	return &IgnoreLoader{name: name, stat: os.Stat}
}

// Enabled reports whether an ignore file name is configured
func (l *IgnoreLoader) Enabled() bool {
	return l != nil && l.name != ""
}

// Name returns the configured ignore file name
func (l *IgnoreLoader) Name() string {
	return l.name
}

// Listed reports whether a directory listing contains the ignore file.
// Directories without one inherit their parent's scope without a stat.
func (l *IgnoreLoader) Listed(raw []lister.RawEntry) bool {
	if !l.Enabled() {
		return false
	}
	for _, r := range raw {
		if r.Name == l.name {
			return true
		}
	}
	return false
}

// Load returns the scope that applies to the children of dir: parent,
// extended with dir's own ignore file when one exists.
func (l *IgnoreLoader) Load(dir string, parent *IgnoreScope) (*IgnoreScope, error) {
	if !l.Enabled() {
		return parent, nil
	}

	ignorePath := filepath.Join(dir, l.name)
	info, err := l.stat(ignorePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return parent, nil
		}
		return parent, common.NewWalkError("ignore", ignorePath, err)
	}
	if info.IsDir() {
		return parent, nil
	}

	compiled, err := ignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		return parent, common.NewWalkError("ignore", ignorePath, err)
	}
	return NewIgnoreScope(dir, compiled, parent), nil
}
