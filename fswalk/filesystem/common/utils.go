package common

import (
	"os"
	"path/filepath"
	"strings"
)

// PathUtils provides path manipulation utilities used across filesystem packages
type PathUtils struct{}

// NewPathUtils creates a new PathUtils instance
func NewPathUtils() *PathUtils {
	return &PathUtils{}
}

// NormalizePath converts a path to a clean absolute path
func (pu *PathUtils) NormalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// IsSubpath checks if child lies strictly below parent. Both paths are
// compared as given; callers canonicalise them first.
func (pu *PathUtils) IsSubpath(parent, child string) bool {
	if parent == "" || child == "" {
		return false
	}
	prefix := parent
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(child, prefix)
}

// RelativePath returns target relative to base, both assumed absolute
func (pu *PathUtils) RelativePath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}

// Depth counts the separators in a root-relative path. Entries directly
// under the root have depth 0.
func (pu *PathUtils) Depth(relPath string) int {
	if relPath == "" || relPath == "." {
		return 0
	}
	return strings.Count(filepath.Clean(relPath), string(os.PathSeparator))
}

// ToSlash returns a forward-slash form of a relative path for indexing
func (pu *PathUtils) ToSlash(relPath string) string {
	return filepath.ToSlash(relPath)
}
