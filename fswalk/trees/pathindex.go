package trees

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/armon/go-radix"
)

// PathIndexStats tracks usage of the path index
type PathIndexStats struct {
	TotalEntries     int64
	PathLookups      int64
	PrefixLookups    int64
	Insertions       int64
	Deletions        int64
	AveragePathDepth float64
}

// PathIndex stores traversal entries in a compressed trie (patricia tree)
// keyed by their slash-separated path relative to the traversal root.
// Lookups cost O(k) in the length of the path. Walks visit keys in
// lexicographic order.
type PathIndex struct {
	tree       *radix.Tree
	mu         sync.RWMutex
	stats      PathIndexStats
	depthTotal int64
}

// NewPathIndex creates an empty path index
func NewPathIndex() *PathIndex {
	return &PathIndex{tree: radix.New()}
}

// Insert adds or replaces the entry stored under its relative path
func (idx *PathIndex) Insert(entry types.Entry) error {
	key := normalizePath(entry.Path)
	if key == "" {
		return fmt.Errorf("invalid input: entry %q has no relative path", entry.FullPath)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, updated := idx.tree.Insert(key, entry); !updated {
		idx.stats.TotalEntries++
		idx.depthTotal += int64(strings.Count(key, "/") + 1)
	}
	idx.stats.Insertions++
	idx.updateAverageDepth()
	return nil
}

// Lookup finds an entry by its exact relative path
func (idx *PathIndex) Lookup(path string) (types.Entry, bool) {
	key := normalizePath(path)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.stats.PathLookups++

	value, found := idx.tree.Get(key)
	if !found {
		return types.Entry{}, false
	}
	return value.(types.Entry), true
}

// PrefixLookup returns every entry below the directory at prefix, in key
// order. The directory itself is not included. An empty prefix returns
// all entries.
func (idx *PathIndex) PrefixLookup(prefix string) []types.Entry {
	key := normalizePath(prefix)
	if key != "" {
		key += "/"
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.stats.PrefixLookups++

	var results []types.Entry
	idx.tree.WalkPrefix(key, func(_ string, value interface{}) bool {
		results = append(results, value.(types.Entry))
		return false
	})
	return results
}

// Children returns the direct children of the directory at parent, in key
// order. An empty parent lists the root's children.
func (idx *PathIndex) Children(parent string) []types.Entry {
	prefix := normalizePath(parent)
	if prefix != "" {
		prefix += "/"
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var children []types.Entry
	idx.tree.WalkPrefix(prefix, func(key string, value interface{}) bool {
		remaining := strings.TrimPrefix(key, prefix)
		if remaining != "" && !strings.Contains(remaining, "/") {
			children = append(children, value.(types.Entry))
		}
		return false
	})
	return children
}

// Remove deletes the entry stored under path
func (idx *PathIndex) Remove(path string) bool {
	key := normalizePath(path)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, deleted := idx.tree.Delete(key)
	if deleted {
		idx.stats.TotalEntries--
		idx.depthTotal -= int64(strings.Count(key, "/") + 1)
	}
	idx.stats.Deletions++
	idx.updateAverageDepth()
	return deleted
}

// Len returns the number of indexed entries
func (idx *PathIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}

// Walk calls fn for each entry in key order until fn returns true
func (idx *PathIndex) Walk(fn func(path string, entry types.Entry) bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.tree.Walk(func(key string, value interface{}) bool {
		return fn(key, value.(types.Entry))
	})
}

// Stats returns a copy of the current index statistics
func (idx *PathIndex) Stats() PathIndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.stats
}

// called with mu held
func (idx *PathIndex) updateAverageDepth() {
	if idx.stats.TotalEntries == 0 {
		idx.stats.AveragePathDepth = 0
		return
	}
	idx.stats.AveragePathDepth = float64(idx.depthTotal) / float64(idx.stats.TotalEntries)
}

// normalizePath turns a relative path into an index key: slash separated,
// cleaned, without leading or trailing slashes. The root maps to "".
func normalizePath(path string) string {
	normalized := filepath.ToSlash(filepath.Clean(strings.ReplaceAll(path, "\\", "/")))
	normalized = strings.Trim(normalized, "/")
	if normalized == "." {
		return ""
	}
	return normalized
}
