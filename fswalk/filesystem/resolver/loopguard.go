package resolver

import (
	"fmt"
	"path/filepath"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
)

// LoopGuard rejects symlinked directories that resolve to one of their own
// ancestors. Following such a link would descend forever.
type LoopGuard struct {
	paths *common.PathUtils
}

// NewLoopGuard creates a loop guard
func NewLoopGuard() *LoopGuard {
	return &LoopGuard{paths: common.NewPathUtils()}
}

// Check returns a RECURSIVE WalkError when fullPath lies inside realPath.
// Both paths must be canonical.
func (g *LoopGuard) Check(fullPath, realPath string) error {
	full := filepath.Clean(fullPath)
	real := filepath.Clean(realPath)
	if !g.paths.IsSubpath(real, full) {
		return nil
	}
	return &common.WalkError{
		Op:   "realpath",
		Path: full,
		Code: common.CodeCircularSymlink,
		Err:  fmt.Errorf("%w: %q points to %q", common.ErrCircularSymlink, full, real),
	}
}
