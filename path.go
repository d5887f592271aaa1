package dok

import (
	"path"
	"strings"
)

// CleanPath normalizes p to an absolute '/'-rooted path without a trailing slash.
// An empty path is the root. Spaces are part of names and are kept.
func CleanPath(p string) string {
	return path.Clean("/" + p)
}

// ParentDir returns the directory containing p. The parent of root is root.
func ParentDir(p string) string {
	return path.Dir(CleanPath(p))
}

// JoinPath returns the path of a child called name inside dir
func JoinPath(dir, name string) string {
	dir = CleanPath(dir)
	if dir == RootPath {
		return RootPath + name
	}
	return dir + "/" + name
}

// IsWithin reports whether p is root itself or lies strictly below root
func IsWithin(p, root string) bool {
	if p == root {
		return true
	}
	if root == RootPath {
		return strings.HasPrefix(p, RootPath)
	}
	return strings.HasPrefix(p, root+"/")
}

// Rebase rewrites p, which must be within oldRoot, to the same relative location under newRoot
func Rebase(p, oldRoot, newRoot string) string {
	if p == oldRoot {
		return newRoot
	}
	return newRoot + strings.TrimPrefix(p, oldRoot)
}
