package flatten

import (
	"sort"
	"strings"

	"github.com/creachadair/mds/mapset"
)

// Paths is a set of dotted paths.
type Paths = mapset.Set[string]

// NewPaths returns a set holding the given paths.
func NewPaths(paths ...string) Paths { return mapset.New(paths...) }

// RootPath is the path of the document root.
const RootPath = ""

// JoinPath appends key to parent. Children of the root have the bare key as
// their path.
func JoinPath(parent, key string) string {
	if parent == RootPath {
		return key
	}
	return parent + "." + key
}

// ParentPath returns the path one level up. The parent of a top-level key and
// of the root is the root.
func ParentPath(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return RootPath
}

// LastSegment returns the final key of path, the label a row displays.
func LastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Sorted returns the members of p in lexical order.
func Sorted(p Paths) []string {
	out := make([]string, 0, len(p))
	for path := range p {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
