// Package flatten converts a document, a set of expanded paths and a search
// term into the ordered list of rows a tree view displays.
package flatten

import (
	"github.com/oakwood-commons/jvx/pkg/value"
)

// Row is one visible line of the tree.
type Row struct {
	// Path is the dotted key path from the root; "" for the root itself.
	Path string
	// Key is the last path segment, the label shown for the row.
	Key string
	// Value is the node at Path.
	Value value.Value
	// Level is the depth below the root (root = 0).
	Level int
	// IsExpandable is true for objects and arrays, empty or not.
	IsExpandable bool
	// Expanded is true when the row's children are part of the output. When
	// not searching it follows the expanded set, so an expanded empty object
	// or array is Expanded with no children.
	Expanded bool
}

// Flatten walks doc depth-first in document order and returns the visible
// rows. Composite children are visited when their parent is in expanded or a
// search is active. With a non-nil matcher only relevant paths (hits and
// their ancestors, see Relevant) are emitted; the root row is always first.
func Flatten(doc value.Value, expanded Paths, m *Matcher) []Row {
	w := walker{expanded: expanded}
	if m != nil {
		w.searching = true
		w.relevant = Relevant(doc, m)
	}
	w.walk(doc, RootPath, 0)
	return w.rows
}

type walker struct {
	expanded  Paths
	relevant  Paths
	searching bool
	rows      []Row
}

func (w *walker) isExpanded(path string) bool {
	return w.expanded != nil && w.expanded.Has(path)
}

func (w *walker) walk(v value.Value, path string, level int) {
	idx := len(w.rows)
	w.rows = append(w.rows, Row{
		Path:         path,
		Key:          LastSegment(path),
		Value:        v,
		Level:        level,
		IsExpandable: v.IsComposite(),
	})
	if !v.IsComposite() {
		return
	}
	expanded := w.isExpanded(path)
	if !expanded && !w.searching {
		return
	}
	v.Children(func(key string, child value.Value) bool {
		childPath := JoinPath(path, key)
		if !w.searching || w.relevant.Has(childPath) {
			w.walk(child, childPath, level+1)
		}
		return true
	})
	if w.searching {
		// A hit matched by its own path may have no relevant children.
		w.rows[idx].Expanded = len(w.rows) > idx+1
		return
	}
	w.rows[idx].Expanded = expanded
}

// Relevant returns the paths kept during a search: every node the matcher
// hits plus all of that node's ancestors, including the root.
func Relevant(doc value.Value, m *Matcher) Paths {
	out := NewPaths()
	if m == nil {
		return out
	}
	var stack []string
	var visit func(v value.Value, path string)
	visit = func(v value.Value, path string) {
		if m.Matches(path, v) {
			out.Add(path)
			// Ancestors are added as a chain, so stop at the first one
			// already present.
			for i := len(stack) - 1; i >= 0; i-- {
				if out.Has(stack[i]) {
					break
				}
				out.Add(stack[i])
			}
		}
		if !v.IsComposite() {
			return
		}
		stack = append(stack, path)
		v.Children(func(key string, child value.Value) bool {
			visit(child, JoinPath(path, key))
			return true
		})
		stack = stack[:len(stack)-1]
	}
	visit(doc, RootPath)
	return out
}

// CompositePaths returns the path of every object and array in doc.
func CompositePaths(doc value.Value) Paths {
	out := NewPaths()
	var visit func(v value.Value, path string)
	visit = func(v value.Value, path string) {
		if !v.IsComposite() {
			return
		}
		out.Add(path)
		v.Children(func(key string, child value.Value) bool {
			visit(child, JoinPath(path, key))
			return true
		})
	}
	visit(doc, RootPath)
	return out
}
