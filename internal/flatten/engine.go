package flatten

import (
	"github.com/oakwood-commons/jvx/pkg/value"
)

// Engine owns the view state of one tree: the current document, the expanded
// set and the search term. Rows are recomputed only when one of those three
// changes. An Engine is not safe for concurrent use.
type Engine struct {
	doc    value.Value
	hasDoc bool
	docGen uint64

	expanded Paths
	expGen   uint64

	mode      InvalidPatternMode
	search    string
	matcher   *Matcher
	searchErr error

	memo memo
}

type memoKey struct {
	doc    uint64
	exp    uint64
	search string
}

type memo struct {
	valid bool
	key   memoKey
	rows  []Row
	index map[string]int
}

// Option configures an Engine.
type Option func(*Engine)

// WithInvalidPatternMode sets how search terms that fail to compile are
// handled.
func WithInvalidPatternMode(mode InvalidPatternMode) Option {
	return func(e *Engine) { e.mode = mode }
}

// WithExpanded seeds the expanded set.
func WithExpanded(paths ...string) Option {
	return func(e *Engine) { e.expanded = NewPaths(paths...) }
}

// NewEngine returns an engine with no document, nothing expanded and no
// search.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{expanded: NewPaths(), mode: InvalidPatternLiteral}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetDocument replaces the document. The expanded set and search term are
// kept; paths that no longer exist simply never match.
func (e *Engine) SetDocument(doc value.Value) {
	e.doc = doc
	e.hasDoc = true
	e.docGen++
}

// ClearDocument removes the document; Rows returns nothing until a new one is
// set.
func (e *Engine) ClearDocument() {
	e.doc = value.Value{}
	e.hasDoc = false
	e.docGen++
}

// HasDocument reports whether a document is loaded.
func (e *Engine) HasDocument() bool { return e.hasDoc }

// Toggle flips path's membership in the expanded set and reports whether it
// is now expanded.
func (e *Engine) Toggle(path string) bool {
	if e.expanded.Has(path) {
		e.expanded.Remove(path)
		e.expGen++
		return false
	}
	e.expanded.Add(path)
	e.expGen++
	return true
}

// Expand adds path to the expanded set. It reports whether the set changed.
func (e *Engine) Expand(path string) bool {
	if e.expanded.Has(path) {
		return false
	}
	e.Toggle(path)
	return true
}

// Collapse removes path from the expanded set. It reports whether the set
// changed.
func (e *Engine) Collapse(path string) bool {
	if !e.expanded.Has(path) {
		return false
	}
	e.Toggle(path)
	return true
}

// ExpandAll expands every object and array in the current document.
func (e *Engine) ExpandAll() {
	if !e.hasDoc {
		return
	}
	e.expanded = CompositePaths(e.doc)
	e.expGen++
}

// CollapseAll empties the expanded set.
func (e *Engine) CollapseAll() {
	e.expanded = NewPaths()
	e.expGen++
}

// IsExpanded reports whether path is in the expanded set.
func (e *Engine) IsExpanded(path string) bool { return e.expanded.Has(path) }

// SetSearch changes the search term. An empty term clears the filter. With
// InvalidPatternError a term that fails to compile is kept as typed, filtering
// is disabled and the compile error is returned (and reported by
// SearchError).
func (e *Engine) SetSearch(term string) error {
	m, err := CompileSearch(term, e.mode)
	e.search = term
	e.matcher = m
	e.searchErr = err
	return err
}

// Search returns the current term as typed.
func (e *Engine) Search() string { return e.search }

// Searching reports whether a filter is active.
func (e *Engine) Searching() bool { return e.matcher != nil }

// SearchError returns the compile error for the current term, if any.
func (e *Engine) SearchError() error { return e.searchErr }

// SearchNotice returns a short status line describing how the current term
// is applied, or "" when it is used as a regular expression.
func (e *Engine) SearchNotice() string {
	switch {
	case e.searchErr != nil:
		return e.searchErr.Error()
	case e.matcher.Literal():
		return "invalid pattern, matching as plain text"
	}
	return ""
}

// Rows returns the flattened rows for the current state. The slice is shared
// until the next change and must not be modified.
func (e *Engine) Rows() []Row {
	if !e.hasDoc {
		return nil
	}
	key := memoKey{doc: e.docGen, exp: e.expGen, search: e.search}
	if e.memo.valid && e.memo.key == key {
		return e.memo.rows
	}
	e.memo = memo{valid: true, key: key, rows: Flatten(e.doc, e.expanded, e.matcher)}
	return e.memo.rows
}

// Len returns the number of rows.
func (e *Engine) Len() int { return len(e.Rows()) }

// RowAt returns row i, or false when i is out of range.
func (e *Engine) RowAt(i int) (Row, bool) {
	rows := e.Rows()
	if i < 0 || i >= len(rows) {
		return Row{}, false
	}
	return rows[i], true
}

// IndexOf returns the row index of path, or -1 when it is not visible.
func (e *Engine) IndexOf(path string) int {
	rows := e.Rows()
	if rows == nil {
		return -1
	}
	if e.memo.index == nil {
		e.memo.index = make(map[string]int, len(rows))
		for i, r := range rows {
			e.memo.index[r.Path] = i
		}
	}
	if i, ok := e.memo.index[path]; ok {
		return i
	}
	return -1
}
