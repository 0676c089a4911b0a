// Package vlist is a virtualized list for the terminal: it knows the total row
// count and a cursor, and asks a callback to render only the rows inside the
// viewport plus an overscan margin. Every row is one line tall.
package vlist

import (
	"strings"
)

// RowRenderer renders row index at the given width. Only the first line of the
// result is shown.
type RowRenderer func(index int, selected bool, width int) string

// Model tracks the viewport over a list of count rows.
type Model struct {
	render RowRenderer

	count    int
	cursor   int
	top      int
	width    int
	height   int // viewport height in lines
	overscan int

	// cache holds unselected renderings of materialized rows.
	cache map[int]string
}

// Option configures a Model.
type Option func(*Model)

// WithOverscan sets how many rows beyond the viewport are rendered ahead of
// scrolling.
func WithOverscan(n int) Option {
	return func(m *Model) {
		if n >= 0 {
			m.overscan = n
		}
	}
}

// New returns a list that renders rows with render.
func New(render RowRenderer, opts ...Option) *Model {
	m := &Model{render: render, width: 80, height: 10, cache: map[int]string{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetCount sets the number of rows, keeping the cursor in range. Rows may
// have changed, so cached renderings are dropped.
func (m *Model) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	m.count = n
	m.clamp()
	m.Invalidate()
}

// Invalidate drops every cached row rendering.
func (m *Model) Invalidate() { clear(m.cache) }

// Count returns the number of rows.
func (m *Model) Count() int { return m.count }

// SetSize sets the viewport size in cells.
func (m *Model) SetSize(width, height int) {
	if width != m.width {
		m.Invalidate()
	}
	m.width = width
	m.height = max(height, 1)
	m.clamp()
}

// Width returns the viewport width.
func (m *Model) Width() int { return m.width }

// Height returns the viewport height in lines.
func (m *Model) Height() int { return m.height }

// PageSize is the number of rows that fit in the viewport.
func (m *Model) PageSize() int {
	return m.height
}

// Cursor returns the selected index, or 0 for an empty list.
func (m *Model) Cursor() int { return m.cursor }

// Top returns the index of the first visible row.
func (m *Model) Top() int { return m.top }

// SetCursor selects row i, clamped to the list, and scrolls it into view.
func (m *Model) SetCursor(i int) {
	m.cursor = i
	m.clamp()
}

// MoveUp moves the cursor n rows up.
func (m *Model) MoveUp(n int) { m.SetCursor(m.cursor - n) }

// MoveDown moves the cursor n rows down.
func (m *Model) MoveDown(n int) { m.SetCursor(m.cursor + n) }

// PageUp moves the cursor one page up.
func (m *Model) PageUp() { m.MoveUp(m.PageSize()) }

// PageDown moves the cursor one page down.
func (m *Model) PageDown() { m.MoveDown(m.PageSize()) }

// GoTop selects the first row.
func (m *Model) GoTop() { m.SetCursor(0) }

// GoBottom selects the last row.
func (m *Model) GoBottom() { m.SetCursor(m.count - 1) }

func (m *Model) clamp() {
	if m.count == 0 {
		m.cursor, m.top = 0, 0
		return
	}
	if m.cursor >= m.count {
		m.cursor = m.count - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	page := m.PageSize()
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if m.cursor >= m.top+page {
		m.top = m.cursor - page + 1
	}
	// Do not leave blank space below the last row when the list shrinks.
	if maxTop := m.count - page; m.top > maxTop {
		m.top = max(maxTop, 0)
	}
}

// Visible returns the half-open range of rows inside the viewport.
func (m *Model) Visible() (start, end int) {
	return m.top, min(m.top+m.PageSize(), m.count)
}

// Materialized returns the visible range widened by the overscan margin,
// clamped to the list.
func (m *Model) Materialized() (start, end int) {
	start, end = m.Visible()
	return max(start-m.overscan, 0), min(end+m.overscan, m.count)
}

// View renders the visible rows, padded to the viewport height. Rows in the
// overscan margin are rendered too and kept until they leave the materialized
// range, so scrolling a few rows reuses them.
func (m *Model) View() string {
	start, end := m.Materialized()
	for i := range m.cache {
		if i < start || i >= end {
			delete(m.cache, i)
		}
	}
	visStart, visEnd := m.Visible()
	lines := make([]string, 0, m.height)
	for i := start; i < end; i++ {
		text := m.row(i)
		if i >= visStart && i < visEnd {
			lines = append(lines, text)
		}
	}
	for len(lines) < m.height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// row returns the first line of row i, rendering the cursor row fresh.
func (m *Model) row(i int) string {
	if m.render == nil {
		return ""
	}
	if i == m.cursor {
		return firstLine(m.render(i, true, m.width))
	}
	if text, ok := m.cache[i]; ok {
		return text
	}
	text := firstLine(m.render(i, false, m.width))
	m.cache[i] = text
	return text
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
