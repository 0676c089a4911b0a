// Package ui is the interactive terminal viewer: a bubbletea model that pages
// through the rows of a flatten.Engine with a search bar and status line.
package ui

import (
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/jvx/internal/flatten"
	"github.com/oakwood-commons/jvx/internal/formatter"
	"github.com/oakwood-commons/jvx/internal/ui/vlist"
	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/value"
)

// chromeLines is the header, search bar and status line.
const chromeLines = 3

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

// DocumentMsg replaces the viewed document. Err set means the new input could
// not be loaded and the document is cleared.
type DocumentMsg struct {
	Doc    value.Value
	Err    error
	Source string
}

// Options configures a Model.
type Options struct {
	AppName       string
	Source        string // shown in the header
	KeyMode       KeyMode
	Theme         *Theme // nil selects PlainTheme
	NoColor       bool
	Indent        int
	Overscan      int
	MaxValueWidth int
	Logger        logr.Logger
}

// Model is the terminal viewer state. All engine access happens on the
// bubbletea update loop.
type Model struct {
	engine *flatten.Engine
	list   *vlist.Model
	input  textinput.Model

	appName       string
	source        string
	keyMode       KeyMode
	bindings      map[string]Action
	pendingKey    string
	theme         Theme
	noColor       bool
	indent        int
	maxValueWidth int
	log           logr.Logger

	width, height int
	searching     bool
	helpVisible   bool
	quitting      bool

	status     string
	statusKind statusKind
	loadErr    string
}

// NewModel returns a viewer over engine.
func NewModel(engine *flatten.Engine, opts Options) *Model {
	if engine == nil {
		engine = flatten.NewEngine()
	}
	mode := opts.KeyMode
	if !IsValidKeyMode(string(mode)) {
		mode = DefaultKeyMode
	}
	theme := PlainTheme()
	if opts.Theme != nil && !opts.NoColor {
		theme = *opts.Theme
	}
	indent := opts.Indent
	if indent <= 0 {
		indent = 2
	}
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = "jvx"
	}
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	ti := textinput.New()
	ti.Placeholder = "regular expression"
	ti.CharLimit = 500
	ti.SetWidth(80) // Initial width, adjusted in setSize
	ti.Prompt = "/"

	m := &Model{
		engine:        engine,
		input:         ti,
		appName:       appName,
		source:        opts.Source,
		keyMode:       mode,
		bindings:      Bindings(mode),
		theme:         theme,
		noColor:       opts.NoColor,
		indent:        indent,
		maxValueWidth: opts.MaxValueWidth,
		log:           log,
	}
	m.list = vlist.New(m.renderRow, vlist.WithOverscan(opts.Overscan))
	m.setSize(80, 24)
	m.refresh("")
	return m
}

// Engine returns the engine the model drives.
func (m *Model) Engine() *flatten.Engine { return m.engine }

// Cursor returns the selected row index.
func (m *Model) Cursor() int { return m.list.Cursor() }

// Selected returns the selected row.
func (m *Model) Selected() (flatten.Row, bool) { return m.engine.RowAt(m.list.Cursor()) }

// Status returns the status line text.
func (m *Model) Status() string { return m.status }

// HelpVisible reports whether the help overlay is shown.
func (m *Model) HelpVisible() bool { return m.helpVisible }

// SetHelpVisible shows or hides the help overlay.
func (m *Model) SetHelpVisible(v bool) { m.helpVisible = v }

// Searching reports whether the search input has focus.
func (m *Model) Searching() bool { return m.searching }

// Quitting reports whether the model asked to quit.
func (m *Model) Quitting() bool { return m.quitting }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil
	case DocumentMsg:
		m.ApplyDocument(msg)
		return m, nil
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	if m.searching {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()
	if keyStr == "ctrl+c" {
		return m.quit()
	}

	// Help is modal: close keys hide it, everything else is ignored.
	if m.helpVisible {
		switch m.bindings[keyStr] {
		case ActionHelp, ActionQuit, ActionClearSearch:
			m.helpVisible = false
		}
		return m, nil
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	action := m.resolveKey(keyStr)
	if action != ActionNone {
		m.log.V(1).Info("key", "key", keyStr, "action", string(action))
	}
	return m.execute(action)
}

func (m *Model) handleSearchKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "down", "up":
		m.searching = false
		m.input.Blur()
		return m, nil
	case "esc", "ctrl+g":
		m.searching = false
		m.input.Blur()
		m.input.SetValue("")
		m.applySearch("")
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.engine.Search() {
		m.applySearch(m.input.Value())
	}
	return m, cmd
}

func (m *Model) execute(action Action) (tea.Model, tea.Cmd) {
	switch action {
	case ActionDown:
		m.list.MoveDown(1)
	case ActionUp:
		m.list.MoveUp(1)
	case ActionPageDown:
		m.list.PageDown()
	case ActionPageUp:
		m.list.PageUp()
	case ActionTop:
		m.list.GoTop()
	case ActionBottom:
		m.list.GoBottom()
	case ActionToggle:
		if row, ok := m.Selected(); ok && row.IsExpandable {
			m.engine.Toggle(row.Path)
			m.refresh(row.Path)
		}
	case ActionExpand:
		m.expandSelected()
	case ActionCollapse:
		m.collapseSelected()
	case ActionExpandAll:
		path := m.selectedPath()
		m.engine.ExpandAll()
		m.refresh(path)
	case ActionCollapseAll:
		m.engine.CollapseAll()
		m.refresh(flatten.RootPath)
	case ActionSearch:
		m.searching = true
		m.input.SetValue(m.engine.Search())
		m.input.CursorEnd()
		return m, m.input.Focus()
	case ActionClearSearch:
		if m.engine.Search() != "" {
			m.input.SetValue("")
			m.applySearch("")
		}
	case ActionCopyValue:
		m.copySelected("value")
	case ActionCopyPath:
		m.copySelected("path")
	case ActionCopyKey:
		m.copySelected("key")
	case ActionHelp:
		m.helpVisible = true
	case ActionQuit:
		return m.quit()
	case ActionNone, ActionPendingG:
	}
	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) selectedPath() string {
	if row, ok := m.Selected(); ok {
		return row.Path
	}
	return flatten.RootPath
}

// expandSelected opens a collapsed row, or steps onto the first child of an
// open one.
func (m *Model) expandSelected() {
	row, ok := m.Selected()
	if !ok || !row.IsExpandable {
		return
	}
	if !row.Expanded {
		m.engine.Expand(row.Path)
		m.refresh(row.Path)
		return
	}
	if row.Value.Len() > 0 {
		m.list.MoveDown(1)
	}
}

// collapseSelected closes an open row, or jumps to the parent row.
func (m *Model) collapseSelected() {
	row, ok := m.Selected()
	if !ok {
		return
	}
	if row.IsExpandable && m.engine.IsExpanded(row.Path) {
		m.engine.Collapse(row.Path)
		m.refresh(row.Path)
		return
	}
	if row.Path == flatten.RootPath {
		return
	}
	if i := m.engine.IndexOf(flatten.ParentPath(row.Path)); i >= 0 {
		m.list.SetCursor(i)
	}
}

func (m *Model) copySelected(what string) {
	row, ok := m.Selected()
	if !ok {
		m.setStatus(statusError, "nothing to copy")
		return
	}
	text, err := formatter.CopyText(row, what)
	if err == nil {
		err = CopyToClipboard(text)
	}
	if err != nil {
		m.log.Error(err, "copy failed", "what", what, "path", row.Path)
		m.setStatus(statusError, fmt.Sprintf("copy failed: %v", err))
		return
	}
	m.setStatus(statusSuccess, fmt.Sprintf("copied %s: %s", what, formatter.Truncate(oneLine(text), 60)))
}

func (m *Model) applySearch(term string) {
	path := m.selectedPath()
	err := m.engine.SetSearch(term)
	m.refresh(path)
	switch notice := m.engine.SearchNotice(); {
	case err != nil:
		m.setStatus(statusError, notice)
	case notice != "":
		m.setStatus(statusInfo, notice)
	case term != "":
		m.setStatus(statusInfo, fmt.Sprintf("%d rows match %q", m.engine.Len(), term))
	default:
		m.setStatus(statusInfo, "")
	}
}

// ApplyDocument replaces the document, or clears it when msg carries an
// error. Expanded paths and the search term survive a replacement.
func (m *Model) ApplyDocument(msg DocumentMsg) {
	path := m.selectedPath()
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.Err != nil {
		m.engine.ClearDocument()
		m.refresh("")
		var pe *loader.ParseError
		switch {
		case errors.Is(msg.Err, loader.ErrEmptyInput):
			m.loadErr = ""
			m.setStatus(statusInfo, "no document")
		case errors.As(msg.Err, &pe):
			m.loadErr = pe.Message()
			m.setStatus(statusError, pe.Message())
		default:
			m.loadErr = msg.Err.Error()
			m.setStatus(statusError, msg.Err.Error())
		}
		m.log.Info("document cleared", "source", m.source, "reason", msg.Err.Error())
		return
	}
	reload := m.engine.HasDocument()
	m.engine.SetDocument(msg.Doc)
	m.loadErr = ""
	m.refresh(path)
	if reload {
		m.setStatus(statusSuccess, "reloaded "+m.source)
		m.log.Info("document reloaded", "source", m.source, "rows", m.engine.Len())
	}
}

// SetSearch applies term as if it had been typed into the search bar.
func (m *Model) SetSearch(term string) {
	m.input.SetValue(term)
	m.applySearch(term)
}

// ExpandAll expands every object and array of the current document.
func (m *Model) ExpandAll() { m.execute(ActionExpandAll) }

// refresh resyncs the list with the engine, keeping path selected when it is
// still visible.
func (m *Model) refresh(path string) {
	m.list.SetCount(m.engine.Len())
	if i := m.engine.IndexOf(path); i >= 0 {
		m.list.SetCursor(i)
	}
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

func (m *Model) setSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.list.SetSize(width, max(1, height-chromeLines))
	m.input.SetWidth(max(1, width-2))
}

// renderRow paints one row: indent, ▸/▾ marker, "key: value".
func (m *Model) renderRow(i int, selected bool, width int) string {
	row, ok := m.engine.RowAt(i)
	if !ok {
		return ""
	}
	prefix := strings.Repeat(" ", row.Level*m.indent)
	marker := "  "
	if row.IsExpandable {
		marker = "▸ "
		if row.Expanded {
			marker = "▾ "
		}
	}
	key := formatter.DisplayKey(row)
	used := runewidth.StringWidth(prefix) + runewidth.StringWidth(marker)
	key = formatter.Truncate(key, max(1, width-used))
	used += runewidth.StringWidth(key) + 2

	val := formatter.ValueText(row)
	avail := width - used
	if m.maxValueWidth > 0 && m.maxValueWidth < avail {
		avail = m.maxValueWidth
	}
	if avail < 1 {
		val = ""
	} else {
		val = formatter.Truncate(val, avail)
	}

	if selected {
		line := prefix + marker + key + ": " + val
		if pad := width - runewidth.StringWidth(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		return m.theme.Selected.Render(line)
	}
	return prefix +
		m.theme.Marker.Render(marker) +
		m.theme.Key.Render(key) + ": " +
		m.theme.valueStyle(row.Value.Kind()).Render(val)
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	v := tea.NewView(m.Render())
	v.AltScreen = true
	return v
}

// Render returns the full screen as a string.
func (m *Model) Render() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	b.WriteString(m.renderSearchBar())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := m.appName
	if m.source != "" {
		title += " · " + m.source
	}
	if n := m.engine.Len(); n > 0 {
		title += fmt.Sprintf("  [%d/%d]", m.list.Cursor()+1, n)
	}
	return m.theme.Header.Render(padRight(formatter.Truncate(title, m.width), m.width))
}

func (m *Model) renderBody() string {
	h := m.list.Height()
	if m.helpVisible {
		return fitLines(m.renderHelp(), h)
	}
	if !m.engine.HasDocument() {
		msg := "No document"
		if m.loadErr != "" {
			msg = m.loadErr
		}
		return fitLines(m.theme.StatusError.Render(msg), h)
	}
	return m.list.View()
}

func (m *Model) renderSearchBar() string {
	if m.searching {
		return m.theme.Input.Render(m.input.View())
	}
	if term := m.engine.Search(); term != "" {
		return m.theme.Input.Render(formatter.Truncate("/"+term, m.width))
	}
	hint := fmt.Sprintf("%s search  %s help  %s quit",
		m.keyFor(ActionSearch), m.keyFor(ActionHelp), m.keyFor(ActionQuit))
	return m.theme.HelpValue.Render(formatter.Truncate(hint, m.width))
}

func (m *Model) renderStatus() string {
	text := formatter.Truncate(m.status, m.width)
	switch m.statusKind {
	case statusError:
		return m.theme.StatusError.Render(text)
	case statusSuccess:
		return m.theme.StatusSuccess.Render(text)
	}
	return m.theme.Status.Render(text)
}

func padRight(s string, width int) string {
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// fitLines pads or cuts s to exactly n lines.
func fitLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
}
