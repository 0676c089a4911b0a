package ui

import (
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

// helpOrder lists actions in the order the help overlay shows them.
var helpOrder = []struct {
	action Action
	desc   string
}{
	{ActionDown, "move down"},
	{ActionUp, "move up"},
	{ActionPageDown, "page down"},
	{ActionPageUp, "page up"},
	{ActionTop, "go to top"},
	{ActionBottom, "go to bottom"},
	{ActionToggle, "expand/collapse row"},
	{ActionExpand, "expand row"},
	{ActionCollapse, "collapse row or go to parent"},
	{ActionExpandAll, "expand all"},
	{ActionCollapseAll, "collapse all"},
	{ActionSearch, "search (regular expression)"},
	{ActionClearSearch, "clear search"},
	{ActionCopyValue, "copy value"},
	{ActionCopyPath, "copy path"},
	{ActionCopyKey, "copy key"},
	{ActionHelp, "toggle help"},
	{ActionQuit, "quit"},
}

// HelpEntry is one line of the help overlay.
type HelpEntry struct {
	Keys        []string
	Description string
}

// HelpEntries lists the key bindings of mode grouped by action.
func HelpEntries(mode KeyMode) []HelpEntry {
	byAction := map[Action][]string{}
	for key, action := range Bindings(mode) {
		if action == ActionPendingG {
			action, key = ActionTop, "gg"
		}
		byAction[action] = append(byAction[action], key)
	}
	entries := make([]HelpEntry, 0, len(helpOrder))
	for _, h := range helpOrder {
		keys := byAction[h.action]
		if len(keys) == 0 {
			continue
		}
		sortKeys(keys)
		entries = append(entries, HelpEntry{Keys: keys, Description: h.desc})
	}
	return entries
}

// sortKeys puts mode-specific short keys before named keys.
func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
}

// GenerateHelpText renders the help entries for mode as aligned plain text.
func GenerateHelpText(mode KeyMode) string {
	return renderHelpEntries(HelpEntries(mode), PlainTheme())
}

func (m *Model) renderHelp() string {
	return renderHelpEntries(HelpEntries(m.keyMode), m.theme)
}

func renderHelpEntries(entries []HelpEntry, th Theme) string {
	keyCol := 0
	joined := make([]string, len(entries))
	for i, e := range entries {
		joined[i] = strings.Join(e.Keys, ", ")
		keyCol = max(keyCol, runewidth.StringWidth(joined[i]))
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  ")
		b.WriteString(th.HelpKey.Render(padRight(joined[i], keyCol)))
		b.WriteString("  ")
		b.WriteString(th.HelpValue.Render(e.Description))
	}
	return b.String()
}

// keyFor returns the shortest key bound to action, for hints.
func (m *Model) keyFor(action Action) string {
	var keys []string
	for key, a := range m.bindings {
		if a == action {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sortKeys(keys)
	return keys[0]
}
