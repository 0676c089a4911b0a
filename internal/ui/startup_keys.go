package ui

import (
	"strconv"
	"strings"
	"unicode/utf8"

	tea "charm.land/bubbletea/v2"
)

// ApplyStartupKeys simulates startup keypresses (Vim-like tokens and literal
// text) by feeding them through Update.
func ApplyStartupKeys(m *Model, keys []string) {
	if len(keys) == 0 || m == nil {
		return
	}
	for _, raw := range keys {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		// Leading backslash forces literal text (e.g., "\\<f12>").
		if strings.HasPrefix(token, `\`) {
			pressText(m, strings.TrimPrefix(token, `\`))
			continue
		}
		for _, segment := range parseTokenSegments(token) {
			if !segment.isVimKey {
				pressText(m, segment.text)
				continue
			}
			if msg, ok := keyMsgFromToken(segment.text); ok {
				m.Update(msg)
			} else {
				pressText(m, segment.text)
			}
		}
	}
}

func pressText(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

// tokenSegment is a parsed piece of a token: a <...> key or literal text.
type tokenSegment struct {
	text     string
	isVimKey bool
}

// parseTokenSegments splits a token into segments of vim-style keys and literal text.
// Example: "<F1>rwo" -> [segment{text: "<F1>", isVimKey: true}, segment{text: "rwo", isVimKey: false}]
func parseTokenSegments(token string) []tokenSegment {
	var segments []tokenSegment
	remaining := token

	for len(remaining) > 0 {
		startIdx := strings.Index(remaining, "<")
		if startIdx == -1 {
			segments = append(segments, tokenSegment{text: remaining})
			break
		}
		if startIdx > 0 {
			segments = append(segments, tokenSegment{text: remaining[:startIdx]})
		}
		endIdx := strings.Index(remaining[startIdx:], ">")
		if endIdx == -1 {
			// No closing >, treat rest as literal text
			segments = append(segments, tokenSegment{text: remaining[startIdx:]})
			break
		}
		segments = append(segments, tokenSegment{text: remaining[startIdx : startIdx+endIdx+1], isVimKey: true})
		remaining = remaining[startIdx+endIdx+1:]
	}

	return segments
}

var functionKeys = [...]rune{
	tea.KeyF1, tea.KeyF2, tea.KeyF3, tea.KeyF4, tea.KeyF5, tea.KeyF6,
	tea.KeyF7, tea.KeyF8, tea.KeyF9, tea.KeyF10, tea.KeyF11, tea.KeyF12,
}

// keyMsgFromToken parses a Vim-like token into a key message.
// Examples: "<Esc>", "<CR>", "<Space>", "<BS>", "<C-c>", "<M-w>", "<F3>", "<PageDown>".
func keyMsgFromToken(token string) (tea.KeyPressMsg, bool) {
	if !strings.HasPrefix(token, "<") || !strings.HasSuffix(token, ">") {
		return tea.KeyPressMsg{}, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
	lower := strings.ToLower(inner)
	switch lower {
	case "esc", "c-[", "escape":
		return tea.KeyPressMsg{Code: tea.KeyEscape}, true
	case "cr", "enter", "return":
		return tea.KeyPressMsg{Code: tea.KeyEnter}, true
	case "tab":
		return tea.KeyPressMsg{Code: tea.KeyTab}, true
	case "space":
		return tea.KeyPressMsg{Code: ' ', Text: " "}, true
	case "bs", "backspace":
		return tea.KeyPressMsg{Code: tea.KeyBackspace}, true
	case "left":
		return tea.KeyPressMsg{Code: tea.KeyLeft}, true
	case "right":
		return tea.KeyPressMsg{Code: tea.KeyRight}, true
	case "up":
		return tea.KeyPressMsg{Code: tea.KeyUp}, true
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}, true
	case "home":
		return tea.KeyPressMsg{Code: tea.KeyHome}, true
	case "end":
		return tea.KeyPressMsg{Code: tea.KeyEnd}, true
	case "pgup", "pageup":
		return tea.KeyPressMsg{Code: tea.KeyPgUp}, true
	case "pgdn", "pgdown", "pagedown":
		return tea.KeyPressMsg{Code: tea.KeyPgDown}, true
	}
	if len(lower) > 2 && lower[1] == '-' {
		// Modifier forms keep the case of the key itself.
		r, size := utf8.DecodeRuneInString(inner[2:])
		if size != len(inner)-2 {
			return tea.KeyPressMsg{}, false
		}
		switch lower[0] {
		case 'c':
			return tea.KeyPressMsg{Code: r, Mod: tea.ModCtrl}, true
		case 'm', 'a':
			return tea.KeyPressMsg{Code: r, Mod: tea.ModAlt}, true
		}
		return tea.KeyPressMsg{}, false
	}
	if strings.HasPrefix(lower, "f") {
		for i := range functionKeys {
			if lower == "f"+strconv.Itoa(i+1) {
				return tea.KeyPressMsg{Code: functionKeys[i]}, true
			}
		}
	}
	return tea.KeyPressMsg{}, false
}
