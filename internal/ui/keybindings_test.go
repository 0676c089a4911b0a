package ui

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyMode(t *testing.T) {
	mode, err := ParseKeyMode("")
	require.NoError(t, err)
	assert.Equal(t, KeyModeVim, mode)

	mode, err = ParseKeyMode(" Emacs ")
	require.NoError(t, err)
	assert.Equal(t, KeyModeEmacs, mode)

	_, err = ParseKeyMode("nano")
	assert.Error(t, err)
}

func TestBindingsMergeCommonKeys(t *testing.T) {
	for _, mode := range ValidKeyModes {
		b := Bindings(mode)
		assert.Equal(t, ActionDown, b["down"], mode)
		assert.Equal(t, ActionToggle, b["enter"], mode)
		assert.Equal(t, ActionQuit, b["ctrl+c"], mode)
	}
	assert.Equal(t, ActionPendingG, Bindings(KeyModeVim)["g"])
	assert.NotContains(t, Bindings(KeyModeFunction), "j")
	assert.Equal(t, ActionSearch, Bindings(KeyModeFunction)["f3"])
}

func TestHelpEntries(t *testing.T) {
	entries := HelpEntries(KeyModeVim)
	require.NotEmpty(t, entries)
	assert.Equal(t, HelpEntry{Keys: []string{"j", "down"}, Description: "move down"}, entries[0])

	var top HelpEntry
	for _, e := range entries {
		if e.Description == "go to top" {
			top = e
		}
	}
	assert.Equal(t, []string{"gg", "home"}, top.Keys)

	text := GenerateHelpText(KeyModeEmacs)
	assert.Contains(t, text, "ctrl+s")
	assert.Contains(t, text, "search (regular expression)")
	assert.NotContains(t, text, "gg")
}

func TestParseTokenSegments(t *testing.T) {
	got := parseTokenSegments("<F1>rwo<esc")
	assert.Equal(t, []tokenSegment{
		{text: "<F1>", isVimKey: true},
		{text: "rwo"},
		{text: "<esc"},
	}, got)
}

func TestKeyMsgFromToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"<CR>", "enter"},
		{"<Esc>", "esc"},
		{"<Space>", "space"},
		{"<PageDown>", "pgdown"},
		{"<C-c>", "ctrl+c"},
		{"<M-w>", "alt+w"},
		{"<F3>", "f3"},
		{"<F12>", "f12"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			msg, ok := keyMsgFromToken(tt.token)
			require.True(t, ok)
			assert.Equal(t, tt.want, msg.String())
		})
	}

	_, ok := keyMsgFromToken("<nope>")
	assert.False(t, ok)
	_, ok = keyMsgFromToken("x")
	assert.False(t, ok)
}

func TestApplyStartupKeys(t *testing.T) {
	m := newTestModel(t, Options{})
	ApplyStartupKeys(m, []string{"E", "G", "/tw<CR>"})
	assert.Equal(t, "tw", m.Engine().Search())
	assert.False(t, m.Searching())
	assert.Equal(t, []string{"", "a", "a.c"}, visiblePaths(m))

	m = newTestModel(t, Options{})
	ApplyStartupKeys(m, []string{`\/x`})
	assert.Equal(t, "x", m.Engine().Search(), "backslash sends the rest as text")
}

func TestApplyStartupKeysNil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyStartupKeys(nil, []string{"j"}) })
	m := newTestModel(t, Options{})
	ApplyStartupKeys(m, nil)
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'j', Text: "j"})
	assert.Nil(t, cmd)
}
