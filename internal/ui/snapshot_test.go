package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/jvx/internal/config"
)

func TestRenderSnapshotNoColor(t *testing.T) {
	m := newTestModel(t, Options{NoColor: true, Source: "sample.json"})
	view := RenderSnapshot(m, SnapshotConfig{Width: 40, Height: 8, StartKeys: []string{"<CR>", "j"}})

	lines := strings.Split(view, "\n")
	require.Len(t, lines, 8)
	assert.NotContains(t, view, "\x1b[")
	assert.Equal(t, "jvx · sample.json  [2/3]", strings.TrimRight(lines[0], " "))
	assert.Equal(t, "▾ (root): {} 2 items", lines[1])
	assert.Equal(t, "  ▸ a: {} 2 items", strings.TrimRight(lines[2], " "))
	assert.Equal(t, "  ▸ list: [] 2 items", lines[3])
}

func TestRenderSnapshotHelp(t *testing.T) {
	m := newTestModel(t, Options{NoColor: true})
	view := RenderSnapshot(m, SnapshotConfig{Width: 60, Height: 30, HelpVisible: true})
	assert.Contains(t, view, "toggle help")
	assert.Len(t, strings.Split(view, "\n"), 30)
}

func TestRenderSnapshotWithTheme(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	th := ThemeByName(cfg, "light")
	m := newTestModel(t, Options{Theme: &th})
	view := RenderSnapshot(m, SnapshotConfig{Width: 40, Height: 6})
	assert.Contains(t, view, "(root)")
}

func TestThemeByNameFallsBack(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	assert.Equal(t, ThemeFromConfig(cfg.UI.Themes["dark"]), ThemeByName(cfg, "missing"))

	cfg.UI.Themes = nil
	assert.Equal(t, PlainTheme(), ThemeByName(cfg, ""))
}
