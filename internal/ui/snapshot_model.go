package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// SnapshotConfig configures a single-frame render.
type SnapshotConfig struct {
	Width       int
	Height      int
	StartKeys   []string
	HelpVisible bool
}

// RenderSnapshot applies the startup keys to m and renders one frame without
// starting a program. In no-color mode escape sequences are stripped.
func RenderSnapshot(m *Model, cfg SnapshotConfig) string {
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = 80
	}
	if h <= 0 {
		h = 24
	}
	m.setSize(w, h)
	ApplyStartupKeys(m, cfg.StartKeys)
	if cfg.HelpVisible {
		m.helpVisible = true
	}
	view := m.Render()
	if m.noColor {
		view = ansi.Strip(view)
	}
	return padSnapshotHeight(view, h)
}

func padSnapshotHeight(view string, height int) string {
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
