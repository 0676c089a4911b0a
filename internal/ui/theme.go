package ui

import (
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/jvx/internal/config"
	"github.com/oakwood-commons/jvx/pkg/value"
)

// Theme holds the styles the viewer paints with.
type Theme struct {
	Key           lipgloss.Style
	Value         lipgloss.Style
	String        lipgloss.Style
	Number        lipgloss.Style
	Literal       lipgloss.Style // true, false, null
	Marker        lipgloss.Style // ▸ / ▾ and composite summaries
	Selected      lipgloss.Style
	Header        lipgloss.Style
	Input         lipgloss.Style
	Status        lipgloss.Style
	StatusError   lipgloss.Style
	StatusSuccess lipgloss.Style
	HelpKey       lipgloss.Style
	HelpValue     lipgloss.Style
}

// PlainTheme returns a colorless theme; the selected row is shown in reverse
// video so it stays visible.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Key:           plain,
		Value:         plain,
		String:        plain,
		Number:        plain,
		Literal:       plain,
		Marker:        plain,
		Selected:      plain.Reverse(true),
		Header:        plain.Bold(true),
		Input:         plain,
		Status:        plain,
		StatusError:   plain,
		StatusSuccess: plain,
		HelpKey:       plain.Bold(true),
		HelpValue:     plain,
	}
}

// ThemeFromConfig builds a theme from its YAML form.
func ThemeFromConfig(tc config.ThemeConfig) Theme {
	fg := func(c config.ColorValue) lipgloss.Style {
		s := lipgloss.NewStyle()
		if c != "" {
			s = s.Foreground(lipgloss.Color(string(c)))
		}
		return s
	}
	selected := fg(tc.SelectedFG)
	if tc.SelectedBG != "" {
		selected = selected.Background(lipgloss.Color(string(tc.SelectedBG)))
	} else {
		selected = selected.Reverse(true)
	}
	header := fg(tc.HeaderFG).Bold(true)
	if tc.HeaderBG != "" {
		header = header.Background(lipgloss.Color(string(tc.HeaderBG)))
	}
	return Theme{
		Key:           fg(tc.KeyColor),
		Value:         fg(tc.ValueColor),
		String:        fg(tc.StringColor),
		Number:        fg(tc.NumberColor),
		Literal:       fg(tc.LiteralColor),
		Marker:        fg(tc.MarkerColor),
		Selected:      selected,
		Header:        header,
		Input:         fg(tc.InputFG),
		Status:        fg(tc.StatusColor),
		StatusError:   fg(tc.StatusError).Bold(true),
		StatusSuccess: fg(tc.StatusSuccess),
		HelpKey:       fg(tc.HelpKey).Bold(true),
		HelpValue:     fg(tc.HelpValue),
	}
}

// ThemeByName looks up name in cfg, falling back to the configured default
// theme and then to PlainTheme.
func ThemeByName(cfg config.Config, name string) Theme {
	if name == "" {
		name = cfg.UI.Theme
	}
	if tc, ok := cfg.UI.Themes[name]; ok {
		return ThemeFromConfig(tc)
	}
	if tc, ok := cfg.UI.Themes[cfg.UI.Theme]; ok {
		return ThemeFromConfig(tc)
	}
	return PlainTheme()
}

// valueStyle picks the style for a scalar of kind k.
func (t Theme) valueStyle(k value.Kind) lipgloss.Style {
	switch k {
	case value.KindString:
		return t.String
	case value.KindNumber:
		return t.Number
	case value.KindBool, value.KindNull:
		return t.Literal
	case value.KindArray, value.KindObject:
		return t.Marker
	}
	return t.Value
}
