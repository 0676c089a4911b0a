package config

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// ColorValue stores a color token (ANSI number, hex or name) and marshals
// numerics as YAML ints.
type ColorValue string

func (c ColorValue) MarshalYAML() (interface{}, error) {
	if c == "" {
		return "", nil
	}
	s := string(c)
	if _, err := strconv.Atoi(s); err == nil {
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: s,
		}, nil
	}
	return s, nil
}

func (c *ColorValue) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*c = ""
		return nil
	}
	*c = ColorValue(value.Value)
	return nil
}

// ThemeConfig is the YAML form of a color theme. Empty fields inherit from
// the theme of the same name in the defaults.
type ThemeConfig struct {
	KeyColor      ColorValue `yaml:"key_color,omitempty"`
	ValueColor    ColorValue `yaml:"value_color,omitempty"`
	StringColor   ColorValue `yaml:"string_color,omitempty"`
	NumberColor   ColorValue `yaml:"number_color,omitempty"`
	LiteralColor  ColorValue `yaml:"literal_color,omitempty"`
	MarkerColor   ColorValue `yaml:"marker_color,omitempty"`
	SelectedFG    ColorValue `yaml:"selected_fg,omitempty"`
	SelectedBG    ColorValue `yaml:"selected_bg,omitempty"`
	HeaderFG      ColorValue `yaml:"header_fg,omitempty"`
	HeaderBG      ColorValue `yaml:"header_bg,omitempty"`
	InputFG       ColorValue `yaml:"input_fg,omitempty"`
	StatusColor   ColorValue `yaml:"status_color,omitempty"`
	StatusError   ColorValue `yaml:"status_error,omitempty"`
	StatusSuccess ColorValue `yaml:"status_success,omitempty"`
	HelpKey       ColorValue `yaml:"help_key,omitempty"`
	HelpValue     ColorValue `yaml:"help_value,omitempty"`
}

// MergeTheme returns base with every non-empty field of over applied.
func MergeTheme(base, over ThemeConfig) ThemeConfig {
	out := base
	set := func(dst *ColorValue, val ColorValue) {
		if val != "" {
			*dst = val
		}
	}
	set(&out.KeyColor, over.KeyColor)
	set(&out.ValueColor, over.ValueColor)
	set(&out.StringColor, over.StringColor)
	set(&out.NumberColor, over.NumberColor)
	set(&out.LiteralColor, over.LiteralColor)
	set(&out.MarkerColor, over.MarkerColor)
	set(&out.SelectedFG, over.SelectedFG)
	set(&out.SelectedBG, over.SelectedBG)
	set(&out.HeaderFG, over.HeaderFG)
	set(&out.HeaderBG, over.HeaderBG)
	set(&out.InputFG, over.InputFG)
	set(&out.StatusColor, over.StatusColor)
	set(&out.StatusError, over.StatusError)
	set(&out.StatusSuccess, over.StatusSuccess)
	set(&out.HelpKey, over.HelpKey)
	set(&out.HelpValue, over.HelpValue)
	return out
}
