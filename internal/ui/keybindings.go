package ui

import (
	"fmt"
	"strings"
)

// KeyMode represents the keybinding mode for the UI.
type KeyMode string

const (
	// KeyModeVim enables vim-style keybindings (j/k/h/l navigation, / search).
	KeyModeVim KeyMode = "vim"
	// KeyModeEmacs enables emacs-style keybindings with ctrl/alt modifiers.
	KeyModeEmacs KeyMode = "emacs"
	// KeyModeFunction disables single-key shortcuts, uses function keys only.
	KeyModeFunction KeyMode = "function"
)

// DefaultKeyMode is the default keybinding mode.
const DefaultKeyMode = KeyModeVim

// ValidKeyModes lists all valid key modes for validation.
var ValidKeyModes = []KeyMode{KeyModeVim, KeyModeEmacs, KeyModeFunction}

// IsValidKeyMode checks if a key mode string is valid.
func IsValidKeyMode(mode string) bool {
	for _, m := range ValidKeyModes {
		if string(m) == mode {
			return true
		}
	}
	return false
}

// ParseKeyMode returns the mode named by s; "" selects DefaultKeyMode.
func ParseKeyMode(s string) (KeyMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultKeyMode, nil
	}
	if !IsValidKeyMode(s) {
		return "", fmt.Errorf("invalid keymap %q: valid values are vim, emacs, function", s)
	}
	return KeyMode(s), nil
}

// Action is what a key press asks the viewer to do.
type Action string

const (
	ActionNone        Action = ""
	ActionDown        Action = "down"
	ActionUp          Action = "up"
	ActionPageDown    Action = "page_down"
	ActionPageUp      Action = "page_up"
	ActionTop         Action = "top"
	ActionBottom      Action = "bottom"
	ActionToggle      Action = "toggle"
	ActionExpand      Action = "expand"
	ActionCollapse    Action = "collapse"
	ActionExpandAll   Action = "expand_all"
	ActionCollapseAll Action = "collapse_all"
	ActionSearch      Action = "search"
	ActionClearSearch Action = "clear_search"
	ActionCopyValue   Action = "copy_value"
	ActionCopyPath    Action = "copy_path"
	ActionCopyKey     Action = "copy_key"
	ActionHelp        Action = "help"
	ActionQuit        Action = "quit"
	ActionPendingG    Action = "pending_g" // waiting for the second g of gg
)

// commonKeyBindings apply in every mode; mode bindings take precedence.
var commonKeyBindings = map[string]Action{
	"down":   ActionDown,
	"up":     ActionUp,
	"pgdown": ActionPageDown,
	"pgup":   ActionPageUp,
	"home":   ActionTop,
	"end":    ActionBottom,
	"enter":  ActionToggle,
	"space":  ActionToggle,
	"right":  ActionExpand,
	"left":   ActionCollapse,
	"esc":    ActionClearSearch,
	"f1":     ActionHelp,
	"ctrl+c": ActionQuit,
}

// VimKeyBindings maps keys to actions for vim mode.
var VimKeyBindings = map[string]Action{
	"j":      ActionDown,
	"k":      ActionUp,
	"ctrl+d": ActionPageDown,
	"ctrl+u": ActionPageUp,
	"g":      ActionPendingG,
	"G":      ActionBottom,
	"l":      ActionExpand,
	"h":      ActionCollapse,
	"E":      ActionExpandAll,
	"C":      ActionCollapseAll,
	"/":      ActionSearch,
	"y":      ActionCopyValue,
	"Y":      ActionCopyPath,
	"c":      ActionCopyKey,
	"?":      ActionHelp,
	"q":      ActionQuit,
}

// EmacsKeyBindings maps keys to actions for emacs mode.
var EmacsKeyBindings = map[string]Action{
	"ctrl+n": ActionDown,
	"ctrl+p": ActionUp,
	"ctrl+v": ActionPageDown,
	"alt+v":  ActionPageUp,
	"alt+<":  ActionTop,
	"alt+>":  ActionBottom,
	"ctrl+f": ActionExpand,
	"ctrl+b": ActionCollapse,
	"alt+e":  ActionExpandAll,
	"alt+c":  ActionCollapseAll,
	"ctrl+s": ActionSearch,
	"ctrl+g": ActionClearSearch, // cancel in emacs
	"alt+w":  ActionCopyValue,
	"alt+p":  ActionCopyPath,
	"alt+k":  ActionCopyKey,
	"ctrl+q": ActionQuit,
}

// FunctionKeyBindings maps keys to actions for function-key mode.
var FunctionKeyBindings = map[string]Action{
	"f2":  ActionExpandAll,
	"f3":  ActionSearch,
	"f4":  ActionCollapseAll,
	"f5":  ActionCopyValue,
	"f6":  ActionCopyPath,
	"f7":  ActionCopyKey,
	"f10": ActionQuit,
}

// Bindings returns the mode's key map merged over the common keys.
func Bindings(mode KeyMode) map[string]Action {
	out := make(map[string]Action, len(commonKeyBindings)+len(VimKeyBindings))
	for k, a := range commonKeyBindings {
		out[k] = a
	}
	var modeKeys map[string]Action
	switch mode {
	case KeyModeEmacs:
		modeKeys = EmacsKeyBindings
	case KeyModeFunction:
		modeKeys = FunctionKeyBindings
	default:
		modeKeys = VimKeyBindings
	}
	for k, a := range modeKeys {
		out[k] = a
	}
	return out
}

// resolveKey maps a key press to an action, handling the vim gg sequence.
func (m *Model) resolveKey(keyStr string) Action {
	if m.pendingKey == "g" {
		m.pendingKey = ""
		if keyStr == "g" {
			return ActionTop
		}
		// Not 'g', so the pending 'g' is consumed without action
	}

	action, ok := m.bindings[keyStr]
	if !ok {
		return ActionNone
	}
	if action == ActionPendingG {
		m.pendingKey = "g"
		return ActionNone
	}
	return action
}
