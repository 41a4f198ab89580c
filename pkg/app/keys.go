package app

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/random-panda/pkg/theme"
)

// KeyMap holds the root model's own bindings. Widget shortcuts are added to
// the help line at render time.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Next      key.Binding
	Prev      key.Binding
	Help      key.Binding
	Theme     key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Theme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "theme"),
		),
	}
}

// helpKeys adapts KeyMap plus widget shortcuts to help.KeyMap.
type helpKeys struct {
	keys      KeyMap
	shortcuts []key.Binding
}

func (h helpKeys) ShortHelp() []key.Binding {
	out := append([]key.Binding{}, h.shortcuts...)
	return append(out, h.keys.Next, h.keys.Help, h.keys.Quit)
}

func (h helpKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		h.shortcuts,
		{h.keys.Next, h.keys.Prev, h.keys.Theme},
		{h.keys.Help, h.keys.Quit, h.keys.ForceQuit},
	}
}

// styleHelp applies the current theme to the help model.
func styleHelp(h *help.Model) {
	th := theme.Current
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(th.HelpKey))
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(th.HelpDesc))
	h.Styles.ShortKey = keyStyle
	h.Styles.ShortDesc = descStyle
	h.Styles.ShortSeparator = descStyle
	h.Styles.FullKey = keyStyle
	h.Styles.FullDesc = descStyle
	h.Styles.FullSeparator = descStyle
}
