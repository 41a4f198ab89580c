package components

import (
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/random-panda/pkg/theme"
)

// Button is a one-line clickable label.
type Button struct {
	Label   string
	Focused bool
	Busy    bool // a request it triggered is still in flight
}

// Render draws the button with the current theme. A busy button shows a
// trailing ellipsis; it stays clickable.
func (b Button) Render() string {
	th := theme.Current
	bg := th.Button
	if b.Focused {
		bg = th.ButtonFocus
	}
	label := b.Label
	if b.Busy {
		label += "…"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(th.ButtonText)).
		Background(lipgloss.Color(bg)).
		Bold(b.Focused).
		Padding(0, 2).
		Render(label)
}
