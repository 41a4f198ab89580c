package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Widget is a self-contained region of the screen with its own local state.
// Widgets never read each other's state; the root model only forwards
// messages to them.
type Widget interface {
	// ID returns a stable identifier used for focus routing.
	ID() string

	// Title returns the human-readable name shown in logs and help.
	Title() string

	// Init runs once when the widget is mounted.
	Init() tea.Cmd

	// Update receives every message the root model does not consume. Each
	// widget picks out the messages it owns and ignores the rest.
	Update(msg tea.Msg) tea.Cmd

	// View renders the widget into width x height cells.
	View(width, height int) string

	// MinSize returns the smallest useful width and height.
	MinSize() (int, int)

	// HandleKey receives key presses while the widget has focus.
	HandleKey(key tea.KeyMsg) tea.Cmd
}

// Focuser is implemented by widgets that change when they gain or lose focus.
type Focuser interface {
	Focus() tea.Cmd
	Blur()
}

// KeyCapturer is implemented by widgets that can swallow printable keys, such
// as a text input. While CapturesKeys reports true, global single-letter
// shortcuts are delivered to the widget instead.
type KeyCapturer interface {
	CapturesKeys() bool
}

// Triggerable is implemented by widgets with a primary action bound to a
// global shortcut.
type Triggerable interface {
	Shortcut() key.Binding
	Trigger() tea.Cmd
}

// Sizer is implemented by widgets whose height depends on their content.
// A height of 0 asks for whatever rows are left after fixed-height widgets.
type Sizer interface {
	HeightFor(width int) int
}
