package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/random-panda/pkg/components"
	"gitlab.com/tinyland/lab/random-panda/pkg/theme"
)

// Config holds the root model's dependencies.
type Config struct {
	// Zones resolves mouse presses to the button zones widgets mark. Nil
	// disables mouse handling.
	Zones *zone.Manager

	// Cancel is called once when the program quits, aborting requests
	// that are still in flight.
	Cancel context.CancelFunc

	// Logger receives focus and lifecycle records.
	Logger *slog.Logger

	// ShowHelp starts with the full help overlay open.
	ShowHelp bool
}

// DefaultConfig returns a Config with no zones, a no-op cancel and a
// discarding logger.
func DefaultConfig() Config {
	return Config{
		Cancel: func() {},
		Logger: slog.New(slog.DiscardHandler),
	}
}

// AppModel is the composition root. It owns no widget data: it mounts the
// widgets in order, tracks terminal size and focus, and routes messages.
type AppModel struct {
	cfg Config
	log *slog.Logger

	widgets       map[string]Widget
	widgetOrder   []string
	focusedWidget string

	keys        KeyMap
	help        help.Model
	helpVisible bool

	width    int
	height   int
	quitting bool
}

// NewAppModel mounts widgets top to bottom in the given order. Focus starts
// on the first widget.
func NewAppModel(cfg Config, widgets ...Widget) AppModel {
	if cfg.Cancel == nil {
		cfg.Cancel = func() {}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	m := AppModel{
		cfg:         cfg,
		log:         cfg.Logger.With("component", "app"),
		widgets:     make(map[string]Widget, len(widgets)),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		helpVisible: cfg.ShowHelp,
	}
	for _, w := range widgets {
		if w == nil {
			continue
		}
		m.widgets[w.ID()] = w
		m.widgetOrder = append(m.widgetOrder, w.ID())
	}
	if len(m.widgetOrder) > 0 {
		m.focusedWidget = m.widgetOrder[0]
	}
	return m
}

// Init mounts every widget and focuses the first one.
func (m AppModel) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.widgetOrder)+1)
	for _, id := range m.widgetOrder {
		cmds = append(cmds, m.widgets[id].Init())
	}
	if f, ok := m.widgets[m.focusedWidget].(Focuser); ok {
		cmds = append(cmds, f.Focus())
	}
	return tea.Batch(cmds...)
}

// Update routes one message.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, m.broadcast(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case WidgetFocusEvent:
		cmd := m.FocusWidget(msg.WidgetID)
		return m, cmd

	case ThemeChangeEvent:
		theme.SetCurrent(msg.Theme)
		m.log.Debug("theme changed", "theme", theme.Current.Name)
		return m, nil
	}

	// Fetch completions, mouse presses and everything else go to every
	// widget; each one picks out what it owns.
	return m, m.broadcast(msg)
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	focused := m.widgets[m.focusedWidget]
	if c, ok := focused.(KeyCapturer); ok && c.CapturesKeys() {
		switch {
		case key.Matches(msg, m.keys.Next):
			cmd := m.CycleFocusForward()
			return m, cmd
		case key.Matches(msg, m.keys.Prev):
			cmd := m.CycleFocusBackward()
			return m, cmd
		}
		return m, focused.HandleKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		return m, nil
	case key.Matches(msg, m.keys.Next):
		cmd := m.CycleFocusForward()
		return m, cmd
	case key.Matches(msg, m.keys.Prev):
		cmd := m.CycleFocusBackward()
		return m, cmd
	case key.Matches(msg, m.keys.Theme):
		return m, nextThemeCmd()
	}

	for _, id := range m.widgetOrder {
		t, ok := m.widgets[id].(Triggerable)
		if !ok || !key.Matches(msg, t.Shortcut()) {
			continue
		}
		focusCmd := m.FocusWidget(id)
		return m, tea.Batch(focusCmd, t.Trigger())
	}

	if focused != nil {
		return m, focused.HandleKey(msg)
	}
	return m, nil
}

func (m AppModel) quit() (tea.Model, tea.Cmd) {
	if !m.quitting {
		m.quitting = true
		m.cfg.Cancel()
		m.log.Debug("quitting")
	}
	return m, tea.Quit
}

func (m AppModel) broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.widgetOrder))
	for _, id := range m.widgetOrder {
		cmds = append(cmds, m.widgets[id].Update(msg))
	}
	return tea.Batch(cmds...)
}

// nextThemeCmd cycles to the theme after the current one.
func nextThemeCmd() tea.Cmd {
	names := theme.Names()
	next := names[0]
	for i, n := range names {
		if n == theme.Current.Name {
			next = names[(i+1)%len(names)]
			break
		}
	}
	return func() tea.Msg { return ThemeChangeEvent{Theme: next} }
}

// View stacks the widgets top to bottom above the help line.
func (m AppModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width <= 0 || m.height <= 0 {
		return "Initializing..."
	}

	styleHelp(&m.help)
	m.help.ShowAll = m.helpVisible
	helpView := m.help.View(helpKeys{keys: m.keys, shortcuts: m.shortcuts()})
	helpLines := strings.Count(helpView, "\n") + 1

	heights := m.layout(m.height - helpLines)

	parts := make([]string, 0, len(m.widgetOrder)+1)
	for i, id := range m.widgetOrder {
		if heights[i] <= 0 {
			continue
		}
		parts = append(parts, components.Fit(m.widgets[id].View(m.width, heights[i]), m.width, heights[i]))
	}
	parts = append(parts, helpView)

	out := components.Fit(strings.Join(parts, "\n"), m.width, m.height)
	if m.cfg.Zones != nil {
		out = m.cfg.Zones.Scan(out)
	}
	return out
}

// layout gives fixed-height widgets their height in order, then splits the
// remaining rows evenly between widgets that asked to fill.
func (m AppModel) layout(avail int) []int {
	heights := make([]int, len(m.widgetOrder))
	var fill []int
	for i, id := range m.widgetOrder {
		w := m.widgets[id]
		h := 0
		if s, ok := w.(Sizer); ok {
			h = s.HeightFor(m.width)
		} else {
			_, h = w.MinSize()
		}
		if h <= 0 {
			fill = append(fill, i)
			continue
		}
		if h > avail {
			h = avail
		}
		heights[i] = h
		avail -= h
	}
	if len(fill) > 0 && avail > 0 {
		share, extra := avail/len(fill), avail%len(fill)
		for n, i := range fill {
			heights[i] = share
			if n < extra {
				heights[i]++
			}
		}
	}
	return heights
}

func (m AppModel) shortcuts() []key.Binding {
	var out []key.Binding
	for _, id := range m.widgetOrder {
		if t, ok := m.widgets[id].(Triggerable); ok {
			out = append(out, t.Shortcut())
		}
	}
	return out
}

// Width returns the last reported terminal width.
func (m AppModel) Width() int { return m.width }

// Height returns the last reported terminal height.
func (m AppModel) Height() int { return m.height }

// FocusedWidgetID returns the ID of the focused widget.
func (m AppModel) FocusedWidgetID() string { return m.focusedWidget }

// Quitting reports whether the model has begun shutting down.
func (m AppModel) Quitting() bool { return m.quitting }

// HelpVisible reports whether the full help overlay is shown.
func (m AppModel) HelpVisible() bool { return m.helpVisible }

// WidgetOrder returns widget IDs top to bottom.
func (m AppModel) WidgetOrder() []string {
	return append([]string(nil), m.widgetOrder...)
}
