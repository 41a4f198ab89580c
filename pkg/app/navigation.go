package app

import tea "github.com/charmbracelet/bubbletea"

// CycleFocusForward moves focus to the next widget in the order list,
// wrapping around to the first widget after the last.
func (m *AppModel) CycleFocusForward() tea.Cmd {
	if len(m.widgetOrder) == 0 {
		return nil
	}
	idx := (m.focusedIndex() + 1) % len(m.widgetOrder)
	return m.FocusWidget(m.widgetOrder[idx])
}

// CycleFocusBackward moves focus to the previous widget in the order list,
// wrapping around to the last widget before the first.
func (m *AppModel) CycleFocusBackward() tea.Cmd {
	if len(m.widgetOrder) == 0 {
		return nil
	}
	idx := (m.focusedIndex() - 1 + len(m.widgetOrder)) % len(m.widgetOrder)
	return m.FocusWidget(m.widgetOrder[idx])
}

// FocusWidget moves focus to the widget with the given ID, blurring the one
// that had it. Unknown IDs and the already focused widget are no-ops.
func (m *AppModel) FocusWidget(id string) tea.Cmd {
	next, ok := m.widgets[id]
	if !ok || id == m.focusedWidget {
		return nil
	}
	if f, ok := m.widgets[m.focusedWidget].(Focuser); ok {
		f.Blur()
	}
	m.focusedWidget = id
	m.log.Debug("focus changed", "widget", id)
	if f, ok := next.(Focuser); ok {
		return f.Focus()
	}
	return nil
}

// focusedIndex returns the index of the currently focused widget in the
// order list. Returns 0 if not found.
func (m *AppModel) focusedIndex() int {
	for i, id := range m.widgetOrder {
		if id == m.focusedWidget {
			return i
		}
	}
	return 0
}
