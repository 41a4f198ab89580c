package widgets

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/random-panda/pkg/components"
	"gitlab.com/tinyland/lab/random-panda/pkg/theme"
)

const brand = "🐼 Random Panda"

// NavBar shows the brand and a search box. The search box only holds text:
// submitting it logs the query and does nothing else.
type NavBar struct {
	input  textinput.Model
	opts   Options
	log    *slog.Logger
	search string // zone ID

	edits   int
	focused bool
}

// NewNavBar creates a NavBar with an empty, unfocused search box.
func NewNavBar(opts Options) *NavBar {
	opts = opts.withDefaults()
	ti := textinput.New()
	ti.Placeholder = "Search"
	ti.Prompt = "/ "
	ti.CharLimit = 256
	ti.Width = 24
	return &NavBar{
		input:  ti,
		opts:   opts,
		log:    opts.Logger.With("widget", NavBarID),
		search: opts.zoneID("search"),
	}
}

func (w *NavBar) ID() string          { return NavBarID }
func (w *NavBar) Title() string       { return "Random Panda" }
func (w *NavBar) MinSize() (int, int) { return 20, 2 }
func (w *NavBar) HeightFor(int) int   { return 2 }
func (w *NavBar) Init() tea.Cmd       { return nil }

// Query returns the search box contents.
func (w *NavBar) Query() string { return w.input.Value() }

// Edits returns how many keystrokes the search box has received.
func (w *NavBar) Edits() int { return w.edits }

// CapturesKeys reports whether the search box has the cursor.
func (w *NavBar) CapturesKeys() bool { return w.input.Focused() }

func (w *NavBar) Focus() tea.Cmd {
	w.focused = true
	return nil
}

func (w *NavBar) Blur() {
	w.focused = false
	w.input.Blur()
}

// Shortcut is the global binding that moves the cursor into the search box.
func (w *NavBar) Shortcut() key.Binding {
	return key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search"))
}

// Trigger puts the cursor in the search box.
func (w *NavBar) Trigger() tea.Cmd { return w.input.Focus() }

// HandleKey edits the search box while it has the cursor. Enter submits,
// which only logs; esc gives the cursor back.
func (w *NavBar) HandleKey(k tea.KeyMsg) tea.Cmd {
	if !w.input.Focused() {
		if k.Type == tea.KeyEnter {
			return w.input.Focus()
		}
		return nil
	}

	switch k.Type {
	case tea.KeyEnter:
		w.log.Info("search submitted", "query", w.input.Value())
		return nil
	case tea.KeyEsc:
		w.input.Blur()
		return nil
	}

	var cmd tea.Cmd
	w.input, cmd = w.input.Update(k)
	w.edits++
	w.log.Debug("search changed", "query", w.input.Value())
	return cmd
}

// Update sizes the search box and forwards cursor blinks to it.
func (w *NavBar) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.input.Width = max(8, min(32, msg.Width/3))
		return nil
	case tea.MouseMsg:
		if w.opts.clicked(w.search, msg) {
			return tea.Batch(focusCmd(NavBarID), w.input.Focus())
		}
		return nil
	}
	var cmd tea.Cmd
	w.input, cmd = w.input.Update(msg)
	return cmd
}

// View draws the brand on the left and the search box on the right, above a
// rule that lights up while the bar has focus.
func (w *NavBar) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	th := theme.Current

	left := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(th.Brand)).Render(brand)
	right := w.opts.mark(w.search, w.input.View())
	gap := max(1, width-components.VisibleLen(left)-components.VisibleLen(right))
	bar := left + strings.Repeat(" ", gap) + right
	if height == 1 {
		return bar
	}

	ruleColor := th.Border
	if w.focused {
		ruleColor = th.BorderFocus
	}
	rule := lipgloss.NewStyle().Foreground(lipgloss.Color(ruleColor)).Render(strings.Repeat("─", width))
	return bar + "\n" + rule
}
