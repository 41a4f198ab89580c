package widgets

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/random-panda/pkg/app"
	"gitlab.com/tinyland/lab/random-panda/pkg/components"
	"gitlab.com/tinyland/lab/random-panda/pkg/theme"
)

// FactSource returns one random fact per call.
type FactSource interface {
	Fact(ctx context.Context) (string, error)
}

// FactWidget shows a button and the most recently fetched fact. Nothing is
// fetched until the button is pressed.
type FactWidget struct {
	src    FactSource
	opts   Options
	log    *slog.Logger
	button string // zone ID

	seq     sequence
	fact    string
	focused bool
}

// NewFactWidget creates a FactWidget reading from src.
func NewFactWidget(src FactSource, opts Options) *FactWidget {
	opts = opts.withDefaults()
	return &FactWidget{
		src:    src,
		opts:   opts,
		log:    opts.Logger.With("widget", FactID),
		button: opts.zoneID("fact-button"),
		seq:    sequence{latestOnly: opts.LatestOnly},
	}
}

func (w *FactWidget) ID() string          { return FactID }
func (w *FactWidget) Title() string       { return "Panda fact" }
func (w *FactWidget) MinSize() (int, int) { return 16, 1 }

// Init does nothing: facts are only fetched on demand.
func (w *FactWidget) Init() tea.Cmd { return nil }

// Fact returns the displayed fact, empty before the first success.
func (w *FactWidget) Fact() string { return w.fact }

// Pending returns the number of requests still in flight.
func (w *FactWidget) Pending() int { return w.seq.pending }

// RequestFact issues one fact request. Requests already in flight are left
// alone; whichever completes last is displayed.
func (w *FactWidget) RequestFact() tea.Cmd {
	seq := w.seq.next()
	ctx, src := w.opts.Context, w.src
	w.log.Debug("requesting fact", "seq", seq, "pending", w.seq.pending)
	return func() tea.Msg {
		fact, err := src.Fact(ctx)
		return app.FactLoadedEvent{Seq: seq, Fact: fact, Err: err, Timestamp: time.Now()}
	}
}

// Update applies fact completions and button clicks.
func (w *FactWidget) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case app.FactLoadedEvent:
		w.applyFact(msg)
	case tea.MouseMsg:
		if w.opts.clicked(w.button, msg) {
			return tea.Batch(focusCmd(FactID), w.RequestFact())
		}
	}
	return nil
}

func (w *FactWidget) applyFact(msg app.FactLoadedEvent) {
	current := w.seq.done(msg.Seq)
	if msg.Err != nil {
		if w.opts.Context.Err() != nil {
			w.log.Debug("fact request abandoned", "seq", msg.Seq)
			return
		}
		w.log.Error("fact request failed", "seq", msg.Seq, "error", msg.Err)
		return
	}
	if !current {
		w.log.Debug("dropping stale fact", "seq", msg.Seq, "latest", w.seq.issued)
		return
	}
	w.fact = msg.Fact
	w.log.Debug("fact loaded", "seq", msg.Seq)
}

// HandleKey fetches a fact on enter or space.
func (w *FactWidget) HandleKey(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "enter", " ", "space":
		return w.RequestFact()
	}
	return nil
}

// Shortcut is the global binding for RequestFact.
func (w *FactWidget) Shortcut() key.Binding {
	return key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "panda fact"))
}

// Trigger runs RequestFact.
func (w *FactWidget) Trigger() tea.Cmd { return w.RequestFact() }

func (w *FactWidget) Focus() tea.Cmd {
	w.focused = true
	return nil
}

func (w *FactWidget) Blur() { w.focused = false }

// HeightFor is the button line plus, once a fact is shown, a blank line and
// the wrapped fact.
func (w *FactWidget) HeightFor(width int) int {
	if w.fact == "" {
		return 1
	}
	return 2 + len(components.Wrap(w.fact, width))
}

func (w *FactWidget) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	btn := components.Button{Label: "panda fact", Focused: w.focused, Busy: w.seq.pending > 0}
	lines := []string{w.opts.mark(w.button, btn.Render())}
	if w.fact != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current.Fact))
		lines = append(lines, "")
		for _, l := range components.Wrap(w.fact, width) {
			lines = append(lines, style.Render(l))
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}
