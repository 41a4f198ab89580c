package widgets

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/random-panda/pkg/app"
	"gitlab.com/tinyland/lab/random-panda/pkg/components"
	pandaimage "gitlab.com/tinyland/lab/random-panda/pkg/image"
	"gitlab.com/tinyland/lab/random-panda/pkg/theme"
)

// ImageSource resolves random picture links and downloads pictures.
type ImageSource interface {
	ImageLink(ctx context.Context) (string, error)
	Image(ctx context.Context, link string) (image.Image, error)
}

// Renderer draws a picture so it covers cols x rows cells.
type Renderer interface {
	Render(source string, img image.Image, cols, rows int) (string, error)
}

// BackgroundWidget fetches a picture link on mount and on every refresh, and
// paints the picture across the full width of its region.
type BackgroundWidget struct {
	src      ImageSource
	renderer Renderer
	rows     int
	opts     Options
	log      *slog.Logger
	button   string // zone ID

	seq      sequence
	imageURL string // newest adopted link
	shownURL string // link the picture was downloaded from
	picture  image.Image
	focused  bool
}

// NewBackgroundWidget creates a BackgroundWidget. rows fixes the height of
// the picture region; 0 fills whatever the layout leaves.
func NewBackgroundWidget(src ImageSource, renderer Renderer, rows int, opts Options) *BackgroundWidget {
	opts = opts.withDefaults()
	return &BackgroundWidget{
		src:      src,
		renderer: renderer,
		rows:     rows,
		opts:     opts,
		log:      opts.Logger.With("widget", BackgroundID),
		button:   opts.zoneID("background-button"),
		seq:      sequence{latestOnly: opts.LatestOnly},
	}
}

func (w *BackgroundWidget) ID() string          { return BackgroundID }
func (w *BackgroundWidget) Title() string       { return "Panda background" }
func (w *BackgroundWidget) MinSize() (int, int) { return 16, 1 }

// Init fetches the first link.
func (w *BackgroundWidget) Init() tea.Cmd { return w.Refresh() }

// ImageURL returns the current picture link, empty before the first success.
func (w *BackgroundWidget) ImageURL() string { return w.imageURL }

// Picture returns the last successfully downloaded picture, or nil if none
// has arrived yet. It stays in place while a newer link downloads and when
// that download fails.
func (w *BackgroundWidget) Picture() image.Image { return w.picture }

// ShownURL returns the link Picture was downloaded from.
func (w *BackgroundWidget) ShownURL() string { return w.shownURL }

// Pending returns the number of link requests still in flight.
func (w *BackgroundWidget) Pending() int { return w.seq.pending }

// Refresh issues one link request. Requests already in flight are left
// alone; whichever completes last is displayed.
func (w *BackgroundWidget) Refresh() tea.Cmd {
	seq := w.seq.next()
	ctx, src := w.opts.Context, w.src
	w.log.Debug("requesting image link", "seq", seq, "pending", w.seq.pending)
	return func() tea.Msg {
		link, err := src.ImageLink(ctx)
		return app.ImageLinkLoadedEvent{Seq: seq, Link: link, Err: err, Timestamp: time.Now()}
	}
}

func (w *BackgroundWidget) download(link string) tea.Cmd {
	ctx, src := w.opts.Context, w.src
	return func() tea.Msg {
		img, err := src.Image(ctx, link)
		return app.ImageLoadedEvent{Link: link, Image: img, Err: err, Timestamp: time.Now()}
	}
}

// Update applies link completions, picture downloads and button clicks.
func (w *BackgroundWidget) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case app.ImageLinkLoadedEvent:
		return w.applyLink(msg)
	case app.ImageLoadedEvent:
		w.applyPicture(msg)
	case tea.MouseMsg:
		if w.opts.clicked(w.button, msg) {
			return tea.Batch(focusCmd(BackgroundID), w.Refresh())
		}
	}
	return nil
}

func (w *BackgroundWidget) applyLink(msg app.ImageLinkLoadedEvent) tea.Cmd {
	current := w.seq.done(msg.Seq)
	if msg.Err != nil {
		w.logFailure("image link request failed", msg.Err, "seq", msg.Seq)
		return nil
	}
	if !current {
		w.log.Debug("dropping stale image link", "seq", msg.Seq, "latest", w.seq.issued)
		return nil
	}
	w.imageURL = msg.Link
	if msg.Link == w.shownURL && w.picture != nil {
		return nil
	}
	w.log.Debug("image link loaded", "seq", msg.Seq, "link", msg.Link)
	return w.download(msg.Link)
}

func (w *BackgroundWidget) applyPicture(msg app.ImageLoadedEvent) {
	if msg.Link != w.imageURL {
		w.log.Debug("dropping picture for superseded link", "link", msg.Link)
		return
	}
	if msg.Err != nil {
		w.logFailure("image download failed", msg.Err, "link", msg.Link)
		return
	}
	w.shownURL = msg.Link
	w.picture = msg.Image
}

// logFailure emits one error record, or a debug record when the failure is
// the program shutting down.
func (w *BackgroundWidget) logFailure(text string, err error, args ...any) {
	args = append(args, "error", err)
	if w.opts.Context.Err() != nil {
		w.log.Debug(text+" during shutdown", args...)
		return
	}
	w.log.Error(text, args...)
}

// HandleKey refreshes on enter or space.
func (w *BackgroundWidget) HandleKey(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "enter", " ", "space":
		return w.Refresh()
	}
	return nil
}

// Shortcut is the global binding for Refresh.
func (w *BackgroundWidget) Shortcut() key.Binding {
	return key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "panda background"))
}

// Trigger runs Refresh.
func (w *BackgroundWidget) Trigger() tea.Cmd { return w.Refresh() }

func (w *BackgroundWidget) Focus() tea.Cmd {
	w.focused = true
	return nil
}

func (w *BackgroundWidget) Blur() { w.focused = false }

// HeightFor is the button line plus the fixed picture rows, or 0 to fill.
func (w *BackgroundWidget) HeightFor(int) int {
	if w.rows <= 0 {
		return 0
	}
	return 1 + w.rows
}

// View draws the button, then the picture cover-fitted below it. Until a
// link resolves only the button is drawn; until a picture arrives the link
// stands in for it.
func (w *BackgroundWidget) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	btn := components.Button{Label: "Panda Background", Focused: w.focused, Busy: w.seq.pending > 0}
	lines := []string{w.opts.mark(w.button, btn.Render())}

	rows := height - 1
	if rows <= 0 || w.imageURL == "" {
		return lines[0]
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current.Dim))
	if w.picture == nil || w.renderer == nil {
		lines = append(lines, dim.Render(components.Truncate(w.imageURL, width, "…")))
		return strings.Join(lines, "\n")
	}

	rendered, err := w.renderer.Render(w.shownURL, w.picture, width, rows)
	if err != nil {
		if !errors.Is(err, pandaimage.ErrDisabled) {
			w.log.Debug("render failed", "link", w.shownURL, "error", err)
		}
		lines = append(lines, dim.Render(components.Truncate(w.shownURL, width, "…")))
		return strings.Join(lines, "\n")
	}
	lines = append(lines, rendered)
	return strings.Join(lines, "\n")
}
