// Package widgets provides the three random-panda widgets: the navigation
// bar with its inert search box, the fact generator, and the background
// picture. Each implements app.Widget and owns its state exclusively.
package widgets

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/random-panda/pkg/app"
)

// Widget IDs, top to bottom.
const (
	NavBarID     = "navbar"
	FactID       = "fact"
	BackgroundID = "background"
)

// Options carries what every widget shares.
type Options struct {
	// Context is passed to every request and cancelled when the program
	// quits.
	Context context.Context

	Logger *slog.Logger

	// Zones marks buttons as clickable regions. Nil disables the mouse.
	Zones *zone.Manager

	// LatestOnly drops completions older than the newest request the
	// widget has issued. When false the last completion wins.
	LatestOnly bool
}

func (o Options) withDefaults() Options {
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// zoneID returns a zone ID unique to this zone manager.
func (o Options) zoneID(name string) string {
	if o.Zones == nil {
		return name
	}
	return o.Zones.NewPrefix() + name
}

// mark wraps s in the zone id when mouse support is on.
func (o Options) mark(id, s string) string {
	if o.Zones == nil {
		return s
	}
	return o.Zones.Mark(id, s)
}

// clicked reports whether msg is a left press inside zone id.
func (o Options) clicked(id string, msg tea.MouseMsg) bool {
	if o.Zones == nil || msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return false
	}
	z := o.Zones.Get(id)
	return z != nil && z.InBounds(msg)
}

func focusCmd(id string) tea.Cmd {
	return func() tea.Msg { return app.WidgetFocusEvent{WidgetID: id} }
}

// sequence numbers one widget's requests. Requests are never cancelled by
// newer ones; with latestOnly set, completions of superseded requests are
// reported as stale so the caller can drop them.
type sequence struct {
	issued     uint64
	pending    int
	latestOnly bool
}

func (s *sequence) next() uint64 {
	s.issued++
	s.pending++
	return s.issued
}

// done records a completion and reports whether its result may be applied.
func (s *sequence) done(seq uint64) bool {
	if s.pending > 0 {
		s.pending--
	}
	return !s.latestOnly || seq == s.issued
}
