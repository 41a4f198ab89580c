// Package app provides the bubbletea skeleton of random-panda: the widget
// interface, the event types fetch commands deliver, and the root model that
// mounts widgets in a fixed vertical order and routes messages to them.
package app

import (
	"image"
	"time"
)

// FactLoadedEvent carries the result of one fact request back into the
// update loop. Seq is the request's sequence number within its widget.
type FactLoadedEvent struct {
	Seq       uint64
	Fact      string
	Err       error
	Timestamp time.Time
}

// ImageLinkLoadedEvent carries the result of one image link request.
type ImageLinkLoadedEvent struct {
	Seq       uint64
	Link      string
	Err       error
	Timestamp time.Time
}

// ImageLoadedEvent carries a downloaded and decoded picture. Link names the
// address it was downloaded from.
type ImageLoadedEvent struct {
	Link      string
	Image     image.Image
	Err       error
	Timestamp time.Time
}

// WidgetFocusEvent requests that focus move to a specific widget.
type WidgetFocusEvent struct {
	WidgetID string
}

// ThemeChangeEvent switches the active color theme.
type ThemeChangeEvent struct {
	Theme string
}
