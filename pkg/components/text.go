// Package components provides ANSI-aware text primitives and the button
// shared by the random-panda widgets.
package components

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// VisibleLen returns the width of s in terminal cells, ignoring ANSI escape
// sequences and counting wide characters as two cells.
func VisibleLen(s string) int {
	return ansi.StringWidth(s)
}

// Truncate cuts s to at most maxWidth cells, appending tail when it cuts.
// The tail counts toward maxWidth.
func Truncate(s string, maxWidth int, tail string) string {
	if maxWidth <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxWidth, tail)
}

// PadRight pads s with spaces to width cells. Wider strings are returned
// unchanged.
func PadRight(s string, width int) string {
	if vis := VisibleLen(s); vis < width {
		return s + strings.Repeat(" ", width-vis)
	}
	return s
}

// Wrap word-wraps s at width cells and returns the lines. Words longer than
// width are broken.
func Wrap(s string, width int) []string {
	if s == "" {
		return nil
	}
	if width <= 0 {
		return []string{s}
	}
	return strings.Split(ansi.Wrap(s, width, ""), "\n")
}

// Fit clips or pads a block of lines so it is exactly width x height cells.
func Fit(block string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	var lines []string
	if block != "" {
		lines = strings.Split(block, "\n")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	out := make([]string, height)
	for i := range out {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		if VisibleLen(line) > width {
			line = Truncate(line, width, "")
		}
		out[i] = PadRight(line, width)
	}
	return strings.Join(out, "\n")
}
