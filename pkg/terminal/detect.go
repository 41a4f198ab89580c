// Package terminal identifies the terminal emulator, picks the graphics
// protocol the background picture is drawn with, and queries the window size.
// Detection only inspects the environment; it never writes query sequences.
package terminal

import (
	"os"
	"strings"
)

// Terminal identifies the terminal emulator in use.
type Terminal int

const (
	TermUnknown Terminal = iota
	TermGhostty
	TermKitty
	TermWezTerm
	TermITerm2
	TermAlacritty
	TermVSCode
	TermTmux
	TermScreen
	TermGeneric
)

var terminalNames = [...]string{
	TermUnknown:   "unknown",
	TermGhostty:   "ghostty",
	TermKitty:     "kitty",
	TermWezTerm:   "wezterm",
	TermITerm2:    "iterm2",
	TermAlacritty: "alacritty",
	TermVSCode:    "vscode",
	TermTmux:      "tmux",
	TermScreen:    "screen",
	TermGeneric:   "generic",
}

func (t Terminal) String() string {
	if t >= 0 && int(t) < len(terminalNames) {
		return terminalNames[t]
	}
	return "unknown"
}

// SupportsKittyGraphics reports whether the emulator draws kitty graphics.
func (t Terminal) SupportsKittyGraphics() bool {
	return t == TermGhostty || t == TermKitty || t == TermWezTerm
}

// SupportsITerm2Images reports whether the emulator draws iTerm2 inline images.
func (t Terminal) SupportsITerm2Images() bool {
	return t == TermITerm2 || t == TermWezTerm
}

// termPrograms maps lower-cased TERM_PROGRAM values to emulators.
var termPrograms = map[string]Terminal{
	"ghostty":   TermGhostty,
	"kitty":     TermKitty,
	"wezterm":   TermWezTerm,
	"iterm.app": TermITerm2,
	"vscode":    TermVSCode,
	"alacritty": TermAlacritty,
	"tmux":      TermTmux,
}

// markerVars are emulator-specific variables, checked in order.
var markerVars = []struct {
	name string
	term Terminal
}{
	{"KITTY_WINDOW_ID", TermKitty},
	{"ITERM_SESSION_ID", TermITerm2},
	{"WEZTERM_EXECUTABLE", TermWezTerm},
	{"TMUX", TermTmux},
	{"STY", TermScreen},
}

// Detect identifies the terminal emulator from environment variables.
// TERM_PROGRAM wins, then TERM, then emulator-specific markers. Multiplexers
// come last so the emulator inside them is preferred when it is known.
func Detect() Terminal {
	if t, ok := termPrograms[strings.ToLower(os.Getenv("TERM_PROGRAM"))]; ok {
		return t
	}

	switch term := os.Getenv("TERM"); {
	case term == "xterm-ghostty":
		return TermGhostty
	case term == "xterm-kitty":
		return TermKitty
	case strings.HasPrefix(term, "alacritty"):
		return TermAlacritty
	}

	for _, m := range markerVars {
		if os.Getenv(m.name) != "" {
			return m.term
		}
	}
	if os.Getenv("LC_TERMINAL") == "iTerm2" {
		return TermITerm2
	}
	return TermGeneric
}
