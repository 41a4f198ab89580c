package terminal

import (
	"os"
	"strings"
)

// GraphicsProtocol identifies how a picture is drawn into the terminal.
type GraphicsProtocol int

const (
	ProtocolNone       GraphicsProtocol = iota // pictures are not drawn
	ProtocolKitty                              // kitty graphics protocol
	ProtocolITerm2                             // iTerm2 inline images
	ProtocolSixel                              // sixel
	ProtocolHalfblocks                         // U+2580 cells with 24-bit colour
)

var protocolNames = [...]string{
	ProtocolNone:       "none",
	ProtocolKitty:      "kitty",
	ProtocolITerm2:     "iterm2",
	ProtocolSixel:      "sixel",
	ProtocolHalfblocks: "halfblocks",
}

func (p GraphicsProtocol) String() string {
	if p >= 0 && int(p) < len(protocolNames) {
		return protocolNames[p]
	}
	return "unknown"
}

// ParseProtocol maps a configured protocol name to a GraphicsProtocol. The
// second result is false for "auto", the empty string and unknown names.
func ParseProtocol(name string) (GraphicsProtocol, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "kitty":
		return ProtocolKitty, true
	case "iterm2":
		return ProtocolITerm2, true
	case "sixel":
		return ProtocolSixel, true
	case "halfblocks", "unicode":
		return ProtocolHalfblocks, true
	case "none", "off":
		return ProtocolNone, true
	}
	return ProtocolNone, false
}

// SelectProtocol returns the best protocol for term. Over SSH every graphics
// protocol falls back to halfblocks, since escape passthrough is unreliable.
func SelectProtocol(term Terminal) GraphicsProtocol {
	return selectProtocol(term, isSSH())
}

func selectProtocol(term Terminal, ssh bool) GraphicsProtocol {
	if ssh {
		return ProtocolHalfblocks
	}
	switch {
	case term.SupportsKittyGraphics():
		return ProtocolKitty
	case term.SupportsITerm2Images():
		return ProtocolITerm2
	default:
		return ProtocolHalfblocks
	}
}

// SelectProtocolWithOverride honours a configured protocol name and falls
// back to detection for "auto", empty or unknown names.
func SelectProtocolWithOverride(term Terminal, override string) GraphicsProtocol {
	if p, ok := ParseProtocol(override); ok {
		return p
	}
	return SelectProtocol(term)
}

func isSSH() bool {
	return os.Getenv("SSH_TTY") != "" ||
		os.Getenv("SSH_CONNECTION") != "" ||
		os.Getenv("SSH_CLIENT") != ""
}
