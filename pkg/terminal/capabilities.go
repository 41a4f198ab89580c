package terminal

import (
	"os"

	"github.com/muesli/termenv"
)

// Capabilities summarises what the current terminal can do.
type Capabilities struct {
	Term      Terminal
	Protocol  GraphicsProtocol
	Size      Size
	Profile   termenv.Profile
	TrueColor bool
	SSH       bool
	Mux       bool // inside tmux or screen
}

// DetectCapabilities inspects the environment and the controlling terminal.
// The colour profile comes from termenv, which honours COLORTERM, NO_COLOR
// and CLICOLOR_FORCE.
func DetectCapabilities() Capabilities {
	term := Detect()
	profile := termenv.NewOutput(os.Stdout).EnvColorProfile()
	return Capabilities{
		Term:      term,
		Protocol:  SelectProtocol(term),
		Size:      GetSize(),
		Profile:   profile,
		TrueColor: profile == termenv.TrueColor,
		SSH:       isSSH(),
		Mux:       os.Getenv("TMUX") != "" || os.Getenv("STY") != "",
	}
}
