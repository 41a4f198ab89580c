// Package theme holds the named colour palettes the widgets are styled with.
package theme

import (
	"sort"
	"strings"
	"sync"
)

// Theme is a palette of hex colours. lipgloss degrades them to the terminal's
// colour profile at render time, so palettes only need 24-bit values.
type Theme struct {
	Name string

	Foreground string
	Dim        string
	Accent     string

	Brand       string // navbar brand text
	Border      string // unfocused widget border
	BorderFocus string // focused widget border

	Button      string // button background
	ButtonFocus string // button background while focused
	ButtonText  string

	Fact string // fact paragraph

	HelpKey  string
	HelpDesc string
}

// Current is the active theme. Set it with SetCurrent before the program
// starts; it is read without locking afterwards.
var Current Theme

var (
	mu       sync.RWMutex
	registry = map[string]Theme{}
)

func init() {
	registerBuiltins()
	Current = defaultTheme()
}

// Lookup returns the named theme.
func Lookup(name string) (Theme, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Get returns the named theme, or the default theme if it is unknown.
func Get(name string) Theme {
	if t, ok := Lookup(name); ok {
		return t
	}
	return defaultTheme()
}

// Names returns all registered theme names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetCurrent makes the named theme active. Unknown names select the default.
func SetCurrent(name string) {
	Current = Get(name)
}

func register(t Theme) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(t.Name)] = t
}
