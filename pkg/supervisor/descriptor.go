// Package supervisor keeps the random-panda binary running under a
// process-manager descriptor: it restarts the app when it crashes, when its
// resident memory passes a threshold, or when a watched file changes.
package supervisor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Descriptor lists the apps to supervise.
type Descriptor struct {
	Apps []App `yaml:"apps"`
}

// App describes one supervised process.
type App struct {
	Name   string            `yaml:"name"`
	Cwd    string            `yaml:"cwd"`
	Script string            `yaml:"script"`
	Args   Args              `yaml:"args"`
	Env    map[string]string `yaml:"env"`

	// Autorestart restarts the app whenever it exits. Defaults to true.
	Autorestart bool `yaml:"autorestart"`

	Watch       Watch    `yaml:"watch"`
	IgnoreWatch []string `yaml:"ignore_watch"`

	// MaxMemoryRestart restarts the app once its RSS exceeds this many
	// bytes. Zero disables the check.
	MaxMemoryRestart ByteSize `yaml:"max_memory_restart"`

	RestartDelay Delay `yaml:"restart_delay"`

	// MinUptime is how long a run must last to count as stable. Exits
	// sooner back off exponentially and give up after
	// maxUnstableRestarts in a row. Zero means defaultMinUptime.
	MinUptime Delay `yaml:"min_uptime"`

	// MaxRestarts bounds how often the app is restarted. Zero means
	// unlimited.
	MaxRestarts int `yaml:"max_restarts"`
}

// UnmarshalYAML applies defaults before decoding the node.
func (a *App) UnmarshalYAML(node *yaml.Node) error {
	type plain App
	p := plain{Autorestart: true, MinUptime: Delay(defaultMinUptime)}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*a = App(p)
	return nil
}

// Args is a command line given either as one string or as a list.
type Args []string

// UnmarshalYAML accepts "a b c" as well as [a, b, c].
func (a *Args) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*a = strings.Fields(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*a = list
		return nil
	default:
		return fmt.Errorf("line %d: args must be a string or a list", node.Line)
	}
}

// Watch is either a boolean (watch the working directory) or a list of
// paths relative to it.
type Watch struct {
	Enabled bool
	Paths   []string
}

// UnmarshalYAML accepts true, false, or a list of paths.
func (w *Watch) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var on bool
		if err := node.Decode(&on); err != nil {
			return fmt.Errorf("line %d: watch: %w", node.Line, err)
		}
		*w = Watch{Enabled: on}
		return nil
	case yaml.SequenceNode:
		var paths []string
		if err := node.Decode(&paths); err != nil {
			return err
		}
		*w = Watch{Enabled: len(paths) > 0, Paths: paths}
		return nil
	default:
		return fmt.Errorf("line %d: watch must be a boolean or a list", node.Line)
	}
}

// ByteSize is a memory amount written as "1G", "512M", "300K" or plain bytes.
type ByteSize uint64

// UnmarshalYAML parses a size string or an integer.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	n, err := ParseByteSize(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: max_memory_restart: %w", node.Line, err)
	}
	*b = ByteSize(n)
	return nil
}

// Delay is a duration given as a Go duration ("2s") or an integer number
// of milliseconds.
type Delay time.Duration

// UnmarshalYAML parses either form.
func (d *Delay) UnmarshalYAML(node *yaml.Node) error {
	v := strings.TrimSpace(node.Value)
	if v == "" {
		*d = 0
		return nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		if ms < 0 {
			return fmt.Errorf("line %d: delay must not be negative", node.Line)
		}
		*d = Delay(time.Duration(ms) * time.Millisecond)
		return nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("line %d: delay: %w", node.Line, err)
	}
	if dur < 0 {
		return fmt.Errorf("line %d: delay must not be negative", node.Line)
	}
	*d = Delay(dur)
	return nil
}

// Duration returns d as a time.Duration.
func (d Delay) Duration() time.Duration {
	return time.Duration(d)
}

// LoadDescriptor reads a descriptor file. Relative app working directories
// are resolved against the file's directory.
func LoadDescriptor(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open descriptor: %w", err)
	}
	defer f.Close()

	d, err := ParseDescriptor(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve descriptor dir: %w", err)
	}
	for i := range d.Apps {
		d.Apps[i].Cwd = resolveDir(base, d.Apps[i].Cwd)
	}
	return d, nil
}

// ParseDescriptor decodes and validates a descriptor.
func ParseDescriptor(r io.Reader) (*Descriptor, error) {
	var d Descriptor
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("descriptor is empty")
		}
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate reports every problem in the descriptor at once.
func (d *Descriptor) Validate() error {
	if len(d.Apps) == 0 {
		return errors.New("descriptor lists no apps")
	}
	var errs []error
	seen := make(map[string]bool, len(d.Apps))
	for i, app := range d.Apps {
		switch {
		case app.Name == "":
			errs = append(errs, fmt.Errorf("apps[%d]: name is required", i))
		case seen[app.Name]:
			errs = append(errs, fmt.Errorf("apps[%d]: duplicate name %q", i, app.Name))
		}
		seen[app.Name] = true
		if app.Script == "" {
			errs = append(errs, fmt.Errorf("apps[%d] %s: script is required", i, app.Name))
		}
		if app.MaxRestarts < 0 {
			errs = append(errs, fmt.Errorf("apps[%d] %s: max_restarts must not be negative", i, app.Name))
		}
	}
	return errors.Join(errs...)
}

// App returns the app named name.
func (d *Descriptor) App(name string) (App, bool) {
	for _, a := range d.Apps {
		if a.Name == name {
			return a, true
		}
	}
	return App{}, false
}

func resolveDir(base, dir string) string {
	if dir == "" {
		return base
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(base, dir)
}
