package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// ErrTooManyRestarts is returned by Run once an app has used up its
// max_restarts budget.
var ErrTooManyRestarts = errors.New("too many restarts")

const (
	defaultMinUptime = time.Second

	// maxUnstableRestarts is how many early exits in a row are retried
	// before the app is given up on.
	maxUnstableRestarts = 15
)

// stopReason says why one run of the app ended.
type stopReason int

const (
	reasonExit stopReason = iota
	reasonMemory
	reasonWatch
	reasonStopped
	reasonStartFailed
)

func (r stopReason) String() string {
	switch r {
	case reasonExit:
		return "exit"
	case reasonMemory:
		return "memory"
	case reasonWatch:
		return "watch"
	case reasonStopped:
		return "stopped"
	case reasonStartFailed:
		return "start-failed"
	default:
		return "unknown"
	}
}

// Options configures a Supervisor.
type Options struct {
	Logger *slog.Logger

	// StateDir holds PID files. Empty disables them.
	StateDir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// PollInterval is how often RSS is checked (default 5s).
	PollInterval time.Duration

	// StopTimeout is how long a stopped app may take to exit after SIGTERM
	// before it is killed (default 5s).
	StopTimeout time.Duration

	// Memory reads a process's RSS. Defaults to ProcessRSS.
	Memory MemoryFunc

	// Backoff is the wait after the first early exit; it doubles with each
	// further one up to MaxBackoff (defaults 100ms and 15s).
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = 5 * time.Second
	}
	if o.Memory == nil {
		o.Memory = ProcessRSS
	}
	if o.Backoff <= 0 {
		o.Backoff = 100 * time.Millisecond
	}
	if o.MaxBackoff < o.Backoff {
		o.MaxBackoff = max(15*time.Second, o.Backoff)
	}
	return o
}

// Supervisor runs one app and restarts it as its descriptor asks.
type Supervisor struct {
	app  App
	opts Options
	log  *slog.Logger

	restarts atomic.Int64
	pid      atomic.Int64
}

// New creates a Supervisor for app.
func New(app App, opts Options) *Supervisor {
	opts = opts.withDefaults()
	return &Supervisor{
		app:  app,
		opts: opts,
		log:  opts.Logger.With("app", app.Name),
	}
}

// Restarts returns how many times the app has been restarted.
func (s *Supervisor) Restarts() int {
	return int(s.restarts.Load())
}

// PID returns the running app's PID, or 0 between runs.
func (s *Supervisor) PID() int {
	return int(s.pid.Load())
}

// Run starts the app and keeps it running until ctx is done. It returns nil
// when ctx ends or the app exits cleanly without autorestart, the exit error
// when it crashes without autorestart, and ErrTooManyRestarts once the
// restart budget is spent or the app keeps exiting within min_uptime.
func (s *Supervisor) Run(ctx context.Context) error {
	minUptime := s.app.MinUptime.Duration()
	if minUptime <= 0 {
		minUptime = defaultMinUptime
	}

	unstable := 0
	for {
		started := time.Now()
		reason, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.log.Info("app stopped")
			return nil
		}

		switch reason {
		case reasonStartFailed:
			s.log.Error("app failed to start", "error", err)
			return fmt.Errorf("%s: %w", s.app.Name, err)
		case reasonExit:
			if !s.app.Autorestart {
				if err != nil {
					s.log.Error("app exited", "error", err)
					return fmt.Errorf("%s: %w", s.app.Name, err)
				}
				s.log.Info("app exited")
				return nil
			}
		}

		delay := s.app.RestartDelay.Duration()
		if reason == reasonExit && time.Since(started) < minUptime {
			unstable++
			if unstable > maxUnstableRestarts {
				s.log.Error("giving up, app keeps exiting early",
					"min_uptime", minUptime, "restarts", s.Restarts())
				return fmt.Errorf("%s: %w (exited within %v %d times in a row)",
					s.app.Name, ErrTooManyRestarts, minUptime, unstable)
			}
			delay = max(delay, s.backoff(unstable))
		} else {
			unstable = 0
		}

		if budget := s.app.MaxRestarts; budget > 0 && s.Restarts() >= budget {
			s.log.Error("giving up", "restarts", s.Restarts(), "reason", reason.String())
			return fmt.Errorf("%s: %w (%d)", s.app.Name, ErrTooManyRestarts, budget)
		}
		n := s.restarts.Add(1)
		attrs := []any{"reason", reason.String(), "restarts", n, "delay", delay}
		if err != nil {
			attrs = append(attrs, "error", err)
		}
		s.log.Warn("restarting app", attrs...)

		if !sleepCtx(ctx, delay) {
			s.log.Info("app stopped")
			return nil
		}
	}
}

// backoff returns the wait before restarting after the nth early exit in a
// row.
func (s *Supervisor) backoff(n int) time.Duration {
	d := s.opts.Backoff
	for i := 1; i < n && d < s.opts.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, s.opts.MaxBackoff)
}

// runOnce starts the app and waits until it exits or has to be stopped.
func (s *Supervisor) runOnce(ctx context.Context) (stopReason, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var changes <-chan string
	if s.app.Watch.Enabled {
		w, err := newWatcher(s.app.Cwd, s.app.Watch.Paths, s.app.IgnoreWatch, s.log)
		if err != nil {
			return reasonStartFailed, err
		}
		defer w.Close()
		changes = w.Changes(runCtx)
	}

	cmd := exec.CommandContext(runCtx, s.app.Script, s.app.Args...)
	cmd.Dir = s.app.Cwd
	cmd.Env = s.environ()
	cmd.Stdin = s.opts.Stdin
	cmd.Stdout = s.opts.Stdout
	cmd.Stderr = s.opts.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = s.opts.StopTimeout

	if err := cmd.Start(); err != nil {
		return reasonStartFailed, fmt.Errorf("start %s: %w", s.app.Script, err)
	}
	pid := cmd.Process.Pid
	s.pid.Store(int64(pid))
	defer s.pid.Store(0)
	s.log.Info("app started", "pid", pid)

	if s.opts.StateDir != "" {
		path := PIDPath(s.opts.StateDir, s.app.Name)
		if err := AcquirePID(path, pid); err != nil {
			s.log.Warn("pid file not written", "path", path, "error", err)
		} else {
			defer ReleasePID(path)
		}
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var poll <-chan time.Time
	limit := uint64(s.app.MaxMemoryRestart)
	if limit > 0 {
		t := time.NewTicker(s.opts.PollInterval)
		defer t.Stop()
		poll = t.C
	}

	stop := func(r stopReason) (stopReason, error) {
		cancel()
		<-exited
		return r, nil
	}

	for {
		select {
		case err := <-exited:
			return reasonExit, err

		case <-ctx.Done():
			return stop(reasonStopped)

		case name := <-changes:
			s.log.Info("watched file changed", "file", name)
			return stop(reasonWatch)

		case <-poll:
			rss, err := s.opts.Memory(pid)
			if err != nil {
				s.log.Debug("memory check failed", "error", err)
				continue
			}
			if rss > limit {
				s.log.Warn("memory limit exceeded",
					"rss", FormatByteSize(rss),
					"limit", FormatByteSize(limit),
				)
				return stop(reasonMemory)
			}
		}
	}
}

// environ returns the supervisor's environment plus the app's own entries,
// which take precedence.
func (s *Supervisor) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(s.app.Env))
	for k := range s.app.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+s.app.Env[k])
	}
	return env
}

// Supervise runs every app in d until ctx is done or all of them have
// stopped, and returns their errors joined.
func Supervise(ctx context.Context, d *Descriptor, opts Options) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, app := range d.Apps {
		sup := New(app, opts)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sup.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// sleepCtx waits for d or until ctx is done, reporting whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
