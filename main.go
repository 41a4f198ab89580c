// random-panda is a terminal page that shows a random panda fact on demand
// over a random panda background picture.
//
// Usage:
//
//	random-panda [flags]
//
// Flags:
//
//	-config string     Path to configuration file (default: ~/.config/random-panda/config.toml)
//	-env-file string   Dotenv file loaded before environment overrides (default: .env)
//	-print             Fetch one fact and one picture, print them, and exit
//	-supervise string  Run the apps listed in a process descriptor and keep them alive
//	-verbose           Enable debug logging
//	-version           Print version and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/random-panda/pkg/app"
	"gitlab.com/tinyland/lab/random-panda/pkg/config"
	"gitlab.com/tinyland/lab/random-panda/pkg/fetch"
	pandaimage "gitlab.com/tinyland/lab/random-panda/pkg/image"
	"gitlab.com/tinyland/lab/random-panda/pkg/supervisor"
	"gitlab.com/tinyland/lab/random-panda/pkg/terminal"
	"gitlab.com/tinyland/lab/random-panda/pkg/theme"
	"gitlab.com/tinyland/lab/random-panda/pkg/widgets"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// printRows is the picture height in -print mode when image.rows is unset.
const printRows = 20

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		envFile     = flag.String("env-file", ".env", "Dotenv file loaded before environment overrides")
		printOnce   = flag.Bool("print", false, "Fetch one fact and one picture, print them, and exit")
		supervise   = flag.String("supervise", "", "Run the apps listed in a process descriptor")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("random-panda %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The supervisor only needs the state directory; endpoints belong to
	// the supervised app.
	if *supervise == "" {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config:\n%v\n", err)
			os.Exit(1)
		}
	}

	tui := *supervise == "" && !*printOnce
	logger, closeLog, err := setupLogging(cfg.General, *verbose, tui)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	theme.SetCurrent(cfg.Theme.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch {
	case *supervise != "":
		err = runSupervisor(ctx, cancel, cfg, *supervise, logger)
	case *printOnce:
		err = runPrint(ctx, cancel, cfg, logger)
	default:
		err = runTUI(ctx, cancel, cfg, logger)
	}
	if err != nil {
		logger.Error("random-panda failed", "error", err)
		fmt.Fprintf(os.Stderr, "random-panda: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

// setupLogging opens the log file and builds the process logger. The TUI
// owns the terminal, so in that mode records go to the file only.
func setupLogging(general config.GeneralConfig, verbose, tui bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(general.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	if err := os.MkdirAll(filepath.Dir(general.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(general.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	var w io.Writer = logFile
	if !tui {
		w = io.MultiWriter(os.Stderr, logFile)
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, func() { logFile.Close() }, nil
}

// notifyShutdown cancels ctx on SIGINT or SIGTERM.
func notifyShutdown(cancel context.CancelFunc, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()
}

func newClient(cfg *config.Config, logger *slog.Logger) *fetch.Client {
	return fetch.NewClient(fetch.Options{
		ProxyBase: cfg.Endpoints.ProxyBase,
		FactURL:   cfg.Endpoints.FactURL,
		ImageURL:  cfg.Endpoints.ImageURL,
		Timeout:   cfg.Fetch.Timeout.Duration,
		UserAgent: cfg.Fetch.UserAgent,
		Logger:    logger,
	})
}

func runTUI(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *slog.Logger) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		return errors.New("the interactive page needs a terminal; use -print instead")
	}

	caps := terminal.DetectCapabilities()
	lipgloss.SetColorProfile(caps.Profile)

	// Graphics protocols draw outside the cell grid bubbletea diffs, so the
	// interactive page paints with half-blocks unless told otherwise.
	imgCfg := cfg.Image
	if imgCfg.Protocol == "" || strings.EqualFold(imgCfg.Protocol, "auto") {
		imgCfg.Protocol = terminal.ProtocolHalfblocks.String()
	}
	renderer := pandaimage.NewRenderer(caps, imgCfg)

	zones := zone.New()
	defer zones.Close()

	client := newClient(cfg, logger)
	opts := widgets.Options{
		Context:    ctx,
		Logger:     logger,
		Zones:      zones,
		LatestOnly: cfg.Fetch.LatestOnly,
	}

	model := app.NewAppModel(
		app.Config{Zones: zones, Cancel: cancel, Logger: logger},
		widgets.NewNavBar(opts),
		widgets.NewFactWidget(client, opts),
		widgets.NewBackgroundWidget(client, renderer, cfg.Image.Rows, opts),
	)

	logger.Info("starting random-panda",
		"terminal", caps.Term.String(),
		"protocol", renderer.Protocol().String(),
		"theme", theme.Current.Name,
	)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// runPrint fetches one picture and one fact and writes them to stdout. The
// picture is skipped when stdout is not a terminal.
func runPrint(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *slog.Logger) error {
	notifyShutdown(cancel, logger)
	client := newClient(cfg, logger)

	link, err := client.ImageLink(ctx)
	if err != nil {
		return fmt.Errorf("fetch image link: %w", err)
	}
	fact, err := client.Fact(ctx)
	if err != nil {
		return fmt.Errorf("fetch fact: %w", err)
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		if err := printPicture(ctx, client, cfg, link, logger); err != nil {
			logger.Warn("picture not shown", "link", link, "error", err)
		}
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current.Fact))
	fmt.Println(style.Render(fact))
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current.Dim)).Render(link))
	return nil
}

func printPicture(ctx context.Context, client *fetch.Client, cfg *config.Config, link string, logger *slog.Logger) error {
	img, err := client.Image(ctx, link)
	if err != nil {
		return err
	}

	caps := terminal.DetectCapabilities()
	renderer := pandaimage.NewRenderer(caps, cfg.Image)
	rows := cfg.Image.Rows
	if rows <= 0 {
		rows = printRows
	}
	cols := caps.Size.Cols
	if cols <= 0 {
		cols = 80
	}
	logger.Debug("printing picture", "protocol", renderer.Protocol().String(), "cols", cols, "rows", rows)

	out, err := renderer.Render(link, img, cols, rows)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func runSupervisor(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, path string, logger *slog.Logger) error {
	notifyShutdown(cancel, logger)

	d, err := supervisor.LoadDescriptor(path)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(d.Apps))
	for _, a := range d.Apps {
		names = append(names, a.Name)
	}
	logger.Info("supervising", "descriptor", path, "apps", strings.Join(names, ","))

	return supervisor.Supervise(ctx, d, supervisor.Options{
		Logger:   logger.With("component", "supervisor"),
		StateDir: cfg.General.StateDir,
	})
}
