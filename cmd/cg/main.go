package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/vanderheijden86/casegraph/pkg/config"
	"github.com/vanderheijden86/casegraph/pkg/export"
	"github.com/vanderheijden86/casegraph/pkg/hooks"
	"github.com/vanderheijden86/casegraph/pkg/loader"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/render"
	"github.com/vanderheijden86/casegraph/pkg/ui"
	"github.com/vanderheijden86/casegraph/pkg/version"
	"github.com/vanderheijden86/casegraph/pkg/watcher"
)

// isTerminal reports whether the TUI can take over stdout.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	graph       string
	config      string
	export      string
	format      string
	width       int
	height      int
	ticks       int
	seed        uint64
	stableBands bool
	theme       string
	hooks       string
	noHooks     bool
	metricsAddr string
	watch       bool
	verbose     bool
	cpuProfile  string
	version     bool
	help        bool
}

func parseFlags(args []string, stderr io.Writer) (options, *flag.FlagSet, error) {
	var o options
	fs := flag.NewFlagSet("cg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.graph, "graph", "", "Graph file to open (JSON or SQLite)")
	fs.StringVar(&o.config, "config", "", "Config file (default: $XDG_CONFIG_HOME/casegraph/config.yaml)")
	fs.StringVar(&o.export, "export", "", "Write snapshots to these comma-separated paths and exit")
	fs.StringVar(&o.format, "format", "", "Snapshot format for a single --export path (png, svg, json, sqlite)")
	fs.IntVar(&o.width, "width", export.DefaultWidth, "Snapshot width in pixels")
	fs.IntVar(&o.height, "height", export.DefaultHeight, "Snapshot height in pixels")
	fs.IntVar(&o.ticks, "ticks", export.DefaultMaxTicks, "Maximum layout iterations for snapshots")
	fs.Uint64Var(&o.seed, "seed", 0, "Layout seed (0 picks one at random)")
	fs.BoolVar(&o.stableBands, "stable-bands", false, "Derive zoom bands from node ids instead of at random")
	fs.StringVar(&o.theme, "theme", "", "Canvas theme (dark, light)")
	fs.StringVar(&o.hooks, "hooks", "", "Export hooks file (default: hooks.yaml next to the config file)")
	fs.BoolVar(&o.noHooks, "no-hooks", false, "Do not run export hooks")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.BoolVar(&o.watch, "watch", true, "Reload the graph when the file changes (TUI only)")
	fs.BoolVar(&o.verbose, "verbose", false, "Enable debug logging")
	fs.StringVar(&o.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.BoolVar(&o.version, "version", false, "Show version")
	fs.BoolVar(&o.help, "help", false, "Show help")
	if err := fs.Parse(args); err != nil {
		return o, fs, err
	}
	if o.graph == "" && fs.NArg() > 0 {
		o.graph = fs.Arg(0)
	}
	return o, fs, nil
}

// newLogger creates the CLI logger writing to w.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Prefix:          "cg",
	})
}

func run(args []string, stdout, stderr io.Writer) int {
	o, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if o.help {
		fmt.Fprintln(stdout, "Usage: cg [options] [graph-file]")
		fmt.Fprintln(stdout, "\nAn interactive viewer for investigation graphs.")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}
	if o.version {
		fmt.Fprintf(stdout, "cg %s\n", version.Version)
		return 0
	}

	logger := newLogger(stderr, o.verbose)

	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			logger.Error("could not create CPU profile", "err", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Error("could not start CPU profile", "err", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := loadConfig(o, logger)
	if err != nil {
		logger.Error("config", "err", err)
		return 1
	}

	if o.graph == "" {
		fmt.Fprintln(stderr, "cg: no graph file given (use --graph or pass a path)")
		return 2
	}
	res, err := loader.LoadFileWithOptions(o.graph, loader.ParseOptions{
		WarningHandler: func(w string) { logger.Warn(w) },
	})
	if err != nil {
		logger.Error("loading graph", "path", o.graph, "err", err)
		return 1
	}
	logger.Debug("graph loaded", "path", o.graph, "nodes", len(res.Graph.Nodes), "edges", len(res.Graph.Edges))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.metricsAddr != "" {
		metrics.SetEnabled(true)
		srv := &http.Server{Addr: o.metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "addr", o.metricsAddr, "err", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", o.metricsAddr)
	}

	icons := render.NewIconCache()
	if err := icons.Preload(ctx, cfg.DisplaySettings().IconPaths()); err != nil {
		logger.Warn("some icons could not be loaded", "err", err)
	}

	if o.export != "" {
		return runExport(ctx, o, cfg, res, icons, logger)
	}

	if !isTerminal() {
		logger.Error("stdout is not a terminal; use --export to write snapshots")
		return 1
	}

	var w *watcher.Watcher
	if o.watch {
		w, err = watcher.New(o.graph, watcher.WithOnError(func(err error) {
			logger.Debug("watcher", "err", err)
		}))
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			logger.Warn("live reload disabled", "err", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	m := ui.New(ui.Options{
		Graph:   res.Graph,
		Path:    o.graph,
		Config:  cfg,
		Watcher: w,
		Icons:   icons,
		Seed:    o.seed,
	})
	if err := runTUIProgram(ctx, m); err != nil {
		logger.Error("running viewer", "err", err)
		return 1
	}
	return 0
}

// loadConfig reads --config, or the user config when none is given, and
// applies flag overrides. A broken user config is not fatal.
func loadConfig(o options, logger *log.Logger) (config.Config, error) {
	var cfg config.Config
	var err error
	if o.config != "" {
		cfg, err = config.LoadFrom(o.config)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			logger.Warn("ignoring user config", "path", config.ConfigPath(), "err", err)
			cfg = config.DefaultConfig()
		}
	}
	if o.stableBands {
		cfg.Render.StableBands = true
	}
	if o.theme != "" {
		cfg.Render.Theme = o.theme
	}
	return cfg, cfg.Validate()
}

func runExport(ctx context.Context, o options, cfg config.Config, res loader.Result, icons *render.IconCache, logger *log.Logger) int {
	var paths []string
	for _, p := range strings.Split(o.export, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		logger.Error("--export needs at least one path")
		return 2
	}

	hookCfg := hooks.Config{}
	if !o.noHooks {
		path := o.hooks
		if path == "" {
			path = hooks.DefaultPath()
		}
		var warnings []string
		var err error
		hookCfg, warnings, err = hooks.Load(path)
		if err != nil {
			logger.Error("hooks", "err", err)
			return 1
		}
		for _, w := range warnings {
			logger.Warn(w)
		}
	}
	formats := make([]string, len(paths))
	for i, p := range paths {
		explicit := ""
		if len(paths) == 1 {
			explicit = o.format
		}
		f, err := export.FormatFor(p, explicit)
		if err != nil {
			logger.Error("export failed", "err", err)
			return 1
		}
		formats[i] = string(f)
	}
	ex := hooks.NewExecutor(hookCfg, hooks.ExportContext{
		Paths:     paths,
		Formats:   formats,
		Nodes:     len(res.Graph.Nodes),
		Edges:     len(res.Graph.Edges),
		Timestamp: time.Now(),
	})
	if err := ex.RunPreExport(ctx); err != nil {
		logger.Error("export cancelled by hook", "err", err)
		return 1
	}

	start := time.Now()
	err := export.SaveSnapshots(ctx, export.SnapshotOptions{
		Format:   o.format,
		Graph:    res.Graph,
		Config:   cfg,
		Width:    o.width,
		Height:   o.height,
		MaxTicks: o.ticks,
		Seed:     o.seed,
		Icons:    icons,
	}, paths)
	if err != nil {
		logger.Error("export failed", "err", err)
		return 1
	}
	logger.Infof("wrote %s (%s)", strings.Join(paths, ", "), time.Since(start).Round(time.Millisecond))

	if err := ex.RunPostExport(ctx); err != nil {
		logger.Warn("post-export hook failed", "err", err)
	}
	for _, r := range ex.Results() {
		if r.Stdout != "" {
			logger.Info(r.Stdout, "hook", r.Hook)
		}
	}
	if !hookCfg.Empty() {
		logger.Debug(ex.Summary())
	}
	return 0
}

func runTUIProgram(ctx context.Context, m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		select {
		case <-runDone:
			return
		case <-ctx.Done():
		}

		p.Quit()

		select {
		case <-runDone:
		case <-time.After(5 * time.Second):
			p.Kill()
		}
	}()

	// Optional auto-quit for automated tests: set CG_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("CG_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()
				select {
				case <-runDone:
				case <-timer.C:
					p.Quit()
				}
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
