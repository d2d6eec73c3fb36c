package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chr1sbest/stagehand/internal/banner"
	"github.com/chr1sbest/stagehand/internal/config"
	"github.com/chr1sbest/stagehand/internal/driver"
	"github.com/chr1sbest/stagehand/internal/driver/sim"
	"github.com/chr1sbest/stagehand/internal/engine"
	"github.com/chr1sbest/stagehand/internal/logger"
	"github.com/chr1sbest/stagehand/internal/runner"
	"github.com/chr1sbest/stagehand/internal/status"
	"github.com/chr1sbest/stagehand/internal/telemetry"
	"github.com/chr1sbest/stagehand/internal/tracker"
)

type runOptions struct {
	configFile string
	simulate   string
	quiet      bool
	watch      bool
}

func runCmd(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configFile := fs.String("config", "", "Path to config file (default: stagehand.yaml, .yml or .json in the current directory)")
	simulate := fs.String("simulate", "", "Run against the simulated target described by this scenario file")
	quiet := fs.Bool("quiet", false, "Only print the outcome")
	noWatch := fs.Bool("no-watch", false, "Do not reload the config file when it changes")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitInvalid
	}

	return run(ctx, runOptions{
		configFile: *configFile,
		simulate:   *simulate,
		quiet:      *quiet,
		watch:      !*noWatch,
	}, os.Stdout, os.Stderr)
}

func run(ctx context.Context, opts runOptions, stdout, stderr io.Writer) int {
	loader := config.NewLoader(".")
	path, cfg, err := loadConfig(loader, opts.configFile, opts.simulate)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}

	log, closeLog, err := newLogger(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}
	defer closeLog()

	factory, err := driver.Open(cfg.GetDriverName(), cfg.Driver.Options)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open driver %q: %v\n", cfg.GetDriverName(), err)
		return exitInvalid
	}

	trk := tracker.NewWriter(cfg.GetStateDir())
	if err := trk.EnsureDir(); err != nil {
		fmt.Fprintf(stderr, "Failed to create state directory: %v\n", err)
		return exitFailure
	}
	runID := tracker.NewRunID()
	releaseLock, err := trk.AcquireLock(runID)
	if err != nil {
		if errors.Is(err, tracker.ErrLockHeld) {
			if l, ok := trk.ReadLock(); ok {
				fmt.Fprintf(stderr, "Another run (%s, pid %d) is using %s\n", l.RunID, l.PID, cfg.GetStateDir())
				return exitFailure
			}
		}
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	defer func() { _ = releaseLock() }()

	log = log.WithFields(logger.F("run", runID))
	tracked := tracker.New(trk, runID, cfg.GetMaxRestarts(), cfg.GetMaxRounds(), log)
	metrics := telemetry.NewMetrics()

	tracing, err := telemetry.NewTracing("stagehand", version, cfg.Telemetry.GetTracing(), stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}
	defer shutdown(log, "tracing", tracing.Shutdown)

	if cfg.Telemetry.Listen != "" {
		srv := telemetry.NewServer(cfg.Telemetry.Listen, metrics, func() any { return tracked.Snapshot() }, log)
		if err := srv.Start(); err != nil {
			fmt.Fprintf(stderr, "Failed to start telemetry server: %v\n", err)
			return exitFailure
		}
		defer shutdown(log, "telemetry server", srv.Shutdown)
	}

	configs, stopWatch := watchConfig(ctx, loader, path, cfg, opts, log)
	defer stopWatch()

	if !opts.quiet {
		banner.NewWithWriter(stdout).Print(cfg)
	}
	st := status.NewWithWriter(stdout)
	if opts.quiet {
		st = status.NewQuiet(stdout)
	}

	runnerOpts := []runner.Option{
		runner.WithLogger(log),
		runner.WithTracer(tracing.Tracer(engine.TracerName)),
		runner.WithObserver(metrics),
		runner.WithObserver(tracked),
		runner.WithStatusReporter(tracked),
		runner.WithStatus(st),
		runner.WithHooks(tracked),
		runner.WithHooks(metrics),
		runner.WithCallObserver(metrics),
	}
	if cfg.Credentials.RefreshCommand != "" {
		runnerOpts = append(runnerOpts, runner.WithRefresher(runner.CommandRefresher{
			Command: cfg.Credentials.RefreshCommand,
			Timeout: cfg.Credentials.GetRefreshTimeout(),
			Log:     log,
		}))
	}

	sum, err := runner.New(factory, configs, runnerOpts...).Run(ctx)
	switch {
	case err == nil:
		tracked.Finish(tracker.StatusCompleted, nil)
		st.Complete(sum.Last.RoundsCompleted)
		return exitOK
	case ctx.Err() != nil:
		tracked.Finish(tracker.StatusStopped, nil)
		st.Clear()
		fmt.Fprintln(stderr, "Stopped.")
		return exitFailure
	default:
		tracked.Finish(tracker.StatusAborted, err)
		st.Error(err)
		return exitFailure
	}
}

// loadConfig finds, loads and validates the config. simulate replaces the
// driver section with the sim driver and the given scenario.
func loadConfig(loader *config.Loader, path, simulate string) (string, *config.Config, error) {
	if path == "" {
		p, err := loader.FindDefault()
		if err != nil {
			return "", nil, err
		}
		path = p
	}
	cfg, err := loader.LoadAndValidate(path)
	if err != nil {
		return "", nil, err
	}
	cfg = withSimulation(cfg, simulate)
	if errs := config.NewValidator(driver.Names()).Validate(cfg); errs.HasErrors() {
		return "", nil, fmt.Errorf("config validation failed for %s:\n%w", path, errs)
	}
	return path, cfg, nil
}

func withSimulation(cfg *config.Config, scenario string) *config.Config {
	if scenario == "" || cfg == nil {
		return cfg
	}
	out := *cfg
	out.Driver = config.DriverConfig{Name: sim.Name, Options: map[string]string{"scenario": scenario}}
	return &out
}

// simulated applies the -simulate override to every reloaded config.
type simulated struct {
	src      runner.ConfigSource
	scenario string
}

func (s simulated) Current() *config.Config { return withSimulation(s.src.Current(), s.scenario) }

// watchConfig returns a source that follows the config file, or the initial
// config when watching is off or fails to start.
func watchConfig(ctx context.Context, loader *config.Loader, path string, initial *config.Config, opts runOptions, log logger.Logger) (runner.ConfigSource, func()) {
	static := runner.StaticConfig{Config: initial}
	if !opts.watch {
		return static, func() {}
	}

	w, err := config.NewWatcher(loader, path)
	if err != nil {
		log.Warn("config hot reload disabled", logger.F("error", err))
		return static, func() {}
	}
	if err := w.Start(ctx); err != nil {
		log.Warn("config hot reload disabled", logger.F("error", err))
		_ = w.Stop()
		return static, func() {}
	}

	go func() {
		for ev := range w.Events() {
			if ev.Error != nil {
				log.Warn("config reload failed", logger.F("path", ev.Path), logger.F("error", ev.Error))
				continue
			}
			log.Info("config reloaded, applies from the next attempt", logger.F("path", ev.Path))
		}
	}()
	return simulated{src: w, scenario: opts.simulate}, func() { _ = w.Stop() }
}

// newLogger logs to the configured file and copies warnings to stderr, or
// logs to stderr alone at warn and above unless a level is set.
func newLogger(cfg config.LogConfig, stderr io.Writer) (logger.Logger, func(), error) {
	format := logger.FormatText
	if cfg.Format != "" {
		format = logger.Format(cfg.Format)
	}
	if cfg.File != "" {
		fl, err := logger.NewFileLogger(cfg.File, logger.ParseLevel(cfg.Level), format)
		if err != nil {
			return nil, nil, err
		}
		return logger.NewMultiLogger(fl, logger.New(stderr, logger.LevelWarn, format)), func() { _ = fl.Close() }, nil
	}

	level := logger.LevelWarn
	if cfg.Level != "" {
		level = logger.ParseLevel(cfg.Level)
	}
	return logger.New(stderr, level, format), func() {}, nil
}

func shutdown(log logger.Logger, what string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("shutdown failed", logger.F("component", what), logger.F("error", err))
	}
}
