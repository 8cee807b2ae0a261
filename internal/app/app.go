// Package app implements the application layer for sweet.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.trai.ch/sweet/internal/adapters/linear"
	"go.trai.ch/sweet/internal/adapters/telemetry"
	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/sweet/internal/engine/builder"
	"go.trai.ch/sweet/internal/engine/scheduler"
)

// Output modes accepted by SessionOptions.OutputMode.
const (
	OutputLinear = "linear"
	OutputQuiet  = "quiet"
	OutputNone   = "none"
)

// App represents the main application logic.
type App struct {
	loader   ports.ConfigLoader
	store    ports.GraphStore
	executor ports.Executor
	fs       ports.FileSystem
	scanner  ports.DependencyScanner
	logger   ports.Logger
	events   ports.EventSink
	renderer ports.Renderer
	watchers ports.WatcherFactory
	stdout   io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	store ports.GraphStore,
	executor ports.Executor,
	fs ports.FileSystem,
	scanner ports.DependencyScanner,
	log ports.Logger,
	events ports.EventSink,
	renderer ports.Renderer,
	watchers ports.WatcherFactory,
) *App {
	return &App{
		loader:   loader,
		store:    store,
		executor: executor,
		fs:       fs,
		scanner:  scanner,
		logger:   log,
		events:   events,
		renderer: renderer,
		watchers: watchers,
		stdout:   os.Stdout,
	}
}

// WithStdout redirects listings printed by Outdated and Show.
func (a *App) WithStdout(w io.Writer) *App {
	a.stdout = w
	return a
}

// SessionOptions are shared by every command.
type SessionOptions struct {
	// Directory is where the buildfile search starts. Empty means the working directory.
	Directory string
	// GraphPath overrides the location of the persisted graph.
	GraphPath string
	// JSON switches the logger to JSON records.
	JSON bool
	// OutputMode selects how rule progress is printed.
	OutputMode string
	// Jobs bounds concurrent rules. Zero means one per CPU.
	Jobs int
}

// BuildOptions configure Build and Watch.
type BuildOptions struct {
	SessionOptions
	DryRun bool
}

// CleanOptions configure Clean.
type CleanOptions struct {
	SessionOptions
	DryRun bool
}

// Build brings goals up to date, or the buildfile's default goals when none are given.
func (a *App) Build(ctx context.Context, goals []string, opts BuildOptions) error {
	s, err := a.open(ctx, opts.SessionOptions)
	if err != nil {
		return err
	}
	return a.build(ctx, s, goals, opts)
}

func (a *App) build(ctx context.Context, s *session, goals []string, opts BuildOptions) error {
	goals, err := s.goals(goals)
	if err != nil {
		return err
	}

	renderer := a.selectRenderer(opts.OutputMode)
	provider := telemetry.Setup(renderer)
	defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()

	tracer := telemetry.NewOTelTracer("sweet")
	if renderer != nil {
		tracer = tracer.WithRenderer(renderer)
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			_ = renderer.Stop()
			_ = renderer.Wait()
		}()
	}

	b := builder.New(s.graph, a.executor, a.fs, a.scanner, tracer, a.events,
		builder.WithDryRun(opts.DryRun))
	sched := s.scheduler()

	runErr := s.each(goals, func(t *domain.Target) {
		tracer.EmitPlan(ctx, ids(scheduler.Reachable(t)), []string{t.ID()})
		sched.Postorder(ctx, b.Build(), t)
	})

	if !opts.DryRun {
		if err := s.save(); err != nil {
			return err
		}
	}
	return runErr
}

// Clean removes the generated files of goals, or of every target when none are given.
func (a *App) Clean(ctx context.Context, goals []string, opts CleanOptions) error {
	s, err := a.open(ctx, opts.SessionOptions)
	if err != nil {
		return err
	}

	b := builder.New(s.graph, a.executor, a.fs, a.scanner, nil, a.events,
		builder.WithDryRun(opts.DryRun))
	sched := s.scheduler()

	var runErr error
	if len(goals) == 0 {
		var roots []*domain.Target
		for t := range s.graph.Targets() {
			if t.Prototype() != nil {
				roots = append(roots, t)
			}
		}
		s.policy.SetSink(a.sink("clean"))
		sched.Preorder(ctx, b.Clean(), roots...)
		if s.policy.Errors() > 0 {
			runErr = domain.ErrBuildFailed
		}
	} else {
		runErr = s.each(goals, func(t *domain.Target) {
			sched.Preorder(ctx, b.Clean(), t)
		})
	}

	if !opts.DryRun {
		if err := s.save(); err != nil {
			return err
		}
	}
	return runErr
}

// Outdated prints the outdated targets below goals, in build order.
func (a *App) Outdated(ctx context.Context, goals []string, opts SessionOptions) error {
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	goals, err = s.goals(goals)
	if err != nil {
		return err
	}

	collector := &builder.Collector{}
	sched := scheduler.New(s.policy, scheduler.WithJobs(1))
	runErr := s.each(goals, func(t *domain.Target) {
		sched.Postorder(ctx, collector.Outdated(), t)
	})

	seen := make(map[string]bool)
	for _, id := range collector.IDs() {
		if !seen[id] {
			seen[id] = true
			_, _ = fmt.Fprintln(a.stdout, id)
		}
	}
	return runErr
}

func (a *App) selectRenderer(mode string) ports.Renderer {
	switch mode {
	case OutputNone:
		return nil
	case OutputQuiet:
		return linear.NewRenderer(nil, nil, linear.WithQuiet())
	default:
		return a.renderer
	}
}

// configure applies process-wide options to the logger.
func (a *App) configure(opts SessionOptions) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(opts.JSON)
	}
}

func ids(targets []*domain.Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.ID()
	}
	return out
}

// IsBuildFailure reports whether err only signals errors that were already reported.
func IsBuildFailure(err error) bool {
	return errors.Is(err, domain.ErrBuildFailed)
}
