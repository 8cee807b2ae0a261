package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/engine/binder"
	"go.trai.ch/sweet/internal/engine/errpolicy"
	"go.trai.ch/sweet/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// session is one load of the buildfile into a graph, followed by commands.
type session struct {
	app       *App
	root      string
	graphPath string
	graph     *domain.Graph
	project   *domain.Project
	policy    *errpolicy.Policy
	jobs      int
}

// open finds the buildfile, restores the persisted graph and declares the
// buildfile into it. Declaration errors fail the session before any command runs.
func (a *App) open(ctx context.Context, opts SessionOptions) (*session, error) {
	a.configure(opts)

	dir := opts.Directory
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, zerr.Wrap(err, "failed to get working directory")
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve directory")
	}

	root, err := a.loader.Discover(dir)
	if err != nil {
		return nil, err
	}

	s := &session{
		app:       a,
		root:      root,
		graphPath: a.graphPath(root, opts.GraphPath),
		policy:    errpolicy.New(errpolicy.WithSink(a.sink(""))),
		jobs:      opts.Jobs,
	}

	s.restore()

	project, err := a.loader.Load(s.graph, s.policy)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	s.project = project
	if s.policy.Errors() > 0 {
		return nil, domain.ErrBuildFailed
	}

	if err := binder.New(a.fs).Bind(ctx, s.graph); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *App) graphPath(root, override string) string {
	switch {
	case override == "":
		return domain.DefaultGraphPath(root)
	case filepath.IsAbs(override):
		return override
	default:
		return filepath.Join(root, override)
	}
}

// restore loads the persisted graph, falling back to a fresh one when it is
// missing or unreadable. Problems with the file are warnings, not build errors.
func (s *session) restore() {
	warnings := errpolicy.New(errpolicy.WithSink(errpolicy.SinkFunc(func(msg string) {
		s.app.events.Warning("", msg)
	})))

	g, err := s.app.store.Load(s.graphPath, warnings)
	switch {
	case err != nil:
		if warnings.Errors() == 0 {
			s.app.events.Warning("", fmt.Sprintf("The file '%s' could not be read, starting with an empty graph", s.graphPath))
		}
		g = domain.NewGraph(s.root)
	case g == nil:
		g = domain.NewGraph(s.root)
	default:
		g.SetRootDir(s.root)
	}
	s.graph = g
}

func (s *session) save() error {
	return s.app.store.Save(s.graphPath, s.graph)
}

func (s *session) scheduler() *scheduler.Scheduler {
	var opts []scheduler.Option
	if s.jobs > 0 {
		opts = append(opts, scheduler.WithJobs(s.jobs))
	}
	return scheduler.New(s.policy, opts...)
}

// goals returns the requested goals, or the defaults of the buildfile.
func (s *session) goals(requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}
	if len(s.project.Defaults) == 0 {
		return nil, domain.ErrNoGoals
	}
	out := make([]string, len(s.project.Defaults))
	for i, id := range s.project.Defaults {
		out[i] = "/" + id
	}
	return out, nil
}

// each runs one top-level command per goal and declines to issue the next
// command once an error has been reported.
func (s *session) each(goals []string, command func(t *domain.Target)) error {
	for _, goal := range goals {
		t, ok := s.graph.Find(goal)
		name := goal
		if ok {
			name = t.ID()
		}
		s.policy.SetSink(s.app.sink(name))
		if !ok {
			s.policy.Error(fmt.Sprintf("The target '%s' does not exist", goal))
			break
		}
		command(t)
		if s.policy.Errors() > 0 {
			break
		}
	}
	if s.policy.Errors() > 0 {
		return domain.ErrBuildFailed
	}
	return nil
}

// sink routes counted errors of a session to the event sink.
func (a *App) sink(session string) errpolicy.Sink {
	return errpolicy.SinkFunc(func(msg string) {
		a.events.Error(session, msg)
	})
}
