// Package builder implements the visitors a traversal runs on each target:
// building outdated targets, cleaning generated files and listing what is
// outdated.
package builder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/zerr"
)

// Builder runs the rules of a graph through an Executor.
type Builder struct {
	graph    *domain.Graph
	executor ports.Executor
	fs       ports.FileSystem
	scanner  ports.DependencyScanner
	tracer   ports.Tracer
	events   ports.EventSink
	session  string
	dryRun   bool
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithDryRun makes Build and Clean print what they would do without doing it.
func WithDryRun(dryRun bool) Option {
	return func(b *Builder) { b.dryRun = dryRun }
}

// WithSession sets the session id attached to reported messages.
func WithSession(session string) Option {
	return func(b *Builder) { b.session = session }
}

// WithClock replaces time.Now for phony timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a Builder for g.
func New(
	g *domain.Graph,
	executor ports.Executor,
	fs ports.FileSystem,
	scanner ports.DependencyScanner,
	tracer ports.Tracer,
	events ports.EventSink,
	opts ...Option,
) *Builder {
	b := &Builder{
		graph:    g,
		executor: executor,
		fs:       fs,
		scanner:  scanner,
		tracer:   tracer,
		events:   events,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the visitor that brings a target up to date. It is meant
// for postorder traversals, so every dependency is visited first.
func (b *Builder) Build() ports.Visitor {
	return ports.VisitorFunc(b.build)
}

func (b *Builder) build(ctx context.Context, t *domain.Target) error {
	proto := t.Prototype()
	if proto == nil {
		return b.checkSource(t)
	}

	cmd := Expand(b.graph, t)
	depfile := Depfile(t)
	sig := Signature(cmd, depfile)
	if !b.graph.Outdated(t) && t.Signature() == sig && t.Has(domain.FlagBuilt) {
		return nil
	}

	if len(cmd.Args) == 0 {
		if !b.dryRun {
			b.finish(t, sig)
		}
		return nil
	}

	if b.dryRun {
		b.events.Output(b.session, cmd.String())
		return nil
	}

	if err := b.run(ctx, t, cmd); err != nil {
		t.ClearFlags(domain.FlagBuilt)
		return err
	}

	var errs error
	if depfile != "" {
		errs = b.readDepfile(t, depfile)
	}
	b.finish(t, sig)
	return errs
}

// checkSource fails a required source that is not on disk.
func (b *Builder) checkSource(t *domain.Target) error {
	if t.Has(domain.FlagBoundToFile|domain.FlagRequiredToExist) && t.Timestamp().IsZero() {
		return &domain.SourceMissingError{Path: b.graph.Path(t)}
	}
	return nil
}

func (b *Builder) run(ctx context.Context, t *domain.Target, cmd domain.Command) error {
	line := cmd.String()
	ctx, span := b.tracer.Start(ctx, t.ID(), ports.WithCommand(line))
	defer span.End()

	_, _ = fmt.Fprintf(span, "$ %s\n", line)
	if err := b.executor.Execute(ctx, cmd, span, span); err != nil {
		span.RecordError(err)
		return zerr.With(err, "target", t.ID())
	}
	return nil
}

// finish records the state of a target whose command succeeded.
func (b *Builder) finish(t *domain.Target, sig uint64) {
	t.SetSignature(sig)
	t.SetFlags(domain.FlagBuilt)

	if !t.Has(domain.FlagBoundToFile) {
		ts := b.graph.NewestDependency(t)
		if ts.IsZero() {
			ts = b.now()
		}
		t.SetTimestamp(ts)
		return
	}

	p := b.graph.Path(t)
	mtime, exists, err := b.fs.Stat(p)
	switch {
	case err != nil:
		b.events.Warning(b.session, fmt.Sprintf("Unable to stat '%s': %v", p, err))
	case !exists:
		b.events.Warning(b.session, fmt.Sprintf("The command for '%s' did not create '%s'", t.ID(), p))
	}
	t.SetTimestamp(mtime)
}

// readDepfile replaces the implicit dependencies of t with the depfile's
// prerequisites that lie below the root.
func (b *Builder) readDepfile(t *domain.Target, depfile string) error {
	root := b.graph.RootDir()
	paths, err := b.scanner.Scan(filepath.Join(root, depfile))
	if err != nil {
		return zerr.With(err, "target", t.ID())
	}

	b.graph.ClearImplicitDependencies(t)
	var errs error
	for _, p := range paths {
		id, ok := rootRelative(root, p)
		if !ok {
			continue
		}
		dep, err := b.graph.FindOrCreate("/"+id, nil)
		if err != nil && dep == nil {
			errs = errors.Join(errs, err)
			continue
		}
		if dep == t {
			continue
		}
		if err := b.graph.AddImplicitDependency(t, dep); err != nil {
			errs = errors.Join(errs, zerr.With(err, "target", t.ID()))
			continue
		}
		if dep.Timestamp().IsZero() && dep.Has(domain.FlagBoundToFile) {
			if mtime, exists, err := b.fs.Stat(b.graph.Path(dep)); err == nil && exists {
				dep.SetTimestamp(mtime)
			}
		}
	}
	return errs
}

// rootRelative turns a depfile path into a slash-separated id below root.
// Relative paths are taken relative to root, where commands run.
func rootRelative(root, p string) (string, bool) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// Clean returns the visitor that removes generated files. It is meant for
// preorder traversals so dependents are removed before their inputs.
func (b *Builder) Clean() ports.Visitor {
	return ports.VisitorFunc(b.clean)
}

func (b *Builder) clean(_ context.Context, t *domain.Target) error {
	if !t.Has(domain.FlagCleanable|domain.FlagBoundToFile) || t.Prototype() == nil {
		return nil
	}

	p := b.graph.Path(t)
	if b.dryRun {
		b.events.Output(b.session, "rm "+p)
		return nil
	}

	existed := !t.Timestamp().IsZero()
	if err := b.fs.Remove(p); err != nil {
		return zerr.With(err, "target", t.ID())
	}
	t.SetTimestamp(time.Time{})
	t.SetSignature(0)
	t.ClearFlags(domain.FlagBuilt)
	if existed {
		b.events.Output(b.session, "Removed "+t.ID())
	}
	return nil
}

// Collector gathers the ids of outdated targets in visit order.
type Collector struct {
	mu  sync.Mutex
	ids []string
}

// Outdated returns a visitor appending every outdated target to c.
func (c *Collector) Outdated() ports.Visitor {
	return ports.VisitorFunc(func(_ context.Context, t *domain.Target) error {
		if t.Has(domain.FlagDirectory) || !t.Outdated() {
			return nil
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		c.ids = append(c.ids, t.ID())
		return nil
	})
}

// IDs returns the collected target ids.
func (c *Collector) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}
