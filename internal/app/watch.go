package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.trai.ch/sweet/internal/adapters/watcher"
	"go.trai.ch/sweet/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// Watch builds goals, then rebuilds them whenever files below the root
// change, until ctx is canceled. Failed rebuilds are logged and watching
// continues.
func (a *App) Watch(ctx context.Context, goals []string, opts BuildOptions) error {
	s, err := a.open(ctx, opts.SessionOptions)
	if err != nil {
		return err
	}
	if err := a.build(ctx, s, goals, opts); err != nil && !IsBuildFailure(err) {
		return err
	}

	w, err := a.watchers()
	if err != nil {
		return err
	}
	if err := w.Start(ctx, s.root); err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()
	a.logger.Info(fmt.Sprintf("Watching %s for changes", s.root))

	batches := make(chan []string, 1)
	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		select {
		case batches <- paths:
		case <-ctx.Done():
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for event := range w.Events() {
			if !watcher.Ignored(s.root, event.Path) {
				debouncer.Add(event.Path)
			}
		}
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case paths := <-batches:
				if !s.affected(paths) {
					continue
				}
				a.logger.Info(fmt.Sprintf("%d file(s) changed, rebuilding", len(paths)))
				if next := a.rebuild(gctx, goals, opts); next != nil {
					s = next
				}
			}
		}
	})
	return g.Wait()
}

// affected reports whether any path is something other than a generated
// file of the graph, so writes made by the build itself do not retrigger it.
func (s *session) affected(paths []string) bool {
	for _, p := range paths {
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return true
		}
		t, ok := s.graph.Find("/" + filepath.ToSlash(rel))
		if !ok || t.Prototype() == nil || t.Has(domain.FlagPhony) {
			return true
		}
	}
	return false
}

func (a *App) rebuild(ctx context.Context, goals []string, opts BuildOptions) *session {
	s, err := a.open(ctx, opts.SessionOptions)
	if err != nil {
		if !IsBuildFailure(err) {
			a.logger.Error(err)
		}
		return nil
	}
	if err := a.build(ctx, s, goals, opts); err != nil && !IsBuildFailure(err) {
		a.logger.Error(err)
	}
	return s
}
