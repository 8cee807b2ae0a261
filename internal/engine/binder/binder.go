// Package binder refreshes the timestamps of file targets from the file system.
package binder

import (
	"context"
	"runtime"
	"time"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Binder stats file targets and records their modification times.
type Binder struct {
	fs    ports.FileSystem
	limit int
}

// Option configures a Binder.
type Option func(*Binder)

// WithLimit bounds the number of concurrent stat calls.
func WithLimit(n int) Option {
	return func(b *Binder) {
		if n > 0 {
			b.limit = n
		}
	}
}

// New creates a Binder reading from fs.
func New(fs ports.FileSystem, opts ...Option) *Binder {
	b := &Binder{fs: fs, limit: runtime.NumCPU()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind sets the timestamp of every FlagBoundToFile target of g to the
// modification time of its file, or to the zero time when the file is absent.
// Nothing but timestamps changes.
func (b *Binder) Bind(ctx context.Context, g *domain.Graph) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.limit)

	for t := range g.Targets() {
		if !t.Has(domain.FlagBoundToFile) {
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := g.Path(t)
			mtime, exists, err := b.fs.Stat(path)
			if err != nil {
				return zerr.With(err, "target", t.ID())
			}
			if !exists {
				mtime = time.Time{}
			}
			t.SetTimestamp(mtime)
			return nil
		})
	}
	return eg.Wait()
}
