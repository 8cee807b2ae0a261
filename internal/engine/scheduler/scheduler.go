// Package scheduler visits the dependency graph in postorder or preorder on a pool of workers.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/sweet/internal/engine/errpolicy"
	"go.trai.ch/zerr"
)

type order int

const (
	postorder order = iota
	preorder
)

func (o order) String() string {
	if o == preorder {
		return "Preorder"
	}
	return "Postorder"
}

// Scheduler runs traversals over a graph.
// Only one traversal may be active per scheduler; starting another one from
// inside a visit is reported as an error and does nothing.
type Scheduler struct {
	policy *errpolicy.Policy
	jobs   int

	mu         sync.Mutex
	traversing bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithJobs sets the number of concurrent visits. Values below one mean one.
func WithJobs(n int) Option {
	return func(s *Scheduler) {
		s.jobs = max(n, 1)
	}
}

// New creates a scheduler reporting through policy.
func New(policy *errpolicy.Policy, opts ...Option) *Scheduler {
	s := &Scheduler{
		policy: policy,
		jobs:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Jobs returns the number of concurrent visits.
func (s *Scheduler) Jobs() int {
	return s.jobs
}

// Postorder visits every target reachable from roots after all of its
// dependencies. Dependents of a failed visit are not visited.
// It returns the number of errors reported during the traversal.
func (s *Scheduler) Postorder(ctx context.Context, v ports.Visitor, roots ...*domain.Target) int {
	return s.traverse(ctx, postorder, v, roots)
}

// Preorder visits every target reachable from roots before any of its
// dependencies. It returns the number of errors reported during the traversal.
func (s *Scheduler) Preorder(ctx context.Context, v ports.Visitor, roots ...*domain.Target) int {
	return s.traverse(ctx, preorder, v, roots)
}

func (s *Scheduler) traverse(ctx context.Context, o order, v ports.Visitor, roots []*domain.Target) int {
	s.mu.Lock()
	if s.traversing {
		s.mu.Unlock()
		s.policy.Errorf("%s called from within another traversal", o)
		return 1
	}
	s.traversing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.traversing = false
		s.mu.Unlock()
	}()

	s.policy.Push()
	if len(roots) == 0 {
		return s.policy.Pop()
	}
	roots[0].Graph().Invalidate()

	var jobs []*Job
	if o == preorder {
		jobs = planPreorder(roots)
	} else {
		jobs = planPostorder(roots)
	}

	q := newQueue(jobs, s.jobs, o == postorder)
	if err := q.run(ctx, func(ctx context.Context, j *Job) Outcome {
		return s.visit(ctx, o, v, j.target)
	}); err != nil {
		s.policy.Report(err)
	}
	return s.policy.Pop()
}

func (s *Scheduler) visit(ctx context.Context, o order, v ports.Visitor, t *domain.Target) Outcome {
	if err := safeVisit(ctx, v, t); err != nil {
		s.policy.ErrorPair(err.Error(), fmt.Sprintf("%s visit of '%s' failed", o, t.ID()))
		return OutcomeFailed
	}
	return OutcomeSucceeded
}

func safeVisit(ctx context.Context, v ports.Visitor, t *domain.Target) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = zerr.New(fmt.Sprintf("panic: %v", r))
		}
	}()
	return v.Visit(ctx, t)
}
