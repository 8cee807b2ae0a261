package scheduler

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// queue hands ready jobs to workers.
// The lock is held only to swap jobs in and out of the ready list, never
// while a visit runs.
type queue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	ready     []*Job
	remaining int
	workers   int
	propagate bool
}

func newQueue(jobs []*Job, workers int, propagate bool) *queue {
	q := &queue{
		remaining: len(jobs),
		workers:   max(workers, 1),
		propagate: propagate,
	}
	q.cond = sync.NewCond(&q.mu)
	for _, j := range jobs {
		if j.pending == 0 {
			q.ready = append(q.ready, j)
		}
	}
	q.sortLocked()
	return q
}

// sortLocked orders the ready list by rank, then by arena index.
func (q *queue) sortLocked() {
	slices.SortStableFunc(q.ready, func(a, b *Job) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		return cmp.Compare(a.target.Index(), b.target.Index())
	})
}

// run drains the queue with the calling goroutine plus workers-1 helpers.
func (q *queue) run(ctx context.Context, process func(context.Context, *Job) Outcome) error {
	if q.workers == 1 {
		return q.work(ctx, process)
	}

	var g errgroup.Group
	for range q.workers - 1 {
		g.Go(func() error {
			return q.work(ctx, process)
		})
	}
	err := q.work(ctx, process)
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

// work is the worker loop: wait for ready jobs, swap a batch out, run it
// unlocked, then complete it and wake everybody.
func (q *queue) work(ctx context.Context, process func(context.Context, *Job) Outcome) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		for len(q.ready) == 0 && q.remaining > 0 {
			q.cond.Wait()
		}
		if q.remaining == 0 {
			return nil
		}

		batch, err := q.takeLocked()
		if err != nil {
			q.abortLocked()
			return err
		}

		q.mu.Unlock()
		for _, j := range batch {
			if j.blocked {
				j.outcome = OutcomeSkipped
				continue
			}
			j.outcome = process(ctx, j)
		}
		q.mu.Lock()

		for _, j := range batch {
			if err := q.completeLocked(j); err != nil {
				q.abortLocked()
				return err
			}
		}
		q.cond.Broadcast()
	}
}

// takeLocked swaps the lowest-ranked share of the ready list into a private batch.
func (q *queue) takeLocked() ([]*Job, error) {
	n := (len(q.ready) + q.workers - 1) / q.workers
	batch := slices.Clone(q.ready[:n])
	q.ready = slices.Delete(q.ready, 0, n)

	for _, j := range batch {
		if err := j.transition(StateProcessing); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

func (q *queue) completeLocked(j *Job) error {
	if err := j.transition(StateComplete); err != nil {
		return err
	}
	q.remaining--

	failed := j.outcome == OutcomeFailed || j.outcome == OutcomeSkipped
	released := false
	for _, next := range j.release {
		if failed && q.propagate {
			next.blocked = true
		}
		next.pending--
		if next.pending == 0 {
			q.ready = append(q.ready, next)
			released = true
		}
	}
	if released {
		q.sortLocked()
	}
	return nil
}

// abortLocked stops every worker after an internal inconsistency.
func (q *queue) abortLocked() {
	q.remaining = 0
	q.ready = nil
	q.cond.Broadcast()
}
