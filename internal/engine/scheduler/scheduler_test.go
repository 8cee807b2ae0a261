package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/sweet/internal/engine/errpolicy"
	"go.trai.ch/sweet/internal/engine/scheduler"
)

type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

// visitLog records visits in the order they happen.
type visitLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *visitLog) add(t *domain.Target) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, t.ID())
}

func (l *visitLog) visitor(fail ...string) ports.Visitor {
	return ports.VisitorFunc(func(_ context.Context, t *domain.Target) error {
		l.add(t)
		if slices.Contains(fail, t.ID()) {
			return errors.New("boom in " + t.ID())
		}
		return nil
	})
}

func (l *visitLog) position(id string) int {
	return slices.Index(l.ids, id)
}

// buildGraph creates targets in the given order and wires "target" -> deps edges.
func buildGraph(t *testing.T, ids []string, deps map[string][]string) (*domain.Graph, map[string]*domain.Target) {
	t.Helper()
	g := domain.NewGraph("/src")
	targets := make(map[string]*domain.Target, len(ids))
	for _, id := range ids {
		target, err := g.FindOrCreate(id, nil)
		require.NoError(t, err)
		targets[id] = target
	}
	for _, id := range ids {
		for _, d := range deps[id] {
			require.NoError(t, g.AddDependency(targets[id], targets[d]))
		}
	}
	return g, targets
}

func newScheduler(jobs int) (*scheduler.Scheduler, *errpolicy.Policy, *recorder) {
	rec := &recorder{}
	policy := errpolicy.New(errpolicy.WithSink(rec))
	return scheduler.New(policy, scheduler.WithJobs(jobs)), policy, rec
}

var diamond = map[string][]string{
	"app":    {"left", "right"},
	"left":   {"shared"},
	"right":  {"shared"},
	"shared": nil,
}

func TestPostorder_Chain_SingleJob(t *testing.T) {
	_, targets := buildGraph(t, []string{"a", "b", "c"}, map[string][]string{
		"a": {"b"},
		"b": {"c"},
	})
	s, _, rec := newScheduler(1)

	log := &visitLog{}
	errs := s.Postorder(context.Background(), log.visitor(), targets["a"])

	assert.Equal(t, 0, errs)
	assert.Empty(t, rec.messages)
	assert.Equal(t, []string{"c", "b", "a"}, log.ids)
}

func TestPostorder_HeightOrder_SingleJob(t *testing.T) {
	// app (2) -> lib (1) -> util.c (0), app -> main.c (0).
	_, targets := buildGraph(t, []string{"app", "lib", "main.c", "util.c"}, map[string][]string{
		"app": {"lib", "main.c"},
		"lib": {"util.c"},
	})
	s, _, _ := newScheduler(1)

	log := &visitLog{}
	s.Postorder(context.Background(), log.visitor(), targets["app"])

	assert.Equal(t, []string{"main.c", "util.c", "lib", "app"}, log.ids)
}

func TestPostorder_DiamondVisitsSharedOnce(t *testing.T) {
	for _, jobs := range []int{1, 4} {
		_, targets := buildGraph(t, []string{"app", "left", "right", "shared"}, diamond)
		s, _, _ := newScheduler(jobs)

		log := &visitLog{}
		errs := s.Postorder(context.Background(), log.visitor(), targets["app"])

		require.Equal(t, 0, errs)
		assert.ElementsMatch(t, []string{"app", "left", "right", "shared"}, log.ids)
		assert.Less(t, log.position("shared"), log.position("left"))
		assert.Less(t, log.position("shared"), log.position("right"))
		assert.Less(t, log.position("left"), log.position("app"))
		assert.Less(t, log.position("right"), log.position("app"))
	}
}

func TestPostorder_MultipleRoots(t *testing.T) {
	_, targets := buildGraph(t, []string{"a", "b", "shared", "other"}, map[string][]string{
		"a": {"shared"},
		"b": {"shared"},
	})
	s, _, _ := newScheduler(2)

	log := &visitLog{}
	s.Postorder(context.Background(), log.visitor(), targets["a"], targets["b"], targets["a"])

	assert.ElementsMatch(t, []string{"a", "b", "shared"}, log.ids, "unreachable targets get no job")
}

func TestPostorder_NoRoots(t *testing.T) {
	s, policy, _ := newScheduler(2)
	log := &visitLog{}
	assert.Equal(t, 0, s.Postorder(context.Background(), log.visitor()))
	assert.Empty(t, log.ids)
	assert.Equal(t, 1, policy.Depth())
}

func TestPreorder_TargetsBeforeDependencies(t *testing.T) {
	for _, jobs := range []int{1, 3} {
		_, targets := buildGraph(t, []string{"app", "left", "right", "shared"}, diamond)
		s, _, _ := newScheduler(jobs)

		log := &visitLog{}
		errs := s.Preorder(context.Background(), log.visitor(), targets["app"])

		require.Equal(t, 0, errs)
		assert.ElementsMatch(t, []string{"app", "left", "right", "shared"}, log.ids)
		assert.Equal(t, "app", log.ids[0])
		assert.Equal(t, "shared", log.ids[3], "shared waits for both dependents")
	}
}

func TestPostorder_VisitErrorReportsTwice(t *testing.T) {
	_, targets := buildGraph(t, []string{"app", "left", "right", "shared"}, diamond)
	s, policy, rec := newScheduler(1)

	log := &visitLog{}
	errs := s.Postorder(context.Background(), log.visitor("left"), targets["app"])

	assert.Equal(t, 2, errs)
	assert.Equal(t, 2, policy.Errors())
	assert.Equal(t, []string{"boom in left", "Postorder visit of 'left' failed"}, rec.messages)
	assert.ElementsMatch(t, []string{"shared", "left", "right"}, log.ids, "app depends on a failure and is skipped")
}

func TestPostorder_FailureMessagesStayPaired(t *testing.T) {
	ids := []string{"all"}
	deps := map[string][]string{}
	for i := range 32 {
		id := fmt.Sprintf("leaf%02d", i)
		ids = append(ids, id)
		deps["all"] = append(deps["all"], id)
	}
	_, targets := buildGraph(t, ids, deps)
	s, _, rec := newScheduler(8)

	log := &visitLog{}
	errs := s.Postorder(context.Background(), log.visitor(ids[1:]...), targets["all"])

	assert.Equal(t, 64, errs)
	require.Len(t, rec.messages, 64)
	for i := 0; i < len(rec.messages); i += 2 {
		id, ok := strings.CutPrefix(rec.messages[i], "boom in ")
		require.True(t, ok, "message %d is a visitor error: %q", i, rec.messages[i])
		assert.Equal(t, "Postorder visit of '"+id+"' failed", rec.messages[i+1])
	}
}

func TestPreorder_VisitErrorContinues(t *testing.T) {
	_, targets := buildGraph(t, []string{"app", "left", "right", "shared"}, diamond)
	s, _, rec := newScheduler(1)

	log := &visitLog{}
	errs := s.Preorder(context.Background(), log.visitor("app"), targets["app"])

	assert.Equal(t, 2, errs)
	assert.Equal(t, []string{"boom in app", "Preorder visit of 'app' failed"}, rec.messages)
	assert.Len(t, log.ids, 4)
}

func TestPostorder_PanicIsReported(t *testing.T) {
	_, targets := buildGraph(t, []string{"a"}, nil)
	s, _, rec := newScheduler(1)

	errs := s.Postorder(context.Background(), ports.VisitorFunc(func(context.Context, *domain.Target) error {
		panic("kaboom")
	}), targets["a"])

	assert.Equal(t, 2, errs)
	require.Len(t, rec.messages, 2)
	assert.Contains(t, rec.messages[0], "kaboom")
	assert.Equal(t, "Postorder visit of 'a' failed", rec.messages[1])
}

func TestTraversal_RecursionGuard(t *testing.T) {
	tests := []struct {
		name    string
		jobs    int
		message string
		nested  func(s *scheduler.Scheduler, ctx context.Context, v ports.Visitor, root *domain.Target) int
	}{
		{
			name:    "postorder in postorder",
			jobs:    1,
			message: "Postorder called from within another traversal",
			nested: func(s *scheduler.Scheduler, ctx context.Context, v ports.Visitor, root *domain.Target) int {
				return s.Postorder(ctx, v, root)
			},
		},
		{
			name:    "preorder in postorder on a worker",
			jobs:    4,
			message: "Preorder called from within another traversal",
			nested: func(s *scheduler.Scheduler, ctx context.Context, v ports.Visitor, root *domain.Target) int {
				return s.Preorder(ctx, v, root)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, targets := buildGraph(t, []string{"outer", "leaf", "elsewhere"}, map[string][]string{
				"outer": {"leaf"},
			})
			s, policy, rec := newScheduler(tt.jobs)

			inner := &visitLog{}
			var nestedResult int
			errs := s.Postorder(context.Background(), ports.VisitorFunc(func(ctx context.Context, target *domain.Target) error {
				if target.ID() == "outer" {
					nestedResult = tt.nested(s, ctx, inner.visitor(), targets["elsewhere"])
				}
				return nil
			}), targets["outer"])

			assert.Equal(t, 1, nestedResult)
			assert.Equal(t, 1, errs)
			assert.Equal(t, 1, policy.Errors())
			assert.Equal(t, []string{tt.message}, rec.messages)
			assert.Empty(t, inner.ids, "nested traversal performs no visits")
		})
	}
}

func TestTraversal_GuardIsPerScheduler(t *testing.T) {
	_, targets := buildGraph(t, []string{"a", "b"}, nil)
	outer, _, outerRec := newScheduler(1)
	other, _, otherRec := newScheduler(1)

	inner := &visitLog{}
	outer.Postorder(context.Background(), ports.VisitorFunc(func(ctx context.Context, _ *domain.Target) error {
		assert.Equal(t, 0, other.Postorder(ctx, inner.visitor(), targets["b"]))
		return nil
	}), targets["a"])

	assert.Equal(t, []string{"b"}, inner.ids)
	assert.Empty(t, outerRec.messages)
	assert.Empty(t, otherRec.messages)

	// The guard is released once the traversal returns.
	again := &visitLog{}
	assert.Equal(t, 0, outer.Postorder(context.Background(), again.visitor(), targets["b"]))
	assert.Equal(t, []string{"b"}, again.ids)
}

func TestPostorder_ConcurrentMatchesSequential(t *testing.T) {
	ids := []string{"app", "a.o", "b.o", "c.o", "a.c", "b.c", "c.c", "common.h", "tool"}
	deps := map[string][]string{
		"app":  {"a.o", "b.o", "c.o", "tool"},
		"a.o":  {"a.c", "common.h"},
		"b.o":  {"b.c", "common.h"},
		"c.o":  {"c.c", "common.h"},
		"tool": {"common.h"},
	}
	stamps := map[string]int64{"a.c": 5, "b.c": 1, "c.c": 1, "common.h": 1, "a.o": 2, "b.o": 2, "c.o": 2, "tool": 3}

	run := func(jobs int) (map[string]bool, []string) {
		_, targets := buildGraph(t, ids, deps)
		for id, sec := range stamps {
			targets[id].SetTimestamp(time.Unix(sec, 0))
		}
		s, _, rec := newScheduler(jobs)

		var mu sync.Mutex
		verdicts := make(map[string]bool)
		s.Postorder(context.Background(), ports.VisitorFunc(func(_ context.Context, target *domain.Target) error {
			mu.Lock()
			defer mu.Unlock()
			verdicts[target.ID()] = target.Outdated()
			if target.ID() == "tool" {
				return errors.New("tool failed")
			}
			return nil
		}), targets["app"])
		return verdicts, rec.messages
	}

	seqVerdicts, seqMessages := run(1)
	for _, jobs := range []int{2, 8} {
		verdicts, messages := run(jobs)
		assert.Equal(t, seqVerdicts, verdicts)
		assert.Equal(t, seqMessages, messages)
	}
	assert.True(t, seqVerdicts["a.o"])
	assert.False(t, seqVerdicts["b.o"])
	assert.NotContains(t, seqVerdicts, "app")
}

func TestPostorder_RunsIndependentVisitsInParallel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		_, targets := buildGraph(t, []string{"all", "a", "b", "c", "d"}, map[string][]string{
			"all": {"a", "b", "c", "d"},
		})
		s, _, _ := newScheduler(4)

		var active, peak atomic.Int32
		start := time.Now()
		s.Postorder(context.Background(), ports.VisitorFunc(func(_ context.Context, target *domain.Target) error {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			if target.ID() != "all" {
				time.Sleep(time.Second)
			}
			return nil
		}), targets["all"])

		assert.Equal(t, time.Second, time.Since(start))
		assert.Equal(t, int32(4), peak.Load())
	})
}

func TestPostorder_BoundsConcurrency(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ids := []string{"all", "a", "b", "c", "d", "e", "f"}
		_, targets := buildGraph(t, ids, map[string][]string{
			"all": ids[1:],
		})
		s, _, _ := newScheduler(2)

		var active, peak atomic.Int32
		start := time.Now()
		s.Postorder(context.Background(), ports.VisitorFunc(func(context.Context, *domain.Target) error {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Second)
			return nil
		}), targets["all"])

		assert.LessOrEqual(t, peak.Load(), int32(2))
		assert.Equal(t, 4*time.Second, time.Since(start), "six leaves on two workers, then the root")
	})
}

func TestReachable(t *testing.T) {
	_, targets := buildGraph(t, []string{"app", "left", "right", "shared", "other"}, diamond)
	got := scheduler.Reachable(targets["app"])

	ids := make([]string, len(got))
	for i, target := range got {
		ids[i] = target.ID()
	}
	assert.Equal(t, []string{"shared", "left", "right", "app"}, ids)
}
