package scheduler

import (
	"go.trai.ch/sweet/internal/core/domain"
)

// Reachable returns roots and their transitive dependencies, each once,
// with every target listed after all of its dependencies.
func Reachable(roots ...*domain.Target) []*domain.Target {
	order, _ := walk(roots)
	return order
}

// walk collects the reachable set in dependency-first order together with a
// snapshot of each target's edges.
func walk(roots []*domain.Target) ([]*domain.Target, map[*domain.Target][]*domain.Target) {
	var order []*domain.Target
	edges := make(map[*domain.Target][]*domain.Target)

	var visit func(t *domain.Target)
	visit = func(t *domain.Target) {
		if _, seen := edges[t]; seen {
			return
		}
		deps := t.AllDependencies()
		edges[t] = deps
		for _, d := range deps {
			visit(d)
		}
		order = append(order, t)
	}
	for _, r := range roots {
		visit(r)
	}
	return order, edges
}

// planPostorder builds jobs where every job waits on its dependencies.
// The rank is the height: 0 for leaves, otherwise one more than the highest dependency.
func planPostorder(roots []*domain.Target) []*Job {
	order, edges := walk(roots)
	jobs := make(map[*domain.Target]*Job, len(order))
	out := make([]*Job, 0, len(order))

	for _, t := range order {
		j := &Job{target: t}
		for _, d := range edges[t] {
			dj := jobs[d]
			j.rank = max(j.rank, dj.rank+1)
			j.pending++
			dj.release = append(dj.release, j)
		}
		jobs[t] = j
		out = append(out, j)
	}
	return out
}

// planPreorder builds jobs where every job waits on the dependents that
// reached it. The rank is the depth: 0 for roots nobody depends on, otherwise
// one more than the deepest dependent.
func planPreorder(roots []*domain.Target) []*Job {
	order, edges := walk(roots)
	jobs := make(map[*domain.Target]*Job, len(order))
	out := make([]*Job, len(order))

	for i, t := range order {
		j := &Job{target: t}
		jobs[t] = j
		out[i] = j
	}
	for i := len(order) - 1; i >= 0; i-- {
		j := jobs[order[i]]
		for _, d := range edges[order[i]] {
			dj := jobs[d]
			dj.rank = max(dj.rank, j.rank+1)
			dj.pending++
			j.release = append(j.release, dj)
		}
	}
	return out
}
