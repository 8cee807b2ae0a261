package domain

import "time"

// Outdated reports whether t has to be rebuilt.
//
// A target is outdated when it always builds, when any dependency is
// outdated, when a dependency is newer than it, or when it has never been
// recorded and is expected to exist (a file, or a target with a rule).
// Scope directories are never outdated. Verdicts are cached until the next
// mutation of the graph.
func (g *Graph) Outdated(t *Target) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outdatedLocked(t)
}

func (g *Graph) outdatedLocked(t *Target) bool {
	if t.verdict.generation == g.generation {
		return t.verdict.outdated
	}
	outdated := g.computeOutdatedLocked(t)
	t.verdict = verdict{generation: g.generation, outdated: outdated}
	return outdated
}

func (g *Graph) computeOutdatedLocked(t *Target) bool {
	if t.flags.Has(FlagDirectory) && t.prototype == nil {
		return false
	}
	if t.flags.Has(FlagAlwaysBuild) {
		return true
	}

	var newest time.Time
	stale := false
	for _, dep := range t.allDependenciesLocked() {
		if g.outdatedLocked(dep) {
			stale = true
		}
		if dep.timestamp.After(newest) {
			newest = dep.timestamp
		}
	}
	if stale {
		return true
	}

	if t.timestamp.IsZero() {
		return t.flags.Has(FlagBoundToFile) || t.prototype != nil
	}
	return newest.After(t.timestamp)
}

// NewestDependency returns the latest timestamp among t's dependencies.
func (g *Graph) NewestDependency(t *Target) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	var newest time.Time
	for _, dep := range t.allDependenciesLocked() {
		if dep.timestamp.After(newest) {
			newest = dep.timestamp
		}
	}
	return newest
}
