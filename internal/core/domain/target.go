package domain

import (
	"slices"
	"strings"
	"time"
)

// Flags is the persisted bit set describing how a target behaves.
type Flags uint32

const (
	// FlagBoundToFile marks a target that names a file or directory below the root.
	FlagBoundToFile Flags = 1 << iota
	// FlagRequiredToExist marks a source that must exist for a build to succeed.
	FlagRequiredToExist
	// FlagPhony marks a goal that is not a file.
	FlagPhony
	// FlagAlwaysBuild marks a target that is outdated on every run.
	FlagAlwaysBuild
	// FlagCleanable marks a generated file that clean removes.
	FlagCleanable
	// FlagDirectory marks a working-directory scope.
	FlagDirectory
	// FlagBuilt is set once the target's command has succeeded.
	FlagBuilt
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagBoundToFile, "file"},
	{FlagRequiredToExist, "required"},
	{FlagPhony, "phony"},
	{FlagAlwaysBuild, "always"},
	{FlagCleanable, "cleanable"},
	{FlagDirectory, "directory"},
	{FlagBuilt, "built"},
}

// Has reports whether every bit of o is set in f.
func (f Flags) Has(o Flags) bool {
	return f&o == o
}

func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

// verdict is a cached outdated result, valid only for the generation it was computed at.
type verdict struct {
	generation uint64
	outdated   bool
}

// Target is a node of the dependency graph.
// Every field is guarded by the owning graph's mutex.
type Target struct {
	graph *Graph
	index int
	id    InternedString

	parent       *Target
	children     []*Target
	dependencies []*Target
	implicit     []*Target
	prototype    *Prototype

	timestamp time.Time
	signature uint64
	flags     Flags

	verdict verdict
}

// ID returns the slash-separated path of the target relative to the root.
func (t *Target) ID() string {
	return t.id.String()
}

// Index returns the arena position of the target within its graph.
func (t *Target) Index() int {
	return t.index
}

// Graph returns the graph owning the target.
func (t *Target) Graph() *Graph {
	return t.graph
}

// Parent returns the working directory that was active when the target was created.
func (t *Target) Parent() *Target {
	return t.parent
}

// Children returns the targets created while t was the working directory.
func (t *Target) Children() []*Target {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	return slices.Clone(t.children)
}

// Dependencies returns the explicit dependencies in insertion order.
func (t *Target) Dependencies() []*Target {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	return slices.Clone(t.dependencies)
}

// ImplicitDependencies returns the dependencies discovered while building.
func (t *Target) ImplicitDependencies() []*Target {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	return slices.Clone(t.implicit)
}

// AllDependencies returns explicit followed by implicit dependencies.
func (t *Target) AllDependencies() []*Target {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	return t.allDependenciesLocked()
}

func (t *Target) allDependenciesLocked() []*Target {
	deps := make([]*Target, 0, len(t.dependencies)+len(t.implicit))
	deps = append(deps, t.dependencies...)
	return append(deps, t.implicit...)
}

// Prototype returns the bound prototype, or nil for plain files and scopes.
func (t *Target) Prototype() *Prototype {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	return t.prototype
}

// Timestamp returns the last known modification time. The zero time means absent.
func (t *Target) Timestamp() time.Time {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	return t.timestamp
}

// SetTimestamp records a new modification time and invalidates cached verdicts.
func (t *Target) SetTimestamp(ts time.Time) {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	if t.timestamp.Equal(ts) {
		return
	}
	t.timestamp = ts
	t.graph.generation++
}

// Signature returns the hash of the command last used to build the target.
func (t *Target) Signature() uint64 {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	return t.signature
}

// SetSignature records the hash of the command that built the target.
func (t *Target) SetSignature(sig uint64) {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	t.signature = sig
}

// Flags returns the target's flag set.
func (t *Target) Flags() Flags {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	return t.flags
}

// Has reports whether every bit of f is set on the target.
func (t *Target) Has(f Flags) bool {
	return t.Flags().Has(f)
}

// SetFlags sets the bits of f.
func (t *Target) SetFlags(f Flags) {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	if t.flags.Has(f) {
		return
	}
	t.flags |= f
	t.graph.generation++
}

// ClearFlags clears the bits of f.
func (t *Target) ClearFlags(f Flags) {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()
	if t.flags&f == 0 {
		return
	}
	t.flags &^= f
	t.graph.generation++
}

// Outdated reports whether the target has to be rebuilt.
func (t *Target) Outdated() bool {
	return t.graph.Outdated(t)
}

// Path returns the filesystem path of the target.
func (t *Target) Path() string {
	return t.graph.Path(t)
}

func (t *Target) String() string {
	return t.ID()
}
