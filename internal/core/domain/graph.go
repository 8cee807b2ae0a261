// Package domain contains the core domain models of the build dependency graph.
package domain

import (
	"iter"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/zerr"
)

// Graph exclusively owns every target of a build.
// A single mutex guards the arena, the index and all target state, so visit
// callbacks running on different workers may read and mutate targets freely.
type Graph struct {
	mu         sync.Mutex
	root       string
	targets    []*Target
	index      map[InternedString]*Target
	wd         []*Target
	prototypes map[InternedString]*Prototype
	generation uint64
}

// NewGraph creates a graph rooted at the given directory.
// The root target has the empty id and is the initial working directory.
func NewGraph(root string) *Graph {
	g := &Graph{
		root:       root,
		index:      make(map[InternedString]*Target),
		prototypes: make(map[InternedString]*Prototype),
		generation: 1,
	}
	r := g.newTargetLocked("", nil)
	r.flags = FlagDirectory
	g.wd = []*Target{r}
	return g
}

// Root returns the root directory target.
func (g *Graph) Root() *Target {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.targets[0]
}

// RootDir returns the filesystem directory the graph is rooted at.
func (g *Graph) RootDir() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.root
}

// SetRootDir changes the filesystem directory the graph is rooted at.
func (g *Graph) SetRootDir(dir string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.root = dir
}

// Len returns the number of targets, the root included.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.targets)
}

// Targets yields every target in creation order.
func (g *Graph) Targets() iter.Seq[*Target] {
	g.mu.Lock()
	snapshot := slices.Clone(g.targets)
	g.mu.Unlock()

	return func(yield func(*Target) bool) {
		for _, t := range snapshot {
			if !yield(t) {
				return
			}
		}
	}
}

// Path returns the filesystem path of t.
func (g *Graph) Path(t *Target) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return filepath.Join(g.root, filepath.FromSlash(t.id.String()))
}

// Resolve turns id into a root-relative target id.
// A leading slash anchors id at the root, anything else is relative to the
// current working directory.
func (g *Graph) Resolve(id string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolveLocked(id)
}

func (g *Graph) resolveLocked(id string) (string, error) {
	var p string
	if rest, ok := strings.CutPrefix(id, "/"); ok {
		p = path.Clean(rest)
	} else {
		p = path.Join(g.wd[len(g.wd)-1].id.String(), id)
	}
	if p == "." {
		p = ""
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", &OutsideRootError{ID: id}
	}
	return p, nil
}

// Find looks up a target by id relative to the current working directory.
func (g *Graph) Find(id string) (*Target, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.resolveLocked(id)
	if err != nil {
		return nil, false
	}
	t, ok := g.index[NewInternedString(p)]
	return t, ok
}

// FindOrCreate returns the target for id, creating it under the current
// working directory if it does not exist yet.
//
// A target without a prototype is bound to proto. If the target is already
// bound to a different prototype the existing target is returned together
// with a *PrototypeConflictError; callers report it and carry on.
func (g *Graph) FindOrCreate(id string, proto *Prototype) (*Target, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.resolveLocked(id)
	if err != nil {
		return nil, err
	}

	if t, ok := g.index[NewInternedString(p)]; ok {
		switch {
		case proto == nil || t.prototype == proto:
		case t.prototype == nil:
			g.bindLocked(t, proto)
		case t.prototype.Name != proto.Name:
			return t, &PrototypeConflictError{
				ID:       p,
				Existing: t.prototype.Name.String(),
				Proposed: proto.Name.String(),
			}
		}
		return t, nil
	}

	t := g.newTargetLocked(p, g.wd[len(g.wd)-1])
	if proto != nil {
		g.bindLocked(t, proto)
	} else {
		t.flags = FlagBoundToFile
	}
	return t, nil
}

func (g *Graph) bindLocked(t *Target, proto *Prototype) {
	t.prototype = proto
	t.flags = t.flags&(FlagBuilt|FlagDirectory) | proto.Flags
	if !t.flags.Has(FlagPhony) {
		t.flags |= FlagBoundToFile | FlagCleanable
	} else {
		t.flags &^= FlagBoundToFile
	}
	g.generation++
}

func (g *Graph) newTargetLocked(id string, parent *Target) *Target {
	t := &Target{
		graph:  g,
		index:  len(g.targets),
		id:     NewInternedString(id),
		parent: parent,
	}
	g.targets = append(g.targets, t)
	g.index[t.id] = t
	if parent != nil {
		parent.children = append(parent.children, t)
	}
	return t
}

// Restore recreates a persisted target as an owned child of parent.
// A nil parent restores the state of the root target itself.
func (g *Graph) Restore(parent *Target, id string, ts time.Time, sig uint64, flags Flags) (*Target, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if parent == nil {
		r := g.targets[0]
		if id != "" {
			return nil, zerr.With(ErrInvalidGraphFile, "root", id)
		}
		r.timestamp, r.signature, r.flags = ts, sig, flags|FlagDirectory
		g.generation++
		return r, nil
	}
	if parent.graph != g {
		return nil, zerr.With(ErrForeignTarget, "target", id)
	}

	key := NewInternedString(id)
	if _, exists := g.index[key]; exists {
		return nil, zerr.With(ErrTargetAlreadyExists, "target", id)
	}
	t := g.newTargetLocked(id, parent)
	t.timestamp, t.signature, t.flags = ts, sig, flags
	g.generation++
	return t, nil
}

// PushWorkingDirectory makes the directory target for id the scope for
// relative creation until the matching PopWorkingDirectory.
func (g *Graph) PushWorkingDirectory(id string) (*Target, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.resolveLocked(id)
	if err != nil {
		return nil, err
	}
	t, ok := g.index[NewInternedString(p)]
	if !ok {
		t = g.newTargetLocked(p, g.wd[len(g.wd)-1])
	}
	t.flags |= FlagDirectory
	g.wd = append(g.wd, t)
	return t, nil
}

// PopWorkingDirectory restores the previous working directory.
func (g *Graph) PopWorkingDirectory() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.wd) == 1 {
		return ErrWorkingDirectoryUnderflow
	}
	g.wd = g.wd[:len(g.wd)-1]
	return nil
}

// WorkingDirectory returns the current working directory target.
func (g *Graph) WorkingDirectory() *Target {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wd[len(g.wd)-1]
}

// AddPrototype registers a prototype by name.
func (g *Graph) AddPrototype(p *Prototype) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.prototypes[p.Name]; exists {
		return zerr.With(ErrPrototypeAlreadyExists, "prototype", p.Name.String())
	}
	g.prototypes[p.Name] = p
	return nil
}

// Prototype looks up a registered prototype.
func (g *Graph) Prototype(name string) (*Prototype, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.prototypes[NewInternedString(name)]
	return p, ok
}

// AddDependency makes t depend on dep. Existing edges are left alone.
func (g *Graph) AddDependency(t, dep *Target) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addEdgeLocked(t, dep, &t.dependencies)
}

// AddImplicitDependency records a dependency discovered while building t.
func (g *Graph) AddImplicitDependency(t, dep *Target) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addEdgeLocked(t, dep, &t.implicit)
}

// ClearDependencies drops every declared dependency of t. Implicit
// dependencies are kept.
func (g *Graph) ClearDependencies(t *Target) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(t.dependencies) == 0 {
		return
	}
	t.dependencies = nil
	g.generation++
}

// ClearImplicitDependencies drops every discovered dependency of t, so a
// fresh depfile can replace them.
func (g *Graph) ClearImplicitDependencies(t *Target) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(t.implicit) == 0 {
		return
	}
	t.implicit = nil
	g.generation++
}

func (g *Graph) addEdgeLocked(t, dep *Target, edges *[]*Target) error {
	if t.graph != g || dep.graph != g {
		return zerr.With(ErrForeignTarget, "target", t.id.String())
	}
	if slices.Contains(t.dependencies, dep) || slices.Contains(t.implicit, dep) {
		return nil
	}
	if p := g.pathLocked(dep, t); p != nil {
		return buildCycleError(append([]*Target{t}, p...))
	}
	*edges = append(*edges, dep)
	g.generation++
	return nil
}

// pathLocked returns a dependency path from -> ... -> to, or nil if to is unreachable.
func (g *Graph) pathLocked(from, to *Target) []*Target {
	visited := make(map[*Target]bool)
	var walk func(n *Target) []*Target
	walk = func(n *Target) []*Target {
		if n == to {
			return []*Target{n}
		}
		if visited[n] {
			return nil
		}
		visited[n] = true
		for _, d := range n.allDependenciesLocked() {
			if p := walk(d); p != nil {
				return append([]*Target{n}, p...)
			}
		}
		return nil
	}
	return walk(from)
}

func buildCycleError(cycle []*Target) error {
	path := make([]string, len(cycle))
	for i, t := range cycle {
		path[i] = t.id.String()
	}
	return &CycleError{Path: path}
}

// Invalidate discards every cached outdated verdict.
func (g *Graph) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generation++
}
