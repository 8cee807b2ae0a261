// Package config declares targets from sweet.yaml and sweet.hcl buildfiles.
package config

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader for YAML and HCL buildfiles.
type Loader struct {
	Logger ports.Logger
	FS     FileSystem
}

// NewLoader creates a new Loader with the given logger reading from the local disk.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, FS: NewOSFS()}
}

// Discover returns the nearest directory at or above dir that holds a buildfile.
func (l *Loader) Discover(dir string) (string, error) {
	current := filepath.Clean(dir)
	for {
		for _, name := range domain.BuildfileNames() {
			if l.FS.Exists(filepath.Join(current, name)) {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", zerr.With(domain.ErrConfigNotFound, "cwd", dir)
		}
		current = parent
	}
}

// Load declares the buildfile in g's root directory, and every directory it
// includes, into g. Declaration problems are reported through r and loading
// carries on; only unreadable or unparsable files abort.
//
// Declared dependencies restored from an earlier run are dropped first, so
// the buildfile alone decides the explicit edges. Implicit dependencies and
// recorded state are kept.
func (l *Loader) Load(g *domain.Graph, r ports.ErrorReporter) (*domain.Project, error) {
	for t := range g.Targets() {
		g.ClearDependencies(t)
	}
	s := &session{
		loader:  l,
		graph:   g,
		report:  r,
		project: &domain.Project{Root: g.RootDir()},
		visited: make(map[string]bool),
	}
	if err := s.loadDir(s.project.Root, true); err != nil {
		return nil, err
	}
	return s.project, nil
}

// session holds the state of one Load call.
type session struct {
	loader  *Loader
	graph   *domain.Graph
	report  ports.ErrorReporter
	project *domain.Project
	visited map[string]bool
}

// buildfile picks the buildfile of dir. YAML wins when both exist.
func (s *session) buildfile(dir string) (string, bool) {
	var found []string
	for _, name := range domain.BuildfileNames() {
		if p := filepath.Join(dir, name); s.loader.FS.Exists(p) {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return "", false
	}
	for _, ignored := range found[1:] {
		s.loader.Logger.Warn(fmt.Sprintf("%s is ignored because %s exists", ignored, filepath.Base(found[0])))
	}
	return found[0], true
}

func (s *session) loadDir(dir string, top bool) error {
	path, ok := s.buildfile(dir)
	if !ok {
		if top {
			return zerr.With(domain.ErrConfigNotFound, "cwd", dir)
		}
		s.report.Error(fmt.Sprintf("The directory '%s' has no buildfile", s.rel(dir)))
		return nil
	}
	if s.visited[path] {
		s.report.Error(fmt.Sprintf("The buildfile '%s' is included more than once", s.rel(path)))
		return nil
	}
	s.visited[path] = true

	data, err := s.loader.FS.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "file", path)
	}

	var bf *Buildfile
	if filepath.Base(path) == domain.HCLBuildfileName {
		bf, err = decodeHCL(path, data, Variables{Root: s.project.Root, Dir: dir})
	} else {
		bf, err = decodeYAML(path, data)
	}
	if err != nil {
		return err
	}
	s.project.Files = append(s.project.Files, path)

	s.declarePrototypes(path, bf.Prototypes)
	if err := s.includeAll(dir, path, bf.Include); err != nil {
		return err
	}
	s.declareTargets(bf.Targets)
	s.declareDefaults(bf.Default)
	return nil
}

func (s *session) declarePrototypes(path string, dtos map[string]*PrototypeDTO) {
	for _, name := range slices.Sorted(maps.Keys(dtos)) {
		dto := dtos[name]
		if dto == nil {
			dto = &PrototypeDTO{}
		}
		proto := &domain.Prototype{
			Name:        domain.NewInternedString(name),
			Command:     dto.Command,
			Depfile:     dto.Depfile,
			Environment: dto.Environment,
		}
		if dto.Phony {
			proto.Flags |= domain.FlagPhony
		}
		if dto.Always {
			proto.Flags |= domain.FlagAlwaysBuild
		}
		if len(proto.Command) == 0 && !dto.Phony {
			s.report.Error(fmt.Sprintf("The prototype '%s' in '%s' has no command", name, s.rel(path)))
			continue
		}
		if err := s.graph.AddPrototype(proto); err != nil {
			s.report.Error(fmt.Sprintf("The prototype '%s' is declared more than once", name))
		}
	}
}

func (s *session) includeAll(dir, path string, patterns []string) error {
	for _, pattern := range patterns {
		matches, err := s.loader.FS.Glob(filepath.Join(dir, filepath.FromSlash(pattern)))
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "include", pattern)
		}
		matches = slices.DeleteFunc(matches, func(m string) bool { return !s.loader.FS.IsDir(m) })
		if len(matches) == 0 {
			s.report.Error(fmt.Sprintf("The include '%s' in '%s' matches no directory", pattern, s.rel(path)))
			continue
		}
		slices.Sort(matches)
		for _, m := range matches {
			if err := s.include(dir, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *session) include(dir, sub string) error {
	rel, err := filepath.Rel(dir, sub)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}
	if _, err := s.graph.PushWorkingDirectory(filepath.ToSlash(rel)); err != nil {
		s.report.Report(err)
		return nil
	}
	defer func() { _ = s.graph.PopWorkingDirectory() }()
	return s.loadDir(sub, false)
}

func (s *session) declareTargets(dtos map[string]*TargetDTO) {
	for _, id := range slices.Sorted(maps.Keys(dtos)) {
		dto := dtos[id]
		if dto == nil {
			dto = &TargetDTO{}
		}

		var proto *domain.Prototype
		if dto.Prototype != "" {
			p, ok := s.graph.Prototype(dto.Prototype)
			if !ok {
				s.report.Error(fmt.Sprintf("The target '%s' uses undeclared prototype '%s'", id, dto.Prototype))
				continue
			}
			proto = p
		}

		t, err := s.graph.FindOrCreate(id, proto)
		if err != nil {
			s.report.Report(err)
			var conflict *domain.PrototypeConflictError
			if !errors.As(err, &conflict) {
				continue
			}
		}

		if dto.Required {
			t.SetFlags(domain.FlagRequiredToExist)
		}
		if dto.Cleanable != nil {
			if *dto.Cleanable {
				t.SetFlags(domain.FlagCleanable)
			} else {
				t.ClearFlags(domain.FlagCleanable)
			}
		}

		for _, depID := range dto.Dependencies {
			dep, err := s.graph.FindOrCreate(depID, nil)
			if err != nil {
				s.report.Report(err)
				continue
			}
			if err := s.graph.AddDependency(t, dep); err != nil {
				s.report.Report(err)
			}
		}
	}
}

func (s *session) declareDefaults(goals []string) {
	for _, goal := range goals {
		id, err := s.graph.Resolve(goal)
		if err != nil {
			s.report.Report(err)
			continue
		}
		s.project.Defaults = append(s.project.Defaults, id)
	}
}

func (s *session) rel(path string) string {
	if rel, err := filepath.Rel(s.project.Root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
