package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sweet/internal/adapters/config"
	"go.trai.ch/sweet/internal/adapters/graphfile"
	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports/mocks"
	"go.trai.ch/sweet/internal/engine/builder"
	"go.trai.ch/sweet/internal/engine/errpolicy"
	"go.uber.org/mock/gomock"
)

type recorder struct {
	messages []string
}

func (r *recorder) Error(message string) {
	r.messages = append(r.messages, message)
}

func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
}

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return config.NewLoader(mockLogger)
}

func load(t *testing.T, root string) (*domain.Graph, *domain.Project, *recorder, error) {
	t.Helper()
	rec := &recorder{}
	g := domain.NewGraph(root)
	project, err := newLoader(t).Load(g, errpolicy.New(errpolicy.WithSink(rec)))
	return g, project, rec, err
}

func ids(targets []*domain.Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.ID()
	}
	return out
}

func mustFind(t *testing.T, g *domain.Graph, id string) *domain.Target {
	t.Helper()
	target, ok := g.Find(id)
	require.True(t, ok, "target %q not found", id)
	return target
}

func TestLoader_YAML(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.YAMLBuildfileName, `
prototypes:
  cc:
    command: ["cc", "-c", "$in", "-o", "$out", "-MD", "-MF", "$out.d"]
    depfile: "$out.d"
    environment:
      CFLAGS: "-O2"
  link:
    command: ["cc", "$in", "-o", "$out"]
  all:
    phony: true
targets:
  app:
    prototype: link
    dependencies: [main.o]
  main.o:
    prototype: cc
    dependencies: [main.c]
  main.c:
    required: true
  world:
    prototype: all
    dependencies: [app]
default: [world]
`)

	g, project, rec, err := load(t, root)
	require.NoError(t, err)
	assert.Empty(t, rec.messages)

	assert.Equal(t, root, project.Root)
	assert.Equal(t, []string{filepath.Join(root, domain.YAMLBuildfileName)}, project.Files)
	assert.Equal(t, []string{"world"}, project.Defaults)

	app := mustFind(t, g, "app")
	require.NotNil(t, app.Prototype())
	assert.Equal(t, "link", app.Prototype().Name.String())
	assert.Equal(t, []string{"main.o"}, ids(app.Dependencies()))
	assert.True(t, app.Has(domain.FlagBoundToFile|domain.FlagCleanable))

	obj := mustFind(t, g, "main.o")
	assert.Equal(t, "$out.d", obj.Prototype().Depfile)
	assert.Equal(t, map[string]string{"CFLAGS": "-O2"}, obj.Prototype().Environment)

	src := mustFind(t, g, "main.c")
	assert.Nil(t, src.Prototype())
	assert.True(t, src.Has(domain.FlagBoundToFile|domain.FlagRequiredToExist))

	world := mustFind(t, g, "world")
	assert.True(t, world.Has(domain.FlagPhony))
	assert.False(t, world.Has(domain.FlagBoundToFile))
}

func TestLoader_HCL(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.HCLBuildfileName, `
default = ["app"]

prototype "cc" {
  command     = ["cc", "-c", "$in", "-o", "$out"]
  environment = { INCLUDE = "${root}/include" }
}

prototype "stamp" {
  command = ["date"]
  always  = true
}

target "app" {
  prototype    = "cc"
  dependencies = ["app.c", "version"]
}

target "version" {
  prototype = "stamp"
  cleanable = false
}
`)

	g, project, rec, err := load(t, root)
	require.NoError(t, err)
	assert.Empty(t, rec.messages)
	assert.Equal(t, []string{"app"}, project.Defaults)

	app := mustFind(t, g, "app")
	assert.Equal(t, []string{"app.c", "version"}, ids(app.Dependencies()))
	assert.Equal(t, root+"/include", app.Prototype().Environment["INCLUDE"])

	version := mustFind(t, g, "version")
	assert.True(t, version.Has(domain.FlagAlwaysBuild))
	assert.False(t, version.Has(domain.FlagCleanable))
}

func TestLoader_Include(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.YAMLBuildfileName, `
include: [lib]
prototypes:
  cc:
    command: ["cc", "-c", "$in", "-o", "$out"]
  ar:
    command: ["ar", "rcs", "$out", "$in"]
  link:
    command: ["cc", "$in", "-o", "$out"]
targets:
  app:
    prototype: link
    dependencies: [main.o, lib/libfoo.a]
  main.o:
    prototype: cc
    dependencies: [main.c]
`)
	createFile(t, filepath.Join(root, "lib"), domain.HCLBuildfileName, `
default = ["libfoo.a"]

target "libfoo.a" {
  prototype    = "ar"
  dependencies = ["foo.o"]
}

target "foo.o" {
  prototype    = "cc"
  dependencies = ["foo.c", "/include/config.h"]
}
`)

	g, project, rec, err := load(t, root)
	require.NoError(t, err)
	assert.Empty(t, rec.messages)
	assert.Len(t, project.Files, 2)
	assert.Equal(t, []string{"lib/libfoo.a"}, project.Defaults)

	lib := mustFind(t, g, "lib")
	assert.True(t, lib.Has(domain.FlagDirectory))

	archive := mustFind(t, g, "lib/libfoo.a")
	assert.Same(t, lib, archive.Parent())
	assert.Equal(t, "ar", archive.Prototype().Name.String())
	assert.Equal(t, []string{"lib/foo.o"}, ids(archive.Dependencies()))

	obj := mustFind(t, g, "lib/foo.o")
	assert.Equal(t, []string{"lib/foo.c", "include/config.h"}, ids(obj.Dependencies()))

	app := mustFind(t, g, "app")
	assert.Equal(t, []string{"main.o", "lib/libfoo.a"}, ids(app.Dependencies()))
	assert.Same(t, g.Root(), g.WorkingDirectory(), "working directory is restored")
}

func TestLoader_DeclarationErrorsAreReported(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.YAMLBuildfileName, `
include: [lib, missing]
prototypes:
  cc:
    command: ["cc"]
  link:
    command: ["ld"]
  broken: {}
targets:
  a:
    prototype: cc
    dependencies: [b]
  b:
    prototype: cc
    dependencies: [a]
  lib/x.o:
    prototype: cc
  y:
    prototype: nope
  z:
    dependencies: [../outside]
`)
	createFile(t, filepath.Join(root, "lib"), domain.YAMLBuildfileName, `
targets:
  x.o:
    prototype: link
`)

	g, _, rec, err := load(t, root)
	require.NoError(t, err, "declaration errors do not abort loading")

	require.Len(t, rec.messages, 6)
	assert.Contains(t, rec.messages, "The prototype 'broken' in 'sweet.yaml' has no command")
	assert.Contains(t, rec.messages, "The include 'missing' in 'sweet.yaml' matches no directory")
	assert.Contains(t, rec.messages, "The target 'lib/x.o' has been created with prototypes 'link' and 'cc'")
	assert.Contains(t, rec.messages, "The target 'y' uses undeclared prototype 'nope'")

	assert.Contains(t, rec.messages, "The dependency of 'b' on 'a' would create the cycle 'b' -> 'a' -> 'b'")
	assert.Contains(t, rec.messages, "The target '../outside' is outside the root directory")

	x := mustFind(t, g, "lib/x.o")
	assert.Equal(t, "link", x.Prototype().Name.String(), "the first binding wins")
	_, ok := g.Find("y")
	assert.False(t, ok)
	mustFind(t, g, "z")
	assert.Equal(t, []string{"b"}, ids(mustFind(t, g, "a").Dependencies()))
	assert.Empty(t, mustFind(t, g, "b").Dependencies())
}

func TestLoader_ReplacesRestoredDependencies(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.YAMLBuildfileName, `
prototypes:
  cc:
    command: [cc, $in, -o, $out]
targets:
  app:
    prototype: cc
    dependencies: [a.o, b.o]
  x:
    prototype: cc
    dependencies: [y]
`)
	g, _, rec, err := load(t, root)
	require.NoError(t, err)
	require.Empty(t, rec.messages)

	app := mustFind(t, g, "app")
	hdr, err := g.FindOrCreate("app.h", nil)
	require.NoError(t, err)
	require.NoError(t, g.AddImplicitDependency(app, hdr))
	app.SetTimestamp(time.Unix(100, 0))

	var buf bytes.Buffer
	require.NoError(t, graphfile.NewWriter().Write(&buf, g))
	restored, err := graphfile.NewReader(errpolicy.New(errpolicy.WithSink(rec))).Read(&buf, "graph")
	require.NoError(t, err)
	restored.SetRootDir(root)

	createFile(t, root, domain.YAMLBuildfileName, `
prototypes:
  cc:
    command: [cc, $in, -o, $out]
targets:
  app:
    prototype: cc
    dependencies: [a.o]
  y:
    prototype: cc
    dependencies: [x]
`)
	_, err = newLoader(t).Load(restored, errpolicy.New(errpolicy.WithSink(rec)))
	require.NoError(t, err)
	assert.Empty(t, rec.messages, "the reversed edge is not a cycle")

	app = mustFind(t, restored, "app")
	assert.Equal(t, []string{"a.o"}, ids(app.Dependencies()))
	assert.Equal(t, []string{"app.h"}, ids(app.ImplicitDependencies()), "discovered dependencies survive")
	assert.Equal(t, time.Unix(100, 0), app.Timestamp())
	assert.Equal(t, []string{"cc", "a.o", "-o", "app"}, builder.Expand(restored, app).Args)

	assert.Empty(t, mustFind(t, restored, "x").Dependencies())
	assert.Equal(t, []string{"x"}, ids(mustFind(t, restored, "y").Dependencies()))
}

func TestLoader_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "invalid yaml", file: domain.YAMLBuildfileName, content: "targets: [unclosed"},
		{name: "unknown yaml key", file: domain.YAMLBuildfileName, content: "tagrets: {}\n"},
		{name: "invalid hcl", file: domain.HCLBuildfileName, content: `target "a" {`},
		{name: "unknown hcl attribute", file: domain.HCLBuildfileName, content: `target "a" { colour = "red" }`},
		{name: "duplicate hcl target", file: domain.HCLBuildfileName, content: "target \"a\" {}\ntarget \"a\" {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			createFile(t, root, tt.file, tt.content)

			_, project, _, err := load(t, root)
			require.Error(t, err)
			assert.Nil(t, project)
			assert.Contains(t, err.Error(), domain.ErrConfigParseFailed.Error())
		})
	}
}

func TestLoader_EmptyBuildfile(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.YAMLBuildfileName, "")

	g, project, rec, err := load(t, root)
	require.NoError(t, err)
	assert.Empty(t, rec.messages)
	assert.Empty(t, project.Defaults)
	assert.Equal(t, 1, g.Len())
}

func TestLoader_PrefersYAML(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.YAMLBuildfileName, "targets:\n  from-yaml:\n")
	createFile(t, root, domain.HCLBuildfileName, `target "from-hcl" {}`)

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).Times(1)

	g := domain.NewGraph(root)
	_, err := config.NewLoader(mockLogger).Load(g, errpolicy.New(errpolicy.WithSink(&recorder{})))
	require.NoError(t, err)

	mustFind(t, g, "from-yaml")
	_, ok := g.Find("from-hcl")
	assert.False(t, ok)
}

func TestLoader_Discover(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.HCLBuildfileName, "")
	nested := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, domain.DirPerm))

	loader := newLoader(t)

	dir, err := loader.Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, root, dir)

	dir, err = loader.Discover(root)
	require.NoError(t, err)
	assert.Equal(t, root, dir)
}

func TestLoader_NotFound(t *testing.T) {
	root := t.TempDir()
	_, _, _, err := load(t, root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfigNotFound.Error())
}
