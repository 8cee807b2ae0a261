package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sweet/internal/core/domain"
)

func at(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func TestOutdated_MissingFileIsOutdated(t *testing.T) {
	g := domain.NewGraph("/src")
	cc := domain.NewPrototype("cc", "cc")

	source, err := g.FindOrCreate("missing.c", nil)
	require.NoError(t, err)
	assert.True(t, source.Outdated(), "nonexistent file")

	generated, err := g.FindOrCreate("missing.o", cc)
	require.NoError(t, err)
	assert.True(t, generated.Outdated(), "never built")
}

func TestOutdated_Timestamps(t *testing.T) {
	g := domain.NewGraph("/src")
	cc := domain.NewPrototype("cc", "cc")

	cpp, _ := g.FindOrCreate("foo.cpp", nil)
	obj, _ := g.FindOrCreate("foo.obj", cc)
	require.NoError(t, g.AddDependency(obj, cpp))

	cpp.SetTimestamp(at(2))
	obj.SetTimestamp(at(1))
	assert.True(t, obj.Outdated(), "dependency newer than target")
	assert.False(t, cpp.Outdated())

	obj.SetTimestamp(at(2))
	assert.False(t, obj.Outdated(), "equal timestamps are up to date")

	obj.SetTimestamp(at(3))
	assert.False(t, obj.Outdated())

	cpp.SetTimestamp(at(4))
	assert.True(t, obj.Outdated(), "touching the dependency invalidates the cached verdict")
}

func TestOutdated_Transitive(t *testing.T) {
	g := domain.NewGraph("/src")
	cc := domain.NewPrototype("cc", "cc")

	src, _ := g.FindOrCreate("a.c", nil)
	obj, _ := g.FindOrCreate("a.o", cc)
	bin, _ := g.FindOrCreate("app", cc)
	require.NoError(t, g.AddDependency(obj, src))
	require.NoError(t, g.AddDependency(bin, obj))

	src.SetTimestamp(at(5))
	obj.SetTimestamp(at(4))
	bin.SetTimestamp(at(10))

	assert.True(t, obj.Outdated())
	assert.True(t, bin.Outdated(), "staleness propagates through the chain")

	obj.SetTimestamp(at(6))
	assert.False(t, bin.Outdated())
}

func TestOutdated_NewEdgeInvalidates(t *testing.T) {
	g := domain.NewGraph("/src")
	cc := domain.NewPrototype("cc", "cc")

	obj, _ := g.FindOrCreate("a.o", cc)
	hdr, _ := g.FindOrCreate("a.h", nil)
	obj.SetTimestamp(at(1))
	hdr.SetTimestamp(at(2))
	assert.False(t, obj.Outdated())

	require.NoError(t, g.AddImplicitDependency(obj, hdr))
	assert.True(t, obj.Outdated())
}

func TestOutdated_Flags(t *testing.T) {
	t.Run("always build", func(t *testing.T) {
		g := domain.NewGraph("/src")
		stamp := domain.NewPrototype("stamp", "date")
		stamp.Flags = domain.FlagAlwaysBuild
		target, _ := g.FindOrCreate("stamp", stamp)
		target.SetTimestamp(at(100))
		assert.True(t, target.Outdated())
	})

	t.Run("phony follows dependencies", func(t *testing.T) {
		g := domain.NewGraph("/src")
		all := domain.NewPrototype("all")
		all.Flags = domain.FlagPhony
		goal, _ := g.FindOrCreate("all", all)
		app, _ := g.FindOrCreate("app", nil)
		require.NoError(t, g.AddDependency(goal, app))

		app.SetTimestamp(at(3))
		assert.True(t, goal.Outdated(), "never built")

		goal.SetTimestamp(at(3))
		assert.False(t, goal.Outdated())

		app.SetTimestamp(at(4))
		assert.True(t, goal.Outdated())
	})

	t.Run("directories are never outdated", func(t *testing.T) {
		g := domain.NewGraph("/src")
		dir, err := g.PushWorkingDirectory("lib")
		require.NoError(t, err)
		assert.False(t, dir.Outdated())
		assert.False(t, g.Root().Outdated())
	})

	t.Run("flag changes invalidate", func(t *testing.T) {
		g := domain.NewGraph("/src")
		target, _ := g.FindOrCreate("x", domain.NewPrototype("gen", "gen"))
		target.SetTimestamp(at(1))
		assert.False(t, target.Outdated())
		target.SetFlags(domain.FlagAlwaysBuild)
		assert.True(t, target.Outdated())
		target.ClearFlags(domain.FlagAlwaysBuild)
		assert.False(t, target.Outdated())
	})
}

func TestGraph_NewestDependency(t *testing.T) {
	g := domain.NewGraph("/src")
	top, _ := g.FindOrCreate("top", nil)
	a, _ := g.FindOrCreate("a", nil)
	b, _ := g.FindOrCreate("b", nil)
	require.NoError(t, g.AddDependency(top, a))
	require.NoError(t, g.AddImplicitDependency(top, b))
	a.SetTimestamp(at(5))
	b.SetTimestamp(at(9))

	assert.True(t, g.NewestDependency(top).Equal(at(9)))
	assert.True(t, g.NewestDependency(a).IsZero())
}
