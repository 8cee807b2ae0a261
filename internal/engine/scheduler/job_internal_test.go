package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sweet/internal/core/domain"
)

func TestJob_Transitions(t *testing.T) {
	g := domain.NewGraph("/src")
	target, err := g.FindOrCreate("a", nil)
	require.NoError(t, err)

	t.Run("forward path", func(t *testing.T) {
		j := &Job{target: target}
		require.NoError(t, j.transition(StateProcessing))
		require.NoError(t, j.transition(StateComplete))
		assert.Equal(t, StateComplete, j.State())
	})

	t.Run("no skipping", func(t *testing.T) {
		j := &Job{target: target}
		err := j.transition(StateComplete)
		require.Error(t, err)
		assert.Contains(t, err.Error(), domain.ErrInvalidJobTransition.Error())
		assert.Equal(t, StateWaiting, j.State())
	})

	t.Run("no reversal", func(t *testing.T) {
		j := &Job{target: target, state: StateComplete}
		require.Error(t, j.transition(StateProcessing))
		require.Error(t, j.transition(StateWaiting))
	})

	t.Run("prerequisites must be complete", func(t *testing.T) {
		j := &Job{target: target, pending: 1}
		require.Error(t, j.transition(StateProcessing))
	})
}

func TestPlanPostorder_Heights(t *testing.T) {
	g := domain.NewGraph("/src")
	get := func(id string) *domain.Target {
		target, err := g.FindOrCreate(id, nil)
		require.NoError(t, err)
		return target
	}
	app, lib, leaf, other := get("app"), get("lib"), get("leaf"), get("other")
	require.NoError(t, g.AddDependency(app, lib))
	require.NoError(t, g.AddDependency(app, other))
	require.NoError(t, g.AddDependency(lib, leaf))

	ranks := map[string]int{}
	pending := map[string]int{}
	for _, j := range planPostorder([]*domain.Target{app}) {
		ranks[j.target.ID()] = j.rank
		pending[j.target.ID()] = j.pending
	}
	assert.Equal(t, map[string]int{"app": 2, "lib": 1, "leaf": 0, "other": 0}, ranks)
	assert.Equal(t, map[string]int{"app": 2, "lib": 1, "leaf": 0, "other": 0}, pending)

	ranks = map[string]int{}
	pending = map[string]int{}
	for _, j := range planPreorder([]*domain.Target{app}) {
		ranks[j.target.ID()] = j.rank
		pending[j.target.ID()] = j.pending
	}
	assert.Equal(t, map[string]int{"app": 0, "lib": 1, "leaf": 2, "other": 1}, ranks)
	assert.Equal(t, map[string]int{"app": 0, "lib": 1, "leaf": 1, "other": 1}, pending)
}
