package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/sweet/internal/app"
	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/sweet/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	loader *mocks.MockConfigLoader
	store  *mocks.MockGraphStore
	logger *mocks.MockLogger
	events *mocks.MockEventSink
	app    *app.App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		loader: mocks.NewMockConfigLoader(ctrl),
		store:  mocks.NewMockGraphStore(ctrl),
		logger: mocks.NewMockLogger(ctrl),
		events: mocks.NewMockEventSink(ctrl),
	}
	watcher := mocks.NewMockWatcher(ctrl)
	f.app = app.New(
		f.loader,
		f.store,
		mocks.NewMockExecutor(ctrl),
		mocks.NewMockFileSystem(ctrl),
		mocks.NewMockDependencyScanner(ctrl),
		f.logger,
		f.events,
		mocks.NewMockRenderer(ctrl),
		func() (ports.Watcher, error) { return watcher, nil },
	)
	return f
}

func (f *fixture) provider(_ context.Context) (*app.Components, func(), error) {
	return &app.Components{App: f.app, Logger: f.logger}, func() {}, nil
}

// TestRun_Version verifies that run returns 0 when the command succeeds.
func TestRun_Version(t *testing.T) {
	f := newFixture(t)

	stderr := new(bytes.Buffer)
	assert.Equal(t, 0, run(context.Background(), []string{"version"}, stderr, f.provider))
	assert.Empty(t, stderr.String())
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that unexpected errors are logged.
func TestRun_ExecutionError(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	f.loader.EXPECT().Discover(dir).Return("", domain.ErrConfigNotFound)
	f.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrConfigNotFound)
	})

	exitCode := run(context.Background(), []string{"build", "-C", dir}, new(bytes.Buffer), f.provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_BuildFailureIsNotLoggedTwice verifies that reported errors only set the exit code.
func TestRun_BuildFailureIsNotLoggedTwice(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	f.loader.EXPECT().Discover(dir).Return(dir, nil)
	f.store.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.loader.EXPECT().Load(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ *domain.Graph, r ports.ErrorReporter) (*domain.Project, error) {
			r.Error("The target 'app' uses the undefined prototype 'cc'")
			return &domain.Project{}, nil
		})
	f.events.EXPECT().Error("", "The target 'app' uses the undefined prototype 'cc'")
	f.logger.EXPECT().Error(gomock.Any()).Times(0)

	exitCode := run(context.Background(), []string{"build", "-C", dir}, new(bytes.Buffer), f.provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_AppliesOptions verifies that options see the constructed App.
func TestRun_AppliesOptions(t *testing.T) {
	f := newFixture(t)

	var seen *app.App
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), f.provider, func(a *app.App) {
		seen = a
	})
	assert.Equal(t, 0, exitCode)
	assert.Same(t, f.app, seen)
}
