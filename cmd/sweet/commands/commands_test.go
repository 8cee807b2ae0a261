package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sweet/cmd/sweet/commands"
	"go.trai.ch/sweet/internal/app"
	"go.trai.ch/sweet/internal/build"
)

type call struct {
	name  string
	goals []string
	build app.BuildOptions
	clean app.CleanOptions
	opts  app.SessionOptions
}

type mockApp struct {
	calls []call
	err   error
}

func (m *mockApp) Build(_ context.Context, goals []string, opts app.BuildOptions) error {
	m.calls = append(m.calls, call{name: "build", goals: goals, build: opts})
	return m.err
}

func (m *mockApp) Clean(_ context.Context, goals []string, opts app.CleanOptions) error {
	m.calls = append(m.calls, call{name: "clean", goals: goals, clean: opts})
	return m.err
}

func (m *mockApp) Outdated(_ context.Context, goals []string, opts app.SessionOptions) error {
	m.calls = append(m.calls, call{name: "outdated", goals: goals, opts: opts})
	return m.err
}

func (m *mockApp) Show(_ context.Context, opts app.SessionOptions) error {
	m.calls = append(m.calls, call{name: "show", opts: opts})
	return m.err
}

func (m *mockApp) Watch(_ context.Context, goals []string, opts app.BuildOptions) error {
	m.calls = append(m.calls, call{name: "watch", goals: goals, build: opts})
	return m.err
}

func execute(t *testing.T, m *mockApp, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(m)
	cli.SetArgs(args)
	out := new(bytes.Buffer)
	cli.SetOutput(out, out)
	err := cli.Execute(context.Background())
	return out.String(), err
}

func TestCommands_Build(t *testing.T) {
	m := &mockApp{}
	_, err := execute(t, m, "build", "-C", "/src", "--graph", "g.bin", "-j", "3", "-n", "--json", "app", "lib")
	require.NoError(t, err)

	require.Len(t, m.calls, 1)
	c := m.calls[0]
	assert.Equal(t, "build", c.name)
	assert.Equal(t, []string{"app", "lib"}, c.goals)
	assert.Equal(t, app.BuildOptions{
		SessionOptions: app.SessionOptions{
			Directory:  "/src",
			GraphPath:  "g.bin",
			JSON:       true,
			OutputMode: app.OutputLinear,
			Jobs:       3,
		},
		DryRun: true,
	}, c.build)
}

func TestCommands_Watch(t *testing.T) {
	m := &mockApp{}
	_, err := execute(t, m, "watch", "--output-mode", "quiet", "app")
	require.NoError(t, err)

	require.Len(t, m.calls, 1)
	assert.Equal(t, "watch", m.calls[0].name)
	assert.Equal(t, app.OutputQuiet, m.calls[0].build.OutputMode)
	assert.False(t, m.calls[0].build.DryRun)
}

func TestCommands_Clean(t *testing.T) {
	m := &mockApp{}
	_, err := execute(t, m, "clean", "--dry-run")
	require.NoError(t, err)

	require.Len(t, m.calls, 1)
	assert.Equal(t, "clean", m.calls[0].name)
	assert.Empty(t, m.calls[0].goals)
	assert.True(t, m.calls[0].clean.DryRun)
	assert.Zero(t, m.calls[0].clean.Jobs)
}

func TestCommands_OutdatedAndShow(t *testing.T) {
	m := &mockApp{}
	_, err := execute(t, m, "outdated", "app")
	require.NoError(t, err)
	_, err = execute(t, m, "show", "-C", "sub")
	require.NoError(t, err)

	require.Len(t, m.calls, 2)
	assert.Equal(t, "outdated", m.calls[0].name)
	assert.Equal(t, []string{"app"}, m.calls[0].goals)
	assert.Equal(t, "show", m.calls[1].name)
	assert.Equal(t, "sub", m.calls[1].opts.Directory)
}

func TestCommands_ShowRejectsArguments(t *testing.T) {
	m := &mockApp{}
	_, err := execute(t, m, "show", "app")
	require.Error(t, err)
	assert.Empty(t, m.calls)
}

func TestCommands_InvalidOutputMode(t *testing.T) {
	m := &mockApp{}
	_, err := execute(t, m, "build", "--output-mode", "tui")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid output mode "tui"`)
	assert.Empty(t, m.calls)
}

func TestCommands_PropagatesErrors(t *testing.T) {
	m := &mockApp{err: errors.New("simulated error")}
	_, err := execute(t, m, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulated error")
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)
	assert.Equal(t, "sweet version "+build.Version+" (commit: "+build.Commit+", date: "+build.Date+")\n", out)

	out, err = execute(t, &mockApp{}, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "sweet version "+build.Version)
}
