package shell_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sweet/internal/adapters/shell"
	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestExecutor_Execute_Output(t *testing.T) {
	executor := shell.NewExecutor()

	var stdout, stderr bytes.Buffer
	err := executor.Execute(context.Background(), domain.Command{
		Args: []string{"sh", "-c", "echo line1; echo line2; echo oops >&2"},
		Dir:  t.TempDir(),
	}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "line1\nline2\n", stdout.String())
	assert.Equal(t, "oops\n", stderr.String())
}

func TestExecutor_Execute_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	executor := shell.NewExecutor()

	err := executor.Execute(context.Background(), domain.Command{
		Args: []string{"sh", "-c", "echo built > out.txt"},
		Dir:  dir,
	}, io.Discard, io.Discard)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "built\n", string(data))
}

func TestExecutor_Execute_Environment(t *testing.T) {
	executor := shell.NewExecutor().WithEnviron([]string{
		"PATH=" + os.Getenv("PATH"),
		"SECRET_TOKEN=hunter2",
	})

	var stdout bytes.Buffer
	err := executor.Execute(context.Background(), domain.Command{
		Args: []string{"sh", "-c", `echo "$CFLAGS|$SECRET_TOKEN"`},
		Env:  map[string]string{"CFLAGS": "-O2"},
	}, &stdout, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "-O2|\n", stdout.String(), "only allow-listed variables are inherited")
}

func TestExecutor_Execute_Failure(t *testing.T) {
	executor := shell.NewExecutor()

	err := executor.Execute(context.Background(), domain.Command{
		Args: []string{"sh", "-c", "exit 3"},
	}, io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrCommandFailed.Error())

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, 3, zErr.Metadata()["exit_code"])
}

func TestExecutor_Execute_NotFound(t *testing.T) {
	executor := shell.NewExecutor()

	err := executor.Execute(context.Background(), domain.Command{
		Args: []string{"sweet-test-no-such-binary"},
	}, io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrCommandFailed.Error())
}

func TestExecutor_Execute_Empty(t *testing.T) {
	err := shell.NewExecutor().Execute(context.Background(), domain.Command{}, io.Discard, io.Discard)
	require.ErrorIs(t, err, domain.ErrEmptyCommand)
}

func TestExecutor_Execute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := shell.NewExecutor().Execute(ctx, domain.Command{
		Args: []string{"sh", "-c", "sleep 10"},
	}, io.Discard, io.Discard)
	require.Error(t, err)
}
