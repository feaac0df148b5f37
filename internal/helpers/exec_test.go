package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSCommandRunner(t *testing.T) {
	runner := NewOSCommandRunner()

	t.Run("CommandExists", func(t *testing.T) {
		assert.True(t, runner.CommandExists("echo"))
		assert.False(t, runner.CommandExists("nonexistentcommand123"))
	})

	t.Run("Forget clears cached answer", func(t *testing.T) {
		assert.False(t, runner.CommandExists("nonexistentcommand456"))
		runner.Forget("nonexistentcommand456")
		_, cached := runner.commandCache.Load("nonexistentcommand456")
		assert.False(t, cached)
	})

	t.Run("RunCommand", func(t *testing.T) {
		output, err := runner.RunCommand(context.Background(), "echo", "test")
		require.NoError(t, err)
		assert.Contains(t, output, "test")
	})

	t.Run("RunCommandWithOutput keeps stdout on failure", func(t *testing.T) {
		stdout, _, err := runner.RunCommandWithOutput(context.Background(), "sh", "-c", "echo partial; exit 127")
		require.Error(t, err)
		assert.Contains(t, stdout, "partial")
		assert.Equal(t, 127, runner.GetExitCode(err))
	})

	t.Run("RunCommand timeout exceeded", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := runner.RunCommand(ctx, "sleep", "5")
		assert.Error(t, err)
	})

	t.Run("GetExitCode", func(t *testing.T) {
		assert.Equal(t, 0, runner.GetExitCode(nil))
		_, err := runner.RunCommand(context.Background(), "false")
		require.Error(t, err)
		assert.NotEqual(t, 0, runner.GetExitCode(err))
		assert.Equal(t, -1, runner.GetExitCode(assert.AnError))
	})

	t.Run("Spawn", func(t *testing.T) {
		assert.NoError(t, runner.Spawn("true"))
		assert.Error(t, runner.Spawn("nonexistentcommand123"))
	})
}

func TestCommandRunnerInterface(_ *testing.T) {
	var _ CommandRunner = &OSCommandRunner{}
	var _ CommandRunner = &MockCommandRunner{}
}
