package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/quantmind-br/gnushark/internal/privilege"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		PollInterval:   5 * time.Millisecond,
		WatchTimeout:   2 * time.Second,
		SentinelPrefix: "gnusk_done",
		TmpDir:         "/tmp",
	}
}

// sentinelOf extracts the sentinel path an assembled script writes to
func sentinelOf(t *testing.T, script string) string {
	t.Helper()
	for _, line := range strings.Split(script, "\n") {
		if rest, ok := strings.CutPrefix(line, "__gnusk_sentinel="); ok {
			words, err := shellquote.Split(rest)
			require.NoError(t, err)
			require.Len(t, words, 1)
			return words[0]
		}
	}
	t.Fatal("script has no sentinel assignment")
	return ""
}

type spawnRecorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (s *spawnRecorder) record(name string, args ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string{name}, args...))
}

func (s *spawnRecorder) last() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

func newTestRunner(t *testing.T, fs afero.Fs, mock *helpers.MockCommandRunner, euid int) *Runner {
	t.Helper()
	logger := zerolog.Nop()
	esc := privilege.NewEscalatorWith(mock, func() int { return euid }, func(string) string { return "" })
	return New(mock, fs, esc, nil, testOptions(), &logger)
}

func TestRunInTerminal(t *testing.T) {
	fs := afero.NewMemMapFs()
	rec := &spawnRecorder{}
	mock := &helpers.MockCommandRunner{
		CommandExistsFunc: helpers.ExistingCommands("konsole"),
		SpawnFunc: func(name string, args ...string) error {
			rec.record(name, args...)
			full := args[len(args)-1]
			sentinel := sentinelOf(t, full)
			go func() {
				time.Sleep(20 * time.Millisecond)
				_ = afero.WriteFile(fs, sentinel, []byte("DONE"), 0o644)
			}()
			return nil
		},
	}
	r := newTestRunner(t, fs, mock, 1000)

	h, err := r.Run(context.Background(), "echo hi", false)
	require.NoError(t, err)
	assert.Equal(t, "konsole", h.Terminal)
	assert.Equal(t, core.ModeUser, h.Mode)
	assert.False(t, h.Headless)
	assert.False(t, h.Minimize)
	assert.True(t, strings.HasPrefix(h.Sentinel, "/tmp/gnusk_done_"))

	res := h.Wait(context.Background())
	assert.True(t, res.OK())
	assert.Equal(t, core.RunFinished, res.Status)
	assert.Equal(t, h.Sentinel, res.Sentinel)

	exists, _ := afero.Exists(fs, h.Sentinel)
	assert.False(t, exists, "sentinel must be deleted once observed")

	argv := rec.last()
	require.Len(t, argv, 5)
	assert.Equal(t, []string{"konsole", "-e", "bash", "-lc"}, argv[:4])
	assert.Contains(t, argv[4], "echo hi")
	assert.Contains(t, argv[4], "run_root()")
}

func TestRunSudoMinimizes(t *testing.T) {
	fs := afero.NewMemMapFs()
	mock := &helpers.MockCommandRunner{
		CommandExistsFunc: helpers.ExistingCommands("xterm", "sudo"),
		SpawnFunc: func(name string, args ...string) error {
			sentinel := sentinelOf(t, args[len(args)-1])
			return afero.WriteFile(fs, sentinel, []byte("FAIL 4"), 0o644)
		},
	}
	r := newTestRunner(t, fs, mock, 1000)

	h, err := r.Run(context.Background(), "true", true)
	require.NoError(t, err)
	assert.Equal(t, core.ModeSudo, h.Mode)
	assert.True(t, h.Minimize)

	res := h.Wait(context.Background())
	assert.False(t, res.OK())
	assert.Equal(t, core.RunFailed, res.Status)
	assert.Equal(t, 4, res.ExitCode)
	assert.True(t, res.Restore)
}

func TestRunMissingPrivilegeHelper(t *testing.T) {
	mock := &helpers.MockCommandRunner{CommandExistsFunc: helpers.ExistingCommands("xterm")}
	r := newTestRunner(t, afero.NewMemMapFs(), mock, 1000)

	_, err := r.Run(context.Background(), "true", true)
	assert.ErrorIs(t, err, core.ErrMissingPrivilegeHelper)
}

func TestRunSpawnFailure(t *testing.T) {
	mock := &helpers.MockCommandRunner{
		CommandExistsFunc: helpers.ExistingCommands("xterm"),
		SpawnFunc:         func(string, ...string) error { return errors.New("exec format error") },
	}
	r := newTestRunner(t, afero.NewMemMapFs(), mock, 1000)

	_, err := r.Run(context.Background(), "true", false)
	assert.ErrorIs(t, err, core.ErrLaunchFailure)
}

func TestRunRejectsUnsafeTmpDir(t *testing.T) {
	mock := &helpers.MockCommandRunner{CommandExistsFunc: helpers.ExistingCommands("xterm")}
	logger := zerolog.Nop()
	esc := privilege.NewEscalatorWith(mock, func() int { return 0 }, func(string) string { return "" })

	for _, dir := range []string{"tmp", "/tmp/$(id)"} {
		opts := testOptions()
		opts.TmpDir = dir
		r := New(mock, afero.NewMemMapFs(), esc, nil, opts, &logger)

		_, err := r.Run(context.Background(), "true", false)
		assert.ErrorIs(t, err, core.ErrScriptConstruction, dir)
	}
}

func TestRunAgentEnsuresPolicy(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := zerolog.Nop()

	var spawned []string
	var mu sync.Mutex
	mock := &helpers.MockCommandRunner{
		CommandExistsFunc: helpers.ExistingCommands("xterm", "pkexec"),
		SpawnFunc: func(name string, args ...string) error {
			full := args[len(args)-1]
			mu.Lock()
			spawned = append(spawned, full)
			mu.Unlock()
			// the policy install script writes both artifacts
			if strings.Contains(full, privilege.PolicyPath) && strings.Contains(full, "pkexec /usr/bin/bash -s") {
				_ = afero.WriteFile(fs, privilege.WrapperPath, []byte(privilege.WrapperContent), 0o755)
				_ = afero.WriteFile(fs, privilege.PolicyPath, []byte(privilege.PolicyContent), 0o644)
			}
			return afero.WriteFile(fs, sentinelOf(t, full), []byte("DONE"), 0o644)
		},
	}
	esc := privilege.NewEscalatorWith(mock, func() int { return 1000 }, func(string) string { return "" })
	policy := privilege.NewPolicyInstaller(fs, &logger)
	r := New(mock, fs, esc, policy, testOptions(), &logger)

	res, err := r.RunAndWait(context.Background(), "pacman -Syu", true)
	require.NoError(t, err)
	assert.True(t, res.OK())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, spawned, 2, "policy install then the requested script")
	assert.Contains(t, spawned[0], "pkexec /usr/bin/bash -s")
	assert.Contains(t, spawned[1], "pkexec "+privilege.WrapperPath)
	assert.True(t, policy.UpToDate())
}

func TestRunHeadless(t *testing.T) {
	fs := afero.NewMemMapFs()
	mock := &helpers.MockCommandRunner{}
	r := newTestRunner(t, fs, mock, 1000)

	r.SetExecutor(func(ctx context.Context, script string, out io.Writer) (int, error) {
		fmt.Fprintln(out, "resolving dependencies...")
		return 0, afero.WriteFile(fs, sentinelOf(t, script), []byte("DONE"), 0o644)
	})

	h, err := r.Run(context.Background(), "echo hi", false)
	require.NoError(t, err)
	assert.True(t, h.Headless)
	assert.Empty(t, h.Terminal)
	require.NotEmpty(t, h.LogPath)
	assert.Contains(t, h.LogPath, "gnusk_headless_")
	assert.True(t, strings.HasSuffix(h.LogPath, ".log"))

	res := h.Wait(context.Background())
	assert.True(t, res.OK())
	assert.Equal(t, h.LogPath, res.LogPath)

	logged, err := afero.ReadFile(fs, h.LogPath)
	require.NoError(t, err)
	assert.Equal(t, "resolving dependencies...\n", string(logged))

	exists, _ := afero.Exists(fs, h.Sentinel)
	assert.False(t, exists)
}

func TestRunHeadlessWithoutSentinel(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		err      error
		status   core.RunStatus
		exitCode int
		launch   bool
	}{
		{name: "exit code used", code: 2, status: core.RunFailed, exitCode: 2},
		{name: "clean exit", code: 0, status: core.RunFinished, exitCode: 0},
		{name: "exec error", err: errors.New("bash not found"), status: core.RunFailed, exitCode: -1, launch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunner(t, afero.NewMemMapFs(), &helpers.MockCommandRunner{}, 1000)
			r.SetExecutor(func(context.Context, string, io.Writer) (int, error) {
				return tt.code, tt.err
			})

			res, err := r.RunAndWait(context.Background(), "true", false)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.exitCode, res.ExitCode)
			if tt.launch {
				assert.ErrorIs(t, res.Err, core.ErrLaunchFailure)
			}
		})
	}
}

func TestLaunchReturnsScriptFailure(t *testing.T) {
	r := newTestRunner(t, afero.NewMemMapFs(), &helpers.MockCommandRunner{}, 0)
	r.SetExecutor(func(context.Context, string, io.Writer) (int, error) {
		return 1, nil
	})

	err := r.Launch(context.Background(), "false")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	t.Run("gui program is spawned", func(t *testing.T) {
		rec := &spawnRecorder{}
		mock := &helpers.MockCommandRunner{
			SpawnFunc: func(name string, args ...string) error {
				rec.record(name, args...)
				return nil
			},
		}
		r := newTestRunner(t, afero.NewMemMapFs(), mock, 1000)

		require.NoError(t, r.Open(context.Background(), "corectrl", false))
		assert.Equal(t, []string{"corectrl"}, rec.last())
	})

	t.Run("cli program opens in a terminal", func(t *testing.T) {
		rec := &spawnRecorder{}
		mock := &helpers.MockCommandRunner{
			CommandExistsFunc: helpers.ExistingCommands("foot"),
			SpawnFunc: func(name string, args ...string) error {
				rec.record(name, args...)
				return nil
			},
		}
		r := newTestRunner(t, afero.NewMemMapFs(), mock, 1000)

		require.NoError(t, r.Open(context.Background(), "steam-acolyte", true))
		argv := rec.last()
		require.NotEmpty(t, argv)
		assert.Equal(t, "foot", argv[0])
		assert.Contains(t, argv[len(argv)-1], "\nsteam-acolyte\n")
	})

	t.Run("spawn failure", func(t *testing.T) {
		mock := &helpers.MockCommandRunner{
			SpawnFunc: func(string, ...string) error { return errors.New("not found") },
		}
		r := newTestRunner(t, afero.NewMemMapFs(), mock, 1000)
		assert.ErrorIs(t, r.Open(context.Background(), "corectrl", false), core.ErrLaunchFailure)
	})
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultPollInterval, o.PollInterval)
	assert.Equal(t, DefaultWatchTimeout, o.WatchTimeout)
	assert.Equal(t, DefaultSentinelPrefix, o.SentinelPrefix)
	assert.NotEmpty(t, o.TmpDir)
}

func TestGoCmdExecutor(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}

	var out bytes.Buffer
	code, err := GoCmdExecutor(context.Background(), "echo installed; echo warning >&2; exit 3", &out)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Contains(t, out.String(), "installed\n")
	assert.Contains(t, out.String(), "warning\n")
}

func TestGoCmdExecutorCancelledWhileFlooding(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = GoCmdExecutor(ctx, "while :; do echo pacman output line; done", io.Discard)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("executor did not return after cancellation")
	}
}
