package privilege

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestEscalator_Mode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		needsRoot bool
		euid      int
		existing  []string
		want      core.PrivilegeMode
		wantErr   error
	}{
		{"user when root not needed", false, 1000, nil, core.ModeUser, nil},
		{"already root", true, 0, nil, core.ModeRoot, nil},
		{"polkit agent preferred", true, 1000, []string{"sudo", "pkexec"}, core.ModeAgent, nil},
		{"sudo fallback", true, 1000, []string{"sudo"}, core.ModeSudo, nil},
		{"no helper", true, 1000, nil, "", core.ErrMissingPrivilegeHelper},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := &helpers.MockCommandRunner{CommandExistsFunc: helpers.ExistingCommands(tt.existing...)}
			e := NewEscalatorWith(runner, func() int { return tt.euid }, env(nil))

			got, err := e.Mode(tt.needsRoot)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEscalator_Primitives(t *testing.T) {
	t.Parallel()
	runner := &helpers.MockCommandRunner{}

	t.Run("root uses safe path", func(t *testing.T) {
		t.Parallel()
		p := NewEscalatorWith(runner, func() int { return 0 }, env(nil)).Primitives(core.ModeRoot)
		assert.Contains(t, p, `run_root() { env PATH="`+SafePath+`" bash -lc "$1"; }`)
		assert.Contains(t, p, `bash -lc "$(cat)"`)
	})

	t.Run("agent pipes through the wrapper", func(t *testing.T) {
		t.Parallel()
		p := NewEscalatorWith(runner, func() int { return 1000 }, env(nil)).Primitives(core.ModeAgent)
		assert.Contains(t, p, `printf '%s\n' "$1" | pkexec /usr/libexec/gnushark-runroot`)
		assert.Contains(t, p, "run_root_sh() { pkexec /usr/libexec/gnushark-runroot; }")
	})

	t.Run("sudo with askpass", func(t *testing.T) {
		t.Parallel()
		e := NewEscalatorWith(runner, func() int { return 1000 }, env(map[string]string{"SUDO_ASKPASS": "/usr/lib/ssh/ssh-askpass"}))
		assert.Contains(t, e.Primitives(core.ModeSudo), `run_root() { sudo -A -k bash -lc "$1"; }`)
	})

	t.Run("sudo without askpass", func(t *testing.T) {
		t.Parallel()
		e := NewEscalatorWith(runner, func() int { return 1000 }, env(nil))
		assert.Contains(t, e.Primitives(core.ModeSudo), `run_root() { sudo -k bash -lc "$1"; }`)
	})

	t.Run("every mode exports both", func(t *testing.T) {
		t.Parallel()
		e := NewEscalatorWith(runner, func() int { return 1000 }, env(nil))
		for _, m := range []core.PrivilegeMode{core.ModeUser, core.ModeRoot, core.ModeAgent, core.ModeSudo} {
			assert.True(t, strings.HasSuffix(e.Primitives(m), "\nexport -f run_root run_root_sh"), m)
		}
	})
}

func TestPolicyContent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 3, strings.Count(PolicyContent, "auth_admin_keep</allow_"))
	assert.Contains(t, PolicyContent, `<action id="org.gnushark.runroot">`)
	assert.Contains(t, PolicyContent, `<annotate key="org.freedesktop.policykit.exec.path">/usr/libexec/gnushark-runroot</annotate>`)
	assert.True(t, strings.HasPrefix(WrapperContent, "#!/bin/sh\n"))
	assert.Contains(t, WrapperContent, "unset BASH_ENV ENV\nexec /usr/bin/bash -s\n")
}

// fileLauncher simulates the install script by writing the artifacts
type fileLauncher struct {
	fs      afero.Fs
	calls   atomic.Int32
	release chan struct{}
	err     error
	write   bool
}

func (l *fileLauncher) Launch(_ context.Context, body string) error {
	l.calls.Add(1)
	if l.release != nil {
		<-l.release
	}
	if l.err != nil {
		return l.err
	}
	if l.write && strings.Contains(body, "pkexec /usr/bin/bash -s") {
		if err := afero.WriteFile(l.fs, WrapperPath, []byte(WrapperContent), 0o755); err != nil {
			return err
		}
		return afero.WriteFile(l.fs, PolicyPath, []byte(PolicyContent), 0o644)
	}
	return nil
}

func newInstaller(fs afero.Fs, l Launcher) *PolicyInstaller {
	log := zerolog.Nop()
	p := NewPolicyInstaller(fs, &log)
	p.SetLauncher(l)
	return p
}

func TestPolicyInstaller_Idempotent(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	l := &fileLauncher{fs: fs, write: true}
	p := newInstaller(fs, l)

	installed, err := p.Ensure(context.Background())
	require.NoError(t, err)
	assert.True(t, installed)
	assert.Equal(t, int32(1), l.calls.Load())

	installed, err = p.Ensure(context.Background())
	require.NoError(t, err)
	assert.False(t, installed)
	assert.Equal(t, int32(1), l.calls.Load(), "second call must not launch")
}

func TestPolicyInstaller_UpToDate(t *testing.T) {
	t.Parallel()

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		assert.False(t, newInstaller(afero.NewMemMapFs(), nil).UpToDate())
	})

	t.Run("wrapper not executable", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, WrapperPath, []byte(WrapperContent), 0o644))
		require.NoError(t, afero.WriteFile(fs, PolicyPath, []byte(PolicyContent), 0o644))
		assert.False(t, newInstaller(fs, nil).UpToDate())
	})

	t.Run("content differs by one byte", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, WrapperPath, []byte(WrapperContent), 0o755))
		require.NoError(t, afero.WriteFile(fs, PolicyPath, []byte(strings.TrimSuffix(PolicyContent, "\n")), 0o644))
		assert.False(t, newInstaller(fs, nil).UpToDate())
	})

	t.Run("exact", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, WrapperPath, []byte(WrapperContent), 0o755))
		require.NoError(t, afero.WriteFile(fs, PolicyPath, []byte(PolicyContent), 0o644))
		assert.True(t, newInstaller(fs, nil).UpToDate())
	})
}

func TestPolicyInstaller_ConcurrentCallReturnsImmediately(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	l := &fileLauncher{fs: fs, write: true, release: make(chan struct{})}
	p := newInstaller(fs, l)

	done := make(chan error, 1)
	go func() {
		_, err := p.Ensure(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return l.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	installed, err := p.Ensure(context.Background())
	assert.NoError(t, err)
	assert.False(t, installed)

	close(l.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestPolicyInstaller_Failures(t *testing.T) {
	t.Parallel()

	t.Run("launch error", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		p := newInstaller(fs, &fileLauncher{fs: fs, err: errors.New("terminal closed")})
		_, err := p.Ensure(context.Background())
		assert.ErrorIs(t, err, core.ErrConfigWrite)
		assert.Contains(t, err.Error(), "terminal closed")
	})

	t.Run("files still wrong", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		p := newInstaller(fs, &fileLauncher{fs: fs})
		installed, err := p.Ensure(context.Background())
		assert.True(t, installed)
		assert.ErrorIs(t, err, core.ErrConfigWrite)
	})

	t.Run("no launcher", func(t *testing.T) {
		t.Parallel()
		p := newInstaller(afero.NewMemMapFs(), nil)
		_, err := p.Ensure(context.Background())
		assert.ErrorIs(t, err, core.ErrConfigWrite)
	})
}

func TestInstallScript(t *testing.T) {
	t.Parallel()
	s := InstallScript()

	assert.True(t, strings.HasPrefix(s, "set -euo pipefail\npkexec /usr/bin/bash -s <<'EOS'\n"))
	assert.Contains(t, s, "cat > /usr/libexec/gnushark-runroot <<'EOF'\n"+WrapperContent+"EOF\n")
	assert.Contains(t, s, "cat > "+PolicyPath+" <<'EOF'\n"+PolicyContent+"EOF\n")
	assert.Contains(t, s, "chmod 0755 /usr/libexec/gnushark-runroot")
	assert.True(t, strings.HasSuffix(s, "\nEOS"))
}
