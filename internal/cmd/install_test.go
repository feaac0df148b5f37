package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallCmd_InstallsMissingPackages(t *testing.T) {
	sys := newFakeSystem(t)
	env := sys.env()
	cfg := testConfig(t, sys.fs)

	stdout, _, err := execute(t, NewInstallCmd(cfg, nopLogger(), env), "--yes", "gamemode")
	require.NoError(t, err)

	scripts := sys.launched()
	require.Len(t, scripts, 1)
	assert.Contains(t, scripts[0], "gamemode")
	assert.Contains(t, scripts[0], "pacman -S --needed")
	assert.Contains(t, stdout, "Install gamemode?")
	assert.Contains(t, stdout, "Process finished.")

	history, err := db.New(context.Background(), cfg.Paths.DBFile)
	require.NoError(t, err)
	defer history.Close()

	runs, err := history.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "gamemode", runs[0].Capability)
	assert.Equal(t, core.SourceOfficial, runs[0].Source)
	assert.Equal(t, core.RunFinished, runs[0].Status)
	assert.Equal(t, string(core.ModeRoot), runs[0].Mode)
}

func TestInstallCmd_NonInteractiveAnswersNo(t *testing.T) {
	sys := newFakeSystem(t)
	cfg := testConfig(t, sys.fs)

	_, stderr, err := execute(t, NewInstallCmd(cfg, nopLogger(), sys.env()), "gamemode")
	require.NoError(t, err)
	assert.Empty(t, sys.launched())
	assert.Contains(t, stderr, "Not a terminal")
}

func TestInstallCmd_NoArgumentsWithoutTerminal(t *testing.T) {
	sys := newFakeSystem(t)
	cfg := testConfig(t, sys.fs)

	_, _, err := execute(t, NewInstallCmd(cfg, nopLogger(), sys.env()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no capability given")
}

func TestInstallCmd_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		marker   string
		wantErr  error
		wantExit int
		stderr   string
	}{
		{
			name:     "unknown capability",
			args:     []string{"--yes", "gamemod"},
			wantErr:  core.ErrUnknownCapability,
			wantExit: core.ExitInvalidArgs,
			stderr:   "Did you mean",
		},
		{
			name:     "hardware gate",
			args:     []string{"--yes", "nvidia-driver"},
			wantErr:  core.ErrHardwareIncompatible,
			wantExit: core.ExitHardware,
			stderr:   "NVIDIA",
		},
		{
			name:     "script failure",
			args:     []string{"--yes", "gamemode"},
			marker:   "FAIL 1",
			wantErr:  core.ErrScriptFailed,
			wantExit: core.ExitInstallFailed,
			stderr:   "status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := newFakeSystem(t)
			if tt.marker != "" {
				sys.marker = tt.marker
			}
			cfg := testConfig(t, sys.fs)

			_, stderr, err := execute(t, NewInstallCmd(cfg, nopLogger(), sys.env()), tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantExit, ExitCode(err))
			assert.Contains(t, stderr, tt.stderr)
		})
	}
}

func TestInstallCmd_OpensInstalledCLI(t *testing.T) {
	sys := newFakeSystem(t)
	sys.installed["mangohud"] = true
	cfg := testConfig(t, sys.fs)

	_, _, err := execute(t, NewInstallCmd(cfg, nopLogger(), sys.env()), "--yes", "mangohud")
	require.NoError(t, err)

	scripts := sys.launched()
	require.Len(t, scripts, 1)
	assert.Contains(t, scripts[0], "mangohud")
	assert.NotContains(t, scripts[0], "pacman -S --needed")
}

func TestInstallCmd_SeveralCapabilities(t *testing.T) {
	sys := newFakeSystem(t)
	cfg := testConfig(t, sys.fs)

	_, _, err := execute(t, NewInstallCmd(cfg, nopLogger(), sys.env()), "--yes", "gamemode", "unknown-thing")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownCapability)
	assert.True(t, strings.HasPrefix(err.Error(), "unknown-thing:"))
	assert.Len(t, sys.launched(), 1)
}

func TestInstallCmd_Completion(t *testing.T) {
	sys := newFakeSystem(t)
	cfg := testConfig(t, sys.fs)

	got := catalogCompletions(cfg, sys.env(), "ga")
	assert.Equal(t, []string{"gamemode\tGameMode"}, got)

	assert.Len(t, catalogCompletions(cfg, sys.env(), ""), 3)
}
