package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Test loading config (will use defaults if file doesn't exist)
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Paths.DataDir)
	assert.NotEmpty(t, cfg.Paths.DBFile)
	assert.Equal(t, "flathub", cfg.Flatpak.Remote)
	assert.Positive(t, cfg.Runner.PollInterval)
	assert.Positive(t, cfg.Runner.WatchTimeout)
	assert.NotEmpty(t, cfg.Runner.SentinelPrefix)
	assert.Positive(t, cfg.Cache.RepoLookupSize)
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GNUSHARK_PATHS_DB_FILE", "~/runs/history.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "runs", "history.db"), cfg.Paths.DBFile)
}

func TestExpandPath(t *testing.T) {
	homeDir := "/home/gamer"

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty path",
			input: "",
			want:  "",
		},
		{
			name:  "absolute path",
			input: "/usr/local/bin",
			want:  "/usr/local/bin",
		},
		{
			name:  "home expansion",
			input: "~/test",
			want:  filepath.Join(homeDir, "test"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandPath(tt.input, homeDir)
			if got != tt.want {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestApplyLegacyEnv(t *testing.T) {
	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}

	t.Run("terminal fills empty override", func(t *testing.T) {
		cfg := &Config{}
		applyLegacyEnv(cfg, env(map[string]string{"TERMINAL": "kitty"}))
		assert.Equal(t, "kitty", cfg.Runner.Terminal)
	})

	t.Run("configured terminal wins", func(t *testing.T) {
		cfg := &Config{Runner: RunnerConfig{Terminal: "foot"}}
		applyLegacyEnv(cfg, env(map[string]string{"TERMINAL": "kitty"}))
		assert.Equal(t, "foot", cfg.Runner.Terminal)
	})

	t.Run("nvidia open preference", func(t *testing.T) {
		for _, v := range []string{"1", "true", "YES", "on"} {
			cfg := &Config{}
			applyLegacyEnv(cfg, env(map[string]string{"GNUSK_PREFER_NVIDIA_OPEN": v}))
			assert.True(t, cfg.Drivers.PreferNvidiaOpen, v)
		}

		cfg := &Config{Drivers: DriversConfig{PreferNvidiaOpen: true}}
		applyLegacyEnv(cfg, env(map[string]string{"GNUSK_PREFER_NVIDIA_OPEN": "0"}))
		assert.False(t, cfg.Drivers.PreferNvidiaOpen)
	})
}

func TestNormalize(t *testing.T) {
	cfg := &Config{}
	normalize(cfg)

	assert.Equal(t, time.Second, cfg.Runner.PollInterval)
	assert.Equal(t, 4*time.Hour, cfg.Runner.WatchTimeout)
	assert.Equal(t, "gnusk_done", cfg.Runner.SentinelPrefix)
	assert.NotEmpty(t, cfg.Runner.TmpDir)
	assert.Equal(t, "flathub", cfg.Flatpak.Remote)
	assert.Equal(t, 1024, cfg.Cache.RepoLookupSize)
}
