package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/quantmind-br/gnushark/internal/config"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
sections:
  - id: tools
    title: Tools
    description: Gaming tools
  - id: drivers
    title: Drivers
capabilities:
  - id: gamemode
    label: GameMode
    section: tools
    packages: [gamemode]
  - id: mangohud
    label: MangoHud
    section: tools
    packages: [mangohud]
    exec: mangohud
    cli: true
  - id: nvidia-driver
    label: NVIDIA proprietary
    section: drivers
    requires_gpu: nvidia
    dynamic: nvidia
`

type exitError struct{ code int }

func (e exitError) Error() string { return "exit status" }

// fakeSystem is an AMD machine with pacman and xterm whose terminal
// completes every script at once
type fakeSystem struct {
	t         *testing.T
	fs        afero.Fs
	commands  []string
	installed map[string]bool
	repo      map[string]bool
	multilib  bool
	marker    string

	mu      sync.Mutex
	scripts []string
}

func newFakeSystem(t *testing.T) *fakeSystem {
	s := &fakeSystem{
		t:         t,
		fs:        afero.NewMemMapFs(),
		commands:  []string{"pacman", "xterm", "sudo"},
		installed: map[string]bool{},
		repo:      map[string]bool{"gamemode": true, "mangohud": true},
		multilib:  true,
		marker:    "DONE",
	}
	require.NoError(t, afero.WriteFile(s.fs, "/proc/cpuinfo", []byte("vendor_id\t: AuthenticAMD\n"), 0o644))
	require.NoError(t, afero.WriteFile(s.fs, "/sys/class/drm/card0/device/vendor", []byte("0x1002\n"), 0o644))
	require.NoError(t, afero.WriteFile(s.fs, "/etc/os-release", []byte("ID=arch\nPRETTY_NAME=\"Arch Linux\"\n"), 0o644))
	return s
}

func (s *fakeSystem) pacman(args []string) (string, string, error) {
	if len(args) == 0 {
		return "", "", exitError{1}
	}
	switch args[0] {
	case "-T":
		var missing []string
		for _, n := range args[1:] {
			if !s.installed[n] {
				missing = append(missing, n)
			}
		}
		if len(missing) == 0 {
			return "", "", nil
		}
		return strings.Join(missing, "\n") + "\n", "", exitError{127}
	case "-Q":
		if s.installed[args[1]] {
			return args[1] + " 1.0-1\n", "", nil
		}
		return "", "", exitError{1}
	case "-Si":
		var out strings.Builder
		all := true
		for _, n := range args[1:] {
			if s.repo[n] {
				out.WriteString("Name            : " + n + "\n\n")
			} else {
				all = false
			}
		}
		if !all {
			return out.String(), "", exitError{1}
		}
		return out.String(), "", nil
	case "-Sl":
		if s.multilib {
			return "multilib steam 1.0-1\n", "", nil
		}
		return "", "error: repository \"multilib\" was not found.\n", exitError{1}
	}
	return "", "", exitError{1}
}

func (s *fakeSystem) env() Env {
	mock := &helpers.MockCommandRunner{
		CommandExistsFunc: func(name string) bool {
			return helpers.ExistingCommands(s.commands...)(name)
		},
		RunCommandWithOutputFunc: func(_ context.Context, name string, args ...string) (string, string, error) {
			if name == "pacman" {
				return s.pacman(args)
			}
			return "", "", exitError{1}
		},
		RunCommandFunc: func(context.Context, string, ...string) (string, error) {
			return "", exitError{1}
		},
		GetExitCodeFunc: func(err error) int {
			var e exitError
			if errors.As(err, &e) {
				return e.code
			}
			if err != nil {
				return 1
			}
			return 0
		},
		SpawnFunc: func(name string, args ...string) error {
			if name != "xterm" {
				return nil
			}
			full := args[len(args)-1]
			s.mu.Lock()
			s.scripts = append(s.scripts, full)
			s.mu.Unlock()
			return afero.WriteFile(s.fs, sentinelOf(s.t, full), []byte(s.marker), 0o644)
		},
	}

	return Env{
		Fs:       s.fs,
		Commands: mock,
		Getenv:   func(string) string { return "" },
		Euid:     func() int { return 0 },
	}
}

func (s *fakeSystem) launched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scripts...)
}

func sentinelOf(t *testing.T, script string) string {
	t.Helper()
	for _, line := range strings.Split(script, "\n") {
		if rest, ok := strings.CutPrefix(line, "__gnusk_sentinel="); ok {
			words, err := shellquote.Split(rest)
			require.NoError(t, err)
			return words[0]
		}
	}
	t.Fatal("script has no sentinel")
	return ""
}

// testConfig points every path into a temporary directory and the catalog
// at a file on fs
func testConfig(t *testing.T, fs afero.Fs) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.DataDir = "/data"
	cfg.Paths.DBFile = filepath.Join(dir, "history.db")
	cfg.Paths.LogFile = "/data/gnushark.log"
	cfg.Paths.CatalogFile = "/etc/gnushark/catalog.yaml"
	cfg.Runner.PollInterval = 2 * time.Millisecond
	cfg.Runner.WatchTimeout = 2 * time.Second
	cfg.Runner.SentinelPrefix = "gnusk_done"
	cfg.Runner.TmpDir = "/tmp"
	cfg.Flatpak.Remote = "flathub"
	cfg.Cache.RepoLookupSize = 64
	require.NoError(t, afero.WriteFile(fs, cfg.Paths.CatalogFile, []byte(testCatalog), 0o644))
	return cfg
}

// execute runs cmd with args and returns stdout, stderr and the error
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func nopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func writeFile(s *fakeSystem, path, content string) error {
	return afero.WriteFile(s.fs, path, []byte(content), 0o644)
}

func dirExists(s *fakeSystem, path string) (bool, error) {
	return afero.DirExists(s.fs, path)
}
