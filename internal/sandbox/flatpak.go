// Package sandbox wraps the Flatpak runtime used as the sandboxed install source.
package sandbox

import (
	"context"
	"fmt"

	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/rs/zerolog"
)

// Flatpak queries and drives the flatpak CLI against one remote
type Flatpak struct {
	runner    helpers.CommandRunner
	remote    string
	remoteURL string
	log       *zerolog.Logger
}

// NewFlatpak creates a Flatpak client for remote
func NewFlatpak(runner helpers.CommandRunner, remote, remoteURL string, log *zerolog.Logger) *Flatpak {
	return &Flatpak{runner: runner, remote: remote, remoteURL: remoteURL, log: log}
}

// Remote returns the configured remote name
func (f *Flatpak) Remote() string {
	return f.remote
}

// Available reports whether the flatpak runtime is installed
func (f *Flatpak) Available() bool {
	return f.runner.CommandExists("flatpak")
}

// RemotePresent reports whether the configured remote is set up
func (f *Flatpak) RemotePresent(ctx context.Context) bool {
	if !f.Available() {
		return false
	}
	out, err := f.runner.RunCommand(ctx, "flatpak", "remotes", "--columns=name")
	if err != nil {
		f.log.Debug().Err(err).Msg("listing flatpak remotes failed")
		return false
	}
	return containsLine(out, f.remote)
}

// IsInstalled reports whether the application id is installed
func (f *Flatpak) IsInstalled(ctx context.Context, appID string) bool {
	if appID == "" || !f.Available() {
		return false
	}
	out, err := f.runner.RunCommand(ctx, "flatpak", "list", "--app", "--columns=application")
	if err != nil {
		f.log.Debug().Err(err).Msg("listing flatpak apps failed")
		return false
	}
	return containsLine(out, appID)
}

func containsLine(output, want string) bool {
	for _, line := range helpers.NonEmptyLines(output) {
		if line == want {
			return true
		}
	}
	return false
}

// RemoteAddCommand adds the configured remote if it is missing
func (f *Flatpak) RemoteAddCommand() string {
	return "flatpak remote-add --if-not-exists " + helpers.ShellJoin(f.remote, f.remoteURL)
}

// RemoteAddScript is a user-mode script adding the remote
func (f *Flatpak) RemoteAddScript() string {
	return "set -euo pipefail\n" + f.RemoteAddCommand()
}

// InstallScript is a user-mode script installing or updating appID
func (f *Flatpak) InstallScript(appID string) string {
	return "set -euo pipefail\nflatpak install -y --or-update " + helpers.ShellJoin(f.remote, appID)
}

// Run starts an installed application detached
func (f *Flatpak) Run(appID string) error {
	if err := f.runner.Spawn("flatpak", "run", appID); err != nil {
		return fmt.Errorf("run flatpak %s: %w", appID, err)
	}
	return nil
}
