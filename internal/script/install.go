package script

import (
	"fmt"
	"strings"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/quantmind-br/gnushark/internal/syspkg"
)

// Builder renders install pipelines for one package manager and build helper
type Builder struct {
	Manager syspkg.Manager
	// Helper builds third-party packages: paru, yay, or pamac for pamac build
	Helper syspkg.Manager
}

// Install renders the pipeline for official and third-party packages.
// Official packages go through the system manager with prompt automation,
// third-party ones through the build helper.
func (b Builder) Install(official, thirdParty []string) (string, error) {
	if b.Manager == syspkg.ManagerNone {
		return "", fmt.Errorf("no package manager available: %w", core.ErrScriptConstruction)
	}

	official = helpers.CompactNames(official)
	thirdParty = helpers.CompactNames(thirdParty)

	lines := []string{"set -euo pipefail"}
	if len(official) > 0 {
		lines = append(lines, b.officialLine(official))
	}
	if len(thirdParty) > 0 {
		line, err := b.thirdPartyLine(thirdParty)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (b Builder) officialLine(pkgs []string) string {
	if b.Manager == syspkg.ManagerPamac {
		return ExpectRoot("pamac install " + helpers.ShellJoin(pkgs...))
	}
	return ExpectRoot("pacman -S --needed " + helpers.ShellJoin(pkgs...))
}

func (b Builder) thirdPartyLine(pkgs []string) (string, error) {
	joined := helpers.ShellJoin(pkgs...)
	switch b.Helper {
	case syspkg.ManagerParu:
		return "paru -S --needed --skipreview --noconfirm " + joined, nil
	case syspkg.ManagerYay:
		return "yay -S --needed --noconfirm --answerdiff None --answeredit None " + joined, nil
	case syspkg.ManagerPamac:
		return Expect("pamac build --no-confirm " + joined), nil
	}
	return "", fmt.Errorf("third-party packages %s need paru, yay or pamac: %w",
		strings.Join(pkgs, ", "), core.ErrScriptConstruction)
}

// Expect wraps a command line in expect_yes_pac
func Expect(command string) string {
	return "expect_yes_pac " + helpers.ShellQuote(command)
}

// ExpectRoot wraps a command line in run_root and then expect_yes_pac
func ExpectRoot(command string) string {
	return Expect("run_root " + helpers.ShellQuote(command))
}

// Root runs a single command line as root without prompt automation
func Root(command string) string {
	return "run_root " + helpers.ShellQuote(command)
}

// HelperBootstrap renders the installation of a build helper: from the
// official repositories, or built with pamac when fromRepo is false
func HelperBootstrap(helper string, fromRepo bool) string {
	if fromRepo {
		return "set -euo pipefail\n" + ExpectRoot("pacman -S --needed "+helpers.ShellQuote(helper))
	}
	return "set -euo pipefail\n" + Expect("pamac build --no-confirm "+helpers.ShellQuote(helper))
}
