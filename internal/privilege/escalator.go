package privilege

import (
	"fmt"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/helpers"
)

// SafePath is the PATH root commands run with
const SafePath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// Escalator picks how a script obtains root
type Escalator struct {
	runner helpers.CommandRunner
	euid   func() int
	getenv func(string) string
}

// NewEscalatorWith creates an escalator with injected identity and environment lookups
func NewEscalatorWith(runner helpers.CommandRunner, euid func() int, getenv func(string) string) *Escalator {
	return &Escalator{runner: runner, euid: euid, getenv: getenv}
}

// Mode selects the privilege mode: user when root is not needed, then
// already-root, polkit agent, and sudo in that order
func (e *Escalator) Mode(needsRoot bool) (core.PrivilegeMode, error) {
	switch {
	case !needsRoot:
		return core.ModeUser, nil
	case e.euid() == 0:
		return core.ModeRoot, nil
	case e.runner.CommandExists("pkexec"):
		return core.ModeAgent, nil
	case e.runner.CommandExists("sudo"):
		return core.ModeSudo, nil
	}
	return "", fmt.Errorf("neither pkexec nor sudo found: %w", core.ErrMissingPrivilegeHelper)
}

// SudoFlags returns -A -k when an askpass helper is configured, else -k
func (e *Escalator) SudoFlags() string {
	if e.getenv("SUDO_ASKPASS") != "" {
		return "-A -k"
	}
	return "-k"
}

// Primitives renders run_root (one command line) and run_root_sh (script on stdin) for mode
func (e *Escalator) Primitives(mode core.PrivilegeMode) string {
	var defs string
	switch mode {
	case core.ModeRoot:
		defs = `run_root() { env PATH="` + SafePath + `" bash -lc "$1"; }
run_root_sh() { env PATH="` + SafePath + `" bash -lc "$(cat)"; }`
	case core.ModeAgent:
		defs = `run_root() { printf '%s\n' "$1" | pkexec ` + WrapperPath + `; }
run_root_sh() { pkexec ` + WrapperPath + `; }`
	case core.ModeSudo:
		flags := e.SudoFlags()
		defs = `run_root() { sudo ` + flags + ` bash -lc "$1"; }
run_root_sh() { sudo ` + flags + ` bash -lc "$(cat)"; }`
	default:
		defs = `run_root() { bash -lc "$1"; }
run_root_sh() { bash -lc "$(cat)"; }`
	}
	return defs + "\nexport -f run_root run_root_sh"
}
