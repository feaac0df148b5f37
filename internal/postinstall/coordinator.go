// Package postinstall runs the follow-up steps some capabilities need after
// their packages were installed. Every step is best effort: failures are
// reported to the user and never abort the request.
package postinstall

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/hardware"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/quantmind-br/gnushark/internal/runner"
	"github.com/quantmind-br/gnushark/internal/script"
	"github.com/quantmind-br/gnushark/internal/zram"
	"github.com/rs/zerolog"
)

// ScriptRunner executes an install-style script and waits for its completion
type ScriptRunner interface {
	RunAndWait(ctx context.Context, body string, needsRoot bool) (runner.Result, error)
}

// Host reports facts the steps need about the machine
type Host interface {
	Resources(ctx context.Context) hardware.Resources
	ModuleLoaded(ctx context.Context, name string) bool
}

// Action is one post-install step
type Action func(ctx context.Context) error

// Coordinator dispatches post-install steps by catalog name
type Coordinator struct {
	cmds    helpers.CommandRunner
	scripts ScriptRunner
	host    Host
	notify  core.Notifier
	log     *zerolog.Logger

	actions map[string]Action
}

// New creates a coordinator with the built-in steps registered
func New(cmds helpers.CommandRunner, scripts ScriptRunner, host Host, notify core.Notifier, log *zerolog.Logger) *Coordinator {
	c := &Coordinator{cmds: cmds, scripts: scripts, host: host, notify: notify, log: log}
	c.actions = map[string]Action{
		"gamemode": c.gamemode,
		"cpupower": c.rootScript(CpupowerScript()),
		"tuned":    c.rootScript(TunedScript()),
		"preload":  c.rootScript(PreloadScript()),
		"zram":     c.zram,
		"nvidia":   c.AfterNvidia,
	}
	return c
}

// Names lists the registered steps
func (c *Coordinator) Names() []string {
	names := make([]string, 0, len(c.actions))
	for n := range c.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is a registered step
func (c *Coordinator) Has(name string) bool {
	_, ok := c.actions[name]
	return ok
}

// Run executes the step registered under name. An empty name is a no-op.
// Failures are shown to the user and returned for logging.
func (c *Coordinator) Run(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	action, ok := c.actions[name]
	if !ok {
		return fmt.Errorf("unknown post-install step %q", name)
	}

	c.log.Info().Str("step", name).Msg("running post-install step")
	if err := action(ctx); err != nil {
		c.log.Warn().Err(err).Str("step", name).Msg("post-install step failed")
		c.notify.Error(ctx, "Post-install failed", fmt.Sprintf("%s: %v", name, err))
		return err
	}
	return nil
}

func (c *Coordinator) rootScript(body string) Action {
	return func(ctx context.Context) error {
		return c.runRoot(ctx, body)
	}
}

func (c *Coordinator) runRoot(ctx context.Context, body string) error {
	res, err := c.scripts.RunAndWait(ctx, body, true)
	if err != nil {
		return err
	}
	return res.Err
}

// gamemode enables the user daemon and reports its self-test
func (c *Coordinator) gamemode(ctx context.Context) error {
	stdout, stderr, err := c.cmds.RunCommandWithOutput(ctx, "bash", "-lc", GamemodeCommand)
	out := strings.TrimSpace(stdout + stderr)
	if err != nil && out == "" {
		out = err.Error()
	}
	c.notify.Info(ctx, "GameMode", "Service enabled.\n\nTest result:\n"+out)
	return nil
}

// zram applies the tuned parameters and reports the active swap devices
func (c *Coordinator) zram(ctx context.Context) error {
	res := c.host.Resources(ctx)
	p := zram.Choose(res.RAMMiB, res.Cores)

	if err := c.runRoot(ctx, zram.ApplyScript(p)); err != nil {
		return err
	}

	swaps, err := c.cmds.RunCommand(ctx, "swapon", "--show")
	swaps = strings.TrimSpace(swaps)
	switch {
	case err != nil:
		c.log.Debug().Err(err).Msg("swapon --show failed")
		swaps = "(swapon --show failed)"
	case swaps == "":
		swaps = "(no output from swapon --show)"
	}
	c.notify.Info(ctx, "zram configured", fmt.Sprintf(
		"zram tuned automatically:\n- Size: %s\n- Compression: %s\n- vm.swappiness: %d\n\nCurrent state (swapon --show):\n%s",
		p.Size, p.Compression, p.Swappiness, swaps))
	return nil
}

// GamemodeCommand enables gamemoded for the user and runs its self-test
const GamemodeCommand = "systemctl --user enable --now gamemoded || true ; gamemoded -t || true"

// CpupowerScript sets the performance governor persistently and picks the
// best governor the driver offers for the current boot
func CpupowerScript() string {
	return "set -euo pipefail\n" + script.RootHeredoc(
		`echo 'governor="performance"' > /etc/default/cpupower`,
		"systemctl enable --now cpupower || true",
		`GOV=$(cat /sys/devices/system/cpu/cpu0/cpufreq/scaling_available_governors 2>/dev/null | tr " " "\n" | grep -E "^(performance|schedutil)$" | head -n1 || true)`,
		`[ -z "$GOV" ] && GOV=performance`,
		`for f in /sys/devices/system/cpu/cpu*/cpufreq/scaling_governor; do echo "$GOV" > "$f" 2>/dev/null || true; done`,
	)
}

// TunedScript enables tuned with the latency-performance profile
func TunedScript() string {
	return strings.Join([]string{
		"set -euo pipefail",
		script.Root("systemctl enable --now tuned || true"),
		script.Root("tuned-adm profile latency-performance || true"),
	}, "\n")
}

// PreloadScript enables the preload daemon
func PreloadScript() string {
	return "set -euo pipefail\n" + script.Root("systemctl enable --now preload || true")
}
