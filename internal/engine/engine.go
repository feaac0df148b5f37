// Package engine turns capability requests into install plans, runs them and
// reports progress to the front-end as events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quantmind-br/gnushark/internal/catalog"
	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/quantmind-br/gnushark/internal/postinstall"
	"github.com/quantmind-br/gnushark/internal/runner"
	"github.com/quantmind-br/gnushark/internal/script"
	"github.com/quantmind-br/gnushark/internal/selector"
	"github.com/quantmind-br/gnushark/internal/syspkg"
	"github.com/rs/zerolog"
)

// FlathubID requests the Flathub setup flow instead of a catalog entry
const FlathubID = "flathub"

// Resolver answers package state and kernel header questions
type Resolver interface {
	syspkg.StateResolver
	syspkg.HeaderResolver
}

// Executor launches assembled scripts
type Executor interface {
	Run(ctx context.Context, body string, needsRoot bool) (*runner.Handle, error)
	Open(ctx context.Context, exe string, cli bool) error
}

// Sandbox is the Flatpak runtime
type Sandbox interface {
	selector.Sandbox
	RemotePresent(ctx context.Context) bool
	RemoteAddCommand() string
	RemoteAddScript() string
	InstallScript(appID string) string
	Run(appID string) error
}

// History persists runs. It may be nil.
type History interface {
	Create(ctx context.Context, run *core.RunRecord) error
	Finish(ctx context.Context, runID string, status core.RunStatus, logPath string, at time.Time) error
}

// Deps are the collaborators of an Engine
type Deps struct {
	Catalog  *catalog.Catalog
	Resolver Resolver
	Sandbox  Sandbox
	Runner   Executor
	Host     postinstall.Host
	History  History
	Commands helpers.CommandRunner
	Log      *zerolog.Logger
}

// Engine handles capability requests. Each request runs in its own goroutine;
// the front-end consumes Events from a single goroutine.
type Engine struct {
	session  Session
	catalog  *catalog.Catalog
	resolver Resolver
	sandbox  Sandbox
	runner   Executor
	history  History
	cmds     helpers.CommandRunner
	selector *selector.Selector
	post     *postinstall.Coordinator
	log      *zerolog.Logger

	events chan Event
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates an engine for session
func New(session Session, deps Deps) *Engine {
	e := &Engine{
		session:  session,
		catalog:  deps.Catalog,
		resolver: deps.Resolver,
		sandbox:  deps.Sandbox,
		runner:   deps.Runner,
		history:  deps.History,
		cmds:     deps.Commands,
		log:      deps.Log,
		events:   make(chan Event, 16),
		now:      time.Now,
	}
	e.selector = selector.New(deps.Resolver, deps.Sandbox, deps.Commands, session.Manager, deps.Log)
	e.post = postinstall.New(deps.Commands, e, deps.Host, e, deps.Log)
	return e
}

// Session returns the detected machine state
func (e *Engine) Session() Session {
	return e.session
}

// Events is the stream the front-end consumes
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Submit handles the request for id in a new goroutine. The request ends
// with a RequestDone event.
func (e *Engine) Submit(ctx context.Context, id string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.Handle(ctx, id)
		e.emit(ctx, RequestDone{Capability: id, Err: err})
	}()
}

// Wait blocks until every submitted request finished
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Handle runs the whole flow for one request. Problems are reported with
// Notify events; the returned error is for exit status and logging.
func (e *Engine) Handle(ctx context.Context, id string) error {
	if id == FlathubID {
		return e.SetupFlathub(ctx)
	}

	c, err := e.catalog.Get(id)
	if err != nil {
		text := fmt.Sprintf("%q is not in the catalog.", id)
		if s := e.catalog.Suggest(id); len(s) > 0 {
			text += "\n\nDid you mean: " + strings.Join(s, ", ") + "?"
		}
		e.Error(ctx, "Unknown capability", text)
		return err
	}

	if err := e.gate(ctx, c); err != nil {
		return err
	}

	if c.Dynamic == core.DynamicNvidia {
		pkgs, ok := e.nvidiaPackages(ctx)
		if !ok {
			return nil
		}
		c.Packages = pkgs
	}

	if c.RequiresMultilib && !e.resolver.MultilibEnabled(ctx) {
		if err := e.ensureMultilib(ctx); err != nil {
			return err
		}
	}

	c.Packages = e.resolver.ResolveVirtuals(ctx, c.Packages)

	outcome, err := e.selector.Decide(ctx, c)
	if errors.Is(err, core.ErrMissingBuildHelper) {
		return e.bootstrapHelper(ctx)
	}
	if err != nil {
		e.report(ctx, err)
		return err
	}

	switch outcome.Decision {
	case selector.DecisionOpen:
		return e.open(ctx, c)
	case selector.DecisionOpenSandboxed:
		return e.openSandboxed(ctx, c)
	case selector.DecisionNothing:
		e.Info(ctx, "Nothing to install", fmt.Sprintf("There are no pending packages for %s.", c.Label))
		return nil
	}
	if !outcome.Decision.Installs() {
		return fmt.Errorf("capability %s: unhandled decision %q", c.ID, outcome.Decision)
	}

	if hasLib32(outcome.Missing) && !e.resolver.MultilibEnabled(ctx) {
		if err := e.ensureMultilib(ctx); err != nil {
			return err
		}
	}

	return e.install(ctx, c, outcome)
}

func hasLib32(pkgs []string) bool {
	for _, p := range pkgs {
		if strings.HasPrefix(p, "lib32-") {
			return true
		}
	}
	return false
}

func (e *Engine) nvidiaPackages(ctx context.Context) ([]string, bool) {
	release := e.session.KernelRelease
	pkgs := postinstall.NvidiaPackages(release, e.session.PreferNvidiaOpen, func(name string) bool {
		return e.resolver.InRepo(ctx, name)
	})
	e.log.Info().Str("kernel", release).Strs("packages", pkgs).Msg("nvidia package selection")

	if postinstall.NeedsHeaders(pkgs) && !e.post.EnsureHeaders(ctx, e.resolver, release) {
		return nil, false
	}
	return pkgs, true
}

func (e *Engine) open(ctx context.Context, c core.Capability) error {
	if !e.Confirm(ctx, "Open", fmt.Sprintf("Open %s now?", c.Label)) {
		return nil
	}
	if err := e.runner.Open(ctx, c.Exec, c.CLI); err != nil {
		e.Error(ctx, "Failed to open", fmt.Sprintf("Could not start %q.\n\n%v", c.Exec, err))
		return err
	}
	return nil
}

func (e *Engine) openSandboxed(ctx context.Context, c core.Capability) error {
	if !e.Confirm(ctx, "Open", fmt.Sprintf("Open %s now?", c.Label)) {
		return nil
	}
	if err := e.sandbox.Run(c.Flatpak); err != nil {
		e.Error(ctx, "Failed to open", fmt.Sprintf("Could not start %q.\n\n%v", c.Flatpak, err))
		return fmt.Errorf("%w: %w", core.ErrLaunchFailure, err)
	}
	return nil
}

func (e *Engine) install(ctx context.Context, c core.Capability, outcome selector.Outcome) error {
	var (
		body      string
		needsRoot bool
		question  string
		err       error
	)

	switch outcome.Decision {
	case selector.DecisionSandboxed:
		body = e.sandbox.InstallScript(outcome.Plan.Flatpak)
		if !e.sandbox.RemotePresent(ctx) {
			body = "set -euo pipefail\n" + e.sandbox.RemoteAddCommand() + "\n" + body
		}
		question = fmt.Sprintf("Install %s via Flatpak?", c.Label)

	default:
		builder := e.builder(outcome.Helper)
		body, err = builder.Install(outcome.Plan.Official, outcome.Plan.ThirdParty)
		if err != nil {
			e.report(ctx, err)
			return err
		}
		body += e.extrasBlock(ctx, c, builder)
		needsRoot = true
		question = fmt.Sprintf("Install %s?", strings.Join(outcome.Missing, " "))
	}

	if !e.Confirm(ctx, "Confirm", question) {
		return nil
	}

	res, err := e.execute(ctx, plannedRun{
		capability: c.ID,
		source:     outcome.Plan.Source(),
		packages:   outcome.Missing,
		body:       body,
		needsRoot:  needsRoot,
	})
	if err != nil {
		e.report(ctx, err)
		return err
	}
	if !e.finished(ctx, res) {
		return res.Err
	}

	if c.Post != "" {
		_ = e.post.Run(ctx, c.Post)
	}
	return nil
}

func (e *Engine) builder(helper syspkg.Manager) script.Builder {
	return script.Builder{Manager: e.session.Manager, Helper: helper}
}

// extrasBlock renders the optional end-of-script prompt for c's extras.
// Extras that are installed already, or cannot be built, are skipped.
func (e *Engine) extrasBlock(ctx context.Context, c core.Capability, builder script.Builder) string {
	if c.Extras == nil {
		return ""
	}
	missing := e.resolver.MissingPackages(ctx, c.Extras.Packages)
	if len(missing) == 0 {
		return ""
	}

	official, thirdParty := e.resolver.SplitOfficialThirdParty(ctx, missing)
	install, err := builder.Install(official, thirdParty)
	if err != nil {
		e.log.Debug().Err(err).Str("capability", c.ID).Msg("skipping extras")
		return ""
	}
	return "\n" + script.ExtrasBlock("Confirm", c.Extras.Prompt, missing, install)
}

// finished reports the outcome of a run to the user and returns true on success
func (e *Engine) finished(ctx context.Context, res runner.Result) bool {
	switch {
	case res.OK():
		text := "Process finished."
		if res.LogPath != "" {
			text += "\nLog saved to: " + res.LogPath
		}
		e.Info(ctx, "Installation", text)
		return true
	case errors.Is(res.Err, core.ErrWatchTimeout):
		e.log.Warn().Err(res.Err).Msg("giving up on sentinel")
		return false
	}

	text := fmt.Sprintf("The script ended with status %d.", res.ExitCode)
	if res.Err != nil && res.ExitCode < 0 {
		text = res.Err.Error()
	}
	if res.LogPath != "" {
		text += "\nLog saved to: " + res.LogPath
	}
	e.Error(ctx, "Execution failed", text)
	return false
}

// report turns an error kind into a single user notification
func (e *Engine) report(ctx context.Context, err error) {
	title := "Error"
	switch {
	case errors.Is(err, core.ErrWatchTimeout):
		e.log.Warn().Err(err).Msg("sentinel watch timed out")
		return
	case errors.Is(err, core.ErrUnknownCapability):
		title = "Unknown capability"
	case errors.Is(err, core.ErrHardwareIncompatible):
		title = "Incompatible hardware"
	case errors.Is(err, core.ErrMissingPrivilegeHelper):
		title = "Privilege helper missing"
	case errors.Is(err, core.ErrMissingBuildHelper):
		title = "Build helper missing"
	case errors.Is(err, core.ErrScriptConstruction):
		title = "Installation"
	case errors.Is(err, core.ErrLaunchFailure):
		title = "Execution failed"
	case errors.Is(err, core.ErrConfigWrite):
		title = "Polkit policy"
	}
	e.log.Error().Err(err).Msg(title)
	e.Error(ctx, title, err.Error())
}
