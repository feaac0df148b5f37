package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/quantmind-br/gnushark/internal/runner"
	"github.com/quantmind-br/gnushark/internal/script"
	"github.com/quantmind-br/gnushark/internal/syspkg"
)

// forgetter drops a cached PATH lookup
type forgetter interface {
	Forget(name string)
}

// gate blocks requests for a GPU vendor that is not active on this machine
func (e *Engine) gate(ctx context.Context, c core.Capability) error {
	want := c.RequiresGPU
	if want == core.VendorUnknown || e.session.Hardware.HasActive(want) {
		return nil
	}

	var text string
	switch want {
	case core.VendorNvidia:
		text = "No NVIDIA GPU detected on this system. NVIDIA driver installation was blocked."
	case core.VendorIntel:
		if e.session.Hardware.CPU == core.VendorAMD {
			text = "AMD processor detected and no Intel GPU found. Intel driver installation was blocked."
		} else {
			text = "No Intel GPU detected on this system. Intel driver installation was blocked."
		}
	case core.VendorAMD:
		text = "No AMD GPU detected on this system. AMD driver installation was blocked."
	default:
		text = fmt.Sprintf("No %s GPU detected on this system.", want)
	}

	e.log.Info().
		Str("capability", c.ID).
		Str("requires", string(want)).
		Msg("blocked by hardware gate")
	e.Error(ctx, "Incompatible hardware", text)
	return fmt.Errorf("%s requires a %s GPU: %w", c.ID, want, core.ErrHardwareIncompatible)
}

// ErrDeclined ends a request the user said no to halfway
var ErrDeclined = errors.New("declined by user")

// ensureMultilib asks to enable the 32-bit repository and waits for it
func (e *Engine) ensureMultilib(ctx context.Context) error {
	if !e.Confirm(ctx, "Multilib", "This installation needs the [multilib] repository, which is disabled.\n\nEnable it now?") {
		e.Info(ctx, "Multilib", "Enable [multilib] in /etc/pacman.conf and run:\n\nsudo pacman -Syy")
		return ErrDeclined
	}

	res, err := e.execute(ctx, plannedRun{capability: "multilib", body: script.MultilibScript(), needsRoot: true})
	if err != nil {
		e.report(ctx, err)
		return err
	}
	if !res.OK() {
		e.finished(ctx, res)
		if res.Err != nil {
			return res.Err
		}
		return fmt.Errorf("enable multilib: status %s", res.Status)
	}
	return nil
}

// bootstrapHelper offers to install a build helper for third-party packages.
// The original request is not resumed; the user retries once it finished.
func (e *Engine) bootstrapHelper(ctx context.Context) error {
	helper, fromRepo := e.helperCandidate(ctx)
	if helper == "" {
		err := fmt.Errorf("install paru or yay manually: %w", core.ErrMissingBuildHelper)
		e.report(ctx, err)
		return err
	}

	text := fmt.Sprintf("Some packages come from the AUR and need a build helper.\n\nInstall %s now?", helper)
	if !e.Confirm(ctx, "Build helper missing", text) {
		return fmt.Errorf("%w: %w", ErrDeclined, core.ErrMissingBuildHelper)
	}

	res, err := e.execute(ctx, plannedRun{
		capability: helper,
		source:     sourceFor(fromRepo),
		packages:   []string{helper},
		body:       script.HelperBootstrap(helper, fromRepo),
		needsRoot:  fromRepo,
	})
	if err != nil {
		e.report(ctx, err)
		return err
	}
	if !e.finished(ctx, res) {
		return res.Err
	}

	if f, ok := e.cmds.(forgetter); ok {
		f.Forget(helper)
	}
	e.Info(ctx, "Build helper", fmt.Sprintf("%s is installed. Repeat the request to continue.", helper))
	return nil
}

// helperCandidate picks the helper to bootstrap: paru or yay from the
// official repositories, or paru built by pamac
func (e *Engine) helperCandidate(ctx context.Context) (string, bool) {
	for _, h := range []syspkg.Manager{syspkg.ManagerParu, syspkg.ManagerYay} {
		if e.resolver.InRepo(ctx, string(h)) {
			return string(h), true
		}
	}
	if e.session.Manager == syspkg.ManagerPamac {
		return string(syspkg.ManagerParu), false
	}
	return "", false
}

func sourceFor(fromRepo bool) core.Source {
	if fromRepo {
		return core.SourceOfficial
	}
	return core.SourceThirdParty
}

// SetupFlathub makes sure the Flatpak runtime and the configured remote exist
func (e *Engine) SetupFlathub(ctx context.Context) error {
	if e.sandbox.Available() {
		if e.sandbox.RemotePresent(ctx) {
			e.Info(ctx, "Flathub", "Flatpak is installed and Flathub is active.")
			return nil
		}
		if !e.Confirm(ctx, "Flathub", "Flatpak is installed but Flathub is not configured.\n\nAdd it now?") {
			return nil
		}
		return e.runSetup(ctx, plannedRun{
			capability: FlathubID,
			source:     core.SourceSandboxed,
			body:       e.sandbox.RemoteAddScript(),
		})
	}

	if !e.Confirm(ctx, "Flathub", "Flatpak is not installed.\n\nInstall Flatpak and enable Flathub?") {
		return nil
	}
	body, err := e.builder(syspkg.ManagerNone).Install([]string{"flatpak"}, nil)
	if err != nil {
		e.report(ctx, err)
		return err
	}
	return e.runSetup(ctx, plannedRun{
		capability: FlathubID,
		source:     core.SourceOfficial,
		packages:   []string{"flatpak"},
		body:       body + "\n" + e.sandbox.RemoteAddCommand() + " || true",
		needsRoot:  true,
	})
}

func (e *Engine) runSetup(ctx context.Context, p plannedRun) error {
	res, err := e.execute(ctx, p)
	if err != nil {
		e.report(ctx, err)
		return err
	}
	if !e.finished(ctx, res) {
		return res.Err
	}
	return nil
}

// plannedRun is a script ready to launch
type plannedRun struct {
	capability string
	source     core.Source
	packages   []string
	body       string
	needsRoot  bool
}

// execute launches p, records it and blocks for its completion. Launch
// problems are returned as errors; script failures are in the Result.
func (e *Engine) execute(ctx context.Context, p plannedRun) (runner.Result, error) {
	h, err := e.runner.Run(ctx, p.body, p.needsRoot)
	if err != nil {
		return runner.Result{}, err
	}

	runID := helpers.GenerateRunID(p.capability)
	e.recordStart(ctx, runID, p, h)

	e.emit(ctx, PlanExecuting{
		Capability: p.capability,
		SentinelID: h.Sentinel,
		Mode:       h.Mode,
		Terminal:   h.Terminal,
		Headless:   h.Headless,
		LogPath:    h.LogPath,
		Minimize:   h.Minimize,
	})

	res := h.Wait(ctx)

	e.recordFinish(ctx, runID, res)
	e.emit(ctx, PlanFinished{
		Capability: p.capability,
		SentinelID: res.Sentinel,
		Status:     res.Status,
		ExitCode:   res.ExitCode,
		LogPath:    res.LogPath,
		Restore:    res.Restore,
		Err:        res.Err,
	})

	e.log.Info().
		Str("capability", p.capability).
		Str("status", string(res.Status)).
		Int("exit_code", res.ExitCode).
		Msg("script completed")
	return res, nil
}

func (e *Engine) recordStart(ctx context.Context, runID string, p plannedRun, h *runner.Handle) {
	if e.history == nil {
		return
	}
	rec := &core.RunRecord{
		ID:         runID,
		Capability: p.capability,
		Source:     p.source,
		Packages:   p.packages,
		Mode:       string(h.Mode),
		Status:     core.RunExecuting,
		LogPath:    h.LogPath,
		StartedAt:  e.now(),
	}
	if err := e.history.Create(ctx, rec); err != nil {
		e.log.Warn().Err(err).Str("run_id", runID).Msg("could not record run")
	}
}

func (e *Engine) recordFinish(ctx context.Context, runID string, res runner.Result) {
	if e.history == nil {
		return
	}
	status := res.Status
	if status == "" {
		status = core.RunFailed
	}
	// the request context may be gone by now
	if err := e.history.Finish(context.WithoutCancel(ctx), runID, status, res.LogPath, e.now()); err != nil {
		e.log.Warn().Err(err).Str("run_id", runID).Msg("could not finish run record")
	}
}

// RunAndWait runs a follow-up script through the same event and history
// pipeline as installs
func (e *Engine) RunAndWait(ctx context.Context, body string, needsRoot bool) (runner.Result, error) {
	return e.execute(ctx, plannedRun{capability: "post-install", body: body, needsRoot: needsRoot})
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	select {
	case e.events <- ev:
	case <-ctx.Done():
		e.log.Debug().Str("event", fmt.Sprintf("%T", ev)).Msg("dropping event, request cancelled")
	}
}

// Confirm asks the front-end and blocks for the answer. A cancelled
// context counts as no.
func (e *Engine) Confirm(ctx context.Context, title, text string) bool {
	reply := make(chan bool, 1)
	select {
	case e.events <- ConfirmationNeeded{Title: title, Text: text, Reply: reply}:
	case <-ctx.Done():
		return false
	}

	select {
	case ok := <-reply:
		e.log.Debug().Str("title", title).Bool("answer", ok).Msg("confirmation")
		return ok
	case <-ctx.Done():
		return false
	}
}

// Info shows an informational message
func (e *Engine) Info(ctx context.Context, title, text string) {
	e.emit(ctx, Notify{Kind: NotifyInfo, Title: title, Text: strings.TrimSpace(text)})
}

// Error shows an error message
func (e *Engine) Error(ctx context.Context, title, text string) {
	e.emit(ctx, Notify{Kind: NotifyError, Title: title, Text: strings.TrimSpace(text)})
}

var (
	_ core.Notifier = (*Engine)(nil)
)
