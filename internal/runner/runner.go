package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-cmd/cmd"
	"github.com/quantmind-br/gnushark/internal/cleanup"
	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/quantmind-br/gnushark/internal/privilege"
	"github.com/quantmind-br/gnushark/internal/script"
	"github.com/quantmind-br/gnushark/internal/security"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Defaults applied to zero Options fields
const (
	DefaultPollInterval   = time.Second
	DefaultWatchTimeout   = 4 * time.Hour
	DefaultSentinelPrefix = "gnusk_done"
)

// Options control terminal choice and sentinel watching
type Options struct {
	// Terminal names a preferred emulator from the built-in table
	Terminal       string
	Wayland        bool
	PollInterval   time.Duration
	WatchTimeout   time.Duration
	SentinelPrefix string
	TmpDir         string
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.WatchTimeout <= 0 {
		o.WatchTimeout = DefaultWatchTimeout
	}
	if o.SentinelPrefix == "" {
		o.SentinelPrefix = DefaultSentinelPrefix
	}
	if o.TmpDir == "" {
		o.TmpDir = os.TempDir()
	}
	return o
}

// Result is the single completion report of a launched script
type Result struct {
	Sentinel string
	Status   core.RunStatus
	ExitCode int
	// LogPath is set for headless runs
	LogPath string
	Err     error
	// Restore asks the front-end to bring its window back after a sudo run
	Restore bool
}

// OK reports whether the script ran to completion successfully
func (r Result) OK() bool {
	return r.Err == nil && r.Status == core.RunFinished
}

// Handle tracks one launched script
type Handle struct {
	Sentinel string
	Mode     core.PrivilegeMode
	Terminal string
	Headless bool
	LogPath  string
	// Minimize is set when the script prompts for a sudo password in the terminal
	Minimize bool

	done chan Result
}

// Done delivers exactly one Result
func (h *Handle) Done() <-chan Result {
	return h.done
}

// Wait blocks for the Result or until ctx is done
func (h *Handle) Wait(ctx context.Context) Result {
	select {
	case res := <-h.done:
		return res
	case <-ctx.Done():
		return Result{Sentinel: h.Sentinel, Status: core.RunFailed, ExitCode: -1, Err: ctx.Err()}
	}
}

// ScriptExecutor runs a script to completion writing combined output to out
type ScriptExecutor func(ctx context.Context, script string, out io.Writer) (exitCode int, err error)

// Runner launches assembled scripts in a terminal emulator or headlessly
type Runner struct {
	cmds    helpers.CommandRunner
	fs      afero.Fs
	esc     *privilege.Escalator
	policy  *privilege.PolicyInstaller
	opts    Options
	log     *zerolog.Logger
	watcher *Watcher
	exec    ScriptExecutor
	now     func() time.Time
}

// New creates a runner. When policy is set the runner becomes its launcher.
func New(cmds helpers.CommandRunner, fs afero.Fs, esc *privilege.Escalator, policy *privilege.PolicyInstaller, opts Options, log *zerolog.Logger) *Runner {
	opts = opts.withDefaults()
	r := &Runner{
		cmds:    cmds,
		fs:      fs,
		esc:     esc,
		policy:  policy,
		opts:    opts,
		log:     log,
		watcher: NewWatcher(fs, opts.PollInterval, opts.WatchTimeout, log),
		exec:    GoCmdExecutor,
		now:     time.Now,
	}
	if policy != nil {
		policy.SetLauncher(r)
	}
	return r
}

// SetExecutor replaces the headless executor
func (r *Runner) SetExecutor(e ScriptExecutor) {
	r.exec = e
}

// Options returns the effective options
func (r *Runner) Options() Options {
	return r.opts
}

// Run launches body with the privilege mode it needs. In agent mode the
// polkit policy is put in place first.
func (r *Runner) Run(ctx context.Context, body string, needsRoot bool) (*Handle, error) {
	mode, err := r.esc.Mode(needsRoot)
	if err != nil {
		return nil, err
	}

	if mode == core.ModeAgent && r.policy != nil {
		if _, err := r.policy.Ensure(ctx); err != nil {
			return nil, err
		}
	}

	return r.launch(ctx, body, mode)
}

// RunAndWait launches body and blocks for its Result
func (r *Runner) RunAndWait(ctx context.Context, body string, needsRoot bool) (Result, error) {
	h, err := r.Run(ctx, body, needsRoot)
	if err != nil {
		return Result{}, err
	}
	return h.Wait(ctx), nil
}

// Launch runs body as the current user and waits for it. It never installs
// the policy, so the policy installer can use it.
func (r *Runner) Launch(ctx context.Context, body string) error {
	h, err := r.launch(ctx, body, core.ModeUser)
	if err != nil {
		return err
	}
	res := h.Wait(ctx)
	return res.Err
}

// Open starts an installed program. CLI programs open inside a terminal.
func (r *Runner) Open(ctx context.Context, exe string, cli bool) error {
	if cli {
		_, err := r.launch(ctx, helpers.ShellQuote(exe), core.ModeUser)
		return err
	}
	if err := r.cmds.Spawn(exe); err != nil {
		return fmt.Errorf("open %s: %w: %w", exe, core.ErrLaunchFailure, err)
	}
	return nil
}

func (r *Runner) launch(ctx context.Context, body string, mode core.PrivilegeMode) (*Handle, error) {
	if err := security.ValidateScriptDir(r.opts.TmpDir); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrScriptConstruction, err)
	}
	sentinel := NewSentinelPath(r.opts.TmpDir, r.opts.SentinelPrefix, r.now())
	ec := core.ExecutionContext{
		Mode:     mode,
		Sentinel: sentinel,
		Script:   script.Assemble(body, r.esc.Primitives(mode), sentinel),
	}
	h := &Handle{Sentinel: sentinel, Mode: mode, done: make(chan Result, 1)}

	term, ok := SelectTerminal(r.opts.Terminal, r.opts.Wayland, r.cmds.CommandExists)
	if !ok {
		return r.runHeadless(ctx, ec, h)
	}
	return r.runInTerminal(ctx, ec, term, h)
}

func (r *Runner) runInTerminal(ctx context.Context, ec core.ExecutionContext, term Terminal, h *Handle) (*Handle, error) {
	h.Terminal = term.Name
	h.Minimize = ec.Mode == core.ModeSudo

	stack := cleanup.NewStack(r.log)
	stack.Push("sentinel", r.removeSentinel(ec.Sentinel))

	r.log.Info().
		Str("terminal", term.Name).
		Str("mode", string(ec.Mode)).
		Str("sentinel", ec.Sentinel).
		Msg("launching script in terminal")

	if err := r.cmds.Spawn(term.Name, term.Argv(ec.Script)...); err != nil {
		_ = stack.Run()
		return nil, fmt.Errorf("start %s: %w: %w", term.Name, core.ErrLaunchFailure, err)
	}
	stack.Release()

	go func() {
		res := r.watcher.Wait(ctx, ec.Sentinel)
		res.Restore = h.Minimize
		h.done <- res
	}()

	return h, nil
}

func (r *Runner) runHeadless(ctx context.Context, ec core.ExecutionContext, h *Handle) (*Handle, error) {
	logFile, err := afero.TempFile(r.fs, r.opts.TmpDir, "gnusk_headless_*.log")
	if err != nil {
		return nil, fmt.Errorf("create headless log: %w: %w", core.ErrLaunchFailure, err)
	}

	h.Headless = true
	h.LogPath = logFile.Name()

	r.log.Info().
		Str("mode", string(ec.Mode)).
		Str("log", h.LogPath).
		Msg("no terminal emulator found, running headless")

	go func() {
		code, execErr := r.exec(ctx, ec.Script, logFile)
		if err := logFile.Close(); err != nil {
			r.log.Debug().Err(err).Str("log", h.LogPath).Msg("close headless log")
		}

		res, ok := r.watcher.consume(ec.Sentinel)
		if !ok {
			_ = r.removeSentinel(ec.Sentinel)()
			if execErr != nil {
				res = Result{
					Sentinel: ec.Sentinel,
					Status:   core.RunFailed,
					ExitCode: -1,
					Err:      fmt.Errorf("run headless: %w: %w", core.ErrLaunchFailure, execErr),
				}
			} else {
				res = resultFor(ec.Sentinel, code)
			}
		}
		res.LogPath = h.LogPath
		h.done <- res
	}()

	return h, nil
}

func (r *Runner) removeSentinel(sentinel string) cleanup.Func {
	return func() error {
		_ = r.fs.Remove(sentinel + ".tmp")
		if err := r.fs.Remove(sentinel); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
}

// GoCmdExecutor runs script with bash -lc, streaming stdout and stderr lines to out
func GoCmdExecutor(ctx context.Context, script string, out io.Writer) (int, error) {
	c := cmd.NewCmdOptions(cmd.Options{
		Buffered:  false,
		Streaming: true,
	}, "bash", "-lc", script)

	statusChan := c.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		stdout, stderr := c.Stdout, c.Stderr
		cancelled := ctx.Done()
		for stdout != nil || stderr != nil {
			select {
			case line, ok := <-stdout:
				if !ok {
					stdout = nil
					continue
				}
				fmt.Fprintln(out, line)
			case line, ok := <-stderr:
				if !ok {
					stderr = nil
					continue
				}
				fmt.Fprintln(out, line)
			case <-cancelled:
				// go-cmd blocks its writer on a full stream channel, so keep
				// draining after Stop until both streams close
				cancelled = nil
				if err := c.Stop(); err != nil {
					fmt.Fprintf(out, "stop: %v\n", err)
				}
			}
		}
	}()

	status := <-statusChan
	<-done

	return status.Exit, status.Error
}
