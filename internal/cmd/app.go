package cmd

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/quantmind-br/gnushark/internal/catalog"
	"github.com/quantmind-br/gnushark/internal/config"
	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/db"
	"github.com/quantmind-br/gnushark/internal/engine"
	"github.com/quantmind-br/gnushark/internal/fsops"
	"github.com/quantmind-br/gnushark/internal/hardware"
	"github.com/quantmind-br/gnushark/internal/privilege"
	"github.com/quantmind-br/gnushark/internal/runner"
	"github.com/quantmind-br/gnushark/internal/sandbox"
	"github.com/quantmind-br/gnushark/internal/syspkg/arch"
	"github.com/quantmind-br/gnushark/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app is the wired engine and everything it was built from
type app struct {
	cfg *config.Config
	log *zerolog.Logger
	env Env

	catalog   *catalog.Catalog
	profiler  *hardware.Profiler
	session   engine.Session
	resolver  *arch.Pacman
	flatpak   *sandbox.Flatpak
	escalator *privilege.Escalator
	policy    *privilege.PolicyInstaller
	runner    *runner.Runner
	history   *db.DB
	engine    *engine.Engine
}

// newApp inspects the machine and wires the engine. The run history is
// optional: when the database cannot be opened requests still run.
func newApp(ctx context.Context, cfg *config.Config, log *zerolog.Logger, env Env) (*app, error) {
	cat, err := catalog.Load(env.Fs, cfg.Paths.CatalogFile)
	if err != nil {
		return nil, err
	}
	if cat.Source != "" {
		log.Info().Str("catalog", cat.Source).Msg("using catalog override")
	}

	a := &app{cfg: cfg, log: log, env: env, catalog: cat}

	a.profiler = hardware.NewProfilerWithFs(env.Fs, env.Commands, log)
	a.session = engine.NewSession(ctx, env.Fs, env.Commands, a.profiler, cfg.Drivers.PreferNvidiaOpen, env.Getenv)
	a.resolver = arch.NewPacman(env.Commands, cfg.Cache.RepoLookupSize, log)
	a.flatpak = sandbox.NewFlatpak(env.Commands, cfg.Flatpak.Remote, cfg.Flatpak.RemoteURL, log)
	a.escalator = privilege.NewEscalatorWith(env.Commands, env.Euid, env.Getenv)
	a.policy = privilege.NewPolicyInstaller(env.Fs, log)
	a.runner = runner.New(env.Commands, env.Fs, a.escalator, a.policy, runner.Options{
		Terminal:       cfg.Runner.Terminal,
		Wayland:        a.session.Wayland,
		PollInterval:   cfg.Runner.PollInterval,
		WatchTimeout:   cfg.Runner.WatchTimeout,
		SentinelPrefix: cfg.Runner.SentinelPrefix,
		TmpDir:         cfg.Runner.TmpDir,
	}, log)

	deps := engine.Deps{
		Catalog:  cat,
		Resolver: a.resolver,
		Sandbox:  a.flatpak,
		Runner:   a.runner,
		Host:     a.profiler,
		Commands: env.Commands,
		Log:      log,
	}
	if history, err := openHistory(ctx, cfg); err != nil {
		log.Warn().Err(err).Str("db", cfg.Paths.DBFile).Msg("run history disabled")
	} else {
		a.history = history
		deps.History = history
	}

	a.engine = engine.New(a.session, deps)

	log.Debug().
		Str("distro", a.session.Distro.ID).
		Str("manager", string(a.session.Manager)).
		Str("kernel", a.session.KernelRelease).
		Msg("session ready")
	return a, nil
}

// openHistory opens the run database, creating its directory.
// SQLite works on real paths, so this does not go through Env.Fs.
func openHistory(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.Paths.DBFile == "" {
		return nil, errors.New("no database path configured")
	}
	if err := fsops.EnsureDir(afero.NewOsFs(), filepath.Dir(cfg.Paths.DBFile), 0o755); err != nil {
		return nil, err
	}
	return db.New(ctx, cfg.Paths.DBFile)
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Debug().Err(err).Msg("closing run history")
		}
	}
}

// request runs one capability request and renders it on the console
func (a *app) request(ctx context.Context, console *ui.Console, id string) error {
	a.log.Info().Str("capability", id).Msg("request submitted")
	a.engine.Submit(ctx, id)
	err := console.Run(ctx, a.engine.Events())
	if err != nil {
		a.log.Info().Err(err).Str("capability", id).Msg("request ended with error")
	}
	return err
}

func (a *app) console(cmd *cobra.Command, assumeYes bool) *ui.Console {
	return ui.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr(), assumeYes, a.env.Interactive, a.log)
}

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return core.ExitSuccess
	case errors.Is(err, engine.ErrDeclined):
		return core.ExitSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, ui.ErrCancelled):
		return core.ExitInterrupted
	case errors.Is(err, core.ErrUnknownCapability):
		return core.ExitInvalidArgs
	case errors.Is(err, core.ErrHardwareIncompatible):
		return core.ExitHardware
	case errors.Is(err, core.ErrMissingPrivilegeHelper):
		return core.ExitPermission
	case errors.Is(err, core.ErrMissingBuildHelper),
		errors.Is(err, core.ErrScriptConstruction),
		errors.Is(err, core.ErrLaunchFailure),
		errors.Is(err, core.ErrScriptFailed),
		errors.Is(err, core.ErrWatchTimeout),
		errors.Is(err, core.ErrConfigWrite):
		return core.ExitInstallFailed
	}
	return core.ExitGeneral
}
