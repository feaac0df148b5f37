package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/quantmind-br/gnushark/internal/catalog"
	"github.com/quantmind-br/gnushark/internal/config"
	"github.com/quantmind-br/gnushark/internal/fsops"
	"github.com/quantmind-br/gnushark/internal/postinstall"
	"github.com/quantmind-br/gnushark/internal/privilege"
	"github.com/quantmind-br/gnushark/internal/runner"
	"github.com/quantmind-br/gnushark/internal/syspkg"
	"github.com/quantmind-br/gnushark/internal/syspkg/arch"
	"github.com/quantmind-br/gnushark/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// doctorReport collects problems found by the doctor command
type doctorReport struct {
	out      io.Writer
	issues   []string
	warnings []string
}

func (r *doctorReport) ok(format string, args ...any) {
	ui.FprintSuccess(r.out, format, args...)
}

func (r *doctorReport) issue(summary, format string, args ...any) {
	ui.Error.Fprintf(r.out, "%s %s\n", ui.CrossMark, fmt.Sprintf(format, args...))
	r.issues = append(r.issues, summary)
}

func (r *doctorReport) warn(summary, format string, args ...any) {
	ui.Warning.Fprintf(r.out, "! %s\n", fmt.Sprintf(format, args...))
	r.warnings = append(r.warnings, summary)
}

// NewDoctorCmd creates the doctor command
func NewDoctorCmd(cfg *config.Config, log *zerolog.Logger, env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system dependencies and configuration",
		Long:  `Check the package manager, privilege helpers, terminal emulators, polkit policy, data directories, run history and catalog.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r := &doctorReport{out: cmd.OutOrStdout()}
			has := env.Commands.CommandExists

			// 1. Package management
			ui.FprintHeader(r.out, "Package Management")
			manager := syspkg.PickManager(env.Commands)
			if has("pacman") {
				r.ok("pacman: found (using %s)", manager)
			} else {
				r.issue("pacman not found", "pacman: NOT FOUND")
			}
			if helper := syspkg.BuildHelper(env.Commands, manager); helper != syspkg.ManagerNone {
				r.ok("build helper: %s", helper)
			} else {
				r.warn("no build helper", "build helper: none (paru or yay is offered on first third-party install)")
			}
			if has("pacman") {
				if arch.NewPacman(env.Commands, cfg.Cache.RepoLookupSize, log).MultilibEnabled(ctx) {
					r.ok("multilib: enabled")
				} else {
					r.warn("multilib disabled", "multilib: disabled (offered when a 32-bit package is needed)")
				}
			}
			if has("flatpak") {
				r.ok("flatpak: found")
			} else {
				r.warn("flatpak not found", "flatpak: not found (run 'gnushark flathub' to set it up)")
			}

			// 2. Privileges
			ui.FprintHeader(r.out, "Privileges")
			mode, err := privilege.NewEscalatorWith(env.Commands, env.Euid, env.Getenv).Mode(true)
			if err != nil {
				r.issue("no privilege helper", "root: %v", err)
			} else {
				r.ok("root: %s", mode)
			}
			if has("expect") {
				r.ok("expect: found")
			} else {
				r.warn("expect not found", "expect: not found (helper prompts are answered with yes)")
			}
			if privilege.NewPolicyInstaller(env.Fs, log).UpToDate() {
				r.ok("polkit policy: installed (%s)", privilege.PolicyID)
			} else {
				ui.FprintInfo(r.out, "polkit policy: not installed (installed on first root run)")
			}

			// 3. Terminal
			ui.FprintHeader(r.out, "Terminal")
			wayland := env.Getenv("XDG_SESSION_TYPE") == "wayland"
			if t, ok := runner.SelectTerminal(cfg.Runner.Terminal, wayland, has); ok {
				r.ok("terminal: %s", t.Name)
			} else {
				r.warn("no terminal emulator", "terminal: none found (scripts run headless with a log file)")
			}
			if cfg.Runner.Terminal != "" {
				ui.FprintKeyValue(r.out, "  override", cfg.Runner.Terminal)
			}

			// 4. Directories
			ui.FprintHeader(r.out, "Directory Structure")
			dirs := []struct {
				path string
				name string
			}{
				{cfg.Paths.DataDir, "Data directory"},
				{filepath.Dir(cfg.Paths.DBFile), "Database directory"},
				{filepath.Dir(cfg.Paths.LogFile), "Log directory"},
				{cfg.Runner.TmpDir, "Script directory"},
			}
			for _, dir := range dirs {
				if dir.path == "" || dir.path == "." {
					continue
				}
				if checkDirectory(env.Fs, dir.path) {
					r.ok("%s: %s", dir.name, dir.path)
				} else {
					r.issue("directory not accessible: "+dir.path, "%s: NOT ACCESSIBLE (%s)", dir.name, dir.path)
				}
			}

			// 5. Run history
			ui.FprintHeader(r.out, "Run History")
			if history, err := openHistory(ctx, cfg); err != nil {
				r.issue("cannot open run history", "database: NOT ACCESSIBLE (%v)", err)
			} else {
				runs, err := history.List(ctx, 0)
				if err != nil {
					r.warn("cannot list runs", "database: cannot list runs: %v", err)
				} else {
					r.ok("database: %d run(s) recorded (%s)", len(runs), history.Path())
				}
				_ = history.Close()
			}

			// 6. Catalog
			ui.FprintHeader(r.out, "Catalog")
			if cat, err := catalog.Load(env.Fs, cfg.Paths.CatalogFile); err != nil {
				r.issue("invalid catalog", "catalog: %v", err)
			} else {
				source := "embedded"
				if cat.Source != "" {
					source = cat.Source
				}
				r.ok("catalog: %d capabilities (%s)", len(cat.All()), source)
				checkPostSteps(r, cat, postinstall.New(env.Commands, nil, nil, nil, log))
			}

			// Summary
			ui.FprintHeader(r.out, "Summary")
			if len(r.issues) == 0 {
				r.ok("All critical checks passed!")
			} else {
				ui.Error.Fprintf(r.out, "Found %d issue(s):\n", len(r.issues))
				ui.FprintList(r.out, r.issues)
			}
			if len(r.warnings) > 0 {
				ui.Warning.Fprintf(r.out, "Found %d warning(s):\n", len(r.warnings))
				ui.FprintList(r.out, r.warnings)
			}

			log.Debug().Int("issues", len(r.issues)).Int("warnings", len(r.warnings)).Msg("doctor finished")
			if len(r.issues) > 0 {
				return fmt.Errorf("system check failed with %d issue(s)", len(r.issues))
			}
			return nil
		},
	}

	return cmd
}

// checkDirectory checks that a directory exists or can be created, and is writable
func checkDirectory(fs afero.Fs, path string) bool {
	return fsops.UsableDir(fs, path) == nil
}

// checkPostSteps reports catalog entries whose post action is not registered
func checkPostSteps(r *doctorReport, cat *catalog.Catalog, steps *postinstall.Coordinator) {
	var unknown []string
	for _, c := range cat.All() {
		if c.Post != "" && !steps.Has(c.Post) {
			unknown = append(unknown, fmt.Sprintf("%s (%s)", c.ID, c.Post))
		}
	}
	if len(unknown) > 0 {
		r.issue("unknown post-install step", "post-install: unknown step for %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(steps.Names(), ", "))
		return
	}
	r.ok("post-install steps: all known (%s)", strings.Join(steps.Names(), ", "))
}
