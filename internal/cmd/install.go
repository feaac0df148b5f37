package cmd

import (
	"errors"
	"fmt"

	"github.com/quantmind-br/gnushark/internal/config"
	"github.com/quantmind-br/gnushark/internal/engine"
	"github.com/quantmind-br/gnushark/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command
func NewInstallCmd(cfg *config.Config, log *zerolog.Logger, env Env) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "install [capability...]",
		Short: "Install or open capabilities",
		Long: `Install the packages behind one or more catalog entries, or open them when
they are installed already. Without arguments a searchable list is shown.

Install scripts run in a terminal emulator, or headless with a log file when
no emulator is found. Run "gnushark list" to see the catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, log, env)
			if err != nil {
				ui.FprintError(cmd.ErrOrStderr(), "%v", err)
				return err
			}
			defer a.Close()

			ids := args
			if len(ids) == 0 {
				if !env.Interactive {
					return fmt.Errorf("no capability given")
				}
				_, choice, err := ui.SelectPromptDetailed("Install", ui.CapabilityOptions(a.catalog.All()))
				if err != nil {
					return err
				}
				ids = []string{choice.Value}
			}

			console := a.console(cmd, assumeYes)
			var errs []error
			for _, id := range ids {
				err := a.request(ctx, console, id)
				switch {
				case err == nil, errors.Is(err, engine.ErrDeclined):
				case ctx.Err() != nil:
					return err
				default:
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
				}
			}
			return errors.Join(errs...)
		},
		ValidArgsFunction: func(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return catalogCompletions(cfg, env, toComplete), cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every question")

	return cmd
}

// NewFlathubCmd creates the flathub command
func NewFlathubCmd(cfg *config.Config, log *zerolog.Logger, env Env) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "flathub",
		Short: "Set up Flatpak and the Flathub remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, log, env)
			if err != nil {
				ui.FprintError(cmd.ErrOrStderr(), "%v", err)
				return err
			}
			defer a.Close()

			return a.request(ctx, a.console(cmd, assumeYes), engine.FlathubID)
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every question")

	return cmd
}
