package cmd

import (
	"github.com/quantmind-br/gnushark/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the running system
func NewRootCmd(cfg *config.Config, log *zerolog.Logger, version string) *cobra.Command {
	return NewRootCmdWithEnv(cfg, log, version, DefaultEnv())
}

// NewRootCmdWithEnv creates the root command against env
func NewRootCmdWithEnv(cfg *config.Config, log *zerolog.Logger, version string, env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gnushark",
		Short: "Gaming and driver setup for Arch-based systems",
		Long: `gnushark installs GPU drivers, gaming tools and launchers on Arch-based
distributions. It checks the hardware, picks official, third-party or
Flatpak sources, and runs the install script in a terminal window.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	cmd.AddCommand(NewInstallCmd(cfg, log, env))
	cmd.AddCommand(NewFlathubCmd(cfg, log, env))
	cmd.AddCommand(NewListCmd(cfg, log, env))
	cmd.AddCommand(NewHardwareCmd(cfg, log, env))
	cmd.AddCommand(NewZramCmd(cfg, log, env))
	cmd.AddCommand(NewHistoryCmd(cfg, log))
	cmd.AddCommand(NewDoctorCmd(cfg, log, env))
	cmd.AddCommand(NewCompletionCmd(cfg, log))
	cmd.AddCommand(NewVersionCmd(version))

	return cmd
}
