package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/quantmind-br/gnushark/internal/config"
	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/engine"
	"github.com/quantmind-br/gnushark/internal/hardware"
	"github.com/quantmind-br/gnushark/internal/privilege"
	"github.com/quantmind-br/gnushark/internal/runner"
	"github.com/quantmind-br/gnushark/internal/syspkg"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// hardwareReport is the JSON shape of the hardware command
type hardwareReport struct {
	Distro        string               `json:"distro"`
	DistroID      string               `json:"distro_id"`
	Manager       string               `json:"manager"`
	BuildHelper   string               `json:"build_helper"`
	Hardware      core.HardwareProfile `json:"hardware"`
	KernelRelease string               `json:"kernel_release"`
	RAMMiB        int                  `json:"ram_mib"`
	Cores         int                  `json:"cores"`
	Wayland       bool                 `json:"wayland"`
	Terminal      string               `json:"terminal"`
	RootMode      core.PrivilegeMode   `json:"root_mode,omitempty"`
}

// NewHardwareCmd creates the hardware command
func NewHardwareCmd(cfg *config.Config, log *zerolog.Logger, env Env) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "hardware",
		Short: "Show the detected system profile",
		Long:  `Show the distribution, package manager, CPU and GPU vendors and host resources gnushark uses to plan installs.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			profiler := hardware.NewProfilerWithFs(env.Fs, env.Commands, log)
			session := engine.NewSession(ctx, env.Fs, env.Commands, profiler, cfg.Drivers.PreferNvidiaOpen, env.Getenv)
			report := buildHardwareReport(cfg, env, session)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			table := tablewriter.NewTable(cmd.OutOrStdout(),
				tablewriter.WithHeader([]string{"Property", "Value"}),
				tablewriter.WithAlignment(tw.MakeAlign(2, tw.AlignLeft)),
				tablewriter.WithSymbols(tw.NewSymbols(tw.StyleLight)),
			)
			table.Append("Distribution", fmt.Sprintf("%s (%s)", report.Distro, report.DistroID))
			table.Append("Package manager", orDash(report.Manager))
			table.Append("Build helper", orDash(report.BuildHelper))
			table.Append("CPU", orDash(string(report.Hardware.CPU)))
			table.Append("GPUs", vendorList(report.Hardware.GPUs))
			table.Append("GPU modules", vendorList(report.Hardware.Modules))
			table.Append("Kernel", orDash(report.KernelRelease))
			table.Append("Memory", fmt.Sprintf("%d MiB", report.RAMMiB))
			table.Append("Cores", fmt.Sprintf("%d", report.Cores))
			table.Append("Wayland", fmt.Sprintf("%t", report.Wayland))
			table.Append("Terminal", orDash(report.Terminal))
			table.Append("Root via", orDash(string(report.RootMode)))
			table.Render()

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}

func buildHardwareReport(cfg *config.Config, env Env, s engine.Session) hardwareReport {
	report := hardwareReport{
		Distro:        s.Distro.Pretty,
		DistroID:      s.Distro.ID,
		Manager:       string(s.Manager),
		BuildHelper:   string(syspkg.BuildHelper(env.Commands, s.Manager)),
		Hardware:      s.Hardware,
		KernelRelease: s.KernelRelease,
		RAMMiB:        s.Resources.RAMMiB,
		Cores:         s.Resources.Cores,
		Wayland:       s.Wayland,
	}
	if t, ok := runner.SelectTerminal(cfg.Runner.Terminal, s.Wayland, env.Commands.CommandExists); ok {
		report.Terminal = t.Name
	}
	if mode, err := privilege.NewEscalatorWith(env.Commands, env.Euid, env.Getenv).Mode(true); err == nil {
		report.RootMode = mode
	}
	return report
}

func vendorList(vs []core.Vendor) string {
	if len(vs) == 0 {
		return "-"
	}
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
