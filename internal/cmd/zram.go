package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/quantmind-br/gnushark/internal/config"
	"github.com/quantmind-br/gnushark/internal/hardware"
	"github.com/quantmind-br/gnushark/internal/ui"
	"github.com/quantmind-br/gnushark/internal/zram"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewZramCmd creates the zram command
func NewZramCmd(_ *config.Config, log *zerolog.Logger, env Env) *cobra.Command {
	var (
		ramMiB     int
		cores      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "zram",
		Short: "Show tuned zram settings for this host",
		Long: `Show the compressed swap size, algorithm and swappiness chosen for this
host, and the configuration files the zram post-install action writes.
Use --ram and --cores to see the result for another machine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ramMiB < 0 || cores < 0 {
				return fmt.Errorf("--ram and --cores must be positive")
			}

			res := hardware.NewProfilerWithFs(env.Fs, env.Commands, log).Resources(cmd.Context())
			if ramMiB > 0 {
				res.RAMMiB = ramMiB
			}
			if cores > 0 {
				res.Cores = cores
			}

			params := zram.Choose(res.RAMMiB, res.Cores)
			log.Debug().
				Int("ram_mib", res.RAMMiB).
				Int("cores", res.Cores).
				Str("size", params.Size).
				Msg("zram parameters chosen")

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(params)
			}

			ui.FprintHeader(out, "zram")
			ui.FprintKeyValue(out, "Memory", fmt.Sprintf("%d MiB", res.RAMMiB))
			ui.FprintKeyValue(out, "Cores", fmt.Sprintf("%d", res.Cores))
			ui.FprintKeyValue(out, "Size", params.Size)
			ui.FprintKeyValue(out, "Compression", params.Compression)
			ui.FprintKeyValue(out, "Swappiness", fmt.Sprintf("%d", params.Swappiness))

			ui.FprintHeader(out, zram.GeneratorConfPath)
			fmt.Fprint(out, zram.GeneratorConf(params))
			ui.FprintHeader(out, zram.SysctlConfPath)
			fmt.Fprint(out, zram.SysctlConf(params))
			return nil
		},
	}

	cmd.Flags().IntVar(&ramMiB, "ram", 0, "total memory in MiB (default: detected)")
	cmd.Flags().IntVar(&cores, "cores", 0, "logical core count (default: detected)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}
