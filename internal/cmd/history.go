package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/quantmind-br/gnushark/internal/config"
	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/db"
	"github.com/quantmind-br/gnushark/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show executed install runs",
		Long: `Show the install and setup scripts gnushark has executed, newest first.
With a run id, show the details of that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			history, err := openHistory(ctx, cfg)
			if err != nil {
				ui.FprintError(cmd.ErrOrStderr(), "failed to open run history: %v", err)
				return err
			}
			defer history.Close()

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				run, err := history.Get(ctx, args[0])
				if errors.Is(err, db.ErrNotFound) {
					return fmt.Errorf("no run with id %q", args[0])
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, run)
				}
				printRun(cmd, run)
				return nil
			}

			runs, err := history.List(ctx, limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			log.Debug().Int("runs", len(runs)).Msg("listed run history")

			if jsonOutput {
				if runs == nil {
					runs = []core.RunRecord{}
				}
				return writeJSON(cmd, runs)
			}

			if len(runs) == 0 {
				ui.FprintInfo(out, "No runs recorded yet")
				return nil
			}

			table := tablewriter.NewTable(out,
				tablewriter.WithHeader([]string{"Run", "Capability", "Source", "Mode", "Status", "Started"}),
				tablewriter.WithAlignment(tw.MakeAlign(6, tw.AlignLeft)),
				tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
			)
			for _, r := range runs {
				table.Append(
					r.ID,
					r.Capability,
					ui.ColorizeSource(r.Source),
					r.Mode,
					ui.ColorizeStatus(r.Status),
					r.StartedAt.Local().Format(time.DateTime),
				)
			}
			table.Render()

			fmt.Fprintf(out, "\n%d run(s)\n", len(runs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")

	return cmd
}

func printRun(cmd *cobra.Command, r *core.RunRecord) {
	out := cmd.OutOrStdout()
	ui.FprintHeader(out, r.Capability)
	ui.FprintKeyValue(out, "Run", r.ID)
	ui.FprintKeyValue(out, "Source", ui.ColorizeSource(r.Source))
	ui.FprintKeyValue(out, "Mode", r.Mode)
	ui.FprintKeyValue(out, "Status", ui.ColorizeStatus(r.Status))
	ui.FprintKeyValue(out, "Started", r.StartedAt.Local().Format(time.DateTime))
	if r.FinishedAt != nil {
		ui.FprintKeyValue(out, "Finished", r.FinishedAt.Local().Format(time.DateTime))
	}
	if r.LogPath != "" {
		ui.FprintKeyValue(out, "Log", r.LogPath)
	}
	if len(r.Packages) > 0 {
		ui.FprintKeyValue(out, "Packages", strings.Join(r.Packages, " "))
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
