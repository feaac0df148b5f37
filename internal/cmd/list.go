package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/quantmind-br/gnushark/internal/catalog"
	"github.com/quantmind-br/gnushark/internal/config"
	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/syspkg/arch"
	"github.com/quantmind-br/gnushark/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// listEntry is the JSON shape of one catalog row
type listEntry struct {
	core.Capability
	Installed *bool `json:"installed,omitempty"`
}

// NewListCmd creates the list command
func NewListCmd(cfg *config.Config, log *zerolog.Logger, env Env) *cobra.Command {
	var (
		jsonOutput bool
		section    string
		showStatus bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog capabilities",
		Long:  `List the capabilities gnushark can install, grouped by section.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cat, err := catalog.Load(env.Fs, cfg.Paths.CatalogFile)
			if err != nil {
				ui.FprintError(cmd.ErrOrStderr(), "%v", err)
				return err
			}

			sections := cat.Sections()
			if section != "" {
				sections = filterSections(sections, section)
				if len(sections) == 0 {
					return fmt.Errorf("unknown section %q", section)
				}
			}

			var installed func(core.Capability) bool
			if showStatus {
				pacman := arch.NewPacman(env.Commands, cfg.Cache.RepoLookupSize, log)
				installed = func(c core.Capability) bool {
					if len(c.Packages) == 0 {
						return false
					}
					if len(pacman.MissingPackages(ctx, c.Packages)) == 0 {
						return true
					}
					return len(c.AltPackages) > 0 && pacman.AnyInstalled(ctx, c.AltPackages)
				}
			}

			if jsonOutput {
				var entries []listEntry
				for _, s := range sections {
					for _, c := range cat.InSection(s.ID) {
						entry := listEntry{Capability: c}
						if installed != nil {
							ok := installed(c)
							entry.Installed = &ok
						}
						entries = append(entries, entry)
					}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			for _, s := range sections {
				ui.FprintHeader(cmd.OutOrStdout(), s.Title)
				if s.Description != "" {
					ui.Muted.Fprintln(cmd.OutOrStdout(), s.Description)
				}
				printCapabilityTable(cmd, cat.InSection(s.ID), installed)
			}

			log.Debug().Int("sections", len(sections)).Bool("status", showStatus).Msg("listed catalog")
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.Flags().StringVar(&section, "section", "", "show only one section (drivers, opt, tools, extras)")
	cmd.Flags().BoolVarP(&showStatus, "status", "s", false, "query the package manager for install status")

	return cmd
}

func filterSections(sections []catalog.Section, id string) []catalog.Section {
	var out []catalog.Section
	for _, s := range sections {
		if strings.EqualFold(s.ID, id) {
			out = append(out, s)
		}
	}
	return out
}

func printCapabilityTable(cmd *cobra.Command, caps []core.Capability, installed func(core.Capability) bool) {
	header := []string{"ID", "Name", "Packages", "Notes"}
	if installed != nil {
		header = append(header, "Installed")
	}

	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithHeader(header),
		tablewriter.WithAlignment(tw.MakeAlign(len(header), tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
	)

	for _, c := range caps {
		row := []any{c.ID, c.Label, packagesColumn(c), notesColumn(c)}
		if installed != nil {
			row = append(row, ui.Mark(installed(c)))
		}
		table.Append(row...)
	}

	table.Render()
}

func packagesColumn(c core.Capability) string {
	switch {
	case c.Dynamic == core.DynamicNvidia:
		return "(matched to kernel)"
	case len(c.Packages) == 0:
		return c.Flatpak
	}
	pkgs := strings.Join(c.Packages, " ")
	if len(pkgs) > 48 {
		pkgs = pkgs[:45] + "..."
	}
	return pkgs
}

func notesColumn(c core.Capability) string {
	var notes []string
	if c.RequiresGPU != core.VendorUnknown {
		notes = append(notes, string(c.RequiresGPU)+" gpu")
	}
	if c.RequiresMultilib {
		notes = append(notes, "multilib")
	}
	if c.Flatpak != "" && len(c.Packages) > 0 {
		notes = append(notes, "flatpak")
	}
	if c.Post != "" {
		notes = append(notes, "post: "+c.Post)
	}
	if len(notes) == 0 {
		return "-"
	}
	return strings.Join(notes, ", ")
}

// catalogCompletions returns capability ids starting with prefix
func catalogCompletions(cfg *config.Config, env Env, prefix string) []string {
	cat, err := catalog.Load(env.Fs, cfg.Paths.CatalogFile)
	if err != nil {
		return nil
	}
	var ids []string
	for _, c := range cat.All() {
		if strings.HasPrefix(c.ID, prefix) {
			ids = append(ids, c.ID+"\t"+c.Label)
		}
	}
	return ids
}
