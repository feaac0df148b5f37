// Package selector decides where a requested capability comes from.
package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/quantmind-br/gnushark/internal/syspkg"
	"github.com/rs/zerolog"
)

// Decision is the action chosen for a request
type Decision string

const (
	// DecisionOpen offers to start the already installed executable
	DecisionOpen Decision = "open"
	// DecisionOpenSandboxed offers to start the installed Flatpak app
	DecisionOpenSandboxed Decision = "open-sandboxed"
	// DecisionNothing means every package (or an accepted alternative) is installed
	DecisionNothing    Decision = "nothing"
	DecisionOfficial   Decision = "official"
	DecisionSandboxed  Decision = "sandboxed"
	DecisionThirdParty Decision = "third-party"
)

// Installs reports whether the decision leads to an install script
func (d Decision) Installs() bool {
	return d == DecisionOfficial || d == DecisionSandboxed || d == DecisionThirdParty
}

// Sandbox is the Flatpak runtime as seen by the selector
type Sandbox interface {
	Available() bool
	IsInstalled(ctx context.Context, appID string) bool
}

// Outcome is the result of Decide
type Outcome struct {
	Decision Decision
	Plan     core.InstallPlan
	// Missing lists the packages that are not installed, in catalog order
	Missing []string
	Exec    string
	Flatpak string
	// Helper is the build helper the plan will use for third-party packages
	Helper syspkg.Manager
}

// Selector applies the fixed source priority: official, then sandboxed, then third-party
type Selector struct {
	resolver syspkg.StateResolver
	sandbox  Sandbox
	cmds     helpers.CommandRunner
	manager  syspkg.Manager
	log      *zerolog.Logger
}

// New creates a selector
func New(resolver syspkg.StateResolver, sandbox Sandbox, cmds helpers.CommandRunner, manager syspkg.Manager, log *zerolog.Logger) *Selector {
	return &Selector{resolver: resolver, sandbox: sandbox, cmds: cmds, manager: manager, log: log}
}

// Decide picks the action for c. c.Packages must already be concrete
// (virtual names resolved, dynamic sets expanded). When third-party
// packages need a build helper and none is available, the outcome is
// returned together with ErrMissingBuildHelper.
func (s *Selector) Decide(ctx context.Context, c core.Capability) (Outcome, error) {
	out := Outcome{Exec: c.Exec, Flatpak: c.Flatpak}

	if c.Exec != "" && s.cmds.CommandExists(c.Exec) {
		out.Decision = DecisionOpen
		return out, nil
	}

	if c.Flatpak != "" && s.sandbox.Available() && s.sandbox.IsInstalled(ctx, c.Flatpak) {
		out.Decision = DecisionOpenSandboxed
		return out, nil
	}

	missing := s.resolver.MissingPackages(ctx, c.Packages)
	if len(missing) > 0 && len(c.AltPackages) > 0 && s.resolver.AnyInstalled(ctx, c.AltPackages) {
		s.log.Debug().Str("capability", c.ID).Strs("alternatives", c.AltPackages).Msg("alternative already installed")
		missing = nil
	}
	out.Missing = missing

	if len(missing) == 0 {
		if c.Exec != "" {
			out.Decision = DecisionOpen
		} else {
			out.Decision = DecisionNothing
		}
		return out, nil
	}

	official, thirdParty := s.resolver.SplitOfficialThirdParty(ctx, missing)
	s.log.Info().
		Str("capability", c.ID).
		Strs("official", official).
		Strs("third_party", thirdParty).
		Str("flatpak", c.Flatpak).
		Msg("source selection")

	switch {
	case len(official) > 0:
		out.Decision = DecisionOfficial
		out.Plan = core.InstallPlan{Official: official, ThirdParty: thirdParty}
		if len(thirdParty) > 0 {
			return s.withHelper(out, thirdParty)
		}
		return out, nil

	case c.Flatpak != "" && s.sandbox.Available():
		out.Decision = DecisionSandboxed
		out.Plan = core.InstallPlan{Flatpak: c.Flatpak}
		return out, nil
	}

	out.Decision = DecisionThirdParty
	out.Plan = core.InstallPlan{ThirdParty: thirdParty}
	return s.withHelper(out, thirdParty)
}

func (s *Selector) withHelper(out Outcome, thirdParty []string) (Outcome, error) {
	out.Helper = syspkg.BuildHelper(s.cmds, s.manager)
	if out.Helper == syspkg.ManagerNone {
		return out, fmt.Errorf("%s: %w", strings.Join(thirdParty, ", "), core.ErrMissingBuildHelper)
	}
	return out, nil
}
