package syspkg

import (
	"context"
)

// StateResolver answers questions about installed and available packages
type StateResolver interface {
	// Name returns the provider name (e.g., "pacman")
	Name() string

	// MissingPackages returns the subset of names that are not installed, in input order
	MissingPackages(ctx context.Context, names []string) []string

	// AnyInstalled reports whether at least one of names is installed
	AnyInstalled(ctx context.Context, names []string) bool

	// SplitOfficialThirdParty partitions names into official-repo and third-party packages
	SplitOfficialThirdParty(ctx context.Context, names []string) (official, thirdParty []string)

	// InRepo reports whether a single package exists in the official repositories
	InRepo(ctx context.Context, name string) bool

	// ResolveVirtuals maps virtual package names to concrete ones
	ResolveVirtuals(ctx context.Context, names []string) []string

	// MultilibEnabled reports whether the 32-bit repository is configured
	MultilibEnabled(ctx context.Context) bool
}

// HeaderResolver finds kernel header packages for the running kernel
type HeaderResolver interface {
	HeaderCandidates(ctx context.Context, release string) []string
	MatchingHeaders(ctx context.Context, release string) string
	HeadersInstalled(ctx context.Context, release string) bool
}
