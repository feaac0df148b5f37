package arch

import (
	"context"
	"regexp"
	"strings"

	"github.com/quantmind-br/gnushark/internal/cache"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/rs/zerolog"
)

// pacman -T exits 127 when at least one dependency is unsatisfied
const exitDepsMissing = 127

// kernelFlavors are release tags that map directly to a headers package
var kernelFlavors = []string{"zen", "lts", "hardened", "cachyos"}

var (
	kernelPkgRegex  = regexp.MustCompile(`^linux([0-9]+)?(-[a-z0-9]+)*$`)
	headerPkgRegex  = regexp.MustCompile(`^linux.*-headers$`)
	nonKernelPrefix = []string{"linux-firmware", "linux-api"}
)

// virtualPackages maps a virtual name to concrete candidates; the last one is the fallback
var virtualPackages = map[string][]string{
	"vkd3d-proton": {"vkd3d-proton", "vkd3d-proton-bin"},
}

// Pacman resolves package state with pacman queries
type Pacman struct {
	runner helpers.CommandRunner
	memo   *cache.Memo[string, bool]
	log    *zerolog.Logger
}

// NewPacman creates a resolver whose repository lookups are memoized up to memoSize entries
func NewPacman(runner helpers.CommandRunner, memoSize int, log *zerolog.Logger) *Pacman {
	return &Pacman{
		runner: runner,
		memo:   cache.NewMemo[string, bool](memoSize),
		log:    log,
	}
}

func (p *Pacman) Name() string {
	return "pacman"
}

// MissingPackages returns the names pacman -T reports as unsatisfied, in input order
func (p *Pacman) MissingPackages(ctx context.Context, names []string) []string {
	names = helpers.CompactNames(names)
	if len(names) == 0 {
		return nil
	}

	stdout, _, err := p.runner.RunCommandWithOutput(ctx, "pacman", append([]string{"-T"}, names...)...)
	if err == nil {
		return nil
	}

	if p.runner.GetExitCode(err) == exitDepsMissing {
		printed := make(map[string]bool)
		for _, line := range helpers.NonEmptyLines(stdout) {
			printed[line] = true
		}
		var missing []string
		for _, n := range names {
			if printed[n] {
				missing = append(missing, n)
			}
		}
		return missing
	}

	p.log.Debug().Err(err).Msg("pacman -T failed, querying packages one by one")

	var missing []string
	for _, n := range names {
		if !p.isInstalled(ctx, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// AnyInstalled reports whether at least one name is installed
func (p *Pacman) AnyInstalled(ctx context.Context, names []string) bool {
	names = helpers.UniqueStrings(helpers.CompactNames(names))
	if len(names) == 0 {
		return false
	}
	return len(p.MissingPackages(ctx, names)) < len(names)
}

func (p *Pacman) isInstalled(ctx context.Context, name string) bool {
	_, _, err := p.runner.RunCommandWithOutput(ctx, "pacman", "-Q", name)
	return err == nil
}

// SplitOfficialThirdParty partitions names by repository membership, keeping input order.
// Every input name lands in exactly one of the two lists.
func (p *Pacman) SplitOfficialThirdParty(ctx context.Context, names []string) (official, thirdParty []string) {
	names = helpers.CompactNames(names)
	if len(names) == 0 {
		return nil, nil
	}

	inRepo, ok := p.batchInRepo(ctx, names)
	if !ok {
		inRepo = make(map[string]bool, len(names))
		for _, n := range names {
			inRepo[n] = p.InRepo(ctx, n)
		}
	}

	for _, n := range names {
		if inRepo[n] {
			official = append(official, n)
		} else {
			thirdParty = append(thirdParty, n)
		}
	}
	return official, thirdParty
}

// batchInRepo runs one pacman -Si for all names. pacman exits 1 when some
// names are unknown but still prints the ones it found.
func (p *Pacman) batchInRepo(ctx context.Context, names []string) (map[string]bool, bool) {
	stdout, _, err := p.runner.RunCommandWithOutput(ctx, "pacman", append([]string{"-Si"}, names...)...)
	if err != nil && p.runner.GetExitCode(err) != 1 {
		p.log.Debug().Err(err).Msg("batch repository query failed")
		return nil, false
	}

	found := parseSyncNames(stdout)
	result := make(map[string]bool, len(names))
	for _, n := range names {
		result[n] = found[n]
		p.memo.Put(n, found[n])
	}
	return result, true
}

func parseSyncNames(output string) map[string]bool {
	found := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "Name" {
			continue
		}
		if name := strings.TrimSpace(value); name != "" {
			found[name] = true
		}
	}
	return found
}

// InRepo reports whether name is in the official repositories. Answers are memoized.
func (p *Pacman) InRepo(ctx context.Context, name string) bool {
	return p.memo.GetOrCompute(name, func() bool {
		_, _, err := p.runner.RunCommandWithOutput(ctx, "pacman", "-Si", name)
		return err == nil
	})
}

// ResolveVirtual replaces a virtual name with the first concrete candidate found in the repos.
// When none is found the last candidate is used, never the virtual name itself.
func (p *Pacman) ResolveVirtual(ctx context.Context, name string) string {
	candidates, ok := virtualPackages[name]
	if !ok {
		return name
	}
	for _, c := range candidates {
		if p.InRepo(ctx, c) {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

// ResolveVirtuals maps ResolveVirtual over names
func (p *Pacman) ResolveVirtuals(ctx context.Context, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, p.ResolveVirtual(ctx, n))
	}
	return out
}

// MultilibEnabled reports whether pacman can list the multilib repository
func (p *Pacman) MultilibEnabled(ctx context.Context) bool {
	_, _, err := p.runner.RunCommandWithOutput(ctx, "pacman", "-Sl", "multilib")
	return err == nil
}

// HeaderCandidates lists plausible header packages for the given kernel release:
// flavor headers, headers of every installed kernel, linux-headers, then installed headers.
func (p *Pacman) HeaderCandidates(ctx context.Context, release string) []string {
	release = strings.ToLower(release)

	var cands []string
	for _, flavor := range kernelFlavors {
		if strings.Contains(release, "-"+flavor) {
			cands = append(cands, "linux-"+flavor+"-headers")
		}
	}

	installed := p.installedNames(ctx)
	for _, pkg := range installed {
		if isKernelPackage(pkg) {
			cands = append(cands, pkg+"-headers")
		}
	}

	cands = append(cands, "linux-headers")

	for _, pkg := range installed {
		if headerPkgRegex.MatchString(pkg) && !hasNonKernelPrefix(pkg) {
			cands = append(cands, pkg)
		}
	}

	return helpers.UniqueStrings(cands)
}

func isKernelPackage(pkg string) bool {
	return kernelPkgRegex.MatchString(pkg) && !strings.HasSuffix(pkg, "-headers") && !hasNonKernelPrefix(pkg)
}

// hasNonKernelPrefix matches packages such as linux-firmware and linux-api-headers
func hasNonKernelPrefix(pkg string) bool {
	for _, prefix := range nonKernelPrefix {
		if strings.HasPrefix(pkg, prefix) {
			return true
		}
	}
	return false
}

func (p *Pacman) installedNames(ctx context.Context) []string {
	out, err := p.runner.RunCommand(ctx, "pacman", "-Qq")
	if err != nil {
		p.log.Debug().Err(err).Msg("listing installed packages failed")
		return nil
	}
	return helpers.NonEmptyLines(out)
}

// MatchingHeaders returns the flavor headers for release when listed, else the
// first candidate present in the repositories, else an empty string
func (p *Pacman) MatchingHeaders(ctx context.Context, release string) string {
	release = strings.ToLower(release)
	cands := p.HeaderCandidates(ctx, release)

	for _, c := range cands {
		for _, flavor := range kernelFlavors {
			if strings.Contains(release, "-"+flavor) && strings.HasPrefix(c, "linux-"+flavor+"-headers") {
				return c
			}
		}
	}
	for _, c := range cands {
		if p.InRepo(ctx, c) {
			return c
		}
	}
	return ""
}

// HeadersInstalled reports whether the matching headers, or any candidate, is installed
func (p *Pacman) HeadersInstalled(ctx context.Context, release string) bool {
	if exact := p.MatchingHeaders(ctx, release); exact != "" && p.isInstalled(ctx, exact) {
		return true
	}
	for _, c := range p.HeaderCandidates(ctx, release) {
		if p.isInstalled(ctx, c) {
			return true
		}
	}
	return false
}
