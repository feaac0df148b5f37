// Package hardware detects CPU and GPU vendors for compatibility gating.
// Every lookup degrades to an empty answer instead of failing.
package hardware

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const (
	cpuInfoPath = "/proc/cpuinfo"
	drmGlob     = "/sys/class/drm/card*/device/vendor"
)

var (
	displayClassRegex = regexp.MustCompile(`(?i)\b(vga|3d|display)\b`)
	amdWordRegex      = regexp.MustCompile(`\b(amd|ati)\b`)
	drmCardRegex      = regexp.MustCompile(`^card[0-9]+$`)

	// pciVendors maps PCI vendor ids to GPU vendors
	pciVendors = map[string]core.Vendor{
		"10de": core.VendorNvidia,
		"1002": core.VendorAMD,
		"8086": core.VendorIntel,
	}
)

// Profiler detects hardware through /proc, /sys and a few userland tools
type Profiler struct {
	fs     afero.Fs
	runner helpers.CommandRunner
	log    *zerolog.Logger
}

// NewProfilerWithFs creates a profiler over an arbitrary filesystem
func NewProfilerWithFs(fs afero.Fs, runner helpers.CommandRunner, log *zerolog.Logger) *Profiler {
	return &Profiler{fs: fs, runner: runner, log: log}
}

// Profile builds the hardware profile for this machine
func (p *Profiler) Profile(ctx context.Context) core.HardwareProfile {
	profile := core.HardwareProfile{
		CPU:     p.CPUVendor(ctx),
		GPUs:    p.GPUVendors(ctx, false),
		Modules: p.ModuleVendors(ctx),
	}

	p.log.Debug().
		Str("cpu", string(profile.CPU)).
		Interface("gpus", profile.GPUs).
		Interface("modules", profile.Modules).
		Msg("hardware profile")

	return profile
}

// CPUVendor returns intel, amd or an empty vendor
func (p *Profiler) CPUVendor(ctx context.Context) core.Vendor {
	var text string
	if data, err := afero.ReadFile(p.fs, cpuInfoPath); err == nil {
		text = string(data)
	}
	if strings.TrimSpace(text) == "" && p.runner.CommandExists("lscpu") {
		out, err := p.runner.RunCommand(ctx, "lscpu")
		if err != nil {
			p.log.Debug().Err(err).Msg("lscpu failed")
		}
		text = out
	}
	return classifyCPU(text)
}

func classifyCPU(text string) core.Vendor {
	low := strings.ToLower(text)
	switch {
	case strings.Contains(low, "genuineintel"), strings.Contains(low, "intel"):
		return core.VendorIntel
	case strings.Contains(low, "authenticamd"), strings.Contains(low, "amd"):
		return core.VendorAMD
	}
	return core.VendorUnknown
}

// GPUVendors returns the GPU vendors present in hardware: PCI enumeration first,
// sysfs when lspci yields nothing. Module vendors are appended when includeModules is set.
func (p *Profiler) GPUVendors(ctx context.Context, includeModules bool) []core.Vendor {
	vendors := p.fromLspci(ctx)
	if len(vendors) == 0 {
		vendors = p.fromSysfs()
	}
	if includeModules {
		vendors = append(vendors, p.ModuleVendors(ctx)...)
	}
	return core.UniqueVendors(vendors)
}

func (p *Profiler) fromLspci(ctx context.Context) []core.Vendor {
	if !p.runner.CommandExists("lspci") {
		return nil
	}
	out, err := p.runner.RunCommand(ctx, "lspci", "-nnk")
	if err != nil {
		p.log.Debug().Err(err).Msg("lspci failed")
		return nil
	}
	return classifyDisplayDevices(out)
}

// classifyDisplayDevices looks at display-class lines and the two lines after each,
// where lspci -k prints the driver in use
func classifyDisplayDevices(output string) []core.Vendor {
	lines := strings.Split(output, "\n")
	var block strings.Builder
	for i, line := range lines {
		if !displayClassRegex.MatchString(line) {
			continue
		}
		for j := i; j < len(lines) && j <= i+2; j++ {
			block.WriteString(strings.ToLower(lines[j]))
			block.WriteByte('\n')
		}
	}
	text := block.String()

	var found []core.Vendor
	if strings.Contains(text, "nvidia") {
		found = append(found, core.VendorNvidia)
	}
	if amdWordRegex.MatchString(text) || strings.Contains(text, "amdgpu") || strings.Contains(text, "radeon") {
		found = append(found, core.VendorAMD)
	}
	if strings.Contains(text, "intel") {
		found = append(found, core.VendorIntel)
	}
	return found
}

func (p *Profiler) fromSysfs() []core.Vendor {
	matches, err := afero.Glob(p.fs, drmGlob)
	if err != nil {
		return nil
	}

	var found []core.Vendor
	for _, path := range matches {
		card := filepath.Base(filepath.Dir(filepath.Dir(path)))
		if !drmCardRegex.MatchString(card) {
			// connectors such as card0-DP-1 have no vendor of their own
			continue
		}
		data, err := afero.ReadFile(p.fs, path)
		if err != nil {
			continue
		}
		id := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(string(data))), "0x")
		if v, ok := pciVendors[id]; ok {
			found = append(found, v)
		}
	}
	return core.UniqueVendors(found)
}

// ModuleVendors returns vendors whose GPU kernel module is loaded
func (p *Profiler) ModuleVendors(ctx context.Context) []core.Vendor {
	modules := p.loadedModules(ctx)

	var found []core.Vendor
	if hasModule(modules, "nvidia") {
		found = append(found, core.VendorNvidia)
	}
	if hasModule(modules, "amdgpu") || hasModule(modules, "radeon") {
		found = append(found, core.VendorAMD)
	}
	if hasModule(modules, "i915") {
		found = append(found, core.VendorIntel)
	}
	return found
}

// ModuleLoaded reports whether a kernel module with exactly this name is loaded
func (p *Profiler) ModuleLoaded(ctx context.Context, name string) bool {
	return hasModule(p.loadedModules(ctx), name)
}

func (p *Profiler) loadedModules(ctx context.Context) map[string]bool {
	if !p.runner.CommandExists("lsmod") {
		return nil
	}
	out, err := p.runner.RunCommand(ctx, "lsmod")
	if err != nil {
		p.log.Debug().Err(err).Msg("lsmod failed")
		return nil
	}

	modules := make(map[string]bool)
	for i, line := range helpers.NonEmptyLines(out) {
		fields := strings.Fields(line)
		if i == 0 && fields[0] == "Module" {
			continue
		}
		modules[strings.ToLower(fields[0])] = true
	}
	return modules
}

func hasModule(modules map[string]bool, name string) bool {
	return modules[name]
}
