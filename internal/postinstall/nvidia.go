package postinstall

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/quantmind-br/gnushark/internal/script"
	"github.com/quantmind-br/gnushark/internal/syspkg"
)

var nvidiaBase = []string{"nvidia-utils", "lib32-nvidia-utils", "vulkan-icd-loader", "lib32-vulkan-icd-loader"}

// NvidiaPackages picks the driver set for a kernel release. With preferOpen
// the first open-module package found in the repositories is used. Otherwise
// lts kernels get nvidia-lts, zen, cachyos and hardened kernels get
// nvidia-dkms, and the stock kernel gets nvidia.
func NvidiaPackages(release string, preferOpen bool, inRepo func(string) bool) []string {
	release = strings.ToLower(release)
	flavored := strings.Contains(release, "-lts") || strings.Contains(release, "-zen") ||
		strings.Contains(release, "-cachyos") || strings.Contains(release, "-hardened")

	if preferOpen {
		candidates := []string{"nvidia-open", "nvidia-open-dkms"}
		if flavored {
			candidates = []string{"nvidia-open-dkms", "nvidia-open"}
		}
		for _, cand := range candidates {
			if inRepo(cand) {
				return append([]string{cand}, nvidiaBase...)
			}
		}
	}

	var driver string
	switch {
	case strings.Contains(release, "-lts"):
		driver = "nvidia-lts"
	case flavored:
		driver = "nvidia-dkms"
	default:
		driver = "nvidia"
	}
	return append([]string{driver}, nvidiaBase...)
}

// NeedsHeaders reports whether pkgs contain a DKMS driver
func NeedsHeaders(pkgs []string) bool {
	for _, p := range pkgs {
		if strings.HasSuffix(p, "-dkms") {
			return true
		}
	}
	return false
}

// EnsureHeaders makes sure kernel headers for release are installed. When
// they are missing the user is asked to install the matching package; the
// install runs to completion before returning. It returns false when the
// driver install should be aborted.
func (c *Coordinator) EnsureHeaders(ctx context.Context, headers syspkg.HeaderResolver, release string) bool {
	if headers.HeadersInstalled(ctx, release) {
		return true
	}

	cand := headers.MatchingHeaders(ctx, release)
	if cand == "" {
		c.notify.Info(ctx, "Kernel headers", "Install the kernel headers and try again to use the DKMS driver.")
		return false
	}

	c.log.Info().Str("kernel", release).Str("headers", cand).Msg("kernel headers recommended")
	msg := fmt.Sprintf("Current kernel: %s\nBuilding DKMS modules (such as nvidia-dkms) needs %s.\n\nInstall it now?", release, cand)
	if !c.notify.Confirm(ctx, "Kernel headers", msg) {
		c.notify.Info(ctx, "Kernel headers", "Install the kernel headers and try again to use the DKMS driver.")
		return false
	}

	body := "set -euo pipefail\n" + script.ExpectRoot("pacman -S --needed "+helpers.ShellQuote(cand))
	if err := c.runRoot(ctx, body); err != nil {
		c.log.Warn().Err(err).Str("headers", cand).Msg("headers install failed")
		c.notify.Error(ctx, "Kernel headers", fmt.Sprintf("Installing %s failed: %v", cand, err))
		return false
	}
	return true
}

// InitramfsCommand returns the tool and command line that regenerate the initramfs
func InitramfsCommand(exists func(string) bool) (tool, command string) {
	if exists("mkinitcpio") {
		return "mkinitcpio", "mkinitcpio -P"
	}
	if exists("dracut") {
		return "dracut", `dracut -f --kver "$(uname -r)"`
	}
	return "mkinitcpio", "mkinitcpio -P"
}

// AfterNvidia offers initramfs regeneration and a reboot once the nvidia module is loaded
func (c *Coordinator) AfterNvidia(ctx context.Context) error {
	if !c.host.ModuleLoaded(ctx, "nvidia") {
		c.log.Debug().Msg("nvidia module not loaded, skipping initramfs regeneration")
		return nil
	}

	tool, command := InitramfsCommand(c.cmds.CommandExists)
	if !c.notify.Confirm(ctx, "NVIDIA: regenerate initramfs",
		fmt.Sprintf("The NVIDIA driver is loaded.\nRegenerate the initramfs now with %s?", tool)) {
		return nil
	}
	if err := c.runRoot(ctx, "set -euo pipefail\n"+script.Root(command)); err != nil {
		return fmt.Errorf("regenerate initramfs with %s: %w", tool, err)
	}

	if c.notify.Confirm(ctx, "Reboot", "Reboot the system now?") {
		if err := c.runRoot(ctx, script.Root("reboot")); err != nil {
			return fmt.Errorf("reboot: %w", err)
		}
	}
	return nil
}
