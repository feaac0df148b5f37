// Package zram sizes and configures compressed swap in RAM.
package zram

import (
	"fmt"
	"strings"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/script"
)

// Files written by the apply script
const (
	GeneratorConfPath = "/etc/systemd/zram-generator.conf"
	SysctlConfPath    = "/etc/sysctl.d/99-zram-tuning.conf"
)

const (
	minSizeMiB = 256
	sizeStep   = 256
)

// Choose derives zram parameters from total RAM and logical cores
func Choose(ramMiB, cores int) core.ZramParams {
	var size int
	switch {
	case ramMiB <= 4096:
		size = ramMiB
	case ramMiB <= 8192:
		size = ramMiB * 3 / 4
	case ramMiB <= 16384:
		size = ramMiB / 2
	case ramMiB <= 65536:
		size = 8192
	default:
		size = 16384
	}
	size = max(minSizeMiB, size/sizeStep*sizeStep)

	var comp string
	switch {
	case cores <= 2:
		comp = "lzo-rle"
	case cores <= 8:
		comp = "lz4"
	default:
		comp = "zstd"
	}

	var swappiness int
	switch {
	case ramMiB <= 8192:
		swappiness = 100
	case ramMiB <= 16384:
		swappiness = 80
	default:
		swappiness = 60
	}

	return core.ZramParams{
		SizeMiB:     size,
		Size:        SizeLabel(size),
		Compression: comp,
		Swappiness:  swappiness,
	}
}

// SizeLabel renders whole gibibytes as <N>G and anything else as <N>M
func SizeLabel(mib int) string {
	if mib%1024 == 0 {
		return fmt.Sprintf("%dG", mib/1024)
	}
	return fmt.Sprintf("%dM", mib)
}

// GeneratorConf renders zram-generator.conf
func GeneratorConf(p core.ZramParams) string {
	return strings.Join([]string{
		"[zram0]",
		"zram-size = " + p.Size,
		"compression-algorithm = " + p.Compression,
		"swap-priority = 100",
	}, "\n") + "\n"
}

// SysctlConf renders the swappiness drop-in
func SysctlConf(p core.ZramParams) string {
	return fmt.Sprintf("vm.swappiness = %d\n", p.Swappiness)
}

// ApplyScript writes both files as root and activates the swap device
func ApplyScript(p core.ZramParams) string {
	lines := []string{
		"mkdir -p /etc/systemd",
		"cat > " + GeneratorConfPath + " <<'EOF'",
		strings.TrimSuffix(GeneratorConf(p), "\n"),
		"EOF",
		"mkdir -p /etc/sysctl.d",
		"cat > " + SysctlConfPath + " <<'EOF'",
		strings.TrimSuffix(SysctlConf(p), "\n"),
		"EOF",
		"systemctl daemon-reload || true",
		"sysctl --system >/dev/null 2>&1 || true",
		"systemctl start zram0.swap || systemctl start /dev/zram0.swap || true",
		"swapon -a || true",
	}
	return "set -euo pipefail\n" + script.RootHeredoc(lines...)
}
