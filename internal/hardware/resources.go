package hardware

import (
	"context"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sys/unix"
)

// FallbackRAMMiB is assumed when total memory cannot be read
const FallbackRAMMiB = 4096

// Resources are the host figures the zram heuristic needs
type Resources struct {
	RAMMiB int
	Cores  int
}

// Resources reads total memory and logical core count
func (p *Profiler) Resources(ctx context.Context) Resources {
	res := Resources{RAMMiB: FallbackRAMMiB, Cores: runtime.NumCPU()}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm.Total > 0 {
		res.RAMMiB = int(vm.Total / (1024 * 1024))
	} else if err != nil {
		p.log.Debug().Err(err).Msg("reading memory size failed")
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		res.Cores = n
	}

	if res.Cores < 1 {
		res.Cores = 1
	}
	return res
}

// KernelRelease returns the running kernel release, e.g. 6.9.1-zen1-1-zen
func (p *Profiler) KernelRelease(ctx context.Context) string {
	if v, err := host.KernelVersionWithContext(ctx); err == nil && v != "" {
		return v
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		p.log.Debug().Err(err).Msg("uname failed")
		return ""
	}
	return strings.TrimRight(string(uts.Release[:]), "\x00")
}
