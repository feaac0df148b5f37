package engine

import (
	"context"
	"strings"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/hardware"
	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/quantmind-br/gnushark/internal/syspkg"
	"github.com/spf13/afero"
)

// Session is the machine state detected once at startup. It is never mutated
// after NewSession returns and is shared by every request.
type Session struct {
	Distro           syspkg.Distro
	Manager          syspkg.Manager
	Hardware         core.HardwareProfile
	KernelRelease    string
	PreferNvidiaOpen bool
	Resources        hardware.Resources
	Wayland          bool
}

// NewSession detects the distribution, package manager, hardware and kernel
func NewSession(ctx context.Context, fs afero.Fs, cmds helpers.CommandRunner, profiler *hardware.Profiler, preferOpen bool, getenv func(string) string) Session {
	return Session{
		Distro:           syspkg.DetectDistro(fs),
		Manager:          syspkg.PickManager(cmds),
		Hardware:         profiler.Profile(ctx),
		KernelRelease:    profiler.KernelRelease(ctx),
		PreferNvidiaOpen: preferOpen,
		Resources:        profiler.Resources(ctx),
		Wayland:          strings.EqualFold(getenv("XDG_SESSION_TYPE"), "wayland"),
	}
}
