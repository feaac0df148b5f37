package syspkg

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/spf13/afero"
)

const osReleasePath = "/etc/os-release"

// Distro identifies the running Arch-family distribution
type Distro struct {
	ID     string
	Pretty string
}

// Known distribution ids
const (
	DistroCachyOS  = "cachyos"
	DistroBigLinux = "biglinux"
	DistroManjaro  = "manjaro"
	DistroArch     = "arch"
	DistroUnknown  = "unknown"
)

// DetectDistro reads /etc/os-release and classifies it by ID and ID_LIKE
func DetectDistro(fs afero.Fs) Distro {
	kv := map[string]string{}
	if data, err := afero.ReadFile(fs, osReleasePath); err == nil {
		kv = parseOSRelease(data)
	}

	id := strings.ToLower(kv["ID"])
	like := strings.ToLower(kv["ID_LIKE"])
	pretty := kv["PRETTY_NAME"]
	if pretty == "" {
		pretty = kv["NAME"]
	}

	has := func(tok string) bool {
		return strings.Contains(id, tok) || strings.Contains(like, tok)
	}
	orDefault := func(name string) string {
		if pretty != "" {
			return pretty
		}
		return name
	}

	switch {
	case has(DistroCachyOS):
		return Distro{ID: DistroCachyOS, Pretty: orDefault("CachyOS")}
	case has(DistroBigLinux):
		return Distro{ID: DistroBigLinux, Pretty: orDefault("BigLinux")}
	case has(DistroManjaro):
		return Distro{ID: DistroManjaro, Pretty: orDefault("Manjaro")}
	case id == DistroArch || strings.Contains(like, DistroArch):
		return Distro{ID: DistroArch, Pretty: orDefault("Arch Linux")}
	}
	return Distro{ID: DistroUnknown, Pretty: orDefault("Linux")}
}

func parseOSRelease(data []byte) map[string]string {
	kv := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return kv
}

// Manager is a package manager front-end
type Manager string

// Package managers in pick order
const (
	ManagerNone   Manager = ""
	ManagerPamac  Manager = "pamac"
	ManagerPacman Manager = "pacman"
	ManagerParu   Manager = "paru"
	ManagerYay    Manager = "yay"
)

// PickManager returns the first available manager among pamac, pacman, paru and yay
func PickManager(runner helpers.CommandRunner) Manager {
	for _, m := range []Manager{ManagerPamac, ManagerPacman, ManagerParu, ManagerYay} {
		if runner.CommandExists(string(m)) {
			return m
		}
	}
	return ManagerNone
}

// IsBuildHelper reports whether m can build third-party packages by itself
func (m Manager) IsBuildHelper() bool {
	return m == ManagerParu || m == ManagerYay
}

// BuildHelper returns the third-party build helper to use with manager m.
// paru and yay are their own helper, otherwise paru then yay are looked up,
// and pamac falls back to its own build command.
func BuildHelper(runner helpers.CommandRunner, m Manager) Manager {
	if m.IsBuildHelper() {
		return m
	}
	for _, h := range []Manager{ManagerParu, ManagerYay} {
		if runner.CommandExists(string(h)) {
			return h
		}
	}
	if m == ManagerPamac {
		return ManagerPamac
	}
	return ManagerNone
}
