package privilege

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Polkit artifacts
const (
	PolicyID    = "org.gnushark.runroot"
	WrapperPath = "/usr/libexec/gnushark-runroot"
	PolicyPath  = "/usr/share/polkit-1/actions/" + PolicyID + ".policy"
)

// WrapperContent is the root-side shell that reads a script from stdin
const WrapperContent = `#!/bin/sh
# Minimal wrapper for root execution through polkit
umask 022
export PATH="` + SafePath + `"
unset BASH_ENV ENV
exec /usr/bin/bash -s
`

// PolicyContent authorizes the wrapper once per session with admin credentials
const PolicyContent = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE policyconfig PUBLIC
 "-//freedesktop//DTD PolicyKit Policy Configuration 1.0//EN"
 "http://www.freedesktop.org/standards/PolicyKit/1/policyconfig.dtd">
<policyconfig>
  <action id="` + PolicyID + `">
    <description>Run GNU/Shark administrative tasks</description>
    <message>Allow GNU/Shark to perform actions with administrative privileges?</message>
    <icon_name>applications-games</icon_name>
    <defaults>
      <allow_any>auth_admin_keep</allow_any>
      <allow_inactive>auth_admin_keep</allow_inactive>
      <allow_active>auth_admin_keep</allow_active>
    </defaults>
    <annotate key="org.freedesktop.policykit.exec.path">` + WrapperPath + `</annotate>
    <annotate key="org.freedesktop.policykit.exec.allow_gui">true</annotate>
  </action>
</policyconfig>
`

// Launcher runs a user-mode script and blocks until it completes
type Launcher interface {
	Launch(ctx context.Context, body string) error
}

// PolicyInstaller keeps the polkit wrapper and policy in place
type PolicyInstaller struct {
	fs       afero.Fs
	launcher Launcher
	log      *zerolog.Logger

	mu         sync.Mutex
	installing bool
}

// NewPolicyInstaller creates an installer checking files on fs
func NewPolicyInstaller(fs afero.Fs, log *zerolog.Logger) *PolicyInstaller {
	return &PolicyInstaller{fs: fs, log: log}
}

// SetLauncher sets how the install script is run
func (p *PolicyInstaller) SetLauncher(l Launcher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.launcher = l
}

// UpToDate reports whether both files match the intended content byte for byte
// and the wrapper is executable
func (p *PolicyInstaller) UpToDate() bool {
	info, err := p.fs.Stat(WrapperPath)
	if err != nil || info.Mode().Perm()&0o111 == 0 {
		return false
	}
	return p.matches(WrapperPath, WrapperContent) && p.matches(PolicyPath, PolicyContent)
}

func (p *PolicyInstaller) matches(path, want string) bool {
	got, err := afero.ReadFile(p.fs, path)
	return err == nil && bytes.Equal(got, []byte(want))
}

// Ensure installs the artifacts when they are missing or differ. It returns
// true when an install ran. A call made while another install is in flight
// returns false immediately.
func (p *PolicyInstaller) Ensure(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.installing {
		p.mu.Unlock()
		return false, nil
	}
	p.installing = true
	launcher := p.launcher
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.installing = false
		p.mu.Unlock()
	}()

	if p.UpToDate() {
		return false, nil
	}
	if launcher == nil {
		return false, fmt.Errorf("no launcher for policy install: %w", core.ErrConfigWrite)
	}

	p.log.Info().Str("policy", PolicyPath).Msg("installing polkit policy")

	if err := launcher.Launch(ctx, InstallScript()); err != nil {
		return true, fmt.Errorf("install polkit policy: %w: %w", core.ErrConfigWrite, err)
	}
	if !p.UpToDate() {
		return true, fmt.Errorf("polkit policy still differs after install: %w", core.ErrConfigWrite)
	}
	return true, nil
}

// InstallScript writes both artifacts. The wrapper cannot be used to install
// itself, so the script elevates with pkexec on bash directly.
func InstallScript() string {
	return `set -euo pipefail
pkexec /usr/bin/bash -s <<'EOS'
set -e
mkdir -p /usr/share/polkit-1/actions
mkdir -p /usr/libexec
cat > ` + WrapperPath + ` <<'EOF'
` + WrapperContent + `EOF
chmod 0755 ` + WrapperPath + `
chown root:root ` + WrapperPath + ` || true
cat > ` + PolicyPath + ` <<'EOF'
` + PolicyContent + `EOF
chmod 0644 ` + PolicyPath + ` || true
EOS`
}
