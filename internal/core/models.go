package core

import "time"

// Vendor identifies a CPU or GPU manufacturer
type Vendor string

const (
	VendorUnknown Vendor = ""
	VendorIntel   Vendor = "intel"
	VendorAMD     Vendor = "amd"
	VendorNvidia  Vendor = "nvidia"
)

// Capability is a catalog entry the user can request: a driver, a tool or a launcher.
// Capabilities are loaded once at startup and never mutated.
type Capability struct {
	ID          string   `yaml:"id" json:"id"`
	Label       string   `yaml:"label" json:"label"`
	Section     string   `yaml:"section" json:"section"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Packages    []string `yaml:"packages,omitempty" json:"packages,omitempty"`
	Exec        string   `yaml:"exec,omitempty" json:"exec,omitempty"`
	Flatpak     string   `yaml:"flatpak,omitempty" json:"flatpak,omitempty"`
	AltPackages []string `yaml:"alt_packages,omitempty" json:"alt_packages,omitempty"`

	// RequiresGPU blocks the request unless the vendor is active on this machine
	RequiresGPU      Vendor  `yaml:"requires_gpu,omitempty" json:"requires_gpu,omitempty"`
	RequiresMultilib bool    `yaml:"requires_multilib,omitempty" json:"requires_multilib,omitempty"`
	CLI              bool    `yaml:"cli,omitempty" json:"cli,omitempty"`
	Dynamic          string  `yaml:"dynamic,omitempty" json:"dynamic,omitempty"`
	Extras           *Extras `yaml:"extras,omitempty" json:"extras,omitempty"`
	Post             string  `yaml:"post,omitempty" json:"post,omitempty"`
}

// Extras are optional packages offered at the end of an install script
type Extras struct {
	Prompt   string   `yaml:"prompt" json:"prompt"`
	Packages []string `yaml:"packages" json:"packages"`
}

// Dynamic package sets
const (
	DynamicNvidia = "nvidia"
)

// HardwareProfile is the detected CPU and GPU state of the machine
type HardwareProfile struct {
	CPU Vendor `json:"cpu"`
	// GPUs are vendors present in hardware (PCI enumeration or sysfs)
	GPUs []Vendor `json:"gpus"`
	// Modules are vendors with a loaded kernel module
	Modules []Vendor `json:"modules"`
}

// Active returns the union of hardware and module vendors, order-preserving
func (p HardwareProfile) Active() []Vendor {
	return UniqueVendors(append(append([]Vendor{}, p.GPUs...), p.Modules...))
}

// HasActive reports whether v is present in hardware or has a loaded module
func (p HardwareProfile) HasActive(v Vendor) bool {
	for _, a := range p.Active() {
		if a == v {
			return true
		}
	}
	return false
}

// UniqueVendors drops empty and duplicate entries while keeping first-seen order
func UniqueVendors(in []Vendor) []Vendor {
	seen := make(map[Vendor]bool, len(in))
	out := make([]Vendor, 0, len(in))
	for _, v := range in {
		if v == VendorUnknown || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Source is where an install plan gets its packages from
type Source string

const (
	SourceOfficial   Source = "official"
	SourceSandboxed  Source = "flatpak"
	SourceThirdParty Source = "aur"
)

// InstallPlan partitions the missing packages of a request.
// Official and ThirdParty are disjoint and together equal the missing set.
type InstallPlan struct {
	Official   []string `json:"official,omitempty"`
	ThirdParty []string `json:"third_party,omitempty"`
	Flatpak    string   `json:"flatpak,omitempty"`
}

// Missing returns official followed by third-party packages
func (p InstallPlan) Missing() []string {
	out := make([]string, 0, len(p.Official)+len(p.ThirdParty))
	out = append(out, p.Official...)
	return append(out, p.ThirdParty...)
}

// Source reports the primary source the plan will use
func (p InstallPlan) Source() Source {
	switch {
	case len(p.Official) > 0:
		return SourceOfficial
	case len(p.ThirdParty) > 0:
		return SourceThirdParty
	case p.Flatpak != "":
		return SourceSandboxed
	}
	return ""
}

// PrivilegeMode is the escalation strategy chosen for a script
type PrivilegeMode string

const (
	ModeUser  PrivilegeMode = "user"
	ModeRoot  PrivilegeMode = "root-already"
	ModeAgent PrivilegeMode = "root-via-agent"
	ModeSudo  PrivilegeMode = "root-via-sudo"
)

// ExecutionContext describes one launched script
type ExecutionContext struct {
	Mode     PrivilegeMode
	Sentinel string
	Script   string
}

// ZramParams are the tuned compressed swap settings for a host
type ZramParams struct {
	SizeMiB     int    `json:"size_mib"`
	Size        string `json:"size"`
	Compression string `json:"compression"`
	Swappiness  int    `json:"swappiness"`
}

// RunRecord is the persisted history of one executed plan
type RunRecord struct {
	ID         string     `json:"id"`
	Capability string     `json:"capability"`
	Source     Source     `json:"source"`
	Packages   []string   `json:"packages,omitempty"`
	Mode       string     `json:"mode"`
	Status     RunStatus  `json:"status"`
	LogPath    string     `json:"log_path,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunStatus tracks a run through its lifecycle
type RunStatus string

const (
	RunExecuting RunStatus = "executing"
	RunFinished  RunStatus = "finished"
	RunFailed    RunStatus = "failed"
	RunTimedOut  RunStatus = "timed-out"
)

// Exit codes
const (
	ExitSuccess       = 0
	ExitGeneral       = 1
	ExitInvalidArgs   = 2
	ExitInstallFailed = 3
	ExitHardware      = 4
	ExitPermission    = 6
	ExitInterrupted   = 130
)
