package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ValidPackageNameRegex follows pacman naming: alphanumerics plus @ . _ + -, not starting with - or .
	ValidPackageNameRegex = regexp.MustCompile(`^[a-zA-Z0-9@_+][a-zA-Z0-9@._+-]*$`)

	// ValidFlatpakIDRegex requires a reverse-DNS id with at least three elements
	ValidFlatpakIDRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(\.[A-Za-z_][A-Za-z0-9_-]*){2,}$`)

	// ValidExecutableRegex allows a bare command name looked up on PATH
	ValidExecutableRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+-]*$`)

	// ValidCapabilityIDRegex allows lowercase slugs
	ValidCapabilityIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

	// DangerousPathPatterns contains patterns that should not appear in paths handed to scripts
	DangerousPathPatterns = []string{
		"..",
		"$",
		"`",
		"|",
		"&",
		";",
		"\n",
		"\r",
		"\x00",
	}
)

// ValidatePackageName validates a package name before it reaches a shell script
func ValidatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name cannot be empty")
	}

	if len(name) > 255 {
		return fmt.Errorf("package name too long (max 255 characters)")
	}

	if !ValidPackageNameRegex.MatchString(name) {
		return fmt.Errorf("invalid package name %q", name)
	}

	return nil
}

// ValidatePackageNames validates every name in the list
func ValidatePackageNames(names []string) error {
	for _, n := range names {
		if err := ValidatePackageName(n); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFlatpakID validates a sandboxed application id such as com.valvesoftware.Steam
func ValidateFlatpakID(id string) error {
	if id == "" {
		return fmt.Errorf("flatpak id cannot be empty")
	}
	if len(id) > 255 {
		return fmt.Errorf("flatpak id too long (max 255 characters)")
	}
	if !ValidFlatpakIDRegex.MatchString(id) {
		return fmt.Errorf("invalid flatpak id %q", id)
	}
	return nil
}

// ValidateExecutable validates a command name; paths are rejected
func ValidateExecutable(name string) error {
	if name == "" {
		return fmt.Errorf("executable name cannot be empty")
	}
	if strings.ContainsRune(name, '/') {
		return fmt.Errorf("executable %q must be a bare command name", name)
	}
	if !ValidExecutableRegex.MatchString(name) {
		return fmt.Errorf("invalid executable name %q", name)
	}
	return nil
}

// ValidateCapabilityID validates a catalog id
func ValidateCapabilityID(id string) error {
	if id == "" {
		return fmt.Errorf("capability id cannot be empty")
	}
	if len(id) > 64 {
		return fmt.Errorf("capability id too long (max 64 characters)")
	}
	if !ValidCapabilityIDRegex.MatchString(id) {
		return fmt.Errorf("invalid capability id %q", id)
	}
	return nil
}

// ValidateScriptDir validates a directory that generated scripts will reference
// (sentinel and headless log location)
func ValidateScriptDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("directory cannot be empty")
	}
	if len(dir) >= 4096 {
		return fmt.Errorf("directory path too long (max 4096 characters)")
	}
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("directory %q must be absolute", dir)
	}
	for _, pattern := range DangerousPathPatterns {
		if strings.Contains(dir, pattern) {
			return fmt.Errorf("directory contains dangerous pattern: %q", pattern)
		}
	}
	return nil
}
