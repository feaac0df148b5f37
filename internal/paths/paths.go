package paths

import (
	"os"
	"path/filepath"
)

const appName = "gnushark"

// Resolver centralizes the default gnushark locations.
// XDG_DATA_HOME and XDG_CONFIG_HOME win over the HOME based defaults.
type Resolver struct {
	homeDir string
	getenv  func(string) string
}

// NewResolver creates a Resolver for the current user
func NewResolver() *Resolver {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("HOME")
	}
	if homeDir == "" {
		homeDir = "."
	}
	return NewResolverWithHome(homeDir, os.Getenv)
}

// NewResolverWithHome creates a Resolver with an explicit home and environment
func NewResolverWithHome(homeDir string, getenv func(string) string) *Resolver {
	return &Resolver{homeDir: homeDir, getenv: getenv}
}

// HomeDir returns the resolved home directory
func (r *Resolver) HomeDir() string {
	return r.homeDir
}

// DataDir returns $XDG_DATA_HOME/gnushark or ~/.local/share/gnushark
func (r *Resolver) DataDir() string {
	return filepath.Join(r.xdg("XDG_DATA_HOME", ".local", "share"), appName)
}

// ConfigDir returns $XDG_CONFIG_HOME/gnushark or ~/.config/gnushark
func (r *Resolver) ConfigDir() string {
	return filepath.Join(r.xdg("XDG_CONFIG_HOME", ".config"), appName)
}

// DBFile is the run history database
func (r *Resolver) DBFile() string {
	return filepath.Join(r.DataDir(), "history.db")
}

// LogFile is the rotating application log
func (r *Resolver) LogFile() string {
	return filepath.Join(r.DataDir(), appName+".log")
}

// CatalogFile is the optional catalog override
func (r *Resolver) CatalogFile() string {
	return filepath.Join(r.ConfigDir(), "catalog.yaml")
}

// xdg returns the variable when it holds an absolute path, else home joined with fallback
func (r *Resolver) xdg(name string, fallback ...string) string {
	if v := r.getenv(name); v != "" && filepath.IsAbs(v) {
		return v
	}
	return filepath.Join(append([]string{r.homeDir}, fallback...)...)
}
