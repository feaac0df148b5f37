package cmd

import (
	"os"

	"github.com/quantmind-br/gnushark/internal/helpers"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Env is the process environment commands run against
type Env struct {
	Fs       afero.Fs
	Commands helpers.CommandRunner
	Getenv   func(string) string
	Euid     func() int
	// Interactive is set when prompts and spinners can be shown
	Interactive bool
}

// DefaultEnv is the real operating system
func DefaultEnv() Env {
	return Env{
		Fs:          afero.NewOsFs(),
		Commands:    helpers.NewOSCommandRunner(),
		Getenv:      os.Getenv,
		Euid:        unix.Geteuid,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd())),
	}
}
